package mapping

// WordFilter removes terms that must not take part in matching.
type WordFilter interface {
	Filter(words []string) []string
}

// PassThrough keeps every word.
type PassThrough struct{}

// Filter implements WordFilter.
func (PassThrough) Filter(words []string) []string { return words }

// ExcludeFilter drops every word in a fixed set.
type ExcludeFilter struct {
	words map[string]struct{}
}

// NewExcludeFilter creates a filter dropping words.
func NewExcludeFilter(words []string) ExcludeFilter {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}

	return ExcludeFilter{words: set}
}

// Filter implements WordFilter.
func (f ExcludeFilter) Filter(words []string) []string {
	out := make([]string, 0, len(words))

	for _, w := range words {
		if _, drop := f.words[w]; !drop {
			out = append(out, w)
		}
	}

	return out
}

// StandaloneExcluded are terms that may be shared with an entity but never
// be the only shared terms.
var StandaloneExcluded = []string{"(", ")", ".", "?", "!", "-", ",", "}", "{"}

// DefaultSharedThreshold is the minimum fraction of an entity term group
// a record must share.
const DefaultSharedThreshold = 0.66
