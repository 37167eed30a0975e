package mapping

import (
	"github.com/odinkg/odin/internal/models"
)

// Matcher scores record term groups against candidate entities.
type Matcher struct {
	cfg Config
	idx *Candidates
}

// NewMatcher creates a matcher over a prepared candidate index.
func NewMatcher(cfg Config, idx *Candidates) *Matcher {
	return &Matcher{cfg: cfg.withDefaults(), idx: idx}
}

// MapRecord appends one mapping group per configured source and removes
// the record's mapping source.
func (m *Matcher) MapRecord(rec *models.Record) error {
	src := rec.MappingValue
	if src == nil {
		return models.ErrMissingField("mappings-value")
	}

	for _, source := range m.cfg.Sources {
		data := make([]models.MappingRecord, 0)
		for _, group := range source.TermGroups(src) {
			data = append(data, m.MatchGroup(group)...)
		}

		rec.Mappings = append(rec.Mappings, models.MappingGroup{
			Metadata: models.GroupMetadata{
				From:  source.String(),
				Title: GroupTitle,
				Input: source.Input(src),
			},
			Data: data,
		})
	}

	rec.MappingValue = nil

	return nil
}

type candidate struct {
	entity *models.Entity
	shared []string
}

type match struct {
	shared    []string
	target    int
	threshold float64
	exact     bool
}

// MatchGroup returns a mapping for every entity accepted for one record
// term group, in the order candidates were first reached. When any entity
// matches the group exactly, only exact matches are returned.
func (m *Matcher) MatchGroup(terms []string) []models.MappingRecord {
	filtered := distinct(m.cfg.Words.Filter(terms))
	recordSize := len(filtered)

	order := make([]string, 0)
	byCode := make(map[string]*candidate)

	for _, term := range filtered {
		for _, entity := range m.idx.Lookup(term) {
			c, ok := byCode[entity.Code]
			if !ok {
				c = &candidate{entity: entity}
				byCode[entity.Code] = c
				order = append(order, entity.Code)
			}

			c.shared = append(c.shared, term)
		}
	}

	results := make([]models.MappingRecord, 0)
	anyExact := false
	exact := make([]bool, 0)

	for _, code := range order {
		c := byCode[code]

		best, ok := m.bestMatch(c, recordSize)
		if !ok {
			continue
		}

		anyExact = anyExact || best.exact
		exact = append(exact, best.exact)
		results = append(results, models.MappingRecord{
			ID: code,
			Metadata: models.MappingMetadata{
				Group:          best.shared,
				SharedSize:     len(best.shared),
				TargetSize:     best.target,
				DirectlyMapped: true,
			},
		})
	}

	if !anyExact {
		return results
	}

	kept := results[:0]
	for i, r := range results {
		if exact[i] {
			kept = append(kept, r)
		}
	}

	return kept
}

// bestMatch evaluates the entity's label then its aliases. A group matching
// the record exactly wins outright; otherwise a strictly larger share wins
// and ties keep the earlier group.
func (m *Matcher) bestMatch(c *candidate, recordSize int) (match, bool) {
	sharedSet := make(map[string]struct{}, len(c.shared))
	for _, t := range c.shared {
		sharedSet[t] = struct{}{}
	}

	var (
		best  match
		found bool
	)

	for _, group := range c.entity.TermGroups() {
		target := distinct(group)
		if len(target) == 0 {
			continue
		}

		shared := make([]string, 0, len(target))
		for _, t := range target {
			if _, ok := sharedSet[t]; ok {
				shared = append(shared, t)
			}
		}

		if len(m.cfg.Standalone.Filter(shared)) == 0 {
			continue
		}

		threshold := float64(len(shared)) / float64(len(target))
		if threshold < m.cfg.SharedThreshold {
			continue
		}

		isExact := len(shared) == len(target) && len(target) == recordSize

		switch {
		case isExact && !best.exact:
			best = match{shared: shared, target: len(target), threshold: threshold, exact: true}
			found = true
		case best.exact:
		case threshold > best.threshold:
			best = match{shared: shared, target: len(target), threshold: threshold}
			found = true
		}
	}

	return best, found
}

func distinct(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))

	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}

		seen[w] = struct{}{}
		out = append(out, w)
	}

	return out
}
