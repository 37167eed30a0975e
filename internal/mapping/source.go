package mapping

import (
	"fmt"

	"github.com/odinkg/odin/internal/models"
)

// Source selects which part of a record's mapping text is matched.
type Source int

const (
	Title Source = iota
	Description
	Keywords
)

// AllSources lists every source in the order mapping groups are written.
var AllSources = []Source{Title, Description, Keywords}

func (s Source) String() string {
	switch s {
	case Title:
		return "title"
	case Description:
		return "description"
	case Keywords:
		return "keywords"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// ParseSource parses a source name.
func ParseSource(name string) (Source, error) {
	for _, s := range AllSources {
		if s.String() == name {
			return s, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown mapping source %q", models.ErrInvalidConfig, name)
}

// TermGroups returns the term groups the source contributes. Title and
// description are a single group, keywords one group per keyword.
func (s Source) TermGroups(v *models.MappingSource) [][]string {
	switch s {
	case Title:
		return [][]string{v.Title}
	case Description:
		return [][]string{v.Description}
	case Keywords:
		return v.Keywords
	default:
		return nil
	}
}

// Input returns the raw source value recorded in the mapping group metadata.
func (s Source) Input(v *models.MappingSource) any {
	switch s {
	case Title:
		return v.Title
	case Description:
		return v.Description
	case Keywords:
		return v.Keywords
	default:
		return nil
	}
}
