package models

// Record is one catalog record document stored under an Object Index.
type Record struct {
	ID       string         `json:"@id"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// MappingValue holds the tokenized terms used by the term mapper. It is
	// consumed and removed by the mapping stage.
	MappingValue *MappingSource `json:"mappings-value,omitempty"`

	Mappings  []MappingGroup  `json:"mappings,omitempty"`
	Hierarchy []HierarchyEdge `json:"hierarchy,omitempty"`
}

// Validate checks the fields every stage after ingestion relies on.
func (r *Record) Validate() error {
	if r.ID == "" {
		return ErrMissingField("@id")
	}

	for _, edge := range r.Hierarchy {
		if err := edge.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// MappedIDs returns the distinct entity ids referenced by the record's
// mappings in first-seen order.
func (r *Record) MappedIDs() []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)

	for _, group := range r.Mappings {
		for _, m := range group.Data {
			if _, ok := seen[m.ID]; ok {
				continue
			}

			seen[m.ID] = struct{}{}
			ids = append(ids, m.ID)
		}
	}

	return ids
}

// ReducedFrom returns every id that some mapping was collapsed away from.
func (r *Record) ReducedFrom() map[string]struct{} {
	ids := make(map[string]struct{})

	for _, group := range r.Mappings {
		for _, m := range group.Data {
			for _, id := range m.Metadata.ReducedFrom {
				ids[id] = struct{}{}
			}
		}
	}

	return ids
}

// MappingSource is the tokenized text of a record. Title and description
// are one term group each, keywords are one group per keyword.
type MappingSource struct {
	Title       []string   `json:"title"`
	Description []string   `json:"description"`
	Keywords    [][]string `json:"keywords"`
}

// MappingGroup holds the mappings produced from one selection source.
type MappingGroup struct {
	Metadata GroupMetadata   `json:"metadata"`
	Data     []MappingRecord `json:"data"`
}

// GroupMetadata describes where a mapping group came from.
type GroupMetadata struct {
	From  string `json:"from"`
	Title string `json:"title,omitempty"`
	Input any    `json:"input,omitempty"`
}

// MappingRecord maps a record onto one knowledge-graph entity.
type MappingRecord struct {
	ID       string          `json:"id"`
	Metadata MappingMetadata `json:"metadata"`
}

// MappingMetadata explains why a mapping exists.
type MappingMetadata struct {
	Group               []string `json:"group"`
	SharedSize          int      `json:"shared_size,omitempty"`
	TargetSize          int      `json:"target_size,omitempty"`
	ReducedFrom         []string `json:"reduced_from,omitempty"`
	DirectlyMapped      bool     `json:"directly_mapped"`
	DirectlyMappedGroup []string `json:"directly_mapped_group,omitempty"`
}
