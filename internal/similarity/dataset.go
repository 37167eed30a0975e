// Package similarity finds the shortest hierarchy paths connecting the
// entities two catalog records are mapped to.
package similarity

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/odinkg/odin/internal/models"
)

// Dataset is the part of a record the path finder reads.
type Dataset struct {
	ID        string
	Mappings  []models.MappingGroup
	Hierarchy []models.HierarchyEdge
}

// FromRecord builds a dataset from a final record.
func FromRecord(rec *models.Record) *Dataset {
	return &Dataset{ID: rec.ID, Mappings: rec.Mappings, Hierarchy: rec.Hierarchy}
}

// Entities returns the distinct mapped entity ids in first-seen order.
func (d *Dataset) Entities() []string {
	rec := models.Record{Mappings: d.Mappings}
	return rec.MappedIDs()
}

// DecodeDataset reads a record document from r.
func DecodeDataset(r io.Reader) (*Dataset, error) {
	var rec models.Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: dataset: %v", models.ErrMalformedInput, err)
	}

	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}

	return FromRecord(&rec), nil
}

// LoadDataset reads a record document from path.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	return DecodeDataset(f)
}
