package api_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/odinkg/odin/internal/models"
)

type okChecker struct{}

func (okChecker) HealthCheck(context.Context) error { return nil }

type mockRecords struct {
	records map[string]*models.Record
	err     error
}

func (m *mockRecords) GetRecord(_ context.Context, iri string) (*models.Record, error) {
	if m.err != nil {
		return nil, m.err
	}

	rec, ok := m.records[iri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrRecordNotFound, iri)
	}

	return rec, nil
}

func (m *mockRecords) RecordsMappedTo(_ context.Context, entityID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}

	var out []string

	for iri, rec := range m.records {
		for _, id := range rec.MappedIDs() {
			if id == entityID {
				out = append(out, iri)
			}
		}
	}

	return out, nil
}

func (m *mockRecords) CountRecords(context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}

	return len(m.records), nil
}

var errDatabaseDown = errors.New("database down")
