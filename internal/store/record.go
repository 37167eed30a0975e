package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/dbpool"
	"github.com/odinkg/odin/internal/models"
)

// RecordStore reads and writes exported records.
type RecordStore struct {
	Base
}

// NewRecordStore creates a RecordStore.
func NewRecordStore(pool *dbpool.Pool, log logrus.FieldLogger) *RecordStore {
	return &RecordStore{Base: Base{Pool: pool, Log: log}}
}

// SaveRecord replaces the stored document, mappings and hierarchy of rec.
func (s *RecordStore) SaveRecord(ctx context.Context, rec *models.Record) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx,
		`INSERT INTO odin_records (iri, document) VALUES ($1, $2)
		 ON CONFLICT (iri) DO UPDATE SET document = EXCLUDED.document, exported_at = now()`,
		rec.ID, doc)
	if err != nil {
		return fmt.Errorf("upserting record: %w", err)
	}

	for _, table := range []string{"odin_mappings", "odin_hierarchy"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE record_iri = $1", rec.ID); err != nil { //nolint:gosec // fixed table names
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	batch := &pgx.Batch{}

	for _, group := range rec.Mappings {
		for _, m := range group.Data {
			batch.Queue(
				`INSERT INTO odin_mappings (record_iri, source, entity_id, term_group, reduced_from, directly_mapped)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (record_iri, source, entity_id) DO NOTHING`,
				rec.ID, group.Metadata.From, m.ID, nonNil(m.Metadata.Group), nonNil(m.Metadata.ReducedFrom), m.Metadata.DirectlyMapped)
		}
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting mappings: %w", err)
		}
	}

	if len(rec.Hierarchy) > 0 {
		rows := make([][]any, 0, len(rec.Hierarchy))
		for _, e := range rec.Hierarchy {
			rows = append(rows, []any{rec.ID, e.Source, e.Relation, e.Target})
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"odin_hierarchy"},
			[]string{"record_iri", "source_id", "relation", "target_id"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copying hierarchy: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing record: %w", err)
	}

	return nil
}

// GetRecord returns the stored document of iri.
func (s *RecordStore) GetRecord(ctx context.Context, iri string) (*models.Record, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var doc []byte

	err := s.Pool.QueryRow(ctx, "SELECT document FROM odin_records WHERE iri = $1", iri).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", models.ErrRecordNotFound, iri)
		}

		return nil, fmt.Errorf("querying record: %w", err)
	}

	var rec models.Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}

	return &rec, nil
}

// RecordsMappedTo lists the records with a mapping onto entityID.
func (s *RecordStore) RecordsMappedTo(ctx context.Context, entityID string) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		"SELECT DISTINCT record_iri FROM odin_mappings WHERE entity_id = $1 ORDER BY record_iri", entityID)
	if err != nil {
		return nil, fmt.Errorf("querying mappings: %w", err)
	}

	iris, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning mappings: %w", err)
	}

	return iris, nil
}

// CountRecords returns the number of stored records.
func (s *RecordStore) CountRecords(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var n int
	if err := s.Pool.QueryRow(ctx, "SELECT count(*) FROM odin_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}

	return n, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}

	return v
}
