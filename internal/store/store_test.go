package store_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/db"
	"github.com/odinkg/odin/internal/db/migrations"
	"github.com/odinkg/odin/internal/dbpool"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/store"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL, 2)
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		t.Fatalf("migrating test DB: %v", err)
	}

	sharedEnv = &testEnv{pool: pool, log: log}

	return sharedEnv
}

func testRecord(iri string) *models.Record {
	return &models.Record{
		ID:       iri,
		Metadata: map[string]any{"title": "Roads"},
		Mappings: []models.MappingGroup{
			{
				Metadata: models.GroupMetadata{From: "title", Title: "Wikidata"},
				Data: []models.MappingRecord{
					{ID: "Q34442", Metadata: models.MappingMetadata{Group: []string{"road"}, DirectlyMapped: true}},
				},
			},
			{
				Metadata: models.GroupMetadata{From: "keywords", Title: "Wikidata"},
				Data: []models.MappingRecord{
					{ID: "Q34442", Metadata: models.MappingMetadata{Group: []string{"road"}, DirectlyMapped: true}},
					{ID: "Q1", Metadata: models.MappingMetadata{Group: []string{"x"}, ReducedFrom: []string{"Q2"}}},
				},
			},
		},
		Hierarchy: []models.HierarchyEdge{
			{Source: "Q34442", Relation: models.RelationSubclassOf, Target: "Q83620"},
		},
	}
}

func TestRecordStore_SaveAndGet(t *testing.T) {
	env := getTestEnv(t)
	s := store.NewRecordStore(env.pool, env.log)
	ctx := context.Background()

	iri := "http://test/" + uuid.NewString()

	if err := s.SaveRecord(ctx, testRecord(iri)); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	// Saving again replaces rather than duplicates.
	if err := s.SaveRecord(ctx, testRecord(iri)); err != nil {
		t.Fatalf("SaveRecord again: %v", err)
	}

	got, err := s.GetRecord(ctx, iri)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}

	if got.ID != iri || len(got.Mappings) != 2 || len(got.Hierarchy) != 1 {
		t.Errorf("record = %+v", got)
	}

	iris, err := s.RecordsMappedTo(ctx, "Q34442")
	if err != nil {
		t.Fatalf("RecordsMappedTo: %v", err)
	}

	found := false

	for _, x := range iris {
		if x == iri {
			found = true
		}
	}

	if !found {
		t.Errorf("%s not among %v", iri, iris)
	}

	n, err := s.CountRecords(ctx)
	if err != nil || n < 1 {
		t.Errorf("CountRecords = %d, %v", n, err)
	}
}

func TestRecordStore_GetMissing(t *testing.T) {
	env := getTestEnv(t)
	s := store.NewRecordStore(env.pool, env.log)

	_, err := s.GetRecord(context.Background(), "http://test/missing/"+uuid.NewString())
	if !errors.Is(err, models.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
