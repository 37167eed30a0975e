package export_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/export"
	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/objindex"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

func seedStage(t *testing.T, dir string, recs ...*models.Record) {
	t.Helper()

	idx, err := objindex.Open(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	for _, rec := range recs {
		if err := jsonio.WriteDocument(idx.GetOrCreate(rec.ID, ""), rec); err != nil {
			t.Fatal(err)
		}
	}

	if err := idx.Save(); err != nil {
		t.Fatal(err)
	}
}

func TestForUI_CopiesByTableName(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	table := filepath.Join(root, "names.json")

	seedStage(t, in, &models.Record{ID: "http://a"}, &models.Record{ID: "http://b"})

	if err := jsonio.WriteDocument(table, map[string]string{"http://a": "roads", "http://b": "rivers"}); err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(out, 0o750); err != nil {
		t.Fatal(err)
	}

	if err := export.NewForUI(table, testLogger()).Transform(context.Background(), in, out); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	for name, id := range map[string]string{"roads": "http://a", "rivers": "http://b"} {
		var rec models.Record
		if err := jsonio.ReadDocument(filepath.Join(out, name+".json"), &rec); err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}

		if rec.ID != id {
			t.Errorf("%s.json has @id %q, want %q", name, rec.ID, id)
		}
	}

	if jsonio.Exists(filepath.Join(out, objindex.FileName)) {
		t.Error("output directory should have no index")
	}
}

func TestForUI_MissingTableEntry(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	table := filepath.Join(root, "names.json")

	seedStage(t, in, &models.Record{ID: "http://a"})

	if err := jsonio.WriteDocument(table, map[string]string{}); err != nil {
		t.Fatal(err)
	}

	err := export.NewForUI(table, testLogger()).Transform(context.Background(), in, t.TempDir())
	if !errors.Is(err, models.ErrMissingIndexEntry) {
		t.Fatalf("expected ErrMissingIndexEntry, got %v", err)
	}
}

type memorySaver struct {
	saved []string
	err   error
}

func (m *memorySaver) SaveRecord(_ context.Context, rec *models.Record) error {
	if m.err != nil {
		return m.err
	}

	m.saved = append(m.saved, rec.ID)

	return nil
}

func TestPersistStage(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")

	seedStage(t, in, &models.Record{ID: "http://a"}, &models.Record{ID: "http://b"})

	saver := &memorySaver{}
	if err := export.NewPersistStage(saver, testLogger()).Transform(context.Background(), in, out); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if len(saver.saved) != 2 || saver.saved[0] != "http://a" || saver.saved[1] != "http://b" {
		t.Errorf("saved = %v", saver.saved)
	}

	idx, err := objindex.Open(out, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	path, err := idx.MustGet("http://b")
	if err != nil {
		t.Fatal(err)
	}

	var rec models.Record
	if err := jsonio.ReadDocument(path, &rec); err != nil {
		t.Fatalf("pass-through document: %v", err)
	}
}

func TestPersistStage_SaveError(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")

	seedStage(t, in, &models.Record{ID: "http://a"})

	boom := errors.New("boom")

	err := export.NewPersistStage(&memorySaver{err: boom}, testLogger()).
		Transform(context.Background(), in, filepath.Join(root, "out"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
