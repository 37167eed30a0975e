package objindex_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/objindex"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

func openIndex(t *testing.T, dir string) *objindex.Index {
	t.Helper()

	idx, err := objindex.Open(dir, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	return idx
}

func collectIDs(idx *objindex.Index) []string {
	var ids []string
	for e := range idx.All() {
		ids = append(ids, e.ID)
	}

	return ids
}

func TestIndex_GetOrCreateSequentialNames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stage")
	idx := openIndex(t, dir)

	tests := []struct {
		id   string
		ext  string
		want string
	}{
		{"http://a", "", "item_000000.json"},
		{"http://b", "json", "item_000001.json"},
		{"http://a", "", "item_000000.json"},
		{"http://c", "txt", "item_000002.txt"},
	}

	for _, tt := range tests {
		got := idx.GetOrCreate(tt.id, tt.ext)
		if got != filepath.Join(dir, tt.want) {
			t.Errorf("GetOrCreate(%s) = %s, want %s", tt.id, got, tt.want)
		}
	}

	if idx.Len() != 3 {
		t.Errorf("Len = %d, want 3", idx.Len())
	}
}

func TestIndex_SaveReloadPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	idx := openIndex(t, dir)

	order := []string{"z", "a", "m", "b"}
	for _, id := range order {
		idx.GetOrCreate(id, "")
	}

	if err := idx.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := openIndex(t, dir)

	got := collectIDs(reloaded)
	if len(got) != len(order) {
		t.Fatalf("reloaded %d ids, want %d", len(got), len(order))
	}

	for i := range order {
		if got[i] != order[i] {
			t.Errorf("position %d = %s, want %s", i, got[i], order[i])
		}
	}

	// Names stay stable across runs.
	if p := reloaded.GetOrCreate("m", ""); filepath.Base(p) != "item_000002.json" {
		t.Errorf("m = %s", p)
	}

	if p := reloaded.GetOrCreate("new", ""); filepath.Base(p) != "item_000004.json" {
		t.Errorf("new = %s", p)
	}
}

func TestIndex_Put(t *testing.T) {
	dir := t.TempDir()
	idx := openIndex(t, dir)

	path, isNew := idx.Put("x", "item_000042.json")
	if !isNew || path != filepath.Join(dir, "item_000042.json") {
		t.Errorf("first Put = (%s, %v)", path, isNew)
	}

	_, isNew = idx.Put("x", "item_000042.json")
	if isNew {
		t.Error("second Put should not be new")
	}

	if idx.Len() != 1 {
		t.Errorf("Len = %d", idx.Len())
	}
}

func TestIndex_Get(t *testing.T) {
	idx := openIndex(t, t.TempDir())
	idx.GetOrCreate("a", "")

	if _, ok := idx.Get("a"); !ok {
		t.Error("expected a to be present")
	}

	if _, ok := idx.Get("b"); ok {
		t.Error("expected b to be absent")
	}

	if _, err := idx.MustGet("b"); !errors.Is(err, models.ErrMissingIndexEntry) {
		t.Errorf("MustGet error = %v", err)
	}
}

func TestIndex_MalformedDocument(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, objindex.FileName), []byte(`["a"]`), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := objindex.Open(dir, testLogger())
	if !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

func TestIndex_MergeOnDiskWins(t *testing.T) {
	dir := t.TempDir()

	disk := openIndex(t, dir)
	disk.Put("shared", "disk.json")
	disk.Put("disk-only", "d.json")

	if err := disk.Save(); err != nil {
		t.Fatal(err)
	}

	merged := openIndex(t, dir)
	merged.Put("mem-only", "m.json")
	merged.Put("shared", "mem.json")

	if err := merged.Merge(context.Background(), objindex.LockOptions{}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if p, _ := merged.Get("shared"); filepath.Base(p) != "disk.json" {
		t.Errorf("shared = %s, want disk.json", p)
	}

	got := collectIDs(merged)
	want := []string{"shared", "disk-only", "mem-only"}

	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ids = %v, want %v", got, want)
			break
		}
	}

	if _, err := os.Stat(dir + ".lock"); !os.IsNotExist(err) {
		t.Errorf("lock file should be released, stat err = %v", err)
	}
}

func TestIndex_MergeRenamesCollidingNames(t *testing.T) {
	dir := t.TempDir()

	first := openIndex(t, dir)
	second := openIndex(t, dir)

	first.GetOrCreate("x", "")
	if err := first.Save(); err != nil {
		t.Fatal(err)
	}

	second.GetOrCreate("y", "")
	second.Put("z", "item_000001.json")

	if err := second.Merge(context.Background(), objindex.LockOptions{}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	tests := []struct {
		id   string
		want string
	}{
		{"x", "item_000000.json"},
		{"y", "item_000002.json"},
		{"z", "item_000001.json"},
	}

	for _, tt := range tests {
		p, ok := second.Get(tt.id)
		if !ok || filepath.Base(p) != tt.want {
			t.Errorf("%s -> %s, want %s", tt.id, p, tt.want)
		}
	}

	reloaded := openIndex(t, dir)
	seen := make(map[string]string)

	for e := range reloaded.All() {
		if other, dup := seen[e.Name]; dup {
			t.Errorf("%s and %s share %s", other, e.ID, e.Name)
		}
		seen[e.Name] = e.ID
	}
}
