package db

import (
	"strings"

	"github.com/odinkg/odin/internal/db/migrations"
)

// SchemaVersion returns the number of embedded SQL migrations. The export
// stage logs it next to every persisted batch.
func SchemaVersion() int {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return 0
	}

	count := 0

	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			count++
		}
	}

	return count
}
