package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"craftlevel.ai/internal/persistence/indexdb"
)

// openRuntimeIndex opens the read-model index, or returns nil when indexing
// is off.
func openRuntimeIndex(dataDir, backend string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "none", "off", "disabled":
		return nil, nil
	case "", "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "runs.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported CRAFT_INDEX_BACKEND: %s", backend)
	}
}
