package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	persistlog "craftlevel.ai/internal/persistence/log"
	"craftlevel.ai/internal/sim/ledger"
	"craftlevel.ai/internal/sim/levels"
	"craftlevel.ai/internal/sim/tuning"
)

func TestSQLiteIndex_RunLifecycle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	runID := uuid.NewString()

	book := ledger.New()
	book.Record(ledger.VerbExplode, "creeper", true)
	book.Record(ledger.VerbExplode, "creeper", false)
	book.Record(ledger.VerbExplode, "creeper", false)
	book.Record(ledger.VerbPlaySound, "", false)

	idx.RecordRunStart(runID, "creeper_field", "/data/runs/run-x.jsonl.zst")
	idx.WriteTick(runID, persistlog.TickEntry{Tick: 1, Digest: "aa"})
	idx.WriteTick(runID, persistlog.TickEntry{Tick: 2, Digest: "bb"})
	idx.RecordRunResult(runID, persistlog.ResultEntry{Tick: 2, Success: true, Reason: "solved", Score: 5, Errors: []string{"x"}}, book.Snapshot())
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	run, err := idx.LookupRun(ctx, runID)
	if err != nil {
		t.Fatalf("LookupRun: %v", err)
	}
	if run.Level != "creeper_field" || !run.Finished || !run.Success || run.Reason != "solved" || run.EndTick != 2 || run.Score != 5 || run.Errors != 1 {
		t.Fatalf("run row mismatch: %+v", run)
	}

	counts, err := idx.CommandCounts(ctx, runID)
	if err != nil {
		t.Fatalf("CommandCounts: %v", err)
	}
	want := []CommandCount{
		{Verb: "explode", Type: "", Repeat: false, Count: 2},
		{Verb: "explode", Type: "creeper", Repeat: false, Count: 2},
		{Verb: "explode", Type: "", Repeat: true, Count: 1},
		{Verb: "explode", Type: "creeper", Repeat: true, Count: 1},
		{Verb: "playSound", Type: "", Repeat: false, Count: 1},
	}
	if len(counts) != len(want) {
		t.Fatalf("counts=%+v want %+v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("counts[%d]=%+v want %+v", i, counts[i], want[i])
		}
	}

	if _, err := idx.LookupRun(ctx, uuid.NewString()); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("missing run err=%v", err)
	}
}

func TestSQLiteIndex_TicksStored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	runID := uuid.NewString()
	idx.RecordRunStart(runID, "pen", "")
	for tick := uint64(1); tick <= 5; tick++ {
		idx.WriteTick(runID, persistlog.TickEntry{Tick: tick, Digest: "d"})
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ticks WHERE run_id=?`, runID).Scan(&n); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 5 {
		t.Fatalf("ticks=%d want 5", n)
	}
	var finished sql.NullString
	if err := db.QueryRow(`SELECT finished_at FROM runs WHERE run_id=?`, runID).Scan(&finished); err != nil {
		t.Fatalf("Scan run: %v", err)
	}
	if finished.Valid {
		t.Fatalf("unfinished run should have no finished_at")
	}
}

func TestSQLiteIndex_UpsertLevels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defs := map[string]levels.Definition{
		"a": {Name: "a", Width: 2, Height: 2},
		"b": {Name: "b", Width: 3, Height: 1, UseScore: true},
	}
	if err := idx.UpsertLevels(defs, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertLevels: %v", err)
	}
	if err := idx.UpsertLevels(defs, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertLevels again: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM levels`).Scan(&n); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 2 {
		t.Fatalf("levels=%d want 2", n)
	}
	var version string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key='schema_version'`).Scan(&version); err != nil {
		t.Fatalf("Scan meta: %v", err)
	}
	if version != "1" {
		t.Fatalf("schema_version=%q", version)
	}
}

func TestFlattenLedger_Empty(t *testing.T) {
	if got := FlattenLedger(ledger.New().Snapshot()); len(got) != 0 {
		t.Fatalf("expected no rows, got %+v", got)
	}
}
