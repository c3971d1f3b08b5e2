package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	persistlog "craftlevel.ai/internal/persistence/log"
	"craftlevel.ai/internal/sim/ledger"
	"craftlevel.ai/internal/sim/levels"
	"craftlevel.ai/internal/sim/tuning"
)

// SQLiteIndex is a read model over finished and running level attempts. It
// never feeds back into a run; writes are queued to a single writer
// goroutine and dropped if it falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqRunStart reqKind = iota + 1
	reqTick
	reqResult
)

type req struct {
	kind  reqKind
	runID string

	start  runStartRow
	tick   persistlog.TickEntry
	result persistlog.ResultEntry
	counts []CommandCount
}

type runStartRow struct {
	Level     string
	LogPath   string
	StartedAt string
}

// CommandCount is one ledger cell of a run.
type CommandCount struct {
	Verb   string `json:"verb"`
	Type   string `json:"type"`
	Repeat bool   `json:"repeat"`
	Count  int    `json:"count"`
}

// RunRow is what the index knows about one run.
type RunRow struct {
	ID         string `json:"run_id"`
	Level      string `json:"level"`
	LogPath    string `json:"log_path"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Finished   bool   `json:"finished"`
	Success    bool   `json:"success"`
	Reason     string `json:"reason,omitempty"`
	EndTick    uint64 `json:"end_tick"`
	Score      int    `json:"score"`
	Errors     int    `json:"errors"`
}

var ErrRunNotFound = errors.New("run not found")

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS levels (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			level TEXT NOT NULL,
			log_path TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			success INTEGER,
			reason TEXT,
			end_tick INTEGER,
			score INTEGER,
			errors INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_level ON runs(level, started_at);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			events INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS command_counts (
			run_id TEXT NOT NULL,
			verb TEXT NOT NULL,
			type TEXT NOT NULL,
			repeat INTEGER NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (run_id, verb, type, repeat)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_command_counts_verb ON command_counts(verb, type);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; run logs remain the source of truth.
	}
}

func (s *SQLiteIndex) RecordRunStart(runID, level, logPath string) {
	if runID == "" {
		return
	}
	s.enqueue(req{kind: reqRunStart, runID: runID, start: runStartRow{
		Level:     level,
		LogPath:   logPath,
		StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}})
}

func (s *SQLiteIndex) WriteTick(runID string, entry persistlog.TickEntry) {
	s.enqueue(req{kind: reqTick, runID: runID, tick: entry})
}

// RecordRunResult closes a run and stores its command ledger.
func (s *SQLiteIndex) RecordRunResult(runID string, res persistlog.ResultEntry, book ledger.Snapshot) {
	s.enqueue(req{kind: reqResult, runID: runID, result: res, counts: FlattenLedger(book)})
}

// FlattenLedger turns a ledger snapshot into rows: one per verb total (empty
// type) and one per verb and entity type, sorted.
func FlattenLedger(book ledger.Snapshot) []CommandCount {
	var out []CommandCount
	add := func(b map[string]ledger.Record, repeat bool) {
		for verb, r := range b {
			out = append(out, CommandCount{Verb: verb, Repeat: repeat, Count: r.Count})
			for typ, n := range r.ByType {
				out = append(out, CommandCount{Verb: verb, Type: typ, Repeat: repeat, Count: n})
			}
		}
	}
	add(book.Normal, false)
	add(book.Repeat, true)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Verb != b.Verb {
			return a.Verb < b.Verb
		}
		if a.Repeat != b.Repeat {
			return !a.Repeat
		}
		return a.Type < b.Type
	})
	return out
}

// UpsertLevels stores the level catalog and the tuning the server runs with.
func (s *SQLiteIndex) UpsertLevels(defs map[string]levels.Definition, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([]kv, 0, len(names)+1)
	for _, name := range names {
		b, err := json.Marshal(defs[name])
		if err != nil {
			return fmt.Errorf("level %s: %w", name, err)
		}
		rows = append(rows, kv{name: name, digest: digestOf(b), json: b})
	}

	tuneJSON, err := json.Marshal(tune)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tuning',?)`, string(tuneJSON)); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO levels(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func digestOf(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// LookupRun reads one run. Queued writes may not be visible yet.
func (s *SQLiteIndex) LookupRun(ctx context.Context, runID string) (RunRow, error) {
	var (
		r        RunRow
		finished sql.NullString
		success  sql.NullInt64
		reason   sql.NullString
		endTick  sql.NullInt64
		score    sql.NullInt64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id,level,log_path,started_at,finished_at,success,reason,end_tick,score,errors FROM runs WHERE run_id=?`, runID)
	if err := row.Scan(&r.ID, &r.Level, &r.LogPath, &r.StartedAt, &finished, &success, &reason, &endTick, &score, &r.Errors); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, ErrRunNotFound
		}
		return r, err
	}
	r.Finished = finished.Valid
	r.FinishedAt = finished.String
	r.Success = success.Int64 != 0
	r.Reason = reason.String
	r.EndTick = uint64(endTick.Int64)
	r.Score = int(score.Int64)
	return r, nil
}

func (s *SQLiteIndex) CommandCounts(ctx context.Context, runID string) ([]CommandCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT verb,type,repeat,count FROM command_counts WHERE run_id=? ORDER BY verb,repeat,type`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CommandCount
	for rows.Next() {
		var c CommandCount
		if err := rows.Scan(&c.Verb, &c.Type, &c.Repeat, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,level,log_path,started_at) VALUES(?,?,?,?)`)
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,tick,digest,events,raw_json) VALUES(?,?,?,?,?)`)
	finishRun, _ := s.db.Prepare(`UPDATE runs SET finished_at=?,success=?,reason=?,end_tick=?,score=?,errors=? WHERE run_id=?`)
	insertCount, _ := s.db.Prepare(`INSERT OR REPLACE INTO command_counts(run_id,verb,type,repeat,count) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, insertTick, finishRun, insertCount} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRunStart:
			if insertRun == nil {
				break
			}
			if _, err := tx.Stmt(insertRun).Exec(r.runID, r.start.Level, r.start.LogPath, r.start.StartedAt); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqTick:
			if insertTick == nil {
				break
			}
			b, _ := json.Marshal(r.tick)
			if _, err := tx.Stmt(insertTick).Exec(r.runID, int64(r.tick.Tick), r.tick.Digest, len(r.tick.Events), string(b)); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqResult:
			if finishRun == nil {
				break
			}
			res := r.result
			success := 0
			if res.Success {
				success = 1
			}
			now := time.Now().UTC().Format(time.RFC3339Nano)
			if _, err := tx.Stmt(finishRun).Exec(now, success, res.Reason, int64(res.Tick), res.Score, len(res.Errors), r.runID); err != nil {
				rollback()
				continue
			}
			opCount++
			for _, c := range r.counts {
				if insertCount == nil {
					break
				}
				if _, err := tx.Stmt(insertCount).Exec(r.runID, c.Verb, c.Type, c.Repeat, c.Count); err != nil {
					rollback()
					break
				}
				opCount++
			}
			// Results are committed at once.
			commit()
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
