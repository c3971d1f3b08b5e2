// Package runner drives one level attempt end to end: it loads the program,
// steps the controller, and records every tick to the run log and index.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	persistlog "craftlevel.ai/internal/persistence/log"
	"craftlevel.ai/internal/script"
	"craftlevel.ai/internal/sim/events"
	"craftlevel.ai/internal/sim/game"
	"craftlevel.ai/internal/sim/ledger"
	"craftlevel.ai/internal/sim/levels"
	"craftlevel.ai/internal/sim/tuning"
)

// Index is the optional read model a run reports to.
type Index interface {
	RecordRunStart(runID, level, logPath string)
	WriteTick(runID string, entry persistlog.TickEntry)
	RecordRunResult(runID string, res persistlog.ResultEntry, book ledger.Snapshot)
}

type Config struct {
	// RunID defaults to a fresh UUID.
	RunID  string
	Level  levels.Definition
	Script string
	Tuning tuning.Tuning
	Logger *log.Logger

	// LogDir enables the zstd run log when set.
	LogDir string
	Index  Index

	// Effects collects presentation calls into each Frame.
	Effects bool
}

// Frame is what one tick produced.
type Frame struct {
	Tick    uint64
	Digest  string
	Score   int
	Events  []events.Event
	Effects []game.Effect
}

// Outcome summarises a finished run.
type Outcome struct {
	RunID   string
	Level   string
	Result  game.Result
	Score   int
	Errors  []error
	Ledger  ledger.Snapshot
	LogPath string
}

var ErrNotStarted = errors.New("run not started")

// Run is one attempt. It is driven from a single goroutine.
type Run struct {
	cfg Config
	log *log.Logger

	c       *game.Controller
	program game.Program
	runLog  *persistlog.RunLogger

	events  []events.Event
	effects []game.Effect
	errs    []error

	started  bool
	finished bool
	outcome  Outcome
}

func New(cfg Config) (*Run, error) {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Tuning.TickRateHz == 0 {
		cfg.Tuning = tuning.Defaults()
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	r := &Run{cfg: cfg, log: cfg.Logger}

	gc := game.Config{
		Tuning:  cfg.Tuning,
		Logger:  cfg.Logger,
		OnEvent: func(ev events.Event) { r.events = append(r.events, ev) },
	}
	if cfg.Effects {
		gc.Trace = func(e game.Effect) { r.effects = append(r.effects, e) }
	}
	r.c = game.New(gc)
	if err := r.c.LoadLevel(cfg.Level); err != nil {
		return nil, fmt.Errorf("level %s: %w", cfg.Level.Name, err)
	}

	src := cfg.Script
	if src == "" {
		src = cfg.Level.Script
	}
	if src != "" {
		p := script.New(cfg.Level.Name, src)
		p.Budget = cfg.Tuning.ScriptBudget
		r.program = p
	}
	if cfg.LogDir != "" {
		r.runLog = persistlog.NewRunLogger(cfg.LogDir, cfg.RunID)
	}
	return r, nil
}

func (r *Run) ID() string                   { return r.cfg.RunID }
func (r *Run) Controller() *game.Controller { return r.c }
func (r *Run) Errors() []error              { return r.errs }

func (r *Run) LogPath() string {
	if r.runLog == nil {
		return ""
	}
	return r.runLog.Path()
}

// Start writes the run header and executes the program. Program errors do not
// stop the run; they are collected and reported with the outcome.
func (r *Run) Start() error {
	if r.started {
		return game.ErrAlreadyRunning
	}
	r.started = true

	if r.runLog != nil {
		if err := r.runLog.WriteHeader(persistlog.Header{
			RunID:     r.cfg.RunID,
			Level:     r.cfg.Level,
			Script:    r.cfg.Script,
			Tuning:    r.cfg.Tuning,
			StartedAt: time.Now().UnixMilli(),
		}); err != nil {
			return fmt.Errorf("run log: %w", err)
		}
	}
	if r.cfg.Index != nil {
		r.cfg.Index.RecordRunStart(r.cfg.RunID, r.cfg.Level.Name, r.LogPath())
	}

	r.log.Printf("run %s: level=%s", r.cfg.RunID, r.cfg.Level.Name)
	return r.c.Run(r.program, func(err error) { r.errs = append(r.errs, err) })
}

// Step advances one tick and returns what it produced. Events raised while
// the program started are reported with the first tick.
func (r *Run) Step() Frame {
	tick, digest := r.c.StepOnce()
	if limit := r.cfg.Tuning.MaxTicks; limit > 0 && tick >= uint64(limit) && !r.c.Finished() {
		r.log.Printf("run %s: stopped at max ticks %d", r.cfg.RunID, limit)
		r.c.Abort(game.ReasonTimeout)
	}
	return r.frame(tick, digest)
}

func (r *Run) frame(tick uint64, digest string) Frame {
	f := Frame{
		Tick:    tick,
		Digest:  digest,
		Score:   r.c.Score(),
		Events:  r.events,
		Effects: r.effects,
	}
	r.events, r.effects = nil, nil

	entry := persistlog.TickEntry{Tick: tick, Digest: digest, Events: f.Events}
	if r.runLog != nil {
		if err := r.runLog.WriteTick(entry); err != nil {
			r.log.Printf("run %s: run log: %v", r.cfg.RunID, err)
		}
	}
	if r.cfg.Index != nil {
		r.cfg.Index.WriteTick(r.cfg.RunID, entry)
	}
	return f
}

func (r *Run) Done() bool { return r.c.Finished() }

// Stop ends the run early with the stopped reason.
func (r *Run) Stop() { r.c.Abort(game.ReasonStopped) }

// Play steps until the run has a result or ctx is done, calling onFrame after
// every tick. With realtime set ticks are paced at the tuned rate.
func (r *Run) Play(ctx context.Context, realtime bool, onFrame func(Frame)) (Outcome, error) {
	if !r.started {
		return Outcome{}, ErrNotStarted
	}
	if realtime {
		err := r.c.Loop(ctx, func(tick uint64, digest string) {
			f := r.frame(tick, digest)
			if onFrame != nil {
				onFrame(f)
			}
		})
		if err != nil {
			r.Stop()
		}
		return r.Finish()
	}
	for !r.Done() {
		if ctx.Err() != nil {
			r.Stop()
			break
		}
		f := r.Step()
		if onFrame != nil {
			onFrame(f)
		}
	}
	return r.Finish()
}

// Finish writes the result line, closes the run log and reports to the index.
// Calling it again returns the same outcome.
func (r *Run) Finish() (Outcome, error) {
	if r.finished {
		return r.outcome, nil
	}
	if !r.started {
		return Outcome{}, ErrNotStarted
	}
	res, ok := r.c.Result()
	if !ok {
		r.Stop()
		res, _ = r.c.Result()
	}
	r.finished = true
	r.outcome = Outcome{
		RunID:   r.cfg.RunID,
		Level:   r.cfg.Level.Name,
		Result:  res,
		Score:   r.c.Score(),
		Errors:  r.errs,
		Ledger:  r.c.Ledger().Snapshot(),
		LogPath: r.LogPath(),
	}

	entry := persistlog.ResultEntry{
		Tick:    res.Tick,
		Success: res.Success,
		Reason:  res.Reason,
		Score:   r.outcome.Score,
		Errors:  errorStrings(r.errs),
	}
	var logErr error
	if r.runLog != nil {
		logErr = r.runLog.WriteResult(entry)
		if err := r.runLog.Close(); logErr == nil {
			logErr = err
		}
	}
	if r.cfg.Index != nil {
		r.cfg.Index.RecordRunResult(r.cfg.RunID, entry, r.outcome.Ledger)
	}
	r.log.Printf("run %s: success=%v reason=%s tick=%d", r.cfg.RunID, res.Success, res.Reason, res.Tick)
	if logErr != nil {
		return r.outcome, fmt.Errorf("run log: %w", logErr)
	}
	return r.outcome, nil
}

func errorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
