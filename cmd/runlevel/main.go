// Command runlevel plays one level headlessly and prints the outcome and the
// command ledger as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"craftlevel.ai/internal/runner"
	"craftlevel.ai/internal/sim/ledger"
	"craftlevel.ai/internal/sim/levels"
	"craftlevel.ai/internal/sim/tuning"
)

type options struct {
	ConfigDir  string
	LevelName  string
	LevelFile  string
	ScriptFile string
	TuningPath string
	DataDir    string
	Realtime   bool
	Verbose    bool
}

type report struct {
	RunID   string          `json:"run_id"`
	Level   string          `json:"level"`
	Success bool            `json:"success"`
	Reason  string          `json:"reason"`
	Tick    uint64          `json:"tick"`
	Score   int             `json:"score"`
	Errors  []string        `json:"errors,omitempty"`
	Ledger  ledger.Snapshot `json:"ledger"`
	LogPath string          `json:"log_path,omitempty"`
}

func main() {
	var o options
	flag.StringVar(&o.ConfigDir, "configs", "./configs", "config directory")
	flag.StringVar(&o.LevelName, "level", "", "level name from <configs>/levels")
	flag.StringVar(&o.LevelFile, "level_file", "", "path to a level yaml (overrides -level)")
	flag.StringVar(&o.ScriptFile, "script", "", "Lua program to run (default: the level's own script)")
	flag.StringVar(&o.TuningPath, "tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	flag.StringVar(&o.DataDir, "data", "", "write the run log under this directory")
	flag.BoolVar(&o.Realtime, "realtime", false, "pace ticks at the tick rate")
	flag.BoolVar(&o.Verbose, "v", false, "log game progress to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := run(ctx, o)
	if err != nil {
		fmt.Fprintln(os.Stderr, "runlevel:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rep)
	if !rep.Success {
		os.Exit(3)
	}
}

func run(ctx context.Context, o options) (report, error) {
	logger := log.New(io.Discard, "", 0)
	if o.Verbose {
		logger = log.New(os.Stderr, "[runlevel] ", log.Lmicroseconds)
	}

	tune, err := loadTuning(o)
	if err != nil {
		return report{}, err
	}
	def, err := loadLevel(o)
	if err != nil {
		return report{}, err
	}
	var src string
	if o.ScriptFile != "" {
		raw, err := os.ReadFile(o.ScriptFile)
		if err != nil {
			return report{}, err
		}
		src = string(raw)
	}

	r, err := runner.New(runner.Config{
		Level:  def,
		Script: src,
		Tuning: tune,
		Logger: logger,
		LogDir: o.DataDir,
	})
	if err != nil {
		return report{}, err
	}
	if err := r.Start(); err != nil {
		return report{}, err
	}
	out, err := r.Play(ctx, o.Realtime, nil)
	if err != nil {
		return report{}, err
	}

	rep := report{
		RunID:   out.RunID,
		Level:   out.Level,
		Success: out.Result.Success,
		Reason:  out.Result.Reason,
		Tick:    out.Result.Tick,
		Score:   out.Score,
		Ledger:  out.Ledger,
		LogPath: out.LogPath,
	}
	for _, e := range out.Errors {
		rep.Errors = append(rep.Errors, e.Error())
	}
	return rep, nil
}

func loadTuning(o options) (tuning.Tuning, error) {
	tp := strings.TrimSpace(o.TuningPath)
	if tp == "" {
		tp = filepath.Join(o.ConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || o.TuningPath != "" {
			return tune, fmt.Errorf("load tuning: %w", err)
		}
		tune = tuning.Defaults()
	}
	if err := tuning.ApplyEnv(&tune); err != nil {
		return tune, err
	}
	return tune, nil
}

func loadLevel(o options) (levels.Definition, error) {
	if o.LevelFile != "" {
		return levels.Load(o.LevelFile)
	}
	if o.LevelName == "" {
		return levels.Definition{}, errors.New("missing -level or -level_file")
	}
	defs, err := levels.LoadDir(filepath.Join(o.ConfigDir, "levels"))
	if err != nil {
		return levels.Definition{}, err
	}
	def, ok := defs[o.LevelName]
	if !ok {
		return levels.Definition{}, fmt.Errorf("unknown level %q", o.LevelName)
	}
	return def, nil
}
