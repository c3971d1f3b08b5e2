package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	persistlog "craftlevel.ai/internal/persistence/log"
	"craftlevel.ai/internal/runner"
)

func main() {
	var (
		logPath = flag.String("log", "", "path to run-<id>.jsonl.zst")
		dataDir = flag.String("data", "./data", "runtime data directory (used with -run)")
		runID   = flag.String("run", "", "run id to replay from <data>/runs (when -log is empty)")
		verify  = flag.Bool("verify", true, "re-run the attempt and compare tick digests")
	)
	flag.Parse()

	path := strings.TrimSpace(*logPath)
	if path == "" && *runID != "" {
		path = persistlog.RunPath(*dataDir, *runID)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "missing -log or -run")
		os.Exit(2)
	}

	rec, err := persistlog.ReadRun(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read run log:", err)
		os.Exit(1)
	}

	h := rec.Header
	fmt.Printf("run v%d id=%s level=%s tick_rate=%d seed=%d ticks=%d\n",
		h.Version, h.RunID, h.Level.Name, h.Tuning.TickRateHz, h.Tuning.Seed, len(rec.Ticks))
	if res := rec.Result; res != nil {
		fmt.Printf("result success=%v reason=%s tick=%d score=%d errors=%d\n",
			res.Success, res.Reason, res.Tick, res.Score, len(res.Errors))
	} else {
		fmt.Println("result missing (log cut short)")
	}

	if !*verify {
		return
	}
	checked, err := runner.Replay(rec, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks\n", checked)
}
