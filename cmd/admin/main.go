package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "craftlevel.ai/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "run":
			runCmd(os.Args[2:])
			return
		case "show":
			showCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the run logs under the data directory, newest first.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	dir := filepath.Dir(persistlog.RunPath(*dataDir, "x"))
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	type item struct {
		name string
		mod  int64
	}
	var items []item
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl.zst") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{e.Name(), info.ModTime().UnixNano()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].mod > items[j].mod })
	for _, it := range items {
		fmt.Println(it.name)
	}
}

// showCmd decodes one run log and prints its header, result and tick count.
func showCmd(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	runID := fs.String("run", "", "run id")
	logPath := fs.String("log", "", "run log path (overrides -run)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*logPath)
	if path == "" {
		if strings.TrimSpace(*runID) == "" {
			fmt.Fprintln(os.Stderr, "missing -run or -log")
			os.Exit(2)
		}
		path = persistlog.RunPath(*dataDir, *runID)
	}
	rec, err := persistlog.ReadRun(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	events := 0
	for _, t := range rec.Ticks {
		events += len(t.Events)
	}
	printJSON(struct {
		RunID  string                  `json:"run_id"`
		Level  string                  `json:"level"`
		Script string                  `json:"script,omitempty"`
		Ticks  int                     `json:"ticks"`
		Events int                     `json:"events"`
		Result *persistlog.ResultEntry `json:"result,omitempty"`
	}{rec.Header.RunID, rec.Header.Level.Name, rec.Header.Script, len(rec.Ticks), events, rec.Result})
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
