package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"craftlevel.ai/internal/sim/events"
	"craftlevel.ai/internal/sim/levels"
	"craftlevel.ai/internal/sim/tuning"
)

// Version of the run log format.
const Version = 1

const (
	KindHeader = "header"
	KindTick   = "tick"
	KindResult = "result"
)

// Header carries everything needed to replay the run.
type Header struct {
	Version   int               `json:"v"`
	RunID     string            `json:"run_id"`
	Level     levels.Definition `json:"level"`
	Script    string            `json:"script,omitempty"`
	Tuning    tuning.Tuning     `json:"tuning"`
	StartedAt int64             `json:"started_at_unix_ms"`
}

type TickEntry struct {
	Tick   uint64         `json:"tick"`
	Digest string         `json:"digest"`
	Events []events.Event `json:"events,omitempty"`
}

type ResultEntry struct {
	Tick    uint64   `json:"tick"`
	Success bool     `json:"success"`
	Reason  string   `json:"reason"`
	Score   int      `json:"score"`
	Errors  []string `json:"errors,omitempty"`
}

// Line is one JSON line of a run log. Exactly one payload is set.
type Line struct {
	Kind   string       `json:"kind"`
	Header *Header      `json:"header,omitempty"`
	Tick   *TickEntry   `json:"tick,omitempty"`
	Result *ResultEntry `json:"result,omitempty"`
}

// Run is a decoded run log.
type Run struct {
	Header Header
	Ticks  []TickEntry
	Result *ResultEntry
}

var ErrNoHeader = errors.New("run log: missing header")

func ReadRun(path string) (*Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeRun(f)
}

// DecodeRun reads a zstd-compressed run log. A log cut short by a crash is
// returned without a result.
func DecodeRun(r io.Reader) (*Run, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var run Run
	seenHeader := false
	n := 0
	for sc.Scan() {
		n++
		var line Line
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			return nil, fmt.Errorf("run log line %d: %w", n, err)
		}
		switch line.Kind {
		case KindHeader:
			if line.Header == nil || seenHeader {
				return nil, fmt.Errorf("run log line %d: bad header", n)
			}
			if line.Header.Version != Version {
				return nil, fmt.Errorf("run log: unsupported version %d", line.Header.Version)
			}
			run.Header = *line.Header
			seenHeader = true
		case KindTick:
			if !seenHeader {
				return nil, ErrNoHeader
			}
			if line.Tick == nil {
				return nil, fmt.Errorf("run log line %d: empty tick", n)
			}
			run.Ticks = append(run.Ticks, *line.Tick)
		case KindResult:
			if !seenHeader {
				return nil, ErrNoHeader
			}
			run.Result = line.Result
		default:
			return nil, fmt.Errorf("run log line %d: unknown kind %q", n, line.Kind)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !seenHeader {
		return nil, ErrNoHeader
	}
	return &run, nil
}
