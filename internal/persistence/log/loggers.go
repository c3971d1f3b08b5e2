package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// JSONLZstdWriter appends JSON lines to one zstd-compressed file. The file is
// opened on the first Write.
type JSONLZstdWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewJSONLZstdWriter(path string) *JSONLZstdWriter {
	return &JSONLZstdWriter{path: path}
}

func (w *JSONLZstdWriter) Path() string { return w.path }

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		if err := w.openLocked(); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush pushes buffered lines through the encoder without ending the frame.
func (w *JSONLZstdWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) openLocked() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

// RunPath is where the log of one run lives under dir.
func RunPath(dir, runID string) string {
	return filepath.Join(dir, "runs", fmt.Sprintf("run-%s.jsonl.zst", runID))
}

// RunLogger writes the log of one level attempt: a header line, one line per
// tick and a closing result line.
type RunLogger struct{ w *JSONLZstdWriter }

func NewRunLogger(dir, runID string) *RunLogger {
	return &RunLogger{w: NewJSONLZstdWriter(RunPath(dir, runID))}
}

func (l *RunLogger) WriteHeader(h Header) error {
	if h.Version == 0 {
		h.Version = Version
	}
	return l.w.Write(Line{Kind: KindHeader, Header: &h})
}

func (l *RunLogger) WriteTick(t TickEntry) error     { return l.w.Write(Line{Kind: KindTick, Tick: &t}) }
func (l *RunLogger) WriteResult(r ResultEntry) error { return l.w.Write(Line{Kind: KindResult, Result: &r}) }
func (l *RunLogger) Path() string                    { return l.w.Path() }
func (l *RunLogger) Close() error                    { return l.w.Close() }
