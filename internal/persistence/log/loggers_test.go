package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"craftlevel.ai/internal/sim/events"
	"craftlevel.ai/internal/sim/levels"
	"craftlevel.ai/internal/sim/tuning"
)

func TestRunLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewRunLogger(dir, "abc")

	def := levels.Definition{Name: "pen", Width: 3, Height: 2, DirectControl: true,
		Entities: []levels.EntitySpec{{Type: "sheep", Placement: levels.Placement{X: 1, Y: 1, Facing: "east"}}}}
	if err := l.WriteHeader(Header{RunID: "abc", Level: def, Script: "craft.flash()", Tuning: tuning.Defaults()}); err != nil {
		t.Fatalf("header: %v", err)
	}
	for tick := uint64(1); tick <= 3; tick++ {
		entry := TickEntry{Tick: tick, Digest: "d"}
		if tick == 1 {
			entry.Events = []events.Event{{Type: events.WhenRun}}
		}
		if err := l.WriteTick(entry); err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
	}
	if err := l.WriteResult(ResultEntry{Tick: 3, Success: true, Reason: "solved", Score: 4}); err != nil {
		t.Fatalf("result: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if want := filepath.Join(dir, "runs", "run-abc.jsonl.zst"); l.Path() != want {
		t.Fatalf("path=%s want %s", l.Path(), want)
	}
	run, err := ReadRun(l.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if run.Header.Version != Version || run.Header.RunID != "abc" || run.Header.Script != "craft.flash()" {
		t.Fatalf("header: %+v", run.Header)
	}
	if got := run.Header.Level.Entities; len(got) != 1 || got[0].Type != "sheep" || got[0].X != 1 || got[0].Facing != "east" {
		t.Fatalf("level entities: %+v", got)
	}
	if run.Header.Tuning.TickRateHz != 20 || run.Header.Tuning.Animations["walk"] != 400 {
		t.Fatalf("tuning did not survive: %+v", run.Header.Tuning)
	}
	if len(run.Ticks) != 3 || run.Ticks[2].Tick != 3 {
		t.Fatalf("ticks: %+v", run.Ticks)
	}
	if len(run.Ticks[0].Events) != 1 || run.Ticks[0].Events[0].Type != events.WhenRun {
		t.Fatalf("tick events: %+v", run.Ticks[0].Events)
	}
	if run.Result == nil || !run.Result.Success || run.Result.Score != 4 {
		t.Fatalf("result: %+v", run.Result)
	}
}

func TestRunLogger_NoResultWhenCutShort(t *testing.T) {
	dir := t.TempDir()
	l := NewRunLogger(dir, "cut")
	if err := l.WriteHeader(Header{RunID: "cut"}); err != nil {
		t.Fatal(err)
	}
	if err := l.WriteTick(TickEntry{Tick: 1, Digest: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	run, err := ReadRun(l.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if run.Result != nil || len(run.Ticks) != 1 {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestDecodeRun_RequiresHeader(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write([]byte(`{"kind":"tick","tick":{"tick":1,"digest":"x"}}` + "\n")); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeRun(&buf); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("err=%v want ErrNoHeader", err)
	}
}

func TestDecodeRun_RejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(filepath.Join(dir, "x.jsonl.zst"))
	if err := w.Write(Line{Kind: KindHeader, Header: &Header{Version: Version}}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(map[string]string{"kind": "bogus"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadRun(w.Path()); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestJSONLZstdWriter_NoFileUntilWrite(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(filepath.Join(dir, "sub", "never.jsonl.zst"))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(w.Path()); !os.IsNotExist(err) {
		t.Fatalf("file should not exist, stat err=%v", err)
	}
}
