package runner

import (
	"fmt"
	"log"

	persistlog "craftlevel.ai/internal/persistence/log"
	"craftlevel.ai/internal/sim/game"
)

// Replay re-runs a logged attempt from its header and checks the digest of
// every logged tick. It returns the number of ticks checked.
func Replay(rec *persistlog.Run, logger *log.Logger) (uint64, error) {
	h := rec.Header
	r, err := New(Config{
		RunID:  h.RunID,
		Level:  h.Level,
		Script: h.Script,
		Tuning: h.Tuning,
		Logger: logger,
	})
	if err != nil {
		return 0, err
	}
	if err := r.Start(); err != nil {
		return 0, err
	}

	var checked uint64
	for _, want := range rec.Ticks {
		if r.Done() {
			return checked, fmt.Errorf("replay ended at tick %d, log continues to %d", r.c.Tick(), want.Tick)
		}
		f := r.Step()
		if f.Tick != want.Tick {
			return checked, fmt.Errorf("tick mismatch: stepped=%d logged=%d", f.Tick, want.Tick)
		}
		if f.Digest != want.Digest {
			return checked, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", f.Tick, f.Digest, want.Digest)
		}
		checked++
	}

	// A stopped run ends by request, not by anything the replay can reproduce.
	if res := rec.Result; res != nil && res.Reason != game.ReasonStopped {
		got, ok := r.c.Result()
		if !ok || got.Success != res.Success || got.Reason != res.Reason || got.Tick != res.Tick {
			return checked, fmt.Errorf("result mismatch: got=%+v want=%+v", got, *res)
		}
	}
	return checked, nil
}
