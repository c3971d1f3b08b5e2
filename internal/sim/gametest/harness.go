package gametest

import (
	"testing"

	"craftlevel.ai/internal/sim/events"
	"craftlevel.ai/internal/sim/game"
	"craftlevel.ai/internal/sim/levels"
	"craftlevel.ai/internal/sim/target"
	"craftlevel.ai/internal/sim/tuning"
)

// Harness drives a controller through its exported API only and records
// everything the controller reports: events, presentation effects, begun
// commands, program errors and results.
type Harness struct {
	T *testing.T
	C *game.Controller

	Events  []events.Event
	Effects []game.Effect
	Begun   []string
	Errors  []error
	Results []game.Result
	Scores  []int
}

func NewHarness(t *testing.T, def levels.Definition) *Harness {
	t.Helper()
	return NewHarnessWithTuning(t, def, tuning.Defaults())
}

func NewHarnessWithTuning(t *testing.T, def levels.Definition, tune tuning.Tuning) *Harness {
	t.Helper()
	h := &Harness{T: t}
	h.C = game.New(game.Config{
		Tuning:    tune,
		Trace:     func(e game.Effect) { h.Effects = append(h.Effects, e) },
		OnEvent:   func(ev events.Event) { h.Events = append(h.Events, ev) },
		OnResult:  func(r game.Result) { h.Results = append(h.Results, r) },
		OnScore:   func(s int) { h.Scores = append(h.Scores, s) },
		OnCommand: func(verb string, _ target.Spec) { h.Begun = append(h.Begun, verb) },
	})
	if err := h.C.LoadLevel(def); err != nil {
		t.Fatalf("load level %q: %v", def.Name, err)
	}
	return h
}

// Run executes fn as the program. A nil fn runs an empty program.
func (h *Harness) Run(fn func(api *game.API) error) {
	h.T.Helper()
	var p game.Program
	if fn != nil {
		p = game.ProgramFunc(fn)
	}
	h.RunProgram(p)
}

// RunProgram runs p, collecting program errors in Errors.
func (h *Harness) RunProgram(p game.Program) {
	h.T.Helper()
	if err := h.C.Run(p, func(err error) { h.Errors = append(h.Errors, err) }); err != nil {
		h.T.Fatalf("run: %v", err)
	}
}

func (h *Harness) Step(n int) {
	for i := 0; i < n; i++ {
		h.C.Step()
	}
}

// StepUntil steps until done reports true, at most max ticks. It reports
// whether done was reached.
func (h *Harness) StepUntil(max int, done func() bool) bool {
	for i := 0; i < max; i++ {
		if done() {
			return true
		}
		h.C.Step()
	}
	return done()
}

// Finish steps until the attempt has a result.
func (h *Harness) Finish(max int) game.Result {
	h.T.Helper()
	if !h.StepUntil(max, h.C.Finished) {
		h.T.Fatalf("no result after %d ticks (tick=%d)", max, h.C.Tick())
	}
	r, _ := h.C.Result()
	return r
}

func (h *Harness) Entity(id string) *game.Entity {
	h.T.Helper()
	e, ok := h.C.Entities().Get(id)
	if !ok {
		h.T.Fatalf("no entity %q", id)
	}
	return e
}

func (h *Harness) EventsOf(typ events.Type) []events.Event {
	var out []events.Event
	for _, ev := range h.Events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (h *Harness) EffectsNamed(name string) []game.Effect {
	var out []game.Effect
	for _, e := range h.Effects {
		if e.Name == name || (e.Anim != nil && e.Anim.Name == name) {
			out = append(out, e)
		}
	}
	return out
}

func (h *Harness) Count(verb, typ string, repeat bool) int {
	return h.C.Ledger().Count(verb, typ, repeat)
}

// Flat is an open event level of w×h empty cells with no player. Event
// levels never end on their own.
func Flat(name string, w, ht int) levels.Definition {
	return levels.Definition{Name: name, Width: w, Height: ht, DirectControl: true}
}

func At(x, y int, facing string) *levels.Placement {
	return &levels.Placement{X: x, Y: y, Facing: facing}
}

func Mob(typ string, x, y int) levels.EntitySpec {
	return levels.EntitySpec{Type: typ, Placement: levels.Placement{X: x, Y: y}}
}
