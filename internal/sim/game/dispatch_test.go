package game

import (
	"testing"

	"craftlevel.ai/internal/sim/command"
	"craftlevel.ai/internal/sim/levels"
	"craftlevel.ai/internal/sim/target"
	"craftlevel.ai/internal/sim/tuning"
)

func newTestController(t *testing.T, def levels.Definition) *Controller {
	t.Helper()
	c := New(Config{Tuning: tuning.Defaults()})
	if err := c.LoadLevel(def); err != nil {
		t.Fatalf("load level: %v", err)
	}
	return c
}

func herd(n int) levels.Definition {
	def := levels.Definition{Name: "herd", Width: n, Height: 2, DirectControl: true}
	for i := 0; i < n; i++ {
		def.Entities = append(def.Entities, levels.EntitySpec{Type: "sheep", Placement: levels.Placement{X: i}})
	}
	def.Entities = append(def.Entities, levels.EntitySpec{Type: "cow", Placement: levels.Placement{X: 0, Y: 1}})
	return def
}

func TestExecute_BroadcastFansOutOnePerEntity(t *testing.T) {
	for _, n := range []int{1, 3, 8} {
		c := newTestController(t, herd(n))
		outer := c.newCommand(target.All(), VerbTurn, Args{Quarters: 1})
		outer.Begin()
		if !outer.IsSucceeded() {
			t.Fatalf("n=%d: outer token should resolve immediately", n)
		}
		total := 0
		for _, e := range c.ents.All() {
			if got := e.queue.Len(); got != 1 {
				t.Fatalf("n=%d: %s queue len=%d want 1", n, e.id, got)
			}
			total += e.queue.Len()
		}
		if total != n+1 {
			t.Fatalf("n=%d: %d tokens enqueued, want %d", n, total, n+1)
		}
		if got := c.ledger.Count("turn", "", false); got != 0 {
			t.Fatalf("fan-out must not be recorded, got %d", got)
		}
	}
}

func TestExecute_TypeBroadcastOnlyMatchingType(t *testing.T) {
	c := newTestController(t, herd(3))
	outer := c.newCommand(target.Type("cow"), VerbFlash, Args{})
	c.addCommand(outer)
	c.Step()
	if !outer.IsSucceeded() {
		t.Fatalf("outer token should resolve")
	}
	for _, e := range c.ents.OfType("sheep") {
		if e.queue.Len() != 0 {
			t.Fatalf("sheep %s should not get the flash", e.id)
		}
	}
	if got := c.ledger.Count("flash", "cow", false); got != 1 {
		t.Fatalf("flash for cow=%d want 1", got)
	}
}

func TestExecute_FanOutKeepsRepeatFlag(t *testing.T) {
	c := newTestController(t, herd(2))
	outer := c.newCommand(target.Type("sheep"), VerbWait, Args{Ms: 100})
	c.dispatch.Add(outer, true)
	c.dispatch.Begin()
	c.Step()
	for _, e := range c.ents.OfType("sheep") {
		cur := e.queue.Current()
		if cur == nil || !cur.Repeat {
			t.Fatalf("sheep %s: sub-command should carry the repeat flag", e.id)
		}
	}
	if got := c.ledger.Count("wait", "sheep", true); got != 2 {
		t.Fatalf("repeat wait for sheep=%d want 2", got)
	}
	if got := c.ledger.Count("wait", "", false); got != 0 {
		t.Fatalf("normal wait=%d want 0", got)
	}
}

func TestExecute_MissingEntityResolves(t *testing.T) {
	c := newTestController(t, herd(1))
	cmd := c.newCommand(target.Entity("42"), VerbAttack, Args{})
	cmd.Begin()
	if !cmd.IsSucceeded() {
		t.Fatalf("a lookup miss must still resolve")
	}
}

func TestPlayerDelayFactor(t *testing.T) {
	def := levels.Definition{Name: "p", Width: 2, Height: 2, Player: &levels.Placement{}, DirectControl: true}
	cases := []struct {
		queued int
		want   float64
	}{
		{0, 1},
		{10, 1},
		{15, 0.5},
		{20, 0},
		{40, 0},
	}
	for _, tc := range cases {
		c := newTestController(t, def)
		for i := 0; i < tc.queued; i++ {
			c.player.queue.Add(command.NewCallback(c.player.spec(), nil, nil), false)
		}
		if got := c.playerDelayFactor(); got != tc.want {
			t.Fatalf("queued=%d factor=%v want %v", tc.queued, got, tc.want)
		}
	}
}

func TestVerbString(t *testing.T) {
	if VerbMoveAway.String() != "moveAway" || VerbStartNight.String() != "startNight" {
		t.Fatalf("unexpected verb names")
	}
	if Verb(99).String() != "unknown" {
		t.Fatalf("out of range verb should be unknown")
	}
	if !VerbSpawn.global() || VerbAttack.global() {
		t.Fatalf("global verb classification broken")
	}
}
