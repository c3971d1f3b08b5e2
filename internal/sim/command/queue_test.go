package command

import (
	"testing"

	"craftlevel.ai/internal/sim/target"
)

type trace struct{ order []string }

// deferred returns a command that records its begin and completes only when
// the returned finish func is called.
func (tr *trace) deferred(name string) (*Command, func()) {
	var self *Command
	c := NewCallback(target.All(), nil, func(c *Command) {
		tr.order = append(tr.order, name)
		self = c
	})
	return c, func() {
		if self != nil {
			self.Succeeded()
		}
	}
}

func (tr *trace) instant(name string) *Command {
	return NewCallback(target.All(), nil, func(c *Command) {
		tr.order = append(tr.order, name)
		c.Succeeded()
	})
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestQueue_FIFOOneInFlight(t *testing.T) {
	var tr trace
	q := NewQueue()
	a, finishA := tr.deferred("A")
	q.Add(a, false)
	q.Add(tr.instant("B"), false)
	q.Begin()

	for i := 0; i < 5; i++ {
		q.Tick()
	}
	if len(tr.order) != 1 || tr.order[0] != "A" {
		t.Fatalf("B must wait for A: %v", tr.order)
	}
	finishA()
	q.Tick() // removes A
	q.Tick() // begins B
	if len(tr.order) != 2 || tr.order[1] != "B" {
		t.Fatalf("order: %v", tr.order)
	}
	q.Tick()
	if q.State() != QueueDrained || q.Len() != 0 {
		t.Fatalf("expected drained empty queue, state=%v len=%d", q.State(), q.Len())
	}
}

func TestQueue_PriorityRunsAfterInFlightBeforePending(t *testing.T) {
	var tr trace
	q := NewQueue()
	a, finishA := tr.deferred("A")
	q.Add(a, false)
	q.Add(tr.instant("B"), false)
	q.Begin()
	q.Tick()
	if q.Current() != a {
		t.Fatalf("A should be in flight")
	}

	q.AddPriority(false, tr.instant("P"))
	q.Tick()
	if len(tr.order) != 1 {
		t.Fatalf("priority must not preempt in-flight A: %v", tr.order)
	}

	finishA()
	for i := 0; i < 6; i++ {
		q.Tick()
	}
	want := []string{"A", "P", "B"}
	if len(tr.order) != len(want) {
		t.Fatalf("order: got %v want %v", tr.order, want)
	}
	for i := range want {
		if tr.order[i] != want[i] {
			t.Fatalf("order: got %v want %v", tr.order, want)
		}
	}
}

func TestQueue_PriorityBatchKeepsOrder(t *testing.T) {
	var tr trace
	q := NewQueue()
	q.Add(tr.instant("B"), false)
	q.AddPriority(true, tr.instant("P1"), tr.instant("P2"))
	q.Begin()
	for i := 0; i < 6; i++ {
		q.Tick()
	}
	if got := len(tr.order); got != 3 || tr.order[0] != "P1" || tr.order[1] != "P2" || tr.order[2] != "B" {
		t.Fatalf("order: %v", tr.order)
	}
}

func TestQueue_RepeatTagDoesNotChangeOrder(t *testing.T) {
	var tr trace
	q := NewQueue()
	a := tr.instant("A")
	b := tr.instant("B")
	q.Add(a, true)
	q.Add(b, false)
	if !a.Repeat || b.Repeat {
		t.Fatalf("repeat flags: a=%v b=%v", a.Repeat, b.Repeat)
	}
	q.Begin()
	for i := 0; i < 4; i++ {
		q.Tick()
	}
	if len(tr.order) != 2 || tr.order[0] != "A" {
		t.Fatalf("order: %v", tr.order)
	}
}

func TestQueue_ResetDiscardsWithoutCompleting(t *testing.T) {
	var tr trace
	q := NewQueue()
	a, finishA := tr.deferred("A")
	b := tr.instant("B")
	q.Add(a, false)
	q.Add(b, false)
	q.Begin()
	q.Tick()

	q.Reset()
	if q.Len() != 0 || q.State() != QueueIdle {
		t.Fatalf("after reset: len=%d state=%v", q.Len(), q.State())
	}

	// A late completion from the discarded command has no effect.
	finishA()
	if isClosed(a.Done()) || isClosed(b.Done()) {
		t.Fatalf("discarded commands must never complete")
	}
	if a.State() != StateDiscarded || b.State() != StateDiscarded {
		t.Fatalf("states: a=%v b=%v", a.State(), b.State())
	}

	// The queue accepts new work immediately.
	c := tr.instant("C")
	q.Add(c, false)
	q.Begin()
	q.Tick()
	if !isClosed(c.Done()) {
		t.Fatalf("new command should run after reset")
	}
	for _, name := range tr.order {
		if name == "B" {
			t.Fatalf("B must never run: %v", tr.order)
		}
	}
}

func TestCommand_SucceedsOnce(t *testing.T) {
	n := 0
	c := NewCallback(target.All(), func() { n++ }, func(c *Command) {
		c.Succeeded()
		c.Succeeded()
	})
	c.Begin()
	c.Begin()
	if n != 1 {
		t.Fatalf("begin hook ran %d times", n)
	}
	if !c.IsSucceeded() || !isClosed(c.Done()) {
		t.Fatalf("expected success")
	}
}

func TestQueue_WaitForOtherQueue(t *testing.T) {
	other := NewQueue()
	held, finish := (&trace{}).deferred("held")
	other.Add(held, false)
	other.Begin()
	other.Tick()

	q := NewQueue()
	w := NewCallback(target.All(), nil, func(c *Command) { c.WaitFor(other) })
	q.Add(w, false)
	q.Begin()
	q.Tick()
	q.Tick()
	if w.IsSucceeded() {
		t.Fatalf("must wait while other queue is busy")
	}

	finish()
	other.Tick()
	q.Tick()
	if !w.IsSucceeded() {
		t.Fatalf("should succeed once other queue drained")
	}
}
