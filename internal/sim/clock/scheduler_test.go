package clock

import "testing"

func TestTicks_RoundsUp(t *testing.T) {
	s := NewScheduler(20)
	cases := []struct {
		ms   float64
		want uint64
	}{
		{0, 0},
		{-5, 0},
		{1, 1},
		{50, 1},
		{51, 2},
		{1000, 20},
		{1500, 30},
	}
	for _, tc := range cases {
		if got := s.Ticks(tc.ms); got != tc.want {
			t.Fatalf("Ticks(%v): got %d want %d", tc.ms, got, tc.want)
		}
	}
}

func TestAdvance_Ordering(t *testing.T) {
	s := NewScheduler(10)
	var got []string
	s.AfterTicks(2, func() { got = append(got, "late") })
	s.AfterTicks(1, func() { got = append(got, "a") })
	s.AfterTicks(1, func() { got = append(got, "b") })

	s.Advance()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("tick 1: %v", got)
	}
	s.Advance()
	if len(got) != 3 || got[2] != "late" {
		t.Fatalf("tick 2: %v", got)
	}
	if s.Pending() != 0 || s.Now() != 2 {
		t.Fatalf("pending=%d now=%d", s.Pending(), s.Now())
	}
}

func TestAdvance_RescheduleFromCallback(t *testing.T) {
	s := NewScheduler(10)
	n := 0
	var tick func()
	tick = func() {
		n++
		s.AfterTicks(0, tick)
	}
	s.AfterTicks(1, tick)
	for i := 0; i < 5; i++ {
		s.Advance()
	}
	if n != 5 {
		t.Fatalf("self-rescheduling timer fired %d times, want 5", n)
	}
}

func TestCancel(t *testing.T) {
	s := NewScheduler(10)
	fired := false
	id := s.AfterTicks(1, func() { fired = true })
	if !s.Cancel(id) {
		t.Fatalf("cancel should report pending timer")
	}
	s.Advance()
	if fired {
		t.Fatalf("cancelled timer fired")
	}

	// A timer cancelled by an earlier callback in the same batch stays silent.
	var second TimerID
	s.AfterTicks(1, func() { s.Cancel(second) })
	second = s.AfterTicks(1, func() { fired = true })
	s.Advance()
	if fired {
		t.Fatalf("timer cancelled mid-batch fired")
	}
}

func TestReset_StopsBatch(t *testing.T) {
	s := NewScheduler(10)
	fired := false
	s.AfterTicks(1, func() { s.Reset() })
	s.AfterTicks(1, func() { fired = true })
	s.Advance()
	if fired {
		t.Fatalf("timer after reset fired")
	}
	if s.Now() != 0 || s.Pending() != 0 {
		t.Fatalf("now=%d pending=%d", s.Now(), s.Pending())
	}
}
