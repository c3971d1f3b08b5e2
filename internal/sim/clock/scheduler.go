package clock

import "sort"

// TimerID identifies a scheduled callback. Zero is never issued.
type TimerID uint64

type timer struct {
	id  TimerID
	due uint64
	fn  func()
}

// Scheduler runs callbacks after a number of game ticks. Durations are given
// in milliseconds and converted with the configured tick rate, so a run is
// reproducible regardless of wall-clock speed.
type Scheduler struct {
	hz     int
	now    uint64
	gen    uint64
	nextID TimerID
	timers []timer

	// cancelled collects timers cancelled while a due batch is firing.
	cancelled map[TimerID]bool
}

func NewScheduler(tickRateHz int) *Scheduler {
	if tickRateHz <= 0 {
		tickRateHz = 20
	}
	return &Scheduler{hz: tickRateHz}
}

func (s *Scheduler) Now() uint64     { return s.now }
func (s *Scheduler) TickRateHz() int { return s.hz }
func (s *Scheduler) Pending() int    { return len(s.timers) }

// Ticks converts a duration to ticks, rounding up. Any positive duration takes
// at least one tick.
func (s *Scheduler) Ticks(ms float64) uint64 {
	if ms <= 0 {
		return 0
	}
	n := uint64(ms * float64(s.hz) / 1000)
	if float64(n)*1000 < ms*float64(s.hz) {
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}

// After schedules fn to run ms milliseconds from now. A non-positive duration
// fires on the next Advance.
func (s *Scheduler) After(ms float64, fn func()) TimerID {
	return s.AfterTicks(s.Ticks(ms), fn)
}

func (s *Scheduler) AfterTicks(ticks uint64, fn func()) TimerID {
	if ticks == 0 {
		ticks = 1
	}
	s.nextID++
	s.timers = append(s.timers, timer{id: s.nextID, due: s.now + ticks, fn: fn})
	return s.nextID
}

// Cancel removes a pending timer. It reports whether the timer was pending.
func (s *Scheduler) Cancel(id TimerID) bool {
	if s.cancelled != nil {
		s.cancelled[id] = true
	}
	for i, t := range s.timers {
		if t.id == id {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Advance moves the clock one tick and runs every timer that is due, ordered
// by due tick and then by scheduling order. Timers scheduled by callbacks
// fire on a later Advance; a Reset from inside a callback stops the batch.
func (s *Scheduler) Advance() {
	s.now++
	var due []timer
	keep := s.timers[:0]
	for _, t := range s.timers {
		if t.due <= s.now {
			due = append(due, t)
		} else {
			keep = append(keep, t)
		}
	}
	s.timers = keep
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].id < due[j].id
	})
	gen := s.gen
	s.cancelled = map[TimerID]bool{}
	defer func() { s.cancelled = nil }()
	for _, t := range due {
		if s.gen != gen {
			return
		}
		if t.fn != nil && !s.cancelled[t.id] {
			t.fn()
		}
	}
}

// Reset drops all timers and rewinds the clock.
func (s *Scheduler) Reset() {
	s.timers = nil
	s.now = 0
	s.gen++
}
