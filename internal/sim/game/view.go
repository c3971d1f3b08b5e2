package game

import (
	"craftlevel.ai/internal/sim/clock"
	"craftlevel.ai/internal/sim/level"
	"craftlevel.ai/internal/sim/tuning"
)

// Animation is a request to animate an entity or a cell. EntityID is empty
// for effects that belong to no entity.
type Animation struct {
	Name     string       `json:"name"`
	EntityID string       `json:"entity_id,omitempty"`
	Pos      level.Pos    `json:"pos"`
	Facing   level.Facing `json:"facing"`
}

// View is the presentation side of the game. done, when non-nil, must be
// called exactly once after the animation finishes.
type View interface {
	PlayAnimation(anim Animation, done func())
	PlaySound(sound string)
	RefreshLighting()
}

// Effect is one presentation call, as seen by a TimedView trace.
type Effect struct {
	Kind string     `json:"kind"`
	Anim *Animation `json:"anim,omitempty"`
	Name string     `json:"name,omitempty"`
	Tick uint64     `json:"tick"`
}

// TimedView is a headless View: each animation completes after its tuned
// duration in game ticks.
type TimedView struct {
	sched *clock.Scheduler
	tune  tuning.Tuning

	// Trace, when set, observes every presentation call.
	Trace func(Effect)
}

func NewTimedView(sched *clock.Scheduler, tune tuning.Tuning) *TimedView {
	return &TimedView{sched: sched, tune: tune}
}

func (v *TimedView) PlayAnimation(anim Animation, done func()) {
	if v.Trace != nil {
		v.Trace(Effect{Kind: "animation", Anim: &anim, Tick: v.sched.Now()})
	}
	if done == nil {
		return
	}
	v.sched.After(v.tune.AnimationMs(anim.Name)*v.tune.Dilation(), done)
}

func (v *TimedView) PlaySound(sound string) {
	if v.Trace != nil {
		v.Trace(Effect{Kind: "sound", Name: sound, Tick: v.sched.Now()})
	}
}

func (v *TimedView) RefreshLighting() {
	if v.Trace != nil {
		v.Trace(Effect{Kind: "lighting", Tick: v.sched.Now()})
	}
}
