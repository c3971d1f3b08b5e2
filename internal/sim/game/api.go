package game

import (
	"fmt"
	"strings"

	"craftlevel.ai/internal/sim/events"
	"craftlevel.ai/internal/sim/level"
	"craftlevel.ai/internal/sim/target"
)

// API is what a program sees. Every verb call only queues a command: one
// addressed to a live entity lands on that entity's queue, anything else on
// the dispatch queue. Calls inside Repeat are charged to the repeat ledger.
type API struct {
	c *Controller
}

func (a *API) add(t target.Spec, v Verb, args Args) {
	a.c.addCommand(a.c.newCommand(t, v, args))
}

// player addresses verbs only a single actor can perform. A concrete entity
// keeps its target; everyone, a type or nothing means the player.
func player(t target.Spec) target.Spec {
	if t.Kind == target.EntityID {
		return t
	}
	return target.Entity(target.PlayerID)
}

func (a *API) MoveForward(t target.Spec)  { a.add(t, VerbMoveForward, Args{}) }
func (a *API) MoveBackward(t target.Spec) { a.add(t, VerbMoveBackward, Args{}) }
func (a *API) TurnRandom(t target.Spec)   { a.add(t, VerbTurnRandom, Args{}) }
func (a *API) Flash(t target.Spec)        { a.add(t, VerbFlash, Args{}) }
func (a *API) Explode(t target.Spec)      { a.add(t, VerbExplode, Args{}) }
func (a *API) Destroy(t target.Spec)      { a.add(t, VerbDestroy, Args{}) }
func (a *API) Attack(t target.Spec)       { a.add(t, VerbAttack, Args{}) }

func (a *API) MoveDirection(t target.Spec, dir level.Facing) {
	a.add(t, VerbMoveDirection, Args{Dir: dir})
}

// Turn rotates by quarter turns; positive is clockwise.
func (a *API) Turn(t target.Spec, quarters int) { a.add(t, VerbTurn, Args{Quarters: quarters}) }

// MoveAway moves t one step away from ref. An unspecified ref is the player.
func (a *API) MoveAway(t, ref target.Spec) { a.add(t, VerbMoveAway, Args{Ref: ref}) }

// MoveToward moves t one step toward ref. An unspecified ref is the player.
func (a *API) MoveToward(t, ref target.Spec) { a.add(t, VerbMoveToward, Args{Ref: ref}) }

// Wait holds t's queue for the given number of seconds. Without a target it
// holds the dispatch queue.
func (a *API) Wait(t target.Spec, seconds float64) {
	a.add(t, VerbWait, Args{Ms: seconds * 1000})
}

func (a *API) Drop(t target.Spec, item string) { a.add(t, VerbDrop, Args{Item: item}) }

func (a *API) Spawn(typ, placement string) {
	a.add(target.All(), VerbSpawn, Args{Item: typ, Placement: placement})
}

func (a *API) SpawnAt(typ string, p level.Pos, facing level.Facing) {
	a.add(target.All(), VerbSpawnAt, Args{Item: typ, Pos: p, Dir: facing})
}

func (a *API) PlaySound(sound string) { a.add(target.All(), VerbPlaySound, Args{Item: sound}) }
func (a *API) AddScore(n int)         { a.add(target.All(), VerbAddScore, Args{Amount: n}) }
func (a *API) StartDay()              { a.add(target.All(), VerbStartDay, Args{}) }
func (a *API) StartNight()            { a.add(target.All(), VerbStartNight, Args{}) }

func (a *API) Use(t target.Spec)          { a.add(player(t), VerbUse, Args{}) }
func (a *API) DestroyBlock(t target.Spec) { a.add(player(t), VerbDestroyBlock, Args{}) }

func (a *API) PlaceBlock(t target.Spec, typ string) {
	a.add(player(t), VerbPlaceBlock, Args{Item: typ})
}

func (a *API) PlaceInFront(t target.Spec, typ string) {
	a.add(player(t), VerbPlaceInFront, Args{Item: typ})
}

// SetDayNightCycle starts alternating day and night every ms, beginning with
// startTime ("day" or "night"). It takes effect immediately.
func (a *API) SetDayNightCycle(ms int, startTime string) error {
	var toDay bool
	switch strings.ToLower(startTime) {
	case "day":
		toDay = true
	case "night":
	default:
		return fmt.Errorf("day/night cycle: bad start time %q", startTime)
	}
	a.c.setDayNightCycle(float64(ms), toDay)
	return nil
}

// Repeat runs fn n times with repeat mode on. Commands queued inside are
// tagged as repeat commands.
func (a *API) Repeat(n int, fn func(i int) error) error {
	prev := a.c.repeat
	a.c.repeat = true
	defer func() { a.c.repeat = prev }()
	for i := 0; i < n; i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}

// OnEvent calls fn for events of type typ whose subject matches t: a type
// name filters on the entity category, an entity on its id.
func (a *API) OnEvent(typ events.Type, t target.Spec, fn func(events.Event)) error {
	if !events.IsKnown(typ) {
		return fmt.Errorf("unknown event %q", typ)
	}
	if fn == nil {
		return nil
	}
	a.c.bus.Subscribe(func(ev events.Event) {
		if ev.Type != typ {
			return
		}
		switch t.Kind {
		case target.TypeName:
			if ev.TargetType != t.Name {
				return
			}
		case target.EntityID:
			if ev.TargetID != t.Name {
				return
			}
		}
		fn(ev)
	})
	return nil
}

// OnGlobalEvent calls fn for every event of type typ.
func (a *API) OnGlobalEvent(typ events.Type, fn func(events.Event)) error {
	return a.OnEvent(typ, target.All(), fn)
}

// Fail hands a program error raised outside Exec, such as one from an event
// handler, to the run's error callback.
func (a *API) Fail(err error) { a.c.fail(err) }

func (a *API) CommandCount(verb, typ string, repeat bool) int {
	return a.c.ledger.Count(verb, typ, repeat)
}

func (a *API) Score() int { return a.c.score }
