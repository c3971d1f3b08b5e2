package game

import (
	"craftlevel.ai/internal/sim/command"
	"craftlevel.ai/internal/sim/ledger"
	"craftlevel.ai/internal/sim/level"
	"craftlevel.ai/internal/sim/target"
)

// Verb is the closed set of commands a program can issue.
type Verb int

const (
	VerbMoveForward Verb = iota
	VerbMoveBackward
	VerbMoveDirection
	VerbTurn
	VerbTurnRandom
	VerbMoveAway
	VerbMoveToward
	VerbFlash
	VerbExplode
	VerbWait
	VerbDestroy
	VerbDrop
	VerbAttack
	VerbUse
	VerbDestroyBlock
	VerbPlaceBlock
	VerbPlaceInFront
	VerbSpawn
	VerbSpawnAt
	VerbPlaySound
	VerbAddScore
	VerbStartDay
	VerbStartNight
)

var verbNames = [...]string{
	VerbMoveForward:   "moveForward",
	VerbMoveBackward:  "moveBackward",
	VerbMoveDirection: "moveDirection",
	VerbTurn:          "turn",
	VerbTurnRandom:    "turnRandom",
	VerbMoveAway:      "moveAway",
	VerbMoveToward:    "moveToward",
	VerbFlash:         "flash",
	VerbExplode:       "explode",
	VerbWait:          "wait",
	VerbDestroy:       "destroy",
	VerbDrop:          "drop",
	VerbAttack:        "attack",
	VerbUse:           "use",
	VerbDestroyBlock:  "destroyBlock",
	VerbPlaceBlock:    "placeBlock",
	VerbPlaceInFront:  "placeInFront",
	VerbSpawn:         "spawn",
	VerbSpawnAt:       "spawnAt",
	VerbPlaySound:     "playSound",
	VerbAddScore:      "addScore",
	VerbStartDay:      "startDay",
	VerbStartNight:    "startNight",
}

func (v Verb) String() string {
	if v < 0 || int(v) >= len(verbNames) {
		return "unknown"
	}
	return verbNames[v]
}

// global verbs act on the world rather than on entities and never fan out.
func (v Verb) global() bool {
	switch v {
	case VerbSpawn, VerbSpawnAt, VerbPlaySound, VerbAddScore, VerbStartDay, VerbStartNight:
		return true
	}
	return false
}

func (v Verb) relational() bool { return v == VerbMoveAway || v == VerbMoveToward }

// Args carries the verb-specific arguments of a command. Unused fields are
// ignored.
type Args struct {
	Dir      level.Facing
	Quarters int
	// Ref is the reference side of moveAway/moveToward.
	Ref target.Spec
	// Item is the item, block, entity type or sound the verb works with.
	Item      string
	Ms        float64
	Amount    int
	Pos       level.Pos
	Placement string
}

// newCommand wraps verb v as a completion token addressed to t.
func (c *Controller) newCommand(t target.Spec, v Verb, a Args) *command.Command {
	return command.NewCallback(t, c.beginHook(t, v), func(cmd *command.Command) { c.execute(cmd, v, a) })
}

func (c *Controller) beginHook(t target.Spec, v Verb) func() {
	if c.cfg.OnCommand == nil {
		return nil
	}
	name := v.String()
	return func() { c.cfg.OnCommand(name, t) }
}

// execute runs verb v for cmd. Broadcast targets fan out into one token per
// resolved entity, enqueued on that entity with the outer repeat flag, and
// the outer token succeeds at once. A single entity target performs the verb
// and cmd resolves when the behavior does.
func (c *Controller) execute(cmd *command.Command, v Verb, a Args) {
	if v.global() {
		c.performGlobal(cmd, v, a)
		return
	}
	if v == VerbWait && cmd.Target.Kind == target.Unspecified {
		typ := ""
		if c.player != nil {
			typ = c.player.typ
		}
		c.wait(cmd, typ, a.Ms)
		return
	}
	if cmd.Target.Kind != target.EntityID {
		c.fanOut(cmd, v, a)
		return
	}
	e, ok := c.ents.Get(cmd.Target.Name)
	if !ok || !e.alive() {
		c.debugf("%s: no entity %q", v, cmd.Target.Name)
		cmd.Succeeded()
		return
	}
	c.perform(cmd, v, a, e)
}

func (c *Controller) fanOut(cmd *command.Command, v Verb, a Args) {
	if v.relational() && cmd.Target.Kind == target.TypeName {
		for _, p := range target.Pairs[*Entity](c.ents, cmd.Target, a.Ref) {
			sub := a
			sub.Ref = p.Ref.spec()
			c.enqueueOn(p.Actor, cmd.Repeat, v, sub)
		}
		cmd.Succeeded()
		return
	}
	actors := target.Resolve[*Entity](c.ents, cmd.Target)
	if len(actors) == 0 {
		c.debugf("%s: no entities for %s", v, cmd.Target)
	}
	for _, e := range actors {
		c.enqueueOn(e, cmd.Repeat, v, a)
	}
	cmd.Succeeded()
}

func (c *Controller) enqueueOn(e *Entity, repeat bool, v Verb, a Args) {
	sub := command.NewCallback(e.spec(), nil, func(sc *command.Command) { c.execute(sc, v, a) })
	e.AddCommand(sub, repeat)
}

// perform is the concrete path: e is the single live entity cmd addresses.
// Every verb that reaches an entity here is charged to the ledger once.
func (c *Controller) perform(cmd *command.Command, v Verb, a Args, e *Entity) {
	switch v {
	case VerbMoveForward:
		c.record(ledger.VerbMoveForward, e.typ, cmd.Repeat)
		e.MoveForward(cmd)
	case VerbMoveBackward:
		e.MoveBackward(cmd)
	case VerbMoveDirection:
		e.MoveDirection(cmd, a.Dir)
	case VerbTurn:
		c.record(ledger.VerbTurn, e.typ, cmd.Repeat)
		e.Turn(cmd, a.Quarters)
	case VerbTurnRandom:
		c.record(ledger.VerbTurnRandom, e.typ, cmd.Repeat)
		e.TurnRandom(cmd)
	case VerbMoveAway, VerbMoveToward:
		c.moveRelative(cmd, v, a, e)
	case VerbFlash:
		c.record(ledger.VerbFlash, e.typ, cmd.Repeat)
		c.animate(e, "flash", cmd.Succeeded)
	case VerbExplode:
		c.explode(cmd, e)
	case VerbWait:
		c.wait(cmd, e.typ, a.Ms)
	case VerbDestroy:
		c.destroy(cmd, e)
	case VerbDrop:
		c.record(ledger.VerbDrop, e.typ, cmd.Repeat)
		e.Drop(cmd, a.Item)
	case VerbAttack:
		c.record(ledger.VerbAttack, e.typ, cmd.Repeat)
		if e.isPlayer() {
			c.playerAttack(cmd, e)
			return
		}
		e.Attack(cmd)
	case VerbUse:
		c.use(cmd, e)
	case VerbDestroyBlock:
		c.destroyBlock(cmd, e)
	case VerbPlaceBlock:
		c.placeBlock(cmd, e, a.Item)
	case VerbPlaceInFront:
		c.placeInFront(cmd, e, a.Item)
	default:
		cmd.Succeeded()
	}
}

// moveRelative moves e away from or toward its reference. Self references
// and missing references resolve without moving.
func (c *Controller) moveRelative(cmd *command.Command, v Verb, a Args, e *Entity) {
	pairs := target.Pairs[*Entity](c.ents, e.spec(), a.Ref)
	if len(pairs) == 0 {
		c.debugf("%s: %s has no reference %s", v, e.id, a.Ref.Or(target.Entity(target.PlayerID)))
		cmd.Succeeded()
		return
	}
	ref := pairs[0].Ref
	if v == VerbMoveAway {
		c.record(ledger.VerbMoveAway, e.typ, cmd.Repeat)
		e.MoveAway(cmd, ref)
		return
	}
	c.record(ledger.VerbMoveToward, e.typ, cmd.Repeat)
	e.MoveToward(cmd, ref)
}

func (c *Controller) performGlobal(cmd *command.Command, v Verb, a Args) {
	switch v {
	case VerbSpawn:
		c.record(ledger.VerbSpawn, a.Item, cmd.Repeat)
		c.spawn(a.Item, a.Placement)
	case VerbSpawnAt:
		c.spawnAt(a.Item, a.Pos, a.Dir)
	case VerbPlaySound:
		c.record(ledger.VerbPlaySound, "", cmd.Repeat)
		c.view.PlaySound(a.Item)
	case VerbAddScore:
		c.record(ledger.VerbAddScore, "", cmd.Repeat)
		c.addScore(a.Amount)
	case VerbStartDay:
		c.startDay()
	case VerbStartNight:
		c.startNight()
	}
	cmd.Succeeded()
}
