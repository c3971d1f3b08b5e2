package game

import (
	"craftlevel.ai/internal/sim/command"
	"craftlevel.ai/internal/sim/events"
	"craftlevel.ai/internal/sim/level"
	"craftlevel.ai/internal/sim/target"
)

// Entity is a live creature on the grid. Every entity owns a serial command
// queue; its verb behaviors resolve the command they are handed, possibly
// ticks later once an animation finishes.
type Entity struct {
	id  string
	typ string
	def EntityDef

	pos    level.Pos
	facing level.Facing
	health int

	queue *command.Queue

	burning     bool
	burnPending bool
	dead        bool

	c *Controller
}

func newEntity(c *Controller, id string, def EntityDef, pos level.Pos, facing level.Facing) *Entity {
	return &Entity{
		id:     id,
		typ:    def.Type,
		def:    def,
		pos:    pos,
		facing: facing,
		health: def.Health,
		queue:  command.NewQueue(),
		c:      c,
	}
}

func (e *Entity) ID() string            { return e.id }
func (e *Entity) Type() string          { return e.typ }
func (e *Entity) Position() (int, int)  { return e.pos.X, e.pos.Y }
func (e *Entity) Pos() level.Pos        { return e.pos }
func (e *Entity) Facing() level.Facing  { return e.facing }
func (e *Entity) Health() int           { return e.health }
func (e *Entity) Burning() bool         { return e.burning }
func (e *Entity) Queue() *command.Queue { return e.queue }
func (e *Entity) Def() EntityDef        { return e.def }

func (e *Entity) spec() target.Spec { return target.Entity(e.id) }
func (e *Entity) front() level.Pos  { return e.pos.Add(e.facing.Delta()) }
func (e *Entity) isPlayer() bool    { return e.id == target.PlayerID }
func (e *Entity) alive() bool       { return !e.dead }

// AddCommand appends cmd to the entity's queue and keeps the queue draining.
// Commands for a removed entity are dropped.
func (e *Entity) AddCommand(cmd *command.Command, repeat bool) {
	if e.dead {
		return
	}
	e.queue.Add(cmd, repeat)
	e.queue.Begin()
}

// addPriority runs cmds right after whatever the entity is doing now.
func (e *Entity) addPriority(repeat bool, cmds ...*command.Command) {
	if e.dead {
		return
	}
	e.queue.AddPriority(repeat, cmds...)
	e.queue.Begin()
}

// step moves one cell in dir. On failure it returns the entity in the way,
// if any.
func (e *Entity) step(dir level.Facing) (bool, *Entity) {
	dest := e.pos.Add(dir.Delta())
	if other := e.c.ents.At(dest); other != nil {
		return false, other
	}
	if !e.c.model.IsWalkable(dest, e.def.Aquatic) {
		return false, nil
	}
	e.pos = dest
	return true, nil
}

// finishMove resolves a movement command. Player moves add a delay that
// shrinks while the player queue is long.
func (e *Entity) finishMove(cmd *command.Command) {
	if e.isPlayer() {
		e.c.delayPlayerMoveBy(200, 400, cmd.Succeeded)
		return
	}
	cmd.Succeeded()
}

// touch reports a blocked move to both parties.
func (e *Entity) touch(other *Entity) {
	e.c.emit(events.Event{Type: events.WhenTouched, TargetType: other.typ, TargetID: other.id, SenderID: e.id})
	if other.alive() && e.alive() {
		e.c.emit(events.Event{Type: events.WhenTouched, TargetType: e.typ, TargetID: e.id, SenderID: other.id})
	}
}

func (e *Entity) move(cmd *command.Command, dir level.Facing) {
	ok, blocker := e.step(dir)
	if ok {
		e.c.animate(e, "walk", func() { e.finishMove(cmd) })
		return
	}
	e.bump(cmd, blocker)
}

func (e *Entity) bump(cmd *command.Command, blocker *Entity) {
	if blocker != nil {
		e.touch(blocker)
	}
	e.c.animate(e, "bump", cmd.Succeeded)
}

func (e *Entity) MoveForward(cmd *command.Command) { e.move(cmd, e.facing) }

// MoveBackward steps against the facing without turning around.
func (e *Entity) MoveBackward(cmd *command.Command) { e.move(cmd, e.facing.Opposite()) }

func (e *Entity) MoveDirection(cmd *command.Command, dir level.Facing) {
	e.facing = dir
	e.move(cmd, dir)
}

// Turn rotates by quarter turns, positive clockwise.
func (e *Entity) Turn(cmd *command.Command, quarters int) {
	e.facing = e.facing.Turn(quarters)
	e.c.animate(e, "turn", cmd.Succeeded)
}

func (e *Entity) TurnRandom(cmd *command.Command) {
	q := 1
	if e.c.rand(2) == 0 {
		q = -1
	}
	e.Turn(cmd, q)
}

func (e *Entity) MoveAway(cmd *command.Command, from *Entity) {
	primary, secondary, ok := level.FacingToward(from.pos, e.pos)
	e.relativeMove(cmd, primary, secondary, ok)
}

func (e *Entity) MoveToward(cmd *command.Command, to *Entity) {
	primary, secondary, ok := level.FacingToward(e.pos, to.pos)
	e.relativeMove(cmd, primary, secondary, ok)
}

// relativeMove tries the primary axis first and falls back to the other one.
func (e *Entity) relativeMove(cmd *command.Command, primary, secondary level.Facing, ok bool) {
	if !ok {
		e.bump(cmd, nil)
		return
	}
	e.facing = primary
	moved, blocker := e.step(primary)
	if !moved && secondary != primary {
		if moved, _ = e.step(secondary); moved {
			e.facing = secondary
		}
	}
	if moved {
		e.c.animate(e, "walk", func() { e.finishMove(cmd) })
		return
	}
	e.bump(cmd, blocker)
}

// Attack hits the entity in front. Hostile entities with nothing in front
// turn to an adjacent player first.
func (e *Entity) Attack(cmd *command.Command) {
	victim := e.c.ents.At(e.front())
	if victim == nil && e.def.Hostile && e.c.player != nil {
		for d := level.North; d <= level.West; d++ {
			if e.pos.Add(d.Delta()) == e.c.player.pos {
				e.facing = d
				victim = e.c.player
				break
			}
		}
	}
	dmg := e.def.Damage
	if dmg <= 0 {
		dmg = 1
	}
	e.c.animate(e, "attack", func() {
		if victim != nil && victim.alive() {
			v := victim
			hit := command.NewCallback(v.spec(), nil, func(sc *command.Command) { v.TakeDamage(sc, dmg) })
			v.addPriority(cmd.Repeat, hit)
		}
		cmd.Succeeded()
	})
}

func (e *Entity) Drop(cmd *command.Command, item string) {
	e.c.animate(e, "drop", func() {
		if item != "" {
			e.c.model.DropItem(e.pos, item)
		}
		cmd.Succeeded()
	})
}

// Use is the reaction to being used by user (usually the player).
func (e *Entity) Use(cmd *command.Command, user *Entity) {
	ev := events.Event{Type: events.WhenUsed, TargetType: e.typ, TargetID: e.id}
	if user != nil {
		ev.SenderID = user.id
	}
	e.c.emit(ev)
	cmd.Succeeded()
}

// BlowUp applies blast damage from an explosion at center; survivors are
// pushed away from it.
func (e *Entity) BlowUp(cmd *command.Command, center level.Pos) {
	e.health -= e.c.tune.BlastDamage
	if e.health <= 0 {
		e.die(cmd)
		return
	}
	dir, _, ok := level.FacingToward(center, e.pos)
	if !ok {
		dir = e.facing.Opposite()
	}
	e.PushBack(cmd, dir)
}

func (e *Entity) TakeDamage(cmd *command.Command, amount int) {
	e.health -= amount
	if e.health <= 0 {
		e.die(cmd)
		return
	}
	e.c.animate(e, "hurt", cmd.Succeeded)
}

// PushBack knocks the entity one cell in dir without changing its facing.
func (e *Entity) PushBack(cmd *command.Command, dir level.Facing) {
	e.step(dir)
	e.c.animate(e, "pushBack", cmd.Succeeded)
}

func (e *Entity) die(cmd *command.Command) {
	e.c.animate(e, "death", func() {
		if e.def.Drops != "" {
			e.c.model.DropItem(e.pos, e.def.Drops)
		}
		cmd.Succeeded()
		e.c.removeEntity(e)
	})
}
