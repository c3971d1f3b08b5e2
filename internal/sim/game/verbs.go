package game

import (
	"craftlevel.ai/internal/sim/command"
	"craftlevel.ai/internal/sim/events"
	"craftlevel.ai/internal/sim/ledger"
	"craftlevel.ai/internal/sim/level"
)

// explode blasts the eight cells around e: blocks there are destroyed and
// occupants take blast damage ahead of their queued work. e itself is
// destroyed right after the current command.
func (c *Controller) explode(cmd *command.Command, e *Entity) {
	center := e.pos
	c.record(ledger.VerbExplode, e.typ, cmd.Repeat)
	c.view.PlaySound("explode")
	c.view.PlayAnimation(Animation{Name: "explosionCloud", Pos: center}, nil)

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			p := center.Add(level.Pos{X: dx, Y: dy})
			c.destroyBlockAt(p)
			victim := c.ents.At(p)
			if victim == nil || victim == e {
				continue
			}
			blow := command.NewCallback(victim.spec(), nil, func(sc *command.Command) { victim.BlowUp(sc, center) })
			victim.addPriority(cmd.Repeat, blow)
		}
	}

	self := command.NewCallback(e.spec(), nil, func(sc *command.Command) { c.execute(sc, VerbDestroy, Args{}) })
	e.addPriority(cmd.Repeat, self)
	cmd.Succeeded()
	c.view.RefreshLighting()
}

// destroyBlockAt removes a destroyable action block without anyone touching
// it and leaves its drop on the cell.
func (c *Controller) destroyBlockAt(p level.Pos) {
	if !c.model.InBounds(p) {
		return
	}
	drop, ok := c.model.DestroyBlock(p)
	if !ok {
		return
	}
	c.view.PlayAnimation(Animation{Name: "destroyBlock", Pos: p}, nil)
	c.model.DropItem(p, drop)
}

func (c *Controller) wait(cmd *command.Command, typ string, ms float64) {
	c.record(ledger.VerbWait, typ, cmd.Repeat)
	c.delayBy(ms, cmd.Succeeded)
}

// destroy kills e through the regular damage path.
func (c *Controller) destroy(cmd *command.Command, e *Entity) {
	c.record(ledger.VerbDestroy, e.typ, cmd.Repeat)
	e.health = 1
	e.TakeDamage(cmd, 1)
}

// playerAttack is an attack by the player: it queues a block break in front.
func (c *Controller) playerAttack(cmd *command.Command, e *Entity) {
	e.AddCommand(c.newCommand(e.spec(), VerbDestroyBlock, Args{}), cmd.Repeat)
	cmd.Succeeded()
}

// spawn adds an entity of typ on a free cell. "middle" takes the free cell
// closest to the centre of the level, anything else a seeded random one.
func (c *Controller) spawn(typ, placement string) *Entity {
	def, ok := LookupEntityDef(typ)
	if !ok || !IsSpawnable(typ) {
		c.debugf("spawn: unknown type %q", typ)
		return nil
	}
	free := c.freeCells(def)
	if len(free) == 0 {
		c.debugf("spawn: no room for %s", typ)
		return nil
	}
	var at level.Pos
	if placement == "middle" {
		mid := level.Pos{X: c.model.Width / 2, Y: c.model.Height / 2}
		best := -1
		for _, p := range free {
			d := p.Sub(mid)
			if dist := d.X*d.X + d.Y*d.Y; best < 0 || dist < best {
				at, best = p, dist
			}
		}
	} else {
		at = free[c.rand(len(free))]
	}
	facing := level.Facing(c.rand(4))
	return c.announce(c.addEntity(def, at, facing))
}

// spawnAt adds an entity of typ at p if the cell is in bounds, walkable for
// that type and unoccupied.
func (c *Controller) spawnAt(typ string, p level.Pos, facing level.Facing) *Entity {
	def, ok := LookupEntityDef(typ)
	if !ok || !IsSpawnable(typ) {
		c.debugf("spawnAt: unknown type %q", typ)
		return nil
	}
	if !c.model.InBounds(p) || !c.model.IsWalkable(p, def.Aquatic) || c.ents.At(p) != nil {
		c.debugf("spawnAt: %s blocked at %s", typ, p)
		return nil
	}
	if !facing.Valid() {
		facing = level.South
	}
	return c.announce(c.addEntity(def, p, facing))
}

func (c *Controller) announce(e *Entity) *Entity {
	c.emit(events.Event{Type: events.WhenSpawned, TargetType: e.typ, TargetID: e.id})
	return e
}

func (c *Controller) freeCells(def EntityDef) []level.Pos {
	var out []level.Pos
	for y := 0; y < c.model.Height; y++ {
		for x := 0; x < c.model.Width; x++ {
			p := level.Pos{X: x, Y: y}
			if c.model.IsWalkable(p, def.Aquatic) && c.ents.At(p) == nil {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Controller) addScore(n int) {
	if !c.def.UseScore {
		return
	}
	c.score += n
	if c.cfg.OnScore != nil {
		c.cfg.OnScore(c.score)
	}
}
