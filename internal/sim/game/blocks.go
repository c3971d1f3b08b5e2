package game

import (
	"craftlevel.ai/internal/sim/command"
	"craftlevel.ai/internal/sim/level"
)

// use interacts with whatever is in front of e: an entity is punched and
// reacts ahead of its own queue, a door toggles, a rail shows the track, and
// anything else gets the selected item placed on it.
func (c *Controller) use(cmd *command.Command, e *Entity) {
	front := e.front()
	fe := c.ents.At(front)
	blk := c.model.BlockAt(front)

	switch {
	case fe != nil && fe != c.agent:
		c.animate(e, "punch", func() {
			var batch []*command.Command
			if !fe.def.Friendly {
				dir := e.facing
				batch = append(batch, command.NewCallback(fe.spec(), nil, func(sc *command.Command) { fe.PushBack(sc, dir) }))
			}
			batch = append(batch, command.NewCallback(fe.spec(), nil, func(sc *command.Command) { fe.Use(sc, e) }))
			fe.addPriority(cmd.Repeat, batch...)
			if c.def.DirectControl {
				c.delayPlayerMoveBy(0, 0, cmd.Succeeded)
				return
			}
			cmd.WaitFor(fe.queue)
		})
	case blk.Door:
		c.animate(e, "punch", func() {
			c.view.PlaySound("doorOpen")
			c.animateAt(e, "door", front, func() {
				c.model.ToggleDoor(front)
				cmd.Succeeded()
			})
		})
	case blk.Rail:
		c.animateAt(e, "track", front, nil)
		cmd.Succeeded()
	default:
		c.placeInFront(cmd, e, c.def.SelectedItem)
	}
}

// destroyBlock breaks the block in front of e and leaves its drop there.
// Indestructible blocks resolve at once; empty air gets a punch.
func (c *Controller) destroyBlock(cmd *command.Command, e *Entity) {
	front := e.front()
	blk := c.model.BlockAt(front)
	switch {
	case blk.IsEmpty():
		c.animateAt(e, "punchAir", front, func() { c.delayPlayerMoveBy(0, 0, cmd.Succeeded) })
	case blk.Destroyable:
		c.animateAt(e, "destroyBlock", front, func() {
			if drop, ok := c.model.DestroyBlock(front); ok {
				c.model.DropItem(front, drop)
			}
			c.view.RefreshLighting()
			cmd.Succeeded()
		})
	default:
		c.debugf("destroyBlock: %s at %s is not destroyable", blk.Type, front)
		cmd.Succeeded()
	}
}

// placeBlock puts typ on the cell e stands on. Walkable blocks go on the
// action plane, everything else replaces the ground underneath. Wheat only
// grows on wet farmland.
func (c *Controller) placeBlock(cmd *command.Command, e *Entity, typ string) {
	p := e.pos
	cur := c.model.BlockAt(p)
	if typ == "" || !(cur.IsEmpty() || cur.Walkable) {
		cmd.Succeeded()
		return
	}
	if typ == "cropWheat" && c.model.GroundAt(p).Type != "farmlandWet" {
		c.animate(e, "jumpUp", func() { c.delayBy(800, cmd.Succeeded) })
		return
	}
	c.animate(e, "placeBlock", func() {
		switch {
		case IsSpawnable(typ):
			c.spawnAt(typ, e.front(), e.facing)
		case level.NewBlock(typ).Walkable:
			c.model.Action.Set(p, level.NewBlock(typ))
		default:
			c.model.Action.Set(p, level.Block{})
			c.model.Ground.Set(p, level.NewBlock(typ))
		}
		c.view.RefreshLighting()
		c.delayPlayerMoveBy(200, 400, cmd.Succeeded)
	})
}

// placeInFront puts typ on the cell in front of e, filling liquids on the
// ground plane. Entity names spawn that entity instead.
func (c *Controller) placeInFront(cmd *command.Command, e *Entity, typ string) {
	front := e.front()
	if !c.model.CanPlace(front, typ) || c.ents.At(front) != nil {
		c.animate(e, "punchAir", cmd.Succeeded)
		return
	}
	fizz := c.model.PlaneFor(front).At(front).Type == "lava"
	c.animateAt(e, "placeBlock", front, func() {
		if IsSpawnable(typ) {
			c.spawnAt(typ, front, e.facing)
		} else {
			c.model.PlaceBlock(front, typ)
		}
		c.view.RefreshLighting()
		if fizz {
			c.view.PlaySound("fizz")
		}
		c.delayPlayerMoveBy(200, 400, cmd.Succeeded)
	})
}
