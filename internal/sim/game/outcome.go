package game

import (
	"craftlevel.ai/internal/sim/command"
	"craftlevel.ai/internal/sim/level"
	"craftlevel.ai/internal/sim/levels"
)

// checkSolution decides whether the attempt is over. Event levels are checked
// every tick; procedural levels only once the program's work has drained,
// and then an unsolved level counts as failed.
func (c *Controller) checkSolution() {
	if !c.running || c.ending || c.result != nil {
		return
	}
	if !c.def.DirectControl && !c.settled() {
		return
	}
	switch {
	case c.isSolved():
		c.endLevel(true, ReasonSolved)
	case c.isFailed() || !c.def.DirectControl:
		c.endLevel(false, ReasonFailed)
	}
}

// settled reports whether the program has nothing left to do: the player
// queue ran dry, or without a player every queue is empty.
func (c *Controller) settled() bool {
	if !c.dispatch.Empty() {
		return false
	}
	if c.player != nil {
		return c.player.queue.State() == command.QueueDrained
	}
	for _, e := range c.ents.All() {
		if !e.queue.Empty() {
			return false
		}
	}
	return true
}

func (c *Controller) isSolved() bool {
	if len(c.def.Solved) == 0 {
		return false
	}
	for _, cond := range c.def.Solved {
		if !c.holds(cond) {
			return false
		}
	}
	return true
}

func (c *Controller) isFailed() bool {
	for _, cond := range c.def.Failed {
		if c.holds(cond) {
			return true
		}
	}
	return false
}

func (c *Controller) holds(cond levels.Condition) bool {
	switch {
	case cond.EntityCount != nil:
		ec := cond.EntityCount
		n := c.ents.Len()
		if ec.Type != "" {
			n = len(c.ents.OfType(ec.Type))
		}
		if ec.Min != nil && n < *ec.Min {
			return false
		}
		if ec.Max != nil && n > *ec.Max {
			return false
		}
		return true
	case cond.BlockAt != nil:
		ba := cond.BlockAt
		pl := c.model.Action
		if ba.Plane == "ground" {
			pl = c.model.Ground
		}
		return pl.At(level.Pos{X: ba.X, Y: ba.Y}).Type == ba.Type
	case cond.PlayerAt != nil:
		return c.player != nil && c.player.pos == *cond.PlayerAt
	case cond.ScoreAtLeast != nil:
		return c.score >= *cond.ScoreAtLeast
	case cond.ItemCount != nil:
		return c.model.ItemCount(cond.ItemCount.Item) >= cond.ItemCount.Min
	case cond.CommandCount != nil:
		cc := cond.CommandCount
		return c.ledger.Count(cc.Verb, cc.Type, cc.Repeat) >= cc.Min
	}
	return false
}

// endLevel plays the closing sequence. With a player it runs ahead of the
// player's queued work: a success animation, or the player's destruction.
func (c *Controller) endLevel(success bool, why string) {
	if c.ending || c.result != nil {
		return
	}
	c.ending = true
	c.endWhy = why

	p := c.player
	if p == nil {
		if success {
			c.view.PlaySound("success")
		} else {
			c.view.PlaySound("failure")
		}
		c.finish(success, why)
		return
	}

	var tok *command.Command
	if success {
		tok = command.NewCallback(p.spec(), nil, func(sc *command.Command) {
			c.animate(p, "success", func() {
				sc.Succeeded()
				c.finish(true, why)
			})
		})
	} else {
		tok = command.NewCallback(p.spec(), nil, func(sc *command.Command) { c.execute(sc, VerbDestroy, Args{}) })
	}
	p.addPriority(c.repeat, tok)
}

// finish reports the result. Only the first call has an effect.
func (c *Controller) finish(success bool, why string) {
	if c.result != nil {
		return
	}
	r := Result{Success: success, Reason: why, Tick: c.sched.Now()}
	c.result = &r
	c.log.Printf("level %s: finished success=%v reason=%s tick=%d", c.def.Name, success, why, r.Tick)
	if c.cfg.OnResult != nil {
		c.cfg.OnResult(r)
	}
}

// onTimeout ends the attempt at once with the level's timeout result.
func (c *Controller) onTimeout() {
	if c.result != nil {
		return
	}
	switch c.def.TimeoutOutcome() {
	case levels.TimeoutPass:
		c.finish(true, ReasonTimeout)
	case levels.TimeoutCheck:
		c.finish(c.isSolved(), ReasonTimeout)
	default:
		c.finish(false, ReasonTimeout)
	}
}

// Abort ends a running attempt as failed with the given reason. Queued work is
// left where it is; no further tick changes the result.
func (c *Controller) Abort(reason string) {
	if !c.running {
		return
	}
	c.finish(false, reason)
}

// Finished reports whether a result has been produced.
func (c *Controller) Finished() bool { return c.result != nil }
