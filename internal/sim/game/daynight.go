package game

import (
	"craftlevel.ai/internal/sim/command"
	"craftlevel.ai/internal/sim/events"
)

// startDay switches to daytime. Entities that burn in daylight catch fire.
// Asking for day during the day changes nothing.
func (c *Controller) startDay() {
	if c.model.Daytime {
		c.debugf("startDay: already day")
		return
	}
	c.model.Daytime = true
	c.announceTime(events.WhenDayGlobal, events.WhenDay)
	for _, e := range c.ents.All() {
		if e.def.BurnsInDaylight {
			e.burning = true
		}
	}
	c.view.RefreshLighting()
}

func (c *Controller) startNight() {
	if !c.model.Daytime {
		c.debugf("startNight: already night")
		return
	}
	c.model.Daytime = false
	c.announceTime(events.WhenNightGlobal, events.WhenNight)
	for _, e := range c.ents.All() {
		if e.def.BurnsInDaylight {
			e.burning = false
		}
	}
	c.view.RefreshLighting()
}

func (c *Controller) announceTime(global, each events.Type) {
	c.emit(events.Event{Type: global})
	for _, e := range c.ents.All() {
		c.emit(events.Event{Type: each, TargetType: e.typ, TargetID: e.id})
	}
}

// setDayNightCycle replaces the running cycle. The first transition, to day
// when toDay is set, happens after ms; transitions then alternate every ms.
// A non-positive ms stops the cycle.
func (c *Controller) setDayNightCycle(ms float64, toDay bool) {
	if c.dayNightTimer != 0 {
		c.sched.Cancel(c.dayNightTimer)
		c.dayNightTimer = 0
	}
	c.dayNightMs = ms
	if ms <= 0 {
		return
	}
	c.dayNightTimer = c.delayBy(ms, func() {
		c.dayNightTimer = 0
		if toDay {
			c.startDay()
		} else {
			c.startNight()
		}
		c.setDayNightCycle(ms, !toDay)
	})
}

// burn hurts every burning entity once per burn interval. A burn hit is
// pushed ahead of the entity's queue and at most one is outstanding.
func (c *Controller) burn() {
	every := c.sched.Ticks(c.tune.BurnEveryMs * c.tune.Dilation())
	if every == 0 || c.sched.Now()%every != 0 {
		return
	}
	for _, e := range c.ents.All() {
		if !e.burning || e.burnPending || !e.alive() {
			continue
		}
		e.burnPending = true
		hit := command.NewCallback(e.spec(), nil, func(sc *command.Command) {
			e.burnPending = false
			e.TakeDamage(sc, 1)
		})
		e.addPriority(false, hit)
	}
}
