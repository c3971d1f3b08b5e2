package game

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"

	"craftlevel.ai/internal/sim/clock"
	"craftlevel.ai/internal/sim/command"
	"craftlevel.ai/internal/sim/events"
	"craftlevel.ai/internal/sim/ledger"
	"craftlevel.ai/internal/sim/level"
	"craftlevel.ai/internal/sim/levels"
	"craftlevel.ai/internal/sim/logic/mathx"
	"craftlevel.ai/internal/sim/target"
	"craftlevel.ai/internal/sim/tuning"
)

// Result is the terminal outcome of a level attempt.
type Result struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
	Tick    uint64 `json:"tick"`
}

// Result reasons.
const (
	ReasonSolved     = "solved"
	ReasonFailed     = "failed"
	ReasonTimeout    = "timeout"
	ReasonPlayerDied = "player_died"
	ReasonStopped    = "stopped"
)

var (
	ErrNoLevel        = errors.New("no level loaded")
	ErrAlreadyRunning = errors.New("level already running")
)

// Program is the scripted side of a run. Exec is called once per run with the
// command API; commands it issues are queued, not executed inline.
type Program interface {
	Exec(api *API) error
}

// ProgramFunc adapts a Go function to Program.
type ProgramFunc func(api *API) error

func (f ProgramFunc) Exec(api *API) error { return f(api) }

type Config struct {
	Tuning tuning.Tuning
	Logger *log.Logger

	// View defaults to a TimedView driven by the controller clock.
	View  View
	Trace func(Effect)

	OnResult  func(Result)
	OnScore   func(score int)
	OnEvent   func(events.Event)
	OnCommand func(verb string, t target.Spec)
}

// Controller owns one level attempt: the world, the entities and their
// queues, the dispatch queue for global commands, timers, events and the
// ledger. It is driven by Step and is not safe for concurrent use.
type Controller struct {
	cfg  Config
	tune tuning.Tuning
	log  *log.Logger
	view View

	def    levels.Definition
	loaded bool

	model  *level.Model
	ents   *Registry
	player *Entity
	agent  *Entity
	nextID int

	sched    *clock.Scheduler
	dispatch *command.Queue
	bus      *events.Bus
	ledger   *ledger.Ledger
	api      *API

	repeat  bool
	score   int
	rngSeq  int
	onError func(error)

	dayNightMs    float64
	dayNightTimer clock.TimerID

	running bool
	ending  bool
	endWhy  string
	result  *Result
}

func New(cfg Config) *Controller {
	if cfg.Tuning.TickRateHz == 0 {
		cfg.Tuning = tuning.Defaults()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	c := &Controller{
		cfg:      cfg,
		tune:     cfg.Tuning,
		log:      cfg.Logger,
		ents:     NewRegistry(),
		sched:    clock.NewScheduler(cfg.Tuning.TickRateHz),
		dispatch: command.NewQueue(),
		bus:      events.NewBus(),
		ledger:   ledger.New(),
	}
	c.view = cfg.View
	if c.view == nil {
		tv := NewTimedView(c.sched, c.tune)
		tv.Trace = cfg.Trace
		c.view = tv
	}
	c.api = &API{c: c}
	return c
}

// LoadLevel installs def and resets the world to its initial state.
func (c *Controller) LoadLevel(def levels.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	for i, e := range def.Entities {
		if !IsSpawnable(e.Type) {
			return fmt.Errorf("level %q: entity %d: unknown type %q", def.Name, i, e.Type)
		}
	}
	if _, err := level.NewModel(def.Width, def.Height, def.Ground, def.Action); err != nil {
		return fmt.Errorf("level %q: %w", def.Name, err)
	}
	c.def = def
	c.loaded = true
	return c.Reset()
}

// Reset discards every queued command and timer and rebuilds the world from
// the level definition. No discarded command ever completes.
func (c *Controller) Reset() error {
	if !c.loaded {
		return ErrNoLevel
	}
	c.sched.Reset()
	c.dispatch.Reset()
	for _, e := range c.ents.All() {
		e.queue.Reset()
		e.dead = true
	}
	c.ents.clear()
	c.bus.Reset()
	c.ledger.Reset()

	model, err := level.NewModel(c.def.Width, c.def.Height, c.def.Ground, c.def.Action)
	if err != nil {
		return err
	}
	model.Daytime = !c.def.StartAtNight
	c.model = model

	c.player, c.agent = nil, nil
	c.nextID = 0
	c.repeat = false
	c.score = 0
	c.rngSeq = 0
	c.dayNightMs = 0
	c.dayNightTimer = 0
	c.running, c.ending, c.endWhy, c.result = false, false, "", nil
	c.onError = nil

	if p := c.def.Player; p != nil {
		def, _ := LookupEntityDef(TypePlayer)
		c.player = newEntity(c, target.PlayerID, def, p.Pos(), p.FacingOr(level.South))
		c.ents.add(c.player)
	}
	if a := c.def.Agent; a != nil {
		def, _ := LookupEntityDef(TypeAgent)
		c.agent = newEntity(c, target.AgentID, def, a.Pos(), a.FacingOr(level.South))
		c.ents.add(c.agent)
	}
	for _, spec := range c.def.Entities {
		def, _ := LookupEntityDef(spec.Type)
		c.addEntity(def, spec.Pos(), spec.FacingOr(level.South))
	}

	if c.cfg.OnEvent != nil {
		c.bus.Subscribe(c.cfg.OnEvent)
	}
	if !c.def.DirectControl {
		c.installDefaultRules()
	}
	if c.def.UseScore && c.cfg.OnScore != nil {
		c.cfg.OnScore(c.score)
	}
	return nil
}

// installDefaultRules wires the stock reactions for procedural levels: used
// sheep drop wool, touched creepers flash and explode.
func (c *Controller) installDefaultRules() {
	c.bus.Subscribe(func(ev events.Event) {
		switch {
		case ev.Type == events.WhenUsed && ev.TargetType == "sheep":
			c.api.Drop(target.Entity(ev.TargetID), "wool")
		case ev.Type == events.WhenTouched && ev.TargetType == "creeper":
			c.api.Flash(target.Entity(ev.TargetID))
			c.api.Explode(target.Entity(ev.TargetID))
		}
	})
}

// Run executes the program once, announces the run and every preloaded
// entity, starts all queues and arms the level timers. A program error is
// handed to onError; the run continues with whatever was queued.
func (c *Controller) Run(p Program, onError func(error)) error {
	if !c.loaded {
		return ErrNoLevel
	}
	if c.running || c.result != nil {
		return ErrAlreadyRunning
	}
	c.running = true
	c.onError = onError

	if p != nil {
		if err := p.Exec(c.api); err != nil {
			c.fail(err)
		}
	}

	c.emit(events.Event{Type: events.WhenRun})
	for _, e := range c.ents.All() {
		c.emit(events.Event{Type: events.WhenSpawned, TargetType: e.typ, TargetID: e.id})
		e.queue.Begin()
	}

	if c.def.TimeoutMs > 0 {
		c.delayBy(float64(c.def.TimeoutMs), c.onTimeout)
	}
	if c.def.DayNightCycleMs > 1000 && c.dayNightMs == 0 {
		c.setDayNightCycle(float64(c.def.DayNightCycleMs), true)
	}
	return nil
}

// Step advances the game by one tick: timers, the dispatch queue, every
// entity queue in insertion order, burning, then the solution check.
func (c *Controller) Step() {
	if !c.loaded {
		return
	}
	c.sched.Advance()
	c.dispatch.Tick()
	for _, e := range c.ents.All() {
		if e.alive() {
			e.queue.Tick()
		}
	}
	c.burn()
	c.checkSolution()
}

func (c *Controller) fail(err error) {
	if err == nil {
		return
	}
	c.log.Printf("level %s: program error: %v", c.def.Name, err)
	if c.onError != nil {
		c.onError(err)
	}
}

// addCommand routes an API command: a live entity target gets it on its own
// queue, anything else goes through the dispatch queue.
func (c *Controller) addCommand(cmd *command.Command) {
	if cmd.Target.Kind == target.EntityID {
		if e, ok := c.ents.Get(cmd.Target.Name); ok {
			e.AddCommand(cmd, c.repeat)
			return
		}
	}
	c.dispatch.Add(cmd, c.repeat)
	c.dispatch.Begin()
}

func (c *Controller) emit(ev events.Event) { c.bus.Emit(ev) }

func (c *Controller) debugf(format string, args ...any) {
	if c.tune.Debug {
		c.log.Printf("debug: "+format, args...)
	}
}

func (c *Controller) record(verb, typ string, repeat bool) {
	c.ledger.Record(verb, typ, repeat)
	c.debugf("ledger %s type=%q repeat=%v total=%d", verb, typ, repeat, c.ledger.Count(verb, "", repeat))
}

func (c *Controller) animate(e *Entity, name string, done func()) {
	c.view.PlayAnimation(Animation{Name: name, EntityID: e.id, Pos: e.pos, Facing: e.facing}, done)
}

func (c *Controller) animateAt(e *Entity, name string, p level.Pos, done func()) {
	c.view.PlayAnimation(Animation{Name: name, EntityID: e.id, Pos: p, Facing: e.facing}, done)
}

// delayBy runs fn after ms, stretched by the configured slow motion.
func (c *Controller) delayBy(ms float64, fn func()) clock.TimerID {
	return c.sched.After(ms*c.tune.Dilation(), fn)
}

// playerDelayFactor is 1 for short player queues and falls linearly to 0 as
// the queue grows from SpeedUpStart to SpeedUpEnd commands.
func (c *Controller) playerDelayFactor() float64 {
	if c.player == nil {
		return 1
	}
	span := c.tune.SpeedUpEnd - c.tune.SpeedUpStart
	if span <= 0 {
		return 1
	}
	amount := mathx.ClampInt(c.player.queue.Len()-c.tune.SpeedUpStart, 0, span)
	return 1 - float64(amount)/float64(span)
}

func (c *Controller) delayPlayerMoveBy(minMs, maxMs float64, fn func()) {
	c.delayBy(math.Max(minMs, maxMs*c.playerDelayFactor()), fn)
}

// rand returns a replayable pseudo-random number in [0, n).
func (c *Controller) rand(n int) int {
	c.rngSeq++
	return mathx.Pick(mathx.Hash2(c.tune.Seed, int(c.sched.Now()), c.rngSeq), n)
}

func (c *Controller) addEntity(def EntityDef, p level.Pos, f level.Facing) *Entity {
	c.nextID++
	e := newEntity(c, strconv.Itoa(c.nextID), def, p, f)
	c.ents.add(e)
	if c.running {
		e.queue.Begin()
	}
	return e
}

// removeEntity takes e out of the world and drops its queue.
func (c *Controller) removeEntity(e *Entity) {
	if e.dead {
		return
	}
	e.dead = true
	e.queue.Reset()
	c.ents.remove(e.id)
	switch e {
	case c.player:
		c.player = nil
		why := ReasonPlayerDied
		if c.ending && c.endWhy == ReasonFailed {
			why = ReasonFailed
		}
		c.finish(false, why)
	case c.agent:
		c.agent = nil
	}
}

// Accessors used by tests, tools and transports.

func (c *Controller) Definition() levels.Definition { return c.def }
func (c *Controller) Model() *level.Model           { return c.model }
func (c *Controller) Entities() *Registry           { return c.ents }
func (c *Controller) Ledger() *ledger.Ledger        { return c.ledger }
func (c *Controller) Dispatch() *command.Queue      { return c.dispatch }
func (c *Controller) Player() *Entity               { return c.player }
func (c *Controller) API() *API                     { return c.api }
func (c *Controller) Tick() uint64                  { return c.sched.Now() }
func (c *Controller) Score() int                    { return c.score }
func (c *Controller) Running() bool                 { return c.running }

// Result reports the outcome once the level has ended.
func (c *Controller) Result() (Result, bool) {
	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}
