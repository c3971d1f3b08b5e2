// Package script runs level programs written in Lua against the game API.
//
// A program sees one global table, craft, whose functions queue commands.
// The first argument of an entity verb is its target: nil addresses every
// entity, a number one entity, and a string a type name, a reserved id
// ("Player", "PlayerAgent") or an "#<n>" entity reference.
package script

import (
	"fmt"

	"github.com/Shopify/go-lua"

	"craftlevel.ai/internal/sim/events"
	"craftlevel.ai/internal/sim/game"
	"craftlevel.ai/internal/sim/level"
	"craftlevel.ai/internal/sim/target"
)

// GlobalName is the table the API is published under.
const GlobalName = "craft"

// hookEvery is how many instructions run between budget checks.
const hookEvery = 1000

// Error is a failure raised by the Lua side, either while the program body
// runs or inside an event handler.
type Error struct {
	Program string
	Msg     string
}

func (e *Error) Error() string {
	if e.Program == "" {
		return "script: " + e.Msg
	}
	return fmt.Sprintf("script %s: %s", e.Program, e.Msg)
}

// Program is a Lua program. Each Exec starts from a fresh interpreter, so a
// program can be run again after a level reset.
type Program struct {
	Name   string
	Source string
	// Budget caps the instructions of the body and of each handler call.
	// Zero means no limit.
	Budget int

	state *lua.State
	api   *game.API
	refs  int
}

func New(name, source string) *Program {
	return &Program{Name: name, Source: source}
}

// Exec loads and runs the program body. Handlers it registers stay bound to
// the interpreter until the next Exec.
func (p *Program) Exec(api *game.API) error {
	p.api = api
	p.refs = 0
	p.state = lua.NewState()
	lua.OpenLibraries(p.state)
	p.register()

	if err := lua.LoadString(p.state, p.Source); err != nil {
		p.state.SetTop(0)
		return p.wrap(err)
	}
	p.arm()
	if err := p.state.ProtectedCall(0, 0, 0); err != nil {
		p.state.SetTop(0)
		return p.wrap(err)
	}
	return nil
}

// arm restarts the instruction budget. Once it is spent the hook fires on
// every instruction and raises each time, so a pcall inside the program
// cannot swallow it.
func (p *Program) arm() {
	if p.Budget <= 0 {
		return
	}
	left := p.Budget
	var hook lua.Hook
	hook = func(l *lua.State, _ lua.Debug) {
		left -= hookEvery
		if left > 0 {
			return
		}
		lua.SetDebugHook(l, hook, lua.MaskCount, 1)
		lua.Errorf(l, "instruction budget of %d exceeded", p.Budget)
	}
	lua.SetDebugHook(p.state, hook, lua.MaskCount, hookEvery)
}

func (p *Program) wrap(err error) error {
	return &Error{Program: p.Name, Msg: err.Error()}
}

func (p *Program) register() {
	p.state.NewTable()
	lua.SetFunctions(p.state, p.functions(), 0)
	p.state.SetGlobal(GlobalName)
}

func (p *Program) functions() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		{Name: "moveForward", Function: p.verb(p.moveForward)},
		{Name: "moveBackward", Function: p.verb(p.moveBackward)},
		{Name: "turnRandom", Function: p.verb(p.turnRandom)},
		{Name: "flash", Function: p.verb(p.flash)},
		{Name: "explode", Function: p.verb(p.explode)},
		{Name: "destroy", Function: p.verb(p.destroy)},
		{Name: "attack", Function: p.verb(p.attack)},
		{Name: "use", Function: p.verb(p.use)},
		{Name: "destroyBlock", Function: p.verb(p.destroyBlock)},
		{Name: "moveDirection", Function: p.moveDirection},
		{Name: "turn", Function: p.turn},
		{Name: "turnLeft", Function: p.turnBy(-1)},
		{Name: "turnRight", Function: p.turnBy(1)},
		{Name: "moveAway", Function: p.moveAway},
		{Name: "moveToward", Function: p.moveToward},
		{Name: "wait", Function: p.wait},
		{Name: "drop", Function: p.drop},
		{Name: "placeBlock", Function: p.placeBlock},
		{Name: "placeInFront", Function: p.placeInFront},
		{Name: "spawn", Function: p.spawn},
		{Name: "spawnAt", Function: p.spawnAt},
		{Name: "playSound", Function: p.playSound},
		{Name: "addScore", Function: p.addScore},
		{Name: "startDay", Function: p.startDay},
		{Name: "startNight", Function: p.startNight},
		{Name: "setDayNightCycle", Function: p.setDayNightCycle},
		{Name: "times", Function: p.times},
		{Name: "onEvent", Function: p.onEvent},
		{Name: "onGlobalEvent", Function: p.onGlobalEvent},
		{Name: "commandCount", Function: p.commandCount},
		{Name: "score", Function: p.score},
	}
}

// targetAt reads a target argument. Absent and nil mean everyone.
func targetAt(l *lua.State, index int) target.Spec {
	switch l.TypeOf(index) {
	case lua.TypeNone, lua.TypeNil:
		return target.All()
	case lua.TypeNumber:
		return target.EntityNum(lua.CheckInteger(l, index))
	case lua.TypeString:
		return target.Parse(lua.CheckString(l, index))
	}
	lua.ArgumentError(l, index, "target expected")
	return target.All()
}

// raise turns a Go error into a Lua error at the current call.
func raise(l *lua.State, err error) int {
	l.PushString(err.Error())
	l.Error()
	return 0
}

func (p *Program) verb(fn func(target.Spec)) lua.Function {
	return func(l *lua.State) int {
		fn(targetAt(l, 1))
		return 0
	}
}

func (p *Program) moveForward(t target.Spec)  { p.api.MoveForward(t) }
func (p *Program) moveBackward(t target.Spec) { p.api.MoveBackward(t) }
func (p *Program) turnRandom(t target.Spec)   { p.api.TurnRandom(t) }
func (p *Program) flash(t target.Spec)        { p.api.Flash(t) }
func (p *Program) explode(t target.Spec)      { p.api.Explode(t) }
func (p *Program) destroy(t target.Spec)      { p.api.Destroy(t) }
func (p *Program) attack(t target.Spec)       { p.api.Attack(t) }
func (p *Program) use(t target.Spec)          { p.api.Use(t) }
func (p *Program) destroyBlock(t target.Spec) { p.api.DestroyBlock(t) }

func (p *Program) moveDirection(l *lua.State) int {
	dir, err := level.ParseFacing(lua.CheckString(l, 2))
	if err != nil {
		return raise(l, err)
	}
	p.api.MoveDirection(targetAt(l, 1), dir)
	return 0
}

func (p *Program) turn(l *lua.State) int {
	p.api.Turn(targetAt(l, 1), lua.CheckInteger(l, 2))
	return 0
}

func (p *Program) turnBy(quarters int) lua.Function {
	return func(l *lua.State) int {
		p.api.Turn(targetAt(l, 1), quarters)
		return 0
	}
}

func (p *Program) moveAway(l *lua.State) int {
	p.api.MoveAway(targetAt(l, 1), targetAt(l, 2))
	return 0
}

func (p *Program) moveToward(l *lua.State) int {
	p.api.MoveToward(targetAt(l, 1), targetAt(l, 2))
	return 0
}

func (p *Program) wait(l *lua.State) int {
	p.api.Wait(targetAt(l, 1), lua.CheckNumber(l, 2))
	return 0
}

func (p *Program) drop(l *lua.State) int {
	p.api.Drop(targetAt(l, 1), lua.CheckString(l, 2))
	return 0
}

func (p *Program) placeBlock(l *lua.State) int {
	p.api.PlaceBlock(targetAt(l, 1), lua.CheckString(l, 2))
	return 0
}

func (p *Program) placeInFront(l *lua.State) int {
	p.api.PlaceInFront(targetAt(l, 1), lua.CheckString(l, 2))
	return 0
}

func (p *Program) spawn(l *lua.State) int {
	p.api.Spawn(lua.CheckString(l, 1), lua.OptString(l, 2, ""))
	return 0
}

func (p *Program) spawnAt(l *lua.State) int {
	typ := lua.CheckString(l, 1)
	pos := level.Pos{X: lua.CheckInteger(l, 2), Y: lua.CheckInteger(l, 3)}
	dir, err := level.ParseFacing(lua.OptString(l, 4, "south"))
	if err != nil {
		return raise(l, err)
	}
	p.api.SpawnAt(typ, pos, dir)
	return 0
}

func (p *Program) playSound(l *lua.State) int {
	p.api.PlaySound(lua.CheckString(l, 1))
	return 0
}

func (p *Program) addScore(l *lua.State) int {
	p.api.AddScore(lua.CheckInteger(l, 1))
	return 0
}

func (p *Program) startDay(l *lua.State) int {
	p.api.StartDay()
	return 0
}

func (p *Program) startNight(l *lua.State) int {
	p.api.StartNight()
	return 0
}

func (p *Program) setDayNightCycle(l *lua.State) int {
	if err := p.api.SetDayNightCycle(lua.CheckInteger(l, 1), lua.OptString(l, 2, "day")); err != nil {
		return raise(l, err)
	}
	return 0
}

// times calls fn(i) for i = 1..n with repeat mode on.
func (p *Program) times(l *lua.State) int {
	n := lua.CheckInteger(l, 1)
	lua.CheckType(l, 2, lua.TypeFunction)
	err := p.api.Repeat(n, func(i int) error {
		l.PushValue(2)
		l.PushInteger(i + 1)
		if err := l.ProtectedCall(1, 0, 0); err != nil {
			l.Pop(1)
			return err
		}
		return nil
	})
	if err != nil {
		return raise(l, err)
	}
	return 0
}

func (p *Program) onEvent(l *lua.State) int {
	t := targetAt(l, 1)
	typ := events.Type(lua.CheckString(l, 2))
	lua.CheckType(l, 3, lua.TypeFunction)
	ref := p.keep(l, 3)
	if err := p.api.OnEvent(typ, t, p.handler(ref)); err != nil {
		return raise(l, err)
	}
	return 0
}

func (p *Program) onGlobalEvent(l *lua.State) int {
	typ := events.Type(lua.CheckString(l, 1))
	lua.CheckType(l, 2, lua.TypeFunction)
	ref := p.keep(l, 2)
	if err := p.api.OnGlobalEvent(typ, p.handler(ref)); err != nil {
		return raise(l, err)
	}
	return 0
}

func (p *Program) commandCount(l *lua.State) int {
	verb := lua.CheckString(l, 1)
	typ := lua.OptString(l, 2, "")
	repeat := l.ToBoolean(3)
	l.PushInteger(p.api.CommandCount(verb, typ, repeat))
	return 1
}

func (p *Program) score(l *lua.State) int {
	l.PushInteger(p.api.Score())
	return 1
}

// keep pins the value at index in the registry and returns its key. The
// low integer slots of the registry belong to the interpreter.
func (p *Program) keep(l *lua.State, index int) string {
	p.refs++
	key := fmt.Sprintf("%s.handler.%d", GlobalName, p.refs)
	l.PushValue(index)
	l.SetField(lua.RegistryIndex, key)
	return key
}

// handler calls the pinned Lua function with an event table. Errors go to
// the run's error callback; the event keeps propagating.
func (p *Program) handler(ref string) func(events.Event) {
	l := p.state
	return func(ev events.Event) {
		l.Field(lua.RegistryIndex, ref)
		pushEvent(l, ev)
		p.arm()
		if err := l.ProtectedCall(1, 0, 0); err != nil {
			l.Pop(1)
			p.api.Fail(p.wrap(err))
		}
	}
}

func pushEvent(l *lua.State, ev events.Event) {
	l.NewTable()
	l.PushString(string(ev.Type))
	l.SetField(-2, "type")
	l.PushString(ev.TargetType)
	l.SetField(-2, "targetType")
	l.PushString(ev.TargetID)
	l.SetField(-2, "targetId")
	l.PushString(ev.SenderID)
	l.SetField(-2, "senderId")
}
