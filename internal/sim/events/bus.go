package events

// Type names a game event. The string form is what scripts and level files use.
type Type string

const (
	WhenRun         Type = "WhenRun"
	WhenSpawned     Type = "WhenSpawned"
	WhenUsed        Type = "WhenUsed"
	WhenTouched     Type = "WhenTouched"
	WhenDay         Type = "WhenDay"
	WhenNight       Type = "WhenNight"
	WhenDayGlobal   Type = "WhenDayGlobal"
	WhenNightGlobal Type = "WhenNightGlobal"
)

var known = map[Type]bool{
	WhenRun: true, WhenSpawned: true, WhenUsed: true, WhenTouched: true,
	WhenDay: true, WhenNight: true, WhenDayGlobal: true, WhenNightGlobal: true,
}

func IsKnown(t Type) bool { return known[t] }

// Event is delivered to every handler. TargetType and TargetID are empty for
// global events; SenderID names the entity that caused a touch or use.
type Event struct {
	Type       Type   `json:"type"`
	TargetType string `json:"target_type,omitempty"`
	TargetID   string `json:"target_id,omitempty"`
	SenderID   string `json:"sender_id,omitempty"`
}

type Handler func(Event)

// Bus delivers events synchronously to handlers in registration order. It is
// owned by the game loop and not safe for concurrent use.
type Bus struct {
	handlers []Handler
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.handlers = append(b.handlers, h)
}

// Emit runs every handler registered before the call. Handlers added while
// an event is being delivered only see later events.
func (b *Bus) Emit(ev Event) {
	hs := b.handlers
	for _, h := range hs {
		h(ev)
	}
}

// Reset drops all handlers.
func (b *Bus) Reset() { b.handlers = nil }

func (b *Bus) Len() int { return len(b.handlers) }
