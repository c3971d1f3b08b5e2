package command

import "craftlevel.ai/internal/sim/target"

// State is the lifecycle of a single Command.
type State int

const (
	StateNotStarted State = iota
	StateWorking
	StateSucceeded
	// StateDiscarded marks a command dropped by a queue reset. It never completes.
	StateDiscarded
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateWorking:
		return "WORKING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateDiscarded:
		return "DISCARDED"
	default:
		return "UNKNOWN"
	}
}

// Command is a unit of deferred work. The owning queue calls Begin once; the
// action must eventually call Succeeded (possibly many ticks later).
type Command struct {
	Target target.Spec
	Repeat bool

	// WaitForOtherQueue keeps the command in flight until the queue set by
	// WaitFor has nothing left to run.
	WaitForOtherQueue bool

	onBegin func()
	action  func(*Command)

	state State
	other *Queue
	done  chan struct{}
}

// NewCallback builds a command that runs action when its queue begins it.
// onBegin may be nil; it runs right before action (script highlight hooks).
func NewCallback(t target.Spec, onBegin func(), action func(*Command)) *Command {
	return &Command{
		Target:  t,
		onBegin: onBegin,
		action:  action,
		done:    make(chan struct{}),
	}
}

// Begin starts the command. Calling it more than once is a no-op.
func (c *Command) Begin() {
	if c.state != StateNotStarted {
		return
	}
	c.state = StateWorking
	if c.onBegin != nil {
		c.onBegin()
	}
	if c.action != nil {
		c.action(c)
	}
}

// Succeeded resolves the command. Only the first call on a working or
// not-yet-started command has an effect; discarded commands stay discarded.
func (c *Command) Succeeded() {
	if c.state == StateSucceeded || c.state == StateDiscarded {
		return
	}
	c.state = StateSucceeded
	close(c.done)
}

// WaitFor marks the command as waiting on another queue to drain.
func (c *Command) WaitFor(q *Queue) {
	c.WaitForOtherQueue = true
	c.other = q
}

// Done is closed exactly once, when the command succeeds.
func (c *Command) Done() <-chan struct{} { return c.done }

func (c *Command) State() State      { return c.state }
func (c *Command) IsStarted() bool   { return c.state != StateNotStarted }
func (c *Command) IsSucceeded() bool { return c.state == StateSucceeded }

func (c *Command) discard() {
	if c.state == StateSucceeded {
		return
	}
	c.state = StateDiscarded
}
