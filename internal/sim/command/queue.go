package command

// QueueState is the drain state of a Queue.
type QueueState int

const (
	QueueIdle QueueState = iota
	QueueRunning
	// QueueDrained means the queue ran out of commands while running.
	QueueDrained
)

func (s QueueState) String() string {
	switch s {
	case QueueIdle:
		return "IDLE"
	case QueueRunning:
		return "RUNNING"
	case QueueDrained:
		return "DRAINED"
	default:
		return "UNKNOWN"
	}
}

// Queue is a serial pipeline of commands with at most one command in flight.
// It is not safe for concurrent use; the game loop owns it.
type Queue struct {
	state   QueueState
	current *Command
	pending []*Command
}

func NewQueue() *Queue { return &Queue{} }

// Add appends c to the tail. repeat selects the ledger charged for c.
func (q *Queue) Add(c *Command, repeat bool) {
	if c == nil {
		return
	}
	c.Repeat = repeat
	q.pending = append(q.pending, c)
}

// AddPriority inserts cmds, in order, ahead of every pending command. The
// command already in flight keeps running.
func (q *Queue) AddPriority(repeat bool, cmds ...*Command) {
	batch := make([]*Command, 0, len(cmds)+len(q.pending))
	for _, c := range cmds {
		if c == nil {
			continue
		}
		c.Repeat = repeat
		batch = append(batch, c)
	}
	if len(batch) == 0 {
		return
	}
	q.pending = append(batch, q.pending...)
}

// Begin (re)starts draining.
func (q *Queue) Begin() { q.state = QueueRunning }

// Tick advances the queue by one step: the head command is begun when nothing
// is in flight, and the in-flight command is removed once it has succeeded.
func (q *Queue) Tick() {
	if q.state != QueueRunning {
		return
	}
	if q.current == nil {
		if len(q.pending) == 0 {
			q.state = QueueDrained
			return
		}
		q.current = q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
	}

	cur := q.current
	if !cur.IsStarted() {
		cur.Begin()
	}
	if cur.WaitForOtherQueue && cur.state == StateWorking && (cur.other == nil || cur.other.Empty()) {
		cur.Succeeded()
	}
	// Begin may have reset this queue.
	if q.current == cur && cur.state != StateWorking {
		q.current = nil
	}
}

// Reset drops every command without completing any of them.
func (q *Queue) Reset() {
	if q.current != nil {
		q.current.discard()
	}
	for _, c := range q.pending {
		c.discard()
	}
	q.current = nil
	q.pending = nil
	q.state = QueueIdle
}

// Len counts pending commands plus the one in flight.
func (q *Queue) Len() int {
	n := len(q.pending)
	if q.current != nil {
		n++
	}
	return n
}

// Pending counts commands that have not been started yet.
func (q *Queue) Pending() int { return len(q.pending) }

func (q *Queue) Empty() bool { return q.current == nil && len(q.pending) == 0 }

func (q *Queue) State() QueueState { return q.state }

// Current returns the command in flight, or nil.
func (q *Queue) Current() *Command { return q.current }
