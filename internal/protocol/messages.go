package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	SessionID       string     `json:"session_id"`
	TickRateHz      int        `json:"tick_rate_hz"`
	Levels          []LevelRef `json:"levels"`
}

type LevelRef struct {
	Name          string `json:"name"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	DirectControl bool   `json:"direct_control,omitempty"`
	UseScore      bool   `json:"use_score,omitempty"`
	TimeoutMs     int    `json:"timeout_ms,omitempty"`
}

// RUN (client -> server): start an attempt of a level with a Lua program.
// An empty script runs the level's own script, if any.
type RunMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	Level           string `json:"level"`
	Script          string `json:"script,omitempty"`
	// Realtime paces ticks at the tick rate instead of as fast as possible.
	Realtime bool `json:"realtime,omitempty"`
	Effects  bool `json:"effects,omitempty"`
}

// STOP (client -> server): abandon the running attempt.
type StopMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	RunID           string `json:"run_id,omitempty"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}

// TICK (server -> client): what happened during one tick of a run.
type TickMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	RunID           string   `json:"run_id"`
	Tick            uint64   `json:"tick"`
	Digest          string   `json:"digest"`
	Score           int      `json:"score"`
	Events          []Event  `json:"events,omitempty"`
	Effects         []Effect `json:"effects,omitempty"`
}

type Event struct {
	Type       string `json:"type"`
	TargetType string `json:"target_type,omitempty"`
	TargetID   string `json:"target_id,omitempty"`
	SenderID   string `json:"sender_id,omitempty"`
}

// Effect is a presentation call: an animation, a sound or a lighting refresh.
type Effect struct {
	Kind     string `json:"kind"`
	Name     string `json:"name,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
	Pos      [2]int `json:"pos"`
	Facing   string `json:"facing,omitempty"`
}

// RESULT (server -> client): the outcome of a run.
type ResultMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	RunID           string         `json:"run_id"`
	Success         bool           `json:"success"`
	Reason          string         `json:"reason"`
	Tick            uint64         `json:"tick"`
	Score           int            `json:"score"`
	Errors          []string       `json:"errors,omitempty"`
	Commands        []CommandCount `json:"commands,omitempty"`
}

type CommandCount struct {
	Verb   string `json:"verb"`
	Type   string `json:"type,omitempty"`
	Repeat bool   `json:"repeat,omitempty"`
	Count  int    `json:"count"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
	RunID           string `json:"run_id,omitempty"`
}
