package protocol

import (
	"encoding/json"
	"errors"
)

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeRun     = "RUN"
	TypeStop    = "STOP"
	TypeAck     = "ACK"
	TypeTick    = "TICK"
	TypeResult  = "RESULT"
	TypeError   = "ERROR"
)

var ErrMissingType = errors.New("protocol: message has no type")

// BaseMessage carries the fields every message shares; it is decoded first
// to route the rest.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return m, err
	}
	if m.Type == "" {
		return m, ErrMissingType
	}
	return m, nil
}

// FromClient reports whether t is a message a client may send.
func FromClient(t string) bool {
	switch t {
	case TypeHello, TypeRun, TypeStop:
		return true
	}
	return false
}

// SupportsVersion reports whether a client speaking v can be served. An empty
// version is taken as the current one.
func SupportsVersion(v string) bool {
	return v == "" || v == Version
}
