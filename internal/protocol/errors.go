package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Session state.
	ErrBusy       = "E_BUSY"
	ErrNotRunning = "E_NOT_RUNNING"

	// Level and program layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrLevelNotFound = "E_LEVEL_NOT_FOUND"
	ErrScript        = "E_SCRIPT"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrBusy:            {},
	ErrNotRunning:      {},
	ErrBadRequest:      {},
	ErrLevelNotFound:   {},
	ErrScript:          {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
