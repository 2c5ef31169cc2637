package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Room routing/state.
	ErrRoomNotFound = "E_ROOM_NOT_FOUND"
	ErrRoomFull     = "E_ROOM_FULL"
	ErrRoomClosed   = "E_ROOM_CLOSED"
	ErrWrongPhase   = "E_WRONG_PHASE"

	// Action layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrNoPermission  = "E_NO_PERMISSION"
	ErrNoCredits     = "E_NO_CREDITS"
	ErrNoBudget      = "E_NO_BUDGET"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrConflict      = "E_CONFLICT"
	ErrLockedIn      = "E_LOCKED_IN"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrRoomNotFound:    {},
	ErrRoomFull:        {},
	ErrRoomClosed:      {},
	ErrWrongPhase:      {},
	ErrBadRequest:      {},
	ErrNoPermission:    {},
	ErrNoCredits:       {},
	ErrNoBudget:        {},
	ErrInvalidTarget:   {},
	ErrConflict:        {},
	ErrLockedIn:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
