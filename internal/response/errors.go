package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Identity ──────────────────────────────────────────────────────
	ErrTokenRequired     ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid      ErrCode = "TOKEN_INVALID"
	ErrTokenExpired      ErrCode = "TOKEN_EXPIRED"
	ErrIdentityRequired  ErrCode = "IDENTITY_REQUIRED"
	ErrGuestNameRequired ErrCode = "GUEST_NAME_REQUIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrNotRoomCreator  ErrCode = "NOT_ROOM_CREATOR"
	ErrNotAParticipant ErrCode = "NOT_A_PARTICIPANT"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidAction  ErrCode = "INVALID_ACTION"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrRoomNotFound     ErrCode = "ROOM_NOT_FOUND"
	ErrQuestionNotFound ErrCode = "QUESTION_NOT_FOUND"
	ErrConflict         ErrCode = "STATUS_CONFLICT"

	// ─── Room lifecycle ────────────────────────────────────────────────
	ErrRoomNotWaiting        ErrCode = "ROOM_NOT_WAITING"
	ErrRoomNotActive         ErrCode = "ROOM_NOT_ACTIVE"
	ErrRoomNotPaused         ErrCode = "ROOM_NOT_PAUSED"
	ErrRoomNotStarted        ErrCode = "ROOM_NOT_STARTED"
	ErrRoomEnded             ErrCode = "ROOM_ENDED"
	ErrRoomLocked            ErrCode = "ROOM_LOCKED"
	ErrRoomFull              ErrCode = "ROOM_FULL"
	ErrLateJoinClosed        ErrCode = "LATE_JOIN_CLOSED"
	ErrNoQuestions           ErrCode = "NO_QUESTIONS"
	ErrDeadlinePassed        ErrCode = "DEADLINE_PASSED"
	ErrQuestionNotAccessible ErrCode = "QUESTION_NOT_ACCESSIBLE"
	ErrQuestionAlreadyLinked ErrCode = "QUESTION_ALREADY_LINKED"
	ErrDuplicateOrder        ErrCode = "DUPLICATE_ORDER"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Identity ──────────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrIdentityRequired:
		return "Sign in or provide a guest name to continue."
	case ErrGuestNameRequired:
		return "A guest name is required to join without an account."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrNotRoomCreator:
		return "Only the room's creator can perform this action."
	case ErrNotAParticipant:
		return "You have not joined this room."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrInvalidAction:
		return "Unknown control action. Use pause, resume or end."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrRoomNotFound:
		return "Room not found."
	case ErrQuestionNotFound:
		return "Question not found in this room."
	case ErrConflict:
		return "The room changed while processing your request. Please retry."

	// ─── Room lifecycle ────────────────────────────────────────────────
	case ErrRoomNotWaiting:
		return "The room has already started."
	case ErrRoomNotActive:
		return "The room is not active."
	case ErrRoomNotPaused:
		return "The room is not paused."
	case ErrRoomNotStarted:
		return "The room has not started yet."
	case ErrRoomEnded:
		return "The room has ended."
	case ErrRoomLocked:
		return "Cannot modify questions in active or completed rooms."
	case ErrRoomFull:
		return "The room is full."
	case ErrLateJoinClosed:
		return "This room does not allow joining after it has started."
	case ErrNoQuestions:
		return "The room has no questions. Add at least one before starting."
	case ErrDeadlinePassed:
		return "The room's time limit has passed."
	case ErrQuestionNotAccessible:
		return "One or more questions do not exist or are not accessible to you."
	case ErrQuestionAlreadyLinked:
		return "One or more questions are already linked to this room."
	case ErrDuplicateOrder:
		return "Question order values must be unique within a room."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
