package service

import "errors"

// Domain errors. Every expected rejection surfaces as one of these so the
// transport layer can branch on errors.Is and explain the specific reason.
// Infrastructure failures (storage unavailable) pass through wrapped and
// map to an internal error upstream.
var (
	// Resources
	ErrRoomNotFound     = errors.New("room not found")
	ErrQuestionNotFound = errors.New("question not linked to this room")
	ErrRoomCodeTaken    = errors.New("room code already in use")

	// Authorization
	ErrNotCreator     = errors.New("caller is not the room's creator")
	ErrNotParticipant = errors.New("caller is not a participant of this room")

	// Lifecycle / state
	ErrRoomNotWaiting = errors.New("room is not in waiting state")
	ErrRoomNotActive  = errors.New("room is not active")
	ErrRoomNotPaused  = errors.New("room is not paused")
	ErrRoomNotStarted = errors.New("room has not started")
	ErrRoomEnded      = errors.New("room has ended")
	ErrRoomLocked     = errors.New("cannot modify questions after the room has started")
	ErrNoQuestions    = errors.New("room has no questions")
	ErrRoomFull       = errors.New("room is at maximum participants")
	ErrLateJoinClosed = errors.New("room does not allow late join")
	ErrDeadlinePassed = errors.New("room deadline has passed")
	ErrInvalidAction  = errors.New("invalid control action")

	// Validation
	ErrQuestionNotAccessible = errors.New("question does not exist or is not accessible")
	ErrQuestionAlreadyLinked = errors.New("question is already linked to this room")
	ErrDuplicateOrder        = errors.New("duplicate question order within room")

	// Optimistic concurrency
	ErrStatusConflict = errors.New("room status changed concurrently")
)
