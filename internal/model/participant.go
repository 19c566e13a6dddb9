package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParticipantKey identifies a room participant. Exactly one of the two
// fields is set: UserID for authenticated users, GuestName for guests.
// The zero value is invalid.
type ParticipantKey struct {
	UserID    int    `json:"user_id,omitempty"`
	GuestName string `json:"guest_name,omitempty"`
}

// AuthenticatedKey builds a key for an authenticated user.
func AuthenticatedKey(userID int) ParticipantKey {
	return ParticipantKey{UserID: userID}
}

// GuestKey builds a key for a guest. Guest names are matched
// case-insensitively, so the key is normalized to lower case.
func GuestKey(name string) ParticipantKey {
	return ParticipantKey{GuestName: strings.ToLower(strings.TrimSpace(name))}
}

// IsGuest reports whether the key identifies a guest.
func (k ParticipantKey) IsGuest() bool {
	return k.UserID == 0 && k.GuestName != ""
}

// IsZero reports whether the key is unset.
func (k ParticipantKey) IsZero() bool {
	return k.UserID == 0 && k.GuestName == ""
}

// String returns the canonical storage form, "user:<id>" or "guest:<name>".
func (k ParticipantKey) String() string {
	if k.UserID != 0 {
		return fmt.Sprintf("user:%d", k.UserID)
	}
	return "guest:" + k.GuestName
}

// ErrInvalidParticipantKey is returned when a stored key cannot be parsed.
var ErrInvalidParticipantKey = errors.New("invalid participant key")

// ParseParticipantKey parses the canonical storage form back into a key.
func ParseParticipantKey(s string) (ParticipantKey, error) {
	prefix, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return ParticipantKey{}, ErrInvalidParticipantKey
	}
	switch prefix {
	case "user":
		id, err := strconv.Atoi(rest)
		if err != nil || id <= 0 {
			return ParticipantKey{}, ErrInvalidParticipantKey
		}
		return AuthenticatedKey(id), nil
	case "guest":
		return GuestKey(rest), nil
	default:
		return ParticipantKey{}, ErrInvalidParticipantKey
	}
}

// Participant is a member of a room's roster. Score and AnsweredQuestions
// are live running totals while the room is active; after the room ends,
// Score holds the final percent score.
type Participant struct {
	RoomID            uuid.UUID      `json:"room_id"`
	Key               ParticipantKey `json:"key"`
	DisplayName       string         `json:"display_name"`
	JoinedAt          time.Time      `json:"joined_at"`
	IsActive          bool           `json:"is_active"`
	Score             int            `json:"score"`
	AnsweredQuestions int            `json:"answered_questions"`
	LastActivity      time.Time      `json:"last_activity"`
}

// ParticipantTotals is the recomputed running total after an answer write.
type ParticipantTotals struct {
	Score             int `json:"score"`
	AnsweredQuestions int `json:"answered_questions"`
}

// ParticipantResult is a participant's frozen end-of-room outcome.
type ParticipantResult struct {
	Key               ParticipantKey `json:"key"`
	PercentScore      int            `json:"percent_score"`
	AnsweredQuestions int            `json:"answered_questions"`
}

// SessionInfo is the derived live-progress view of a room, mirrored in
// Redis. It is a cache rebuildable from the room and the answer ledger.
type SessionInfo struct {
	Status             RoomStatus     `json:"status"`
	StartedAt          *time.Time     `json:"started_at,omitempty"`
	PausedAt           *time.Time     `json:"paused_at,omitempty"`
	PausedTotalSeconds int            `json:"paused_total_seconds"`
	Progress           map[string]int `json:"progress,omitempty"` // participant key -> answered count
}
