package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Question is a catalog question as read from the external question
// catalog. The catalog owns the content; this service only reads it.
// CorrectAnswer is the authoritative option index and must never appear
// in participant-facing payloads before an answer is recorded.
type Question struct {
	ID               uuid.UUID       `json:"id"`
	OwnerID          int             `json:"owner_id"`
	QuestionText     string          `json:"question_text"`
	Options          json.RawMessage `json:"options"`
	CorrectAnswer    int             `json:"correct_answer"`
	Explanation      string          `json:"explanation,omitempty"`
	Points           int             `json:"points"`
	TimeLimitSeconds int             `json:"time_limit_seconds"`
	Category         string          `json:"category"`
	Difficulty       string          `json:"difficulty"`
	IsPublic         bool            `json:"is_public"`
}

// AccessibleTo reports whether a creator may link this question.
func (q *Question) AccessibleTo(userID int) bool {
	return q.IsPublic || q.OwnerID == userID
}

// QuestionForParticipant is a question scrubbed of its answer key, with
// room-linkage overrides already applied to points and time limit.
type QuestionForParticipant struct {
	ID               uuid.UUID       `json:"id"`
	QuestionText     string          `json:"question_text"`
	Options          json.RawMessage `json:"options"`
	OrderNum         int             `json:"order_num"`
	IsRequired       bool            `json:"is_required"`
	Points           int             `json:"points"`
	TimeLimitSeconds int             `json:"time_limit_seconds"`
}

// QuizView is the participant-facing quiz payload for an active room.
type QuizView struct {
	Room          RoomSummary              `json:"room"`
	Questions     []QuestionForParticipant `json:"questions"`
	Answers       []AnswerRecord           `json:"answers"`
	Answered      int                      `json:"answered"`
	Score         int                      `json:"score"`
	TimeRemaining int                      `json:"time_remaining_seconds"`
}
