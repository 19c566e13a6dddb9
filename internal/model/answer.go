package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerRecord is the current answer a participant has given for one
// question in one room. There is at most one record per
// (room, question, participant); resubmission replaces the prior record.
// A nil SelectedAnswer means the participant skipped or timed out.
type AnswerRecord struct {
	RoomID           uuid.UUID      `json:"room_id"`
	QuestionID       uuid.UUID      `json:"question_id"`
	Participant      ParticipantKey `json:"participant"`
	SelectedAnswer   *int           `json:"selected_answer"`
	IsCorrect        bool           `json:"is_correct"`
	PointsAwarded    int            `json:"points_awarded"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
	AnsweredAt       time.Time      `json:"answered_at"`
}

// SubmitAnswerRequest is the payload for submitting an answer.
// SelectedAnswer is nil for a skip or client-side timeout.
type SubmitAnswerRequest struct {
	QuestionID       uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer   *int      `json:"selected_answer" binding:"omitempty,min=0,max=31"`
	TimeSpentSeconds int       `json:"time_spent_seconds" binding:"min=0"`
}

// AnswerFeedback is the reply to a submission. Beyond the bare
// acknowledgment, fields are populated according to the room settings:
// correctness and points require instant_feedback, the authoritative
// answer and explanation require show_correct_answers.
type AnswerFeedback struct {
	Submitted     bool    `json:"submitted"`
	IsCorrect     *bool   `json:"is_correct,omitempty"`
	PointsAwarded *int    `json:"points_awarded,omitempty"`
	TotalScore    *int    `json:"total_score,omitempty"`
	CorrectAnswer *int    `json:"correct_answer,omitempty"`
	Explanation   *string `json:"explanation,omitempty"`
}
