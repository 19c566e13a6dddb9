package model

import (
	"time"

	"github.com/google/uuid"
)

// RoomQuestion links a catalog question into a room with room-specific
// ordering and optional overrides. Nil overrides mean "inherit from the
// catalog question". Order values are unique per room while the room is
// waiting; once the room starts, the set and order are frozen.
type RoomQuestion struct {
	RoomID           uuid.UUID `json:"room_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	OrderNum         int       `json:"order_num"`
	IsRequired       bool      `json:"is_required"`
	TimeLimitSeconds *int      `json:"time_limit_seconds,omitempty"`
	Points           *int      `json:"points,omitempty"`
	AddedAt          time.Time `json:"added_at"`
	AddedBy          int       `json:"added_by"`
}

// RoomQuestionUpdate carries a reorder entry with optional overrides.
type RoomQuestionUpdate struct {
	QuestionID       uuid.UUID `json:"question_id"`
	OrderNum         int       `json:"order_num"`
	TimeLimitSeconds *int      `json:"time_limit_seconds,omitempty"`
	Points           *int      `json:"points,omitempty"`
}

// AddRoomQuestionsRequest is the payload for linking catalog questions.
type AddRoomQuestionsRequest struct {
	QuestionIDs []uuid.UUID `json:"question_ids" binding:"required,min=1,max=200"`
	ReplaceAll  bool        `json:"replace_all"`
}

// RemoveRoomQuestionsRequest is the payload for unlinking questions.
type RemoveRoomQuestionsRequest struct {
	QuestionIDs []uuid.UUID `json:"question_ids" binding:"required,min=1,max=200"`
}

// ReorderEntry is a single reorder/override instruction.
type ReorderEntry struct {
	QuestionID       uuid.UUID `json:"question_id" binding:"required"`
	OrderNum         int       `json:"order_num" binding:"required,min=1"`
	TimeLimitSeconds *int      `json:"time_limit_seconds" binding:"omitempty,min=5,max=3600"`
	Points           *int      `json:"points" binding:"omitempty,min=0,max=1000"`
}

// ReorderRoomQuestionsRequest is the payload for reordering the linkage.
type ReorderRoomQuestionsRequest struct {
	Entries []ReorderEntry `json:"entries" binding:"required,min=1,dive"`
}

// RoomQuestionCount reports the linkage size after a mutation.
type RoomQuestionCount struct {
	TotalQuestions int `json:"total_questions"`
}
