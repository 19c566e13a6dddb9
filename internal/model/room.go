package model

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus enumerates the lifecycle states of a quiz room.
type RoomStatus string

const (
	RoomStatusWaiting   RoomStatus = "waiting"
	RoomStatusActive    RoomStatus = "active"
	RoomStatusPaused    RoomStatus = "paused"
	RoomStatusCompleted RoomStatus = "completed"
	RoomStatusCancelled RoomStatus = "cancelled"
)

// RoomSettings is the fixed set of per-room behavior toggles.
type RoomSettings struct {
	AllowChat          bool `json:"allow_chat"`
	AllowQuestionSkip  bool `json:"allow_question_skip"`
	ShowCorrectAnswers bool `json:"show_correct_answers"`
	InstantFeedback    bool `json:"instant_feedback"`
}

// RoomStatistics is the aggregate snapshot stored on the room.
// TotalQuestions is kept live as the linkage changes; AverageScore and
// CompletionRate are written once when the room is ended and frozen after.
type RoomStatistics struct {
	TotalQuestions int `json:"total_questions"`
	AverageScore   int `json:"average_score"`
	CompletionRate int `json:"completion_rate"`
}

// Room represents a single live quiz instance.
type Room struct {
	ID                 uuid.UUID      `json:"id"`
	Code               string         `json:"code"`
	CreatorID          int            `json:"creator_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Category           string         `json:"category"`
	Difficulty         string         `json:"difficulty"`
	MaxParticipants    int            `json:"max_participants"`
	TimeLimitMinutes   int            `json:"time_limit_minutes"`
	IsPublic           bool           `json:"is_public"`
	AllowLateJoin      bool           `json:"allow_late_join"`
	ShowLeaderboard    bool           `json:"show_leaderboard"`
	ShuffleQuestions   bool           `json:"shuffle_questions"`
	Settings           RoomSettings   `json:"settings"`
	ScheduledStartTime *time.Time     `json:"scheduled_start_time,omitempty"`
	Status             RoomStatus     `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	StartedAt          *time.Time     `json:"started_at,omitempty"`
	PausedAt           *time.Time     `json:"paused_at,omitempty"`
	ResumedAt          *time.Time     `json:"resumed_at,omitempty"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	ScheduledEndTime   *time.Time     `json:"scheduled_end_time,omitempty"`
	Statistics         RoomStatistics `json:"statistics"`
}

// Locked reports whether the room's configuration and question set are
// frozen. Everything after the waiting state is immutable.
func (r *Room) Locked() bool {
	return r.Status != RoomStatusWaiting
}

// Ended reports whether the room has reached a terminal state.
func (r *Room) Ended() bool {
	return r.Status == RoomStatusCompleted || r.Status == RoomStatusCancelled
}

// TimeRemaining returns the wall-clock seconds left before the scheduled
// deadline, clamped at zero. Rooms that have not started report zero.
// The deadline is advisory: paused time still counts down.
func (r *Room) TimeRemaining(now time.Time) int {
	if r.ScheduledEndTime == nil {
		return 0
	}
	remaining := r.ScheduledEndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// StatusChange describes an atomic room status transition. The update is
// applied only if the stored status still matches one of From at write
// time; otherwise the transition is reported as a conflict.
type StatusChange struct {
	From             []RoomStatus
	To               RoomStatus
	StartedAt        *time.Time
	PausedAt         *time.Time
	ResumedAt        *time.Time
	CompletedAt      *time.Time
	ScheduledEndTime *time.Time
	ClearPausedAt    bool
}

// CreateRoomRequest is the payload for creating a new room.
type CreateRoomRequest struct {
	Title              string        `json:"title" binding:"required,min=3,max=255"`
	Description        string        `json:"description" binding:"max=2000"`
	Category           string        `json:"category" binding:"max=100"`
	Difficulty         string        `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	MaxParticipants    int           `json:"max_participants" binding:"omitempty,min=1,max=500"`
	TimeLimitMinutes   int           `json:"time_limit_minutes" binding:"required,min=1,max=480"`
	IsPublic           bool          `json:"is_public"`
	AllowLateJoin      *bool         `json:"allow_late_join"`
	ShowLeaderboard    *bool         `json:"show_leaderboard"`
	ShuffleQuestions   bool          `json:"shuffle_questions"`
	Settings           *RoomSettings `json:"settings"`
	ScheduledStartTime *time.Time    `json:"scheduled_start_time"`
}

// UpdateRoomRequest is the payload for updating a waiting room's config.
type UpdateRoomRequest struct {
	Title              string        `json:"title" binding:"omitempty,min=3,max=255"`
	Description        *string       `json:"description" binding:"omitempty,max=2000"`
	Category           *string       `json:"category" binding:"omitempty,max=100"`
	Difficulty         string        `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	MaxParticipants    *int          `json:"max_participants" binding:"omitempty,min=1,max=500"`
	TimeLimitMinutes   *int          `json:"time_limit_minutes" binding:"omitempty,min=1,max=480"`
	IsPublic           *bool         `json:"is_public"`
	AllowLateJoin      *bool         `json:"allow_late_join"`
	ShowLeaderboard    *bool         `json:"show_leaderboard"`
	ShuffleQuestions   *bool         `json:"shuffle_questions"`
	Settings           *RoomSettings `json:"settings"`
	ScheduledStartTime *time.Time    `json:"scheduled_start_time"`
}

// JoinRoomRequest is the payload for joining a room.
type JoinRoomRequest struct {
	DisplayName string `json:"display_name" binding:"omitempty,min=1,max=100"`
}

// StartRoomResult is returned to the creator after a successful start.
type StartRoomResult struct {
	Status           RoomStatus `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	ScheduledEndTime time.Time  `json:"scheduled_end_time"`
	QuestionCount    int        `json:"question_count"`
}

// ControlAction enumerates the creator's control actions on a live room.
type ControlAction string

const (
	ControlActionPause  ControlAction = "pause"
	ControlActionResume ControlAction = "resume"
	ControlActionEnd    ControlAction = "end"
)

// ControlRoomRequest is the payload for pause/resume/end.
type ControlRoomRequest struct {
	Action string `json:"action" binding:"required,oneof=pause resume end"`
}

// ControlRoomResult reports the room state after a control action.
// Statistics is populated only when the action ended the room.
type ControlRoomResult struct {
	Status     RoomStatus      `json:"status"`
	Statistics *RoomStatistics `json:"statistics,omitempty"`
}

// RoomStatusInfo is the polling payload for creators and participants.
type RoomStatusInfo struct {
	Room          RoomSummary    `json:"room"`
	Participants  []Participant  `json:"participants"`
	Statistics    RoomStatistics `json:"statistics"`
	TimeRemaining int            `json:"time_remaining_seconds"`
	Session       *SessionInfo   `json:"session,omitempty"`
}

// RoomSummary is the public, answer-free view of a room.
type RoomSummary struct {
	ID               uuid.UUID    `json:"id"`
	Code             string       `json:"code"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	Category         string       `json:"category"`
	Difficulty       string       `json:"difficulty"`
	Status           RoomStatus   `json:"status"`
	MaxParticipants  int          `json:"max_participants"`
	TimeLimitMinutes int          `json:"time_limit_minutes"`
	ShowLeaderboard  bool         `json:"show_leaderboard"`
	Settings         RoomSettings `json:"settings"`
	StartedAt        *time.Time   `json:"started_at,omitempty"`
	ScheduledEndTime *time.Time   `json:"scheduled_end_time,omitempty"`
	TotalQuestions   int          `json:"total_questions"`
}

// Summary projects the room onto its public view.
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:               r.ID,
		Code:             r.Code,
		Title:            r.Title,
		Description:      r.Description,
		Category:         r.Category,
		Difficulty:       r.Difficulty,
		Status:           r.Status,
		MaxParticipants:  r.MaxParticipants,
		TimeLimitMinutes: r.TimeLimitMinutes,
		ShowLeaderboard:  r.ShowLeaderboard,
		Settings:         r.Settings,
		StartedAt:        r.StartedAt,
		ScheduledEndTime: r.ScheduledEndTime,
		TotalQuestions:   r.Statistics.TotalQuestions,
	}
}
