package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/quizhive/quizroom-backend/internal/model"
)

// RoomStore is the durable record of rooms and their participant rosters.
// Implementations must make TransitionStatus an atomic compare-and-swap on
// the stored status so concurrent transitions cannot both win.
type RoomStore interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error)
	GetByCode(ctx context.Context, code string) (*model.Room, error)
	UpdateConfig(ctx context.Context, room *model.Room) error

	// TransitionStatus applies change iff the stored status still matches
	// one of change.From. Returns false (and no error) when the guard
	// fails at write time.
	TransitionStatus(ctx context.Context, roomID uuid.UUID, change model.StatusChange) (bool, error)

	SetTotalQuestions(ctx context.Context, roomID uuid.UUID, total int) error
	UpdateStatistics(ctx context.Context, roomID uuid.UUID, stats model.RoomStatistics) error

	AddParticipant(ctx context.Context, p *model.Participant) error
	GetParticipant(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey) (*model.Participant, error)
	ListParticipants(ctx context.Context, roomID uuid.UUID) ([]model.Participant, error)
	CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error)
	MarkParticipantActive(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey) error

	// SaveParticipantResults writes the frozen end-of-room outcomes onto
	// the roster entries.
	SaveParticipantResults(ctx context.Context, roomID uuid.UUID, results []model.ParticipantResult) error
}

// RoomQuestionStore is the ordered linkage between a room and catalog
// questions.
type RoomQuestionStore interface {
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.RoomQuestion, error)
	Get(ctx context.Context, roomID, questionID uuid.UUID) (*model.RoomQuestion, error)
	Add(ctx context.Context, links []model.RoomQuestion) error
	Remove(ctx context.Context, roomID uuid.UUID, questionIDs []uuid.UUID) (int, error)
	DeleteByRoom(ctx context.Context, roomID uuid.UUID) error

	// UpdateEntries applies order and override updates atomically; the
	// store rejects the whole batch if any resulting order collides.
	UpdateEntries(ctx context.Context, roomID uuid.UUID, entries []model.RoomQuestionUpdate) error

	Count(ctx context.Context, roomID uuid.UUID) (int, error)
	MaxOrder(ctx context.Context, roomID uuid.UUID) (int, error)
}

// AnswerStore is the answer ledger. RecordAnswer must be atomic per
// (room, question, participant): the upsert, the running-total recompute
// and the roster update happen as one unit so concurrent submissions from
// the same participant cannot interleave a stale read-modify-write.
type AnswerStore interface {
	RecordAnswer(ctx context.Context, rec *model.AnswerRecord) (model.ParticipantTotals, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.AnswerRecord, error)
	ListByParticipant(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey) ([]model.AnswerRecord, error)
}

// CatalogStore is the read-only adapter to the external question catalog.
type CatalogStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}
