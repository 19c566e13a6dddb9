package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizhive/quizroom-backend/internal/memstore"
	"github.com/quizhive/quizroom-backend/internal/model"
	"github.com/quizhive/quizroom-backend/internal/service"
)

func TestStartRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	qID := f.seedQuestion(t, 0, 1)
	room := f.seedRoom(t, qID)

	result, err := f.session.StartRoom(ctx, room.ID, creatorID)
	if err != nil {
		t.Fatalf("start room: %v", err)
	}
	if result.Status != model.RoomStatusActive {
		t.Fatalf("expected active, got %s", result.Status)
	}
	if result.QuestionCount != 1 {
		t.Fatalf("expected 1 question, got %d", result.QuestionCount)
	}
	wantEnd := result.StartedAt.Add(30 * time.Minute)
	if !result.ScheduledEndTime.Equal(wantEnd) {
		t.Fatalf("expected deadline %v, got %v", wantEnd, result.ScheduledEndTime)
	}

	stored, _ := f.store.GetByID(ctx, room.ID)
	if stored.Status != model.RoomStatusActive || stored.StartedAt == nil {
		t.Fatalf("store not updated: %+v", stored)
	}
}

func TestStartRoomRequiresQuestions(t *testing.T) {
	f := newFixture(t)
	room := f.seedRoom(t)

	_, err := f.session.StartRoom(context.Background(), room.ID, creatorID)
	if !errors.Is(err, service.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestStartRoomRequiresCreator(t *testing.T) {
	f := newFixture(t)
	qID := f.seedQuestion(t, 0, 1)
	room := f.seedRoom(t, qID)

	_, err := f.session.StartRoom(context.Background(), room.ID, creatorID+1)
	if !errors.Is(err, service.ErrNotCreator) {
		t.Fatalf("expected ErrNotCreator, got %v", err)
	}
}

func TestStartRoomTwice(t *testing.T) {
	f := newFixture(t)
	qID := f.seedQuestion(t, 0, 1)
	room := f.startRoom(t, qID)

	_, err := f.session.StartRoom(context.Background(), room.ID, creatorID)
	if !errors.Is(err, service.ErrRoomNotWaiting) {
		t.Fatalf("expected ErrRoomNotWaiting, got %v", err)
	}
}

func TestControlRoomTransitions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, f *fixture, roomID uuid.UUID)
		action  model.ControlAction
		wantErr error
		want    model.RoomStatus
	}{
		{
			name:   "pause active",
			action: model.ControlActionPause,
			want:   model.RoomStatusPaused,
		},
		{
			name: "resume paused",
			prepare: func(t *testing.T, f *fixture, roomID uuid.UUID) {
				if _, err := f.session.ControlRoom(context.Background(), roomID, creatorID, model.ControlActionPause); err != nil {
					t.Fatalf("pause: %v", err)
				}
			},
			action: model.ControlActionResume,
			want:   model.RoomStatusActive,
		},
		{
			name:   "end active",
			action: model.ControlActionEnd,
			want:   model.RoomStatusCompleted,
		},
		{
			name: "end paused",
			prepare: func(t *testing.T, f *fixture, roomID uuid.UUID) {
				if _, err := f.session.ControlRoom(context.Background(), roomID, creatorID, model.ControlActionPause); err != nil {
					t.Fatalf("pause: %v", err)
				}
			},
			action: model.ControlActionEnd,
			want:   model.RoomStatusCompleted,
		},
		{
			name:    "pause while paused",
			prepare: func(t *testing.T, f *fixture, roomID uuid.UUID) {
				if _, err := f.session.ControlRoom(context.Background(), roomID, creatorID, model.ControlActionPause); err != nil {
					t.Fatalf("pause: %v", err)
				}
			},
			action:  model.ControlActionPause,
			wantErr: service.ErrRoomNotActive,
		},
		{
			name:    "resume while active",
			action:  model.ControlActionResume,
			wantErr: service.ErrRoomNotPaused,
		},
		{
			name: "end twice",
			prepare: func(t *testing.T, f *fixture, roomID uuid.UUID) {
				if _, err := f.session.ControlRoom(context.Background(), roomID, creatorID, model.ControlActionEnd); err != nil {
					t.Fatalf("end: %v", err)
				}
			},
			action:  model.ControlActionEnd,
			wantErr: service.ErrRoomEnded,
		},
		{
			name:    "unknown action",
			action:  model.ControlAction("explode"),
			wantErr: service.ErrInvalidAction,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			qID := f.seedQuestion(t, 0, 1)
			room := f.startRoom(t, qID)
			if tc.prepare != nil {
				tc.prepare(t, f, room.ID)
			}

			result, err := f.session.ControlRoom(context.Background(), room.ID, creatorID, tc.action)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("control: %v", err)
			}
			if result.Status != tc.want {
				t.Fatalf("expected status %s, got %s", tc.want, result.Status)
			}
		})
	}
}

func TestControlRoomEndBeforeStart(t *testing.T) {
	f := newFixture(t)
	room := f.seedRoom(t)

	_, err := f.session.ControlRoom(context.Background(), room.ID, creatorID, model.ControlActionEnd)
	if !errors.Is(err, service.ErrRoomNotStarted) {
		t.Fatalf("expected ErrRoomNotStarted, got %v", err)
	}
}

func TestPauseDoesNotExtendDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	qID := f.seedQuestion(t, 0, 1)
	room := f.startRoom(t, qID)
	deadline := *room.ScheduledEndTime

	if _, err := f.session.ControlRoom(ctx, room.ID, creatorID, model.ControlActionPause); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := f.session.ControlRoom(ctx, room.ID, creatorID, model.ControlActionResume); err != nil {
		t.Fatalf("resume: %v", err)
	}

	resumed, _ := f.store.GetByID(ctx, room.ID)
	if !resumed.ScheduledEndTime.Equal(deadline) {
		t.Fatalf("deadline moved from %v to %v", deadline, resumed.ScheduledEndTime)
	}
	if resumed.PausedAt != nil {
		t.Fatal("paused_at should be cleared on resume")
	}
}

func TestCancelRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t)

	if err := f.session.CancelRoom(ctx, room.ID, creatorID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	stored, _ := f.store.GetByID(ctx, room.ID)
	if stored.Status != model.RoomStatusCancelled {
		t.Fatalf("expected cancelled, got %s", stored.Status)
	}

	// Cancellation is only for rooms that never started.
	qID := f.seedQuestion(t, 0, 1)
	active := f.startRoom(t, qID)
	if err := f.session.CancelRoom(ctx, active.ID, creatorID); !errors.Is(err, service.ErrRoomNotWaiting) {
		t.Fatalf("expected ErrRoomNotWaiting, got %v", err)
	}
}

// raceStore interposes on reads: the first time an active room is read,
// it lets interfere run before the caller gets to its CAS write.
type raceStore struct {
	*memstore.Store
	interfere func()
	fired     bool
}

func (r *raceStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	room, err := r.Store.GetByID(ctx, id)
	if err == nil && !r.fired && room.Status == model.RoomStatusActive && r.interfere != nil {
		r.fired = true
		r.interfere()
	}
	return room, err
}

func TestConcurrentEndOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	qID := f.seedQuestion(t, 0, 1)
	room := f.startRoom(t, qID)

	rs := &raceStore{Store: f.store}
	rs.interfere = func() {
		// A competing end lands between the read and the CAS.
		if _, err := f.session.ControlRoom(ctx, room.ID, creatorID, model.ControlActionEnd); err != nil {
			t.Fatalf("competing end: %v", err)
		}
	}
	racingSession := service.NewSessionService(rs, f.store.Links(), f.catalog, f.store.Answers(), f.rdb, f.tracker, zerolog.Nop())

	_, err := racingSession.ControlRoom(ctx, room.ID, creatorID, model.ControlActionEnd)
	if !errors.Is(err, service.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
}

func TestEndAggregatesStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Three one-point questions; two participants.
	q1 := f.seedQuestion(t, 0, 1)
	q2 := f.seedQuestion(t, 1, 1)
	q3 := f.seedQuestion(t, 2, 1)
	room := f.startRoom(t, q1, q2, q3)

	alice := model.GuestKey("alice")
	bob := model.AuthenticatedKey(42)
	f.join(t, room.ID, alice)
	f.join(t, room.ID, bob)

	// Alice scores 2/3, Bob 3/3.
	f.submit(t, room.ID, q1, alice, 0)
	f.submit(t, room.ID, q2, alice, 1)
	f.submit(t, room.ID, q3, alice, 1) // wrong
	f.submit(t, room.ID, q1, bob, 0)
	f.submit(t, room.ID, q2, bob, 1)
	f.submit(t, room.ID, q3, bob, 2)

	result, err := f.session.ControlRoom(ctx, room.ID, creatorID, model.ControlActionEnd)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	stats := result.Statistics
	if stats == nil {
		t.Fatal("expected statistics on end")
	}
	if stats.TotalQuestions != 3 {
		t.Fatalf("expected 3 questions, got %d", stats.TotalQuestions)
	}
	// Alice 67%, Bob 100% -> average 84 (83.5 rounded).
	if stats.AverageScore != 84 {
		t.Fatalf("expected average 84, got %d", stats.AverageScore)
	}
	if stats.CompletionRate != 100 {
		t.Fatalf("expected completion 100, got %d", stats.CompletionRate)
	}

	// Scores on the roster are frozen as percentages.
	p, err := f.store.GetParticipant(ctx, room.ID, alice)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if p.Score != 67 || p.AnsweredQuestions != 3 {
		t.Fatalf("expected alice 67%% over 3 answers, got %+v", p)
	}
}

func TestEndNormalizesByPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Two five-point questions: both correct must be 100%, not 2/10.
	q1 := f.seedQuestion(t, 1, 5)
	q2 := f.seedQuestion(t, 2, 5)
	room := f.startRoom(t, q1, q2)

	alice := model.GuestKey("alice")
	f.join(t, room.ID, alice)
	f.submit(t, room.ID, q1, alice, 1)
	f.submit(t, room.ID, q2, alice, 2)

	result, err := f.session.ControlRoom(ctx, room.ID, creatorID, model.ControlActionEnd)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if result.Statistics.AverageScore != 100 {
		t.Fatalf("expected 100%%, got %d", result.Statistics.AverageScore)
	}
}

func TestEndCountsSilentParticipantsAgainstCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	qID := f.seedQuestion(t, 0, 1)
	room := f.startRoom(t, qID)

	active := model.GuestKey("active")
	lurker := model.GuestKey("lurker")
	f.join(t, room.ID, active)
	f.join(t, room.ID, lurker)
	f.submit(t, room.ID, qID, active, 0)

	result, err := f.session.ControlRoom(ctx, room.ID, creatorID, model.ControlActionEnd)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if result.Statistics.CompletionRate != 50 {
		t.Fatalf("expected 50%% completion, got %d", result.Statistics.CompletionRate)
	}
	// The average only covers participants who answered.
	if result.Statistics.AverageScore != 100 {
		t.Fatalf("expected average 100, got %d", result.Statistics.AverageScore)
	}
}

func TestEndWithNoParticipants(t *testing.T) {
	f := newFixture(t)
	qID := f.seedQuestion(t, 0, 1)
	room := f.startRoom(t, qID)

	result, err := f.session.ControlRoom(context.Background(), room.ID, creatorID, model.ControlActionEnd)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if result.Statistics.AverageScore != 0 || result.Statistics.CompletionRate != 0 {
		t.Fatalf("expected zeroed statistics, got %+v", result.Statistics)
	}
}

func TestGetQuizScrubsAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	qID := f.seedQuestion(t, 2, 3)
	room := f.startRoom(t, qID)
	alice := model.GuestKey("alice")
	f.join(t, room.ID, alice)

	view, err := f.session.GetQuizForParticipant(ctx, room.ID, alice)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(view.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(view.Questions))
	}
	q := view.Questions[0]
	if q.Points != 3 {
		t.Fatalf("expected resolved points 3, got %d", q.Points)
	}
	if q.QuestionText == "" || len(q.Options) == 0 {
		t.Fatalf("question content missing: %+v", q)
	}
	if view.TimeRemaining <= 0 {
		t.Fatalf("expected positive time remaining, got %d", view.TimeRemaining)
	}
}

func TestGetQuizAccessRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	qID := f.seedQuestion(t, 0, 1)
	waiting := f.seedRoom(t, qID)
	alice := model.GuestKey("alice")

	if _, err := f.session.GetQuizForParticipant(ctx, waiting.ID, alice); !errors.Is(err, service.ErrRoomNotStarted) {
		t.Fatalf("expected ErrRoomNotStarted, got %v", err)
	}

	q2 := f.seedQuestion(t, 0, 1)
	room := f.startRoom(t, q2)

	// Not on the roster.
	if _, err := f.session.GetQuizForParticipant(ctx, room.ID, alice); !errors.Is(err, service.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}

	// The creator may preview without joining.
	if _, err := f.session.GetQuizForParticipant(ctx, room.ID, model.AuthenticatedKey(creatorID)); err != nil {
		t.Fatalf("creator preview: %v", err)
	}

	if _, err := f.session.ControlRoom(ctx, room.ID, creatorID, model.ControlActionEnd); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := f.session.GetQuizForParticipant(ctx, room.ID, model.AuthenticatedKey(creatorID)); !errors.Is(err, service.ErrRoomEnded) {
		t.Fatalf("expected ErrRoomEnded, got %v", err)
	}
}

func TestGetQuizShuffleIsStablePerParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := make([]uuid.UUID, 8)
	for i := range ids {
		ids[i] = f.seedQuestion(t, 0, 1)
	}
	room := f.seedRoom(t, ids...)

	shuffle := true
	if _, err := f.rooms.UpdateConfig(ctx, room.ID, creatorID, &model.UpdateRoomRequest{ShuffleQuestions: &shuffle}); err != nil {
		t.Fatalf("enable shuffle: %v", err)
	}
	if _, err := f.session.StartRoom(ctx, room.ID, creatorID); err != nil {
		t.Fatalf("start: %v", err)
	}

	alice := model.GuestKey("alice")
	f.join(t, room.ID, alice)

	first, err := f.session.GetQuizForParticipant(ctx, room.ID, alice)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	second, err := f.session.GetQuizForParticipant(ctx, room.ID, alice)
	if err != nil {
		t.Fatalf("get quiz again: %v", err)
	}
	for i := range first.Questions {
		if first.Questions[i].ID != second.Questions[i].ID {
			t.Fatalf("order changed between fetches at %d", i)
		}
	}
}
