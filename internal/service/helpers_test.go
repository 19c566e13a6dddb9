package service_test

import (
	"context"
	"encoding/json"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizhive/quizroom-backend/internal/cache"
	"github.com/quizhive/quizroom-backend/internal/config"
	"github.com/quizhive/quizroom-backend/internal/memstore"
	"github.com/quizhive/quizroom-backend/internal/model"
	"github.com/quizhive/quizroom-backend/internal/service"
)

const creatorID = 7

type fixture struct {
	store   *memstore.Store
	catalog *memstore.Catalog
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	cfg     *config.Config
	tracker *cache.SessionTracker

	rooms   *service.RoomService
	links   *service.RoomQuestionService
	session *service.SessionService
	answers *service.AnswerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memstore.New()
	catalog := memstore.NewCatalog()
	tracker := cache.NewSessionTracker(rdb)
	cfg := &config.Config{}
	log := zerolog.Nop()

	return &fixture{
		store:   store,
		catalog: catalog,
		mr:      mr,
		rdb:     rdb,
		cfg:     cfg,
		tracker: tracker,
		rooms:   service.NewRoomService(store, store.Links(), tracker, log),
		links:   service.NewRoomQuestionService(store, store.Links(), catalog, log),
		session: service.NewSessionService(store, store.Links(), catalog, store.Answers(), rdb, tracker, log),
		answers: service.NewAnswerService(store, store.Links(), catalog, store.Answers(), rdb, tracker, cfg, log),
	}
}

// seedQuestion puts a public catalog question with the given correct
// index and points, returning its id.
func (f *fixture) seedQuestion(t *testing.T, correct, points int) uuid.UUID {
	t.Helper()

	options, err := json.Marshal([]string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("encode options: %v", err)
	}
	q := model.Question{
		ID:               uuid.New(),
		OwnerID:          creatorID,
		QuestionText:     "seeded",
		Options:          options,
		CorrectAnswer:    correct,
		Explanation:      "because",
		Points:           points,
		TimeLimitSeconds: 30,
		IsPublic:         true,
	}
	f.catalog.Put(q)
	return q.ID
}

// seedRoom creates a waiting room with the given catalog questions linked.
func (f *fixture) seedRoom(t *testing.T, questionIDs ...uuid.UUID) *model.Room {
	t.Helper()
	ctx := context.Background()

	room, err := f.rooms.CreateRoom(ctx, creatorID, &model.CreateRoomRequest{
		Title:            "trivia night",
		TimeLimitMinutes: 30,
	})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if len(questionIDs) > 0 {
		if _, err := f.links.AddQuestions(ctx, room.ID, creatorID, questionIDs, false); err != nil {
			t.Fatalf("link questions: %v", err)
		}
	}
	return room
}

// startRoom seeds a room with questions and flips it to active.
func (f *fixture) startRoom(t *testing.T, questionIDs ...uuid.UUID) *model.Room {
	t.Helper()
	ctx := context.Background()

	room := f.seedRoom(t, questionIDs...)
	if _, err := f.session.StartRoom(ctx, room.ID, creatorID); err != nil {
		t.Fatalf("start room: %v", err)
	}
	started, err := f.store.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("reload room: %v", err)
	}
	return started
}

func (f *fixture) join(t *testing.T, roomID uuid.UUID, key model.ParticipantKey) *model.Participant {
	t.Helper()
	p, err := f.rooms.JoinRoom(context.Background(), roomID, key, "")
	if err != nil {
		t.Fatalf("join room: %v", err)
	}
	return p
}

func (f *fixture) submit(t *testing.T, roomID, questionID uuid.UUID, key model.ParticipantKey, selected int) *model.AnswerFeedback {
	t.Helper()
	fb, err := f.answers.SubmitAnswer(context.Background(), roomID, key, &model.SubmitAnswerRequest{
		QuestionID:     questionID,
		SelectedAnswer: &selected,
	})
	if err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	return fb
}
