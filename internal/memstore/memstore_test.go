package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quizhive/quizroom-backend/internal/memstore"
	"github.com/quizhive/quizroom-backend/internal/model"
	"github.com/quizhive/quizroom-backend/internal/service"
)

func seedRoom(t *testing.T, s *memstore.Store, status model.RoomStatus) *model.Room {
	t.Helper()

	room := &model.Room{
		Code:      uuid.NewString()[:6],
		CreatorID: 1,
		Title:     "room",
		Status:    status,
	}
	if err := s.Create(context.Background(), room); err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func link(t *testing.T, s *memstore.Store, roomID uuid.UUID, order int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := s.Links().Add(context.Background(), []model.RoomQuestion{
		{RoomID: roomID, QuestionID: id, OrderNum: order},
	})
	if err != nil {
		t.Fatalf("link question: %v", err)
	}
	return id
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	if err := s.Create(ctx, &model.Room{Code: "ABC123"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Create(ctx, &model.Room{Code: "abc123"})
	if !errors.Is(err, service.ErrRoomCodeTaken) {
		t.Fatalf("expected ErrRoomCodeTaken for case-variant code, got %v", err)
	}
}

func TestTransitionStatusCAS(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	room := seedRoom(t, s, model.RoomStatusWaiting)

	now := time.Now()
	applied, err := s.TransitionStatus(ctx, room.ID, model.StatusChange{
		From:      []model.RoomStatus{model.RoomStatusWaiting},
		To:        model.RoomStatusActive,
		StartedAt: &now,
	})
	if err != nil || !applied {
		t.Fatalf("first transition: applied=%v err=%v", applied, err)
	}

	// Same precondition again must not apply.
	applied, err = s.TransitionStatus(ctx, room.ID, model.StatusChange{
		From: []model.RoomStatus{model.RoomStatusWaiting},
		To:   model.RoomStatusCancelled,
	})
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if applied {
		t.Fatal("transition applied despite stale precondition")
	}

	got, _ := s.GetByID(ctx, room.ID)
	if got.Status != model.RoomStatusActive {
		t.Fatalf("losing transition mutated state: %s", got.Status)
	}
	if got.StartedAt == nil {
		t.Fatal("winning transition lost started_at")
	}
}

func TestTransitionStatusMultiFrom(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	room := seedRoom(t, s, model.RoomStatusPaused)

	applied, err := s.TransitionStatus(ctx, room.ID, model.StatusChange{
		From:          []model.RoomStatus{model.RoomStatusActive, model.RoomStatusPaused},
		To:            model.RoomStatusCompleted,
		ClearPausedAt: true,
	})
	if err != nil || !applied {
		t.Fatalf("transition: applied=%v err=%v", applied, err)
	}
	got, _ := s.GetByID(ctx, room.ID)
	if got.Status != model.RoomStatusCompleted || got.PausedAt != nil {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestAddParticipantIsIdempotent(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	room := seedRoom(t, s, model.RoomStatusWaiting)

	key := model.GuestKey("alice")
	first := &model.Participant{RoomID: room.ID, Key: key, DisplayName: "alice", JoinedAt: time.Now()}
	if err := s.AddParticipant(ctx, first); err != nil {
		t.Fatalf("add: %v", err)
	}
	again := &model.Participant{RoomID: room.ID, Key: key, DisplayName: "ALICE"}
	if err := s.AddParticipant(ctx, again); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	p, err := s.GetParticipant(ctx, room.ID, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.DisplayName != "alice" {
		t.Fatalf("re-add overwrote the original entry: %+v", p)
	}
	if n, _ := s.CountParticipants(ctx, room.ID); n != 1 {
		t.Fatalf("expected 1 participant, got %d", n)
	}
}

func TestLinkAddRejectsDuplicates(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	room := seedRoom(t, s, model.RoomStatusWaiting)
	qID := link(t, s, room.ID, 1)

	err := s.Links().Add(ctx, []model.RoomQuestion{
		{RoomID: room.ID, QuestionID: qID, OrderNum: 2},
	})
	if !errors.Is(err, service.ErrQuestionAlreadyLinked) {
		t.Fatalf("expected ErrQuestionAlreadyLinked, got %v", err)
	}

	err = s.Links().Add(ctx, []model.RoomQuestion{
		{RoomID: room.ID, QuestionID: uuid.New(), OrderNum: 1},
	})
	if !errors.Is(err, service.ErrDuplicateOrder) {
		t.Fatalf("expected ErrDuplicateOrder, got %v", err)
	}

	// A failed batch must leave nothing behind.
	if n, _ := s.Links().Count(ctx, room.ID); n != 1 {
		t.Fatalf("expected 1 link after rejected batches, got %d", n)
	}
}

func TestUpdateEntriesSwapsOrders(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	room := seedRoom(t, s, model.RoomStatusWaiting)
	q1 := link(t, s, room.ID, 1)
	q2 := link(t, s, room.ID, 2)

	err := s.Links().UpdateEntries(ctx, room.ID, []model.RoomQuestionUpdate{
		{QuestionID: q1, OrderNum: 2},
		{QuestionID: q2, OrderNum: 1},
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	links, _ := s.Links().ListByRoom(ctx, room.ID)
	if links[0].QuestionID != q2 || links[1].QuestionID != q1 {
		t.Fatalf("swap not applied: %+v", links)
	}
}

func TestUpdateEntriesRejectsAtomically(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	room := seedRoom(t, s, model.RoomStatusWaiting)
	q1 := link(t, s, room.ID, 1)
	q2 := link(t, s, room.ID, 2)

	points := 9
	err := s.Links().UpdateEntries(ctx, room.ID, []model.RoomQuestionUpdate{
		{QuestionID: q1, OrderNum: 2, Points: &points},
		{QuestionID: q2, OrderNum: 2},
	})
	if !errors.Is(err, service.ErrDuplicateOrder) {
		t.Fatalf("expected ErrDuplicateOrder, got %v", err)
	}

	// Nothing from the rejected batch may stick, including the override.
	links, _ := s.Links().ListByRoom(ctx, room.ID)
	if links[0].QuestionID != q1 || links[0].OrderNum != 1 || links[0].Points != nil {
		t.Fatalf("rejected update leaked: %+v", links[0])
	}

	err = s.Links().UpdateEntries(ctx, room.ID, []model.RoomQuestionUpdate{
		{QuestionID: uuid.New(), OrderNum: 3},
	})
	if !errors.Is(err, service.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestRecordAnswerUpsertsTotals(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	room := seedRoom(t, s, model.RoomStatusActive)
	q1 := link(t, s, room.ID, 1)
	q2 := link(t, s, room.ID, 2)

	alice := model.GuestKey("alice")
	if err := s.AddParticipant(ctx, &model.Participant{RoomID: room.ID, Key: alice}); err != nil {
		t.Fatalf("add participant: %v", err)
	}

	record := func(qID uuid.UUID, points int, correct bool) model.ParticipantTotals {
		t.Helper()
		totals, err := s.Answers().RecordAnswer(ctx, &model.AnswerRecord{
			RoomID:        room.ID,
			QuestionID:    qID,
			Participant:   alice,
			IsCorrect:     correct,
			PointsAwarded: points,
			AnsweredAt:    time.Now(),
		})
		if err != nil {
			t.Fatalf("record answer: %v", err)
		}
		return totals
	}

	if totals := record(q1, 3, true); totals.Score != 3 || totals.AnsweredQuestions != 1 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	if totals := record(q2, 2, true); totals.Score != 5 || totals.AnsweredQuestions != 2 {
		t.Fatalf("unexpected totals: %+v", totals)
	}

	// Resubmitting q1 replaces the record instead of stacking points.
	if totals := record(q1, 0, false); totals.Score != 2 || totals.AnsweredQuestions != 2 {
		t.Fatalf("unexpected totals after resubmit: %+v", totals)
	}

	p, err := s.GetParticipant(ctx, room.ID, alice)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if p.Score != 2 || p.AnsweredQuestions != 2 {
		t.Fatalf("roster totals out of sync: %+v", p)
	}

	records, _ := s.Answers().ListByParticipant(ctx, room.ID, alice)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestListByParticipantIsolation(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	room := seedRoom(t, s, model.RoomStatusActive)
	qID := link(t, s, room.ID, 1)

	alice := model.GuestKey("alice")
	bob := model.AuthenticatedKey(9)
	for _, key := range []model.ParticipantKey{alice, bob} {
		if _, err := s.Answers().RecordAnswer(ctx, &model.AnswerRecord{
			RoomID:      room.ID,
			QuestionID:  qID,
			Participant: key,
			AnsweredAt:  time.Now(),
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	mine, _ := s.Answers().ListByParticipant(ctx, room.ID, alice)
	if len(mine) != 1 || mine[0].Participant != alice {
		t.Fatalf("expected only alice's record, got %+v", mine)
	}
	all, _ := s.Answers().ListByRoom(ctx, room.ID)
	if len(all) != 2 {
		t.Fatalf("expected 2 records room-wide, got %d", len(all))
	}
}

func TestGetByCodeCaseInsensitive(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	room := &model.Room{Code: "XyZ789"}
	if err := s.Create(ctx, room); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.GetByCode(ctx, "xYz789")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if got.ID != room.ID {
		t.Fatal("code lookup returned the wrong room")
	}
	if _, err := s.GetByCode(ctx, "nope"); !errors.Is(err, service.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}
