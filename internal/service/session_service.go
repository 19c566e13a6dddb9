package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizhive/quizroom-backend/internal/cache"
	"github.com/quizhive/quizroom-backend/internal/config"
	"github.com/quizhive/quizroom-backend/internal/model"
)

// answerKeyEntry is the cached grading record for one linked question:
// the authoritative correct index, the resolved points (room override
// applied) and the explanation revealed after answering.
type answerKeyEntry struct {
	Correct     int    `json:"correct"`
	Points      int    `json:"points"`
	Explanation string `json:"explanation,omitempty"`
}

// SessionService is the quiz session engine: it owns the room lifecycle
// state machine, question delivery and end-of-room aggregation.
//
// Status transitions are compare-and-swap writes on the room store. A
// transition that loses the race fails with ErrStatusConflict and leaves
// state unchanged; in particular two concurrent `end` calls can never
// both aggregate.
type SessionService struct {
	rooms   RoomStore
	links   RoomQuestionStore
	catalog CatalogStore
	answers AnswerStore
	rdb     *redis.Client
	tracker *cache.SessionTracker
	log     zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	rooms RoomStore,
	links RoomQuestionStore,
	catalog CatalogStore,
	answers AnswerStore,
	rdb *redis.Client,
	tracker *cache.SessionTracker,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		rooms:   rooms,
		links:   links,
		catalog: catalog,
		answers: answers,
		rdb:     rdb,
		tracker: tracker,
		log:     log.With().Str("component", "session_service").Logger(),
	}
}

// StartRoom flips a waiting room to active, computes the deadline and
// warms the answer-key cache. Requires the creator and at least one
// linked question.
func (s *SessionService) StartRoom(ctx context.Context, roomID uuid.UUID, callerID int) (*model.StartRoomResult, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != callerID {
		return nil, ErrNotCreator
	}
	if room.Status != model.RoomStatusWaiting {
		return nil, ErrRoomNotWaiting
	}

	questionCount, err := s.links.Count(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if questionCount == 0 {
		return nil, ErrNoQuestions
	}

	now := time.Now()
	endsAt := now.Add(time.Duration(room.TimeLimitMinutes) * time.Minute)

	applied, err := s.rooms.TransitionStatus(ctx, roomID, model.StatusChange{
		From:             []model.RoomStatus{model.RoomStatusWaiting},
		To:               model.RoomStatusActive,
		StartedAt:        &now,
		ScheduledEndTime: &endsAt,
	})
	if err != nil {
		return nil, fmt.Errorf("start transition: %w", err)
	}
	if !applied {
		return nil, ErrStatusConflict
	}

	room.Status = model.RoomStatusActive
	room.StartedAt = &now
	room.ScheduledEndTime = &endsAt

	// Cache warm failures are non-fatal: grading self-heals from the
	// catalog on a cache miss.
	if err := s.warmAnswerKey(ctx, room); err != nil {
		s.log.Warn().Err(err).Str("room_id", roomID.String()).Msg("Answer key warm failed")
	}
	if err := s.tracker.Init(ctx, room); err != nil {
		s.log.Warn().Err(err).Str("room_id", roomID.String()).Msg("Session tracker init failed")
	}

	s.log.Info().
		Str("room_id", roomID.String()).
		Int("questions", questionCount).
		Time("ends_at", endsAt).
		Msg("Room started")

	return &model.StartRoomResult{
		Status:           model.RoomStatusActive,
		StartedAt:        now,
		ScheduledEndTime: endsAt,
		QuestionCount:    questionCount,
	}, nil
}

// ControlRoom applies a creator control action: pause, resume or end.
// Ending the room runs finalization exactly once (the CAS winner).
func (s *SessionService) ControlRoom(ctx context.Context, roomID uuid.UUID, callerID int, action model.ControlAction) (*model.ControlRoomResult, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != callerID {
		return nil, ErrNotCreator
	}

	now := time.Now()

	switch action {
	case model.ControlActionPause:
		if room.Status != model.RoomStatusActive {
			return nil, ErrRoomNotActive
		}
		applied, err := s.rooms.TransitionStatus(ctx, roomID, model.StatusChange{
			From:     []model.RoomStatus{model.RoomStatusActive},
			To:       model.RoomStatusPaused,
			PausedAt: &now,
		})
		if err != nil {
			return nil, fmt.Errorf("pause transition: %w", err)
		}
		if !applied {
			return nil, ErrStatusConflict
		}
		if err := s.tracker.RecordPause(ctx, roomID.String(), now); err != nil {
			s.log.Debug().Err(err).Msg("Tracker pause update failed")
		}
		s.log.Info().Str("room_id", roomID.String()).Msg("Room paused")
		return &model.ControlRoomResult{Status: model.RoomStatusPaused}, nil

	case model.ControlActionResume:
		if room.Status != model.RoomStatusPaused {
			return nil, ErrRoomNotPaused
		}
		applied, err := s.rooms.TransitionStatus(ctx, roomID, model.StatusChange{
			From:          []model.RoomStatus{model.RoomStatusPaused},
			To:            model.RoomStatusActive,
			ResumedAt:     &now,
			ClearPausedAt: true,
		})
		if err != nil {
			return nil, fmt.Errorf("resume transition: %w", err)
		}
		if !applied {
			return nil, ErrStatusConflict
		}
		if err := s.tracker.RecordResume(ctx, roomID.String(), now); err != nil {
			s.log.Debug().Err(err).Msg("Tracker resume update failed")
		}
		s.log.Info().Str("room_id", roomID.String()).Msg("Room resumed")
		return &model.ControlRoomResult{Status: model.RoomStatusActive}, nil

	case model.ControlActionEnd:
		switch room.Status {
		case model.RoomStatusWaiting:
			return nil, ErrRoomNotStarted
		case model.RoomStatusCompleted, model.RoomStatusCancelled:
			return nil, ErrRoomEnded
		}
		applied, err := s.rooms.TransitionStatus(ctx, roomID, model.StatusChange{
			From:          []model.RoomStatus{model.RoomStatusActive, model.RoomStatusPaused},
			To:            model.RoomStatusCompleted,
			CompletedAt:   &now,
			ClearPausedAt: true,
		})
		if err != nil {
			return nil, fmt.Errorf("end transition: %w", err)
		}
		if !applied {
			return nil, ErrStatusConflict
		}

		stats, err := s.finalize(ctx, room)
		if err != nil {
			return nil, fmt.Errorf("finalize room: %w", err)
		}

		if err := s.tracker.SetStatus(ctx, roomID.String(), model.RoomStatusCompleted); err != nil {
			s.log.Debug().Err(err).Msg("Tracker status update failed")
		}
		// The answer key is only needed while answers are accepted.
		if err := s.rdb.Del(ctx, config.CacheKey.RoomAnswerKey(roomID.String())).Err(); err != nil {
			s.log.Debug().Err(err).Msg("Answer key cleanup failed")
		}

		s.log.Info().
			Str("room_id", roomID.String()).
			Int("average_score", stats.AverageScore).
			Int("completion_rate", stats.CompletionRate).
			Msg("Room completed")
		return &model.ControlRoomResult{Status: model.RoomStatusCompleted, Statistics: stats}, nil

	default:
		return nil, ErrInvalidAction
	}
}

// CancelRoom cancels a waiting room. No statistics are computed.
func (s *SessionService) CancelRoom(ctx context.Context, roomID uuid.UUID, callerID int) error {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatorID != callerID {
		return ErrNotCreator
	}
	if room.Status != model.RoomStatusWaiting {
		return ErrRoomNotWaiting
	}

	now := time.Now()
	applied, err := s.rooms.TransitionStatus(ctx, roomID, model.StatusChange{
		From:        []model.RoomStatus{model.RoomStatusWaiting},
		To:          model.RoomStatusCancelled,
		CompletedAt: &now,
	})
	if err != nil {
		return fmt.Errorf("cancel transition: %w", err)
	}
	if !applied {
		return ErrStatusConflict
	}

	s.log.Info().Str("room_id", roomID.String()).Msg("Room cancelled")
	return nil
}

// GetQuizForParticipant delivers the question set for an in-progress
// room, scrubbed of correct answers, with the participant's prior
// answers and progress. The creator may fetch the quiz without joining.
func (s *SessionService) GetQuizForParticipant(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey) (*model.QuizView, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status == model.RoomStatusWaiting {
		return nil, ErrRoomNotStarted
	}
	if room.Ended() {
		return nil, ErrRoomEnded
	}

	participant, err := s.rooms.GetParticipant(ctx, roomID, key)
	if err != nil {
		if !errors.Is(err, ErrNotParticipant) {
			return nil, err
		}
		if key.IsGuest() || key.UserID != room.CreatorID {
			return nil, ErrNotParticipant
		}
		// Creator previewing their own room without joining.
		participant = nil
	}

	linkEntries, err := s.links.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list linkage: %w", err)
	}

	ids := make([]uuid.UUID, len(linkEntries))
	for i, link := range linkEntries {
		ids[i] = link.QuestionID
	}
	catalogQuestions, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Question, len(catalogQuestions))
	for i := range catalogQuestions {
		byID[catalogQuestions[i].ID] = &catalogQuestions[i]
	}

	questions := make([]model.QuestionForParticipant, 0, len(linkEntries))
	for _, link := range linkEntries {
		q, ok := byID[link.QuestionID]
		if !ok {
			// Catalog question deleted after linking; skip rather than
			// fail the whole quiz.
			continue
		}
		questions = append(questions, model.QuestionForParticipant{
			ID:               q.ID,
			QuestionText:     q.QuestionText,
			Options:          q.Options,
			OrderNum:         link.OrderNum,
			IsRequired:       link.IsRequired,
			Points:           resolvePoints(link.Points, q.Points),
			TimeLimitSeconds: resolveTimeLimit(link.TimeLimitSeconds, q.TimeLimitSeconds),
		})
	}

	if room.ShuffleQuestions {
		questions, err = s.shuffleForParticipant(ctx, room, key, questions)
		if err != nil {
			return nil, err
		}
	}

	priorAnswers, err := s.answers.ListByParticipant(ctx, roomID, key)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	if priorAnswers == nil {
		priorAnswers = []model.AnswerRecord{}
	}

	view := &model.QuizView{
		Room:          room.Summary(),
		Questions:     questions,
		Answers:       priorAnswers,
		Answered:      len(priorAnswers),
		TimeRemaining: room.TimeRemaining(time.Now()),
	}
	if participant != nil {
		view.Score = participant.Score
		view.Answered = participant.AnsweredQuestions
	} else {
		for _, a := range priorAnswers {
			view.Score += a.PointsAwarded
		}
	}

	return view, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Finalization
// ────────────────────────────────────────────────────────────────────────────

// finalize aggregates the answer ledger into the room's frozen statistics
// and per-participant final results. Runs exactly once, on the `end`
// transition winner.
func (s *SessionService) finalize(ctx context.Context, room *model.Room) (*model.RoomStatistics, error) {
	totalQuestions := room.Statistics.TotalQuestions
	if totalQuestions == 0 {
		count, err := s.links.Count(ctx, room.ID)
		if err != nil {
			return nil, fmt.Errorf("count questions: %w", err)
		}
		totalQuestions = count
	}

	records, err := s.answers.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	roster, err := s.rooms.ListParticipants(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	type tally struct {
		rawScore int
		answered int
	}
	byParticipant := make(map[model.ParticipantKey]*tally, len(roster))
	for _, rec := range records {
		t := byParticipant[rec.Participant]
		if t == nil {
			t = &tally{}
			byParticipant[rec.Participant] = t
		}
		t.rawScore += rec.PointsAwarded
		t.answered++
	}

	totalPossible := 0
	if totalQuestions > 0 {
		possible, err := s.totalPossiblePoints(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		totalPossible = possible
	}

	results := make([]model.ParticipantResult, 0, len(roster))
	completed := 0
	percentSum := 0
	for _, p := range roster {
		t := byParticipant[p.Key]
		if t == nil || t.answered == 0 {
			results = append(results, model.ParticipantResult{Key: p.Key})
			continue
		}
		percent := 0
		if totalPossible > 0 {
			percent = roundPercent(float64(t.rawScore) / float64(totalPossible))
		}
		completed++
		percentSum += percent
		results = append(results, model.ParticipantResult{
			Key:               p.Key,
			PercentScore:      percent,
			AnsweredQuestions: t.answered,
		})
	}

	stats := &model.RoomStatistics{TotalQuestions: totalQuestions}
	if completed > 0 {
		stats.AverageScore = int(math.Round(float64(percentSum) / float64(completed)))
	}
	if len(roster) > 0 {
		stats.CompletionRate = roundPercent(float64(completed) / float64(len(roster)))
	}

	if err := s.rooms.UpdateStatistics(ctx, room.ID, *stats); err != nil {
		return nil, fmt.Errorf("persist statistics: %w", err)
	}
	if len(results) > 0 {
		if err := s.rooms.SaveParticipantResults(ctx, room.ID, results); err != nil {
			return nil, fmt.Errorf("persist participant results: %w", err)
		}
	}

	return stats, nil
}

// totalPossiblePoints sums the resolved point value of every linked
// question, so percent scores stay meaningful with per-question points.
func (s *SessionService) totalPossiblePoints(ctx context.Context, roomID uuid.UUID) (int, error) {
	linkEntries, err := s.links.ListByRoom(ctx, roomID)
	if err != nil {
		return 0, fmt.Errorf("list linkage: %w", err)
	}
	ids := make([]uuid.UUID, len(linkEntries))
	for i, link := range linkEntries {
		ids[i] = link.QuestionID
	}
	catalogQuestions, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("catalog lookup: %w", err)
	}
	defaults := make(map[uuid.UUID]int, len(catalogQuestions))
	for _, q := range catalogQuestions {
		defaults[q.ID] = q.Points
	}

	total := 0
	for _, link := range linkEntries {
		total += resolvePoints(link.Points, defaults[link.QuestionID])
	}
	return total, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Answer key cache
// ────────────────────────────────────────────────────────────────────────────

// warmAnswerKey caches every linked question's grading record in a Redis
// hash so submissions grade without touching the catalog.
func (s *SessionService) warmAnswerKey(ctx context.Context, room *model.Room) error {
	linkEntries, err := s.links.ListByRoom(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("list linkage: %w", err)
	}
	ids := make([]uuid.UUID, len(linkEntries))
	for i, link := range linkEntries {
		ids[i] = link.QuestionID
	}
	catalogQuestions, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("catalog lookup: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Question, len(catalogQuestions))
	for i := range catalogQuestions {
		byID[catalogQuestions[i].ID] = &catalogQuestions[i]
	}

	entries := make(map[string]interface{}, len(linkEntries))
	for _, link := range linkEntries {
		q, ok := byID[link.QuestionID]
		if !ok {
			continue
		}
		raw, err := json.Marshal(answerKeyEntry{
			Correct:     q.CorrectAnswer,
			Points:      resolvePoints(link.Points, q.Points),
			Explanation: q.Explanation,
		})
		if err != nil {
			return fmt.Errorf("marshal key entry: %w", err)
		}
		entries[link.QuestionID.String()] = raw
	}

	key := config.CacheKey.RoomAnswerKey(room.ID.String())
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, entries)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache answer key: %w", err)
	}

	s.log.Debug().
		Str("room_id", room.ID.String()).
		Int("questions", len(entries)).
		Msg("Answer key warmed")
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────────────────────

// shuffleForParticipant returns the questions in a stable per-participant
// random order, cached in Redis so reloads see the same sequence.
func (s *SessionService) shuffleForParticipant(ctx context.Context, room *model.Room, key model.ParticipantKey, questions []model.QuestionForParticipant) ([]model.QuestionForParticipant, error) {
	cacheKey := config.CacheKey.ParticipantOrderKey(room.ID.String(), key.String())

	var order []string
	raw, err := s.rdb.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &order); err != nil {
			order = nil
		}
	case errors.Is(err, redis.Nil):
		// First fetch: shuffle and remember.
	default:
		return nil, fmt.Errorf("get shuffle order: %w", err)
	}

	if order == nil {
		order = make([]string, len(questions))
		perm := rand.Perm(len(questions))
		for i, j := range perm {
			order[i] = questions[j].ID.String()
		}
		encoded, err := json.Marshal(order)
		if err != nil {
			return nil, fmt.Errorf("marshal shuffle order: %w", err)
		}
		ttl := time.Duration(room.TimeLimitMinutes)*time.Minute + time.Hour
		if err := s.rdb.Set(ctx, cacheKey, encoded, ttl).Err(); err != nil {
			return nil, fmt.Errorf("cache shuffle order: %w", err)
		}
	}

	byID := make(map[string]model.QuestionForParticipant, len(questions))
	for _, q := range questions {
		byID[q.ID.String()] = q
	}
	shuffled := make([]model.QuestionForParticipant, 0, len(questions))
	for _, id := range order {
		if q, ok := byID[id]; ok {
			shuffled = append(shuffled, q)
			delete(byID, id)
		}
	}
	// Questions linked after the order was cached go to the end. The
	// linkage is frozen once active, so this only covers stale caches.
	for _, q := range questions {
		if _, ok := byID[q.ID.String()]; ok {
			shuffled = append(shuffled, q)
		}
	}
	return shuffled, nil
}

func resolvePoints(override *int, catalogDefault int) int {
	if override != nil {
		return *override
	}
	if catalogDefault > 0 {
		return catalogDefault
	}
	return 1
}

func resolveTimeLimit(override *int, catalogDefault int) int {
	if override != nil {
		return *override
	}
	return catalogDefault
}

func roundPercent(ratio float64) int {
	return int(math.Round(ratio * 100))
}
