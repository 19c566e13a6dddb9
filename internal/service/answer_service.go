package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizhive/quizroom-backend/internal/cache"
	"github.com/quizhive/quizroom-backend/internal/config"
	"github.com/quizhive/quizroom-backend/internal/model"
)

// activityPayload is pushed to the activity queue for batched
// last-activity persistence by the worker.
type activityPayload struct {
	RoomID         string `json:"room_id"`
	ParticipantKey string `json:"participant_key"`
	Timestamp      int64  `json:"timestamp"`
}

// AnswerService accepts and grades answer submissions.
type AnswerService struct {
	rooms   RoomStore
	links   RoomQuestionStore
	catalog CatalogStore
	answers AnswerStore
	rdb     *redis.Client
	tracker *cache.SessionTracker
	cfg     *config.Config
	log     zerolog.Logger
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(
	rooms RoomStore,
	links RoomQuestionStore,
	catalog CatalogStore,
	answers AnswerStore,
	rdb *redis.Client,
	tracker *cache.SessionTracker,
	cfg *config.Config,
	log zerolog.Logger,
) *AnswerService {
	return &AnswerService{
		rooms:   rooms,
		links:   links,
		catalog: catalog,
		answers: answers,
		rdb:     rdb,
		tracker: tracker,
		cfg:     cfg,
		log:     log.With().Str("component", "answer_service").Logger(),
	}
}

// SubmitAnswer grades a submission against the authoritative answer key
// and records it with last-answer-wins semantics. The participant's
// running totals are recomputed atomically with the write.
//
// The reply always acknowledges the submission; correctness and points
// are included only with instant_feedback, the authoritative answer and
// explanation only with show_correct_answers.
func (s *AnswerService) SubmitAnswer(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey, req *model.SubmitAnswerRequest) (*model.AnswerFeedback, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != model.RoomStatusActive {
		return nil, ErrRoomNotActive
	}
	if s.cfg.EnforceAnswerDeadline && room.ScheduledEndTime != nil && time.Now().After(*room.ScheduledEndTime) {
		return nil, ErrDeadlinePassed
	}

	if err := s.ensureParticipant(ctx, room, key); err != nil {
		return nil, err
	}

	link, err := s.links.Get(ctx, roomID, req.QuestionID)
	if err != nil {
		return nil, err
	}

	entry, err := s.lookupAnswerKey(ctx, room, link)
	if err != nil {
		return nil, err
	}

	isCorrect := req.SelectedAnswer != nil && *req.SelectedAnswer == entry.Correct
	points := 0
	if isCorrect {
		points = entry.Points
	}

	rec := &model.AnswerRecord{
		RoomID:           roomID,
		QuestionID:       req.QuestionID,
		Participant:      key,
		SelectedAnswer:   req.SelectedAnswer,
		IsCorrect:        isCorrect,
		PointsAwarded:    points,
		TimeSpentSeconds: req.TimeSpentSeconds,
		AnsweredAt:       time.Now(),
	}

	totals, err := s.answers.RecordAnswer(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("record answer: %w", err)
	}

	s.touchActivity(ctx, roomID, key)
	if err := s.tracker.RecordProgress(ctx, roomID.String(), key, totals.AnsweredQuestions); err != nil {
		s.log.Debug().Err(err).Msg("Tracker progress update failed")
	}

	feedback := &model.AnswerFeedback{Submitted: true}
	if room.Settings.InstantFeedback {
		feedback.IsCorrect = &isCorrect
		feedback.PointsAwarded = &points
		feedback.TotalScore = &totals.Score
	}
	if room.Settings.ShowCorrectAnswers {
		correct := entry.Correct
		feedback.CorrectAnswer = &correct
		if entry.Explanation != "" {
			explanation := entry.Explanation
			feedback.Explanation = &explanation
		}
	}

	s.log.Debug().
		Str("room_id", roomID.String()).
		Str("participant", key.String()).
		Str("question_id", req.QuestionID.String()).
		Bool("correct", isCorrect).
		Msg("Answer recorded")
	return feedback, nil
}

// ensureParticipant verifies the submitter is on the roster. The creator
// may test their own room without joining; they get a roster entry on
// first submission so their totals have somewhere to live.
func (s *AnswerService) ensureParticipant(ctx context.Context, room *model.Room, key model.ParticipantKey) error {
	_, err := s.rooms.GetParticipant(ctx, room.ID, key)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotParticipant) {
		return err
	}
	if key.IsGuest() || key.UserID != room.CreatorID {
		return ErrNotParticipant
	}

	now := time.Now()
	return s.rooms.AddParticipant(ctx, &model.Participant{
		RoomID:       room.ID,
		Key:          key,
		DisplayName:  fmt.Sprintf("user-%d", key.UserID),
		JoinedAt:     now,
		IsActive:     true,
		LastActivity: now,
	})
}

// lookupAnswerKey reads the grading record from the Redis hash warmed at
// start, falling back to the catalog on a miss (and self-healing the
// cache).
func (s *AnswerService) lookupAnswerKey(ctx context.Context, room *model.Room, link *model.RoomQuestion) (*answerKeyEntry, error) {
	hashKey := config.CacheKey.RoomAnswerKey(room.ID.String())
	field := link.QuestionID.String()

	raw, err := s.rdb.HGet(ctx, hashKey, field).Bytes()
	if err == nil {
		entry := &answerKeyEntry{}
		if err := json.Unmarshal(raw, entry); err == nil {
			return entry, nil
		}
		// Corrupt cache entry; fall through to the catalog.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get answer key: %w", err)
	}

	question, err := s.catalog.GetByID(ctx, link.QuestionID)
	if err != nil {
		return nil, err
	}

	entry := &answerKeyEntry{
		Correct:     question.CorrectAnswer,
		Points:      resolvePoints(link.Points, question.Points),
		Explanation: question.Explanation,
	}
	if encoded, err := json.Marshal(entry); err == nil {
		if err := s.rdb.HSet(ctx, hashKey, field, encoded).Err(); err != nil {
			s.log.Debug().Err(err).Msg("Answer key self-heal failed")
		}
	}
	return entry, nil
}

// touchActivity queues a last-activity touch for batched persistence.
// Fire and forget: a lost touch only leaves the roster view stale.
func (s *AnswerService) touchActivity(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey) {
	payload, err := json.Marshal(activityPayload{
		RoomID:         roomID.String(),
		ParticipantKey: key.String(),
		Timestamp:      time.Now().Unix(),
	})
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistActivityQueue, payload).Err(); err != nil {
		s.log.Debug().Err(err).Msg("Activity enqueue failed")
	}
}
