package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizhive/quizroom-backend/internal/cache"
	"github.com/quizhive/quizroom-backend/internal/model"
)

// codeAlphabet excludes ambiguous characters (0/O, 1/I/L).
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength   = 6

	defaultMaxParticipants = 50
	defaultDifficulty      = "medium"
)

// RoomService handles room creation, configuration, joining and status
// polling.
type RoomService struct {
	rooms   RoomStore
	links   RoomQuestionStore
	tracker *cache.SessionTracker
	log     zerolog.Logger
}

// NewRoomService creates a new RoomService.
func NewRoomService(rooms RoomStore, links RoomQuestionStore, tracker *cache.SessionTracker, log zerolog.Logger) *RoomService {
	return &RoomService{
		rooms:   rooms,
		links:   links,
		tracker: tracker,
		log:     log.With().Str("component", "room_service").Logger(),
	}
}

// CreateRoom creates a new waiting room with a unique shareable code.
func (s *RoomService) CreateRoom(ctx context.Context, creatorID int, req *model.CreateRoomRequest) (*model.Room, error) {
	room := &model.Room{
		CreatorID:          creatorID,
		Title:              req.Title,
		Description:        req.Description,
		Category:           req.Category,
		Difficulty:         req.Difficulty,
		MaxParticipants:    req.MaxParticipants,
		TimeLimitMinutes:   req.TimeLimitMinutes,
		IsPublic:           req.IsPublic,
		AllowLateJoin:      true,
		ShowLeaderboard:    true,
		ShuffleQuestions:   req.ShuffleQuestions,
		ScheduledStartTime: req.ScheduledStartTime,
		Status:             model.RoomStatusWaiting,
		Settings: model.RoomSettings{
			AllowChat:         true,
			AllowQuestionSkip: true,
			InstantFeedback:   true,
		},
	}
	if room.MaxParticipants == 0 {
		room.MaxParticipants = defaultMaxParticipants
	}
	if room.Difficulty == "" {
		room.Difficulty = defaultDifficulty
	}
	if req.AllowLateJoin != nil {
		room.AllowLateJoin = *req.AllowLateJoin
	}
	if req.ShowLeaderboard != nil {
		room.ShowLeaderboard = *req.ShowLeaderboard
	}
	if req.Settings != nil {
		room.Settings = *req.Settings
	}

	// Codes are unique case-insensitively; retry on the rare collision.
	for attempt := 0; attempt < 5; attempt++ {
		code, err := generateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		room.Code = code

		err = s.rooms.Create(ctx, room)
		if errors.Is(err, ErrRoomCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}

		s.log.Info().
			Str("room_id", room.ID.String()).
			Str("code", room.Code).
			Int("creator_id", creatorID).
			Msg("Room created")
		return room, nil
	}

	return nil, ErrRoomCodeTaken
}

// GetRoom returns the full room record to its creator.
func (s *RoomService) GetRoom(ctx context.Context, roomID uuid.UUID, callerID int) (*model.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != callerID {
		return nil, ErrNotCreator
	}
	return room, nil
}

// GetRoomByCode resolves a shareable code to a public room summary.
func (s *RoomService) GetRoomByCode(ctx context.Context, code string) (*model.RoomSummary, error) {
	room, err := s.rooms.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	summary := room.Summary()
	return &summary, nil
}

// UpdateConfig modifies a waiting room's configuration. Configuration is
// immutable once the room leaves the waiting state.
func (s *RoomService) UpdateConfig(ctx context.Context, roomID uuid.UUID, callerID int, req *model.UpdateRoomRequest) (*model.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != callerID {
		return nil, ErrNotCreator
	}
	if room.Locked() {
		return nil, ErrRoomLocked
	}

	if req.Title != "" {
		room.Title = req.Title
	}
	if req.Description != nil {
		room.Description = *req.Description
	}
	if req.Category != nil {
		room.Category = *req.Category
	}
	if req.Difficulty != "" {
		room.Difficulty = req.Difficulty
	}
	if req.MaxParticipants != nil {
		room.MaxParticipants = *req.MaxParticipants
	}
	if req.TimeLimitMinutes != nil {
		room.TimeLimitMinutes = *req.TimeLimitMinutes
	}
	if req.IsPublic != nil {
		room.IsPublic = *req.IsPublic
	}
	if req.AllowLateJoin != nil {
		room.AllowLateJoin = *req.AllowLateJoin
	}
	if req.ShowLeaderboard != nil {
		room.ShowLeaderboard = *req.ShowLeaderboard
	}
	if req.ShuffleQuestions != nil {
		room.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.Settings != nil {
		room.Settings = *req.Settings
	}
	if req.ScheduledStartTime != nil {
		room.ScheduledStartTime = req.ScheduledStartTime
	}

	if err := s.rooms.UpdateConfig(ctx, room); err != nil {
		return nil, fmt.Errorf("update room config: %w", err)
	}
	return room, nil
}

// JoinRoom adds a participant to the roster. Re-joining is idempotent:
// the existing entry is reactivated and returned.
func (s *RoomService) JoinRoom(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey, displayName string) (*model.Participant, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Ended() {
		return nil, ErrRoomEnded
	}
	if room.Status != model.RoomStatusWaiting && !room.AllowLateJoin {
		return nil, ErrLateJoinClosed
	}

	// Idempotent re-join for a known participant.
	existing, err := s.rooms.GetParticipant(ctx, roomID, key)
	if err == nil {
		if err := s.rooms.MarkParticipantActive(ctx, roomID, key); err != nil {
			return nil, fmt.Errorf("reactivate participant: %w", err)
		}
		existing.IsActive = true
		return existing, nil
	}
	if !errors.Is(err, ErrNotParticipant) {
		return nil, err
	}

	count, err := s.rooms.CountParticipants(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	if count >= room.MaxParticipants {
		return nil, ErrRoomFull
	}

	if displayName == "" {
		if key.IsGuest() {
			displayName = key.GuestName
		} else {
			displayName = fmt.Sprintf("user-%d", key.UserID)
		}
	}

	now := time.Now()
	participant := &model.Participant{
		RoomID:       roomID,
		Key:          key,
		DisplayName:  displayName,
		JoinedAt:     now,
		IsActive:     true,
		LastActivity: now,
	}
	if err := s.rooms.AddParticipant(ctx, participant); err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}

	s.log.Debug().
		Str("room_id", roomID.String()).
		Str("participant", key.String()).
		Msg("Participant joined")
	return participant, nil
}

// GetRoomStatus is the polling endpoint's payload: room summary, roster,
// statistics, remaining time and the session tracking snapshot. Expiry is
// detected lazily here — there is no background timer.
func (s *RoomService) GetRoomStatus(ctx context.Context, roomID uuid.UUID) (*model.RoomStatusInfo, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	participants, err := s.rooms.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	if participants == nil {
		participants = []model.Participant{}
	}

	info := &model.RoomStatusInfo{
		Room:          room.Summary(),
		Participants:  participants,
		Statistics:    room.Statistics,
		TimeRemaining: room.TimeRemaining(time.Now()),
	}

	// Session tracking is best-effort cache; a miss is not an error.
	session, err := s.tracker.Snapshot(ctx, roomID.String())
	if err != nil {
		s.log.Debug().Err(err).Str("room_id", roomID.String()).Msg("Session snapshot unavailable")
	} else {
		info.Session = session
	}

	return info, nil
}

func generateRoomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, codeLength)
	for i, b := range buf {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code), nil
}
