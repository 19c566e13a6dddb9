package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizhive/quizroom-backend/internal/model"
)

// RoomQuestionService manages the ordered linkage between a room and the
// question catalog. All mutations require the creator and a waiting room;
// once the room starts, the set and order are frozen.
type RoomQuestionService struct {
	rooms   RoomStore
	links   RoomQuestionStore
	catalog CatalogStore
	log     zerolog.Logger
}

// NewRoomQuestionService creates a new RoomQuestionService.
func NewRoomQuestionService(rooms RoomStore, links RoomQuestionStore, catalog CatalogStore, log zerolog.Logger) *RoomQuestionService {
	return &RoomQuestionService{
		rooms:   rooms,
		links:   links,
		catalog: catalog,
		log:     log.With().Str("component", "room_question_service").Logger(),
	}
}

// AddQuestions links catalog questions into the room. Every id must exist
// in the catalog and be owned by the caller or public. New links get the
// next contiguous order values; with replaceAll the existing linkage is
// cleared first and numbering restarts at 1.
func (s *RoomQuestionService) AddQuestions(ctx context.Context, roomID uuid.UUID, callerID int, questionIDs []uuid.UUID, replaceAll bool) (int, error) {
	if _, err := s.guardMutable(ctx, roomID, callerID); err != nil {
		return 0, err
	}

	questions, err := s.catalog.GetByIDs(ctx, questionIDs)
	if err != nil {
		return 0, fmt.Errorf("catalog lookup: %w", err)
	}
	if len(questions) != len(questionIDs) {
		return 0, ErrQuestionNotAccessible
	}
	for i := range questions {
		if !questions[i].AccessibleTo(callerID) {
			return 0, ErrQuestionNotAccessible
		}
	}

	nextOrder := 1
	if replaceAll {
		if err := s.links.DeleteByRoom(ctx, roomID); err != nil {
			return 0, fmt.Errorf("clear linkage: %w", err)
		}
	} else {
		maxOrder, err := s.links.MaxOrder(ctx, roomID)
		if err != nil {
			return 0, fmt.Errorf("max order: %w", err)
		}
		nextOrder = maxOrder + 1
	}

	now := time.Now()
	entries := make([]model.RoomQuestion, len(questionIDs))
	for i, qid := range questionIDs {
		entries[i] = model.RoomQuestion{
			RoomID:     roomID,
			QuestionID: qid,
			OrderNum:   nextOrder + i,
			IsRequired: true,
			AddedAt:    now,
			AddedBy:    callerID,
		}
	}
	if err := s.links.Add(ctx, entries); err != nil {
		return 0, err
	}

	total, err := s.refreshTotal(ctx, roomID)
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Str("room_id", roomID.String()).
		Int("added", len(entries)).
		Bool("replace_all", replaceAll).
		Int("total", total).
		Msg("Questions linked")
	return total, nil
}

// RemoveQuestions unlinks questions from the room. Remaining order values
// are not resequenced: order is a sort key, not a dense index, so gaps
// are acceptable.
func (s *RoomQuestionService) RemoveQuestions(ctx context.Context, roomID uuid.UUID, callerID int, questionIDs []uuid.UUID) (int, error) {
	if _, err := s.guardMutable(ctx, roomID, callerID); err != nil {
		return 0, err
	}

	removed, err := s.links.Remove(ctx, roomID, questionIDs)
	if err != nil {
		return 0, fmt.Errorf("remove linkage: %w", err)
	}

	total, err := s.refreshTotal(ctx, roomID)
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Str("room_id", roomID.String()).
		Int("removed", removed).
		Int("total", total).
		Msg("Questions unlinked")
	return total, nil
}

// ReorderQuestions applies new order values and optional per-room
// overrides. The batch is rejected if any referenced question is not
// linked or if the resulting order values collide.
func (s *RoomQuestionService) ReorderQuestions(ctx context.Context, roomID uuid.UUID, callerID int, entries []model.ReorderEntry) error {
	if _, err := s.guardMutable(ctx, roomID, callerID); err != nil {
		return err
	}

	existing, err := s.links.ListByRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("list linkage: %w", err)
	}

	orders := make(map[uuid.UUID]int, len(existing))
	for _, link := range existing {
		orders[link.QuestionID] = link.OrderNum
	}

	updates := make([]model.RoomQuestionUpdate, len(entries))
	for i, e := range entries {
		if _, ok := orders[e.QuestionID]; !ok {
			return ErrQuestionNotFound
		}
		orders[e.QuestionID] = e.OrderNum
		updates[i] = model.RoomQuestionUpdate{
			QuestionID:       e.QuestionID,
			OrderNum:         e.OrderNum,
			TimeLimitSeconds: e.TimeLimitSeconds,
			Points:           e.Points,
		}
	}

	// Order values must stay unique across the whole linkage, not just
	// within the submitted entries.
	seen := make(map[int]bool, len(orders))
	for _, order := range orders {
		if seen[order] {
			return ErrDuplicateOrder
		}
		seen[order] = true
	}

	if err := s.links.UpdateEntries(ctx, roomID, updates); err != nil {
		return err
	}

	s.log.Info().
		Str("room_id", roomID.String()).
		Int("entries", len(entries)).
		Msg("Questions reordered")
	return nil
}

// ListQuestions returns the room's linkage for the creator.
func (s *RoomQuestionService) ListQuestions(ctx context.Context, roomID uuid.UUID, callerID int) ([]model.RoomQuestion, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != callerID {
		return nil, ErrNotCreator
	}
	return s.links.ListByRoom(ctx, roomID)
}

// guardMutable checks the shared preconditions for linkage mutations.
func (s *RoomQuestionService) guardMutable(ctx context.Context, roomID uuid.UUID, callerID int) (*model.Room, error) {
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
	return room, nil
}

// refreshTotal recomputes the cached question count so status readers
// never join across stores for a count.
func (s *RoomQuestionService) refreshTotal(ctx context.Context, roomID uuid.UUID) (int, error) {
	total, err := s.links.Count(ctx, roomID)
	if err != nil {
		return 0, fmt.Errorf("count linkage: %w", err)
	}
	if err := s.rooms.SetTotalQuestions(ctx, roomID, total); err != nil {
		return 0, fmt.Errorf("persist question count: %w", err)
	}
	return total, nil
}
