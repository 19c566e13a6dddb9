// Package memstore provides in-memory implementations of the storage
// interfaces, backed by a single mutex. It mirrors the transactional
// guarantees of the SQL stores (status CAS, atomic answer upserts) and is
// used by tests and local development.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quizhive/quizroom-backend/internal/model"
	"github.com/quizhive/quizroom-backend/internal/service"
)

type answerKey struct {
	questionID  uuid.UUID
	participant string
}

// Store holds rooms, rosters, question linkages and the answer ledger.
// Store itself is the room store; Links() and Answers() expose the
// linkage and ledger views, all sharing one lock.
type Store struct {
	mu           sync.Mutex
	rooms        map[uuid.UUID]*model.Room
	codes        map[string]uuid.UUID
	participants map[uuid.UUID]map[string]*model.Participant
	links        map[uuid.UUID]map[uuid.UUID]*model.RoomQuestion
	answers      map[uuid.UUID]map[answerKey]*model.AnswerRecord
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		rooms:        make(map[uuid.UUID]*model.Room),
		codes:        make(map[string]uuid.UUID),
		participants: make(map[uuid.UUID]map[string]*model.Participant),
		links:        make(map[uuid.UUID]map[uuid.UUID]*model.RoomQuestion),
		answers:      make(map[uuid.UUID]map[answerKey]*model.AnswerRecord),
	}
}

// Links returns the room-question linkage view.
func (s *Store) Links() *LinkStore { return &LinkStore{s: s} }

// Answers returns the answer ledger view.
func (s *Store) Answers() *AnswerLedger { return &AnswerLedger{s: s} }

// ----------------------------------------------------------------
// RoomStore
// ----------------------------------------------------------------

func (s *Store) Create(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.ToLower(room.Code)
	if _, taken := s.codes[code]; taken {
		return service.ErrRoomCodeTaken
	}
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}

	clone := *room
	s.rooms[room.ID] = &clone
	s.codes[code] = room.ID
	s.participants[room.ID] = make(map[string]*model.Participant)
	s.links[room.ID] = make(map[uuid.UUID]*model.RoomQuestion)
	s.answers[room.ID] = make(map[answerKey]*model.AnswerRecord)
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomLocked(id)
}

func (s *Store) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.codes[strings.ToLower(code)]
	if !ok {
		return nil, service.ErrRoomNotFound
	}
	return s.roomLocked(id)
}

func (s *Store) UpdateConfig(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.rooms[room.ID]
	if !ok {
		return service.ErrRoomNotFound
	}
	clone := *room
	clone.Status = stored.Status
	clone.Statistics = stored.Statistics
	s.rooms[room.ID] = &clone
	return nil
}

func (s *Store) TransitionStatus(ctx context.Context, roomID uuid.UUID, change model.StatusChange) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return false, service.ErrRoomNotFound
	}

	matched := false
	for _, from := range change.From {
		if room.Status == from {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	room.Status = change.To
	if change.StartedAt != nil {
		room.StartedAt = change.StartedAt
	}
	if change.PausedAt != nil {
		room.PausedAt = change.PausedAt
	}
	if change.ResumedAt != nil {
		room.ResumedAt = change.ResumedAt
	}
	if change.CompletedAt != nil {
		room.CompletedAt = change.CompletedAt
	}
	if change.ScheduledEndTime != nil {
		room.ScheduledEndTime = change.ScheduledEndTime
	}
	if change.ClearPausedAt {
		room.PausedAt = nil
	}
	return true, nil
}

func (s *Store) SetTotalQuestions(ctx context.Context, roomID uuid.UUID, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return service.ErrRoomNotFound
	}
	room.Statistics.TotalQuestions = total
	return nil
}

func (s *Store) UpdateStatistics(ctx context.Context, roomID uuid.UUID, stats model.RoomStatistics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return service.ErrRoomNotFound
	}
	room.Statistics = stats
	return nil
}

func (s *Store) AddParticipant(ctx context.Context, p *model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster, ok := s.participants[p.RoomID]
	if !ok {
		return service.ErrRoomNotFound
	}
	key := p.Key.String()
	if _, exists := roster[key]; exists {
		return nil
	}
	clone := *p
	roster[key] = &clone
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey) (*model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[roomID][key.String()]
	if !ok {
		return nil, service.ErrNotParticipant
	}
	clone := *p
	return &clone, nil
}

func (s *Store) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster := s.participants[roomID]
	out := make([]model.Participant, 0, len(roster))
	for _, p := range roster {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].Key.String() < out[j].Key.String()
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (s *Store) CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants[roomID]), nil
}

func (s *Store) MarkParticipantActive(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[roomID][key.String()]
	if !ok {
		return service.ErrNotParticipant
	}
	p.IsActive = true
	p.LastActivity = time.Now()
	return nil
}

func (s *Store) SaveParticipantResults(ctx context.Context, roomID uuid.UUID, results []model.ParticipantResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster := s.participants[roomID]
	for _, res := range results {
		p, ok := roster[res.Key.String()]
		if !ok {
			continue
		}
		p.Score = res.PercentScore
		p.AnsweredQuestions = res.AnsweredQuestions
	}
	return nil
}

func (s *Store) roomLocked(id uuid.UUID) (*model.Room, error) {
	room, ok := s.rooms[id]
	if !ok {
		return nil, service.ErrRoomNotFound
	}
	clone := *room
	return &clone, nil
}

// ----------------------------------------------------------------
// RoomQuestionStore
// ----------------------------------------------------------------

// LinkStore is the room-question linkage view of a Store.
type LinkStore struct {
	s *Store
}

func (l *LinkStore) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.RoomQuestion, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	out := make([]model.RoomQuestion, 0, len(l.s.links[roomID]))
	for _, link := range l.s.links[roomID] {
		out = append(out, *link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	return out, nil
}

func (l *LinkStore) Get(ctx context.Context, roomID, questionID uuid.UUID) (*model.RoomQuestion, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	link, ok := l.s.links[roomID][questionID]
	if !ok {
		return nil, service.ErrQuestionNotFound
	}
	clone := *link
	return &clone, nil
}

func (l *LinkStore) Add(ctx context.Context, links []model.RoomQuestion) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	if len(links) == 0 {
		return nil
	}
	existing := l.s.links[links[0].RoomID]

	orders := make(map[int]bool, len(existing))
	for _, link := range existing {
		orders[link.OrderNum] = true
	}
	seen := make(map[uuid.UUID]bool, len(links))
	for _, link := range links {
		if _, dup := existing[link.QuestionID]; dup || seen[link.QuestionID] {
			return service.ErrQuestionAlreadyLinked
		}
		if orders[link.OrderNum] {
			return service.ErrDuplicateOrder
		}
		seen[link.QuestionID] = true
		orders[link.OrderNum] = true
	}

	for _, link := range links {
		clone := link
		existing[link.QuestionID] = &clone
	}
	return nil
}

func (l *LinkStore) Remove(ctx context.Context, roomID uuid.UUID, questionIDs []uuid.UUID) (int, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	removed := 0
	for _, id := range questionIDs {
		if _, ok := l.s.links[roomID][id]; ok {
			delete(l.s.links[roomID], id)
			removed++
		}
	}
	return removed, nil
}

func (l *LinkStore) DeleteByRoom(ctx context.Context, roomID uuid.UUID) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.links[roomID] = make(map[uuid.UUID]*model.RoomQuestion)
	return nil
}

func (l *LinkStore) UpdateEntries(ctx context.Context, roomID uuid.UUID, entries []model.RoomQuestionUpdate) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	existing := l.s.links[roomID]

	// Stage on clones; commit only if every entry resolves and the
	// resulting order set stays unique.
	staged := make(map[uuid.UUID]*model.RoomQuestion, len(existing))
	for id, link := range existing {
		clone := *link
		staged[id] = &clone
	}
	for _, entry := range entries {
		link, ok := staged[entry.QuestionID]
		if !ok {
			return service.ErrQuestionNotFound
		}
		link.OrderNum = entry.OrderNum
		if entry.TimeLimitSeconds != nil {
			link.TimeLimitSeconds = entry.TimeLimitSeconds
		}
		if entry.Points != nil {
			link.Points = entry.Points
		}
	}
	orders := make(map[int]bool, len(staged))
	for _, link := range staged {
		if orders[link.OrderNum] {
			return service.ErrDuplicateOrder
		}
		orders[link.OrderNum] = true
	}

	l.s.links[roomID] = staged
	return nil
}

func (l *LinkStore) Count(ctx context.Context, roomID uuid.UUID) (int, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return len(l.s.links[roomID]), nil
}

func (l *LinkStore) MaxOrder(ctx context.Context, roomID uuid.UUID) (int, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	max := 0
	for _, link := range l.s.links[roomID] {
		if link.OrderNum > max {
			max = link.OrderNum
		}
	}
	return max, nil
}

// ----------------------------------------------------------------
// AnswerStore
// ----------------------------------------------------------------

// AnswerLedger is the answer ledger view of a Store.
type AnswerLedger struct {
	s *Store
}

func (a *AnswerLedger) RecordAnswer(ctx context.Context, rec *model.AnswerRecord) (model.ParticipantTotals, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	ledger, ok := a.s.answers[rec.RoomID]
	if !ok {
		return model.ParticipantTotals{}, service.ErrRoomNotFound
	}

	clone := *rec
	ledger[answerKey{rec.QuestionID, rec.Participant.String()}] = &clone

	var totals model.ParticipantTotals
	for key, stored := range ledger {
		if key.participant == rec.Participant.String() {
			totals.Score += stored.PointsAwarded
			totals.AnsweredQuestions++
		}
	}

	if p, ok := a.s.participants[rec.RoomID][rec.Participant.String()]; ok {
		p.Score = totals.Score
		p.AnsweredQuestions = totals.AnsweredQuestions
		p.LastActivity = rec.AnsweredAt
	}
	return totals, nil
}

func (a *AnswerLedger) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.AnswerRecord, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	out := make([]model.AnswerRecord, 0, len(a.s.answers[roomID]))
	for _, rec := range a.s.answers[roomID] {
		out = append(out, *rec)
	}
	sortAnswers(out)
	return out, nil
}

func (a *AnswerLedger) ListByParticipant(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey) ([]model.AnswerRecord, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	var out []model.AnswerRecord
	for k, rec := range a.s.answers[roomID] {
		if k.participant == key.String() {
			out = append(out, *rec)
		}
	}
	sortAnswers(out)
	return out, nil
}

func sortAnswers(records []model.AnswerRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].AnsweredAt.Equal(records[j].AnsweredAt) {
			return records[i].QuestionID.String() < records[j].QuestionID.String()
		}
		return records[i].AnsweredAt.Before(records[j].AnsweredAt)
	})
}
