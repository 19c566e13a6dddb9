package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizhive/quizroom-backend/internal/model"
	"github.com/quizhive/quizroom-backend/internal/service"
)

const roomColumns = `id, code, creator_id, title, description, category, difficulty,
	max_participants, time_limit_minutes, is_public, allow_late_join,
	show_leaderboard, shuffle_questions, allow_chat, allow_question_skip,
	show_correct_answers, instant_feedback, scheduled_start_time, status,
	created_at, started_at, paused_at, resumed_at, completed_at,
	scheduled_end_time, total_questions, average_score, completion_rate`

// RoomRepository is the PostgreSQL room store.
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// Create inserts a new room. A code collision maps to ErrRoomCodeTaken so
// the service can retry with a fresh code.
func (r *RoomRepository) Create(ctx context.Context, room *model.Room) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO rooms (code, creator_id, title, description, category, difficulty,
		        max_participants, time_limit_minutes, is_public, allow_late_join,
		        show_leaderboard, shuffle_questions, allow_chat, allow_question_skip,
		        show_correct_answers, instant_feedback, scheduled_start_time, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 RETURNING id, created_at`,
		room.Code, room.CreatorID, room.Title, room.Description, room.Category, room.Difficulty,
		room.MaxParticipants, room.TimeLimitMinutes, room.IsPublic, room.AllowLateJoin,
		room.ShowLeaderboard, room.ShuffleQuestions, room.Settings.AllowChat, room.Settings.AllowQuestionSkip,
		room.Settings.ShowCorrectAnswers, room.Settings.InstantFeedback, room.ScheduledStartTime, room.Status,
	).Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrRoomCodeTaken
		}
		return err
	}
	return nil
}

// GetByID retrieves a room by its UUID.
func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	return scanRoom(row)
}

// GetByCode retrieves a room by its shareable code, case-insensitively.
func (r *RoomRepository) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE LOWER(code) = LOWER($1)`, code)
	return scanRoom(row)
}

// UpdateConfig persists a waiting room's configuration fields.
func (r *RoomRepository) UpdateConfig(ctx context.Context, room *model.Room) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE rooms
		 SET title = $1, description = $2, category = $3, difficulty = $4,
		     max_participants = $5, time_limit_minutes = $6, is_public = $7,
		     allow_late_join = $8, show_leaderboard = $9, shuffle_questions = $10,
		     allow_chat = $11, allow_question_skip = $12, show_correct_answers = $13,
		     instant_feedback = $14, scheduled_start_time = $15
		 WHERE id = $16`,
		room.Title, room.Description, room.Category, room.Difficulty,
		room.MaxParticipants, room.TimeLimitMinutes, room.IsPublic,
		room.AllowLateJoin, room.ShowLeaderboard, room.ShuffleQuestions,
		room.Settings.AllowChat, room.Settings.AllowQuestionSkip, room.Settings.ShowCorrectAnswers,
		room.Settings.InstantFeedback, room.ScheduledStartTime, room.ID)
	return err
}

// TransitionStatus performs the optimistic compare-and-swap on the stored
// status. Returns false when the room's status no longer matches any of
// change.From at write time.
func (r *RoomRepository) TransitionStatus(ctx context.Context, roomID uuid.UUID, change model.StatusChange) (bool, error) {
	set := []string{"status = $1"}
	args := []any{string(change.To)}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if change.StartedAt != nil {
		add("started_at", *change.StartedAt)
	}
	if change.PausedAt != nil {
		add("paused_at", *change.PausedAt)
	}
	if change.ResumedAt != nil {
		add("resumed_at", *change.ResumedAt)
	}
	if change.CompletedAt != nil {
		add("completed_at", *change.CompletedAt)
	}
	if change.ScheduledEndTime != nil {
		add("scheduled_end_time", *change.ScheduledEndTime)
	}
	if change.ClearPausedAt {
		set = append(set, "paused_at = NULL")
	}

	from := make([]string, len(change.From))
	for i, status := range change.From {
		from[i] = string(status)
	}
	args = append(args, roomID, from)

	query := fmt.Sprintf(
		"UPDATE rooms SET %s WHERE id = $%d AND status = ANY($%d)",
		strings.Join(set, ", "), len(args)-1, len(args),
	)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetTotalQuestions refreshes the cached linkage count on the room.
func (r *RoomRepository) SetTotalQuestions(ctx context.Context, roomID uuid.UUID, total int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE rooms SET total_questions = $1 WHERE id = $2`, total, roomID)
	return err
}

// UpdateStatistics writes the frozen end-of-room aggregates.
func (r *RoomRepository) UpdateStatistics(ctx context.Context, roomID uuid.UUID, stats model.RoomStatistics) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE rooms
		 SET total_questions = $1, average_score = $2, completion_rate = $3
		 WHERE id = $4`,
		stats.TotalQuestions, stats.AverageScore, stats.CompletionRate, roomID)
	return err
}

// AddParticipant inserts a roster entry. Concurrent duplicate joins are
// absorbed by the primary key; the existing entry wins.
func (r *RoomRepository) AddParticipant(ctx context.Context, p *model.Participant) error {
	var userID *int
	var guestName *string
	if p.Key.IsGuest() {
		guestName = &p.Key.GuestName
	} else {
		userID = &p.Key.UserID
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO room_participants
		        (room_id, participant_key, user_id, guest_name, display_name,
		         joined_at, is_active, score, answered_questions, last_activity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8)
		 ON CONFLICT (room_id, participant_key) DO NOTHING`,
		p.RoomID, p.Key.String(), userID, guestName, p.DisplayName,
		p.JoinedAt, p.IsActive, p.LastActivity)
	return err
}

// GetParticipant retrieves a roster entry by its key.
func (r *RoomRepository) GetParticipant(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey) (*model.Participant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT room_id, participant_key, display_name, joined_at, is_active,
		        score, answered_questions, last_activity
		 FROM room_participants
		 WHERE room_id = $1 AND participant_key = $2`,
		roomID, key.String())
	return scanParticipant(row)
}

// ListParticipants retrieves the full roster, newest joiners last.
func (r *RoomRepository) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]model.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT room_id, participant_key, display_name, joined_at, is_active,
		        score, answered_questions, last_activity
		 FROM room_participants
		 WHERE room_id = $1
		 ORDER BY joined_at ASC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, *p)
	}
	return participants, rows.Err()
}

// CountParticipants counts the roster, for capacity checks.
func (r *RoomRepository) CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM room_participants WHERE room_id = $1`, roomID,
	).Scan(&count)
	return count, err
}

// MarkParticipantActive reactivates a roster entry on re-join.
func (r *RoomRepository) MarkParticipantActive(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE room_participants
		 SET is_active = true, last_activity = NOW()
		 WHERE room_id = $1 AND participant_key = $2`,
		roomID, key.String())
	return err
}

// SaveParticipantResults bulk-writes the final percent scores and
// answered counts using UNNEST, one round trip for the whole roster.
func (r *RoomRepository) SaveParticipantResults(ctx context.Context, roomID uuid.UUID, results []model.ParticipantResult) error {
	n := len(results)
	keys := make([]string, n)
	percents := make([]int, n)
	answered := make([]int, n)
	for i, res := range results {
		keys[i] = res.Key.String()
		percents[i] = res.PercentScore
		answered[i] = res.AnsweredQuestions
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE room_participants AS p
		 SET score = t.percent,
		     answered_questions = t.answered
		 FROM (
			SELECT u.participant_key, u.percent, u.answered
			FROM UNNEST($2::text[], $3::int[], $4::int[]) AS u (participant_key, percent, answered)
		 ) AS t
		 WHERE p.room_id = $1
		   AND p.participant_key = t.participant_key`,
		roomID, keys, percents, answered)
	return err
}

// ----------------------------------------------------------------
// Scan helpers
// ----------------------------------------------------------------

func scanRoom(row pgx.Row) (*model.Room, error) {
	room := &model.Room{}
	err := row.Scan(
		&room.ID, &room.Code, &room.CreatorID, &room.Title, &room.Description,
		&room.Category, &room.Difficulty, &room.MaxParticipants, &room.TimeLimitMinutes,
		&room.IsPublic, &room.AllowLateJoin, &room.ShowLeaderboard, &room.ShuffleQuestions,
		&room.Settings.AllowChat, &room.Settings.AllowQuestionSkip,
		&room.Settings.ShowCorrectAnswers, &room.Settings.InstantFeedback,
		&room.ScheduledStartTime, &room.Status, &room.CreatedAt,
		&room.StartedAt, &room.PausedAt, &room.ResumedAt, &room.CompletedAt,
		&room.ScheduledEndTime, &room.Statistics.TotalQuestions,
		&room.Statistics.AverageScore, &room.Statistics.CompletionRate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

func scanParticipant(row pgx.Row) (*model.Participant, error) {
	p := &model.Participant{}
	var rawKey string
	err := row.Scan(
		&p.RoomID, &rawKey, &p.DisplayName, &p.JoinedAt, &p.IsActive,
		&p.Score, &p.AnsweredQuestions, &p.LastActivity,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrNotParticipant
	}
	if err != nil {
		return nil, err
	}
	key, err := model.ParseParticipantKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("parse participant key %q: %w", rawKey, err)
	}
	p.Key = key
	return p, nil
}
