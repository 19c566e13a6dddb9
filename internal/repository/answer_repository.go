package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizhive/quizroom-backend/internal/model"
)

// AnswerRepository is the PostgreSQL answer ledger store.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// RecordAnswer upserts the answer and recomputes the participant's running
// totals inside one transaction, so the ledger and the roster cannot drift
// even when the same participant submits from two tabs at once.
func (r *AnswerRepository) RecordAnswer(ctx context.Context, record *model.AnswerRecord) (model.ParticipantTotals, error) {
	var totals model.ParticipantTotals

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return totals, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO room_answers
		        (room_id, question_id, participant_key, selected_answer,
		         is_correct, points_awarded, time_spent_seconds, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (room_id, question_id, participant_key) DO UPDATE
		 SET selected_answer = EXCLUDED.selected_answer,
		     is_correct = EXCLUDED.is_correct,
		     points_awarded = EXCLUDED.points_awarded,
		     time_spent_seconds = EXCLUDED.time_spent_seconds,
		     answered_at = EXCLUDED.answered_at`,
		record.RoomID, record.QuestionID, record.Participant.String(), record.SelectedAnswer,
		record.IsCorrect, record.PointsAwarded, record.TimeSpentSeconds, record.AnsweredAt)
	if err != nil {
		return totals, err
	}

	err = tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(points_awarded), 0), COUNT(*)
		 FROM room_answers
		 WHERE room_id = $1 AND participant_key = $2`,
		record.RoomID, record.Participant.String(),
	).Scan(&totals.Score, &totals.AnsweredQuestions)
	if err != nil {
		return totals, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE room_participants
		 SET score = $3, answered_questions = $4, last_activity = $5
		 WHERE room_id = $1 AND participant_key = $2`,
		record.RoomID, record.Participant.String(),
		totals.Score, totals.AnsweredQuestions, record.AnsweredAt)
	if err != nil {
		return totals, err
	}

	return totals, tx.Commit(ctx)
}

// ListByRoom returns the room's full answer ledger.
func (r *AnswerRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.AnswerRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT room_id, question_id, participant_key, selected_answer,
		        is_correct, points_awarded, time_spent_seconds, answered_at
		 FROM room_answers
		 WHERE room_id = $1
		 ORDER BY answered_at ASC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnswers(rows)
}

// ListByParticipant returns one participant's answers in the room.
func (r *AnswerRepository) ListByParticipant(ctx context.Context, roomID uuid.UUID, key model.ParticipantKey) ([]model.AnswerRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT room_id, question_id, participant_key, selected_answer,
		        is_correct, points_awarded, time_spent_seconds, answered_at
		 FROM room_answers
		 WHERE room_id = $1 AND participant_key = $2
		 ORDER BY answered_at ASC`,
		roomID, key.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnswers(rows)
}

func scanAnswers(rows pgx.Rows) ([]model.AnswerRecord, error) {
	var records []model.AnswerRecord
	for rows.Next() {
		var record model.AnswerRecord
		var rawKey string
		if err := rows.Scan(
			&record.RoomID, &record.QuestionID, &rawKey, &record.SelectedAnswer,
			&record.IsCorrect, &record.PointsAwarded, &record.TimeSpentSeconds, &record.AnsweredAt,
		); err != nil {
			return nil, err
		}
		key, err := model.ParseParticipantKey(rawKey)
		if err != nil {
			return nil, err
		}
		record.Participant = key
		records = append(records, record)
	}
	return records, rows.Err()
}
