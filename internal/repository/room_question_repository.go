package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizhive/quizroom-backend/internal/model"
	"github.com/quizhive/quizroom-backend/internal/service"
)

// RoomQuestionRepository is the PostgreSQL room-question linkage store.
type RoomQuestionRepository struct {
	pool *pgxpool.Pool
}

// NewRoomQuestionRepository creates a new RoomQuestionRepository.
func NewRoomQuestionRepository(pool *pgxpool.Pool) *RoomQuestionRepository {
	return &RoomQuestionRepository{pool: pool}
}

// ListByRoom returns all linkage rows ordered by their play order.
func (r *RoomQuestionRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.RoomQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT room_id, question_id, order_num, is_required,
		        time_limit_seconds, points, added_at, added_by
		 FROM room_questions
		 WHERE room_id = $1
		 ORDER BY order_num ASC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []model.RoomQuestion
	for rows.Next() {
		var link model.RoomQuestion
		if err := rows.Scan(
			&link.RoomID, &link.QuestionID, &link.OrderNum, &link.IsRequired,
			&link.TimeLimitSeconds, &link.Points, &link.AddedAt, &link.AddedBy,
		); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// Get retrieves a single linkage row.
func (r *RoomQuestionRepository) Get(ctx context.Context, roomID, questionID uuid.UUID) (*model.RoomQuestion, error) {
	link := &model.RoomQuestion{}
	err := r.pool.QueryRow(ctx,
		`SELECT room_id, question_id, order_num, is_required,
		        time_limit_seconds, points, added_at, added_by
		 FROM room_questions
		 WHERE room_id = $1 AND question_id = $2`,
		roomID, questionID,
	).Scan(
		&link.RoomID, &link.QuestionID, &link.OrderNum, &link.IsRequired,
		&link.TimeLimitSeconds, &link.Points, &link.AddedAt, &link.AddedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

// Add inserts linkage rows in one transaction. A duplicate question maps
// to ErrQuestionAlreadyLinked and a duplicate order to ErrDuplicateOrder.
func (r *RoomQuestionRepository) Add(ctx context.Context, links []model.RoomQuestion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, link := range links {
		_, err := tx.Exec(ctx,
			`INSERT INTO room_questions
			        (room_id, question_id, order_num, is_required,
			         time_limit_seconds, points, added_at, added_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			link.RoomID, link.QuestionID, link.OrderNum, link.IsRequired,
			link.TimeLimitSeconds, link.Points, link.AddedAt, link.AddedBy)
		if err != nil {
			return mapLinkageError(err)
		}
	}
	return tx.Commit(ctx)
}

// Remove deletes the given questions from the room and reports how many
// rows were actually removed.
func (r *RoomQuestionRepository) Remove(ctx context.Context, roomID uuid.UUID, questionIDs []uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM room_questions
		 WHERE room_id = $1 AND question_id = ANY($2)`,
		roomID, questionIDs)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteByRoom clears the room's entire linkage, used by replace-all adds.
func (r *RoomQuestionRepository) DeleteByRoom(ctx context.Context, roomID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM room_questions WHERE room_id = $1`, roomID)
	return err
}

// UpdateEntries applies order and override changes atomically. The order
// uniqueness constraint is deferred, so swapping two positions inside the
// transaction does not trip it; a genuine duplicate surfaces at commit.
func (r *RoomQuestionRepository) UpdateEntries(ctx context.Context, roomID uuid.UUID, entries []model.RoomQuestionUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, entry := range entries {
		tag, err := tx.Exec(ctx,
			`UPDATE room_questions
			 SET order_num = $3,
			     time_limit_seconds = COALESCE($4, time_limit_seconds),
			     points = COALESCE($5, points)
			 WHERE room_id = $1 AND question_id = $2`,
			roomID, entry.QuestionID, entry.OrderNum,
			entry.TimeLimitSeconds, entry.Points)
		if err != nil {
			return mapLinkageError(err)
		}
		if tag.RowsAffected() == 0 {
			return service.ErrQuestionNotFound
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return mapLinkageError(err)
	}
	return nil
}

// Count counts the room's linked questions.
func (r *RoomQuestionRepository) Count(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM room_questions WHERE room_id = $1`, roomID,
	).Scan(&count)
	return count, err
}

// MaxOrder returns the highest order number in use, zero when empty.
func (r *RoomQuestionRepository) MaxOrder(ctx context.Context, roomID uuid.UUID) (int, error) {
	var max int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(order_num), 0) FROM room_questions WHERE room_id = $1`, roomID,
	).Scan(&max)
	return max, err
}

func mapLinkageError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if pgErr.ConstraintName == "room_questions_order_key" {
			return service.ErrDuplicateOrder
		}
		return service.ErrQuestionAlreadyLinked
	}
	return err
}
