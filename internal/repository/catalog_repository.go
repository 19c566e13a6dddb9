package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizhive/quizroom-backend/internal/model"
	"github.com/quizhive/quizroom-backend/internal/service"
)

const questionColumns = `id, owner_id, question_text, options, correct_answer,
	explanation, points, time_limit_seconds, category, difficulty, is_public`

// CatalogRepository is the read-only PostgreSQL question catalog store.
// The catalog is owned by the authoring service; this service only reads it.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetByID retrieves one catalog question.
func (r *CatalogRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM catalog_questions WHERE id = $1`, id,
	).Scan(
		&q.ID, &q.OwnerID, &q.QuestionText, &q.Options, &q.CorrectAnswer,
		&q.Explanation, &q.Points, &q.TimeLimitSeconds, &q.Category, &q.Difficulty, &q.IsPublic,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetByIDs retrieves the subset of the given questions that exist. Callers
// compare the result size against the request to detect missing IDs.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM catalog_questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]model.Question, 0, len(ids))
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.OwnerID, &q.QuestionText, &q.Options, &q.CorrectAnswer,
			&q.Explanation, &q.Points, &q.TimeLimitSeconds, &q.Category, &q.Difficulty, &q.IsPublic,
		); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
