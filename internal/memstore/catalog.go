package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/quizhive/quizroom-backend/internal/model"
	"github.com/quizhive/quizroom-backend/internal/service"
)

// Catalog is an in-memory question catalog, seeded up front.
type Catalog struct {
	mu        sync.RWMutex
	questions map[uuid.UUID]model.Question
}

// NewCatalog creates a catalog holding the given questions.
func NewCatalog(questions ...model.Question) *Catalog {
	c := &Catalog{questions: make(map[uuid.UUID]model.Question, len(questions))}
	for _, q := range questions {
		c.questions[q.ID] = q
	}
	return c
}

// Put adds or replaces a question.
func (c *Catalog) Put(q model.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions[q.ID] = q
}

func (c *Catalog) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.questions[id]
	if !ok {
		return nil, service.ErrQuestionNotFound
	}
	return &q, nil
}

func (c *Catalog) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := c.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}
