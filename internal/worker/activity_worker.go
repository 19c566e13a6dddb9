package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizhive/quizroom-backend/internal/config"
)

const activityBatchSize = 100

// ActivityWorker consumes persist_activity_queue and batch-updates
// last_activity on roster entries. Submissions enqueue touches instead of
// writing the column inline, keeping the hot answer path to one
// transaction.
type ActivityWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewActivityWorker creates a new ActivityWorker.
func NewActivityWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ActivityWorker {
	return &ActivityWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "activity_worker").Logger(),
	}
}

type activityPayload struct {
	RoomID         string `json:"room_id"`
	ParticipantKey string `json:"participant_key"`
	Timestamp      int64  `json:"timestamp"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ActivityWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Flush whatever is queued before exit.
			w.flushSafe(context.Background(), w.collect(context.Background(), 0))
			w.log.Info().Msg("Worker stopped")
			return
		default:
			batch := w.collect(ctx, time.Second)
			w.flushSafe(ctx, batch)
		}
	}
}

// collect blocks for the first item up to wait, then drains without
// blocking until the batch is full or the queue is empty. A zero wait
// skips the blocking pop and only drains.
func (w *ActivityWorker) collect(ctx context.Context, wait time.Duration) []*activityPayload {
	var batch []*activityPayload

	if wait > 0 {
		result, err := w.rdb.BLPop(ctx, wait, config.WorkerKey.PersistActivityQueue).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("BLPop error")
			}
			return nil
		}
		if len(result) < 2 {
			return nil
		}
		if p := w.decode(result[1]); p != nil {
			batch = append(batch, p)
		}
	}

	for len(batch) < activityBatchSize {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.PersistActivityQueue).Result()
		if err != nil {
			break
		}
		if p := w.decode(raw); p != nil {
			batch = append(batch, p)
		}
	}
	return batch
}

func (w *ActivityWorker) decode(raw string) *activityPayload {
	var payload activityPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return nil
	}
	return &payload
}

// ----------------------------------------------------------------
// Batch Update Wrapper
// ----------------------------------------------------------------

func (w *ActivityWorker) flushSafe(ctx context.Context, batch []*activityPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpdateActivity(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk activity update failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistActivityQueue, raw)
			}
		}
	}
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPDATE using UNNEST + alias
// ----------------------------------------------------------------

func (w *ActivityWorker) bulkUpdateActivity(ctx context.Context, batch []*activityPayload) error {
	n := len(batch)

	roomIDs := make([]uuid.UUID, 0, n)
	keys := make([]string, 0, n)
	seenAts := make([]time.Time, 0, n)

	for _, p := range batch {
		roomID, err := uuid.Parse(p.RoomID)
		if err != nil {
			return err
		}
		roomIDs = append(roomIDs, roomID)
		keys = append(keys, p.ParticipantKey)
		seenAts = append(seenAts, time.Unix(p.Timestamp, 0))
	}

	query := `
		UPDATE room_participants AS p
		SET last_activity = GREATEST(p.last_activity, t.seen_at)
		FROM (
			SELECT
				u.room_id,
				u.participant_key,
				u.seen_at
			FROM UNNEST(
				$1::uuid[],
				$2::text[],
				$3::timestamptz[]
			) AS u (room_id, participant_key, seen_at)
		) AS t
		WHERE p.room_id = t.room_id
		  AND p.participant_key = t.participant_key
	`

	_, err := w.pool.Exec(ctx, query, roomIDs, keys, seenAts)
	return err
}

func (w *ActivityWorker) persistSingle(ctx context.Context, p *activityPayload) error {
	roomID, err := uuid.Parse(p.RoomID)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`UPDATE room_participants
		 SET last_activity = GREATEST(last_activity, $3)
		 WHERE room_id = $1 AND participant_key = $2`,
		roomID, p.ParticipantKey, time.Unix(p.Timestamp, 0))
	return err
}
