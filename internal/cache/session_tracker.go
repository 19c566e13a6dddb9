package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quizhive/quizroom-backend/internal/config"
	"github.com/quizhive/quizroom-backend/internal/model"
)

const (
	fieldStatus      = "status"
	fieldStartedAt   = "started_at"
	fieldPausedAt    = "paused_at"
	fieldPausedTotal = "paused_total_seconds"
)

// SessionTracker mirrors a room's live session state in Redis: status,
// pause bookkeeping and per-participant progress counters. It is a cache,
// rebuildable from the room record and the answer ledger — callers must
// tolerate a missing snapshot.
type SessionTracker struct {
	rdb *redis.Client
}

// NewSessionTracker creates a new SessionTracker.
func NewSessionTracker(rdb *redis.Client) *SessionTracker {
	return &SessionTracker{rdb: rdb}
}

// Init seeds the tracking hash when a room starts.
func (t *SessionTracker) Init(ctx context.Context, room *model.Room) error {
	key := config.CacheKey.RoomSessionKey(room.ID.String())

	fields := map[string]interface{}{
		fieldStatus:      string(room.Status),
		fieldPausedAt:    0,
		fieldPausedTotal: 0,
	}
	if room.StartedAt != nil {
		fields[fieldStartedAt] = room.StartedAt.Unix()
	}

	pipe := t.rdb.Pipeline()
	pipe.Del(ctx, key, config.CacheKey.RoomProgressKey(room.ID.String()))
	pipe.HSet(ctx, key, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("init session tracker: %w", err)
	}
	return nil
}

// SetStatus records a plain status change.
func (t *SessionTracker) SetStatus(ctx context.Context, roomID string, status model.RoomStatus) error {
	return t.rdb.HSet(ctx, config.CacheKey.RoomSessionKey(roomID), fieldStatus, string(status)).Err()
}

// RecordPause marks the room paused at the given time.
func (t *SessionTracker) RecordPause(ctx context.Context, roomID string, at time.Time) error {
	return t.rdb.HSet(ctx, config.CacheKey.RoomSessionKey(roomID),
		fieldStatus, string(model.RoomStatusPaused),
		fieldPausedAt, at.Unix(),
	).Err()
}

// RecordResume marks the room active again and accumulates the paused
// duration into the running total.
func (t *SessionTracker) RecordResume(ctx context.Context, roomID string, at time.Time) error {
	key := config.CacheKey.RoomSessionKey(roomID)

	pausedAtStr, err := t.rdb.HGet(ctx, key, fieldPausedAt).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("get paused_at: %w", err)
	}

	pausedAt, _ := strconv.ParseInt(pausedAtStr, 10, 64)
	pipe := t.rdb.Pipeline()
	if pausedAt > 0 {
		elapsed := at.Unix() - pausedAt
		if elapsed > 0 {
			pipe.HIncrBy(ctx, key, fieldPausedTotal, elapsed)
		}
	}
	pipe.HSet(ctx, key, fieldStatus, string(model.RoomStatusActive), fieldPausedAt, 0)
	_, err = pipe.Exec(ctx)
	return err
}

// RecordProgress updates a participant's answered-question counter.
func (t *SessionTracker) RecordProgress(ctx context.Context, roomID string, key model.ParticipantKey, answered int) error {
	return t.rdb.HSet(ctx, config.CacheKey.RoomProgressKey(roomID), key.String(), answered).Err()
}

// Snapshot reads the tracking hash. Returns (nil, nil) when no session
// has been tracked for the room (cache miss or never started).
func (t *SessionTracker) Snapshot(ctx context.Context, roomID string) (*model.SessionInfo, error) {
	key := config.CacheKey.RoomSessionKey(roomID)

	fields, err := t.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get session tracker: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	info := &model.SessionInfo{
		Status: model.RoomStatus(fields[fieldStatus]),
	}
	if v, _ := strconv.ParseInt(fields[fieldStartedAt], 10, 64); v > 0 {
		ts := time.Unix(v, 0)
		info.StartedAt = &ts
	}
	if v, _ := strconv.ParseInt(fields[fieldPausedAt], 10, 64); v > 0 {
		ts := time.Unix(v, 0)
		info.PausedAt = &ts
	}
	if v, err := strconv.Atoi(fields[fieldPausedTotal]); err == nil {
		info.PausedTotalSeconds = v
	}

	progress, err := t.rdb.HGetAll(ctx, config.CacheKey.RoomProgressKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session progress: %w", err)
	}
	if len(progress) > 0 {
		info.Progress = make(map[string]int, len(progress))
		for k, v := range progress {
			n, err := strconv.Atoi(v)
			if err != nil {
				continue
			}
			info.Progress[k] = n
		}
	}

	return info, nil
}

// Clear removes the tracking hashes, usually after a room completes.
func (t *SessionTracker) Clear(ctx context.Context, roomID string) error {
	return t.rdb.Del(ctx,
		config.CacheKey.RoomSessionKey(roomID),
		config.CacheKey.RoomProgressKey(roomID),
	).Err()
}
