package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/pocket-matcher/internal/game"
	"github.com/park285/pocket-matcher/internal/obslog"
)

var (
	ErrNotFound = errors.New("snapshot not found")
	ErrConflict = errors.New("snapshot changed concurrently")
)

const (
	DefaultTTL    = time.Hour
	updateRetries = 3
)

// Store keeps session snapshots in Redis as JSON.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Open connects to redisURL (redis:// or rediss://) and pings it.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("REDIS_URL required for snapshot store")
	}
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStore(rdb, ttl), nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func sessionKey(id string) string     { return "pm:session:" + strings.TrimSpace(id) }
func levelIndexKey(name string) string { return "pm:index:level:" + strings.TrimSpace(name) }

// Save writes snap and indexes it under its level.
func (s *Store) Save(ctx context.Context, snap game.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	s.queueSave(ctx, pipe, snap, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	obslog.L().Debug("snapshot_save", zap.String("session_id", snap.ID), zap.String("state", string(snap.State)))
	return nil
}

func (s *Store) queueSave(ctx context.Context, pipe redis.Pipeliner, snap game.Snapshot, raw []byte) {
	idx := levelIndexKey(snap.Level)
	pipe.Set(ctx, sessionKey(snap.ID), raw, s.ttl)
	pipe.SAdd(ctx, idx, snap.ID)
	// 인덱스 TTL도 같이 갱신
	pipe.Expire(ctx, idx, s.ttl)
}

func (s *Store) Load(ctx context.Context, id string) (game.Snapshot, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return game.Snapshot{}, err
	}
	var snap game.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return game.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return snap, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	snap, err := s.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, levelIndexKey(snap.Level), id)
	_, err = pipe.Exec(ctx)
	return err
}

// IDsByLevel lists live session IDs for a level. Expired sessions are pruned
// from the index as they are found.
func (s *Store) IDsByLevel(ctx context.Context, level string) ([]string, error) {
	idx := levelIndexKey(level)
	ids, err := s.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := s.rdb.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			_ = s.rdb.SRem(ctx, idx, id).Err()
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Update applies fn to the stored snapshot under WATCH. A concurrent write
// makes it retry; after the retries it returns ErrConflict.
func (s *Store) Update(ctx context.Context, id string, fn func(*game.Snapshot) error) (game.Snapshot, error) {
	key := sessionKey(id)
	var out game.Snapshot
	for attempt := 0; attempt < updateRetries; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			if err != nil {
				return err
			}
			var cur game.Snapshot
			if err := json.Unmarshal(raw, &cur); err != nil {
				return fmt.Errorf("decode snapshot %s: %w", id, err)
			}
			if err := fn(&cur); err != nil {
				return err
			}
			cur.ID = id
			newRaw, err := json.Marshal(cur)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				s.queueSave(ctx, pipe, cur, newRaw)
				return nil
			})
			if err != nil {
				return err
			}
			out = cur
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			obslog.L().Warn("snapshot_update_conflict", zap.String("session_id", id), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return game.Snapshot{}, err
		}
		return out, nil
	}
	return game.Snapshot{}, fmt.Errorf("%w: %s", ErrConflict, id)
}
