package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/instacall/signaling/internal/models"
)

const keyPrefix = "presence:"

// RedisStore keeps one hash per host: presence:<userID> -> {status, last_active}.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, userID string) (models.PresenceRecord, bool, error) {
	fields, err := s.rdb.HGetAll(ctx, keyPrefix+userID).Result()
	if err != nil {
		return models.PresenceRecord{}, false, err
	}
	if len(fields) == 0 {
		return models.PresenceRecord{}, false, nil
	}
	rec := models.PresenceRecord{
		UserID: userID,
		Status: models.PresenceStatus(fields["status"]),
	}
	if rec.Status != models.StatusOnline {
		rec.Status = models.StatusOffline
	}
	if raw, ok := fields["last_active"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			rec.LastActiveTime = t
		}
	}
	return rec, true, nil
}

func (s *RedisStore) Upsert(ctx context.Context, rec models.PresenceRecord) error {
	return s.rdb.HSet(ctx, keyPrefix+rec.UserID,
		"status", string(rec.Status),
		"last_active", rec.LastActiveTime.UTC().Format(time.RFC3339Nano),
	).Err()
}

func (s *RedisStore) Touch(ctx context.Context, userID string, t time.Time) error {
	return s.rdb.HSet(ctx, keyPrefix+userID,
		"last_active", t.UTC().Format(time.RFC3339Nano),
	).Err()
}
