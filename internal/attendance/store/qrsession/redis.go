package qrsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"clubhub/internal/attendance/models"
	"clubhub/internal/platform/redis"
	"clubhub/pkg/platform/sentinel"
)

// RedisStore keeps the active session per event under qr:event:<id>. The key
// TTL tracks the token expiry so stale sessions clean themselves up; SET
// overwrites, which is what makes regeneration invalidate the old token.
type RedisStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, clock: time.Now}
}

func key(eventID uuid.UUID) string {
	return "qr:event:" + eventID.String()
}

func (s *RedisStore) Save(ctx context.Context, session *models.QRSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal qr session: %w", err)
	}
	ttl := session.ExpiresAt.Sub(s.clock())
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	if err := s.client.Set(ctx, key(session.EventID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save qr session: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, eventID uuid.UUID) (*models.QRSession, error) {
	data, err := s.client.Get(ctx, key(eventID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find qr session: %w", err)
	}
	var session models.QRSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal qr session: %w", err)
	}
	return &session, nil
}
