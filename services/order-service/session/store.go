// Package session holds checkout sessions in Redis and manages their
// lifecycle: creation, idempotent reuse, verification and one-time
// consumption by the order materializer.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
)

// KeyPrefix is the session store key pattern: payment-session:<sessionId>.
const KeyPrefix = "payment-session:"

// DefaultTTL bounds how long an unconsumed checkout session stays alive.
const DefaultTTL = 600 * time.Second

// Store is the ephemeral session store. Sessions are cache-only: an
// expired or evicted session is an abandoned checkout, not an error.
type Store interface {
	Save(ctx context.Context, sessionID string, s *models.PaymentSession, ttl time.Duration) error
	// Get returns (nil, nil) when the session is absent or expired.
	Get(ctx context.Context, sessionID string) (*models.PaymentSession, error)
	// FindByUser scans live sessions for one belonging to userID and
	// returns its id and payload, or ("", nil, nil) when there is none.
	FindByUser(ctx context.Context, userID string) (string, *models.PaymentSession, error)
	// Consume atomically deletes and returns the session, so two
	// concurrent webhook deliveries cannot both claim it. Returns
	// (nil, nil) when the session is absent.
	Consume(ctx context.Context, sessionID string) (*models.PaymentSession, error)
	Delete(ctx context.Context, sessionID string) error
}

// RedisStore implements Store on go-redis.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) key(sessionID string) string {
	return KeyPrefix + sessionID
}

func (r *RedisStore) Save(ctx context.Context, sessionID string, s *models.PaymentSession, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(sessionID), data, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (r *RedisStore) FindByUser(ctx context.Context, userID string) (string, *models.PaymentSession, error) {
	keys, err := r.client.Keys(ctx, KeyPrefix+"*").Result()
	if err != nil {
		return "", nil, err
	}

	for _, key := range keys {
		data, err := r.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return "", nil, err
		}

		s, err := decode(data)
		if err != nil {
			continue
		}
		if s.UserID == userID {
			return key[len(KeyPrefix):], s, nil
		}
	}
	return "", nil, nil
}

func (r *RedisStore) Consume(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	data, err := r.client.GetDel(ctx, r.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

func decode(data string) (*models.PaymentSession, error) {
	var s models.PaymentSession
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, err
	}
	return &s, nil
}
