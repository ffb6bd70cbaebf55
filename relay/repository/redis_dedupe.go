package repository

import (
	"context"
	"time"

	"chatwoot-unipile-bridge/backend/relay/dedupe"
	sharedredis "chatwoot-unipile-bridge/backend/shared/redis"
)

// RedisDedupeRepository implements the dedupe cache on Redis. SET NX with a
// TTL gives the atomic admit-or-reject primitive directly, and expiry is
// handled by Redis itself so Sweep is a no-op.
type RedisDedupeRepository struct {
	client *sharedredis.RedisClient
	prefix string
}

func NewRedisDedupeRepository(client *sharedredis.RedisClient) *RedisDedupeRepository {
	return &RedisDedupeRepository{client: client, prefix: "dedupe:"}
}

func (r *RedisDedupeRepository) Admit(ctx context.Context, key, chatID, normalizedText string, ttl time.Duration) (dedupe.Result, error) {
	set, err := r.client.SetNX(ctx, r.prefix+key, chatID+"|"+normalizedText, ttl)
	if err != nil {
		return dedupe.Duplicate, err
	}
	if set {
		return dedupe.Admitted, nil
	}
	return dedupe.Duplicate, nil
}

func (r *RedisDedupeRepository) Contains(ctx context.Context, key string) (bool, error) {
	return r.client.Exists(ctx, r.prefix+key)
}

func (r *RedisDedupeRepository) Sweep(ctx context.Context) (int64, error) {
	return 0, nil
}
