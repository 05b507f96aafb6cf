package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// consumeScript deletes the hold only when the caller owns it.
// Returns 1 on success, 0 when no hold exists, -1 on token mismatch.
var consumeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
	return 0
end
if v ~= ARGV[1] then
	return -1
end
redis.call("DEL", KEYS[1])
return 1
`)

// RedisSlotHolds stores holds as redis keys with a TTL, shared by every API instance
type RedisSlotHolds struct {
	client *redis.Client
}

func NewRedisSlotHolds(client *redis.Client) *RedisSlotHolds {
	return &RedisSlotHolds{client: client}
}

func (r *RedisSlotHolds) Hold(ctx context.Context, date, slot string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, holdKey(date, slot), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrSlotHeld
	}
	return token, nil
}

func (r *RedisSlotHolds) Confirm(ctx context.Context, date, slot, token string) error {
	res, err := consumeScript.Run(ctx, r.client, []string{holdKey(date, slot)}, token).Int()
	if err != nil {
		return err
	}
	switch res {
	case 0:
		return ErrHoldNotFound
	case -1:
		return ErrTokenMismatch
	}
	return nil
}

func (r *RedisSlotHolds) Release(ctx context.Context, date, slot, token string) error {
	return r.Confirm(ctx, date, slot, token)
}

func (r *RedisSlotHolds) IsHeld(ctx context.Context, date, slot string) (bool, error) {
	_, err := r.client.Get(ctx, holdKey(date, slot)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
