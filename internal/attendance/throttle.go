package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisThrottle admits one heartbeat per user per window.
type RedisThrottle struct {
	client *redis.Client
	window time.Duration
}

// NewRedisThrottle builds a throttle. A nil client admits everything.
func NewRedisThrottle(client *redis.Client, window time.Duration) *RedisThrottle {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisThrottle{client: client, window: window}
}

// Allow reports whether userID may record a heartbeat in the window holding now.
func (t *RedisThrottle) Allow(ctx context.Context, userID int64, now time.Time) (bool, error) {
	if t == nil || t.client == nil {
		return true, nil
	}
	slot := now.Unix() / int64(t.window/time.Second)
	key := fmt.Sprintf("attendance:hb:%d:%d", userID, slot)
	return t.client.SetNX(ctx, key, 1, t.window).Result()
}
