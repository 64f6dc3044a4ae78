package chat

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChannelCacheTTL bounds how long a provisioned channel is remembered.
const ChannelCacheTTL = 30 * 24 * time.Hour

const channelKeyPrefix = "chat:channel:"

// RedisChannelCache stores provisioned channels in Redis.
type RedisChannelCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisChannelCache(rdb redis.Cmdable) *RedisChannelCache {
	return &RedisChannelCache{rdb: rdb, ttl: ChannelCacheTTL}
}

func (c *RedisChannelCache) Get(ctx context.Context, channelID string) (*Channel, bool, error) {
	raw, err := c.rdb.Get(ctx, channelKeyPrefix+channelID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ch Channel
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, false, err
	}
	return &ch, true, nil
}

func (c *RedisChannelCache) Put(ctx context.Context, ch *Channel) error {
	raw, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, channelKeyPrefix+ch.ID, raw, c.ttl).Err()
}

// NopChannelCache never remembers anything; every call reaches the provider.
type NopChannelCache struct{}

func (NopChannelCache) Get(context.Context, string) (*Channel, bool, error) { return nil, false, nil }
func (NopChannelCache) Put(context.Context, *Channel) error                 { return nil }
