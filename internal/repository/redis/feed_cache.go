package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultFeedTTL = 20 * time.Second
	LockTTL        = 300 * time.Millisecond
	FeedKeyPrefix  = "feed:index:"
	LockKeyPrefix  = "lock:feed:"
)

// FeedCache 首页整页缓存，只按 TTL 过期，Clear 为手动失效入口
type FeedCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewFeedCache(client *redis.Client, ttl time.Duration) *FeedCache {
	if ttl <= 0 {
		ttl = DefaultFeedTTL
	}
	return &FeedCache{Client: client, TTL: ttl}
}

func (c *FeedCache) key(page string) string {
	return FeedKeyPrefix + page
}

// Get 第二个返回值表示是否命中
func (c *FeedCache) Get(ctx context.Context, page string) ([]byte, bool, error) {
	val, err := c.Client.Get(ctx, c.key(page)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *FeedCache) Set(ctx context.Context, page string, val []byte) error {
	return c.Client.Set(ctx, c.key(page), val, c.TTL).Err()
}

// Clear 删除全部首页缓存
func (c *FeedCache) Clear(ctx context.Context) error {
	iter := c.Client.Scan(ctx, 0, FeedKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}

// DistLock 缓存重建锁，token 防止误删他人的锁
type DistLock struct {
	Client *redis.Client
	TTL    time.Duration
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

func (l *DistLock) ttl() time.Duration {
	if l.TTL <= 0 {
		return LockTTL
	}
	return l.TTL
}

// Acquire 请求加分布式锁
func (l *DistLock) Acquire(ctx context.Context, name, token string) (bool, error) {
	return l.Client.SetNX(ctx, LockKeyPrefix+name, token, l.ttl()).Result()
}

// Release 用lua保证原子性
func (l *DistLock) Release(ctx context.Context, name, token string) error {
	return releaseScript.Run(ctx, l.Client, []string{LockKeyPrefix + name}, token).Err()
}
