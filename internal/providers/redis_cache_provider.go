package providers

import (
	"cftracker/internal/structures"
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 2 * time.Second

// RedisCacheProvider shares the response cache between several API replicas.
// All keys live under a configurable prefix so Purge never touches foreign data.
type RedisCacheProvider struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger Logger
}

func NewRedisCacheProvider(conf *structures.Config, logger Logger) (CacheProviderInterface, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Cache.Redis.Addr,
		Password: conf.Cache.Redis.Password,
		DB:       conf.Cache.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Infof(TypeApp, "Redis cache connected: %s", conf.Cache.Redis.Addr)
	return newRedisCache(client, conf.Cache.Redis.Prefix, cacheTTL(conf), logger), nil
}

func newRedisCache(client *redis.Client, prefix string, ttl time.Duration, logger Logger) *RedisCacheProvider {
	return &RedisCacheProvider{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *RedisCacheProvider) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warnf(TypeApp, "Redis get %s failed: %s", key, err)
		}
		return nil, false
	}
	return val, true
}

func (r *RedisCacheProvider) Set(key string, value []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		r.logger.Warnf(TypeApp, "Redis set %s failed: %s", key, err)
	}
}

func (r *RedisCacheProvider) Purge() {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 500).Result()
		if err != nil {
			r.logger.Warnf(TypeApp, "Redis purge failed: %s", err)
			return
		}
		if len(keys) > 0 {
			r.client.Del(ctx, keys...)
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}
