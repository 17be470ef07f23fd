package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "financas:relatorios"

// Redis shares report payloads between API instances. Keys embed a
// generation counter; Invalidate increments it so older entries are never
// read again and expire on their own.
type Redis struct {
	client *redis.Client
	ttl    time.Duration

	hits, misses atomic.Int64
}

// NewRedis connects to the server at url. Both "redis://host:port/db" and a
// bare "host:port" are accepted.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		if strings.Contains(url, "://") {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opt = &redis.Options{Addr: url}
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) generation(ctx context.Context) (Generation, error) {
	gen, err := r.client.Get(ctx, redisPrefix+":geracao").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return Generation(gen), err
}

func redisKey(gen Generation, key string) string {
	return fmt.Sprintf("%s:%d:%s", redisPrefix, gen, key)
}

// Get reads key under the current generation. A negative generation is
// returned when the counter cannot be read, and Set ignores it.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, Generation, bool) {
	gen, err := r.generation(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Report cache unavailable", "error", err)
		r.misses.Add(1)
		return nil, -1, false
	}
	data, err := r.client.Get(ctx, redisKey(gen, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "Report cache read failed", "key", key, "error", err)
		}
		r.misses.Add(1)
		return nil, gen, false
	}
	r.hits.Add(1)
	return data, gen, true
}

// Set files data under gen. After an Invalidate that key is never read
// again, so a stale payload only waits for its TTL.
func (r *Redis) Set(ctx context.Context, gen Generation, key string, data []byte) {
	if gen < 0 {
		return
	}
	if err := r.client.Set(ctx, redisKey(gen, key), data, r.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Report cache write failed", "key", key, "error", err)
	}
}

func (r *Redis) Invalidate(ctx context.Context) error {
	if err := r.client.Incr(ctx, redisPrefix+":geracao").Err(); err != nil {
		return fmt.Errorf("bump report cache generation: %w", err)
	}
	return nil
}

// Stats reports this instance's lookups; entries are shared and not counted.
func (r *Redis) Stats() Stats {
	return Stats{Hits: r.hits.Load(), Misses: r.misses.Load(), Entries: -1}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
