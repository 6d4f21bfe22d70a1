package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/combatcore/cache/local"
	cacheredis "github.com/kasuganosora/combatcore/cache/redis"
)

// ScoredMember is one sorted-set member with its score.
type ScoredMember struct {
	Member string  `json:"member"`
	Score  float64 `json:"score"`
}

// Cache is the storage the combat server keeps outside the database: save
// snapshots (KV), damage meters (score sets) and the recent-attack feed
// (capped lists).
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error)
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error)
	ZScore(ctx context.Context, key, member string) (float64, error)

	// PushCapped prepends value and keeps only the newest max items.
	PushCapped(ctx context.Context, key string, max int64, value string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	Close() error
}

// IsNotFound reports whether err is a missing-key error from either backend.
func IsNotFound(err error) bool {
	return errors.Is(err, local.ErrNotFound) || errors.Is(err, cacheredis.ErrNotFound)
}

// Message is a received pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub defines channel publish/subscribe operations.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
}

// CacheConfig holds configuration for both Redis and LocalCache.
type CacheConfig struct {
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	Prefix          string // Redis key namespace
	LocalGCInterval time.Duration
	LocalPubSubBuf  int
}

func (cfg CacheConfig) redis() cacheredis.Config {
	return cacheredis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.Prefix,
	}
}

// NewCache returns a Redis-backed Cache if RedisAddr is set, otherwise an
// in-process one.
func NewCache(cfg CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		rc, err := cacheredis.NewCache(cfg.redis())
		if err != nil {
			return nil, err
		}
		return redisCache{rc}, nil
	}
	lc, err := local.NewCache(local.Config{GCInterval: cfg.LocalGCInterval})
	if err != nil {
		return nil, err
	}
	return localCache{lc}, nil
}

// NewPubSub returns a Redis-backed PubSub if RedisAddr is set, otherwise an
// in-process one.
func NewPubSub(cfg CacheConfig) (PubSub, error) {
	if cfg.RedisAddr != "" {
		rps, err := cacheredis.NewPubSub(cfg.redis())
		if err != nil {
			return nil, err
		}
		return redisPubSub{rps}, nil
	}
	buf := cfg.LocalPubSubBuf
	if buf <= 0 {
		buf = 256
	}
	return localPubSub{local.NewPubSub(buf)}, nil
}

// ---- backend bridges ----

type localCache struct{ *local.LocalCache }

func (a localCache) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error) {
	zs, err := a.LocalCache.ZRevRangeWithScores(ctx, key, start, stop)
	return convertScores(zs, err, func(z local.ScoredMember) ScoredMember {
		return ScoredMember{Member: z.Member, Score: z.Score}
	})
}

type redisCache struct{ *cacheredis.RedisCache }

func (a redisCache) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error) {
	zs, err := a.RedisCache.ZRevRangeWithScores(ctx, key, start, stop)
	return convertScores(zs, err, func(z cacheredis.ScoredMember) ScoredMember {
		return ScoredMember{Member: z.Member, Score: z.Score}
	})
}

func convertScores[T any](in []T, err error, conv func(T) ScoredMember) ([]ScoredMember, error) {
	if err != nil {
		return nil, err
	}
	out := make([]ScoredMember, len(in))
	for i, z := range in {
		out[i] = conv(z)
	}
	return out, nil
}

type localPubSub struct{ ps *local.LocalPubSub }

func (a localPubSub) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a localPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	in, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	return relay(in, func(m *local.LocalMessage) *Message {
		return &Message{Channel: m.Channel, Payload: m.Payload}
	}), cancel, nil
}

type redisPubSub struct{ ps *cacheredis.RedisPubSub }

func (a redisPubSub) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a redisPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	in, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	return relay(in, func(m *cacheredis.RedisMessage) *Message {
		return &Message{Channel: m.Channel, Payload: m.Payload}
	}), cancel, nil
}

// relay converts backend messages until in is closed.
func relay[T any](in <-chan T, conv func(T) *Message) <-chan *Message {
	out := make(chan *Message, cap(in))
	go func() {
		defer close(out)
		for m := range in {
			out <- conv(m)
		}
	}()
	return out
}
