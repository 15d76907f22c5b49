package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StatsCache holds computed aggregates per game. Every Invalidate bumps the
// game's generation; Set only stores a value computed under the current one,
// so a result read before a write can never land after that write's
// invalidation.
type StatsCache interface {
	// Generation reports the game's current generation. ok is false when it
	// cannot be read, and the caller must not Set.
	Generation(ctx context.Context, gameID uint) (gen int64, ok bool)
	Get(ctx context.Context, gameID uint, kind string, dest interface{}) bool
	Set(ctx context.Context, gameID uint, kind string, gen int64, value interface{})
	Invalidate(ctx context.Context, gameID uint)
}

const (
	statsKindQuests = "quests"
	statsKindHints  = "hints"
)

// KEYS[1] generation, KEYS[2] entry; ARGV gen, value, ttl in ms.
var compareAndSetScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if (current or '0') ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisStatsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStatsCache {
	return &RedisStatsCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("stats_cache"),
	}
}

func statsKey(gameID uint, kind string) string {
	return fmt.Sprintf("stats:game:%d:%s", gameID, kind)
}

func generationKey(gameID uint) string {
	return fmt.Sprintf("stats:game:%d:gen", gameID)
}

func (c *RedisStatsCache) Generation(ctx context.Context, gameID uint) (int64, bool) {
	gen, err := c.client.Get(ctx, generationKey(gameID)).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		c.logger.Warn("stats generation read failed", zap.Uint("game_id", gameID), zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (c *RedisStatsCache) Get(ctx context.Context, gameID uint, kind string, dest interface{}) bool {
	data, err := c.client.Get(ctx, statsKey(gameID, kind)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("stats cache read failed", zap.Uint("game_id", gameID), zap.String("kind", kind), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("stats cache entry unreadable", zap.Uint("game_id", gameID), zap.String("kind", kind), zap.Error(err))
		return false
	}
	return true
}

func (c *RedisStatsCache) Set(ctx context.Context, gameID uint, kind string, gen int64, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("failed to marshal stats", zap.Uint("game_id", gameID), zap.Error(err))
		return
	}

	keys := []string{generationKey(gameID), statsKey(gameID, kind)}
	stored, err := compareAndSetScript.Run(ctx, c.client, keys, gen, data, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.logger.Warn("stats cache write failed", zap.Uint("game_id", gameID), zap.String("kind", kind), zap.Error(err))
		return
	}
	if stored == 0 {
		c.logger.Debug("stale stats not cached", zap.Uint("game_id", gameID), zap.String("kind", kind), zap.Int64("generation", gen))
	}
}

func (c *RedisStatsCache) Invalidate(ctx context.Context, gameID uint) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(gameID))
		pipe.Del(ctx, statsKey(gameID, statsKindQuests), statsKey(gameID, statsKindHints))
		return nil
	})
	if err != nil {
		c.logger.Warn("stats cache invalidation failed", zap.Uint("game_id", gameID), zap.Error(err))
	}
}

type noopStatsCache struct{}

func (noopStatsCache) Generation(context.Context, uint) (int64, bool)        { return 0, false }
func (noopStatsCache) Get(context.Context, uint, string, interface{}) bool   { return false }
func (noopStatsCache) Set(context.Context, uint, string, int64, interface{}) {}
func (noopStatsCache) Invalidate(context.Context, uint)                      {}

func cacheOrNoop(cache StatsCache) StatsCache {
	if cache == nil {
		return noopStatsCache{}
	}
	return cache
}
