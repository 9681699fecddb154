package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codebattle/internal/domain/model"
	"codebattle/internal/platform/logger"

	"github.com/redis/go-redis/v9"
)

const contestListGenKey = "contests:gen"

// ContestInvalidator is called after every successful contest or registration write.
type ContestInvalidator interface {
	InvalidateContestList(ctx context.Context)
	InvalidateContest(ctx context.Context, id string)
}

// Contests is a read-through cache for catalog reads. Misses and cache failures look the same to callers.
type Contests interface {
	ContestInvalidator
	// GetList also returns the key a miss should be stored under. It is fixed before the caller
	// queries the store, so an invalidation that lands in between orphans the entry instead of refreshing it.
	GetList(ctx context.Context, filter model.ContestFilter) (contests []model.ContestWithCount, key string, ok bool)
	SetList(ctx context.Context, key string, contests []model.ContestWithCount)
	GetContest(ctx context.Context, key string) (*model.ContestWithCount, bool)
	SetContest(ctx context.Context, key string, contest *model.ContestWithCount)
}

type RedisContestCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisContestCache(rdb *redis.Client, ttl time.Duration) *RedisContestCache {
	return &RedisContestCache{rdb: rdb, ttl: ttl}
}

func contestKey(id string) string    { return "contest:id:" + id }
func contestAlias(key string) string { return "contest:alias:" + key }

func (c *RedisContestCache) listKey(ctx context.Context, f model.ContestFilter) (string, error) {
	gen, err := c.rdb.Get(ctx, contestListGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("contests:list:%d:%s|%s|%s|%s", gen, f.Status, f.Difficulty, f.Category, f.Search), nil
}

func (c *RedisContestCache) GetList(ctx context.Context, f model.ContestFilter) ([]model.ContestWithCount, string, bool) {
	key, err := c.listKey(ctx, f)
	if err != nil {
		logger.L().Warn().Err(err).Msg("contest cache: reading generation")
		return nil, "", false
	}
	var contests []model.ContestWithCount
	if !c.get(ctx, key, &contests) {
		return nil, key, false
	}
	return contests, key, true
}

// SetList stores contests under a key obtained from GetList. An empty key is ignored.
func (c *RedisContestCache) SetList(ctx context.Context, key string, contests []model.ContestWithCount) {
	if key == "" {
		return
	}
	c.set(ctx, key, contests)
}

// GetContest resolves key (an id or a slug) through the alias entry written by SetContest.
func (c *RedisContestCache) GetContest(ctx context.Context, key string) (*model.ContestWithCount, bool) {
	id, err := c.rdb.Get(ctx, contestAlias(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn().Err(err).Str("key", key).Msg("contest cache: alias lookup")
		}
		return nil, false
	}
	contest := &model.ContestWithCount{}
	if !c.get(ctx, contestKey(id), contest) {
		return nil, false
	}
	return contest, true
}

func (c *RedisContestCache) SetContest(ctx context.Context, key string, contest *model.ContestWithCount) {
	if contest == nil {
		return
	}
	c.set(ctx, contestKey(contest.ID), contest)

	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, contestAlias(key), contest.ID, c.ttl)
		pipe.Set(ctx, contestAlias(contest.ID), contest.ID, c.ttl)
		return nil
	})
	if err != nil {
		logger.L().Warn().Err(err).Str("contest_id", contest.ID).Msg("contest cache: writing aliases")
	}
}

// InvalidateContestList bumps the generation so every cached list key goes stale at once.
func (c *RedisContestCache) InvalidateContestList(ctx context.Context) {
	if err := c.rdb.Incr(ctx, contestListGenKey).Err(); err != nil {
		logger.L().Error().Err(err).Msg("contest cache: invalidating lists")
	}
}

func (c *RedisContestCache) InvalidateContest(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, contestKey(id)).Err(); err != nil {
		logger.L().Error().Err(err).Str("contest_id", id).Msg("contest cache: invalidating contest")
	}
}

func (c *RedisContestCache) get(ctx context.Context, key string, dst interface{}) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn().Err(err).Str("key", key).Msg("contest cache: get")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.L().Warn().Err(err).Str("key", key).Msg("contest cache: unmarshal")
		return false
	}
	return true
}

func (c *RedisContestCache) set(ctx context.Context, key string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		logger.L().Warn().Err(err).Str("key", key).Msg("contest cache: marshal")
		return
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		logger.L().Warn().Err(err).Str("key", key).Msg("contest cache: set")
	}
}

// Noop satisfies Contests without caching anything.
type Noop struct{}

func (Noop) InvalidateContestList(context.Context)                       {}
func (Noop) InvalidateContest(context.Context, string)                   {}
func (Noop) SetList(context.Context, string, []model.ContestWithCount)   {}
func (Noop) SetContest(context.Context, string, *model.ContestWithCount) {}

func (Noop) GetList(context.Context, model.ContestFilter) ([]model.ContestWithCount, string, bool) {
	return nil, "", false
}

func (Noop) GetContest(context.Context, string) (*model.ContestWithCount, bool) {
	return nil, false
}
