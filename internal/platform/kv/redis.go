package kv

import (
	"context"
	"fmt"
	"time"

	"codebattle/internal/platform/config"
	"codebattle/internal/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Connect returns a verified redis client holding sessions and cached catalog reads.
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.L().Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
	return rdb, nil
}

func Close(rdb *redis.Client) {
	if rdb == nil {
		return
	}
	if err := rdb.Close(); err != nil {
		logger.L().Error().Err(err).Msg("closing redis")
		return
	}
	logger.L().Info().Msg("redis connection closed")
}
