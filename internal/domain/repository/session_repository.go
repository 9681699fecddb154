package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codebattle/internal/common"
	"codebattle/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	Find(ctx context.Context, token string) (*model.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

type redisSessionRepository struct {
	rdb *redis.Client
}

func NewRedisSessionRepository(rdb *redis.Client) SessionRepository {
	return &redisSessionRepository{rdb: rdb}
}

func sessionKey(token string) string       { return "session:" + token }
func userSessionsKey(userID string) string { return "user_sessions:" + userID }

func (r *redisSessionRepository) Create(ctx context.Context, s *model.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("redisSessionRepository.Create: session already expired")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redisSessionRepository.Create marshal: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(s.Token), payload, ttl)
		pipe.SAdd(ctx, userSessionsKey(s.UserID), s.Token)
		pipe.Expire(ctx, userSessionsKey(s.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisSessionRepository.Create: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Find(ctx context.Context, token string) (*model.Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("redisSessionRepository.Find: %w", err)
	}
	s := &model.Session{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("redisSessionRepository.Find unmarshal: %w", err)
	}
	return s, nil
}

// Delete is idempotent: revoking an unknown token is not an error.
func (r *redisSessionRepository) Delete(ctx context.Context, token string) error {
	s, err := r.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(token))
		pipe.SRem(ctx, userSessionsKey(s.UserID), token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisSessionRepository.Delete: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	tokens, err := r.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("redisSessionRepository.DeleteAllForUser members: %w", err)
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKey(t))
	}
	keys = append(keys, userSessionsKey(userID))
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redisSessionRepository.DeleteAllForUser: %w", err)
	}
	return nil
}
