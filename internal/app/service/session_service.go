package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"codebattle/internal/common"
	"codebattle/internal/common/security"
	"codebattle/internal/domain/model"
	"codebattle/internal/domain/repository"
	"codebattle/internal/platform/logger"
)

// SessionService issues, resolves and revokes server-side sessions. The value handed to the client
// is a signed token naming the session; the session record itself lives in the store.
type SessionService struct {
	repo   repository.SessionRepository
	tokens *security.TokenAuth
	now    func() time.Time
}

func NewSessionService(repo repository.SessionRepository, tokens *security.TokenAuth) *SessionService {
	return &SessionService{repo: repo, tokens: tokens, now: time.Now}
}

func (s *SessionService) MaxAge() time.Duration { return s.tokens.TTL() }

// Issue creates a new session for userID and returns the signed token for the cookie.
func (s *SessionService) Issue(ctx context.Context, userID string) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	session := &model.Session{
		Token:     id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokens.TTL()),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("SessionService.Issue: %w", err)
	}
	signed, err := s.tokens.Sign(userID, id)
	if err != nil {
		return "", fmt.Errorf("SessionService.Issue sign: %w", err)
	}
	return signed, nil
}

// Resolve returns the user id behind a signed token. Any failure reads as "no session".
func (s *SessionService) Resolve(ctx context.Context, signed string) (string, bool) {
	if signed == "" {
		return "", false
	}
	claims, err := s.tokens.Parse(signed)
	if err != nil {
		return "", false
	}
	session, err := s.repo.Find(ctx, claims.SessionID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			logger.L().Error().Err(err).Msg("session lookup failed")
		}
		return "", false
	}
	if session.UserID != claims.UserID || session.Expired(s.now()) {
		return "", false
	}
	return session.UserID, true
}

// Revoke deletes the session a signed token names. Tokens that do not verify name no session.
func (s *SessionService) Revoke(ctx context.Context, signed string) error {
	if signed == "" {
		return nil
	}
	claims, err := s.tokens.Parse(signed)
	if err != nil {
		return nil
	}
	if err := s.repo.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("SessionService.Revoke: %w", err)
	}
	return nil
}

func (s *SessionService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.repo.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("SessionService.RevokeAll: %w", err)
	}
	return nil
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
