package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codebattle/internal/common"
	"codebattle/internal/common/security"
	"codebattle/internal/domain/model"
	"codebattle/internal/domain/repository"
	"codebattle/internal/platform/logger"

	"github.com/google/uuid"
)

var errInvalidCredentials = common.NewError(common.ErrAuthenticationRequired, "Invalid email or password")

type AuthService struct {
	userRepo repository.UserRepository
	sessions *SessionService
}

func NewAuthService(userRepo repository.UserRepository, sessions *SessionService) *AuthService {
	return &AuthService{userRepo: userRepo, sessions: sessions}
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (s *AuthService) Sessions() *SessionService { return s.sessions }

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, common.Validation("All fields are required")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		return nil, common.Conflict("User with this email already exists")
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		HashedPassword: hashedPassword,
		Role:           model.RoleUser,
	}
	// Repo maps a lost race on the email constraint to the same conflict.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}
	logger.L().Info().Str("user_id", user.ID).Msg("account created")
	user.HashedPassword = ""
	return &AuthResponse{User: user, Token: token}, nil
}

// Login verifies credentials and issues a fresh session. presentedToken, if any, is revoked first
// so a session id never survives a login.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, presentedToken string) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, common.Validation("Email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, errInvalidCredentials
	}

	if security.NeedsRehash(user.HashedPassword) {
		s.upgradeHash(ctx, user.ID, req.Password)
	}

	if err := s.sessions.Revoke(ctx, presentedToken); err != nil {
		logger.L().Warn().Err(err).Str("user_id", user.ID).Msg("could not revoke previous session")
	}
	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}
	user.HashedPassword = ""
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *AuthService) upgradeHash(ctx context.Context, userID, password string) {
	hashed, err := security.HashPassword(password)
	if err == nil {
		err = s.userRepo.UpdatePassword(ctx, userID, hashed)
	}
	if err != nil {
		logger.L().Warn().Err(err).Str("user_id", userID).Msg("password rehash failed")
	}
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// LogoutEverywhere revokes every session the user holds, including the one making the request.
func (s *AuthService) LogoutEverywhere(ctx context.Context, user *model.User) error {
	if user == nil {
		return common.ErrAuthenticationRequired
	}
	if err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		return err
	}
	logger.L().Info().Str("user_id", user.ID).Msg("all sessions revoked")
	return nil
}

// ResolveCurrentUser never fails: store errors are logged and the caller is treated as anonymous.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, token string) (*model.User, bool) {
	userID, ok := s.sessions.Resolve(ctx, token)
	if !ok {
		return nil, false
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			logger.L().Error().Err(err).Str("user_id", userID).Msg("resolving session user")
		}
		return nil, false
	}
	user.HashedPassword = ""
	return user, true
}

// EnsureAdmin creates or promotes the bootstrap administrator account.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return common.Validation("Email and password are required")
	}
	hashed, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.userRepo.EnsureAdmin(ctx, &model.User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		HashedPassword: hashed,
		Role:           model.RoleAdmin,
	})
}

// RequireCapability is the single authorization check every gated operation calls first.
func RequireCapability(user *model.User, c model.Capability) error {
	if user == nil {
		return common.ErrAuthenticationRequired
	}
	if !user.Can(c) {
		return common.ErrAuthorizationDenied
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
