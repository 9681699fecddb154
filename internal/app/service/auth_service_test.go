package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"codebattle/internal/common"
	"codebattle/internal/common/security"
	"codebattle/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	svc      *AuthService
}

func newAuthFixture() *authFixture {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	tokens := security.NewTokenAuth([]byte("test-secret"), 7*24*time.Hour)
	return &authFixture{
		users:    users,
		sessions: sessions,
		svc:      NewAuthService(users, NewSessionService(sessions, tokens)),
	}
}

func TestAuthService_SignupEstablishesSession(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	resp, err := f.svc.Signup(ctx, SignupRequest{Name: " Ada ", Email: "Ada@Uni.EDU", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "ada@uni.edu", resp.User.Email)
	assert.Equal(t, "Ada", resp.User.Name)
	assert.Equal(t, model.RoleUser, resp.User.Role)
	assert.Empty(t, resp.User.HashedPassword)
	require.NotEmpty(t, resp.Token)

	user, ok := f.svc.ResolveCurrentUser(ctx, resp.Token)
	require.True(t, ok)
	assert.Equal(t, resp.User.ID, user.ID)

	stored, _ := f.users.FindByEmail(ctx, "ada@uni.edu")
	assert.True(t, security.CheckPasswordHash("pw", stored.HashedPassword))
	assert.NotEqual(t, "pw", stored.HashedPassword)
}

func TestAuthService_SignupValidation(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		req  SignupRequest
	}{
		{"no name", SignupRequest{Email: "a@b.c", Password: "pw"}},
		{"blank name", SignupRequest{Name: "  ", Email: "a@b.c", Password: "pw"}},
		{"no email", SignupRequest{Name: "A", Password: "pw"}},
		{"no password", SignupRequest{Name: "A", Email: "a@b.c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Signup(ctx, tt.req)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Equal(t, "All fields are required", common.PublicMessage(err, ""))
		})
	}
}

func TestAuthService_SignupDuplicateEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, SignupRequest{Name: "Ada", Email: "ada@uni.edu", Password: "pw"})
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, SignupRequest{Name: "Other", Email: "ADA@uni.edu", Password: "pw2"})
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Equal(t, "User with this email already exists", common.PublicMessage(err, ""))
}

func TestAuthService_LoginFailuresShareOneMessage(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupRequest{Name: "Ada", Email: "ada@uni.edu", Password: "right"})
	require.NoError(t, err)

	_, errWrongPw := f.svc.Login(ctx, LoginRequest{Email: "ada@uni.edu", Password: "wrong"}, "")
	_, errNoUser := f.svc.Login(ctx, LoginRequest{Email: "nobody@uni.edu", Password: "right"}, "")

	for _, err := range []error{errWrongPw, errNoUser} {
		assert.ErrorIs(t, err, common.ErrAuthenticationRequired)
		assert.Equal(t, "Invalid email or password", common.PublicMessage(err, ""))
	}

	_, err = f.svc.Login(ctx, LoginRequest{Email: "ada@uni.edu"}, "")
	assert.Equal(t, "Email and password are required", common.PublicMessage(err, ""))
}

func TestAuthService_LoginRotatesPresentedSession(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	signup, err := f.svc.Signup(ctx, SignupRequest{Name: "Ada", Email: "ada@uni.edu", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, 1, f.sessions.len())

	login, err := f.svc.Login(ctx, LoginRequest{Email: "ada@uni.edu", Password: "pw"}, signup.Token)
	require.NoError(t, err)
	assert.NotEqual(t, signup.Token, login.Token)
	assert.Equal(t, 1, f.sessions.len(), "the presented session is revoked")

	_, ok := f.svc.ResolveCurrentUser(ctx, signup.Token)
	assert.False(t, ok)
	_, ok = f.svc.ResolveCurrentUser(ctx, login.Token)
	assert.True(t, ok)
}

func TestAuthService_LogoutRevokesServerSide(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	resp, err := f.svc.Signup(ctx, SignupRequest{Name: "Ada", Email: "ada@uni.edu", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, resp.Token))
	_, ok := f.svc.ResolveCurrentUser(ctx, resp.Token)
	assert.False(t, ok, "a copied cookie stops working after logout")
	assert.NoError(t, f.svc.Logout(ctx, "garbage"))
}

func TestAuthService_ResolveCurrentUserFailsOpen(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	resp, err := f.svc.Signup(ctx, SignupRequest{Name: "Ada", Email: "ada@uni.edu", Password: "pw"})
	require.NoError(t, err)

	_, ok := f.svc.ResolveCurrentUser(ctx, "")
	assert.False(t, ok)
	_, ok = f.svc.ResolveCurrentUser(ctx, "not-a-jwt")
	assert.False(t, ok)

	forged, err := security.NewTokenAuth([]byte("attacker"), time.Hour).Sign(resp.User.ID, "made-up")
	require.NoError(t, err)
	_, ok = f.svc.ResolveCurrentUser(ctx, forged)
	assert.False(t, ok)

	f.users.findErr = errors.New("db down")
	_, ok = f.svc.ResolveCurrentUser(ctx, resp.Token)
	assert.False(t, ok)
}

func TestAuthService_LoginUpgradesLegacyHash(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, &model.User{ID: "u1", Name: "Old", Email: "old@uni.edu", HashedPassword: string(legacy), Role: model.RoleUser}))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "old@uni.edu", Password: "pw"}, "")
	require.NoError(t, err)

	stored, _ := f.users.FindByID(ctx, "u1")
	assert.False(t, security.NeedsRehash(stored.HashedPassword))
	assert.True(t, security.CheckPasswordHash("pw", stored.HashedPassword))
}

func TestAuthService_EnsureAdminPromotes(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, SignupRequest{Name: "Ada", Email: "ada@uni.edu", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, f.svc.EnsureAdmin(ctx, "Ada", "ada@uni.edu", "other"))

	u, _ := f.users.FindByEmail(ctx, "ada@uni.edu")
	assert.Equal(t, model.RoleAdmin, u.Role)
}

func TestRequireCapability(t *testing.T) {
	assert.ErrorIs(t, RequireCapability(nil, model.CapRegisterForContests), common.ErrAuthenticationRequired)
	assert.ErrorIs(t, RequireCapability(studentUser, model.CapManageContests), common.ErrAuthorizationDenied)
	assert.NoError(t, RequireCapability(studentUser, model.CapRegisterForContests))
	assert.NoError(t, RequireCapability(adminUser, model.CapManageUsers))
}

func TestAuthService_LogoutEverywhere(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	first, err := f.svc.Signup(ctx, SignupRequest{Name: "Ada", Email: "ada@uni.edu", Password: "pw"})
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, LoginRequest{Email: "ada@uni.edu", Password: "pw"}, "")
	require.NoError(t, err)
	other, err := f.svc.Signup(ctx, SignupRequest{Name: "Bob", Email: "bob@uni.edu", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, 3, f.sessions.len())

	require.NoError(t, f.svc.LogoutEverywhere(ctx, first.User))

	_, ok := f.svc.ResolveCurrentUser(ctx, first.Token)
	assert.False(t, ok)
	_, ok = f.svc.ResolveCurrentUser(ctx, second.Token)
	assert.False(t, ok)
	_, ok = f.svc.ResolveCurrentUser(ctx, other.Token)
	assert.True(t, ok, "other users keep their sessions")

	assert.ErrorIs(t, f.svc.LogoutEverywhere(ctx, nil), common.ErrAuthenticationRequired)
}
