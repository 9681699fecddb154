package middleware

import (
	"context"
	"net/http"

	"codebattle/internal/common"
	"codebattle/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	UserCtxKey  contextKey = "user"
	TokenCtxKey contextKey = "sessionToken"
)

// SessionResolver turns a presented session token into a user. It never returns an error:
// failures read as anonymous.
type SessionResolver interface {
	ResolveCurrentUser(ctx context.Context, token string) (*model.User, bool)
}

type Auth struct {
	resolver   SessionResolver
	cookieName string
}

func NewAuth(resolver SessionResolver, cookieName string) *Auth {
	return &Auth{resolver: resolver, cookieName: cookieName}
}

// TokenFromRequest prefers the session cookie and falls back to "Authorization: Bearer".
func (a *Auth) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(a.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return jwtauth.TokenFromHeader(r)
}

// Session resolves the current user, if any, and stores it in the request context.
// It never rejects a request; the gates below do.
func (a *Auth) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := a.TokenFromRequest(r)
		ctx := r.Context()
		if token != "" {
			ctx = context.WithValue(ctx, TokenCtxKey, token)
			if user, ok := a.resolver.ResolveCurrentUser(ctx, token); ok {
				ctx = WithUser(ctx, user)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticator is the action-level gate: anonymous callers get a JSON 401.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCapability is the action-level gate for c. Anonymous callers get 401, callers without c get 403.
func RequireCapability(c model.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !user.Can(c) {
				common.RespondWithError(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticatedPage redirects anonymous browsers to the login page.
func RequireAuthenticatedPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCapabilityPage sends anyone who lacks c back to the home page.
func RequireCapabilityPage(c model.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || !user.Can(c) {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserCtxKey, user)
}

// Helper to get the resolved user from context
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserCtxKey).(*model.User)
	return user, ok && user != nil
}

// Helper to get the presented session token from context
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(TokenCtxKey).(string)
	return token
}
