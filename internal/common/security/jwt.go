package security

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is what a signed session cookie carries. The session id is looked up server-side,
// so a valid signature alone never authenticates a revoked session.
type SessionClaims struct {
	UserID    string
	SessionID string
}

type TokenAuth struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
}

func NewTokenAuth(secret []byte, ttl time.Duration) *TokenAuth {
	return &TokenAuth{
		auth: jwtauth.New("HS256", secret, nil),
		ttl:  ttl,
	}
}

func (t *TokenAuth) TTL() time.Duration { return t.ttl }

// Sign returns an HS256 token with {sub, sid, iat, exp}.
func (t *TokenAuth) Sign(userID, sessionID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"sid": sessionID,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, t.ttl)
	_, tokenString, err := t.auth.Encode(claims)
	return tokenString, err
}

// Parse verifies signature and expiry and returns the session claims.
func (t *TokenAuth) Parse(tokenString string) (SessionClaims, error) {
	if tokenString == "" {
		return SessionClaims{}, jwtauth.ErrNoTokenFound
	}
	token, err := jwtauth.VerifyToken(t.auth, tokenString)
	if err != nil {
		return SessionClaims{}, err
	}
	claims, err := token.AsMap(context.Background())
	if err != nil {
		return SessionClaims{}, err
	}
	return ClaimsFromMap(claims)
}

func ClaimsFromMap(claims jwt.MapClaims) (SessionClaims, error) {
	userID, err := GetUserIDFromClaims(claims)
	if err != nil {
		return SessionClaims{}, err
	}
	sid, err := GetSessionIDFromClaims(claims)
	if err != nil {
		return SessionClaims{}, err
	}
	return SessionClaims{UserID: userID, SessionID: sid}, nil
}

func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["sub"].(string)
	if !ok || id == "" {
		return "", errors.New("sub claim is missing or not a string")
	}
	return id, nil
}

func GetSessionIDFromClaims(claims jwt.MapClaims) (string, error) {
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", errors.New("sid claim is missing or not a string")
	}
	return sid, nil
}
