package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/harlequingg/todo-webapp/internal/data"
)

// Session binds a request to an authenticated user.
type Session struct {
	ID        string
	UserID    string
	Username  string
	ExpiresAt time.Time
	Token     string
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256-signed session tokens.
type Sessions struct {
	secret  []byte
	ttl     time.Duration
	parser  *jwt.Parser
	revoker Revoker
}

func NewSessions(secret string, ttl time.Duration, revoker Revoker) (*Sessions, error) {
	if secret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if revoker == nil {
		return nil, errors.New("session revoker must be provided")
	}
	return &Sessions{
		secret:  []byte(secret),
		ttl:     ttl,
		parser:  jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		revoker: revoker,
	}, nil
}

func (s *Sessions) Issue(id data.Identity) (Session, error) {
	now := time.Now()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    id.UserID(),
		Username:  id.UserName(),
		ExpiresAt: now.Add(s.ttl),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: sess.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("signing session: %w", err)
	}
	sess.Token = signed
	return sess, nil
}

// Verify checks signature, expiry and revocation. Any failure of the token
// itself is reported as data.ErrUnauthenticated.
func (s *Sessions) Verify(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, data.ErrUnauthenticated
	}
	var c claims
	parsed, err := s.parser.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Session{}, fmt.Errorf("%w: %v", data.ErrUnauthenticated, err)
	}
	if c.ID == "" || c.Subject == "" || c.Username == "" || c.ExpiresAt == nil {
		return Session{}, fmt.Errorf("%w: incomplete claims", data.ErrUnauthenticated)
	}
	revoked, err := s.revoker.Revoked(ctx, c.ID)
	if err != nil {
		return Session{}, fmt.Errorf("checking revocation: %w: %w", data.ErrStorageUnavailable, err)
	}
	if revoked {
		return Session{}, fmt.Errorf("%w: session revoked", data.ErrUnauthenticated)
	}
	return Session{
		ID:        c.ID,
		UserID:    c.Subject,
		Username:  c.Username,
		ExpiresAt: c.ExpiresAt.Time,
		Token:     token,
	}, nil
}

func (s *Sessions) Revoke(ctx context.Context, sess Session) error {
	return s.revoker.Revoke(ctx, sess.ID, sess.ExpiresAt)
}
