// Package auth resolves requests to users. Registration and login go
// through the user store; every later request is scoped to the identity
// carried by its session and nothing else.
package auth

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/harlequingg/todo-webapp/internal/data"
)

// Users is the part of the user store the gate needs.
type Users interface {
	FindByUsername(ctx context.Context, username string) (*data.User, error)
	Insert(ctx context.Context, u *data.User) error
}

type Gate struct {
	users    Users
	hasher   data.PasswordHasher
	sessions *Sessions
	logger   log.FieldLogger
	// decoy is verified against when the username is unknown so both
	// login failures cost one hash.
	decoy string
}

func NewGate(users Users, hasher data.PasswordHasher, sessions *Sessions, logger log.FieldLogger) *Gate {
	if logger == nil {
		logger = log.StandardLogger()
	}
	decoy, err := hasher.Hash("decoy password for unknown users")
	if err != nil {
		logger.WithError(err).Warn("hashing decoy password")
	}
	return &Gate{users: users, hasher: hasher, sessions: sessions, logger: logger, decoy: decoy}
}

func (g *Gate) Register(ctx context.Context, username, password string) (*data.User, error) {
	digest, err := g.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u := data.NewUser(username, digest)
	if err := g.users.Insert(ctx, u); err != nil {
		if errors.Is(err, data.ErrDuplicateUsername) {
			g.logger.WithField("username", username).Info("registration rejected: duplicate username")
		}
		return nil, err
	}
	g.logger.WithField("username", username).Info("user registered")
	return u, nil
}

func (g *Gate) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := g.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			g.hasher.Verify(password, g.decoy)
			g.logger.WithField("username", username).Debug("login rejected: unknown user")
		}
		return Session{}, err
	}
	if !g.hasher.Verify(password, u.PasswordDigest) {
		g.logger.WithField("username", username).Debug("login rejected: bad password")
		return Session{}, data.ErrBadPassword
	}
	return g.sessions.Issue(u)
}

// RequireSession returns the user bound to token. The user must still
// exist and carry the id the session was issued for.
func (g *Gate) RequireSession(ctx context.Context, token string) (*data.User, Session, error) {
	sess, err := g.sessions.Verify(ctx, token)
	if err != nil {
		return nil, Session{}, err
	}
	u, err := g.users.FindByUsername(ctx, sess.Username)
	switch {
	case errors.Is(err, data.ErrUserNotFound):
		return nil, Session{}, fmt.Errorf("%w: user no longer exists", data.ErrUnauthenticated)
	case err != nil:
		return nil, Session{}, err
	}
	if u.ID != sess.UserID {
		return nil, Session{}, fmt.Errorf("%w: session does not belong to user", data.ErrUnauthenticated)
	}
	return u, sess, nil
}

func (g *Gate) Logout(ctx context.Context, sess Session) error {
	if err := g.sessions.Revoke(ctx, sess); err != nil {
		return fmt.Errorf("revoking session: %w: %w", data.ErrStorageUnavailable, err)
	}
	return nil
}
