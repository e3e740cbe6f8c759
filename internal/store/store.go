package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harlequingg/todo-webapp/internal/data"
)

// Store is the persistence gateway for users and their embedded tasks.
// Task mutations are single storage operations scoped by username.
type Store interface {
	FindByUsername(ctx context.Context, username string) (*data.User, error)
	Insert(ctx context.Context, u *data.User) error
	AppendTask(ctx context.Context, username string, task data.Task) error
	GetTasks(ctx context.Context, username string) ([]data.Task, error)
	RemoveTask(ctx context.Context, username, taskID string) error
	ReplaceTask(ctx context.Context, username, taskID string, task data.Task) error
	Ping(ctx context.Context) error
	Close() error
}

type Config struct {
	URI                string
	Database           string
	MaxOpenConnections int
	MaxIdleConnections int
	MaxIdleTime        time.Duration
	Timeout            time.Duration
}

const (
	defaultTimeout  = 5 * time.Second
	defaultDatabase = "TODO"
)

// Open connects to the backend selected by the URI scheme and verifies it
// is reachable.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	uri := cfg.URI
	switch {
	case uri == "":
		return nil, errors.New("store: empty connection string")
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return openMongo(ctx, cfg)
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return openSQL(ctx, postgresDialect, uri, cfg)
	case strings.HasPrefix(uri, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(uri, "sqlite:"), "//")
		return openSQL(ctx, sqliteDialect, sqliteDSN(path, cfg.Timeout), cfg)
	default:
		return nil, fmt.Errorf("store: unsupported connection string scheme in %q", redact(uri))
	}
}

// sqliteDSN makes every connection to a database file wait for locks up to
// timeout and use WAL so readers do not block the single writer.
func sqliteDSN(path string, timeout time.Duration) string {
	if isSQLiteMemory(path) {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, sep, timeout.Milliseconds())
}

func isSQLiteMemory(path string) bool {
	return path == "" || path == ":memory:"
}

func redact(uri string) string {
	if i := strings.Index(uri, "://"); i >= 0 {
		return uri[:i+3] + "..."
	}
	return "..."
}

// unavailable tags an unexpected backend failure so callers can tell it
// apart from domain errors.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, data.ErrStorageUnavailable, err)
}

const readAttempts = 3

// retryRead retries idempotent reads that failed with ErrStorageUnavailable.
func retryRead(ctx context.Context, read func(ctx context.Context) error) error {
	var err error
	for i := 0; i < readAttempts; i++ {
		err = read(ctx)
		if err == nil || !errors.Is(err, data.ErrStorageUnavailable) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(i+1) * 50 * time.Millisecond):
		}
	}
	return err
}
