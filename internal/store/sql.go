package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/harlequingg/todo-webapp/internal/data"
)

// SQLStore keeps each user in one row with the task list in a JSON column.
type SQLStore struct {
	db      *sqlx.DB
	dialect dialect
	cfg     Config
}

func openSQL(ctx context.Context, d dialect, dsn string, cfg Config) (*SQLStore, error) {
	db, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", d.driver, err)
	}

	if d.driver == sqliteDialect.driver && isSQLiteMemory(dsn) {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	} else {
		if cfg.MaxOpenConnections > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConnections)
		}
		if cfg.MaxIdleConnections > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConnections)
		}
		if cfg.MaxIdleTime > 0 {
			db.SetConnMaxIdleTime(cfg.MaxIdleTime)
		}
	}

	s := &SQLStore{db: db, dialect: d, cfg: cfg}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for i, stmt := range s.dialect.migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return retryRead(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			return unavailable("ping", err)
		}
		return nil
	})
}

// taskList is the JSON column holding a user's tasks.
type taskList []data.Task

func (l *taskList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*l = taskList{}
		return nil
	default:
		return fmt.Errorf("unsupported tasks column type %T", src)
	}
	tasks := taskList{}
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return fmt.Errorf("decoding tasks: %w", err)
	}
	*l = tasks
	return nil
}

// Value encodes as a string so lib/pq does not send it as bytea.
func (l taskList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]data.Task(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type userRow struct {
	ID           string   `db:"id"`
	Username     string   `db:"username"`
	PasswordHash string   `db:"password_hash"`
	Tasks        taskList `db:"tasks"`
}

func (s *SQLStore) FindByUsername(ctx context.Context, username string) (*data.User, error) {
	query := s.db.Rebind(`SELECT id, username, password_hash, tasks FROM users WHERE username = ?`)
	var row userRow
	err := retryRead(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		err := s.db.GetContext(ctx, &row, query, username)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return data.ErrUserNotFound
		case err != nil:
			return unavailable("find user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &data.User{
		ID:             row.ID,
		Username:       row.Username,
		PasswordDigest: row.PasswordHash,
		Tasks:          []data.Task(row.Tasks),
	}, nil
}

func (s *SQLStore) Insert(ctx context.Context, u *data.User) error {
	_, err := s.FindByUsername(ctx, u.Username)
	switch {
	case err == nil:
		return data.ErrDuplicateUsername
	case !errors.Is(err, data.ErrUserNotFound):
		return err
	}

	return s.insert(ctx, u)
}

// insert writes u without the pre-check; the unique index on username
// rejects duplicates.
func (s *SQLStore) insert(ctx context.Context, u *data.User) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	query := s.db.Rebind(`INSERT INTO users (id, username, password_hash, tasks) VALUES (?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Username, u.PasswordDigest, taskList(u.Tasks))
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return data.ErrDuplicateUsername
		}
		return unavailable("insert user", err)
	}
	return nil
}

func (s *SQLStore) AppendTask(ctx context.Context, username string, task data.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	n, err := s.exec(ctx, "append task", s.dialect.appendTask, string(payload), username)
	if err != nil {
		return err
	}
	if n == 0 {
		return data.ErrUserNotFound
	}
	return nil
}

func (s *SQLStore) GetTasks(ctx context.Context, username string) ([]data.Task, error) {
	query := s.db.Rebind(`SELECT tasks FROM users WHERE username = ?`)
	var tasks taskList
	err := retryRead(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		err := s.db.GetContext(ctx, &tasks, query, username)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return data.ErrUserNotFound
		case err != nil:
			return unavailable("get tasks", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []data.Task(tasks), nil
}

func (s *SQLStore) RemoveTask(ctx context.Context, username, taskID string) error {
	n, err := s.exec(ctx, "remove task", s.dialect.removeTask, taskID, username, taskID)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.missing(ctx, username)
	}
	return nil
}

func (s *SQLStore) ReplaceTask(ctx context.Context, username, taskID string, task data.Task) error {
	if task.ID != taskID {
		return data.ErrTaskIDMismatch
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	n, err := s.exec(ctx, "replace task", s.dialect.replaceTask, taskID, string(payload), username, taskID)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.missing(ctx, username)
	}
	return nil
}

func (s *SQLStore) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, unavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(op, err)
	}
	return n, nil
}

// missing explains a mutation that matched nothing.
func (s *SQLStore) missing(ctx context.Context, username string) error {
	query := s.db.Rebind(`SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`)
	var exists bool
	err := retryRead(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		if err := s.db.GetContext(ctx, &exists, query, username); err != nil {
			return unavailable("check user", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !exists {
		return data.ErrUserNotFound
	}
	return data.ErrTaskNotFound
}
