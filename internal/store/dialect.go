package store

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect holds the statements that differ between SQL backends. Queries
// are written with '?' placeholders and rebound for the driver.
type dialect struct {
	driver     string
	migrations []string

	appendTask  string
	removeTask  string
	replaceTask string

	isUniqueViolation func(error) bool
}

var postgresDialect = dialect{
	driver: "postgres",
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			tasks         JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (username)`,
	},
	appendTask: `UPDATE users SET tasks = tasks || jsonb_build_array(?::jsonb)
		WHERE username = ?`,
	// args: task id, username, task id
	removeTask: `UPDATE users SET tasks = tasks - (
			SELECT (t.ord - 1)::int
			FROM jsonb_array_elements(users.tasks) WITH ORDINALITY AS t(elem, ord)
			WHERE t.elem->>'id' = ?::text
			LIMIT 1)
		WHERE username = ?
		  AND tasks @> jsonb_build_array(jsonb_build_object('id', ?::text))`,
	// args: task id, task json, username, task id
	replaceTask: `UPDATE users SET tasks = jsonb_set(tasks, ARRAY[(
			SELECT (t.ord - 1)::text
			FROM jsonb_array_elements(users.tasks) WITH ORDINALITY AS t(elem, ord)
			WHERE t.elem->>'id' = ?::text
			LIMIT 1)], ?::jsonb)
		WHERE username = ?
		  AND tasks @> jsonb_build_array(jsonb_build_object('id', ?::text))`,
	isUniqueViolation: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	},
}

var sqliteDialect = dialect{
	driver: "sqlite",
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			tasks         TEXT NOT NULL DEFAULT '[]',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (username)`,
	},
	appendTask: `UPDATE users SET tasks = json_insert(tasks, '$[#]', json(?))
		WHERE username = ?`,
	removeTask: `UPDATE users SET tasks = json_remove(tasks, (
			SELECT '$[' || t.key || ']'
			FROM json_each(users.tasks) AS t
			WHERE json_extract(t.value, '$.id') = ?
			LIMIT 1))
		WHERE username = ?
		  AND EXISTS (SELECT 1 FROM json_each(users.tasks) AS t WHERE json_extract(t.value, '$.id') = ?)`,
	replaceTask: `UPDATE users SET tasks = json_set(tasks, (
			SELECT '$[' || t.key || ']'
			FROM json_each(users.tasks) AS t
			WHERE json_extract(t.value, '$.id') = ?
			LIMIT 1), json(?))
		WHERE username = ?
		  AND EXISTS (SELECT 1 FROM json_each(users.tasks) AS t WHERE json_extract(t.value, '$.id') = ?)`,
	isUniqueViolation: func(err error) bool {
		var sqliteErr *sqlite.Error
		if !errors.As(err, &sqliteErr) {
			return false
		}
		switch code := sqliteErr.Code(); {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case code&0xff == sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(sqliteErr.Error(), "UNIQUE")
		}
		return false
	},
}
