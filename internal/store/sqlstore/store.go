package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ChromeUniverse/luccachat/internal/store"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// SQLStore implements store.Store on database/sql for sqlite3 and postgres.
type SQLStore struct {
	db         *sql.DB
	driverName string
}

var _ store.Store = (*SQLStore)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", driverName)
	}
	if driverName == "sqlite3" {
		// A single connection keeps ":memory:" databases shared and
		// serializes writers the way sqlite expects.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping %s", driverName)
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createTables() error {
	// Simplified for brevity, ideally use migrations
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		handle TEXT UNIQUE NOT NULL,
		accent_color TEXT NOT NULL DEFAULT 'blue',
		auth_provider TEXT,
		auth_subject TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT,
		description TEXT,
		is_public BOOLEAN NOT NULL DEFAULT FALSE,
		invite_code TEXT UNIQUE,
		creator_id TEXT REFERENCES users(id),
		latest DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS members (
		chat_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		PRIMARY KEY (chat_id, user_id),
		FOREIGN KEY (chat_id) REFERENCES chats(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		chat_id TEXT NOT NULL,
		author_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (chat_id) REFERENCES chats(id),
		FOREIGN KEY (author_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		pair_key TEXT UNIQUE NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (sender_id) REFERENCES users(id),
		FOREIGN KEY (receiver_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_members_user ON members(user_id);
	CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at);
	`

	if s.driverName == "postgres" {
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMPTZ")
	}

	if _, err := s.db.Exec(query); err != nil {
		return errors.Wrap(err, "create tables")
	}
	if s.driverName == "sqlite3" {
		if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return errors.Wrap(err, "enable foreign keys")
		}
	}
	return nil
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

// lockShared is appended to a SELECT inside withTx to hold the read rows until
// commit. sqlite needs nothing: its single connection already serializes
// transactions.
func (s *SQLStore) lockShared() string {
	if s.driverName == "postgres" {
		return " FOR SHARE"
	}
	return ""
}

// withTx runs fn in a transaction, rolling back when fn fails.
func (s *SQLStore) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit tx")
}

// translate maps driver errors onto the store's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return errors.Wrap(store.ErrConflict, liteErr.Error())
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return errors.Wrap(store.ErrConflict, pqErr.Message)
	}
	return err
}

// affectedOne turns a zero-row write into store.ErrNotFound.
func affectedOne(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.Wrapf(store.ErrNotFound, "%s %s", what, id)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
