package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"budgetly/internal/core"
	"budgetly/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the session as two rows of a key/value table.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteStore(dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Session, error) {
	token, err := s.get(ctx, KeyToken)
	if err != nil {
		return Session{}, err
	}
	raw, err := s.get(ctx, KeyUser)
	if err != nil {
		return Session{}, err
	}

	sess := Session{Token: token}
	if raw != "" {
		var u core.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			// A corrupt cached user counts as absent.
			s.logger.WarnContext(ctx, "Discarding unreadable cached user", log.FieldError, err)
		} else {
			sess.User = &u
		}
	}
	return sess, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	if sess.Token == "" {
		return ErrNoToken
	}
	var userJSON string
	if sess.User != nil {
		b, err := json.Marshal(sess.User)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		userJSON = string(b)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsert(ctx, tx, KeyToken, sess.Token); err != nil {
		return err
	}
	if userJSON == "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_entries WHERE key = ?`, KeyUser); err != nil {
			return fmt.Errorf("delete %s: %w", KeyUser, err)
		}
	} else if err := upsert(ctx, tx, KeyUser, userJSON); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	s.logger.DebugContext(ctx, "Session saved")
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_entries WHERE key IN (?, ?)`, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.DebugContext(ctx, "Session cleared")
	return nil
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_entries WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

func upsert(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO session_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
