package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/G-districts/Gschool-connect/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS settings (
		k TEXT PRIMARY KEY,
		v TEXT
	);

	CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		password TEXT,
		role TEXT
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room TEXT,
		user_id TEXT,
		role TEXT,
		text TEXT,
		ts INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_chat_room_ts ON chat_messages(room, ts);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a console account by email.
func (s *SQLiteStore) GetUser(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT email, password, role FROM users WHERE email = ?`, email)

	var user domain.User
	err := row.Scan(&user.Email, &user.Password, &user.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return &user, nil
}

// UpsertUser creates or updates a console account.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO users (email, password, role)
	VALUES (?, ?, ?)
	ON CONFLICT(email) DO UPDATE SET
		password = excluded.password,
		role = excluded.role`,
		user.Email, user.Password, user.Role,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// Authenticate checks credentials, returning nil on a mismatch.
func (s *SQLiteStore) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT email, role FROM users WHERE email = ? AND password = ?`, email, password)

	var user domain.User
	err := row.Scan(&user.Email, &user.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return &user, nil
}

// GetSetting unmarshals the stored JSON value for key into dest.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string, dest any) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT v FROM settings WHERE k = ?`, key)

	var raw string
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("scan setting row: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// Legacy rows may hold bare strings; recover rather than fail the read.
		slog.Warn("Setting value not valid JSON", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

// SetSetting stores value for key as JSON.
func (s *SQLiteStore) SetSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`REPLACE INTO settings (k, v) VALUES (?, ?)`, key, string(raw)); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// AppendMessage appends one transcript entry to a room.
func (s *SQLiteStore) AppendMessage(ctx context.Context, room, userID, role, text string, ts int64) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (room, user_id, role, text, ts) VALUES (?, ?, ?, ?, ?)`,
		room, userID, role, text, ts); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Messages returns a room's transcript in timestamp order.
func (s *SQLiteStore) Messages(ctx context.Context, room string) ([]domain.DirectMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, role, text, ts FROM chat_messages WHERE room = ? ORDER BY ts ASC, id ASC`, room)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	msgs := []domain.DirectMessage{}
	for rows.Next() {
		var m domain.DirectMessage
		if err := rows.Scan(&m.User, &m.From, &m.Text, &m.TS); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
