package roomstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"blackjack-lite/blackjack"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	cfg Config
	db  *sql.DB
}

func NewSQLiteStore(cfg Config) (Store, error) {
	cfg = cfg.withDefaults()
	dbPath := strings.TrimSpace(cfg.SQLitePath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{cfg: cfg, db: db}, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			code       TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_expires ON rooms(expires_at);`,
		`CREATE TABLE IF NOT EXISTS session_histories (
			session_id TEXT PRIMARY KEY,
			room_code  TEXT NOT NULL,
			payload    TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_histories_room ON session_histories(room_code);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) GetRoom(ctx context.Context, code string) (*blackjack.Room, error) {
	var payload string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM rooms WHERE code = ?`, code,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if expiresAt <= time.Now().Unix() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM rooms WHERE code = ?`, code)
		return nil, ErrNotFound
	}
	var room blackjack.Room
	if err := json.Unmarshal([]byte(payload), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *sqliteStore) PutRoom(ctx context.Context, room *blackjack.Room) error {
	payload, err := json.Marshal(room)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rooms(code, payload, updated_at, expires_at) VALUES(?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET payload = excluded.payload,
		   updated_at = excluded.updated_at, expires_at = excluded.expires_at`,
		room.Code, string(payload), now.Unix(), now.Add(s.cfg.RoomTTL).Unix())
	return err
}

func (s *sqliteStore) DeleteRoom(ctx context.Context, code string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE code = ?`, code)
	return err
}

func (s *sqliteStore) ActiveCodes(ctx context.Context) ([]string, error) {
	now := time.Now().Unix()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE expires_at <= ?`, now); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT code FROM rooms WHERE expires_at > ? ORDER BY code`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (s *sqliteStore) PutHistory(ctx context.Context, history *blackjack.SessionHistory) error {
	payload, err := json.Marshal(history)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_histories(session_id, room_code, payload, started_at, expires_at)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET payload = excluded.payload,
		   expires_at = excluded.expires_at`,
		history.SessionID, history.RoomCode, string(payload),
		history.StartedAt.Unix(), time.Now().Add(s.cfg.HistoryTTL).Unix())
	return err
}

func (s *sqliteStore) ListHistories(ctx context.Context, roomCode string) ([]*blackjack.SessionHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM session_histories
		 WHERE room_code = ? AND expires_at > ?
		 ORDER BY started_at DESC`,
		roomCode, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*blackjack.SessionHistory
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var h blackjack.SessionHistory
		if err := json.Unmarshal([]byte(payload), &h); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
