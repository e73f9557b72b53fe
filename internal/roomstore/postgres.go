package roomstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"blackjack-lite/blackjack"

	_ "github.com/lib/pq"
)

type postgresStore struct {
	cfg Config
	db  *sql.DB
}

func NewPostgresStore(cfg Config) (Store, error) {
	cfg = cfg.withDefaults()
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensurePostgresSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &postgresStore{cfg: cfg, db: db}, nil
}

func ensurePostgresSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			code       TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			updated_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_expires ON rooms(expires_at);`,
		`CREATE TABLE IF NOT EXISTS session_histories (
			session_id TEXT PRIMARY KEY,
			room_code  TEXT NOT NULL,
			payload    JSONB NOT NULL,
			started_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL
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

func (s *postgresStore) GetRoom(ctx context.Context, code string) (*blackjack.Room, error) {
	var payload []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM rooms WHERE code = $1`, code,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if expiresAt <= time.Now().Unix() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM rooms WHERE code = $1`, code)
		return nil, ErrNotFound
	}
	var room blackjack.Room
	if err := json.Unmarshal(payload, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *postgresStore) PutRoom(ctx context.Context, room *blackjack.Room) error {
	payload, err := json.Marshal(room)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rooms(code, payload, updated_at, expires_at) VALUES($1, $2, $3, $4)
		 ON CONFLICT(code) DO UPDATE SET payload = EXCLUDED.payload,
		   updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at`,
		room.Code, payload, now.Unix(), now.Add(s.cfg.RoomTTL).Unix())
	return err
}

func (s *postgresStore) DeleteRoom(ctx context.Context, code string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE code = $1`, code)
	return err
}

func (s *postgresStore) ActiveCodes(ctx context.Context) ([]string, error) {
	now := time.Now().Unix()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE expires_at <= $1`, now); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT code FROM rooms WHERE expires_at > $1 ORDER BY code`, now)
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

func (s *postgresStore) PutHistory(ctx context.Context, history *blackjack.SessionHistory) error {
	payload, err := json.Marshal(history)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_histories(session_id, room_code, payload, started_at, expires_at)
		 VALUES($1, $2, $3, $4, $5)
		 ON CONFLICT(session_id) DO UPDATE SET payload = EXCLUDED.payload,
		   expires_at = EXCLUDED.expires_at`,
		history.SessionID, history.RoomCode, payload,
		history.StartedAt.Unix(), time.Now().Add(s.cfg.HistoryTTL).Unix())
	return err
}

func (s *postgresStore) ListHistories(ctx context.Context, roomCode string) ([]*blackjack.SessionHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM session_histories
		 WHERE room_code = $1 AND expires_at > $2
		 ORDER BY started_at DESC`,
		roomCode, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*blackjack.SessionHistory
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var h blackjack.SessionHistory
		if err := json.Unmarshal(payload, &h); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

func (s *postgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
