package roomstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"blackjack-lite/blackjack"
)

// memoryStore 进程内实现。与数据库后端走同一条 JSON 编解码路径,
// 取出与写入天然是深拷贝。
type memoryStore struct {
	cfg Config
	now func() time.Time

	mu        sync.RWMutex
	rooms     map[string]memRecord
	histories map[string][]memRecord // roomCode -> 会话历史 (追加序)
}

type memRecord struct {
	payload   []byte
	expiresAt time.Time
}

func NewMemoryStore(cfg Config) Store {
	return &memoryStore{
		cfg:       cfg.withDefaults(),
		now:       time.Now,
		rooms:     make(map[string]memRecord),
		histories: make(map[string][]memRecord),
	}
}

func (s *memoryStore) GetRoom(_ context.Context, code string) (*blackjack.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rooms[code]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(rec.expiresAt) {
		delete(s.rooms, code)
		return nil, ErrNotFound
	}
	var room blackjack.Room
	if err := json.Unmarshal(rec.payload, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *memoryStore) PutRoom(_ context.Context, room *blackjack.Room) error {
	payload, err := json.Marshal(room)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.Code] = memRecord{
		payload:   payload,
		expiresAt: s.now().Add(s.cfg.RoomTTL),
	}
	return nil
}

func (s *memoryStore) DeleteRoom(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	return nil
}

func (s *memoryStore) ActiveCodes(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	codes := make([]string, 0, len(s.rooms))
	for code, rec := range s.rooms {
		if !now.Before(rec.expiresAt) {
			delete(s.rooms, code)
			continue
		}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

func (s *memoryStore) PutHistory(_ context.Context, history *blackjack.SessionHistory) error {
	payload, err := json.Marshal(history)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[history.RoomCode] = append(s.histories[history.RoomCode], memRecord{
		payload:   payload,
		expiresAt: s.now().Add(s.cfg.HistoryTTL),
	})
	return nil
}

func (s *memoryStore) ListHistories(_ context.Context, roomCode string) ([]*blackjack.SessionHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	kept := s.histories[roomCode][:0]
	out := make([]*blackjack.SessionHistory, 0, len(s.histories[roomCode]))
	for _, rec := range s.histories[roomCode] {
		if !now.Before(rec.expiresAt) {
			continue
		}
		kept = append(kept, rec)
		var h blackjack.SessionHistory
		if err := json.Unmarshal(rec.payload, &h); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	s.histories[roomCode] = kept

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (s *memoryStore) Close() error { return nil }
