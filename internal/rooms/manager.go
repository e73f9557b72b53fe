// Package rooms 房间管理层: 房间码分配、逐房间互斥、
// 针对存储的读-改-写循环, 以及回合超时的服务端强制执行。
//
// 存储层没有事务和 CAS, 同一房间的两个并发写者会互相覆盖;
// 这里对每个房间码持有一把进程内互斥锁, 把引擎调用串行化。
package rooms

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"blackjack-lite/blackjack"
	"blackjack-lite/internal/roomstore"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength      = 4
	maxCodeAttempts = 64

	// sweepInterval 后台扫描间隔: 不轮询的房间也能被强制停牌。
	sweepInterval = time.Second
)

type Manager struct {
	store  roomstore.Store
	logger zerolog.Logger
	clock  quartz.Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewManager(store roomstore.Store, logger zerolog.Logger, clock quartz.Clock) *Manager {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Manager{
		store:  store,
		logger: logger.With().Str("component", "rooms").Logger(),
		clock:  clock,
		locks:  make(map[string]*sync.Mutex),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// JoinResult 建房/加入的返回: 新玩家的身份 + 当前房间快照。
type JoinResult struct {
	PlayerID string                 `json:"playerId"`
	Room     blackjack.RoomSnapshot `json:"room"`
}

// CreateRoom 建房, 房主自动落座。
func (m *Manager) CreateRoom(ctx context.Context, settings blackjack.Settings, hostDisplayName string) (JoinResult, error) {
	code, err := m.generateCode(ctx)
	if err != nil {
		return JoinResult{}, err
	}
	now := m.clock.Now()
	room, host, err := blackjack.NewRoom(code, settings, hostDisplayName, now)
	if err != nil {
		return JoinResult{}, err
	}
	room.Touch(now)
	if err := m.store.PutRoom(ctx, room); err != nil {
		return JoinResult{}, err
	}
	m.logger.Info().Str("room", code).Str("host", host.ID).Msg("room created")
	return JoinResult{PlayerID: host.ID, Room: room.Snapshot(now)}, nil
}

// generateCode 生成与活跃房间不冲突的 4 位大写字母数字房间码。
func (m *Manager) generateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := m.randomCode()
		_, err := m.store.GetRoom(ctx, code)
		if errors.Is(err, roomstore.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not allocate a unique room code after %d attempts", maxCodeAttempts)
}

func (m *Manager) randomCode() string {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[m.rng.Intn(len(codeAlphabet))])
	}
	return b.String()
}

func (m *Manager) JoinRoom(ctx context.Context, code, displayName string, seat int) (JoinResult, error) {
	var playerID string
	snap, err := m.withRoom(ctx, code, func(room *blackjack.Room) error {
		p, err := room.AddPlayer(displayName, seat, m.clock.Now())
		if err != nil {
			return err
		}
		playerID = p.ID
		return nil
	})
	if err != nil {
		return JoinResult{}, err
	}
	m.logger.Info().Str("room", code).Str("player", playerID).Msg("player joined")
	return JoinResult{PlayerID: playerID, Room: snap}, nil
}

func (m *Manager) ChangeSeat(ctx context.Context, code, playerID string, seat int) (blackjack.RoomSnapshot, error) {
	return m.withRoom(ctx, code, func(room *blackjack.Room) error {
		return room.ChangeSeat(playerID, seat)
	})
}

func (m *Manager) StartSession(ctx context.Context, code, playerID string) (blackjack.RoomSnapshot, error) {
	snap, err := m.withRoom(ctx, code, func(room *blackjack.Room) error {
		return room.StartSession(playerID, m.clock.Now())
	})
	if err == nil {
		m.logger.Info().Str("room", code).Msg("session started")
	}
	return snap, err
}

func (m *Manager) PlaceBet(ctx context.Context, code, playerID string, amount int64) (blackjack.RoomSnapshot, error) {
	return m.withRoom(ctx, code, func(room *blackjack.Room) error {
		return room.PlaceBet(playerID, amount, m.clock.Now())
	})
}

func (m *Manager) SkipRound(ctx context.Context, code, playerID string) (blackjack.RoomSnapshot, error) {
	return m.withRoom(ctx, code, func(room *blackjack.Room) error {
		return room.SkipRound(playerID, m.clock.Now())
	})
}

func (m *Manager) ProcessAction(ctx context.Context, code, playerID string, action blackjack.ActionType) (blackjack.RoomSnapshot, error) {
	return m.withRoom(ctx, code, func(room *blackjack.Room) error {
		return room.ProcessAction(playerID, action, m.clock.Now())
	})
}

func (m *Manager) MarkDisconnected(ctx context.Context, code, playerID string) (blackjack.RoomSnapshot, error) {
	return m.withRoom(ctx, code, func(room *blackjack.Room) error {
		return room.MarkDisconnected(playerID, m.clock.Now())
	})
}

// EndSession 收局并把封存的会话历史写入长期存储。
func (m *Manager) EndSession(ctx context.Context, code, playerID string) (blackjack.RoomSnapshot, error) {
	var history *blackjack.SessionHistory
	snap, err := m.withRoom(ctx, code, func(room *blackjack.Room) error {
		if err := room.EndSession(playerID, m.clock.Now()); err != nil {
			return err
		}
		history = room.History
		return nil
	})
	if err != nil {
		return snap, err
	}
	if history != nil {
		// 历史持久化是尽力而为; 失败不回滚已收局的房间。
		if err := m.store.PutHistory(ctx, history); err != nil {
			m.logger.Error().Err(err).Str("room", code).Msg("failed to persist session history")
		}
	}
	m.logger.Info().Str("room", code).Msg("session ended")
	return snap, nil
}

// LeaveRoom 离席。最后一个玩家离开时删除房间, 返回 gone=true。
func (m *Manager) LeaveRoom(ctx context.Context, code, playerID string) (gone bool, snap blackjack.RoomSnapshot, err error) {
	lock := m.lockFor(code)
	lock.Lock()
	defer lock.Unlock()

	room, err := m.loadRoom(ctx, code)
	if err != nil {
		return false, blackjack.RoomSnapshot{}, err
	}
	now := m.clock.Now()
	forced := room.ForceExpiredTurn(now)

	empty, err := room.RemovePlayer(playerID, now)
	if err != nil {
		if forced {
			m.persistForced(ctx, room, now)
		}
		return false, blackjack.RoomSnapshot{}, err
	}
	if empty {
		if err := m.store.DeleteRoom(ctx, code); err != nil {
			return false, blackjack.RoomSnapshot{}, err
		}
		m.logger.Info().Str("room", code).Msg("room deleted: last player left")
		return true, blackjack.RoomSnapshot{}, nil
	}
	room.Touch(now)
	if err := m.store.PutRoom(ctx, room); err != nil {
		return false, blackjack.RoomSnapshot{}, err
	}
	return false, room.Snapshot(now), nil
}

// GetRoom 轮询读。只在惰性超时触发了强制停牌时才写回。
func (m *Manager) GetRoom(ctx context.Context, code string) (blackjack.RoomSnapshot, error) {
	return m.withRoom(ctx, code, nil)
}

// GetHistory 返回房间的会话历史, 进行中的会话排在最前。
func (m *Manager) GetHistory(ctx context.Context, code string) ([]*blackjack.SessionHistory, error) {
	histories, err := m.store.ListHistories(ctx, code)
	if err != nil {
		return nil, err
	}
	room, err := m.store.GetRoom(ctx, code)
	switch {
	case err == nil:
		if room.History != nil && room.History.EndedAt.IsZero() {
			histories = append([]*blackjack.SessionHistory{room.History}, histories...)
		}
	case errors.Is(err, roomstore.ErrNotFound):
		if len(histories) == 0 {
			return nil, blackjack.ErrRoomNotFound
		}
	default:
		return nil, err
	}
	return histories, nil
}

// withRoom 对一个房间执行读-改-写循环:
// 取锁 → 加载 → 惰性超时强制 → 在克隆上应用操作 → 整体写回。
// 操作跑在 Clone 上, 中途被拒绝的操作哪怕已经动过游戏状态
// (比如 results 阶段下注先推进了新一轮) 也不会落盘;
// 强制停牌发生在操作之前, 失败时单独写回。
func (m *Manager) withRoom(ctx context.Context, code string, fn func(*blackjack.Room) error) (blackjack.RoomSnapshot, error) {
	lock := m.lockFor(code)
	lock.Lock()
	defer lock.Unlock()

	room, err := m.loadRoom(ctx, code)
	if err != nil {
		return blackjack.RoomSnapshot{}, err
	}
	now := m.clock.Now()
	forced := room.ForceExpiredTurn(now)
	if forced {
		m.logger.Info().Str("room", code).Msg("turn expired: forced stand")
	}

	if fn != nil {
		work, err := room.Clone()
		if err != nil {
			return blackjack.RoomSnapshot{}, fmt.Errorf("clone room %s: %w", code, err)
		}
		if err := fn(work); err != nil {
			if forced {
				m.persistForced(ctx, room, now)
			}
			return blackjack.RoomSnapshot{}, err
		}
		room = work
	}
	if fn != nil || forced {
		room.Touch(now)
		if err := m.store.PutRoom(ctx, room); err != nil {
			return blackjack.RoomSnapshot{}, err
		}
	}
	return room.Snapshot(now), nil
}

func (m *Manager) persistForced(ctx context.Context, room *blackjack.Room, now time.Time) {
	room.Touch(now)
	if err := m.store.PutRoom(ctx, room); err != nil {
		m.logger.Error().Err(err).Str("room", room.Code).Msg("failed to persist forced stand")
	}
}

func (m *Manager) loadRoom(ctx context.Context, code string) (*blackjack.Room, error) {
	room, err := m.store.GetRoom(ctx, code)
	if errors.Is(err, roomstore.ErrNotFound) {
		return nil, blackjack.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (m *Manager) lockFor(code string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[code]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[code] = lock
	}
	return lock
}

// Run 回合时钟后台扫描: 对每个活跃房间走与客户端动作相同的
// 加锁读-改-写路径, 保证强制停牌与玩家动作严格串行。
func (m *Manager) Run(ctx context.Context) error {
	waiter := m.clock.TickerFunc(ctx, sweepInterval, func() error {
		m.sweep(ctx)
		return nil
	}, "turn-sweeper")
	err := waiter.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (m *Manager) sweep(ctx context.Context) {
	codes, err := m.store.ActiveCodes(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("sweep: listing active rooms failed")
		return
	}
	for _, code := range codes {
		if _, err := m.withRoom(ctx, code, nil); err != nil && !errors.Is(err, blackjack.ErrRoomNotFound) {
			m.logger.Error().Err(err).Str("room", code).Msg("sweep failed")
		}
	}
}
