package blackjack

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxDisplayNameLen = 20

// Player 房间内的一个座位玩家。Bankroll 单位为分, 任何已提交的交易后 ≥ 0。
type Player struct {
	ID           string       `json:"id"`
	DisplayName  string       `json:"displayName"`
	Seat         int          `json:"seat"`
	Bankroll     int64        `json:"bankroll"`
	Status       PlayerStatus `json:"status"`
	LastActivity time.Time    `json:"lastActivity"`
}

// Room 共享牌桌聚合根: 房间元数据 + 座位玩家 + 可选的进行中牌局。
// 引擎的每次操作都在内存副本上完成后再整体写回存储。
type Room struct {
	Code     string             `json:"code"`
	HostID   string             `json:"hostId"`
	State    RoomState          `json:"state"`
	Settings Settings           `json:"settings"`
	Players  map[string]*Player `json:"players"`
	Game     *GameState         `json:"game,omitempty"`
	History  *SessionHistory    `json:"history,omitempty"`

	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastActivity time.Time `json:"lastActivity"`
	// Version 每次提交的变更递增一次, 轮询客户端据此去重。
	Version int64 `json:"version"`
}

// NewRoom 建房并让房主落座 1 号位。
func NewRoom(code string, settings Settings, hostDisplayName string, now time.Time) (*Room, *Player, error) {
	if err := settings.Validate(); err != nil {
		return nil, nil, ErrValidation(err.Error())
	}
	host, err := newPlayer(hostDisplayName, 1, settings.BuyIn, now)
	if err != nil {
		return nil, nil, err
	}
	r := &Room{
		Code:         code,
		HostID:       host.ID,
		State:        RoomStateLobby,
		Settings:     settings,
		Players:      map[string]*Player{host.ID: host},
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
	}
	return r, host, nil
}

func newPlayer(displayName string, seat int, bankroll int64, now time.Time) (*Player, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, ErrValidation("displayName is required")
	}
	if len([]rune(displayName)) > maxDisplayNameLen {
		return nil, ErrValidation(fmt.Sprintf("displayName longer than %d chars", maxDisplayNameLen))
	}
	return &Player{
		ID:           uuid.NewString(),
		DisplayName:  displayName,
		Seat:         seat,
		Bankroll:     bankroll,
		Status:       PlayerStatusWaiting,
		LastActivity: now,
	}, nil
}

// AddPlayer 加入房间。seat 为 0 时自动取最小空座。
func (r *Room) AddPlayer(displayName string, seat int, now time.Time) (*Player, error) {
	if r.State != RoomStateLobby {
		return nil, ErrState("can only join a room in lobby")
	}
	if len(r.Players) >= r.Settings.MaxPlayers {
		return nil, ErrRoomFull
	}
	if seat == 0 {
		seat = r.firstFreeSeat()
	}
	if seat < 1 || seat > r.Settings.MaxPlayers {
		return nil, ErrValidation(fmt.Sprintf("seat must be 1-%d", r.Settings.MaxPlayers))
	}
	if r.seatOccupied(seat) {
		return nil, ErrSeatTaken
	}
	p, err := newPlayer(displayName, seat, r.Settings.BuyIn, now)
	if err != nil {
		return nil, err
	}
	r.Players[p.ID] = p
	return p, nil
}

// ChangeSeat 换座, 仅限 lobby 阶段。
func (r *Room) ChangeSeat(playerID string, seat int) error {
	if r.State != RoomStateLobby {
		return ErrState("can only change seat in lobby")
	}
	p, ok := r.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if seat < 1 || seat > r.Settings.MaxPlayers {
		return ErrValidation(fmt.Sprintf("seat must be 1-%d", r.Settings.MaxPlayers))
	}
	if seat == p.Seat {
		return nil
	}
	if r.seatOccupied(seat) {
		return ErrSeatTaken
	}
	p.Seat = seat
	return nil
}

// RemovePlayer 离席。若是房主则把房主移交给座位号最小的剩余玩家。
// 若玩家本轮尚有未完成手牌, 先视同停牌推进, 再移除。
// 返回 true 表示房间已空, 调用方应删除该房间。
func (r *Room) RemovePlayer(playerID string, now time.Time) (empty bool, err error) {
	if _, ok := r.Players[playerID]; !ok {
		return false, ErrPlayerNotFound
	}
	if r.Game != nil {
		r.Game.retirePlayer(r, playerID, now)
	}
	delete(r.Players, playerID)

	if len(r.Players) == 0 {
		return true, nil
	}
	if r.HostID == playerID {
		bySeat := r.playersBySeat()
		r.HostID = bySeat[0].ID
	}
	// 离席可能使下注阶段的“所有人已表态”成立。
	if r.Game != nil && r.Game.Phase == PhaseBetting {
		r.Game.maybeDeal(r, now)
	}
	return false, nil
}

// MarkDisconnected 标记掉线。掉线玩家不阻塞下注阶段的开局判定。
func (r *Room) MarkDisconnected(playerID string, now time.Time) error {
	p, ok := r.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Status = PlayerStatusDisconnected
	p.LastActivity = now
	if r.Game != nil && r.Game.Phase == PhaseBetting {
		r.Game.maybeDeal(r, now)
	}
	return nil
}

// Touch 记录一次成功提交的变更。
func (r *Room) Touch(now time.Time) {
	r.UpdatedAt = now
	r.LastActivity = now
	r.Version++
}

func (r *Room) IsHost(playerID string) bool {
	return r.HostID == playerID
}

func (r *Room) seatOccupied(seat int) bool {
	for _, p := range r.Players {
		if p.Seat == seat {
			return true
		}
	}
	return false
}

func (r *Room) firstFreeSeat() int {
	for seat := 1; seat <= r.Settings.MaxPlayers; seat++ {
		if !r.seatOccupied(seat) {
			return seat
		}
	}
	return 0
}

// playersBySeat 按座位号升序返回玩家。
func (r *Room) playersBySeat() []*Player {
	out := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}

// Clone 深拷贝聚合根, 与持久化走同一条 JSON 编解码路径。
func (r *Room) Clone() (*Room, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out Room
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
