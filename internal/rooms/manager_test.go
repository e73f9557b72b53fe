package rooms

import (
	"context"
	"testing"
	"time"

	"blackjack-lite/blackjack"
	"blackjack-lite/internal/roomstore"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *quartz.Mock) {
	t.Helper()
	store := roomstore.NewMemoryStore(roomstore.Config{Backend: "memory"})
	t.Cleanup(func() { _ = store.Close() })
	mock := quartz.NewMock(t)
	return NewManager(store, zerolog.Nop(), mock), mock
}

func TestManager_CreateAndPoll(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	created, err := m.CreateRoom(ctx, blackjack.DefaultSettings(), "host")
	require.NoError(t, err)
	require.Len(t, created.Room.Code, 4)
	require.NotEmpty(t, created.PlayerID)
	require.Equal(t, blackjack.RoomStateLobby, created.Room.State)

	// 轮询读不产生新版本。
	snap, err := m.GetRoom(ctx, created.Room.Code)
	require.NoError(t, err)
	require.Equal(t, created.Room.Version, snap.Version)

	_, err = m.GetRoom(ctx, "ZZZZ")
	require.ErrorIs(t, err, blackjack.ErrRoomNotFound)
}

func TestManager_JoinBumpsVersion(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	created, err := m.CreateRoom(ctx, blackjack.DefaultSettings(), "host")
	require.NoError(t, err)

	joined, err := m.JoinRoom(ctx, created.Room.Code, "guest", 0)
	require.NoError(t, err)
	require.NotEqual(t, created.PlayerID, joined.PlayerID)
	require.Greater(t, joined.Room.Version, created.Room.Version)
	require.Len(t, joined.Room.Players, 2)

	_, err = m.JoinRoom(ctx, "ZZZZ", "nobody", 0)
	require.ErrorIs(t, err, blackjack.ErrRoomNotFound)
}

func TestManager_ExpiredTurnForcedOnPoll(t *testing.T) {
	ctx := context.Background()
	m, mock := newTestManager(t)

	settings := blackjack.DefaultSettings()
	settings.Seed = 1
	created, err := m.CreateRoom(ctx, settings, "host")
	require.NoError(t, err)
	code, hostID := created.Room.Code, created.PlayerID

	_, err = m.StartSession(ctx, code, hostID)
	require.NoError(t, err)
	snap, err := m.PlaceBet(ctx, code, hostID, 2500)
	require.NoError(t, err)
	require.Equal(t, blackjack.PhasePlayerTurn, snap.Game.Phase)

	// 期限未到, 轮询不改变任何东西。
	before, err := m.GetRoom(ctx, code)
	require.NoError(t, err)
	require.Equal(t, snap.Version, before.Version)

	mock.Advance(31 * time.Second).MustWait(ctx)

	after, err := m.GetRoom(ctx, code)
	require.NoError(t, err)
	require.Greater(t, after.Version, before.Version)
	require.NotEqual(t, blackjack.PhasePlayerTurn, after.Game.Phase)
}

func TestManager_RecordsDecisionAfterReload(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	settings := blackjack.DefaultSettings()
	settings.Seed = 1
	created, err := m.CreateRoom(ctx, settings, "host")
	require.NoError(t, err)
	code, hostID := created.Room.Code, created.PlayerID

	_, err = m.StartSession(ctx, code, hostID)
	require.NoError(t, err)
	snap, err := m.PlaceBet(ctx, code, hostID, 2500)
	require.NoError(t, err)
	require.Equal(t, blackjack.PhasePlayerTurn, snap.Game.Phase)

	// 发牌后的房间经历过一次存储序列化来回;
	// 此后的第一个动作仍要能记下决策。
	_, err = m.ProcessAction(ctx, code, hostID, blackjack.ActionTypeStand)
	require.NoError(t, err)

	room, err := m.store.GetRoom(ctx, code)
	require.NoError(t, err)
	require.NotEmpty(t, room.Game.Decis[hostID])
}

func TestManager_RejectedBetLeavesRoomUnchanged(t *testing.T) {
	ctx := context.Background()
	m, mock := newTestManager(t)

	settings := blackjack.DefaultSettings()
	settings.Seed = 1
	created, err := m.CreateRoom(ctx, settings, "host")
	require.NoError(t, err)
	code, hostID := created.Room.Code, created.PlayerID

	_, err = m.StartSession(ctx, code, hostID)
	require.NoError(t, err)
	snap, err := m.PlaceBet(ctx, code, hostID, 2500)
	require.NoError(t, err)
	require.Equal(t, blackjack.PhasePlayerTurn, snap.Game.Phase)

	// 期限过后的下注请求会先触发强制停牌, 回合结算进入 results。
	mock.Advance(31 * time.Second).MustWait(ctx)
	_, err = m.PlaceBet(ctx, code, hostID, 100)
	var verr blackjack.ValidationError
	require.ErrorAs(t, err, &verr)

	// 强制停牌要落盘, 但被拒绝的下注在 results 阶段
	// 已推进过新一轮, 这部分变更不能泄漏出去。
	after, err := m.GetRoom(ctx, code)
	require.NoError(t, err)
	require.Equal(t, blackjack.PhaseResults, after.Game.Phase)
	require.Equal(t, 1, after.Game.RoundNumber)
	require.NotEmpty(t, after.Players[0].Results)
}

func TestManager_LeaveRoomDeletesWhenEmpty(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	created, err := m.CreateRoom(ctx, blackjack.DefaultSettings(), "host")
	require.NoError(t, err)
	joined, err := m.JoinRoom(ctx, created.Room.Code, "guest", 0)
	require.NoError(t, err)

	gone, snap, err := m.LeaveRoom(ctx, created.Room.Code, created.PlayerID)
	require.NoError(t, err)
	require.False(t, gone)
	// 房主移交给剩下的玩家。
	require.Equal(t, joined.PlayerID, snap.HostID)

	gone, _, err = m.LeaveRoom(ctx, created.Room.Code, joined.PlayerID)
	require.NoError(t, err)
	require.True(t, gone)

	_, err = m.GetRoom(ctx, created.Room.Code)
	require.ErrorIs(t, err, blackjack.ErrRoomNotFound)
}

func TestManager_EndSessionPersistsHistory(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	created, err := m.CreateRoom(ctx, blackjack.DefaultSettings(), "host")
	require.NoError(t, err)
	code, hostID := created.Room.Code, created.PlayerID

	_, err = m.StartSession(ctx, code, hostID)
	require.NoError(t, err)

	// 进行中的会话排在历史最前。
	histories, err := m.GetHistory(ctx, code)
	require.NoError(t, err)
	require.Len(t, histories, 1)
	require.True(t, histories[0].EndedAt.IsZero())

	snap, err := m.EndSession(ctx, code, hostID)
	require.NoError(t, err)
	require.Equal(t, blackjack.RoomStateReview, snap.State)

	histories, err = m.GetHistory(ctx, code)
	require.NoError(t, err)
	require.Len(t, histories, 1)
	require.False(t, histories[0].EndedAt.IsZero())

	_, err = m.GetHistory(ctx, "ZZZZ")
	require.ErrorIs(t, err, blackjack.ErrRoomNotFound)
}

func TestManager_ActionFlow(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	settings := blackjack.DefaultSettings()
	settings.Seed = 7
	created, err := m.CreateRoom(ctx, settings, "host")
	require.NoError(t, err)
	code, hostID := created.Room.Code, created.PlayerID

	_, err = m.StartSession(ctx, code, hostID)
	require.NoError(t, err)
	snap, err := m.PlaceBet(ctx, code, hostID, 2500)
	require.NoError(t, err)

	// 种子固定, 但牌面不可预知: 一路停牌直到回合结束。
	for snap.Game != nil && snap.Game.Phase == blackjack.PhasePlayerTurn {
		snap, err = m.ProcessAction(ctx, code, hostID, blackjack.ActionTypeStand)
		require.NoError(t, err)
	}
	require.Equal(t, blackjack.PhaseResults, snap.Game.Phase)
	require.NotEmpty(t, snap.Players[0].Results)
}
