package roomstore

import (
	"context"
	"testing"
	"time"

	"blackjack-lite/blackjack"

	"github.com/stretchr/testify/require"
)

func testRoom(t *testing.T, code string) *blackjack.Room {
	t.Helper()
	room, _, err := blackjack.NewRoom(code, blackjack.DefaultSettings(), "host", time.Unix(1_700_000_000, 0))
	require.NoError(t, err)
	return room
}

func TestMemoryStore_RoomRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Config{Backend: "memory"})

	room := testRoom(t, "AB12")
	require.NoError(t, s.PutRoom(ctx, room))

	got, err := s.GetRoom(ctx, "AB12")
	require.NoError(t, err)
	require.Equal(t, room.Code, got.Code)
	require.Equal(t, room.HostID, got.HostID)

	// 取出的是深拷贝, 改动不回写。
	got.HostID = "someone-else"
	again, err := s.GetRoom(ctx, "AB12")
	require.NoError(t, err)
	require.Equal(t, room.HostID, again.HostID)

	require.NoError(t, s.DeleteRoom(ctx, "AB12"))
	_, err = s.GetRoom(ctx, "AB12")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RoomTTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Config{Backend: "memory"}).(*memoryStore)

	current := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return current }

	require.NoError(t, s.PutRoom(ctx, testRoom(t, "AB12")))
	_, err := s.GetRoom(ctx, "AB12")
	require.NoError(t, err)

	current = current.Add(defaultRoomTTL - time.Second)
	_, err = s.GetRoom(ctx, "AB12")
	require.NoError(t, err)

	current = current.Add(2 * time.Second)
	_, err = s.GetRoom(ctx, "AB12")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ActiveCodesPurgesExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Config{Backend: "memory"}).(*memoryStore)

	current := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return current }

	require.NoError(t, s.PutRoom(ctx, testRoom(t, "OLD1")))
	current = current.Add(defaultRoomTTL / 2)
	require.NoError(t, s.PutRoom(ctx, testRoom(t, "NEW1")))

	codes, err := s.ActiveCodes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"NEW1", "OLD1"}, codes)

	current = current.Add(defaultRoomTTL/2 + time.Second)
	codes, err = s.ActiveCodes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"NEW1"}, codes)
}

func TestMemoryStore_HistoriesSortedByStart(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Config{Backend: "memory"})

	base := time.Unix(1_700_000_000, 0)
	older := &blackjack.SessionHistory{SessionID: "s1", RoomCode: "AB12", StartedAt: base}
	newer := &blackjack.SessionHistory{SessionID: "s2", RoomCode: "AB12", StartedAt: base.Add(time.Hour)}
	require.NoError(t, s.PutHistory(ctx, older))
	require.NoError(t, s.PutHistory(ctx, newer))

	got, err := s.ListHistories(ctx, "AB12")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "s2", got[0].SessionID)
	require.Equal(t, "s1", got[1].SessionID)

	other, err := s.ListHistories(ctx, "ZZZZ")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestNew_BackendSelection(t *testing.T) {
	store, mode, err := New(Config{Backend: "memory"})
	require.NoError(t, err)
	require.Equal(t, "memory", mode)
	require.NoError(t, store.Close())

	_, _, err = New(Config{Backend: "bogus"})
	require.Error(t, err)
}
