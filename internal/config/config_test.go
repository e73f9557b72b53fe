package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	require.Equal(t, "localhost", cfg.Server.Address)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "memory", cfg.Store.Backend)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ParsesAndFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.hcl")
	content := `
server {
  port      = 9090
  log_level = "debug"
}

game {
  min_bet             = 1000
  dealer_hits_soft_17 = true
}

store {
  backend          = "sqlite"
  sqlite_path      = "rooms.db"
  room_ttl_minutes = 45
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	// 未显式给出的字段回退到默认值。
	require.Equal(t, "localhost", cfg.Server.Address)
	require.Equal(t, "localhost:9090", cfg.GetServerAddress())

	game := cfg.GameDefaults()
	require.Equal(t, int64(1000), game.MinBet)
	require.Equal(t, int64(25_000), game.MaxBet)
	require.True(t, game.Rules.DealerHitsSoft17)
	require.Equal(t, 6, game.Rules.Decks)

	sc := cfg.StoreConfig()
	require.Equal(t, "sqlite", sc.Backend)
	require.Equal(t, "rooms.db", sc.SQLitePath)
	require.Equal(t, 45*time.Minute, sc.RoomTTL)
	require.Zero(t, sc.HistoryTTL)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.Backend = "redis"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Game.MinBet = 50_000 // 超过 max_bet
	require.Error(t, cfg.Validate())
}