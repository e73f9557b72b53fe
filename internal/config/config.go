// Package config 服务端 HCL 配置: 监听地址、默认牌局参数、存储后端。
package config

import (
	"fmt"
	"os"
	"time"

	"blackjack-lite/blackjack"
	"blackjack-lite/internal/roomstore"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config 服务端配置。三个块在文件里都可省略, 缺省回退到 Default 的值。
type Config struct {
	Server ServerSettings
	Game   GameSettings
	Store  StoreSettings
}

// fileConfig HCL 文件的解码形态。
type fileConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Game   *GameSettings   `hcl:"game,block"`
	Store  *StoreSettings  `hcl:"store,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings 新建房间未显式覆盖时使用的默认牌局参数。
type GameSettings struct {
	MaxPlayers         int   `hcl:"max_players,optional"`
	BuyIn              int64 `hcl:"buy_in,optional"`
	MinBet             int64 `hcl:"min_bet,optional"`
	MaxBet             int64 `hcl:"max_bet,optional"`
	TurnTimeoutSeconds int   `hcl:"turn_timeout_seconds,optional"`
	Decks              int   `hcl:"decks,optional"`
	DealerHitsSoft17   bool  `hcl:"dealer_hits_soft_17,optional"`
	SixToFive          bool  `hcl:"six_to_five,optional"`
}

// StoreSettings 存储后端: memory / sqlite / postgres。
type StoreSettings struct {
	Backend         string `hcl:"backend,optional"`
	SQLitePath      string `hcl:"sqlite_path,optional"`
	PostgresDSN     string `hcl:"postgres_dsn,optional"`
	RoomTTLMinutes  int    `hcl:"room_ttl_minutes,optional"`
	HistoryTTLHours int    `hcl:"history_ttl_hours,optional"`
}

// Default returns default server configuration
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			MaxPlayers:         6,
			BuyIn:              100_000,
			MinBet:             500,
			MaxBet:             25_000,
			TurnTimeoutSeconds: 30,
			Decks:              6,
		},
		Store: StoreSettings{
			Backend: "memory",
		},
	}
}

// Load loads server configuration from an HCL file.
// 文件不存在时直接用默认配置运行。
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := Default()
	if raw.Server != nil {
		cfg.Server = *raw.Server
	}
	if raw.Game != nil {
		cfg.Game = *raw.Game
	}
	if raw.Store != nil {
		cfg.Store = *raw.Store
	}

	def := Default()
	if cfg.Server.Address == "" {
		cfg.Server.Address = def.Server.Address
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = def.Server.LogLevel
	}
	if cfg.Game.MaxPlayers == 0 {
		cfg.Game.MaxPlayers = def.Game.MaxPlayers
	}
	if cfg.Game.BuyIn == 0 {
		cfg.Game.BuyIn = def.Game.BuyIn
	}
	if cfg.Game.MinBet == 0 {
		cfg.Game.MinBet = def.Game.MinBet
	}
	if cfg.Game.MaxBet == 0 {
		cfg.Game.MaxBet = def.Game.MaxBet
	}
	if cfg.Game.TurnTimeoutSeconds == 0 {
		cfg.Game.TurnTimeoutSeconds = def.Game.TurnTimeoutSeconds
	}
	if cfg.Game.Decks == 0 {
		cfg.Game.Decks = def.Game.Decks
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = def.Store.Backend
	}

	return cfg, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Store.Backend {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid store backend: %s", c.Store.Backend)
	}
	if err := c.GameDefaults().Validate(); err != nil {
		return fmt.Errorf("game defaults: %w", err)
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GameDefaults 把配置文件的牌局块转成引擎的 Settings。
func (c *Config) GameDefaults() blackjack.Settings {
	s := blackjack.DefaultSettings()
	s.MaxPlayers = c.Game.MaxPlayers
	s.BuyIn = c.Game.BuyIn
	s.MinBet = c.Game.MinBet
	s.MaxBet = c.Game.MaxBet
	s.TurnTimeoutSeconds = c.Game.TurnTimeoutSeconds
	s.Rules.Decks = c.Game.Decks
	s.Rules.DealerHitsSoft17 = c.Game.DealerHitsSoft17
	s.Rules.SixToFive = c.Game.SixToFive
	return s
}

// StoreConfig 把配置文件的存储块转成存储工厂的参数。
func (c *Config) StoreConfig() roomstore.Config {
	cfg := roomstore.Config{
		Backend:     c.Store.Backend,
		SQLitePath:  c.Store.SQLitePath,
		PostgresDSN: c.Store.PostgresDSN,
	}
	if c.Store.RoomTTLMinutes > 0 {
		cfg.RoomTTL = time.Duration(c.Store.RoomTTLMinutes) * time.Minute
	}
	if c.Store.HistoryTTLHours > 0 {
		cfg.HistoryTTL = time.Duration(c.Store.HistoryTTLHours) * time.Hour
	}
	return cfg
}
