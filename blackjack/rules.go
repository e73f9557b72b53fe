package blackjack

import "fmt"

// reshufflePenetration 新一轮下注开始前触发重洗的穿透率阈值。
const reshufflePenetration = 0.75

// Rules 牌桌规则变体。
type Rules struct {
	Decks int `json:"decks"`
	// DealerHitsSoft17 true 为 H17, false 为 S17。
	DealerHitsSoft17 bool `json:"dealerHitsSoft17"`
	// DoubleAfterSplit 允许分牌后加倍 (DAS)。
	DoubleAfterSplit bool `json:"doubleAfterSplit"`
	LateSurrender    bool `json:"lateSurrender"`
	// AcesSplitOneCard 分 A 后每手只补一张牌。
	AcesSplitOneCard bool `json:"acesSplitOneCard"`
	// SixToFive true 时 blackjack 赔 6:5, 否则 3:2。
	SixToFive bool `json:"sixToFive"`
}

func DefaultRules() Rules {
	return Rules{
		Decks:            6,
		DealerHitsSoft17: false,
		DoubleAfterSplit: true,
		LateSurrender:    true,
		AcesSplitOneCard: true,
		SixToFive:        false,
	}
}

// blackjackBonus 自然 blackjack 的奖金部分 (不含本金)。
func (r Rules) blackjackBonus(bet int64) int64 {
	if r.SixToFive {
		return bet * 6 / 5
	}
	return bet * 3 / 2
}

// Settings 建房配置。金额单位为分。
type Settings struct {
	MaxPlayers         int   `json:"maxPlayers"`
	BuyIn              int64 `json:"buyIn"`
	MinBet             int64 `json:"minBet"`
	MaxBet             int64 `json:"maxBet"`
	TurnTimeoutSeconds int   `json:"turnTimeoutSeconds"`
	Rules              Rules `json:"rules"`
	// Seed 非 0 时牌靴可复现 (测试用)。
	Seed int64 `json:"seed,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		MaxPlayers:         6,
		BuyIn:              100_000,
		MinBet:             500,
		MaxBet:             25_000,
		TurnTimeoutSeconds: 30,
		Rules:              DefaultRules(),
	}
}

func (s Settings) Validate() error {
	if s.MaxPlayers < 1 || s.MaxPlayers > 6 {
		return fmt.Errorf("maxPlayers must be 1-6, got %d", s.MaxPlayers)
	}
	if s.TurnTimeoutSeconds < 10 || s.TurnTimeoutSeconds > 60 {
		return fmt.Errorf("turnTimeoutSeconds must be 10-60, got %d", s.TurnTimeoutSeconds)
	}
	if s.BuyIn <= 0 {
		return fmt.Errorf("buyIn must be > 0")
	}
	if s.MinBet <= 0 || s.MinBet > s.MaxBet {
		return fmt.Errorf("invalid bet range: min=%d max=%d", s.MinBet, s.MaxBet)
	}
	if s.MaxBet > s.BuyIn {
		return fmt.Errorf("maxBet %d exceeds buyIn %d", s.MaxBet, s.BuyIn)
	}
	if s.Rules.Decks < 1 || s.Rules.Decks > 8 {
		return fmt.Errorf("decks must be 1-8, got %d", s.Rules.Decks)
	}
	return nil
}

// shoeSeed 为第 n 次洗牌派生种子, 保证固定 Seed 下每靴牌序不同但可复现。
func (s Settings) shoeSeed(shuffleCount int) int64 {
	if s.Seed == 0 {
		return 0
	}
	return s.Seed + int64(shuffleCount)
}
