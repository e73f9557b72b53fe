package blackjack

import (
	"time"

	"blackjack-lite/card"
)

// SessionHistory 一次牌局会话的只追加记录。
// startSession 时创建, endSession 时封口并持久化。
type SessionHistory struct {
	SessionID string        `json:"sessionId"`
	RoomCode  string        `json:"roomCode"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt,omitempty"`
	Rounds    []RoundRecord `json:"rounds"`
}

// RoundRecord 单轮留档: 庄家牌、各玩家下注/结果/决策。
type RoundRecord struct {
	RoundNumber int                 `json:"roundNumber"`
	DealerCards card.CardList       `json:"dealerCards"`
	DealerTotal int                 `json:"dealerTotal"`
	Players     []PlayerRoundRecord `json:"players"`
}

type PlayerRoundRecord struct {
	PlayerID    string           `json:"playerId"`
	DisplayName string           `json:"displayName"`
	Bet         int64            `json:"bet"`
	Hands       []Hand           `json:"hands"`
	Results     []HandOutcome    `json:"results"`
	Decisions   []DecisionRecord `json:"decisions,omitempty"`
}

// DecisionRecord 每次真实决策与策略推荐的对照, 仅用于赛后复盘。
type DecisionRecord struct {
	HandIndex   int           `json:"handIndex"`
	Cards       card.CardList `json:"cards"`
	DealerUp    card.Card     `json:"dealerUp"`
	Action      ActionType    `json:"action"`
	Recommended ActionType    `json:"recommended"`
	Rationale   string        `json:"rationale"`
	RationaleZh string        `json:"rationaleZh"`
	Matches     bool          `json:"matches"`
}

// HandOutcome 单手牌的结算出口。Payout 为返还给玩家的总额 (含本金)。
type HandOutcome struct {
	HandIndex int        `json:"handIndex"`
	Result    ResultType `json:"result"`
	Bet       int64      `json:"bet"`
	Payout    int64      `json:"payout"`
}
