package blackjack

// RoomState 房间生命周期状态
type RoomState string

const (
	RoomStateLobby   RoomState = "lobby"
	RoomStatePlaying RoomState = "playing"
	RoomStateReview  RoomState = "review"
)

// Phase 单轮游戏阶段
type Phase byte

const (
	PhaseBetting    Phase = 0
	PhaseDealing    Phase = 1
	PhasePlayerTurn Phase = 2
	PhaseDealerTurn Phase = 3
	PhaseSettlement Phase = 4
	PhaseResults    Phase = 5
)

var PhaseDictionary = map[Phase]string{
	PhaseBetting:    "betting",
	PhaseDealing:    "dealing",
	PhasePlayerTurn: "playerTurn",
	PhaseDealerTurn: "dealerTurn",
	PhaseSettlement: "settlement",
	PhaseResults:    "results",
}

func (p Phase) String() string {
	if s, ok := PhaseDictionary[p]; ok {
		return s
	}
	return "unknown"
}

// ActionType 玩家动作类型：0-NONE 1-HIT 2-STAND 3-DOUBLE 4-SPLIT 5-SURRENDER
type ActionType byte

const (
	ActionTypeNone      ActionType = 0
	ActionTypeHit       ActionType = 1
	ActionTypeStand     ActionType = 2
	ActionTypeDouble    ActionType = 3
	ActionTypeSplit     ActionType = 4
	ActionTypeSurrender ActionType = 5
)

var ActionTypeDictionary = map[ActionType]string{
	ActionTypeNone:      "none",
	ActionTypeHit:       "hit",
	ActionTypeStand:     "stand",
	ActionTypeDouble:    "double",
	ActionTypeSplit:     "split",
	ActionTypeSurrender: "surrender",
}

func (a ActionType) String() string {
	if s, ok := ActionTypeDictionary[a]; ok {
		return s
	}
	return "unknown"
}

// ParseAction 解析客户端动作字符串。
func ParseAction(s string) (ActionType, bool) {
	for a, name := range ActionTypeDictionary {
		if a != ActionTypeNone && name == s {
			return a, true
		}
	}
	return ActionTypeNone, false
}

// PlayerStatus 座位上玩家的状态
type PlayerStatus string

const (
	PlayerStatusWaiting      PlayerStatus = "waiting"
	PlayerStatusActive       PlayerStatus = "active"
	PlayerStatusDisconnected PlayerStatus = "disconnected"
)

// ResultType 单手牌结算结果标签
type ResultType string

const (
	ResultWin       ResultType = "win"
	ResultLose      ResultType = "lose"
	ResultPush      ResultType = "push"
	ResultBlackjack ResultType = "blackjack"
	ResultSurrender ResultType = "surrender"
)
