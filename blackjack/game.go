package blackjack

import (
	"fmt"
	"math"
	"sort"
	"time"

	"blackjack-lite/blackjack/strategy"
	"blackjack-lite/card"

	"github.com/google/uuid"
)

// maxHandsPerPlayer 连续分牌的上限 (含原始手牌)。
const maxHandsPerPlayer = 4

// GameState 进行中会话的全部牌局状态。仅在 Room.State == playing 时存在。
// 引擎本身不加锁: 每次操作是一个读-改-写循环, 串行化由房间管理层保证。
type GameState struct {
	Shoe         *card.Shoe `json:"shoe"`
	ShuffleCount int        `json:"shuffleCount"`

	DealerHand   Hand `json:"dealerHand"`
	HoleRevealed bool `json:"holeRevealed"`

	// Hands 每个下注玩家本轮的手牌列表, 分牌会追加。
	Hands map[string][]*Hand `json:"hands"`

	CurrentPlayerID  string    `json:"currentPlayerId,omitempty"`
	CurrentHandIndex int       `json:"currentHandIndex"`
	TurnStartedAt    time.Time `json:"turnStartedAt,omitempty"`
	TurnDeadline     time.Time `json:"turnDeadline,omitempty"`

	Phase       Phase `json:"phase"`
	RoundNumber int   `json:"roundNumber"`

	Bets    map[string]int64            `json:"bets"`
	Skipped map[string]bool             `json:"skipped"`
	Results map[string][]HandOutcome    `json:"results"`
	Decis   map[string][]DecisionRecord `json:"decisions"`

	RunningCount int `json:"runningCount"`
	TrueCount    int `json:"trueCount"`

	// PrevRound 上一轮快照, 下注阶段供客户端展示。
	PrevRound *PreviousRound `json:"previousRound,omitempty"`
}

// PreviousRound 已结算回合的留影。
type PreviousRound struct {
	RoundNumber int                      `json:"roundNumber"`
	DealerHand  Hand                     `json:"dealerHand"`
	Hands       map[string][]*Hand       `json:"hands"`
	Results     map[string][]HandOutcome `json:"results"`
}

func newGameState(settings Settings) *GameState {
	return &GameState{
		Shoe:        card.NewShoe(settings.Rules.Decks, settings.shoeSeed(0)),
		Phase:       PhaseBetting,
		RoundNumber: 1,
		Hands:       make(map[string][]*Hand),
		Bets:        make(map[string]int64),
		Skipped:     make(map[string]bool),
		Results:     make(map[string][]HandOutcome),
		Decis:       make(map[string][]DecisionRecord),
	}
}

// StartSession 房主开局: 新牌靴、新会话记录, 进入第 1 轮下注。
func (r *Room) StartSession(playerID string, now time.Time) error {
	if _, ok := r.Players[playerID]; !ok {
		return ErrPlayerNotFound
	}
	if !r.IsHost(playerID) {
		return ErrAuthorization("only the host can start the session")
	}
	if r.State == RoomStatePlaying {
		return ErrState("session already in progress")
	}
	r.Game = newGameState(r.Settings)
	r.History = &SessionHistory{
		SessionID: uuid.NewString(),
		RoomCode:  r.Code,
		StartedAt: now,
	}
	r.State = RoomStatePlaying
	for _, p := range r.Players {
		if p.Status != PlayerStatusDisconnected {
			p.Status = PlayerStatusWaiting
		}
	}
	return nil
}

// EndSession 房主收局: 封存会话记录, 房间进入 review。
func (r *Room) EndSession(playerID string, now time.Time) error {
	if _, ok := r.Players[playerID]; !ok {
		return ErrPlayerNotFound
	}
	if !r.IsHost(playerID) {
		return ErrAuthorization("only the host can end the session")
	}
	if r.State != RoomStatePlaying {
		return ErrState("no session in progress")
	}
	if r.History != nil {
		r.History.EndedAt = now
	}
	r.State = RoomStateReview
	r.Game = nil
	return nil
}

// PlaceBet 下注。仅 betting/results 阶段合法; 从 results 进入时先准备下一轮。
// 下注立刻从筹码扣除; 所有人表态且至少一注后自动发牌。
func (r *Room) PlaceBet(playerID string, amount int64, now time.Time) error {
	g, p, err := r.bettingContext(playerID, now)
	if err != nil {
		return err
	}
	if _, already := g.Bets[playerID]; already {
		return ErrState("bet already placed this round")
	}
	if amount < r.Settings.MinBet || amount > r.Settings.MaxBet {
		return ErrValidation(fmt.Sprintf("bet must be between %d and %d", r.Settings.MinBet, r.Settings.MaxBet))
	}
	if amount > p.Bankroll {
		return ErrResource("bet exceeds bankroll")
	}
	p.Bankroll -= amount
	p.Status = PlayerStatusActive
	p.LastActivity = now
	g.Bets[playerID] = amount
	delete(g.Skipped, playerID)

	g.maybeDeal(r, now)
	return nil
}

// SkipRound 本轮过牌。已下注的玩家改为跳过时退回注金。
func (r *Room) SkipRound(playerID string, now time.Time) error {
	g, p, err := r.bettingContext(playerID, now)
	if err != nil {
		return err
	}
	if bet, ok := g.Bets[playerID]; ok {
		p.Bankroll += bet
		delete(g.Bets, playerID)
	}
	g.Skipped[playerID] = true
	p.Status = PlayerStatusWaiting
	p.LastActivity = now

	g.maybeDeal(r, now)
	return nil
}

// bettingContext 校验下注类操作的公共前提, 必要时把 results 推进到新一轮。
func (r *Room) bettingContext(playerID string, now time.Time) (*GameState, *Player, error) {
	if r.State != RoomStatePlaying || r.Game == nil {
		return nil, nil, ErrState("no session in progress")
	}
	p, ok := r.Players[playerID]
	if !ok {
		return nil, nil, ErrPlayerNotFound
	}
	g := r.Game
	switch g.Phase {
	case PhaseBetting:
	case PhaseResults:
		g.prepareNextRound(r)
	default:
		return nil, nil, ErrState(fmt.Sprintf("cannot bet during %s", g.Phase))
	}
	return g, p, nil
}

// prepareNextRound 重置回合字段, 轮数 +1; 穿透率超阈值则换新靴。
func (g *GameState) prepareNextRound(r *Room) {
	g.RoundNumber++
	g.Hands = make(map[string][]*Hand)
	g.Bets = make(map[string]int64)
	g.Skipped = make(map[string]bool)
	g.Results = make(map[string][]HandOutcome)
	g.Decis = make(map[string][]DecisionRecord)
	g.DealerHand = Hand{}
	g.HoleRevealed = false
	g.clearTurn()
	if g.Shoe.Penetration() > reshufflePenetration {
		g.reshuffle(r)
	}
	for _, p := range r.Players {
		if p.Status != PlayerStatusDisconnected {
			p.Status = PlayerStatusWaiting
		}
	}
	g.Phase = PhaseBetting
}

// maybeDeal 所有在场玩家都已下注或跳过 (掉线玩家不阻塞), 且至少有一注时发牌。
func (g *GameState) maybeDeal(r *Room, now time.Time) {
	if g.Phase != PhaseBetting {
		return
	}
	for id, p := range r.Players {
		if p.Status == PlayerStatusDisconnected {
			continue
		}
		if _, bet := g.Bets[id]; bet {
			continue
		}
		if g.Skipped[id] {
			continue
		}
		return
	}
	if len(g.Bets) == 0 {
		return
	}
	g.dealInitialCards(r, now)
}

// dealInitialCards 给每个下注玩家和庄家各发两张。
// 计数只吃公开可见的牌: 玩家全部明牌 + 庄家第一张。
func (g *GameState) dealInitialCards(r *Room, now time.Time) {
	g.Phase = PhaseDealing

	for _, p := range g.bettorsBySeat(r) {
		h := &Hand{Bet: g.Bets[p.ID]}
		h.Cards.Add(g.draw(r), g.draw(r))
		g.countCards(h.Cards...)
		if h.IsBlackjack() {
			h.Complete = true
		}
		g.Hands[p.ID] = []*Hand{h}
	}

	g.DealerHand = Hand{}
	g.DealerHand.Cards.Add(g.draw(r), g.draw(r))
	g.countCards(g.DealerHand.Cards[0])

	if g.DealerHand.IsBlackjack() {
		g.revealHole()
		g.settleRound(r)
		return
	}

	// 有玩家天牌时先亮底牌, 再从第一个非天牌玩家开始行动。
	for _, hands := range g.Hands {
		if len(hands) > 0 && hands[0].IsBlackjack() {
			g.revealHole()
			break
		}
	}

	if pid, idx, ok := g.nextIncompleteHand(r, "", 0); ok {
		g.beginTurn(r, pid, idx, now)
		return
	}
	g.playDealerTurn(r, now)
}

// ProcessAction 当前行动玩家对当前手牌执行动作。
// 应用前先记录“所选动作 vs 策略推荐”供复盘; 推荐从不拦截动作。
func (r *Room) ProcessAction(playerID string, action ActionType, now time.Time) error {
	if r.State != RoomStatePlaying || r.Game == nil {
		return ErrState("no session in progress")
	}
	g := r.Game
	if g.Phase != PhasePlayerTurn {
		return ErrState(fmt.Sprintf("cannot act during %s", g.Phase))
	}
	if playerID != g.CurrentPlayerID {
		return ErrAuthorization("not your turn")
	}
	p, ok := r.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	hands := g.Hands[playerID]
	if g.CurrentHandIndex < 0 || g.CurrentHandIndex >= len(hands) {
		return ErrHandNotFound
	}
	h := hands[g.CurrentHandIndex]
	if h.Complete {
		return ErrState("hand already complete")
	}

	rules := r.Settings.Rules
	canDouble := len(h.Cards) == 2 && (!h.FromSplit || rules.DoubleAfterSplit) && p.Bankroll >= h.Bet
	canSplit := h.IsPair() && len(hands) < maxHandsPerPlayer && p.Bankroll >= h.Bet
	canSurrender := rules.LateSurrender && len(h.Cards) == 2 && !h.FromSplit

	switch action {
	case ActionTypeHit, ActionTypeStand:
	case ActionTypeDouble:
		if len(h.Cards) != 2 || (h.FromSplit && !rules.DoubleAfterSplit) {
			return ErrState("double only allowed on a two-card hand")
		}
		if p.Bankroll < h.Bet {
			return ErrResource("insufficient bankroll to double")
		}
	case ActionTypeSplit:
		if !h.IsPair() {
			return ErrState("can only split a pair")
		}
		if len(hands) >= maxHandsPerPlayer {
			return ErrState("split limit reached")
		}
		if p.Bankroll < h.Bet {
			return ErrResource("insufficient bankroll to split")
		}
	case ActionTypeSurrender:
		if !canSurrender {
			return ErrState("surrender not allowed")
		}
	default:
		return ErrValidation(fmt.Sprintf("unknown action %q", action))
	}

	g.recordDecision(rules, playerID, h, action, canDouble, canSplit, canSurrender)

	switch action {
	case ActionTypeHit:
		c := g.draw(r)
		h.Cards.Add(c)
		g.countCards(c)
		if h.IsBusted() || h.Total() == 21 {
			h.Complete = true
		}
	case ActionTypeStand:
		h.Complete = true
	case ActionTypeDouble:
		p.Bankroll -= h.Bet
		h.Bet *= 2
		h.Doubled = true
		c := g.draw(r)
		h.Cards.Add(c)
		g.countCards(c)
		h.Complete = true
	case ActionTypeSplit:
		p.Bankroll -= h.Bet
		splitting := h.Cards[1]
		wasAces := h.Cards[0].IsAce()
		h.Cards = card.CardList{h.Cards[0]}
		h.FromSplit = true
		next := &Hand{Cards: card.CardList{splitting}, Bet: h.Bet, FromSplit: true}

		c1, c2 := g.draw(r), g.draw(r)
		h.Cards.Add(c1)
		next.Cards.Add(c2)
		g.countCards(c1, c2)

		idx := g.CurrentHandIndex
		hands = append(hands, nil)
		copy(hands[idx+2:], hands[idx+1:])
		hands[idx+1] = next
		g.Hands[playerID] = hands

		if wasAces && rules.AcesSplitOneCard {
			h.Complete = true
			next.Complete = true
		}
	case ActionTypeSurrender:
		h.Surrendered = true
		h.Complete = true
	}

	p.LastActivity = now

	if h.Complete {
		g.advanceTurn(r, now)
	} else {
		// 每个决策点都有完整的思考窗口。
		g.TurnStartedAt = now
		g.TurnDeadline = now.Add(time.Duration(r.Settings.TurnTimeoutSeconds) * time.Second)
	}
	return nil
}

// ForceExpiredTurn 回合期限已过时替当前手牌强制停牌, 随后走正常推进逻辑。
// 返回 true 表示状态发生了变化。管理层在每次读/写和后台扫描里调用。
func (r *Room) ForceExpiredTurn(now time.Time) bool {
	g := r.Game
	if g == nil || g.Phase != PhasePlayerTurn {
		return false
	}
	if g.TurnDeadline.IsZero() || now.Before(g.TurnDeadline) {
		return false
	}
	hands := g.Hands[g.CurrentPlayerID]
	if g.CurrentHandIndex < 0 || g.CurrentHandIndex >= len(hands) {
		return false
	}
	h := hands[g.CurrentHandIndex]
	g.recordDecision(r.Settings.Rules, g.CurrentPlayerID, h, ActionTypeStand, false, false, false)
	h.Complete = true
	g.advanceTurn(r, now)
	return true
}

// recordDecision 对照基础策略给决策打标签。
func (g *GameState) recordDecision(rules Rules, playerID string, h *Hand, action ActionType, canDouble, canSplit, canSurrender bool) {
	up := card.CardInvalid
	if len(g.DealerHand.Cards) > 0 {
		up = g.DealerHand.Cards[0]
	}
	total, soft := HandValue(h.Cards)
	pairValue := 0
	if h.IsPair() {
		pairValue = h.Cards[0].BlackjackValue()
	}
	recd := strategy.Advise(strategy.Query{
		Total:        total,
		Soft:         soft,
		Pair:         h.IsPair(),
		PairValue:    pairValue,
		DealerUp:     up.BlackjackValue(),
		CanDouble:    canDouble,
		CanSplit:     canSplit,
		CanSurrender: canSurrender,
	}, strategy.Rules{
		DealerHitsSoft17: rules.DealerHitsSoft17,
		DoubleAfterSplit: rules.DoubleAfterSplit,
		LateSurrender:    rules.LateSurrender,
	})
	recommended, _ := ParseAction(string(recd.Action))
	if g.Decis == nil {
		// 旧存档没有 decisions 字段, 反序列化后是 nil。
		g.Decis = make(map[string][]DecisionRecord)
	}
	g.Decis[playerID] = append(g.Decis[playerID], DecisionRecord{
		HandIndex:   g.CurrentHandIndex,
		Cards:       h.Cards.Clone(),
		DealerUp:    up,
		Action:      action,
		Recommended: recommended,
		Rationale:   recd.Rationale,
		RationaleZh: recd.RationaleZh,
		Matches:     action == recommended,
	})
}

// beginTurn 进入某个玩家某手牌的回合并计算期限。
// 剩余时间永远由观察方用 TurnDeadline-now 推导, 不存倒计时。
func (g *GameState) beginTurn(r *Room, playerID string, handIndex int, now time.Time) {
	g.Phase = PhasePlayerTurn
	g.CurrentPlayerID = playerID
	g.CurrentHandIndex = handIndex
	g.TurnStartedAt = now
	g.TurnDeadline = now.Add(time.Duration(r.Settings.TurnTimeoutSeconds) * time.Second)
}

func (g *GameState) clearTurn() {
	g.CurrentPlayerID = ""
	g.CurrentHandIndex = 0
	g.TurnStartedAt = time.Time{}
	g.TurnDeadline = time.Time{}
}

// advanceTurn 同一玩家的手牌从左到右, 然后按座位号轮到下一个下注玩家;
// 天牌在发牌时即标记完成, 自然被跳过。无人可动则轮到庄家。
func (g *GameState) advanceTurn(r *Room, now time.Time) {
	pid, idx, ok := g.nextIncompleteHand(r, g.CurrentPlayerID, g.CurrentHandIndex)
	if ok {
		g.beginTurn(r, pid, idx, now)
		return
	}
	g.playDealerTurn(r, now)
}

// nextIncompleteHand 从 (fromPlayer, fromIndex) 起查找下一手未完成牌。
// fromPlayer 为空表示从第一个下注玩家找起。
func (g *GameState) nextIncompleteHand(r *Room, fromPlayer string, fromIndex int) (string, int, bool) {
	started := fromPlayer == ""
	for _, p := range g.bettorsBySeat(r) {
		start := 0
		if !started {
			if p.ID != fromPlayer {
				continue
			}
			started = true
			start = fromIndex
		}
		for i := start; i < len(g.Hands[p.ID]); i++ {
			if !g.Hands[p.ID][i].Complete {
				return p.ID, i, true
			}
		}
	}
	return "", 0, false
}

// playDealerTurn 亮底牌 (计入 Hi-Lo), 然后按 S17/H17 规则补牌直到停牌或爆牌。
func (g *GameState) playDealerTurn(r *Room, now time.Time) {
	g.Phase = PhaseDealerTurn
	g.clearTurn()
	g.revealHole()

	for {
		total, soft := HandValue(g.DealerHand.Cards)
		if total < 17 || (total == 17 && soft && r.Settings.Rules.DealerHitsSoft17) {
			c := g.draw(r)
			g.DealerHand.Cards.Add(c)
			g.countCards(c)
			continue
		}
		break
	}
	g.DealerHand.Complete = true
	g.settleRound(r)
}

func (g *GameState) revealHole() {
	if g.HoleRevealed {
		return
	}
	g.HoleRevealed = true
	if len(g.DealerHand.Cards) >= 2 {
		g.countCards(g.DealerHand.Cards[1])
	}
}

// bettorsBySeat 本轮下注玩家按座位号升序。
func (g *GameState) bettorsBySeat(r *Room) []*Player {
	out := make([]*Player, 0, len(g.Bets))
	for id := range g.Bets {
		if p, ok := r.Players[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}

// draw 从牌靴取牌。整靴发尽属于异常情况: 按既定策略换一靴新牌继续本轮,
// 计数清零, 而不是让回合失败。
func (g *GameState) draw(r *Room) card.Card {
	c, ok := g.Shoe.Draw()
	if !ok {
		g.reshuffle(r)
		c, _ = g.Shoe.Draw()
	}
	return c
}

func (g *GameState) reshuffle(r *Room) {
	g.ShuffleCount++
	g.Shoe = card.NewShoe(r.Settings.Rules.Decks, r.Settings.shoeSeed(g.ShuffleCount))
	g.RunningCount = 0
	g.TrueCount = 0
}

// countCards 把公开可见的牌计入 Hi-Lo, 并刷新真数。
func (g *GameState) countCards(cards ...card.Card) {
	for _, c := range cards {
		g.RunningCount += c.HiLoWeight()
	}
	remaining := g.Shoe.DecksRemaining()
	if remaining == 0 {
		g.TrueCount = 0
		return
	}
	g.TrueCount = int(math.Round(float64(g.RunningCount) / remaining))
}

// retirePlayer 玩家离席时的牌局清理: 下注阶段退出表态,
// 行动阶段把其手牌全部视同停牌并推进回合。
func (g *GameState) retirePlayer(r *Room, playerID string, now time.Time) {
	switch g.Phase {
	case PhaseBetting, PhaseResults:
		delete(g.Bets, playerID)
		delete(g.Skipped, playerID)
	case PhasePlayerTurn:
		for _, h := range g.Hands[playerID] {
			h.Complete = true
		}
		if g.CurrentPlayerID == playerID {
			g.advanceTurn(r, now)
		}
	}
}
