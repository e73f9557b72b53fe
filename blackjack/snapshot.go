package blackjack

import (
	"time"

	"blackjack-lite/card"
)

// RoomSnapshot 轮询客户端看到的权威状态。
// 客户端用 Version 与上次对比即可跳过无变化的刷新。
type RoomSnapshot struct {
	Code      string       `json:"code"`
	State     RoomState    `json:"state"`
	HostID    string       `json:"hostId"`
	Settings  Settings     `json:"settings"`
	Version   int64        `json:"version"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Players   []PlayerView `json:"players"`
	Game      *GameView    `json:"game,omitempty"`
}

type PlayerView struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"displayName"`
	Seat        int           `json:"seat"`
	Bankroll    int64         `json:"bankroll"`
	Status      PlayerStatus  `json:"status"`
	IsHost      bool          `json:"isHost"`
	Bet         int64         `json:"bet,omitempty"`
	Skipped     bool          `json:"skipped,omitempty"`
	Hands       []HandView    `json:"hands,omitempty"`
	Results     []HandOutcome `json:"results,omitempty"`
}

type HandView struct {
	Cards       card.CardList `json:"cards"`
	Total       int           `json:"total"`
	Soft        bool          `json:"soft"`
	Pair        bool          `json:"pair"`
	Blackjack   bool          `json:"blackjack"`
	Busted      bool          `json:"busted"`
	FromSplit   bool          `json:"fromSplit"`
	Doubled     bool          `json:"doubled"`
	Surrendered bool          `json:"surrendered"`
	Complete    bool          `json:"complete"`
	Bet         int64         `json:"bet"`
}

// DealerView 庄家手牌视图。底牌未揭示时以 CardRear 遮蔽,
// Total 只按可见牌计算。
type DealerView struct {
	Cards    card.CardList `json:"cards"`
	Total    int           `json:"total"`
	Revealed bool          `json:"revealed"`
}

type GameView struct {
	Phase            Phase          `json:"phase"`
	PhaseName        string         `json:"phaseName"`
	RoundNumber      int            `json:"roundNumber"`
	Dealer           DealerView     `json:"dealer"`
	CurrentPlayerID  string         `json:"currentPlayerId,omitempty"`
	CurrentHandIndex int            `json:"currentHandIndex"`
	TurnDeadline     time.Time      `json:"turnDeadline,omitempty"`
	TurnRemainingSec int            `json:"turnRemainingSec"`
	LegalActions     []string       `json:"legalActions,omitempty"`
	RunningCount     int            `json:"runningCount"`
	TrueCount        int            `json:"trueCount"`
	ShoeRemaining    int            `json:"shoeRemaining"`
	PrevRound        *PreviousRound `json:"previousRound,omitempty"`
}

func newHandView(h *Hand) HandView {
	total, soft := HandValue(h.Cards)
	return HandView{
		Cards:       h.Cards.Clone(),
		Total:       total,
		Soft:        soft,
		Pair:        h.IsPair(),
		Blackjack:   h.IsBlackjack(),
		Busted:      total > 21,
		FromSplit:   h.FromSplit,
		Doubled:     h.Doubled,
		Surrendered: h.Surrendered,
		Complete:    h.Complete,
		Bet:         h.Bet,
	}
}

// Snapshot 构建整房视图。聚合根在管理层锁内, 这里只读。
func (r *Room) Snapshot(now time.Time) RoomSnapshot {
	snap := RoomSnapshot{
		Code:      r.Code,
		State:     r.State,
		HostID:    r.HostID,
		Settings:  r.Settings,
		Version:   r.Version,
		UpdatedAt: r.UpdatedAt,
	}
	for _, p := range r.playersBySeat() {
		pv := PlayerView{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Seat:        p.Seat,
			Bankroll:    p.Bankroll,
			Status:      p.Status,
			IsHost:      r.IsHost(p.ID),
		}
		if g := r.Game; g != nil {
			pv.Bet = g.Bets[p.ID]
			pv.Skipped = g.Skipped[p.ID]
			for _, h := range g.Hands[p.ID] {
				pv.Hands = append(pv.Hands, newHandView(h))
			}
			pv.Results = append([]HandOutcome(nil), g.Results[p.ID]...)
		}
		snap.Players = append(snap.Players, pv)
	}
	if g := r.Game; g != nil {
		snap.Game = g.view(r, now)
	}
	return snap
}

func (g *GameState) view(r *Room, now time.Time) *GameView {
	v := &GameView{
		Phase:            g.Phase,
		PhaseName:        g.Phase.String(),
		RoundNumber:      g.RoundNumber,
		Dealer:           g.dealerView(),
		CurrentPlayerID:  g.CurrentPlayerID,
		CurrentHandIndex: g.CurrentHandIndex,
		RunningCount:     g.RunningCount,
		TrueCount:        g.TrueCount,
		ShoeRemaining:    g.Shoe.Remaining(),
		PrevRound:        g.PrevRound,
	}
	if g.Phase == PhasePlayerTurn && !g.TurnDeadline.IsZero() {
		v.TurnDeadline = g.TurnDeadline
		if remaining := g.TurnDeadline.Sub(now); remaining > 0 {
			v.TurnRemainingSec = int(remaining / time.Second)
		}
		v.LegalActions = g.legalActionNames(r)
	}
	return v
}

func (g *GameState) dealerView() DealerView {
	cards := g.DealerHand.Cards.Clone()
	if !g.HoleRevealed && len(cards) >= 2 {
		total, _ := HandValue(cards[:1])
		return DealerView{Cards: card.CardList{cards[0], card.CardRear}, Total: total, Revealed: false}
	}
	total, _ := HandValue(cards)
	return DealerView{Cards: cards, Total: total, Revealed: g.HoleRevealed}
}

// legalActionNames 当前手牌可用的动作, 含筹码约束。
func (g *GameState) legalActionNames(r *Room) []string {
	hands := g.Hands[g.CurrentPlayerID]
	if g.CurrentHandIndex < 0 || g.CurrentHandIndex >= len(hands) {
		return nil
	}
	h := hands[g.CurrentHandIndex]
	if h.Complete {
		return nil
	}
	p := r.Players[g.CurrentPlayerID]
	if p == nil {
		return nil
	}
	rules := r.Settings.Rules
	out := []string{ActionTypeHit.String(), ActionTypeStand.String()}
	if len(h.Cards) == 2 && (!h.FromSplit || rules.DoubleAfterSplit) && p.Bankroll >= h.Bet {
		out = append(out, ActionTypeDouble.String())
	}
	if h.IsPair() && len(hands) < maxHandsPerPlayer && p.Bankroll >= h.Bet {
		out = append(out, ActionTypeSplit.String())
	}
	if rules.LateSurrender && len(h.Cards) == 2 && !h.FromSplit {
		out = append(out, ActionTypeSurrender.String())
	}
	return out
}
