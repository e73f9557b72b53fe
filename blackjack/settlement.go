package blackjack

// settleRound 按最终点数逐手结算, 返还筹码, 打结果标签,
// 留存上一轮快照并写入会话历史, 最后进入 results 阶段。
//
// 赔付表 (Payout 为返还总额, 含本金):
//   - 投降: 0.5 × 注
//   - 玩家天牌且庄家非天牌: 注 + 奖金 (3:2 或 6:5)
//   - 爆牌: 0
//   - 庄家爆牌或玩家点数更大: 2 × 注
//   - 点数相同: 1 × 注 (平局)
//   - 其余: 0
func (g *GameState) settleRound(r *Room) {
	g.Phase = PhaseSettlement
	g.clearTurn()

	dealerTotal := g.DealerHand.Total()
	dealerBlackjack := g.DealerHand.IsBlackjack()
	dealerBust := dealerTotal > 21
	rules := r.Settings.Rules

	record := RoundRecord{
		RoundNumber: g.RoundNumber,
		DealerCards: g.DealerHand.Cards.Clone(),
		DealerTotal: dealerTotal,
	}

	for _, p := range g.bettorsBySeat(r) {
		hands := g.Hands[p.ID]
		outcomes := make([]HandOutcome, 0, len(hands))
		for i, h := range hands {
			var result ResultType
			var payout int64
			total := h.Total()
			switch {
			case h.Surrendered:
				result, payout = ResultSurrender, h.Bet/2
			case h.IsBlackjack() && !dealerBlackjack:
				result, payout = ResultBlackjack, h.Bet+rules.blackjackBonus(h.Bet)
			case h.IsBusted():
				result, payout = ResultLose, 0
			case dealerBust || total > dealerTotal:
				result, payout = ResultWin, 2*h.Bet
			case total == dealerTotal:
				result, payout = ResultPush, h.Bet
			default:
				result, payout = ResultLose, 0
			}
			p.Bankroll += payout
			outcomes = append(outcomes, HandOutcome{
				HandIndex: i,
				Result:    result,
				Bet:       h.Bet,
				Payout:    payout,
			})
		}
		g.Results[p.ID] = outcomes

		handCopies := make([]Hand, 0, len(hands))
		for _, h := range hands {
			handCopies = append(handCopies, *h.Clone())
		}
		record.Players = append(record.Players, PlayerRoundRecord{
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			Bet:         g.Bets[p.ID],
			Hands:       handCopies,
			Results:     append([]HandOutcome(nil), outcomes...),
			Decisions:   append([]DecisionRecord(nil), g.Decis[p.ID]...),
		})
	}

	g.PrevRound = g.snapshotRound(r)
	if r.History != nil {
		r.History.Rounds = append(r.History.Rounds, record)
	}
	g.Phase = PhaseResults
}

// snapshotRound 下注阶段展示用的上一轮留影。
func (g *GameState) snapshotRound(r *Room) *PreviousRound {
	prev := &PreviousRound{
		RoundNumber: g.RoundNumber,
		DealerHand:  *g.DealerHand.Clone(),
		Hands:       make(map[string][]*Hand, len(g.Hands)),
		Results:     make(map[string][]HandOutcome, len(g.Results)),
	}
	for id, hands := range g.Hands {
		cloned := make([]*Hand, 0, len(hands))
		for _, h := range hands {
			cloned = append(cloned, h.Clone())
		}
		prev.Hands[id] = cloned
	}
	for id, outcomes := range g.Results {
		prev.Results[id] = append([]HandOutcome(nil), outcomes...)
	}
	return prev
}
