package blackjack

import "blackjack-lite/card"

// HandValue 计算一组牌的 21 点点数。
// 所有 A 先按 11 计, 超过 21 时逐张降为 1。soft 表示仍有 A 按 11 计。
func HandValue(cards []card.Card) (total int, soft bool) {
	aces := 0
	for _, c := range cards {
		v := c.BlackjackValue()
		if v == 11 {
			aces++
		}
		total += v
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total, aces > 0
}

// Hand 一手牌。Complete 单调: 一旦置位不再回退。
type Hand struct {
	Cards       card.CardList `json:"cards"`
	Bet         int64         `json:"bet"`
	FromSplit   bool          `json:"fromSplit,omitempty"`
	Doubled     bool          `json:"doubled,omitempty"`
	Surrendered bool          `json:"surrendered,omitempty"`
	Complete    bool          `json:"complete"`
}

func (h *Hand) Total() int {
	total, _ := HandValue(h.Cards)
	return total
}

func (h *Hand) IsSoft() bool {
	_, soft := HandValue(h.Cards)
	return soft
}

// IsBlackjack 仅初始两张牌的 21 点为天牌; 分牌得到的 21 点不算。
func (h *Hand) IsBlackjack() bool {
	return !h.FromSplit && len(h.Cards) == 2 && h.Total() == 21
}

// IsPair 两张 21 点面值相同的牌 (T/J/Q/K 互通)。
func (h *Hand) IsPair() bool {
	return len(h.Cards) == 2 && h.Cards[0].BlackjackValue() == h.Cards[1].BlackjackValue()
}

func (h *Hand) IsBusted() bool {
	return h.Total() > 21
}

func (h *Hand) Clone() *Hand {
	if h == nil {
		return nil
	}
	out := *h
	out.Cards = h.Cards.Clone()
	return &out
}
