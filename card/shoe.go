package card

import (
	"math/rand"
	"time"
)

// Shoe 多副牌的牌靴, 发牌从牌尾弹出。
//
// Seed 非 0 时洗牌可复现: 相同 seed 与副数必得到相同的发牌序列。
type Shoe struct {
	Cards CardList `json:"cards"`
	Decks int      `json:"decks"`
}

// NewShoe builds decks*52 cards and shuffles them. seed==0 uses a
// time-based source.
func NewShoe(decks int, seed int64) *Shoe {
	if decks <= 0 {
		decks = 1
	}
	cards := make(CardList, 0, decks*52)
	for i := 0; i < decks; i++ {
		cards = append(cards, NewDeck()...)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	cards.Shuffle(rng)
	return &Shoe{Cards: cards, Decks: decks}
}

// Draw removes and returns the last card. ok 为 false 表示牌靴已空。
func (s *Shoe) Draw() (Card, bool) {
	c := s.Cards.PopCard()
	if c == CardInvalid {
		return CardInvalid, false
	}
	return c, true
}

func (s *Shoe) Remaining() int {
	return s.Cards.Count()
}

// Penetration 已发出的牌占整靴的比例, 范围 [0,1]。
func (s *Shoe) Penetration() float64 {
	total := s.Decks * 52
	if total == 0 {
		return 1
	}
	return 1 - float64(s.Cards.Count())/float64(total)
}

// DecksRemaining 剩余副数估算 (真数换算用), 空靴返回 0。
func (s *Shoe) DecksRemaining() float64 {
	return float64(s.Cards.Count()) / 52
}
