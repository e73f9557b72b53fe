package card

import "math/rand"

type CardList []Card

func (ds *CardList) Init(cards []Card) {
	*ds = make([]Card, len(cards))
	copy(*ds, cards)
}

// Count 获取总牌数
func (ds CardList) Count() int {
	return len(ds)
}

// Shuffle Fisher–Yates 洗牌; rng 为 nil 时使用全局随机源。
func (ds CardList) Shuffle(rng *rand.Rand) {
	swap := func(i, j int) {
		ds[i], ds[j] = ds[j], ds[i]
	}
	if rng == nil {
		rand.Shuffle(len(ds), swap)
		return
	}
	rng.Shuffle(len(ds), swap)
}

func (ds *CardList) Add(cards ...Card) {
	*ds = append(*ds, cards...)
}

// PopCard 从牌尾取一张; 空牌堆返回 CardInvalid。
func (ds *CardList) PopCard() Card {
	totalCount := ds.Count()
	if totalCount == 0 {
		return CardInvalid
	}
	card := (*ds)[totalCount-1]
	*ds = (*ds)[:totalCount-1]
	return card
}

// Clone 深拷贝, 用于快照和回合留存。
func (ds CardList) Clone() CardList {
	if ds == nil {
		return nil
	}
	out := make(CardList, len(ds))
	copy(out, ds)
	return out
}
