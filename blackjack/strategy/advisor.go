// Package strategy 基础策略推荐器。
//
// 只读外部协作者: 引擎用它给每次真实决策打上“是否符合基本策略”的标签,
// 供赛后复盘; 推荐结果从不拦截或改写玩家选择的动作。
// 规则表优先级: 投降表 → 分牌表 → 软牌表 → 硬牌表。
package strategy

import "fmt"

// Action 推荐动作。与引擎动作字典的字符串形式一致。
type Action string

const (
	Hit       Action = "hit"
	Stand     Action = "stand"
	Double    Action = "double"
	Split     Action = "split"
	Surrender Action = "surrender"
)

// Rules 影响策略表的规则变体。
type Rules struct {
	DealerHitsSoft17 bool
	DoubleAfterSplit bool
	LateSurrender    bool
}

// Query 一次决策点的完整输入。点数和软硬由调用方计算。
type Query struct {
	Total     int
	Soft      bool
	Pair      bool
	PairValue int // 对子的 21 点面值 (A 对为 11), 非对子为 0
	DealerUp  int // 庄家明牌的 21 点面值 (2-11)

	CanDouble    bool
	CanSplit     bool
	CanSurrender bool
}

// Recommendation 推荐动作与双语理由。
type Recommendation struct {
	Action      Action
	Rationale   string
	RationaleZh string
}

func rec(a Action, en, zh string) Recommendation {
	return Recommendation{Action: a, Rationale: en, RationaleZh: zh}
}

// Advise 按固定优先级查表, 纯函数。
func Advise(q Query, r Rules) Recommendation {
	if out, ok := adviseSurrender(q, r); ok {
		return out
	}
	if q.Pair && q.CanSplit {
		if out, ok := advisePair(q, r); ok {
			return out
		}
	}
	if q.Soft {
		return adviseSoft(q, r)
	}
	return adviseHard(q, r)
}

func adviseSurrender(q Query, r Rules) (Recommendation, bool) {
	if !r.LateSurrender || !q.CanSurrender || q.Soft {
		return Recommendation{}, false
	}
	// 8,8 优先走分牌表。
	if q.Pair && q.PairValue == 8 {
		return Recommendation{}, false
	}
	up := q.DealerUp
	hit := false
	switch q.Total {
	case 16:
		hit = up >= 9
	case 15:
		hit = up == 10 || (r.DealerHitsSoft17 && up == 11)
	case 17:
		hit = r.DealerHitsSoft17 && up == 11
	}
	if !hit {
		return Recommendation{}, false
	}
	return rec(Surrender,
		fmt.Sprintf("hard %d against %s loses more than half a bet on average; give up half", q.Total, upName(up)),
		fmt.Sprintf("硬 %d 对庄家 %s 平均亏损超过半注, 投降止损", q.Total, upNameZh(up))), true
}

func advisePair(q Query, r Rules) (Recommendation, bool) {
	up := q.DealerUp
	split := func(en, zh string) (Recommendation, bool) { return rec(Split, en, zh), true }
	switch q.PairValue {
	case 11:
		return split("always split aces: two chances at 21", "A 对必分: 两手都有机会成 21")
	case 10:
		return rec(Stand, "never split tens: 20 is already a winning hand", "10 对不分: 20 点本身已是强牌"), true
	case 9:
		if up <= 6 || up == 8 || up == 9 {
			return split("split nines against a weak dealer card", "庄家弱牌, 9 对分牌价值更高")
		}
		return rec(Stand, "stand on 18 against 7, ten or ace", "庄家 7/10/A 时 18 点选择停牌"), true
	case 8:
		return split("always split eights: 16 is the worst total", "8 对必分: 16 是最差点数")
	case 7:
		if up <= 7 {
			return split("split sevens against 2-7", "庄家 2-7 时分 7 对")
		}
	case 6:
		if up >= 3 && up <= 6 {
			return split("split sixes against 3-6", "庄家 3-6 时分 6 对")
		}
		if up == 2 && r.DoubleAfterSplit {
			return split("split sixes against 2 when double after split is allowed", "允许 DAS 时对庄家 2 分 6 对")
		}
	case 4:
		if r.DoubleAfterSplit && (up == 5 || up == 6) {
			return split("split fours against 5-6 with double after split", "允许 DAS 时对庄家 5-6 分 4 对")
		}
	case 2, 3:
		if up >= 4 && up <= 7 {
			return split("split low pairs against 4-7", "庄家 4-7 时分小对子")
		}
		if (up == 2 || up == 3) && r.DoubleAfterSplit {
			return split("split low pairs against 2-3 with double after split", "允许 DAS 时对庄家 2-3 分小对子")
		}
	}
	// 5,5 及未命中的对子按硬牌表处理。
	return Recommendation{}, false
}

func adviseSoft(q Query, r Rules) Recommendation {
	up := q.DealerUp
	switch {
	case q.Total >= 20:
		return rec(Stand, "soft 20 stands: only an ace-demotion can help the dealer", "软 20 停牌")
	case q.Total == 19:
		if r.DealerHitsSoft17 && up == 6 && q.CanDouble {
			return rec(Double, "H17 tables double soft 19 against 6", "H17 规则下软 19 对庄家 6 加倍")
		}
		return rec(Stand, "soft 19 is strong enough to stand", "软 19 足够强, 停牌")
	case q.Total == 18:
		if up >= 2 && up <= 6 {
			if q.CanDouble {
				return rec(Double, "double soft 18 against a bust-prone dealer", "庄家爆牌率高, 软 18 加倍")
			}
			return rec(Stand, "stand soft 18 against 2-6 when doubling is unavailable", "不能加倍时软 18 对 2-6 停牌")
		}
		if up <= 8 {
			return rec(Stand, "soft 18 holds its own against 7-8", "软 18 对 7-8 停牌即可")
		}
		return rec(Hit, "soft 18 is an underdog against 9, ten or ace", "软 18 对 9/10/A 处于劣势, 要牌")
	case q.Total == 17:
		if up >= 3 && up <= 6 && q.CanDouble {
			return rec(Double, "double soft 17 against 3-6", "软 17 对 3-6 加倍")
		}
	case q.Total >= 15:
		if up >= 4 && up <= 6 && q.CanDouble {
			return rec(Double, "double soft 15-16 against 4-6", "软 15-16 对 4-6 加倍")
		}
	case q.Total >= 13:
		if (up == 5 || up == 6) && q.CanDouble {
			return rec(Double, "double soft 13-14 against 5-6", "软 13-14 对 5-6 加倍")
		}
	}
	return rec(Hit, "a soft hand cannot bust on one card; keep drawing", "软牌再要一张不会爆, 继续要牌")
}

func adviseHard(q Query, r Rules) Recommendation {
	up := q.DealerUp
	switch {
	case q.Total >= 17:
		return rec(Stand, "hard 17 or more always stands", "硬 17 及以上一律停牌")
	case q.Total >= 13:
		if up <= 6 {
			return rec(Stand, "stand a stiff hand against 2-6 and let the dealer bust", "庄家 2-6 时停牌, 等庄家爆")
		}
		return rec(Hit, "hit a stiff hand against a strong upcard", "庄家明牌强, 僵牌必须要牌")
	case q.Total == 12:
		if up >= 4 && up <= 6 {
			return rec(Stand, "stand 12 only against 4-6", "12 点仅对 4-6 停牌")
		}
		return rec(Hit, "12 hits against anything but 4-6", "12 点对其余明牌要牌")
	case q.Total == 11:
		if q.CanDouble && (r.DealerHitsSoft17 || up <= 10) {
			return rec(Double, "11 is the best doubling total", "11 点是最佳加倍点数")
		}
		return rec(Hit, "take a card toward 21", "向 21 点要牌")
	case q.Total == 10:
		if q.CanDouble && up <= 9 {
			return rec(Double, "double 10 against 2-9", "10 点对 2-9 加倍")
		}
		return rec(Hit, "take a card toward 21", "向 21 点要牌")
	case q.Total == 9:
		if q.CanDouble && up >= 3 && up <= 6 {
			return rec(Double, "double 9 against 3-6", "9 点对 3-6 加倍")
		}
		return rec(Hit, "9 hits against the rest", "9 点对其余明牌要牌")
	default:
		return rec(Hit, "8 or less always hits", "8 点及以下必要牌")
	}
}

func upName(up int) string {
	switch up {
	case 11:
		return "an ace"
	case 10:
		return "a ten"
	default:
		return fmt.Sprintf("a %d", up)
	}
}

func upNameZh(up int) string {
	if up == 11 {
		return "A"
	}
	return fmt.Sprintf("%d", up)
}
