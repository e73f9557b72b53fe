package card

import "testing"

func TestBlackjackValue(t *testing.T) {
	cases := []struct {
		card Card
		want int
	}{
		{CardSpadeA, 11},
		{CardHeart2, 2},
		{CardClub9, 9},
		{CardDiamondT, 10},
		{CardSpadeJ, 10},
		{CardHeartQ, 10},
		{CardClubK, 10},
	}
	for _, tc := range cases {
		if got := tc.card.BlackjackValue(); got != tc.want {
			t.Fatalf("%s: expected value %d, got %d", tc.card, tc.want, got)
		}
	}
}

func TestHiLoWeight(t *testing.T) {
	cases := []struct {
		card Card
		want int
	}{
		{CardSpade2, 1},
		{CardHeart6, 1},
		{CardClub7, 0},
		{CardDiamond9, 0},
		{CardSpadeT, -1},
		{CardHeartK, -1},
		{CardClubA, -1},
	}
	for _, tc := range cases {
		if got := tc.card.HiLoWeight(); got != tc.want {
			t.Fatalf("%s: expected weight %d, got %d", tc.card, tc.want, got)
		}
	}
}

// 整副牌的 Hi-Lo 权重和为 0, 计数体系才平衡。
func TestHiLoWeight_DeckSumsToZero(t *testing.T) {
	sum := 0
	for _, c := range NewDeck() {
		sum += c.HiLoWeight()
	}
	if sum != 0 {
		t.Fatalf("expected deck Hi-Lo sum 0, got %d", sum)
	}
}

func TestParseCard(t *testing.T) {
	cases := []struct {
		in   string
		want Card
	}{
		{"As", CardSpadeA},
		{"Td", CardDiamondT},
		{"10h", CardHeartT},
		{"kc", CardClubK},
	}
	for _, tc := range cases {
		got, err := ParseCard(tc.in)
		if err != nil {
			t.Fatalf("ParseCard(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseCard(%q): expected %s, got %s", tc.in, tc.want, got)
		}
	}
	if _, err := ParseCard("Xx"); err == nil {
		t.Fatal("expected error for invalid rank")
	}
	if _, err := ParseCard("A"); err == nil {
		t.Fatal("expected error for missing suit")
	}
}
