package card

import "testing"

func TestNewDeck_52UniqueCards(t *testing.T) {
	deck := NewDeck()
	if deck.Count() != 52 {
		t.Fatalf("expected 52 cards, got %d", deck.Count())
	}
	seen := make(map[Card]bool, 52)
	for _, c := range deck {
		if seen[c] {
			t.Fatalf("duplicate card %s in fresh deck", c)
		}
		seen[c] = true
	}
}

func TestNewShoe_SeededIsReproducible(t *testing.T) {
	a := NewShoe(6, 42)
	b := NewShoe(6, 42)
	if a.Remaining() != 312 || b.Remaining() != 312 {
		t.Fatalf("expected 312 cards in a six-deck shoe, got %d and %d", a.Remaining(), b.Remaining())
	}
	for i := 0; i < 312; i++ {
		ca, _ := a.Draw()
		cb, _ := b.Draw()
		if ca != cb {
			t.Fatalf("card %d differs between identically seeded shoes: %s vs %s", i, ca, cb)
		}
	}
}

func TestNewShoe_DifferentSeedsDiffer(t *testing.T) {
	a := NewShoe(1, 1)
	b := NewShoe(1, 2)
	same := true
	for i := 0; i < 52; i++ {
		ca, _ := a.Draw()
		cb, _ := b.Draw()
		if ca != cb {
			same = false
			break
		}
	}
	if same {
		t.Fatal("shoes with different seeds produced identical sequences")
	}
}

func TestShoe_DrawsFromTheEnd(t *testing.T) {
	s := &Shoe{Cards: CardList{CardSpadeA, CardHeartK, CardClub7}, Decks: 1}
	c, ok := s.Draw()
	if !ok || c != CardClub7 {
		t.Fatalf("expected %s off the end, got %s (ok=%v)", CardClub7, c, ok)
	}
	if s.Remaining() != 2 {
		t.Fatalf("expected 2 cards remaining, got %d", s.Remaining())
	}
}

func TestShoe_DrawEmpty(t *testing.T) {
	s := &Shoe{Decks: 1}
	if _, ok := s.Draw(); ok {
		t.Fatal("expected ok=false when drawing from an empty shoe")
	}
}

func TestShoe_Penetration(t *testing.T) {
	s := NewShoe(1, 7)
	if p := s.Penetration(); p != 0 {
		t.Fatalf("fresh shoe penetration should be 0, got %v", p)
	}
	for i := 0; i < 39; i++ {
		s.Draw()
	}
	if p := s.Penetration(); p != 0.75 {
		t.Fatalf("expected penetration 0.75 after 39 of 52 cards, got %v", p)
	}
	if d := s.DecksRemaining(); d != 0.25 {
		t.Fatalf("expected 0.25 decks remaining, got %v", d)
	}
}
