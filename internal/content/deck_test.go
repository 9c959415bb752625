package content

import "testing"

func TestStaticDeck_TemplatesHaveBlanks(t *testing.T) {
	d := NewStaticDeck(1)
	for i := 0; i < 30; i++ {
		s := d.DrawTemplate()
		if s.Blanks < 1 || s.Blanks > 2 {
			t.Fatalf("template %q has %d blanks", s.Text, s.Blanks)
		}
	}
}

func TestStaticDeck_DealCountAndDistinctness(t *testing.T) {
	d := NewStaticDeck(1)
	cards := d.DealCards(10)
	if len(cards) != 10 {
		t.Fatalf("dealt %d cards, want 10", len(cards))
	}
	seen := map[string]bool{}
	for _, c := range cards {
		if seen[c] {
			t.Fatalf("duplicate card %q in a small deal", c)
		}
		seen[c] = true
	}
}

func TestStaticDeck_SeededDealsAreReproducible(t *testing.T) {
	a := NewStaticDeck(42).DrawTemplate()
	b := NewStaticDeck(42).DrawTemplate()
	if a.Text != b.Text {
		t.Fatalf("same seed drew %q and %q", a.Text, b.Text)
	}
}
