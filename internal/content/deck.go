// Package content supplies sentence templates and noun cards. The game
// core only checks blank-count arithmetic, never content quality, so any
// Provider works; StaticDeck is the built-in supply.
package content

import (
	"math/rand"
	"sync"

	"github.com/promptparty/promptparty-backend/internal/engine"
)

type Provider interface {
	DrawTemplate() engine.Sentence
	DealCards(n int) []string
}

var defaultSentences = []string{
	"Breaking news: ____ spotted stealing ____ from city hall",
	"My therapist says I should stop bringing ____ to work",
	"The museum's newest exhibit is just ____ wearing a hat",
	"Scientists confirm ____ is the leading cause of ____",
	"I can't believe the wedding cake was made entirely of ____",
	"Nothing ruins a road trip faster than ____ in the glovebox",
	"The secret ingredient in grandma's soup was ____ all along",
	"Local gym bans ____ after incident involving ____",
	"My houseplant has started demanding ____ every morning",
	"The knight's only weakness was ____",
	"Renaissance painting of ____ judging ____ harshly",
	"Weather forecast for tomorrow: cloudy with a chance of ____",
}

var defaultCards = []string{
	"a haunted toaster", "seventeen angry geese", "the concept of Tuesday",
	"a suspiciously large trench coat", "my neighbor's trampoline",
	"an emotionally unavailable robot", "the world's smallest violin",
	"a jar of expired mayonnaise", "three raccoons in a business suit",
	"an inflatable cathedral", "the last slice of pizza", "a sentient traffic cone",
	"my childhood imaginary friend", "a wizard on rollerblades",
	"an aggressively friendly dolphin", "the moon but closer",
	"a bureaucratic nightmare", "grandpa's secret stash of glitter",
	"a self-aware roomba", "one thousand live crickets",
	"an ancient cursed spreadsheet", "the ghost of breakfast past",
	"a llama with trust issues", "premium artisanal tap water",
}

// StaticDeck deals from fixed in-memory lists with a seeded shuffle so
// tests are reproducible.
type StaticDeck struct {
	mu        sync.Mutex
	rng       *rand.Rand
	sentences []string
	cards     []string
	nextSent  int
}

func NewStaticDeck(seed int64) *StaticDeck {
	d := &StaticDeck{
		rng:       rand.New(rand.NewSource(seed)),
		sentences: append([]string(nil), defaultSentences...),
		cards:     append([]string(nil), defaultCards...),
	}
	d.rng.Shuffle(len(d.sentences), func(i, j int) {
		d.sentences[i], d.sentences[j] = d.sentences[j], d.sentences[i]
	})
	return d
}

// DrawTemplate cycles through the shuffled sentences, reshuffling when
// the deck runs out.
func (d *StaticDeck) DrawTemplate() engine.Sentence {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.nextSent >= len(d.sentences) {
		d.rng.Shuffle(len(d.sentences), func(i, j int) {
			d.sentences[i], d.sentences[j] = d.sentences[j], d.sentences[i]
		})
		d.nextSent = 0
	}
	s := d.sentences[d.nextSent]
	d.nextSent++
	return engine.NewSentence(s)
}

// DealCards returns n distinct cards when possible, repeating only if the
// deck is smaller than n.
func (d *StaticDeck) DealCards(n int) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, n)
	perm := d.rng.Perm(len(d.cards))
	for len(out) < n {
		for _, idx := range perm {
			if len(out) == n {
				break
			}
			out = append(out, d.cards[idx])
		}
	}
	return out
}
