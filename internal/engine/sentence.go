package engine

import "strings"

// BlankMarker is the fixed placeholder the content supply uses inside
// sentence templates.
const BlankMarker = "____"

type Sentence struct {
	Text   string
	Blanks int
}

func NewSentence(text string) Sentence {
	return Sentence{Text: text, Blanks: strings.Count(text, BlankMarker)}
}

// Filled substitutes cards into the blanks in order, producing the prompt
// handed to image generation. Extra cards are ignored; missing cards leave
// the marker in place (callers validate the shape first).
func (sn Sentence) Filled(cards []string) string {
	out := sn.Text
	for _, card := range cards {
		out = strings.Replace(out, BlankMarker, card, 1)
	}
	return out
}
