package engine

import "fmt"

// GeneratedImage is the per-player outcome of one round's image batch.
type GeneratedImage struct {
	PlayerID    string
	ImageRef    string
	Placeholder bool
	Reason      string
}

type candidate struct {
	image  GeneratedImage
	loaded bool
}

// Ranking is the judge's two-slot sub-state-machine over one round's
// generated images. It is created when the batch completes and consumed
// exactly once by Finalize.
type Ranking struct {
	candidates map[string]*candidate
	first      string
	second     string
	finalized  bool
}

func NewRanking(images []GeneratedImage) *Ranking {
	r := &Ranking{candidates: map[string]*candidate{}}
	for _, img := range images {
		// Placeholders have nothing for the client to load.
		r.candidates[img.PlayerID] = &candidate{image: img, loaded: img.Placeholder}
	}
	return r
}

// Remove withdraws a candidate, vacating any slot it held so a departed
// player can never be announced as a winner. Unknown IDs are a no-op.
func (r *Ranking) Remove(playerID string) {
	if r.finalized {
		return
	}
	if _, ok := r.candidates[playerID]; !ok {
		return
	}
	delete(r.candidates, playerID)
	if r.first == playerID {
		r.first = ""
	}
	if r.second == playerID {
		r.second = ""
	}
}

func (r *Ranking) Len() int { return len(r.candidates) }

func (r *Ranking) Candidates() []GeneratedImage {
	out := make([]GeneratedImage, 0, len(r.candidates))
	for _, c := range r.candidates {
		out = append(out, c.image)
	}
	return out
}

// MarkLoaded is idempotent; marking twice changes nothing.
func (r *Ranking) MarkLoaded(playerID string) error {
	c, ok := r.candidates[playerID]
	if !ok {
		return ErrUnknownCandidate
	}
	c.loaded = true
	return nil
}

func (r *Ranking) AllLoaded() bool {
	for _, c := range r.candidates {
		if !c.loaded {
			return false
		}
	}
	return true
}

type RankSlot string

const (
	SlotFirst  RankSlot = "first"
	SlotSecond RankSlot = "second"
)

// Select assigns a candidate to a rank slot. A candidate cannot hold both
// slots at once; re-selecting a slot before finalization overwrites it.
func (r *Ranking) Select(slot RankSlot, playerID string) error {
	if r.finalized {
		return ErrAlreadyFinalized
	}
	if !r.AllLoaded() {
		return ErrNotReady
	}
	if _, ok := r.candidates[playerID]; !ok {
		return ErrUnknownCandidate
	}
	switch slot {
	case SlotFirst:
		if r.second == playerID {
			return ErrDuplicateAssignment
		}
		r.first = playerID
	case SlotSecond:
		if r.first == playerID {
			return ErrDuplicateAssignment
		}
		r.second = playerID
	default:
		return fmt.Errorf("unknown rank slot %q", slot)
	}
	return nil
}

func (r *Ranking) First() string  { return r.first }
func (r *Ranking) Second() string { return r.second }

// Finalize commits the ranking, once. Both slots must be filled; with a
// lone candidate the second slot is impossible and may stay empty.
func (r *Ranking) Finalize() (first, second string, err error) {
	if r.finalized {
		return "", "", ErrAlreadyFinalized
	}
	if r.first == "" {
		return "", "", ErrIncompleteRanking
	}
	if r.second == "" && len(r.candidates) > 1 {
		return "", "", ErrIncompleteRanking
	}
	r.finalized = true
	return r.first, r.second, nil
}
