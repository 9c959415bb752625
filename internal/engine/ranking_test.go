package engine

import (
	"errors"
	"testing"
)

func newLoadedRanking() *Ranking {
	r := NewRanking([]GeneratedImage{
		{PlayerID: "p1", ImageRef: "img/1.png"},
		{PlayerID: "p2", ImageRef: "img/2.png"},
		{PlayerID: "p3", ImageRef: "img/3.png"},
	})
	for _, id := range []string{"p1", "p2", "p3"} {
		_ = r.MarkLoaded(id)
	}
	return r
}

func TestRanking_SelectBeforeAllLoadedFails(t *testing.T) {
	r := NewRanking([]GeneratedImage{
		{PlayerID: "p1", ImageRef: "img/1.png"},
		{PlayerID: "p2", ImageRef: "img/2.png"},
	})
	_ = r.MarkLoaded("p1")

	err := r.Select(SlotFirst, "p1")
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("want ErrNotReady, got %v", err)
	}
}

func TestRanking_PlaceholdersCountAsLoaded(t *testing.T) {
	r := NewRanking([]GeneratedImage{
		{PlayerID: "p1", ImageRef: "img/1.png"},
		{PlayerID: "p2", ImageRef: "assets/placeholder.png", Placeholder: true, Reason: "vendor down"},
	})
	_ = r.MarkLoaded("p1")
	if !r.AllLoaded() {
		t.Fatalf("placeholder should not gate loading")
	}
}

func TestRanking_MarkLoadedIsIdempotent(t *testing.T) {
	r := newLoadedRanking()
	if err := r.MarkLoaded("p1"); err != nil {
		t.Fatalf("second MarkLoaded: %v", err)
	}
	if err := r.MarkLoaded("ghost"); !errors.Is(err, ErrUnknownCandidate) {
		t.Fatalf("want ErrUnknownCandidate, got %v", err)
	}
}

func TestRanking_SamePlayerCannotHoldBothSlots(t *testing.T) {
	r := newLoadedRanking()
	if err := r.Select(SlotFirst, "p1"); err != nil {
		t.Fatalf("first select: %v", err)
	}
	err := r.Select(SlotSecond, "p1")
	if !errors.Is(err, ErrDuplicateAssignment) {
		t.Fatalf("want ErrDuplicateAssignment, got %v", err)
	}
	// Prior assignment survives the rejection.
	if r.First() != "p1" || r.Second() != "" {
		t.Fatalf("state changed on rejection: first=%q second=%q", r.First(), r.Second())
	}
}

func TestRanking_ReselectionOverwritesSlot(t *testing.T) {
	r := newLoadedRanking()
	_ = r.Select(SlotFirst, "p1")
	if err := r.Select(SlotFirst, "p2"); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if r.First() != "p2" {
		t.Fatalf("first = %q, want p2", r.First())
	}
}

func TestRanking_UnknownCandidateRejected(t *testing.T) {
	r := newLoadedRanking()
	if err := r.Select(SlotFirst, "ghost"); !errors.Is(err, ErrUnknownCandidate) {
		t.Fatalf("want ErrUnknownCandidate, got %v", err)
	}
}

func TestRanking_RemoveVacatesSlot(t *testing.T) {
	r := newLoadedRanking()
	_ = r.Select(SlotFirst, "p1")
	_ = r.Select(SlotSecond, "p2")

	r.Remove("p1")
	if r.First() != "" || r.Second() != "p2" {
		t.Fatalf("after remove: first=%q second=%q", r.First(), r.Second())
	}
	if err := r.Select(SlotFirst, "p1"); !errors.Is(err, ErrUnknownCandidate) {
		t.Fatalf("removed candidate still selectable: %v", err)
	}
	if _, _, err := r.Finalize(); !errors.Is(err, ErrIncompleteRanking) {
		t.Fatalf("want ErrIncompleteRanking, got %v", err)
	}

	// Unknown IDs are a no-op.
	r.Remove("ghost")
	if r.Len() != 2 {
		t.Fatalf("len = %d, want 2", r.Len())
	}
}

func TestRanking_LoneCandidateFinalizesWithFirstOnly(t *testing.T) {
	r := NewRanking([]GeneratedImage{{PlayerID: "p1", ImageRef: "img/1.png"}})
	_ = r.MarkLoaded("p1")

	if _, _, err := r.Finalize(); !errors.Is(err, ErrIncompleteRanking) {
		t.Fatalf("empty finalize: want ErrIncompleteRanking, got %v", err)
	}
	_ = r.Select(SlotFirst, "p1")
	first, second, err := r.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if first != "p1" || second != "" {
		t.Fatalf("got (%s, %s)", first, second)
	}
}

func TestRanking_Finalize(t *testing.T) {
	r := newLoadedRanking()

	if _, _, err := r.Finalize(); !errors.Is(err, ErrIncompleteRanking) {
		t.Fatalf("empty finalize: want ErrIncompleteRanking, got %v", err)
	}

	_ = r.Select(SlotFirst, "p1")
	if _, _, err := r.Finalize(); !errors.Is(err, ErrIncompleteRanking) {
		t.Fatalf("half finalize: want ErrIncompleteRanking, got %v", err)
	}

	_ = r.Select(SlotSecond, "p3")
	first, second, err := r.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if first != "p1" || second != "p3" {
		t.Fatalf("got (%s, %s)", first, second)
	}

	if _, _, err := r.Finalize(); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("double finalize: want ErrAlreadyFinalized, got %v", err)
	}
	if err := r.Select(SlotFirst, "p2"); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("select after finalize: want ErrAlreadyFinalized, got %v", err)
	}
}
