package engine

import (
	"errors"
	"testing"
)

func showdownHand() *HandState {
	return &HandState{
		Players: []*Player{
			{ID: "p0", Name: "Alice", Stack: 940, IsDealer: true},
			{ID: "p1", Name: "Bob", Stack: 940, Status: StatusFolded},
			{ID: "p2", Name: "Carol", Stack: 940},
		},
		DealerSeat: 0,
		Pot:        180,
		Street:     Showdown,
	}
}

func TestAwardPot(t *testing.T) {
	t.Parallel()
	h := showdownHand()

	if err := h.AwardPot("p2"); err != nil {
		t.Fatalf("award: %v", err)
	}
	if h.Players[2].Stack != 1120 {
		t.Errorf("winner stack = %d, want 1120", h.Players[2].Stack)
	}
	if h.Pot != 0 {
		t.Errorf("pot = %d after award, want 0", h.Pot)
	}
}

func TestAwardPotBeforeShowdown(t *testing.T) {
	t.Parallel()
	h := showdownHand()
	h.Street = Flop

	if err := h.AwardPot("p2"); !errors.Is(err, ErrNotInShowdown) {
		t.Errorf("expected ErrNotInShowdown, got %v", err)
	}
	if h.Pot != 180 {
		t.Errorf("pot mutated on failed award: %d", h.Pot)
	}
}

func TestAwardPotUnknownWinner(t *testing.T) {
	t.Parallel()
	h := showdownHand()

	if err := h.AwardPot("stranger"); !errors.Is(err, ErrWinnerNotInHand) {
		t.Errorf("expected ErrWinnerNotInHand, got %v", err)
	}
}

func TestSplitPot(t *testing.T) {
	t.Parallel()
	h := showdownHand()
	h.Pot = 120

	err := h.SplitPot([]Allocation{{PlayerID: "p0", Amount: 60}, {PlayerID: "p2", Amount: 60}})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if h.Players[0].Stack != 1000 || h.Players[2].Stack != 1000 {
		t.Errorf("split stacks = %d/%d, want 1000/1000",
			h.Players[0].Stack, h.Players[2].Stack)
	}
	if h.Pot != 0 {
		t.Errorf("pot = %d after split, want 0", h.Pot)
	}
}

func TestSplitPotAmountMismatch(t *testing.T) {
	t.Parallel()
	h := showdownHand()
	h.Pot = 120

	err := h.SplitPot([]Allocation{{PlayerID: "p0", Amount: 50}, {PlayerID: "p2", Amount: 60}})
	if !errors.Is(err, ErrSplitAmountMismatch) {
		t.Errorf("expected ErrSplitAmountMismatch, got %v", err)
	}
	// Nothing applied on mismatch.
	if h.Players[0].Stack != 940 || h.Pot != 120 {
		t.Errorf("state mutated on failed split: stack=%d pot=%d", h.Players[0].Stack, h.Pot)
	}
}

func TestSplitPotZeroAllocationAllowed(t *testing.T) {
	t.Parallel()
	h := showdownHand()
	h.Pot = 120

	err := h.SplitPot([]Allocation{
		{PlayerID: "p0", Amount: 120},
		{PlayerID: "p1", Amount: 0},
	})
	if err != nil {
		t.Fatalf("split with zero allocation: %v", err)
	}
	if h.Players[0].Stack != 1060 || h.Players[1].Stack != 940 {
		t.Errorf("stacks = %d/%d", h.Players[0].Stack, h.Players[1].Stack)
	}
}

func TestSplitPotUnknownPlayer(t *testing.T) {
	t.Parallel()
	h := showdownHand()

	err := h.SplitPot([]Allocation{{PlayerID: "stranger", Amount: 180}})
	if !errors.Is(err, ErrWinnerNotInHand) {
		t.Errorf("expected ErrWinnerNotInHand, got %v", err)
	}
}

func TestNextDealerSeat(t *testing.T) {
	t.Parallel()
	h := showdownHand()
	if got := h.NextDealerSeat(); got != 1 {
		t.Errorf("next dealer = %d, want 1", got)
	}

	h.DealerSeat = 2
	if got := h.NextDealerSeat(); got != 0 {
		t.Errorf("next dealer = %d, want wrap to 0", got)
	}
}
