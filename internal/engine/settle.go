package engine

// Allocation assigns part of the pot to a player at a split settlement.
type Allocation struct {
	PlayerID string
	Amount   int
}

// AwardPot pays the entire pot to a single winner chosen by the game master.
// Legal only at showdown.
func (h *HandState) AwardPot(winnerID string) error {
	if h.Street != Showdown {
		return ErrNotInShowdown
	}
	seat, err := h.seatOf(winnerID)
	if err != nil {
		return ErrWinnerNotInHand
	}

	h.Players[seat].Stack += h.Pot
	h.Pot = 0
	return nil
}

// SplitPot divides the pot across the given allocations, which must sum to
// the pot exactly. Zero allocations are permitted and equivalent to omitting
// the player. Legal only at showdown.
func (h *HandState) SplitPot(allocations []Allocation) error {
	if h.Street != Showdown {
		return ErrNotInShowdown
	}

	sum := 0
	seats := make([]int, len(allocations))
	for i, a := range allocations {
		seat, err := h.seatOf(a.PlayerID)
		if err != nil {
			return ErrWinnerNotInHand
		}
		seats[i] = seat
		sum += a.Amount
	}
	if sum != h.Pot {
		return ErrSplitAmountMismatch
	}

	for i, a := range allocations {
		h.Players[seats[i]].Stack += a.Amount
	}
	h.Pot = 0
	return nil
}
