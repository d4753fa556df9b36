package engine

// HandState represents the state of one hand in progress for one room. It is
// created by NewHand, mutated in place by player actions, and discarded once
// settlement completes.
type HandState struct {
	Players       []*Player
	DealerSeat    int
	CurrentTurnID string
	Pot           int
	CurrentBet    int // contribution a player must match to stay in this street
	ActiveCount   int // seats still expected to act (not folded, not all-in)
	MatchedCount  int // seats that have checked or matched CurrentBet this street
	Street        Street
	SmallBlind    int
	BigBlind      int
}

// NewHand creates a hand from the room's seat roster, posts the blinds and
// seeds the pot. The dealer is the seat carrying the dealer flag, or seat 0
// on the room's first hand. Players are mutated in place; the caller hands
// over ownership of the slice.
func NewHand(players []*Player, smallBlind, bigBlind int) (*HandState, error) {
	n := len(players)
	if n < 2 {
		return nil, ErrInsufficientPlayers
	}

	dealer := 0
	for i, p := range players {
		if p.IsDealer {
			dealer = i
			break
		}
	}
	players[dealer].IsDealer = true

	h := &HandState{
		Players:     players,
		DealerSeat:  dealer,
		Street:      Preflop,
		ActiveCount: n,
		SmallBlind:  smallBlind,
		BigBlind:    bigBlind,
	}

	sb, bb, err := BlindSeats(dealer, n)
	if err != nil {
		return nil, err
	}
	h.postBlind(sb, smallBlind, StatusSmallBlind)
	h.postBlind(bb, bigBlind, StatusBigBlind)
	h.CurrentBet = bigBlind

	h.CurrentTurnID = players[FirstToActPreflop(bb, n)].ID
	return h, nil
}

// postBlind commits a forced contribution, clamped to the seat's stack.
func (h *HandState) postBlind(seat, amount int, status Status) {
	p := h.Players[seat]
	if amount > p.Stack {
		amount = p.Stack
	}
	p.Stack -= amount
	p.RoundContribution += amount
	p.Status = status
	p.StatusAmount = amount
	h.Pot += amount
}

// Check passes the action without committing chips. Legal only when the
// actor already matches the current bet.
func (h *HandState) Check(playerID string) error {
	seat, err := h.requireTurn(playerID)
	if err != nil {
		return err
	}
	p := h.Players[seat]
	if h.CurrentBet != p.RoundContribution {
		return ErrCannotCheckFacingBet
	}

	p.Status = StatusChecked
	p.StatusAmount = 0
	h.MatchedCount++
	h.settleStreetOrAdvanceTurn(seat)
	return nil
}

// Call matches the current bet. amount must equal exactly what the actor
// owes this street; a call the actor cannot afford fails with ErrMustGoAllIn
// so the caller can route to AllIn instead.
func (h *HandState) Call(playerID string, amount int) error {
	seat, err := h.requireTurn(playerID)
	if err != nil {
		return err
	}
	p := h.Players[seat]
	if amount != h.CurrentBet-p.RoundContribution {
		return ErrAmountMismatch
	}
	if amount > p.Stack {
		return ErrMustGoAllIn
	}

	p.Stack -= amount
	p.RoundContribution += amount
	h.Pot += amount
	p.Status = StatusCalled
	p.StatusAmount = h.CurrentBet
	h.MatchedCount++
	h.settleStreetOrAdvanceTurn(seat)
	return nil
}

// BetOrRaise commits chips above the current bet. amount is the actor's
// total contribution for the street, not a delta. A seat may raise at most
// once per street after the initial bet.
func (h *HandState) BetOrRaise(playerID string, amount int, kind BetKind) error {
	seat, err := h.requireTurn(playerID)
	if err != nil {
		return err
	}
	p := h.Players[seat]
	if p.RaiseCount >= 1 {
		return ErrRaiseLimitReached
	}
	if amount <= h.CurrentBet {
		return ErrAmountNotGreater
	}
	if amount > p.Stack+p.RoundContribution {
		return ErrAmountExceedsStack
	}

	delta := amount - p.RoundContribution
	p.Stack -= delta
	p.RoundContribution = amount
	h.Pot += delta
	h.CurrentBet = amount
	p.StatusAmount = amount
	if kind == BetKindRaise {
		p.Status = StatusRaised
		p.RaiseCount = 1
	} else {
		p.Status = StatusBet
	}

	// Only the aggressor has matched the new bet; everyone else must act
	// again. The street can never advance on the same step as a raise.
	h.MatchedCount = 1
	next, err := NextActiveSeat(h.Players, seat+1)
	if err != nil {
		h.forceShowdown()
		return nil
	}
	h.CurrentTurnID = h.Players[next].ID
	return nil
}

// Fold removes the actor from contention. Their chips stay in the pot.
func (h *HandState) Fold(playerID string) error {
	seat, err := h.requireTurn(playerID)
	if err != nil {
		return err
	}
	p := h.Players[seat]
	p.Status = StatusFolded
	p.StatusAmount = 0
	h.ActiveCount--
	h.settleStreetOrAdvanceTurn(seat)
	return nil
}

// AllIn commits the actor's entire remaining stack and removes them from the
// pool of seats still expected to act, like a fold, even though their chips
// remain in contention. An all-in above the current bet does not lift
// CurrentBet and never reopens the action.
func (h *HandState) AllIn(playerID string) error {
	seat, err := h.requireTurn(playerID)
	if err != nil {
		return err
	}
	p := h.Players[seat]
	if p.Stack == 0 {
		return ErrNothingToCommit
	}

	delta := p.Stack
	p.Stack = 0
	p.RoundContribution += delta
	h.Pot += delta
	p.Status = StatusAllIn
	p.StatusAmount = p.RoundContribution
	h.ActiveCount--
	h.settleStreetOrAdvanceTurn(seat)
	return nil
}

// Withdraw folds a seat regardless of whose turn it is, for players who
// leave the room mid-hand. Their chips stay in the pot. Withdrawing a seat
// that already folded, went all-in, or reached showdown is a no-op.
func (h *HandState) Withdraw(playerID string) error {
	seat, err := h.seatOf(playerID)
	if err != nil {
		return err
	}
	p := h.Players[seat]
	if h.Street == Showdown || !p.CanAct() {
		return nil
	}

	wasTurn := h.CurrentTurnID == playerID
	if h.countsAsMatched(p) {
		h.MatchedCount--
	}
	p.Status = StatusFolded
	p.StatusAmount = 0
	h.ActiveCount--

	if h.ActiveCount == 1 {
		h.forceShowdown()
		return nil
	}
	if h.MatchedCount == h.ActiveCount {
		h.advanceStreet()
		return nil
	}
	if wasTurn {
		next, err := NextActiveSeat(h.Players, seat+1)
		if err != nil {
			h.forceShowdown()
			return nil
		}
		h.CurrentTurnID = h.Players[next].ID
	}
	return nil
}

// countsAsMatched reports whether a seat is currently counted in
// MatchedCount: it has voluntarily acted this street and its contribution
// still equals the current bet. A seat whose call was overtaken by a later
// raise is no longer counted, and posted blinds never count on their own.
func (h *HandState) countsAsMatched(p *Player) bool {
	switch p.Status {
	case StatusChecked, StatusCalled, StatusBet, StatusRaised:
		return p.RoundContribution == h.CurrentBet
	default:
		return false
	}
}

// settleStreetOrAdvanceTurn is the common post-action step shared by every
// action except bet/raise: force showdown when only one seat remains, advance
// the street when every remaining seat has matched, otherwise pass the turn.
func (h *HandState) settleStreetOrAdvanceTurn(acted int) {
	if h.ActiveCount == 1 {
		h.forceShowdown()
		return
	}
	if h.MatchedCount == h.ActiveCount {
		h.advanceStreet()
		return
	}
	next, err := NextActiveSeat(h.Players, acted+1)
	if err != nil {
		h.forceShowdown()
		return
	}
	h.CurrentTurnID = h.Players[next].ID
}

// advanceStreet moves to the next street and resets per-street fields for
// every seat still able to act.
func (h *HandState) advanceStreet() {
	h.Street = h.Street.next()
	if h.Street == Showdown {
		h.CurrentTurnID = ""
		return
	}

	for _, p := range h.Players {
		if !p.CanAct() {
			continue
		}
		p.RoundContribution = 0
		p.Status = StatusNone
		p.StatusAmount = 0
		p.RaiseCount = 0
	}
	h.CurrentBet = 0
	h.MatchedCount = 0

	next, err := NextActiveSeatFromStreetStart(h.Players, h.DealerSeat)
	if err != nil {
		// Every remaining seat is all-in; nothing left to decide.
		h.forceShowdown()
		return
	}
	h.CurrentTurnID = h.Players[next].ID
}

func (h *HandState) forceShowdown() {
	h.Street = Showdown
	h.CurrentTurnID = ""
}

func (h *HandState) requireTurn(playerID string) (int, error) {
	seat, err := h.seatOf(playerID)
	if err != nil {
		return 0, err
	}
	if h.Street == Showdown || playerID != h.CurrentTurnID {
		return 0, ErrNotPlayersTurn
	}
	return seat, nil
}

func (h *HandState) seatOf(playerID string) (int, error) {
	for i, p := range h.Players {
		if p.ID == playerID {
			return i, nil
		}
	}
	return -1, ErrPlayerNotInHand
}

// AmountToCall returns the chips a seat owes to match the current bet.
func (h *HandState) AmountToCall(playerID string) (int, error) {
	seat, err := h.seatOf(playerID)
	if err != nil {
		return 0, err
	}
	return h.CurrentBet - h.Players[seat].RoundContribution, nil
}

// NextDealerSeat returns the seat the button moves to for the next hand.
func (h *HandState) NextDealerSeat() int {
	return (h.DealerSeat + 1) % len(h.Players)
}
