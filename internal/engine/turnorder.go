package engine

// Pure seat arithmetic for blinds and turn rotation. Stateless given a
// players sequence and a pivot index.

// BlindSeats returns the small and big blind indices for a given dealer seat.
func BlindSeats(dealer, n int) (sb, bb int, err error) {
	if n < 2 {
		return 0, 0, ErrInsufficientPlayers
	}
	return (dealer + 1) % n, (dealer + 2) % n, nil
}

// FirstToActPreflop returns the seat that opens the preflop action, one past
// the big blind.
func FirstToActPreflop(bigBlind, n int) int {
	return (bigBlind + 1) % n
}

// NextActiveSeat scans forward cyclically from start (inclusive) for the
// first seat that is neither folded nor all-in.
func NextActiveSeat(players []*Player, start int) (int, error) {
	n := len(players)
	for i := 0; i < n; i++ {
		pos := ((start + i) % n + n) % n
		if players[pos].CanAct() {
			return pos, nil
		}
	}
	return -1, ErrNoActiveSeats
}

// NextActiveSeatFromStreetStart returns the seat that opens a new street.
// Post-flop action starts from the small blind, not from the dealer.
func NextActiveSeatFromStreetStart(players []*Player, dealer int) (int, error) {
	return NextActiveSeat(players, (dealer+1)%len(players))
}
