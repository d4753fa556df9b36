package engine

import "errors"

// Validation and precondition errors returned by engine entry points. Every
// failure is local to a single action attempt; no partial mutation is ever
// committed.
var (
	ErrInsufficientPlayers  = errors.New("at least two players required")
	ErrNoActiveSeats        = errors.New("no active seats remaining")
	ErrNotPlayersTurn       = errors.New("not this player's turn")
	ErrPlayerNotInHand      = errors.New("player not in hand")
	ErrCannotCheckFacingBet = errors.New("cannot check facing a bet")
	ErrAmountMismatch       = errors.New("call amount does not match amount owed")
	ErrMustGoAllIn          = errors.New("call exceeds stack, must go all-in")
	ErrRaiseLimitReached    = errors.New("already raised this street")
	ErrAmountExceedsStack   = errors.New("amount exceeds stack")
	ErrAmountNotGreater     = errors.New("amount not greater than current bet")
	ErrNothingToCommit      = errors.New("no chips left to commit")
	ErrNotInShowdown        = errors.New("hand is not at showdown")
	ErrWinnerNotInHand      = errors.New("winner not in hand")
	ErrSplitAmountMismatch  = errors.New("split allocations do not sum to pot")
)
