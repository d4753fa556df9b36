// Package engine implements the chip-accounting state machine for a single
// poker hand: blind posting, turn rotation, betting-round completion, pot
// accumulation and showdown settlement.
//
// The main type is HandState, which holds one hand in progress for one room.
// It consumes discrete player actions (Check, Call, BetOrRaise, Fold, AllIn)
// and mutates itself in place; every entry point validates before writing any
// field, so a failed action leaves the state untouched.
//
// No cards exist anywhere in this package. The winner of a hand is chosen by
// a human game master and applied through AwardPot or SplitPot once the hand
// reaches Showdown.
//
// # Basic Usage
//
//	h, err := engine.NewHand(players, 5, 10)
//	// Process actions...
//	err = h.Call("p3", 10)
//	// At showdown the game master settles the pot
//	if h.Street == engine.Showdown {
//	    err = h.AwardPot("p1")
//	}
//
// HandState is not safe for concurrent use; callers must serialize all
// actions for a room (see the room package's Registry.With).
package engine
