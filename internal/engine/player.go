package engine

// Street represents the betting round
type Street int

const (
	Preflop Street = iota
	Flop
	River
	Turn
	Showdown
)

// The post-flop streets advance flop, river, turn in that order. The order is
// load-bearing: snapshots, logs and tests all agree on it.
func (s Street) String() string {
	return [...]string{"preflop", "flop", "river", "turn", "showdown"}[s]
}

func (s Street) next() Street {
	if s >= Showdown {
		return Showdown
	}
	return s + 1
}

// Status is the machine-readable state tag for a seat. Display labels like
// "Call $10" are a presentation concern and live in the transport layer.
type Status int

const (
	StatusNone Status = iota
	StatusSmallBlind
	StatusBigBlind
	StatusChecked
	StatusCalled
	StatusBet
	StatusRaised
	StatusFolded
	StatusAllIn
)

func (s Status) String() string {
	return [...]string{
		"none", "small-blind", "big-blind", "checked", "called",
		"bet", "raised", "folded", "all-in",
	}[s]
}

// BetKind distinguishes an opening bet from a raise over an existing bet.
type BetKind int

const (
	BetKindBet BetKind = iota
	BetKindRaise
)

func (k BetKind) String() string {
	if k == BetKindRaise {
		return "raise"
	}
	return "bet"
}

// Player represents one seat in a live hand. It is derived from the room's
// seat roster when the hand starts and owned exclusively by the HandState.
type Player struct {
	ID                string
	Name              string
	Stack             int
	IsDealer          bool
	Status            Status
	StatusAmount      int // chips figure attached to called/bet/raised statuses
	RoundContribution int // chips committed this street, reset on street change
	RaiseCount        int // raises this street, capped at 1
}

// CanAct returns true if the seat is still expected to act this street.
func (p *Player) CanAct() bool {
	return p.Status != StatusFolded && p.Status != StatusAllIn
}
