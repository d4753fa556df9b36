package server

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/openhand/chiptally/internal/engine"
	"github.com/openhand/chiptally/internal/room"
	"github.com/openhand/chiptally/internal/roomid"
)

var (
	ErrNoActiveHand   = errors.New("no active hand in room")
	ErrHandInProgress = errors.New("hand already in progress")
)

// Broadcaster pushes state to connected clients. The WebSocket server
// implements it; tests substitute a recorder.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msg *Message)
	SendToPlayer(playerID string, msg *Message) error
}

// GameService bridges transport messages to engine operations. Every
// mutation for a room runs under the registry's per-room lock, and every
// successful mutation is followed by a broadcast of the new state.
type GameService struct {
	rooms     *room.Registry
	cfg       GameConfig
	logger    *log.Logger
	broadcast Broadcaster
	turnClock *TurnClock
	idgen     *roomid.Generator
}

// NewGameService creates a game service over the given room registry.
func NewGameService(rooms *room.Registry, cfg GameConfig, broadcast Broadcaster, logger *log.Logger) *GameService {
	return &GameService{
		rooms:     rooms,
		cfg:       cfg,
		logger:    logger.WithPrefix("game"),
		broadcast: broadcast,
		idgen:     roomid.NewGenerator(nil),
	}
}

// SetTurnClock attaches the optional auto-fold timer.
func (s *GameService) SetTurnClock(tc *TurnClock) {
	s.turnClock = tc
}

// CreateRoom registers a new room and seats its creator.
func (s *GameService) CreateRoom(playerID, playerName string) (string, error) {
	// Codes are short; retry the rare collision with a live room.
	var r *room.Room
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		r, err = s.rooms.Create(s.idgen.Generate())
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("allocate room code: %w", err)
	}

	if err := s.rooms.With(r.ID, func(r *room.Room) error {
		return r.AddSeat(playerID, playerName, s.cfg.StartingStack)
	}); err != nil {
		return "", err
	}

	s.logger.Info("Room created", "room", r.ID, "player", playerName)
	return r.ID, nil
}

// JoinRoom seats a player in an existing room with the configured starting
// stack. Joining mid-hand is allowed; the player sits out until the next
// hand is dealt from the updated roster.
func (s *GameService) JoinRoom(roomID, playerID, playerName string) ([]room.Seat, error) {
	var seats []room.Seat
	err := s.rooms.With(roomID, func(r *room.Room) error {
		if err := r.AddSeat(playerID, playerName, s.cfg.StartingStack); err != nil {
			return err
		}
		seats = append([]room.Seat(nil), r.Seats...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Player joined room", "room", roomID, "player", playerName)
	s.broadcastEvent(roomID, playerName, playerName+" joined the room")
	s.broadcastRoomState(roomID)
	return seats, nil
}

// LeaveRoom removes a player's seat. If a hand is live the seat is folded
// first so the hand can finish; the last player leaving dissolves the room.
func (s *GameService) LeaveRoom(roomID, playerID string) error {
	empty := false
	var name string
	err := s.rooms.With(roomID, func(r *room.Room) error {
		if seat, err := r.Seat(playerID); err == nil {
			name = seat.Name
		}
		if r.Hand != nil {
			// Committed chips stay in the pot; the seat is out of the hand.
			if err := r.Hand.Withdraw(playerID); err != nil && !errors.Is(err, engine.ErrPlayerNotInHand) {
				return err
			}
		}
		if err := r.RemoveSeat(playerID); err != nil {
			return err
		}
		empty = len(r.Seats) == 0
		return nil
	})
	if err != nil {
		return err
	}

	if empty {
		s.rooms.Remove(roomID)
		s.disarmClock(roomID)
		s.logger.Info("Room dissolved", "room", roomID)
		return nil
	}

	s.logger.Info("Player left room", "room", roomID, "player", playerID)
	s.broadcastEvent(roomID, name, name+" left the room")
	s.afterMutation(roomID)
	s.broadcastRoomState(roomID)
	return nil
}

// StartHand deals a fresh hand from the current roster: posts blinds, seeds
// the pot and hands the turn to the seat past the big blind.
func (s *GameService) StartHand(roomID string) error {
	err := s.rooms.With(roomID, func(r *room.Room) error {
		if r.Hand != nil {
			return ErrHandInProgress
		}

		h, err := engine.NewHand(r.HandPlayers(), s.cfg.SmallBlind, s.cfg.BigBlind)
		if err != nil {
			return err
		}
		// First hand of a room: the engine defaulted the button, write the
		// flag back so the roster always carries exactly one dealer.
		for i := range r.Seats {
			r.Seats[i].IsDealer = i == h.DealerSeat
		}
		r.Hand = h
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Hand started", "room", roomID)
	s.broadcastEvent(roomID, "", "A new hand has been dealt")
	s.afterMutation(roomID)
	return nil
}

// Check passes the action for the acting player.
func (s *GameService) Check(roomID, playerID string) error {
	return s.apply(roomID, playerID, "checks", func(h *engine.HandState) error {
		return h.Check(playerID)
	})
}

// Call matches the current bet for the acting player.
func (s *GameService) Call(roomID, playerID string, amount int) error {
	return s.apply(roomID, playerID, fmt.Sprintf("calls $%d", amount), func(h *engine.HandState) error {
		return h.Call(playerID, amount)
	})
}

// BetOrRaise commits a street total above the current bet.
func (s *GameService) BetOrRaise(roomID, playerID string, amount int, kind engine.BetKind) error {
	verb := fmt.Sprintf("bets $%d", amount)
	if kind == engine.BetKindRaise {
		verb = fmt.Sprintf("raises to $%d", amount)
	}
	return s.apply(roomID, playerID, verb, func(h *engine.HandState) error {
		return h.BetOrRaise(playerID, amount, kind)
	})
}

// Fold removes the acting player from the hand.
func (s *GameService) Fold(roomID, playerID string) error {
	return s.apply(roomID, playerID, "folds", func(h *engine.HandState) error {
		return h.Fold(playerID)
	})
}

// AllIn commits the acting player's entire stack.
func (s *GameService) AllIn(roomID, playerID string) error {
	return s.apply(roomID, playerID, "goes all in", func(h *engine.HandState) error {
		return h.AllIn(playerID)
	})
}

// apply runs one engine action under the room lock, then broadcasts a log
// entry for the action and the resulting state on success.
func (s *GameService) apply(roomID, playerID, verb string, fn func(*engine.HandState) error) error {
	var actor string
	err := s.rooms.With(roomID, func(r *room.Room) error {
		if r.Hand == nil {
			return ErrNoActiveHand
		}
		if err := fn(r.Hand); err != nil {
			return err
		}
		actor = handPlayerName(r.Hand, playerID)
		return nil
	})
	if err != nil {
		return err
	}
	s.broadcastEvent(roomID, actor, fmt.Sprintf("%s %s", actor, verb))
	s.afterMutation(roomID)
	return nil
}

// AwardPot pays the whole pot to the game master's chosen winner, writes
// stacks back to the roster, rotates the button and ends the hand.
func (s *GameService) AwardPot(roomID, winnerID string) error {
	return s.settle(roomID, func(h *engine.HandState) error {
		return h.AwardPot(winnerID)
	}, func(h *engine.HandState) []SplitShare {
		return []SplitShare{{PlayerID: winnerID, Amount: potBefore(h)}}
	})
}

// SplitPot divides the pot per the game master's allocations; the shares
// must sum to the pot exactly.
func (s *GameService) SplitPot(roomID string, shares []SplitShare) error {
	allocs := make([]engine.Allocation, len(shares))
	for i, sh := range shares {
		allocs[i] = engine.Allocation{PlayerID: sh.PlayerID, Amount: sh.Amount}
	}
	return s.settle(roomID, func(h *engine.HandState) error {
		return h.SplitPot(allocs)
	}, func(*engine.HandState) []SplitShare {
		return shares
	})
}

func (s *GameService) settle(roomID string, fn func(*engine.HandState) error, payouts func(*engine.HandState) []SplitShare) error {
	var ended HandEndedData
	var winners []string
	err := s.rooms.With(roomID, func(r *room.Room) error {
		if r.Hand == nil {
			return ErrNoActiveHand
		}
		h := r.Hand
		paid := payouts(h)
		if err := fn(h); err != nil {
			return err
		}

		// Write every stack back to the roster and move the button one seat
		// clockwise. Seats added mid-hand keep their roster stack.
		nextDealer := nextDealerID(h, r)
		byID := make(map[string]*engine.Player, len(h.Players))
		for _, p := range h.Players {
			byID[p.ID] = p
		}
		for i := range r.Seats {
			if p, ok := byID[r.Seats[i].ID]; ok {
				r.Seats[i].Stack = p.Stack
			}
			r.Seats[i].IsDealer = r.Seats[i].ID == nextDealer
		}

		r.Hand = nil
		ended = HandEndedData{RoomID: roomID, Payouts: paid, Seats: seatStates(r.Seats)}
		for _, share := range paid {
			if share.Amount == 0 {
				continue
			}
			if p, ok := byID[share.PlayerID]; ok {
				winners = append(winners, fmt.Sprintf("%s wins $%d", p.Name, share.Amount))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.disarmClock(roomID)
	s.logger.Info("Hand settled", "room", roomID, "payouts", len(ended.Payouts))
	for _, text := range winners {
		s.broadcastEvent(roomID, "", text)
	}
	if msg, err := NewMessage(MessageTypeHandEnded, ended); err == nil {
		s.broadcast.BroadcastToRoom(roomID, msg)
	}
	// Everyone returns to the lobby view of the room.
	s.broadcastRoomState(roomID)
	return nil
}

// nextDealerID rotates the button one seat clockwise through the hand's
// seating order, skipping players who left the room mid-hand, so exactly
// one roster seat carries the flag after settlement. Falls back to the
// first roster seat when every hand participant is gone.
func nextDealerID(h *engine.HandState, r *room.Room) string {
	seated := make(map[string]bool, len(r.Seats))
	for _, s := range r.Seats {
		seated[s.ID] = true
	}

	n := len(h.Players)
	for i := 1; i <= n; i++ {
		id := h.Players[(h.DealerSeat+i)%n].ID
		if seated[id] {
			return id
		}
	}
	if len(r.Seats) > 0 {
		return r.Seats[0].ID
	}
	return ""
}

// QueryRoomState returns a point-in-time snapshot of the room and any live
// hand. It is side-effect-free.
func (s *GameService) QueryRoomState(roomID string) (*RoomStateData, error) {
	var state *RoomStateData
	err := s.rooms.With(roomID, func(r *room.Room) error {
		state = roomStateData(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func roomStateData(r *room.Room) *RoomStateData {
	state := &RoomStateData{
		RoomID:   r.ID,
		Seats:    seatStates(r.Seats),
		HandLive: r.Hand != nil,
	}
	if r.Hand != nil {
		state.Hand = HandStateFromEngine(r.ID, r.Hand)
	}
	return state
}

// afterMutation broadcasts the updated hand snapshot and re-arms the turn
// clock for the next acting player.
func (s *GameService) afterMutation(roomID string) {
	var hand *HandStateData
	_ = s.rooms.With(roomID, func(r *room.Room) error {
		if r.Hand != nil {
			hand = HandStateFromEngine(roomID, r.Hand)
		}
		return nil
	})
	if hand == nil {
		return
	}

	if msg, err := NewMessage(MessageTypeHandState, hand); err == nil {
		s.broadcast.BroadcastToRoom(roomID, msg)
	}

	if hand.CurrentTurnID != "" && hand.Street != engine.Showdown.String() {
		s.promptForAction(roomID, hand)
		if s.turnClock != nil {
			s.turnClock.Arm(roomID, hand.CurrentTurnID)
		}
	} else if s.turnClock != nil {
		s.turnClock.Disarm(roomID)
	}
}

// promptForAction nudges the acting player point-to-point with what they owe.
// A disconnected player simply misses the prompt; the broadcast snapshot and
// the turn clock still cover them.
func (s *GameService) promptForAction(roomID string, hand *HandStateData) {
	owed := hand.CurrentBet
	for _, p := range hand.Players {
		if p.ID == hand.CurrentTurnID {
			owed = hand.CurrentBet - p.RoundContribution
			break
		}
	}

	msg, err := NewMessage(MessageTypeActionRequired, ActionRequiredData{
		RoomID:       roomID,
		PlayerID:     hand.CurrentTurnID,
		Street:       hand.Street,
		AmountToCall: owed,
	})
	if err != nil {
		return
	}
	_ = s.broadcast.SendToPlayer(hand.CurrentTurnID, msg)
}

// broadcastEvent pushes one notification-log entry to the room.
func (s *GameService) broadcastEvent(roomID, player, text string) {
	if msg, err := NewMessage(MessageTypeRoomEvent, RoomEventData{
		RoomID: roomID,
		Player: player,
		Text:   text,
	}); err == nil {
		s.broadcast.BroadcastToRoom(roomID, msg)
	}
}

func handPlayerName(h *engine.HandState, playerID string) string {
	for _, p := range h.Players {
		if p.ID == playerID {
			return p.Name
		}
	}
	return playerID
}

func (s *GameService) broadcastRoomState(roomID string) {
	state, err := s.QueryRoomState(roomID)
	if err != nil {
		return
	}
	if msg, err := NewMessage(MessageTypeRoomState, state); err == nil {
		s.broadcast.BroadcastToRoom(roomID, msg)
	}
}

func (s *GameService) disarmClock(roomID string) {
	if s.turnClock != nil {
		s.turnClock.Disarm(roomID)
	}
}

func potBefore(h *engine.HandState) int {
	return h.Pot
}

// reasonCode maps engine and registry errors onto the wire error codes the
// protocol promises clients.
func reasonCode(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, room.ErrAlreadySeated):
		return "already_seated"
	case errors.Is(err, room.ErrSeatNotFound):
		return "seat_not_found"
	case errors.Is(err, engine.ErrInsufficientPlayers):
		return "insufficient_players"
	case errors.Is(err, engine.ErrNotPlayersTurn):
		return "not_players_turn"
	case errors.Is(err, engine.ErrPlayerNotInHand):
		return "player_not_in_hand"
	case errors.Is(err, engine.ErrCannotCheckFacingBet):
		return "cannot_check_facing_bet"
	case errors.Is(err, engine.ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, engine.ErrMustGoAllIn):
		return "must_go_all_in"
	case errors.Is(err, engine.ErrRaiseLimitReached):
		return "raise_limit_reached"
	case errors.Is(err, engine.ErrAmountExceedsStack):
		return "amount_exceeds_stack"
	case errors.Is(err, engine.ErrAmountNotGreater):
		return "amount_not_greater_than_current_bet"
	case errors.Is(err, engine.ErrNothingToCommit):
		return "nothing_to_commit"
	case errors.Is(err, engine.ErrNotInShowdown):
		return "not_in_showdown"
	case errors.Is(err, engine.ErrWinnerNotInHand):
		return "winner_not_in_hand"
	case errors.Is(err, engine.ErrSplitAmountMismatch):
		return "split_amount_mismatch"
	case errors.Is(err, ErrNoActiveHand):
		return "no_active_hand"
	case errors.Is(err, ErrHandInProgress):
		return "hand_in_progress"
	default:
		return "internal_error"
	}
}
