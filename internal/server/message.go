package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/openhand/chiptally/internal/engine"
	"github.com/openhand/chiptally/internal/room"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type HelloData struct {
	PlayerName   string `json:"playerName"`
	SessionToken string `json:"sessionToken,omitempty"`
}

type CreateRoomData struct {
	PlayerName string `json:"playerName,omitempty"`
}

type JoinRoomData struct {
	RoomID string `json:"roomId"`
}

type LeaveRoomData struct {
	RoomID string `json:"roomId"`
}

type StartHandData struct {
	RoomID string `json:"roomId"`
}

type PlayerActionData struct {
	RoomID string `json:"roomId"`
	Action string `json:"action"` // check, call, bet, raise, fold, all-in
	Amount int    `json:"amount,omitempty"`
}

type AwardPotData struct {
	RoomID   string `json:"roomId"`
	WinnerID string `json:"winnerId"`
}

type SplitShare struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
}

type SplitPotData struct {
	RoomID string       `json:"roomId"`
	Shares []SplitShare `json:"shares"`
}

type QueryHandData struct {
	RoomID string `json:"roomId"`
}

// Server → Client Messages

type HelloResponseData struct {
	PlayerID     string `json:"playerId"`
	PlayerName   string `json:"playerName"`
	SessionToken string `json:"sessionToken"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SeatState struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Stack    int    `json:"stack"`
	IsDealer bool   `json:"isDealer"`
}

type HandPlayerState struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Stack             int    `json:"stack"`
	IsDealer          bool   `json:"isDealer"`
	Status            string `json:"status"`
	StatusLabel       string `json:"statusLabel"`
	RoundContribution int    `json:"roundContribution"`
}

type HandStateData struct {
	RoomID        string            `json:"roomId"`
	Players       []HandPlayerState `json:"players"`
	DealerSeat    int               `json:"dealerSeat"`
	CurrentTurnID string            `json:"currentTurnId"`
	Pot           int               `json:"pot"`
	CurrentBet    int               `json:"currentBet"`
	Street        string            `json:"street"`
}

type RoomStateData struct {
	RoomID   string         `json:"roomId"`
	Seats    []SeatState    `json:"seats"`
	Hand     *HandStateData `json:"hand,omitempty"`
	HandLive bool           `json:"handLive"`
}

type RoomCreatedData struct {
	RoomID string `json:"roomId"`
}

type RoomJoinedData struct {
	RoomID string      `json:"roomId"`
	Seats  []SeatState `json:"seats"`
}

type RoomLeftData struct {
	RoomID string `json:"roomId"`
}

// ActionRequiredData prompts the one player whose turn it is.
type ActionRequiredData struct {
	RoomID       string `json:"roomId"`
	PlayerID     string `json:"playerId"`
	Street       string `json:"street"`
	AmountToCall int    `json:"amountToCall"`
}

// RoomEventData is one entry for the room's notification log: "Alice bets
// $20", "Bob joined the room". Player is empty for room-level events.
type RoomEventData struct {
	RoomID string `json:"roomId"`
	Player string `json:"player,omitempty"`
	Text   string `json:"text"`
}

type HandEndedData struct {
	RoomID  string       `json:"roomId"`
	Payouts []SplitShare `json:"payouts"`
	Seats   []SeatState  `json:"seats"`
}

// Helper functions to convert internal types into wire snapshots

func SeatStateFromRoom(s room.Seat) SeatState {
	return SeatState{
		ID:       s.ID,
		Name:     s.Name,
		Stack:    s.Stack,
		IsDealer: s.IsDealer,
	}
}

func seatStates(seats []room.Seat) []SeatState {
	out := make([]SeatState, len(seats))
	for i, s := range seats {
		out[i] = SeatStateFromRoom(s)
	}
	return out
}

func HandStateFromEngine(roomID string, h *engine.HandState) *HandStateData {
	players := make([]HandPlayerState, len(h.Players))
	for i, p := range h.Players {
		players[i] = HandPlayerState{
			ID:                p.ID,
			Name:              p.Name,
			Stack:             p.Stack,
			IsDealer:          p.IsDealer,
			Status:            p.Status.String(),
			StatusLabel:       statusLabel(p),
			RoundContribution: p.RoundContribution,
		}
	}

	return &HandStateData{
		RoomID:        roomID,
		Players:       players,
		DealerSeat:    h.DealerSeat,
		CurrentTurnID: h.CurrentTurnID,
		Pot:           h.Pot,
		CurrentBet:    h.CurrentBet,
		Street:        h.Street.String(),
	}
}

// statusLabel renders the human-readable badge shown next to a seat. The
// engine only tracks the machine tag and amount.
func statusLabel(p *engine.Player) string {
	switch p.Status {
	case engine.StatusSmallBlind:
		return fmt.Sprintf("Small Blind $%d", p.StatusAmount)
	case engine.StatusBigBlind:
		return fmt.Sprintf("Big Blind $%d", p.StatusAmount)
	case engine.StatusChecked:
		return "Checked"
	case engine.StatusCalled:
		return fmt.Sprintf("Call $%d", p.StatusAmount)
	case engine.StatusBet:
		return fmt.Sprintf("Bet $%d", p.StatusAmount)
	case engine.StatusRaised:
		return fmt.Sprintf("Raise to $%d", p.StatusAmount)
	case engine.StatusFolded:
		return "Folded"
	case engine.StatusAllIn:
		return fmt.Sprintf("All In $%d", p.StatusAmount)
	default:
		return ""
	}
}
