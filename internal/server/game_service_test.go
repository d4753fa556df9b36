package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhand/chiptally/internal/engine"
	"github.com/openhand/chiptally/internal/room"
)

func testGameConfig() GameConfig {
	return GameConfig{SmallBlind: 5, BigBlind: 10, StartingStack: 1000}
}

func newTestService(t *testing.T) (*GameService, *recordingBroadcaster) {
	t.Helper()
	rb := newRecordingBroadcaster()
	svc := NewGameService(room.NewRegistry(), testGameConfig(), rb, testLogger())
	return svc, rb
}

// threePlayerRoom creates a room seating p0, p1 and p2 in order.
func threePlayerRoom(t *testing.T, svc *GameService) string {
	t.Helper()
	roomID, err := svc.CreateRoom("p0", "Alice")
	require.NoError(t, err)
	_, err = svc.JoinRoom(roomID, "p1", "Bob")
	require.NoError(t, err)
	_, err = svc.JoinRoom(roomID, "p2", "Carol")
	require.NoError(t, err)
	return roomID
}

func decodeHandState(t *testing.T, msg *Message) HandStateData {
	t.Helper()
	require.NotNil(t, msg)
	var data HandStateData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	return data
}

func TestCreateRoomSeatsCreator(t *testing.T) {
	svc, _ := newTestService(t)

	roomID, err := svc.CreateRoom("p0", "Alice")
	require.NoError(t, err)
	assert.Len(t, roomID, 6)

	state, err := svc.QueryRoomState(roomID)
	require.NoError(t, err)
	require.Len(t, state.Seats, 1)
	assert.Equal(t, "Alice", state.Seats[0].Name)
	assert.Equal(t, 1000, state.Seats[0].Stack)
	assert.False(t, state.HandLive)
}

func TestJoinRoomBroadcastsRoster(t *testing.T) {
	svc, rb := newTestService(t)
	roomID := threePlayerRoom(t, svc)

	state, err := svc.QueryRoomState(roomID)
	require.NoError(t, err)
	assert.Len(t, state.Seats, 3)

	msg := rb.lastOfType(MessageTypeRoomState)
	require.NotNil(t, msg)
	var data RoomStateData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Len(t, data.Seats, 3)
}

func TestJoinUnknownRoom(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.JoinRoom("zzzzzz", "p9", "Ghost")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	assert.Equal(t, "room_not_found", reasonCode(err))
}

func TestStartHandPostsBlinds(t *testing.T) {
	svc, rb := newTestService(t)
	roomID := threePlayerRoom(t, svc)

	require.NoError(t, svc.StartHand(roomID))

	hand := decodeHandState(t, rb.lastOfType(MessageTypeHandState))
	assert.Equal(t, 15, hand.Pot)
	assert.Equal(t, 10, hand.CurrentBet)
	assert.Equal(t, 0, hand.DealerSeat)
	assert.Equal(t, "p0", hand.CurrentTurnID)
	assert.Equal(t, engine.Preflop.String(), hand.Street)

	// Blinds came out of the engine stacks, not the roster
	assert.Equal(t, 995, hand.Players[1].Stack)
	assert.Equal(t, 990, hand.Players[2].Stack)
}

func TestStartHandTwiceRejected(t *testing.T) {
	svc, _ := newTestService(t)
	roomID := threePlayerRoom(t, svc)

	require.NoError(t, svc.StartHand(roomID))
	err := svc.StartHand(roomID)
	assert.ErrorIs(t, err, ErrHandInProgress)
	assert.Equal(t, "hand_in_progress", reasonCode(err))
}

func TestStartHandNeedsTwoPlayers(t *testing.T) {
	svc, _ := newTestService(t)
	roomID, err := svc.CreateRoom("p0", "Alice")
	require.NoError(t, err)

	err = svc.StartHand(roomID)
	assert.ErrorIs(t, err, engine.ErrInsufficientPlayers)
	assert.Equal(t, "insufficient_players", reasonCode(err))
}

func TestActionWithoutHand(t *testing.T) {
	svc, _ := newTestService(t)
	roomID := threePlayerRoom(t, svc)

	err := svc.Check(roomID, "p0")
	assert.ErrorIs(t, err, ErrNoActiveHand)
	assert.Equal(t, "no_active_hand", reasonCode(err))
}

func TestOutOfTurnActionRejected(t *testing.T) {
	svc, _ := newTestService(t)
	roomID := threePlayerRoom(t, svc)
	require.NoError(t, svc.StartHand(roomID))

	err := svc.Call(roomID, "p1", 5)
	assert.ErrorIs(t, err, engine.ErrNotPlayersTurn)
	assert.Equal(t, "not_players_turn", reasonCode(err))
}

// Plays a full hand through all four streets and awards the pot.
func TestFullHandThroughAward(t *testing.T) {
	svc, rb := newTestService(t)
	roomID := threePlayerRoom(t, svc)
	require.NoError(t, svc.StartHand(roomID))

	// Preflop: under the gun calls, small blind completes, big blind checks
	require.NoError(t, svc.Call(roomID, "p0", 10))
	require.NoError(t, svc.Call(roomID, "p1", 5))
	require.NoError(t, svc.Check(roomID, "p2"))

	hand := decodeHandState(t, rb.lastOfType(MessageTypeHandState))
	assert.Equal(t, engine.Flop.String(), hand.Street)
	assert.Equal(t, 30, hand.Pot)
	assert.Equal(t, "p1", hand.CurrentTurnID)

	// Flop: p1 bets, p2 folds, p0 calls
	require.NoError(t, svc.BetOrRaise(roomID, "p1", 50, engine.BetKindBet))
	require.NoError(t, svc.Fold(roomID, "p2"))
	require.NoError(t, svc.Call(roomID, "p0", 50))

	hand = decodeHandState(t, rb.lastOfType(MessageTypeHandState))
	assert.Equal(t, engine.River.String(), hand.Street)
	assert.Equal(t, 130, hand.Pot)

	// Check down the remaining streets
	require.NoError(t, svc.Check(roomID, "p1"))
	require.NoError(t, svc.Check(roomID, "p0"))
	require.NoError(t, svc.Check(roomID, "p1"))
	require.NoError(t, svc.Check(roomID, "p0"))

	hand = decodeHandState(t, rb.lastOfType(MessageTypeHandState))
	assert.Equal(t, engine.Showdown.String(), hand.Street)
	assert.Empty(t, hand.CurrentTurnID)

	require.NoError(t, svc.AwardPot(roomID, "p1"))

	// Settlement writes stacks back and rotates the button
	endedMsg := rb.lastOfType(MessageTypeHandEnded)
	require.NotNil(t, endedMsg)
	var ended HandEndedData
	require.NoError(t, json.Unmarshal(endedMsg.Data, &ended))
	require.Len(t, ended.Payouts, 1)
	assert.Equal(t, "p1", ended.Payouts[0].PlayerID)
	assert.Equal(t, 130, ended.Payouts[0].Amount)

	state, err := svc.QueryRoomState(roomID)
	require.NoError(t, err)
	assert.False(t, state.HandLive)
	stacks := map[string]int{}
	dealers := map[string]bool{}
	for _, seat := range state.Seats {
		stacks[seat.ID] = seat.Stack
		dealers[seat.ID] = seat.IsDealer
	}
	assert.Equal(t, 940, stacks["p0"])
	assert.Equal(t, 1070, stacks["p1"])
	assert.Equal(t, 990, stacks["p2"])
	assert.True(t, dealers["p1"])
	assert.False(t, dealers["p0"])
}

func TestAwardPotBeforeShowdown(t *testing.T) {
	svc, _ := newTestService(t)
	roomID := threePlayerRoom(t, svc)
	require.NoError(t, svc.StartHand(roomID))

	err := svc.AwardPot(roomID, "p0")
	assert.ErrorIs(t, err, engine.ErrNotInShowdown)
	assert.Equal(t, "not_in_showdown", reasonCode(err))
}

func TestSplitPotHeadsUp(t *testing.T) {
	svc, _ := newTestService(t)
	roomID, err := svc.CreateRoom("p0", "Alice")
	require.NoError(t, err)
	_, err = svc.JoinRoom(roomID, "p1", "Bob")
	require.NoError(t, err)
	require.NoError(t, svc.StartHand(roomID))

	// Heads up: p1 posts small, p0 posts big, p1 acts first
	require.NoError(t, svc.Call(roomID, "p1", 5))
	require.NoError(t, svc.Check(roomID, "p0"))
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Check(roomID, "p1"))
		require.NoError(t, svc.Check(roomID, "p0"))
	}

	// A chopped pot returns both blinds
	err = svc.SplitPot(roomID, []SplitShare{
		{PlayerID: "p0", Amount: 10},
		{PlayerID: "p1", Amount: 10},
	})
	require.NoError(t, err)

	state, err := svc.QueryRoomState(roomID)
	require.NoError(t, err)
	for _, seat := range state.Seats {
		assert.Equal(t, 1000, seat.Stack, "player %s", seat.ID)
	}
}

func TestSplitPotMismatch(t *testing.T) {
	svc, _ := newTestService(t)
	roomID, err := svc.CreateRoom("p0", "Alice")
	require.NoError(t, err)
	_, err = svc.JoinRoom(roomID, "p1", "Bob")
	require.NoError(t, err)
	require.NoError(t, svc.StartHand(roomID))

	require.NoError(t, svc.Call(roomID, "p1", 5))
	require.NoError(t, svc.Check(roomID, "p0"))
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Check(roomID, "p1"))
		require.NoError(t, svc.Check(roomID, "p0"))
	}

	err = svc.SplitPot(roomID, []SplitShare{
		{PlayerID: "p0", Amount: 5},
		{PlayerID: "p1", Amount: 10},
	})
	assert.ErrorIs(t, err, engine.ErrSplitAmountMismatch)
	assert.Equal(t, "split_amount_mismatch", reasonCode(err))

	// The pot is untouched after a failed split
	state, err := svc.QueryRoomState(roomID)
	require.NoError(t, err)
	require.True(t, state.HandLive)
	assert.Equal(t, 20, state.Hand.Pot)
}

func TestLeaveRoomDissolvesWhenEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	roomID, err := svc.CreateRoom("p0", "Alice")
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(roomID, "p0"))

	_, err = svc.QueryRoomState(roomID)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestFoldToOneEndsBetting(t *testing.T) {
	svc, rb := newTestService(t)
	roomID := threePlayerRoom(t, svc)
	require.NoError(t, svc.StartHand(roomID))

	require.NoError(t, svc.Fold(roomID, "p0"))
	require.NoError(t, svc.Fold(roomID, "p1"))

	hand := decodeHandState(t, rb.lastOfType(MessageTypeHandState))
	assert.Equal(t, engine.Showdown.String(), hand.Street)
	assert.Equal(t, 15, hand.Pot)

	// The uncontested pot still settles through an explicit award
	require.NoError(t, svc.AwardPot(roomID, "p2"))
	state, err := svc.QueryRoomState(roomID)
	require.NoError(t, err)
	for _, seat := range state.Seats {
		if seat.ID == "p2" {
			assert.Equal(t, 1005, seat.Stack)
		}
	}
}

func TestLeaveRoomMidHandFoldsSeat(t *testing.T) {
	svc, rb := newTestService(t)
	roomID := threePlayerRoom(t, svc)
	require.NoError(t, svc.StartHand(roomID))

	// The small blind walks away mid-hand, out of turn
	require.NoError(t, svc.LeaveRoom(roomID, "p1"))

	hand := decodeHandState(t, rb.lastOfType(MessageTypeHandState))
	assert.Equal(t, "p0", hand.CurrentTurnID)
	assert.Equal(t, 15, hand.Pot, "the posted blind stays in the pot")
	for _, p := range hand.Players {
		if p.ID == "p1" {
			assert.Equal(t, engine.StatusFolded.String(), p.Status)
		}
	}

	state, err := svc.QueryRoomState(roomID)
	require.NoError(t, err)
	assert.Len(t, state.Seats, 2, "the roster seat is gone")
	assert.True(t, state.HandLive, "the hand plays on without the leaver")
}

func TestDealerRotationSkipsDepartedSeat(t *testing.T) {
	svc, _ := newTestService(t)
	roomID := threePlayerRoom(t, svc)
	require.NoError(t, svc.StartHand(roomID))

	// The would-be next dealer leaves mid-hand
	require.NoError(t, svc.LeaveRoom(roomID, "p1"))
	require.NoError(t, svc.Fold(roomID, "p0"))

	require.NoError(t, svc.AwardPot(roomID, "p2"))

	state, err := svc.QueryRoomState(roomID)
	require.NoError(t, err)
	require.Len(t, state.Seats, 2)

	var dealers []string
	for _, seat := range state.Seats {
		if seat.IsDealer {
			dealers = append(dealers, seat.ID)
		}
	}
	require.Len(t, dealers, 1, "exactly one seat carries the button")
	assert.Equal(t, "p2", dealers[0], "the button skips the departed seat")
}

func TestActionRequiredPromptsActingPlayer(t *testing.T) {
	svc, rb := newTestService(t)
	roomID := threePlayerRoom(t, svc)
	require.NoError(t, svc.StartHand(roomID))

	prompts := rb.directTo("p0")
	require.NotEmpty(t, prompts, "the acting player is prompted directly")
	last := prompts[len(prompts)-1]
	require.Equal(t, MessageTypeActionRequired, last.Type)

	var prompt ActionRequiredData
	require.NoError(t, json.Unmarshal(last.Data, &prompt))
	assert.Equal(t, roomID, prompt.RoomID)
	assert.Equal(t, "p0", prompt.PlayerID)
	assert.Equal(t, "preflop", prompt.Street)
	assert.Equal(t, 10, prompt.AmountToCall)

	require.NoError(t, svc.Call(roomID, "p0", 10))

	prompts = rb.directTo("p1")
	require.NotEmpty(t, prompts)
	var next ActionRequiredData
	require.NoError(t, json.Unmarshal(prompts[len(prompts)-1].Data, &next))
	assert.Equal(t, "p1", next.PlayerID)
	assert.Equal(t, 5, next.AmountToCall, "the small blind owes the difference")
}

func TestNoPromptOnceHandEnds(t *testing.T) {
	svc, rb := newTestService(t)
	roomID := threePlayerRoom(t, svc)
	require.NoError(t, svc.StartHand(roomID))
	require.NoError(t, svc.Fold(roomID, "p0"))
	require.NoError(t, svc.Fold(roomID, "p1"))

	before := len(rb.directTo("p2"))
	require.NoError(t, svc.AwardPot(roomID, "p2"))
	assert.Len(t, rb.directTo("p2"), before, "no action prompt after the pot is settled")
}

func TestRoomEventLog(t *testing.T) {
	svc, rb := newTestService(t)
	roomID := threePlayerRoom(t, svc)
	require.NoError(t, svc.StartHand(roomID))

	require.NoError(t, svc.Call(roomID, "p0", 10))
	require.NoError(t, svc.BetOrRaise(roomID, "p1", 30, engine.BetKindRaise))
	require.NoError(t, svc.Fold(roomID, "p2"))
	require.NoError(t, svc.Fold(roomID, "p0"))
	require.NoError(t, svc.AwardPot(roomID, "p1"))

	var texts []string
	for _, msg := range rb.messagesOfType(MessageTypeRoomEvent) {
		var event RoomEventData
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.Equal(t, roomID, event.RoomID)
		texts = append(texts, event.Text)
	}

	assert.Equal(t, []string{
		"Bob joined the room",
		"Carol joined the room",
		"A new hand has been dealt",
		"Alice calls $10",
		"Bob raises to $30",
		"Carol folds",
		"Alice folds",
		"Bob wins $50",
	}, texts)
}
