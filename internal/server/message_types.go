package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants for the client-server protocol
const (
	// Client to server messages
	MessageTypeHello        MessageType = "hello"
	MessageTypeCreateRoom   MessageType = "create_room"
	MessageTypeJoinRoom     MessageType = "join_room"
	MessageTypeLeaveRoom    MessageType = "leave_room"
	MessageTypeStartHand    MessageType = "start_hand"
	MessageTypePlayerAction MessageType = "player_action"
	MessageTypeAwardPot     MessageType = "award_pot"
	MessageTypeSplitPot     MessageType = "split_pot"
	MessageTypeQueryHand    MessageType = "query_hand"

	// Server to client messages
	MessageTypeHelloResponse  MessageType = "hello_response"
	MessageTypeRoomCreated    MessageType = "room_created"
	MessageTypeRoomJoined     MessageType = "room_joined"
	MessageTypeRoomLeft       MessageType = "room_left"
	MessageTypeRoomState      MessageType = "room_state"
	MessageTypeHandState      MessageType = "hand_state"
	MessageTypeHandEnded      MessageType = "hand_ended"
	MessageTypeRoomEvent      MessageType = "room_event"
	MessageTypeActionRequired MessageType = "action_required"
	MessageTypeError          MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
