package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/openhand/chiptally/internal/engine"
	"github.com/openhand/chiptally/internal/roomid"
	"github.com/openhand/chiptally/internal/session"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	playerID    string
	playerName  string
	roomID      string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
	sessions    *session.Store
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, gameService *GameService, sessions *session.Store) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
		sessions:    sessions,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player identity
func (c *Connection) SetPlayer(playerID, playerName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
	c.playerName = playerName
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// GetPlayerName returns the associated display name
func (c *Connection) GetPlayerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerName
}

// SetRoom associates this connection with a room
func (c *Connection) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// GetRoom returns the associated room ID
func (c *Connection) GetRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeHello:
		var data HelloData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse hello data")
			return
		}
		c.handleHello(data)

	case MessageTypeCreateRoom:
		var data CreateRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse create room data")
			return
		}
		c.handleCreateRoom(data)

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join room data")
			return
		}
		c.handleJoinRoom(data)

	case MessageTypeLeaveRoom:
		var data LeaveRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse leave room data")
			return
		}
		c.handleLeaveRoom(data)

	case MessageTypeStartHand:
		var data StartHandData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse start hand data")
			return
		}
		c.handleStartHand(data)

	case MessageTypePlayerAction:
		var data PlayerActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse player action data")
			return
		}
		c.handlePlayerAction(data)

	case MessageTypeAwardPot:
		var data AwardPotData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse award pot data")
			return
		}
		c.handleAwardPot(data)

	case MessageTypeSplitPot:
		var data SplitPotData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse split pot data")
			return
		}
		c.handleSplitPot(data)

	case MessageTypeQueryHand:
		var data QueryHandData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse query hand data")
			return
		}
		c.handleQueryHand(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

func (c *Connection) sendServiceError(err error) {
	c.sendError(reasonCode(err), err.Error())
}

// handleHello establishes the player's identity. A returning client sends
// its session token and gets its stored name back; a fresh client gets a
// new token. The token doubles as the player ID for the protocol.
func (c *Connection) handleHello(data HelloData) {
	c.logger.Info("Hello request", "playerName", data.PlayerName)

	token := data.SessionToken
	name := data.PlayerName

	if c.sessions != nil && token != "" {
		stored, err := c.sessions.Name(c.ctx, token)
		switch {
		case err == nil:
			if name == "" {
				name = stored
			} else if name != stored {
				// Client renamed itself; persist the new name.
				_ = c.sessions.Put(c.ctx, token, name)
			}
			_ = c.sessions.Touch(c.ctx, token)
		case errors.Is(err, session.ErrNotFound):
			token = ""
		default:
			c.logger.Error("Session lookup failed", "error", err)
			token = ""
		}
	}

	if name == "" {
		c.sendError("invalid_hello", "Player name required")
		return
	}

	if token == "" {
		token = session.NewToken()
		if c.sessions != nil {
			if err := c.sessions.Put(c.ctx, token, name); err != nil {
				c.logger.Error("Failed to persist session", "error", err)
			}
		}
	}

	c.SetPlayer(token, name)

	response, _ := NewMessage(MessageTypeHelloResponse, HelloResponseData{
		PlayerID:     token,
		PlayerName:   name,
		SessionToken: token,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleCreateRoom(data CreateRoomData) {
	playerID, playerName, ok := c.requireIdentity()
	if !ok {
		return
	}
	if data.PlayerName != "" {
		playerName = data.PlayerName
	}

	c.logger.Info("Create room request", "player", playerName)

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	roomID, err := c.gameService.CreateRoom(playerID, playerName)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	c.SetRoom(roomID)

	response, _ := NewMessage(MessageTypeRoomCreated, RoomCreatedData{RoomID: roomID})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleJoinRoom(data JoinRoomData) {
	playerID, playerName, ok := c.requireIdentity()
	if !ok {
		return
	}

	roomID := roomid.Normalize(data.RoomID)
	c.logger.Info("Join room request", "roomId", roomID, "player", playerName)

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	seats, err := c.gameService.JoinRoom(roomID, playerID, playerName)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	c.SetRoom(roomID)

	response, _ := NewMessage(MessageTypeRoomJoined, RoomJoinedData{
		RoomID: roomID,
		Seats:  seatStates(seats),
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleLeaveRoom(data LeaveRoomData) {
	playerID, _, ok := c.requireIdentity()
	if !ok {
		return
	}

	c.logger.Info("Leave room request", "roomId", data.RoomID, "player", playerID)

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	if err := c.gameService.LeaveRoom(data.RoomID, playerID); err != nil {
		c.sendServiceError(err)
		return
	}

	c.SetRoom("")

	response, _ := NewMessage(MessageTypeRoomLeft, RoomLeftData{RoomID: data.RoomID})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleStartHand(data StartHandData) {
	if _, _, ok := c.requireIdentity(); !ok {
		return
	}

	c.logger.Info("Start hand request", "roomId", data.RoomID)

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	if err := c.gameService.StartHand(data.RoomID); err != nil {
		c.sendServiceError(err)
	}
	// No direct response; the service broadcasts the dealt hand.
}

func (c *Connection) handlePlayerAction(data PlayerActionData) {
	playerID, _, ok := c.requireIdentity()
	if !ok {
		return
	}

	c.logger.Info("Player action", "player", playerID, "action", data.Action, "amount", data.Amount)

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	var err error
	switch data.Action {
	case "check":
		err = c.gameService.Check(data.RoomID, playerID)
	case "call":
		err = c.gameService.Call(data.RoomID, playerID, data.Amount)
	case "bet":
		err = c.gameService.BetOrRaise(data.RoomID, playerID, data.Amount, engine.BetKindBet)
	case "raise":
		err = c.gameService.BetOrRaise(data.RoomID, playerID, data.Amount, engine.BetKindRaise)
	case "fold":
		err = c.gameService.Fold(data.RoomID, playerID)
	case "all-in":
		err = c.gameService.AllIn(data.RoomID, playerID)
	default:
		c.sendError("unknown_action", "Unknown action: "+data.Action)
		return
	}

	if err != nil {
		c.sendServiceError(err)
	}
}

func (c *Connection) handleAwardPot(data AwardPotData) {
	if _, _, ok := c.requireIdentity(); !ok {
		return
	}

	c.logger.Info("Award pot request", "roomId", data.RoomID, "winner", data.WinnerID)

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	if err := c.gameService.AwardPot(data.RoomID, data.WinnerID); err != nil {
		c.sendServiceError(err)
	}
}

func (c *Connection) handleSplitPot(data SplitPotData) {
	if _, _, ok := c.requireIdentity(); !ok {
		return
	}

	c.logger.Info("Split pot request", "roomId", data.RoomID, "shares", len(data.Shares))

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	if err := c.gameService.SplitPot(data.RoomID, data.Shares); err != nil {
		c.sendServiceError(err)
	}
}

func (c *Connection) handleQueryHand(data QueryHandData) {
	if _, _, ok := c.requireIdentity(); !ok {
		return
	}

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	state, err := c.gameService.QueryRoomState(data.RoomID)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	response, _ := NewMessage(MessageTypeRoomState, state)
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) requireIdentity() (playerID, playerName string, ok bool) {
	playerID = c.GetPlayer()
	if playerID == "" {
		c.sendError("not_identified", "Must send hello first")
		return "", "", false
	}
	return playerID, c.GetPlayerName(), true
}
