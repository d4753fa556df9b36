package server

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// recordingBroadcaster captures outbound messages for assertions.
type recordingBroadcaster struct {
	mu        sync.Mutex
	broadcast []*Message
	direct    map[string][]*Message
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{direct: make(map[string][]*Message)}
}

func (rb *recordingBroadcaster) BroadcastToRoom(roomID string, msg *Message) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.broadcast = append(rb.broadcast, msg)
}

func (rb *recordingBroadcaster) SendToPlayer(playerID string, msg *Message) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.direct[playerID] = append(rb.direct[playerID], msg)
	return nil
}

func (rb *recordingBroadcaster) messagesOfType(mt MessageType) []*Message {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	var out []*Message
	for _, msg := range rb.broadcast {
		if msg.Type == mt {
			out = append(out, msg)
		}
	}
	return out
}

func (rb *recordingBroadcaster) directTo(playerID string) []*Message {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return append([]*Message(nil), rb.direct[playerID]...)
}

func (rb *recordingBroadcaster) lastOfType(mt MessageType) *Message {
	msgs := rb.messagesOfType(mt)
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}
