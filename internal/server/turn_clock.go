package server

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// TurnClock folds a player who sits on their turn past the configured
// timeout. One timer is live per room at most; arming replaces any earlier
// timer for that room. A zero timeout disables the clock entirely.
type TurnClock struct {
	clock   quartz.Clock
	timeout time.Duration
	logger  *log.Logger

	mu     sync.Mutex
	timers map[string]*quartz.Timer

	// fold is invoked off the arming goroutine when a timer fires.
	fold func(roomID, playerID string) error
}

// NewTurnClock creates a turn clock. The fold callback receives the room
// and the player whose turn expired.
func NewTurnClock(clock quartz.Clock, timeout time.Duration, logger *log.Logger, fold func(roomID, playerID string) error) *TurnClock {
	return &TurnClock{
		clock:   clock,
		timeout: timeout,
		logger:  logger.WithPrefix("turnclock"),
		timers:  make(map[string]*quartz.Timer),
		fold:    fold,
	}
}

// Arm starts (or restarts) the countdown for a room's acting player.
func (tc *TurnClock) Arm(roomID, playerID string) {
	if tc.timeout <= 0 {
		return
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if timer, ok := tc.timers[roomID]; ok {
		timer.Stop()
	}

	tc.timers[roomID] = tc.clock.AfterFunc(tc.timeout, func() {
		tc.mu.Lock()
		delete(tc.timers, roomID)
		tc.mu.Unlock()

		tc.logger.Warn("Turn timeout, folding player", "room", roomID, "player", playerID)
		if err := tc.fold(roomID, playerID); err != nil {
			// The hand may have moved on between fire and fold.
			tc.logger.Debug("Timeout fold rejected", "room", roomID, "player", playerID, "error", err)
		}
	})
}

// Disarm cancels any pending countdown for the room.
func (tc *TurnClock) Disarm(roomID string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if timer, ok := tc.timers[roomID]; ok {
		timer.Stop()
		delete(tc.timers, roomID)
	}
}
