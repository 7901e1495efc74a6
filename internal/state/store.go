package state

import (
	"fmt"
	"sync"
	"time"
)

// Phase is the lifecycle phase of the server connection.
type Phase int

const (
	Disconnected Phase = iota
	Connecting
	Connected
)

func (p Phase) String() string {
	switch p {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Snapshot represents the latest connection status available to the UI.
type Snapshot struct {
	Phase               Phase
	ServerURL           string
	ConnectedAt         time.Time
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int       // Number of consecutive failed or dropped connections
	RetryAt             time.Time // Zero when no reconnect is scheduled
	Messages            int       // Server messages received on the current connection
}

// IsOffline returns true when the server has been unreachable for multiple attempts.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetConnecting records a dial attempt to url.
func (s *Store) SetConnecting(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Phase = Connecting
	s.snapshot.ServerURL = url
	s.snapshot.RetryAt = time.Time{}
	s.snapshot.LastUpdated = time.Now()
}

// SetConnected records an established connection and resets the failure count.
func (s *Store) SetConnected(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.snapshot.Phase = Connected
	s.snapshot.ServerURL = url
	s.snapshot.ConnectedAt = now
	s.snapshot.LastUpdated = now
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
	s.snapshot.RetryAt = time.Time{}
	s.snapshot.Messages = 0
}

// SetDisconnected records the end of a connection or a failed dial. A nil
// err is a clean close and does not count as a failure. retryAt is the time
// of the next attempt, zero if none is planned.
func (s *Store) SetDisconnected(err error, retryAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Phase = Disconnected
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.RetryAt = retryAt
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
	}
}

// CountMessage records one message received from the server.
func (s *Store) CountMessage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Messages++
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
