package server

import (
	"sync"
)

// Session is one connected client. It serializes writes to the underlying
// connection and remembers which player (if any) the connection has claimed.
//
// A session acquires a player identity exactly once, via JOIN. Until then
// every other command on the connection is discarded.
type Session struct {
	client Client

	mu       sync.Mutex
	playerID string
	dead     bool
}

// NewSession wraps a connected client.
func NewSession(client Client) *Session {
	return &Session{client: client}
}

// SendLine writes one protocol line to the client. Concurrent callers are
// serialized so broadcast lines never interleave. Once a write has failed
// the session is marked dead and further sends are dropped; the read loop
// notices the broken connection and tears the session down.
func (s *Session) SendLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dead {
		return nil
	}
	if err := s.client.WriteLine(line); err != nil {
		s.dead = true
		return err
	}
	return nil
}

// PlayerID returns the player identity bound to this session, or "" if the
// session has not joined yet.
func (s *Session) PlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

// bindPlayer records the player identity claimed by this session.
// Returns false if the session already has one.
func (s *Session) bindPlayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playerID != "" {
		return false
	}
	s.playerID = id
	return true
}

// RemoteAddr returns the client's address for logging.
func (s *Session) RemoteAddr() string {
	return s.client.RemoteAddr()
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	s.mu.Lock()
	s.dead = true
	s.mu.Unlock()
	return s.client.Close()
}
