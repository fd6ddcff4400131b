package server

import (
	"sync"

	"github.com/lawnchairsociety/tradeguard/server/internal/game"
	"github.com/lawnchairsociety/tradeguard/server/internal/logger"
)

// Registry tracks connected sessions and routes game events to them.
// It is the world's event sink: the game layer hands it finished protocol
// lines and the registry fans them out.
//
// A send failure to one session never blocks or fails delivery to the rest.
type Registry struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	byPlayer map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[*Session]struct{}),
		byPlayer: make(map[string]*Session),
	}
}

// Add registers a freshly connected session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s] = struct{}{}
}

// Remove drops a session and its player binding, if any.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s)
	if id := s.PlayerID(); id != "" && r.byPlayer[id] == s {
		delete(r.byPlayer, id)
	}
}

// BindPlayer records which session owns a player identity.
func (r *Registry) BindPlayer(id string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPlayer[id] = s
}

// Count returns the number of connected sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Broadcast sends a protocol line to every connected session.
func (r *Registry) Broadcast(message string) {
	r.BroadcastExcept(message, nil)
}

// BroadcastExcept sends a protocol line to every connected session except
// the excluded one. The exclusion is by connection, not player identity, so
// the world can exclude a joining session before it is bound to a player.
func (r *Registry) BroadcastExcept(message string, exclude game.Conn) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for s := range r.sessions {
		if exclude != nil && game.Conn(s) == exclude {
			continue
		}
		if err := s.SendLine(message); err != nil {
			logger.Debug("Dropping line to broken session",
				"remote_addr", s.RemoteAddr(),
				"error", err)
		}
	}
}

// SendToPlayer sends a protocol line to the session owning the given player.
// Lines addressed to unknown players are dropped silently.
func (r *Registry) SendToPlayer(playerID string, message string) {
	r.mu.RLock()
	s, ok := r.byPlayer[playerID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if err := s.SendLine(message); err != nil {
		logger.Debug("Dropping line to broken session",
			"player", playerID,
			"error", err)
	}
}
