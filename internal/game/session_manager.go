package game

import (
	"sync"

	"github.com/google/uuid"
)

// SessionManager holds every live ServerGame, indexed by session id and by player token.
type SessionManager struct {
	mu     sync.RWMutex
	games  map[uuid.UUID]*ServerGame
	tokens map[string]uuid.UUID
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		games:  make(map[uuid.UUID]*ServerGame),
		tokens: make(map[string]uuid.UUID),
	}
}

// Add registers g under its id and both of its tokens.
func (s *SessionManager) Add(g *ServerGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g
	for _, t := range g.tokens {
		s.tokens[t] = g.ID
	}
}

// Remove drops the session and its tokens. Removing an unknown id is a no-op.
func (s *SessionManager) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return
	}
	delete(s.games, id)
	for _, t := range g.tokens {
		if s.tokens[t] == id {
			delete(s.tokens, t)
		}
	}
}

func (s *SessionManager) Get(id uuid.UUID) (*ServerGame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	return g, ok
}

// GetByToken finds the game a player token belongs to.
func (s *SessionManager) GetByToken(token string) (*ServerGame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	g, ok := s.games[id]
	return g, ok
}

// All returns a snapshot of the live sessions.
func (s *SessionManager) All() []*ServerGame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ServerGame, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, g)
	}
	return out
}

// Count returns the number of live sessions.
func (s *SessionManager) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}
