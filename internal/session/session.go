package session

import "sync"

// Turn is one question/answer exchange in a conversation.
type Turn struct {
	Question string
	Answer   string
}

// Store keeps per-session conversation history. Implementations must be
// safe for concurrent use by HTTP handlers.
type Store interface {
	// AppendTurn records an exchange for the session, evicting the oldest
	// turn once the session exceeds the store's window.
	AppendTurn(sessionID string, turn Turn)
	// History returns the retained turns for the session, oldest first.
	History(sessionID string) []Turn
	// Clear discards the session's history.
	Clear(sessionID string)
}

// MemoryStore holds conversations in process memory with a fixed window of
// turns per session. History does not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	window   int
	sessions map[string][]Turn
}

// NewMemoryStore creates a store retaining at most window turns per
// session. A window of zero disables history entirely.
func NewMemoryStore(window int) *MemoryStore {
	return &MemoryStore{
		window:   window,
		sessions: make(map[string][]Turn),
	}
}

func (s *MemoryStore) AppendTurn(sessionID string, turn Turn) {
	if s.window == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[sessionID], turn)
	if len(turns) > s.window {
		turns = turns[len(turns)-s.window:]
	}
	s.sessions[sessionID] = turns
}

func (s *MemoryStore) History(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

func (s *MemoryStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
