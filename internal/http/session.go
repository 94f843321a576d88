package http

import "sync"

// SessionViews tracks which users have switched to the personal-only view.
// The flag lives only in process memory: it is a per-session presentation
// choice, never persisted, and every login starts in the shared view.
type SessionViews struct {
	mu           sync.RWMutex
	personalOnly map[string]bool
}

func NewSessionViews() *SessionViews {
	return &SessionViews{personalOnly: make(map[string]bool)}
}

func (s *SessionViews) PersonalOnly(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.personalOnly[userID]
}

func (s *SessionViews) SetPersonalOnly(userID string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.personalOnly[userID] = true
	} else {
		delete(s.personalOnly, userID)
	}
}
