// Package session keeps per-session conversational state in memory.
// Sessions are created implicitly on first reference, live for the process
// lifetime and are lost on restart. There is no eviction, no TTL and no
// size cap; stored history is never trimmed, only the window handed to the
// completion API is (see RecentHistory).
package session

import (
	"sync"

	"chat-relay/internal/model"
)

// Temperature bounds for a session. Out-of-range values are clamped, not
// rejected.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

type state struct {
	systemPrompt string
	temperature  float64
	history      []model.Message
}

// Store is an in-memory mapping from session identifier to mutable
// conversational state. Session identifiers are client-chosen and
// unauthenticated; an unknown identifier is never an error, it just gets
// default state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state

	defaultPrompt      string
	defaultTemperature float64
}

// NewStore creates an empty store whose sessions start from the given
// defaults.
func NewStore(defaultPrompt string, defaultTemperature float64) *Store {
	return &Store{
		sessions:           make(map[string]*state),
		defaultPrompt:      defaultPrompt,
		defaultTemperature: defaultTemperature,
	}
}

// locked returns the state for sessionID, creating it with defaults when
// unknown. Callers must hold s.mu.
func (s *Store) locked(sessionID string) *state {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &state{
			systemPrompt: s.defaultPrompt,
			temperature:  s.defaultTemperature,
		}
		s.sessions[sessionID] = st
	}
	return st
}

// Settings returns the session's system prompt and temperature, creating
// the session with defaults when it does not exist yet.
func (s *Store) Settings(sessionID string) (string, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.locked(sessionID)
	return st.systemPrompt, st.temperature
}

// UpdateSettings overwrites the session's system prompt unconditionally.
// The temperature is only overwritten when a value is supplied, clamped to
// [MinTemperature, MaxTemperature]. The resulting settings are returned.
func (s *Store) UpdateSettings(sessionID, systemPrompt string, temperature *float64) (string, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.locked(sessionID)
	st.systemPrompt = systemPrompt
	if temperature != nil {
		st.temperature = clamp(*temperature)
	}
	return st.systemPrompt, st.temperature
}

// ClearHistory resets the session's history to empty. Clearing an unknown
// session is a no-op, not an error, and does not create the session.
func (s *Store) ClearHistory(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[sessionID]; ok {
		st.history = nil
	}
}

// AppendTurn appends one completed turn, a user entry followed by an
// assistant entry, to the session's history.
func (s *Store) AppendTurn(sessionID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.locked(sessionID)
	st.history = append(st.history,
		model.Message{Role: model.RoleUser, Content: question},
		model.Message{Role: model.RoleAssistant, Content: answer},
	)
}

// RecentHistory returns a copy of the most recent 2×memorySize history
// entries (pairs of user+assistant), creating the session when unknown.
// Older entries stay in storage; they are only dropped from the returned
// window.
func (s *Store) RecentHistory(sessionID string, memorySize int) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.locked(sessionID)

	window := st.history
	if limit := memorySize * 2; limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}
	out := make([]model.Message, len(window))
	copy(out, window)
	return out
}

// History returns a copy of the session's full stored history. An unknown
// session yields nil without being created.
func (s *Store) History(sessionID string) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]model.Message, len(st.history))
	copy(out, st.history)
	return out
}

func clamp(t float64) float64 {
	if t < MinTemperature {
		return MinTemperature
	}
	if t > MaxTemperature {
		return MaxTemperature
	}
	return t
}
