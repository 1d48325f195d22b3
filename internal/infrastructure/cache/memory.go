package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cosai-tools/risk-navigator/internal/domain/assessment"
)

// memorySessionStore is the SessionStore used when Redis is not configured.
// Suitable for a single-process deployment; sessions do not survive restarts.
type memorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	logger   *zap.Logger
}

type memoryEntry struct {
	state     assessment.State
	expiresAt time.Time
}

// NewMemorySessionStore creates an in-process session store.
func NewMemorySessionStore(ttl time.Duration, logger *zap.Logger) SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &memorySessionStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		logger:   logger,
	}
}

func (s *memorySessionStore) Create(ctx context.Context) (*assessment.State, error) {
	state := assessment.NewState()
	if err := s.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *memorySessionStore) Get(_ context.Context, sessionID string) (*assessment.State, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		if ok {
			s.mu.Lock()
			delete(s.sessions, sessionID)
			s.mu.Unlock()
		}
		return nil, ErrSessionNotFound{SessionID: sessionID}
	}

	// Copy out so callers never share the stored map.
	state := entry.state
	state.Answers = entry.state.Answers.Clone()
	state.SelectedPersonas = append([]string(nil), entry.state.SelectedPersonas...)
	state.SelectedUseCases = append([]string(nil), entry.state.SelectedUseCases...)
	return &state, nil
}

func (s *memorySessionStore) Save(_ context.Context, state *assessment.State) error {
	stored := *state
	stored.Answers = state.Answers.Clone()
	stored.SelectedPersonas = append([]string(nil), state.SelectedPersonas...)
	stored.SelectedUseCases = append([]string(nil), state.SelectedUseCases...)

	s.mu.Lock()
	s.sessions[state.SessionID] = memoryEntry{
		state:     stored,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()
	return nil
}

func (s *memorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *memorySessionStore) Close() error {
	s.mu.Lock()
	s.sessions = make(map[string]memoryEntry)
	s.mu.Unlock()
	return nil
}
