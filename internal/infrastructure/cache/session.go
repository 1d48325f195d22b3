package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cosai-tools/risk-navigator/internal/domain/assessment"
)

// redisSessionStore implements SessionStore on Redis. State is stored as a
// JSON blob per session key with a sliding TTL.
type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &redisSessionStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *redisSessionStore) Create(ctx context.Context) (*assessment.State, error) {
	state := assessment.NewState()
	if err := s.Save(ctx, state); err != nil {
		return nil, err
	}

	s.logger.Debug("session created", zap.String("session_id", state.SessionID))
	return state, nil
}

func (s *redisSessionStore) Get(ctx context.Context, sessionID string) (*assessment.State, error) {
	data, err := s.client.Get(ctx, SessionPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound{SessionID: sessionID}
		}
		s.logger.Error("session get failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, fmt.Errorf("session get failed: %w", err)
	}

	var state assessment.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("session decode failed: %w", err)
	}
	if state.Answers == nil {
		state.Answers = assessment.AnswerSet{}
	}

	return &state, nil
}

func (s *redisSessionStore) Save(ctx context.Context, state *assessment.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session encode failed: %w", err)
	}

	if err := s.client.Set(ctx, SessionPrefix+state.SessionID, data, s.ttl).Err(); err != nil {
		s.logger.Error("session save failed",
			zap.String("session_id", state.SessionID),
			zap.Error(err))
		return fmt.Errorf("session save failed: %w", err)
	}

	return nil
}

func (s *redisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, SessionPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("session delete failed: %w", err)
	}

	s.logger.Debug("session deleted", zap.String("session_id", sessionID))
	return nil
}

func (s *redisSessionStore) Close() error {
	return s.client.Close()
}
