package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cosai-tools/risk-navigator/internal/domain/assessment"
	"github.com/cosai-tools/risk-navigator/internal/infrastructure/config"
)

func setupRedisStore(t *testing.T) (SessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.RedisConfig{
		URL:          mr.Addr(),
		PoolSize:     5,
		MinIdleConns: 1,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	client, err := NewRedisClient(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	store := NewRedisSessionStore(client, time.Hour, zaptest.NewLogger(t))
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestNewRedisClient_ValidatesArgs(t *testing.T) {
	_, err := NewRedisClient(nil, zaptest.NewLogger(t))
	assert.Error(t, err)

	_, err = NewRedisClient(&config.RedisConfig{}, nil)
	assert.Error(t, err)
}

func TestNewRedisClient_AcceptsRedisURL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.RedisConfig{
		URL:         "redis://" + mr.Addr() + "/0",
		DialTimeout: 5 * time.Second,
	}
	client, err := NewRedisClient(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	assert.Equal(t, mr.Addr(), client.Options().Addr)
}

func TestNewRedisClient_RejectsMalformedURL(t *testing.T) {
	cfg := &config.RedisConfig{
		URL:         "http://localhost:6379",
		DialTimeout: time.Second,
	}
	_, err := NewRedisClient(cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis url")
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	cfg := &config.RedisConfig{
		URL:         "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	}
	_, err := NewRedisClient(cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func testSessionStore(t *testing.T, store SessionStore) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		state, err := store.Create(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, state.SessionID)

		loaded, err := store.Get(ctx, state.SessionID)
		require.NoError(t, err)
		assert.Equal(t, state.SessionID, loaded.SessionID)
		assert.NotNil(t, loaded.Answers)
		assert.Empty(t, loaded.Answers)
	})

	t.Run("save round-trips answers and personas", func(t *testing.T) {
		state, err := store.Create(ctx)
		require.NoError(t, err)

		state.SelectedPersonas = []string{"modelCreator"}
		state.Answers["Q1"] = "Yes"
		state.InventoryUseCaseID = "UC-DEADBEEF"
		require.NoError(t, store.Save(ctx, state))

		loaded, err := store.Get(ctx, state.SessionID)
		require.NoError(t, err)
		assert.Equal(t, []string{"modelCreator"}, loaded.SelectedPersonas)
		assert.Equal(t, assessment.AnswerSet{"Q1": "Yes"}, loaded.Answers)
		assert.Equal(t, "UC-DEADBEEF", loaded.InventoryUseCaseID)
	})

	t.Run("get unknown session", func(t *testing.T) {
		_, err := store.Get(ctx, "does-not-exist")
		require.Error(t, err)
		assert.ErrorAs(t, err, &ErrSessionNotFound{})
	})

	t.Run("delete discards state", func(t *testing.T) {
		state, err := store.Create(ctx)
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, state.SessionID))
		_, err = store.Get(ctx, state.SessionID)
		assert.Error(t, err)
	})
}

func TestRedisSessionStore(t *testing.T) {
	store, mr := setupRedisStore(t)
	testSessionStore(t, store)

	t.Run("expired session is gone", func(t *testing.T) {
		ctx := context.Background()
		state, err := store.Create(ctx)
		require.NoError(t, err)

		mr.FastForward(2 * time.Hour)

		_, err = store.Get(ctx, state.SessionID)
		assert.ErrorAs(t, err, &ErrSessionNotFound{})
	})
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore(time.Hour, zaptest.NewLogger(t))
	t.Cleanup(func() { store.Close() })

	testSessionStore(t, store)

	t.Run("stored state is isolated from caller mutation", func(t *testing.T) {
		ctx := context.Background()
		state, err := store.Create(ctx)
		require.NoError(t, err)

		state.Answers["Q1"] = "Yes"
		require.NoError(t, store.Save(ctx, state))

		state.Answers["Q1"] = "No"

		loaded, err := store.Get(ctx, state.SessionID)
		require.NoError(t, err)
		assert.Equal(t, "Yes", loaded.Answers["Q1"])
	})
}
