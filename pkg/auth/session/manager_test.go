package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) GetDel(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	delete(m.data, key)
	return val, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func newTestManager() (*Manager, *mockStore) {
	store := newMockStore()
	return &Manager{store: store, ttl: time.Hour}, store
}

func TestManagerGenerateAndRotate(t *testing.T) {
	ctx := context.Background()
	manager, store := newTestManager()
	userID := uuid.New()

	token, err := manager.Generate(ctx, userID, "access-123")
	require.NoError(t, err)
	require.Equal(t, userID.String()+"|"+tokenDigest(token), store.data["sess:access-123"])

	rot, err := manager.Rotate(ctx, "access-123", token)
	require.NoError(t, err)
	require.Equal(t, userID, rot.UserID)
	require.NotEqual(t, "access-123", rot.AccessID)
	require.NotContains(t, store.data, "sess:access-123")

	ok, err := manager.HasSession(ctx, rot.AccessID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = manager.Rotate(ctx, "access-123", token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestManagerNeverStoresRawToken(t *testing.T) {
	manager, store := newTestManager()

	token, err := manager.Generate(context.Background(), uuid.New(), "a1")
	require.NoError(t, err)
	require.False(t, strings.Contains(store.data["sess:a1"], token))
}

func TestManagerWrongTokenEndsSession(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager()

	token, err := manager.Generate(ctx, uuid.New(), "a1")
	require.NoError(t, err)

	_, err = manager.Rotate(ctx, "a1", "wrong")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = manager.Rotate(ctx, "a1", token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestManagerConcurrentRotateHasOneWinner(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager()

	token, err := manager.Generate(ctx, uuid.New(), "a1")
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.Rotate(ctx, "a1", token); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestManagerRevoke(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager()

	_, err := manager.Generate(ctx, uuid.New(), "a1")
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, "a1"))

	ok, err := manager.HasSession(ctx, "a1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestManagerRejectsCorruptValue(t *testing.T) {
	ctx := context.Background()
	manager, store := newTestManager()
	store.data["sess:bad"] = "not-a-uuid|" + tokenDigest("tok")
	store.data["sess:short"] = uuid.NewString() + "|tok"

	_, err := manager.Rotate(ctx, "bad", "tok")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = manager.Rotate(ctx, "short", "tok")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}
