package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-labs/extraction-pipeline/internal/common"
)

// mockStore implements Store in memory with optional failure injection.
type mockStore struct {
	mu      sync.Mutex
	entries map[string]mockEntry
	getErr  error
	setErr  error
	sets    int
}

type mockEntry struct {
	value     []byte
	expiresAt time.Time
}

func newMockStore() *mockStore {
	return &mockStore{entries: make(map[string]mockEntry)}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, time.Time{}, m.getErr
	}
	e, ok := m.entries[key]
	if !ok {
		return nil, time.Time{}, ErrMiss
	}
	return e.value, e.expiresAt, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = mockEntry{value: value, expiresAt: expiresAt}
	return nil
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

func TestKeyStable(t *testing.T) {
	assert.Equal(t, Key("ns", "content"), Key("ns", "content"))
	assert.NotEqual(t, Key("ns", "content"), Key("ns2", "content"))
	assert.NotEqual(t, Key("ns", "content"), Key("ns", "content2"))
	// Namespace/content boundary must matter.
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}

func TestL1HitAndExpiry(t *testing.T) {
	c := New(Config{TTL: time.Hour}, nil, nil)
	clock := time.Now()
	c.now = func() time.Time { return clock }

	c.Set(context.Background(), "ns", "k", []byte("v"), 0)
	got, ok := c.Get(context.Background(), "ns", "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	clock = clock.Add(2 * time.Hour)
	_, ok = c.Get(context.Background(), "ns", "k")
	assert.False(t, ok)
}

func TestL2PromotionKeepsRemainingTTL(t *testing.T) {
	store := newMockStore()
	c := New(Config{TTL: time.Hour}, store, nil)
	clock := time.Now()
	c.now = func() time.Time { return clock }

	expiresAt := clock.Add(30 * time.Minute)
	require.NoError(t, store.Set(context.Background(), Key("ns", "k"), []byte("v"), expiresAt))

	got, ok := c.Get(context.Background(), "ns", "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	// Promoted into L1 with the store's expiry, not a fresh TTL.
	clock = clock.Add(31 * time.Minute)
	_, ok = c.Get(context.Background(), "ns", "k")
	assert.False(t, ok)
}

func TestStoreFailuresDegradeToMiss(t *testing.T) {
	store := newMockStore()
	store.getErr = errors.New("store down")
	c := New(Config{}, store, nil)

	_, ok := c.Get(context.Background(), "ns", "missing")
	assert.False(t, ok)
}

func TestSetIsFireAndForget(t *testing.T) {
	store := newMockStore()
	store.setErr = errors.New("store down")
	c := New(Config{}, store, nil)

	// Returns immediately even though the store write fails.
	c.Set(context.Background(), "ns", "k", []byte("v"), 0)

	require.Eventually(t, func() bool { return store.setCount() == 1 },
		time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return c.DroppedWrites() == 1 },
		time.Second, 5*time.Millisecond)

	// L1 still serves the value.
	got, ok := c.Get(context.Background(), "ns", "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestSweepEvictsExpired(t *testing.T) {
	c := New(Config{TTL: time.Minute, MaxL1Entries: 4}, nil, nil)
	clock := time.Now()
	c.now = func() time.Time { return clock }

	for _, k := range []string{"a", "b", "c", "d"} {
		c.Set(context.Background(), "ns", k, []byte(k), 0)
	}
	clock = clock.Add(2 * time.Minute)
	// Exceeding the bound triggers a sweep of the four expired entries.
	c.Set(context.Background(), "ns", "e", []byte("e"), 0)

	c.mu.Lock()
	size := len(c.l1)
	c.mu.Unlock()
	assert.Equal(t, 1, size)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(Config{}, newMockStore(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%4))
			for j := 0; j < 100; j++ {
				c.Set(context.Background(), "ns", key, []byte(key), 0)
				c.Get(context.Background(), "ns", key)
			}
		}(i)
	}
	wg.Wait()
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore("file:"+t.TempDir()+"/cache.db", nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, _, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	expiresAt := time.Now().Add(time.Hour)
	require.NoError(t, store.Set(ctx, "k", []byte("v"), expiresAt))

	got, exp, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.WithinDuration(t, expiresAt, exp, time.Second)

	// Expired entries report a miss.
	require.NoError(t, store.Set(ctx, "old", []byte("v"), time.Now().Add(-time.Minute)))
	_, _, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.RecordRun(ctx, RunRecord{
		ID: "run-1", Filename: "catalog.csv", Chunks: 3, Items: 12,
		Confidence: 0.8, Elapsed: time.Second, NotesJSON: "[]",
	}))
}

func TestNewSQLiteStoreUnavailable(t *testing.T) {
	// Opening under a directory that does not exist fails at schema init.
	_, err := NewSQLiteStore("file:"+t.TempDir()+"/missing/sub/cache.db", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCacheUnavailable)
}
