package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-labs/extraction-pipeline/internal/cache"
	"github.com/portfolio-labs/extraction-pipeline/internal/common"
	"github.com/portfolio-labs/extraction-pipeline/internal/model"
	"github.com/portfolio-labs/extraction-pipeline/internal/oracle"
	"github.com/portfolio-labs/extraction-pipeline/internal/router"
)

// mockOracle scripts responses per call and records concurrency.
type mockOracle struct {
	mu       sync.Mutex
	calls    int
	inFlight int32
	maxSeen  int32
	delay    time.Duration
	respond  func(call int, req oracle.Request) (string, error)
}

func (m *mockOracle) Extract(ctx context.Context, req oracle.Request) (string, error) {
	cur := atomic.AddInt32(&m.inFlight, 1)
	defer atomic.AddInt32(&m.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&m.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&m.maxSeen, prev, cur) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	if m.respond != nil {
		return m.respond(call, req)
	}
	return `{"items":[{"name":"Item"}]}`, nil
}

func chunksN(n int) []model.Chunk {
	out := make([]model.Chunk, n)
	for i := range out {
		out[i] = model.Chunk{Index: i, Text: fmt.Sprintf("chunk text %d", i)}
	}
	return out
}

func TestProcessChunksOrdering(t *testing.T) {
	mock := &mockOracle{
		respond: func(_ int, req oracle.Request) (string, error) {
			return fmt.Sprintf(`{"items":[{"name":"Item %s"}]}`, req.Text), nil
		},
		delay: 5 * time.Millisecond,
	}
	c := New(Config{MaxConcurrency: 4, CallTimeout: time.Second}, mock, nil, nil)

	results := c.ProcessChunks(context.Background(), chunksN(10), Options{})
	require.Len(t, results, 10)
	for i, r := range results {
		assert.Equal(t, i, r.ChunkIndex)
		require.Len(t, r.Items, 1)
		assert.Equal(t, fmt.Sprintf("Item chunk text %d", i), r.Items[0].Name)
	}
}

func TestConcurrencyBound(t *testing.T) {
	mock := &mockOracle{delay: 30 * time.Millisecond}
	c := New(Config{MaxConcurrency: 3, CallTimeout: time.Second}, mock, nil, nil)

	results := c.ProcessChunks(context.Background(), chunksN(10), Options{})
	require.Len(t, results, 10)
	assert.LessOrEqual(t, atomic.LoadInt32(&mock.maxSeen), int32(3),
		"no instant may see more than maxConcurrency calls in flight")
}

func TestTimeoutNeverHangs(t *testing.T) {
	stalling := &stallOracle{seen: make(map[string]bool)}
	c := New(Config{MaxConcurrency: 2, CallTimeout: 50 * time.Millisecond}, stalling, nil, nil)

	done := make(chan []model.ChunkResult, 1)
	go func() {
		done <- c.ProcessChunks(context.Background(), chunksN(3), Options{})
	}()

	select {
	case results := <-done:
		require.Len(t, results, 3)
		for i, r := range results {
			assert.Equal(t, i, r.ChunkIndex)
			require.NotEmpty(t, r.Notes)
			assert.Contains(t, r.Notes[0], "fallback")
			require.Len(t, r.Items, 1)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("batch hung on a never-responding oracle")
	}
}

// stallOracle hangs forever on the first call for each chunk text and
// answers subsequent (fallback) calls immediately. The coordinator must
// abandon the stalled call, not wait it out.
type stallOracle struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (s *stallOracle) Extract(_ context.Context, req oracle.Request) (string, error) {
	s.mu.Lock()
	first := !s.seen[req.Text]
	s.seen[req.Text] = true
	s.mu.Unlock()
	if first {
		select {} // never resolves; leaked on purpose
	}
	return `{"items":[{"name":"Fallback Item"}]}`, nil
}

func TestRetryOnOracleError(t *testing.T) {
	mock := &mockOracle{
		respond: func(call int, req oracle.Request) (string, error) {
			if call == 1 {
				return "", errors.New("rate limited")
			}
			return `{"items":[{"name":"Retried"}]}`, nil
		},
	}
	c := New(Config{MaxConcurrency: 1, CallTimeout: time.Second, MaxRetries: 2}, mock, nil, nil)

	results := c.ProcessChunks(context.Background(), chunksN(1), Options{})
	require.Len(t, results, 1)
	require.Len(t, results[0].Items, 1)
	assert.Equal(t, "Retried", results[0].Items[0].Name)
	require.NotEmpty(t, results[0].Notes)
	assert.Contains(t, results[0].Notes[0], "retry")
}

func TestExhaustedRetriesFailChunkOnly(t *testing.T) {
	mock := &mockOracle{
		respond: func(call int, req oracle.Request) (string, error) {
			if req.Text == "chunk text 1" {
				return "", errors.New("boom")
			}
			return `{"items":[{"name":"OK"}]}`, nil
		},
	}
	c := New(Config{MaxConcurrency: 2, CallTimeout: time.Second, MaxRetries: 2}, mock, nil, nil)

	results := c.ProcessChunks(context.Background(), chunksN(3), Options{})
	require.Len(t, results, 3)
	assert.Len(t, results[0].Items, 1)
	assert.Empty(t, results[1].Items, "failed chunk yields empty items")
	assert.NotEmpty(t, results[1].Notes)
	assert.Len(t, results[2].Items, 1, "sibling chunks are unaffected")
}

func TestMalformedResponseRecovered(t *testing.T) {
	mock := &mockOracle{
		respond: func(_ int, _ oracle.Request) (string, error) {
			return `{"items":[{"name":"Broken One"},`, nil // truncated
		},
	}
	c := New(Config{MaxConcurrency: 1, CallTimeout: time.Second}, mock, nil, nil)

	results := c.ProcessChunks(context.Background(), chunksN(1), Options{})
	require.Len(t, results, 1)
	require.Len(t, results[0].Items, 1)
	assert.Equal(t, "Broken One", results[0].Items[0].Name)
	require.NotEmpty(t, results[0].Notes)
}

func TestCacheHitSkipsOracle(t *testing.T) {
	mock := &mockOracle{}
	mt := cache.New(cache.Config{TTL: time.Hour}, nil, nil)
	c := New(Config{MaxConcurrency: 1, CallTimeout: time.Second}, mock, mt, nil)

	first := c.ProcessChunks(context.Background(), chunksN(1), Options{})
	require.Len(t, first[0].Items, 1)

	second := c.ProcessChunks(context.Background(), chunksN(1), Options{})
	require.Len(t, second[0].Items, 1)
	assert.Equal(t, first[0].Items, second[0].Items)
	assert.Contains(t, second[0].Notes, "cache hit")

	mock.mu.Lock()
	calls := mock.calls
	mock.mu.Unlock()
	assert.Equal(t, 1, calls, "second run must not hit the oracle")
}

// ctxCaptureOracle records the request ID seen on each call's context.
type ctxCaptureOracle struct {
	mu      sync.Mutex
	reqIDs  []string
	respond func(call int) (string, error)
}

func (o *ctxCaptureOracle) Extract(ctx context.Context, req oracle.Request) (string, error) {
	o.mu.Lock()
	o.reqIDs = append(o.reqIDs, common.RequestIDFromContext(ctx))
	call := len(o.reqIDs)
	o.mu.Unlock()
	return o.respond(call)
}

func TestRequestIDSharedAcrossRetries(t *testing.T) {
	mock := &ctxCaptureOracle{
		respond: func(call int) (string, error) {
			if call == 1 {
				return "", errors.New("rate limited")
			}
			return `{"items":[{"name":"Retried"}]}`, nil
		},
	}
	c := New(Config{MaxConcurrency: 1, CallTimeout: time.Second, MaxRetries: 2}, mock, nil, nil)

	results := c.ProcessChunks(context.Background(), chunksN(1), Options{})
	require.Len(t, results, 1)
	require.Len(t, results[0].Items, 1)

	mock.mu.Lock()
	defer mock.mu.Unlock()
	require.Len(t, mock.reqIDs, 2)
	assert.NotEmpty(t, mock.reqIDs[0])
	assert.Equal(t, mock.reqIDs[0], mock.reqIDs[1], "retry must reuse the chunk's request ID")
}

func TestFastModeRoutesFast(t *testing.T) {
	var seenTier router.Tier
	mock := &mockOracle{
		respond: func(_ int, req oracle.Request) (string, error) {
			seenTier = req.Tier
			return `{"items":[{"name":"X"}]}`, nil
		},
	}
	c := New(Config{MaxConcurrency: 1, CallTimeout: time.Second}, mock, nil, nil)

	chunks := []model.Chunk{{Index: 0, Text: "CODE-1 a 1%\nCODE-2 b 2%\n", IsTableHint: true}}
	c.ProcessChunks(context.Background(), chunks, Options{FastMode: true})
	assert.Equal(t, router.TierFast, seenTier)
}
