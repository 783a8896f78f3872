package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"defiScope/internal/metrics"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestGetCoalescesConcurrentLoads(t *testing.T) {
	c := New()
	var calls atomic.Int32
	release := make(chan struct{})

	load := func(ctx context.Context) (int, bool, error) {
		calls.Add(1)
		<-release
		return 42, true, nil
	}

	const n = 32
	var wg sync.WaitGroup
	results := make([]int, n)
	oks := make([]bool, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], oks[i], errs[i] = Get(context.Background(), c, "answer", time.Minute, load)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for i := range results {
		require.NoError(t, errs[i])
		require.True(t, oks[i])
		require.Equal(t, 42, results[i])
	}
}

func TestGetExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := New(WithClock(clock.Now))

	var calls atomic.Int32
	load := func(ctx context.Context) (int32, bool, error) {
		return calls.Add(1), true, nil
	}

	v, ok, err := Get(context.Background(), c, "k", 180*time.Second, load)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(1), v)

	clock.Advance(179 * time.Second)
	v, _, err = Get(context.Background(), c, "k", 180*time.Second, load)
	require.NoError(t, err)
	require.Equal(t, int32(1), v)

	clock.Advance(time.Second)
	v, _, err = Get(context.Background(), c, "k", 180*time.Second, load)
	require.NoError(t, err)
	require.Equal(t, int32(2), v)
	require.Equal(t, int32(2), calls.Load())
}

func TestGetCachesAbsence(t *testing.T) {
	c := New()
	var calls atomic.Int32
	load := func(ctx context.Context) (string, bool, error) {
		calls.Add(1)
		return "", false, nil
	}

	for i := 0; i < 3; i++ {
		v, ok, err := Get(context.Background(), c, "missing", time.Hour, load)
		require.NoError(t, err)
		require.False(t, ok)
		require.Empty(t, v)
	}
	require.Equal(t, int32(1), calls.Load())
}

func TestGetDoesNotCacheErrors(t *testing.T) {
	m := metrics.New(nil)
	c := New(WithMetrics(m))
	boom := errors.New("rpc down")

	var calls atomic.Int32
	failing := func(ctx context.Context) (int, bool, error) {
		calls.Add(1)
		return 0, false, boom
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = Get(context.Background(), c, "k", time.Hour, failing)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.ErrorIs(t, err, boom)
	}

	before := calls.Load()
	v, ok, err := Get(context.Background(), c, "k", time.Hour, func(ctx context.Context) (int, bool, error) {
		calls.Add(1)
		return 7, true, nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 7, v)
	require.Equal(t, before+1, calls.Load())
}

func TestGetKeysAreIndependent(t *testing.T) {
	c := New()
	block := make(chan struct{})
	defer close(block)

	go func() {
		_, _, _ = Get(context.Background(), c, "slow", time.Hour, func(ctx context.Context) (int, bool, error) {
			<-block
			return 1, true, nil
		})
	}()

	done := make(chan int, 1)
	go func() {
		v, _, _ := Get(context.Background(), c, "fast", time.Hour, func(ctx context.Context) (int, bool, error) {
			return 2, true, nil
		})
		done <- v
	}()

	select {
	case v := <-done:
		require.Equal(t, 2, v)
	case <-time.After(time.Second):
		t.Fatal("load of an unrelated key was blocked")
	}
}

func TestGetLoaderIgnoresCallerCancellation(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, ok, err := Get(ctx, c, "k", time.Hour, func(ctx context.Context) (int, bool, error) {
		if ctx.Err() != nil {
			return 0, false, ctx.Err()
		}
		return 3, true, nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, v)
}
