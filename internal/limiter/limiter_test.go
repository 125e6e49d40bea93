package limiter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiter_OneInFlight(t *testing.T) {
	t.Parallel()

	l := New(time.Nanosecond)

	var inFlight, maxInFlight atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do(context.Background(), func() error {
				n := inFlight.Add(1)
				for {
					cur := maxInFlight.Load()
					if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max concurrent calls = %d, want 1", got)
	}
}

func TestLimiter_SpacesCallStarts(t *testing.T) {
	t.Parallel()

	const delay = 30 * time.Millisecond
	l := New(delay)

	var starts []time.Time
	for range 3 {
		_ = l.Do(context.Background(), func() error {
			starts = append(starts, time.Now())
			return nil
		})
	}

	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < delay-5*time.Millisecond {
			t.Errorf("gap between call %d and %d = %v, want >= %v", i-1, i, gap, delay)
		}
	}
}

func TestLimiter_PropagatesCallError(t *testing.T) {
	t.Parallel()

	l := New(time.Nanosecond)
	want := errors.New("provider exploded")

	got := l.Do(context.Background(), func() error { return want })
	if !errors.Is(got, want) {
		t.Errorf("Do() = %v, want %v", got, want)
	}
}

func TestLimiter_ContextCanceledWhileWaiting(t *testing.T) {
	t.Parallel()

	l := New(time.Hour)

	// Consume the initial token.
	if err := l.Do(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	called := false
	err := l.Do(ctx, func() error { called = true; return nil })
	if err == nil {
		t.Fatal("Do() = nil, want context error")
	}
	if called {
		t.Error("fn must not run when the wait is abandoned")
	}
}
