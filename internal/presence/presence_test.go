package presence

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/llegomark/neko/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockSignaler records typing signals and optionally fails.
type mockSignaler struct {
	mu      sync.Mutex
	calls   []string
	failErr error
}

func (m *mockSignaler) SignalTyping(channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, channelID)
	return m.failErr
}

func (m *mockSignaler) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func TestTracker_StartStop(t *testing.T) {
	sig := &mockSignaler{}
	tr := NewTracker(sig, time.Hour, log.NewNop())

	tr.StartTyping("u1", "c1")
	if !tr.IsTyping("u1") {
		t.Error("IsTyping = false after StartTyping")
	}
	// The first signal fires immediately, before any tick.
	waitFor(t, func() bool { return sig.count() >= 1 })

	tr.StopTyping("u1")
	if tr.IsTyping("u1") {
		t.Error("IsTyping = true after StopTyping")
	}
}

func TestTracker_KeepAliveRepeats(t *testing.T) {
	sig := &mockSignaler{}
	tr := NewTracker(sig, 5*time.Millisecond, log.NewNop())

	tr.StartTyping("u1", "c1")
	waitFor(t, func() bool { return sig.count() >= 3 })
	tr.StopTyping("u1")
}

func TestTracker_StopTypingIdempotent(t *testing.T) {
	tr := NewTracker(&mockSignaler{}, time.Hour, log.NewNop())

	// Stopping an idle user is a no-op, repeatedly.
	tr.StopTyping("u1")
	tr.StopTyping("u1")

	tr.StartTyping("u1", "c1")
	tr.StopTyping("u1")
	tr.StopTyping("u1")
}

func TestTracker_SignalFailureIsSwallowed(t *testing.T) {
	sig := &mockSignaler{failErr: errors.New("gateway down")}
	tr := NewTracker(sig, 5*time.Millisecond, log.NewNop())

	tr.StartTyping("u1", "c1")
	// The loop keeps re-signaling despite failures.
	waitFor(t, func() bool { return sig.count() >= 2 })
	tr.StopTyping("u1")
}

func TestTracker_TypingInChannel(t *testing.T) {
	tr := NewTracker(&mockSignaler{}, time.Hour, log.NewNop())
	defer tr.StopAll()

	tr.StartTyping("u1", "c1")
	tr.StartTyping("u2", "c1")
	tr.StartTyping("u3", "c2")

	got := tr.TypingInChannel("c1")
	if len(got) != 2 {
		t.Errorf("TypingInChannel(c1) = %v, want 2 users", got)
	}
	if len(tr.TypingInChannel("c3")) != 0 {
		t.Error("TypingInChannel(c3) should be empty")
	}
}

func TestTracker_StopAll(t *testing.T) {
	tr := NewTracker(&mockSignaler{}, time.Hour, log.NewNop())

	tr.StartTyping("u1", "c1")
	tr.StartTyping("u2", "c2")
	tr.StopAll()

	if tr.IsTyping("u1") || tr.IsTyping("u2") {
		t.Error("users still typing after StopAll")
	}
}

func TestTracker_RestartReplacesChannel(t *testing.T) {
	tr := NewTracker(&mockSignaler{}, time.Hour, log.NewNop())
	defer tr.StopAll()

	tr.StartTyping("u1", "c1")
	tr.StartTyping("u1", "c2")

	if len(tr.TypingInChannel("c1")) != 0 {
		t.Error("u1 should no longer be typing in c1")
	}
	if len(tr.TypingInChannel("c2")) != 1 {
		t.Error("u1 should be typing in c2")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not met within deadline")
		case <-time.After(time.Millisecond):
		}
	}
}
