package telemetry

import (
	"testing"
	"time"

	"github.com/danmuck/cortexctl/internal/testutil/testlog"
)

func TestGateAllowsOncePerCooldown(t *testing.T) {
	testlog.Start(t)
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	gate := NewGate(20*time.Second, clock.Now)

	calls := 0
	action := func() { calls++ }

	if !gate.Attempt(action) {
		t.Fatalf("expected armed gate to run")
	}
	if gate.Armed() {
		t.Fatalf("expected gate disarmed after run")
	}
	if want := clock.now.Add(20 * time.Second); !gate.ReopensAt().Equal(want) {
		t.Fatalf("unexpected reopen time: %v", gate.ReopensAt())
	}

	clock.Advance(time.Second)
	if gate.Attempt(action) {
		t.Fatalf("expected attempt within cooldown to be dropped")
	}

	clock.Advance(19 * time.Second)
	if !gate.Armed() {
		t.Fatalf("expected gate re-armed at the end of the window")
	}
	if !gate.ReopensAt().IsZero() {
		t.Fatalf("armed gate should report zero reopen time")
	}
	if !gate.Attempt(action) {
		t.Fatalf("expected attempt after cooldown to run")
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestGateTwentyOneSecondsApart(t *testing.T) {
	testlog.Start(t)
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	gate := NewGate(0, clock.Now)
	if gate.Cooldown() != DefaultCooldown {
		t.Fatalf("expected default cooldown, got %v", gate.Cooldown())
	}

	calls := 0
	gate.Attempt(func() { calls++ })
	clock.Advance(21 * time.Second)
	gate.Attempt(func() { calls++ })
	if calls != 2 {
		t.Fatalf("expected two calls, got %d", calls)
	}
}
