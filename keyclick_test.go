package tap

import (
	"context"
	"testing"
	"time"

	"github.com/inputtap/tap/platform"
)

func TestKeyClickClicksWhileKeyHeld(t *testing.T) {
	injector := &fakeInjector{}
	events := make(chan platform.RawEvent, 16)
	pos := func() (int, int) { return 11, 22 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handle := StartKeyClickRunner(ctx, KeyClickConfig{Interval: 5 * time.Millisecond}, events, injector, pos, NopLogger)

	events <- platform.RawEvent{Kind: platform.EventKeyDown, Key: "a"}

	deadline := time.After(time.Second)
	for handle.ClickCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for clicks, got %d", handle.ClickCount())
		case <-time.After(2 * time.Millisecond):
		}
	}

	events <- platform.RawEvent{Kind: platform.EventKeyUp, Key: "a"}
	handle.Stop()

	for _, c := range injector.Calls() {
		if c.method == "down" && (c.x != 11 || c.y != 22) {
			t.Errorf("click at (%d,%d), want (11,22)", c.x, c.y)
		}
	}
}

func TestKeyClickSpaceStops(t *testing.T) {
	injector := &fakeInjector{}
	events := make(chan platform.RawEvent, 16)
	pos := func() (int, int) { return 0, 0 }

	ctx := context.Background()
	handle := StartKeyClickRunner(ctx, DefaultKeyClickConfig(), events, injector, pos, NopLogger)

	events <- platform.RawEvent{Kind: platform.EventKeyDown, Key: "space"}

	deadline := time.Now().Add(time.Second)
	for handle.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if handle.IsRunning() {
		t.Fatal("space key should have stopped the runner")
	}
}

func TestKeyClickRateIsGlobalNotPerKey(t *testing.T) {
	injector := &fakeInjector{}
	events := make(chan platform.RawEvent, 16)
	pos := func() (int, int) { return 1, 1 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handle := StartKeyClickRunner(ctx, KeyClickConfig{Interval: 50 * time.Millisecond}, events, injector, pos, NopLogger)

	events <- platform.RawEvent{Kind: platform.EventKeyDown, Key: "a"}
	events <- platform.RawEvent{Kind: platform.EventKeyDown, Key: "b"}

	time.Sleep(120 * time.Millisecond)
	handle.Stop()

	count := handle.ClickCount()
	if count > 3 {
		t.Errorf("ClickCount = %d, want the rate limit shared across held keys (at most ~2-3 in 120ms at 50ms interval)", count)
	}
}

func TestLastPositionTrackerObservesMoves(t *testing.T) {
	tracker := &LastPositionTracker{}
	tracker.Observe(platform.RawEvent{Kind: platform.EventMouseMove, X: 3, Y: 4})
	tracker.Observe(platform.RawEvent{Kind: platform.EventKeyDown, Key: "a"})

	x, y := tracker.Position()
	if x != 3 || y != 4 {
		t.Errorf("Position() = (%d,%d), want (3,4) (key events should not update it)", x, y)
	}
}
