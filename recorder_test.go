package tap

import (
	"testing"
	"time"

	"github.com/inputtap/tap/platform"
)

func TestRecorderStartStopLifecycle(t *testing.T) {
	r := NewRecorderWithDefaults()
	if _, ok := r.Start(); !ok {
		t.Fatal("Start from Idle should succeed")
	}
	if r.State() != RecorderRecording {
		t.Fatalf("State = %v, want Recording", r.State())
	}
	if _, ok := r.Start(); ok {
		t.Fatal("Start while already recording should be a no-op")
	}
	result, ok := r.Stop()
	if !ok {
		t.Fatal("Stop while recording should succeed")
	}
	if r.State() != RecorderIdle {
		t.Fatalf("State after Stop = %v, want Idle", r.State())
	}
	if result.Kind != RecorderCompleted {
		t.Errorf("Stop event kind = %v, want RecorderCompleted", result.Kind)
	}
}

func TestRecorderStopOutsideRecordingIsNoOp(t *testing.T) {
	r := NewRecorderWithDefaults()
	if _, ok := r.Stop(); ok {
		t.Fatal("Stop from Idle should be a no-op")
	}
}

func TestRecorderPushEventCapturesClick(t *testing.T) {
	r := NewRecorderWithDefaults()
	r.Start()
	r.PushEvent(platform.RawEvent{Kind: platform.EventMouseDown, X: 10, Y: 20, Button: platform.ButtonLeft})
	r.PushEvent(platform.RawEvent{Kind: platform.EventMouseUp, X: 10, Y: 20, Button: platform.ButtonLeft})

	result, _ := r.Stop()
	if result.Timeline.Len() != 2 {
		t.Fatalf("Timeline.Len() = %d, want 2", result.Timeline.Len())
	}
	if result.Timeline.Actions[0].Action.Kind != ActionMouseDown {
		t.Errorf("first action kind = %v, want MouseDown", result.Timeline.Actions[0].Action.Kind)
	}
}

func TestRecorderPushEventIgnoredWhenIdle(t *testing.T) {
	r := NewRecorderWithDefaults()
	_, ok := r.PushEvent(platform.RawEvent{Kind: platform.EventMouseDown, X: 1, Y: 1})
	if ok {
		t.Fatal("PushEvent before Start should be ignored")
	}
}

func TestRecorderPushEventIgnoredWhenPaused(t *testing.T) {
	r := NewRecorderWithDefaults()
	r.Start()
	r.Pause()
	_, ok := r.PushEvent(platform.RawEvent{Kind: platform.EventMouseDown, X: 1, Y: 1})
	if ok {
		t.Fatal("PushEvent while paused should be ignored")
	}
}

func TestRecorderMoveSampleDecimation(t *testing.T) {
	config := DefaultRecorderConfig()
	config.MoveSampleIntervalMs = 10_000
	r := NewRecorder(config, NopLogger)
	r.Start()

	r.PushEvent(platform.RawEvent{Kind: platform.EventMouseMove, X: 1, Y: 1})
	r.PushEvent(platform.RawEvent{Kind: platform.EventMouseMove, X: 2, Y: 2})
	r.PushEvent(platform.RawEvent{Kind: platform.EventMouseMove, X: 3, Y: 3})

	if got := r.EventCount(); got != 1 {
		t.Fatalf("EventCount = %d, want 1 (later moves should be decimated within the sample window)", got)
	}
}

func TestRecorderZeroCoordinatePatch(t *testing.T) {
	r := NewRecorderWithDefaults()
	r.Start()
	r.PushEvent(platform.RawEvent{Kind: platform.EventMouseMove, X: 50, Y: 60})
	r.PushEvent(platform.RawEvent{Kind: platform.EventMouseDown, X: 0, Y: 0, Button: platform.ButtonLeft})

	result, _ := r.Stop()
	down := result.Timeline.Actions[len(result.Timeline.Actions)-1].Action
	if down.X != 50 || down.Y != 60 {
		t.Errorf("patched coords = (%d,%d), want (50,60) from the last move", down.X, down.Y)
	}
}

func TestRecorderPauseResumeExcludesPausedTime(t *testing.T) {
	r := NewRecorderWithDefaults()
	r.Start()
	time.Sleep(10 * time.Millisecond)
	r.Pause()
	time.Sleep(30 * time.Millisecond)
	r.Resume()
	time.Sleep(10 * time.Millisecond)

	duration := r.DurationMs()
	if duration >= 35 {
		t.Errorf("DurationMs = %d, want it to roughly exclude the 30ms pause", duration)
	}
}

func TestRecorderScrollDisabledByConfig(t *testing.T) {
	config := DefaultRecorderConfig()
	config.RecordScroll = false
	r := NewRecorder(config, NopLogger)
	r.Start()
	r.PushEvent(platform.RawEvent{Kind: platform.EventMouseWheel, DX: 1, DY: 1})
	if got := r.EventCount(); got != 0 {
		t.Errorf("EventCount = %d, want 0 with scroll recording disabled", got)
	}
}
