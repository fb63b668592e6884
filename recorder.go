package tap

import (
	"sync"
	"time"

	"github.com/inputtap/tap/platform"
)

// RecorderConfig controls the recorder's noise reduction.
type RecorderConfig struct {
	// MoveSampleIntervalMs: mouse-move events arriving within this
	// window of the last recorded move are dropped.
	MoveSampleIntervalMs uint64
	RecordMouseMove      bool
	RecordScroll         bool
}

func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{MoveSampleIntervalMs: 50, RecordMouseMove: true, RecordScroll: true}
}

// RecorderState is the recorder's state machine: Idle -> Recording ->
// (Paused <-> Recording) -> Idle.
type RecorderState int

const (
	RecorderIdle RecorderState = iota
	RecorderRecording
	RecorderPaused
)

func (s RecorderState) String() string {
	switch s {
	case RecorderIdle:
		return "idle"
	case RecorderRecording:
		return "recording"
	case RecorderPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// RecorderEventKind discriminates RecorderEvent.
type RecorderEventKind int

const (
	RecorderStateChanged RecorderEventKind = iota
	RecorderEventCaptured
	RecorderCompleted
)

// RecorderEvent reports a recorder state transition or a completed
// recording. Only the fields relevant to Kind are populated.
type RecorderEvent struct {
	Kind RecorderEventKind

	OldState, NewState RecorderState

	EventCount uint64
	DurationMs uint64

	Timeline Timeline
}

type bufferedEvent struct {
	atMs   uint64
	action Action
}

// Recorder captures a stream of platform.RawEvent and converts it into a
// Timeline. It does not own a Hook itself — a caller feeds events in via
// PushEvent, whether sourced from a live platform.Hook or a test harness.
type Recorder struct {
	mu sync.Mutex

	config RecorderConfig
	state  RecorderState
	events []bufferedEvent

	startTime     time.Time
	pauseTime     time.Time
	totalPausedMs uint64
	lastMoveMs    uint64
	movedOnce     bool
	lastX, lastY  int

	log Logger
}

func NewRecorder(config RecorderConfig, log Logger) *Recorder {
	if log == nil {
		log = NopLogger
	}
	return &Recorder{config: config, log: log}
}

func NewRecorderWithDefaults() *Recorder {
	return NewRecorder(DefaultRecorderConfig(), NopLogger)
}

func (r *Recorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) EventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// DurationMs returns elapsed recording time, excluding time spent paused.
func (r *Recorder) DurationMs() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.durationMsLocked()
}

func (r *Recorder) durationMsLocked() uint64 {
	if r.startTime.IsZero() {
		return 0
	}
	elapsed := uint64(time.Since(r.startTime).Milliseconds())
	if elapsed < r.totalPausedMs {
		return 0
	}
	return elapsed - r.totalPausedMs
}

// Start transitions Idle -> Recording, clearing any previously buffered
// events. A no-op (returns false) outside Idle.
func (r *Recorder) Start() (RecorderEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RecorderIdle {
		return RecorderEvent{}, false
	}
	old := r.state
	r.state = RecorderRecording
	r.events = nil
	r.startTime = time.Now()
	r.pauseTime = time.Time{}
	r.totalPausedMs = 0
	r.lastMoveMs = 0
	r.movedOnce = false
	r.lastX, r.lastY = 0, 0
	r.log.Infof("recording started")
	return RecorderEvent{Kind: RecorderStateChanged, OldState: old, NewState: r.state}, true
}

// Pause transitions Recording -> Paused. A no-op outside Recording.
func (r *Recorder) Pause() (RecorderEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RecorderRecording {
		return RecorderEvent{}, false
	}
	old := r.state
	r.state = RecorderPaused
	r.pauseTime = time.Now()
	r.log.Infof("recording paused")
	return RecorderEvent{Kind: RecorderStateChanged, OldState: old, NewState: r.state}, true
}

// Resume transitions Paused -> Recording, folding the elapsed pause
// duration into the running total so later timestamps stay contiguous.
func (r *Recorder) Resume() (RecorderEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RecorderPaused {
		return RecorderEvent{}, false
	}
	if !r.pauseTime.IsZero() {
		r.totalPausedMs += uint64(time.Since(r.pauseTime).Milliseconds())
		r.pauseTime = time.Time{}
	}
	old := r.state
	r.state = RecorderRecording
	r.log.Infof("recording resumed")
	return RecorderEvent{Kind: RecorderStateChanged, OldState: old, NewState: r.state}, true
}

// Stop transitions to Idle and compiles the buffered events into a
// Timeline. A no-op outside Recording/Paused.
func (r *Recorder) Stop() (RecorderEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == RecorderIdle {
		return RecorderEvent{}, false
	}
	r.state = RecorderIdle
	timeline := r.compileLocked()
	r.log.Infof("recording stopped, captured %d actions", timeline.Len())
	return RecorderEvent{Kind: RecorderCompleted, Timeline: timeline}, true
}

// PushEvent converts one raw platform event into a buffered action,
// applying move-sample decimation and the 0,0-coordinate patch that
// substitutes the last known cursor position when a button event arrives
// without real coordinates (R1-R3). Returns false when idle, paused, or
// the event was filtered out.
func (r *Recorder) PushEvent(ev platform.RawEvent) (RecorderEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RecorderRecording {
		return RecorderEvent{}, false
	}

	atMs := r.adjustedTimestampLocked()

	switch ev.Kind {
	case platform.EventMouseMove:
		if !r.config.RecordMouseMove {
			r.lastX, r.lastY = ev.X, ev.Y
			return RecorderEvent{}, false
		}
		if r.movedOnce && atMs < r.lastMoveMs+r.config.MoveSampleIntervalMs {
			r.lastX, r.lastY = ev.X, ev.Y
			return RecorderEvent{}, false
		}
		r.lastMoveMs = atMs
		r.movedOnce = true
		r.lastX, r.lastY = ev.X, ev.Y
		r.buffer(atMs, Action{Kind: ActionMouseMove, X: ev.X, Y: ev.Y})

	case platform.EventMouseDown, platform.EventMouseUp:
		x, y := r.patchCoordsLocked(ev.X, ev.Y)
		kind := ActionMouseDown
		if ev.Kind == platform.EventMouseUp {
			kind = ActionMouseUp
		}
		r.buffer(atMs, Action{Kind: kind, X: x, Y: y, Button: toMouseButton(ev.Button)})

	case platform.EventMouseWheel:
		if !r.config.RecordScroll {
			return RecorderEvent{}, false
		}
		r.buffer(atMs, Action{Kind: ActionScroll, DX: ev.DX, DY: ev.DY})

	case platform.EventKeyDown:
		r.buffer(atMs, Action{Kind: ActionKeyDown, Key: ev.Key})

	case platform.EventKeyUp:
		r.buffer(atMs, Action{Kind: ActionKeyUp, Key: ev.Key})

	default:
		return RecorderEvent{}, false
	}

	return RecorderEvent{Kind: RecorderEventCaptured, EventCount: uint64(len(r.events)), DurationMs: r.durationMsLocked()}, true
}

func (r *Recorder) adjustedTimestampLocked() uint64 {
	raw := uint64(time.Since(r.startTime).Milliseconds())
	if raw < r.totalPausedMs {
		return 0
	}
	return raw - r.totalPausedMs
}

// patchCoordsLocked substitutes the last known mouse position when a
// button event reports (0,0), which platform hooks use to mean "no
// coordinate data" rather than a literal click at the origin.
func (r *Recorder) patchCoordsLocked(x, y int) (int, int) {
	if x == 0 && y == 0 {
		return r.lastX, r.lastY
	}
	return x, y
}

func (r *Recorder) buffer(atMs uint64, action Action) {
	r.events = append(r.events, bufferedEvent{atMs: atMs, action: action})
}

func (r *Recorder) LastMousePosition() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastX, r.lastY
}

func (r *Recorder) compileLocked() Timeline {
	actions := make([]TimedAction, 0, len(r.events))
	for _, be := range r.events {
		actions = append(actions, TimedAction{AtMs: be.atMs, Action: be.action, Enabled: true})
	}
	return NewTimeline(actions)
}

func toMouseButton(b platform.MouseButton) MouseButton {
	switch b {
	case platform.ButtonRight:
		return ButtonRight
	case platform.ButtonMiddle:
		return ButtonMiddle
	default:
		return ButtonLeft
	}
}
