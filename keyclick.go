package tap

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/inputtap/tap/platform"
)

// KeyClickConfig controls the key-to-click tool mode: pressing any A-Z
// key clicks at the current cursor position, repeating at Interval while
// held; Space stops the mode.
type KeyClickConfig struct {
	Interval time.Duration
}

func DefaultKeyClickConfig() KeyClickConfig {
	return KeyClickConfig{Interval: 50 * time.Millisecond}
}

// KeyClickEventKind discriminates KeyClickEvent.
type KeyClickEventKind int

const (
	KeyClickStarted KeyClickEventKind = iota
	KeyClickClicked
	KeyClickStopped
)

type KeyClickEvent struct {
	Kind        KeyClickEventKind
	Count       uint64
	X, Y        int
	TotalClicks uint64
}

// MousePositionFunc reports the current cursor position, typically
// backed by the last move seen on the platform hook.
type MousePositionFunc func() (int, int)

// KeyClickHandle controls and observes a running key-click runner.
type KeyClickHandle struct {
	cancel     context.CancelFunc
	events     chan KeyClickEvent
	running    int32
	clickCount uint64
	done       chan struct{}
}

func (h *KeyClickHandle) IsRunning() bool { return atomic.LoadInt32(&h.running) != 0 }

func (h *KeyClickHandle) ClickCount() uint64 { return atomic.LoadUint64(&h.clickCount) }

// Drain returns every event queued since the last Drain call.
func (h *KeyClickHandle) Drain() []KeyClickEvent {
	var out []KeyClickEvent
	for {
		select {
		case ev := <-h.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (h *KeyClickHandle) Status() (running bool, clickCount uint64) {
	return h.IsRunning(), h.ClickCount()
}

// Stop signals the runner to exit and waits for it to finish.
func (h *KeyClickHandle) Stop() {
	h.cancel()
	<-h.done
}

// StartKeyClickRunner launches the key-click tool mode on its own
// goroutine, reading events from hookEvents until ctx is canceled, Space
// is pressed, or Stop is called.
func StartKeyClickRunner(ctx context.Context, config KeyClickConfig, hookEvents <-chan platform.RawEvent, injector platform.Injector, mousePos MousePositionFunc, log Logger) *KeyClickHandle {
	if log == nil {
		log = NopLogger
	}
	runCtx, cancel := context.WithCancel(ctx)
	h := &KeyClickHandle{
		cancel:  cancel,
		events:  make(chan KeyClickEvent, 256),
		running: 1,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		runKeyClickLoop(runCtx, config, hookEvents, injector, mousePos, log, h)
	}()

	return h
}

func runKeyClickLoop(ctx context.Context, config KeyClickConfig, hookEvents <-chan platform.RawEvent, injector platform.Injector, mousePos MousePositionFunc, log Logger, h *KeyClickHandle) {
	log.Infof("key-click runner started")
	h.events <- KeyClickEvent{Kind: KeyClickStarted}

	keysHeld := make(map[string]struct{})
	lastClick := time.Now()

	finish := func() {
		atomic.StoreInt32(&h.running, 0)
		total := atomic.LoadUint64(&h.clickCount)
		h.events <- KeyClickEvent{Kind: KeyClickStopped, TotalClicks: total}
		log.Infof("key-click runner exited, total clicks: %d", total)
	}

	for {
		select {
		case <-ctx.Done():
			finish()
			return
		case ev, ok := <-hookEvents:
			if !ok {
				finish()
				return
			}
			switch ev.Kind {
			case platform.EventKeyDown:
				if ev.Key == "space" || ev.Key == "Space" {
					log.Infof("key-click runner stopped by space key")
					finish()
					return
				}
				if isAZKey(ev.Key) {
					keysHeld[ev.Key] = struct{}{}
				}
			case platform.EventKeyUp:
				if isAZKey(ev.Key) {
					delete(keysHeld, ev.Key)
				}
			}
		default:
		}

		if len(keysHeld) > 0 && time.Since(lastClick) >= config.Interval {
			x, y := mousePos()
			action := Action{Kind: ActionClick, X: x, Y: y, Button: ButtonLeft}
			if err := injectClick(injector, action); err != nil {
				log.Warnf("failed to inject click: %v", err)
			} else {
				count := atomic.AddUint64(&h.clickCount, 1)
				h.events <- KeyClickEvent{Kind: KeyClickClicked, Count: count, X: x, Y: y}
			}
			lastClick = time.Now()
		}

		time.Sleep(5 * time.Millisecond)
	}
}

func injectClick(injector platform.Injector, a Action) error {
	if err := injector.MouseDown(toPlatformButton(a.Button), a.X, a.Y); err != nil {
		return err
	}
	return injector.MouseUp(toPlatformButton(a.Button), a.X, a.Y)
}

func isAZKey(key string) bool {
	if len(key) != 1 {
		return false
	}
	c := key[0]
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// LastPositionTracker derives a MousePositionFunc from a raw event
// stream by recording the most recent MouseMove, for callers that don't
// already track cursor position elsewhere.
type LastPositionTracker struct {
	mu   sync.Mutex
	x, y int
}

func (t *LastPositionTracker) Observe(ev platform.RawEvent) {
	if ev.Kind != platform.EventMouseMove {
		return
	}
	t.mu.Lock()
	t.x, t.y = ev.X, ev.Y
	t.mu.Unlock()
}

func (t *LastPositionTracker) Position() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.x, t.y
}
