//go:build !headless

// Package simulated backs the platform contracts with an Ebiten window:
// a self-contained virtual desktop useful for demos, tests, and any host
// that would rather not touch real OS input APIs. Hook events come from
// keys/clicks on the Ebiten window; Injector calls move and paint a
// drawn cursor but emit no RawEvents, so a recorder pointed at this
// backend sees only real input on the window.
package simulated

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"

	"github.com/inputtap/tap/platform"
)

const (
	defaultWidth  = 800
	defaultHeight = 600
	cursorSize    = 6
	pasteMaxBytes = 4096

	// simulatedProcess is the process name this backend reports for its
	// one and only window; there is no real OS process boundary to probe.
	simulatedProcess = "tapctl-simulated"
)

// Desktop is a single simulated platform instance. It implements
// platform.Hook, platform.Injector, platform.WindowProbe, and
// platform.PixelProbe all at once, since the virtual desktop owns all
// four concerns itself.
type Desktop struct {
	mu sync.RWMutex

	width, height int
	frame         []byte // RGBA, width*height*4
	cursorX       int
	cursorY       int
	title         string
	focused       bool

	running bool
	events  chan platform.RawEvent
	cancel  context.CancelFunc

	clipboardOnce sync.Once
	clipboardOK   bool
}

// NewDesktop constructs an unstarted simulated desktop. Call Start to
// open the Ebiten window and begin delivering events.
func NewDesktop(title string) *Desktop {
	return &Desktop{
		width:  defaultWidth,
		height: defaultHeight,
		frame:  make([]byte, defaultWidth*defaultHeight*4),
		title:  title,
	}
}

// Backend wraps d in a platform.Backend bundle.
func (d *Desktop) Backend() platform.Backend {
	return platform.Backend{
		Name:     "simulated",
		Hook:     d,
		Injector: d,
		Windows:  d,
		Pixels:   d,
	}
}

func (d *Desktop) Start(ctx context.Context) (<-chan platform.RawEvent, error) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return d.events, nil
	}
	d.events = make(chan platform.RawEvent, 256)
	d.running = true
	d.focused = true
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	ebiten.SetWindowSize(d.width, d.height)
	ebiten.SetWindowTitle(d.title)
	ebiten.SetRunnableOnUnfocused(true)

	go func() {
		if err := ebiten.RunGame(&gameAdapter{d: d}); err != nil {
			d.Stop()
		}
	}()

	go func() {
		<-runCtx.Done()
		d.Stop()
	}()

	return d.events, nil
}

func (d *Desktop) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	d.running = false
	if d.cancel != nil {
		d.cancel()
	}
	close(d.events)
	return nil
}

func (d *Desktop) emit(ev platform.RawEvent) {
	d.mu.RLock()
	running := d.running
	ch := d.events
	d.mu.RUnlock()
	if !running {
		return
	}
	select {
	case ch <- ev:
	default:
		// Drop-oldest: make room, then retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// gameAdapter bridges Ebiten's callback shape to Desktop's methods
// without exposing ebiten.Game on Desktop itself.
type gameAdapter struct {
	d *Desktop
}

func (g *gameAdapter) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	g.d.pollInput()
	return nil
}

func (g *gameAdapter) Draw(screen *ebiten.Image) {
	g.d.mu.RLock()
	rgba := &image.RGBA{
		Pix:    append([]byte(nil), g.d.frame...),
		Stride: g.d.width * 4,
		Rect:   image.Rect(0, 0, g.d.width, g.d.height),
	}
	g.d.mu.RUnlock()
	img := ebiten.NewImageFromImage(rgba)
	screen.DrawImage(img, nil)
}

func (g *gameAdapter) Layout(_, _ int) (int, int) {
	g.d.mu.RLock()
	defer g.d.mu.RUnlock()
	return g.d.width, g.d.height
}

func (d *Desktop) pollInput() {
	mx, my := ebiten.CursorPosition()

	for _, button := range []struct {
		eb  ebiten.MouseButton
		btn platform.MouseButton
	}{
		{ebiten.MouseButtonLeft, platform.ButtonLeft},
		{ebiten.MouseButtonRight, platform.ButtonRight},
		{ebiten.MouseButtonMiddle, platform.ButtonMiddle},
	} {
		if inpututil.IsMouseButtonJustPressed(button.eb) {
			d.emit(platform.RawEvent{Kind: platform.EventMouseDown, At: time.Now(), X: mx, Y: my, Button: button.btn})
		}
		if inpututil.IsMouseButtonJustReleased(button.eb) {
			d.emit(platform.RawEvent{Kind: platform.EventMouseUp, At: time.Now(), X: mx, Y: my, Button: button.btn})
		}
	}

	d.mu.Lock()
	moved := mx != d.cursorX || my != d.cursorY
	d.cursorX, d.cursorY = mx, my
	d.mu.Unlock()
	if moved {
		d.emit(platform.RawEvent{Kind: platform.EventMouseMove, At: time.Now(), X: mx, Y: my})
	}

	if _, dy := ebiten.Wheel(); dy != 0 {
		d.emit(platform.RawEvent{Kind: platform.EventMouseWheel, At: time.Now(), DY: int(dy)})
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		d.handleClipboardPaste()
	}

	for _, key := range ebiten.AppendPressedKeys(nil) {
		if inpututil.IsKeyJustPressed(key) {
			d.emit(platform.RawEvent{Kind: platform.EventKeyDown, At: time.Now(), Key: key.String()})
		}
	}
	for _, key := range inpututil.AppendJustReleasedKeys(nil) {
		d.emit(platform.RawEvent{Kind: platform.EventKeyUp, At: time.Now(), Key: key.String()})
	}
}

func (d *Desktop) handleClipboardPaste() {
	d.clipboardOnce.Do(func() {
		d.clipboardOK = clipboard.Init() == nil
	})
	if !d.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return
	}
	if len(data) > pasteMaxBytes {
		data = data[:pasteMaxBytes]
	}
	d.emit(platform.RawEvent{Kind: platform.EventKeyDown, At: time.Now(), Key: string(data)})
}

// Injector implementation. Mouse/key calls move the virtual cursor and
// paint the frame buffer; a recorder listening on Start's channel will
// not see these unless the desktop also loops them back, which it does
// not by default to avoid feedback loops during recorder-over-player
// testing.

func (d *Desktop) MouseMove(x, y int) error {
	d.mu.Lock()
	d.cursorX, d.cursorY = x, y
	d.paintCursorLocked()
	d.mu.Unlock()
	return nil
}

func (d *Desktop) MouseDown(button platform.MouseButton, x, y int) error {
	return d.MouseMove(x, y)
}

func (d *Desktop) MouseUp(button platform.MouseButton, x, y int) error {
	return d.MouseMove(x, y)
}

func (d *Desktop) Scroll(dx, dy int) error { return nil }

func (d *Desktop) KeyDown(key string) error { return nil }
func (d *Desktop) KeyUp(key string) error   { return nil }
func (d *Desktop) TextInput(text string) error { return nil }

func (d *Desktop) Close() error { return d.Stop() }

func (d *Desktop) paintCursorLocked() {
	for dy := -cursorSize / 2; dy <= cursorSize/2; dy++ {
		for dx := -cursorSize / 2; dx <= cursorSize/2; dx++ {
			px, py := d.cursorX+dx, d.cursorY+dy
			if px < 0 || py < 0 || px >= d.width || py >= d.height {
				continue
			}
			off := (py*d.width + px) * 4
			d.frame[off], d.frame[off+1], d.frame[off+2], d.frame[off+3] = 255, 255, 255, 255
		}
	}
}

// WindowProbe implementation: the simulated desktop is always its own
// single foreground window.

func (d *Desktop) Foreground() (platform.WindowInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return platform.WindowInfo{Title: d.title, Process: simulatedProcess, Exists: d.running}, nil
}

// List returns the single simulated window, or none while unstarted.
func (d *Desktop) List() ([]platform.WindowInfo, error) {
	info, err := d.Foreground()
	if err != nil {
		return nil, err
	}
	if !info.Exists {
		return nil, nil
	}
	return []platform.WindowInfo{info}, nil
}

func (d *Desktop) Focused(titleContains, processContains string) (bool, error) {
	info, err := d.Foreground()
	if err != nil {
		return false, err
	}
	return info.Exists && platform.MatchesWindow(info, titleContains, processContains), nil
}

func (d *Desktop) Exists(titleContains, processContains string) (bool, error) {
	windows, err := d.List()
	if err != nil {
		return false, err
	}
	for _, w := range windows {
		if platform.MatchesWindow(w, titleContains, processContains) {
			return true, nil
		}
	}
	return false, nil
}

// PixelProbe implementation.

func (d *Desktop) PixelAt(x, y int) (platform.Color, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return platform.Color{}, fmt.Errorf("pixel (%d,%d) out of bounds", x, y)
	}
	off := (y*d.width + x) * 4
	return platform.Color{R: d.frame[off], G: d.frame[off+1], B: d.frame[off+2]}, nil
}
