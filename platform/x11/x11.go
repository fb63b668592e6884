//go:build linux

// Package x11 backs the platform contracts on Linux using the X protocol
// (via jezek/xgb) for window probing and pixel sampling, and the kernel
// uinput/evdev device nodes (via golang.org/x/sys/unix) for global input
// capture and injection.
package x11

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"golang.org/x/sys/unix"

	"github.com/inputtap/tap/platform"
)

const (
	uinputPath = "/dev/uinput"
	evdevGlob  = "/dev/input/event*"
)

// Linux input-event-codes.h values relevant to mouse/keyboard injection.
// golang.org/x/sys/unix does not export these (they live in a kernel
// uapi header, not a syscall ABI), so they are mirrored here.
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03

	synReport = 0

	relX     = 0x00
	relY     = 0x01
	relWheel = 0x08

	absX = 0x00
	absY = 0x01

	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
)

// Conn wraps an X connection plus the uinput injector device, providing
// all four platform contracts for a Linux host.
type Conn struct {
	mu   sync.Mutex
	xc   *xgb.Conn
	root xproto.Window

	uinputFile *os.File
}

// Dial opens the X display and the uinput device. Callers without
// permission on /dev/uinput can still use the WindowProbe/PixelProbe
// halves; Injector calls then fail with platform.ErrUnsupported.
func Dial() (*Conn, error) {
	xc, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("x11: connect to X server: %w", err)
	}
	setup := xproto.Setup(xc)
	root := setup.DefaultScreen(xc).Root

	c := &Conn{xc: xc, root: root}
	// /dev/uinput registration (UI_SET_EVBIT / UI_DEV_CREATE ioctls) needs
	// root or the input group; callers lacking that can still use the
	// WindowProbe/PixelProbe halves, so a failed open here is not fatal.
	if f, err := os.OpenFile(uinputPath, os.O_WRONLY|unix.O_NONBLOCK, 0); err == nil {
		c.uinputFile = f
	}
	return c, nil
}

func (c *Conn) Backend() platform.Backend {
	return platform.Backend{Name: "x11", Hook: c, Injector: c, Windows: c, Pixels: c}
}

// Hook: a dedicated goroutine reads raw input_event structs off every
// /dev/input/eventN node and normalizes them onto the returned channel.

func (c *Conn) Start(ctx context.Context) (<-chan platform.RawEvent, error) {
	out := make(chan platform.RawEvent, 256)
	devices, err := openEvdevDevices()
	if err != nil {
		close(out)
		return out, fmt.Errorf("x11: open input devices: %w", err)
	}

	go func() {
		defer close(out)
		defer closeAll(devices)
		var wg sync.WaitGroup
		for _, dev := range devices {
			wg.Add(1)
			go func(f *os.File) {
				defer wg.Done()
				readEvdevLoop(ctx, f, out)
			}(dev)
		}
		wg.Wait()
	}()

	return out, nil
}

func (c *Conn) Stop() error { return nil }

func openEvdevDevices() ([]*os.File, error) {
	matches, err := filepathGlob(evdevGlob)
	if err != nil {
		return nil, err
	}
	var files []*os.File
	for _, path := range matches {
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no readable /dev/input/eventN nodes (need CAP_DAC_OVERRIDE or input group membership)")
	}
	return files, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

// inputEvent mirrors the kernel's struct input_event layout on 64-bit
// Linux (two 8-byte timeval fields, three uint16/uint32 fields).
type inputEvent struct {
	Sec, Usec int64
	Type      uint16
	Code      uint16
	Value     int32
}

const inputEventSize = 24

func readEvdevLoop(ctx context.Context, f *os.File, out chan<- platform.RawEvent) {
	buf := make([]byte, inputEventSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := f.Read(buf)
		if err != nil || n != inputEventSize {
			return
		}
		ev := decodeInputEvent(buf)
		if mapped, ok := translateEvdevEvent(ev); ok {
			select {
			case out <- mapped:
			default:
			}
		}
	}
}

// decodeInputEvent reads the trailing type(2)/code(2)/value(4) fields of
// a 24-byte struct input_event; the leading 16-byte timeval is unused.
func decodeInputEvent(buf []byte) inputEvent {
	le16 := func(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
	le32 := func(b []byte) uint32 {
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}
	return inputEvent{
		Type:  le16(buf[16:18]),
		Code:  le16(buf[18:20]),
		Value: int32(le32(buf[20:24])),
	}
}

func translateEvdevEvent(ev inputEvent) (platform.RawEvent, bool) {
	switch ev.Type {
	case evKey:
		key := evdevKeyName(ev.Code)
		if key == "" {
			return platform.RawEvent{}, false
		}
		switch ev.Value {
		case 1:
			return platform.RawEvent{Kind: platform.EventKeyDown, At: time.Now(), Key: key}, true
		case 0:
			return platform.RawEvent{Kind: platform.EventKeyUp, At: time.Now(), Key: key}, true
		}
	}
	return platform.RawEvent{}, false
}

// evdevKeyName maps a subset of linux/input-event-codes.h KEY_* values
// to the engine's key-name vocabulary. Unmapped codes are dropped.
func evdevKeyName(code uint16) string {
	switch code {
	case 28:
		return "enter"
	case 1:
		return "escape"
	case 57:
		return "space"
	case 15:
		return "tab"
	case 14:
		return "backspace"
	default:
		if code >= 16 && code <= 25 { // KEY_Q..KEY_P row, approximate
			return string(rune('a' + code - 16))
		}
		return ""
	}
}

// Injector: writes input_event structs to the uinput device. The kernel
// requires an explicit EV_SYN/SYN_REPORT after each logical event.

func (c *Conn) MouseMove(x, y int) error {
	return c.writeAbs(x, y)
}

func (c *Conn) MouseDown(button platform.MouseButton, x, y int) error {
	if err := c.writeAbs(x, y); err != nil {
		return err
	}
	return c.writeKey(buttonCode(button), 1)
}

func (c *Conn) MouseUp(button platform.MouseButton, x, y int) error {
	return c.writeKey(buttonCode(button), 0)
}

func (c *Conn) Scroll(dx, dy int) error {
	return c.writeRel(relWheel, dy)
}

func (c *Conn) KeyDown(key string) error { return c.writeKeyByName(key, 1) }
func (c *Conn) KeyUp(key string) error   { return c.writeKeyByName(key, 0) }

func (c *Conn) TextInput(text string) error {
	for _, r := range text {
		if code, ok := runeToEvdevCode(r); ok {
			if err := c.writeKey(code, 1); err != nil {
				return err
			}
			if err := c.writeKey(code, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uinputFile != nil {
		c.uinputFile.Close()
	}
	return c.xc.Close()
}

func (c *Conn) writeAbs(x, y int) error {
	if err := c.writeRaw(evAbs, absX, int32(x)); err != nil {
		return err
	}
	if err := c.writeRaw(evAbs, absY, int32(y)); err != nil {
		return err
	}
	return c.writeSyn()
}

func (c *Conn) writeRel(code uint16, value int) error {
	if err := c.writeRaw(evRel, code, int32(value)); err != nil {
		return err
	}
	return c.writeSyn()
}

func (c *Conn) writeKey(code uint16, value int32) error {
	if err := c.writeRaw(evKey, code, value); err != nil {
		return err
	}
	return c.writeSyn()
}

func (c *Conn) writeKeyByName(name string, value int32) error {
	code, ok := keyNameToEvdevCode(name)
	if !ok {
		return fmt.Errorf("x11: unknown key %q", name)
	}
	return c.writeKey(code, value)
}

func (c *Conn) writeRaw(evType, code uint16, value int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uinputFile == nil {
		return platform.ErrUnsupported
	}
	buf := encodeInputEvent(evType, code, value)
	_, err := c.uinputFile.Write(buf)
	return err
}

func (c *Conn) writeSyn() error {
	return c.writeRaw(evSyn, synReport, 0)
}

func encodeInputEvent(evType, code uint16, value int32) []byte {
	buf := make([]byte, inputEventSize)
	putLE16(buf[16:18], evType)
	putLE16(buf[18:20], code)
	putLE32(buf[20:24], uint32(value))
	return buf
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func buttonCode(b platform.MouseButton) uint16 {
	switch b {
	case platform.ButtonRight:
		return btnRight
	case platform.ButtonMiddle:
		return btnMiddle
	default:
		return btnLeft
	}
}

func keyNameToEvdevCode(name string) (uint16, bool) {
	switch name {
	case "enter":
		return 28, true
	case "escape":
		return 1, true
	case "space":
		return 57, true
	case "tab":
		return 15, true
	case "backspace":
		return 14, true
	}
	if len(name) == 1 && name[0] >= 'a' && name[0] <= 'z' {
		return 16 + uint16(name[0]-'a'), true
	}
	return 0, false
}

func runeToEvdevCode(r rune) (uint16, bool) {
	if r >= 'a' && r <= 'z' {
		return 16 + uint16(r-'a'), true
	}
	if r >= 'A' && r <= 'Z' {
		return 16 + uint16(r-'A'), true
	}
	return 0, false
}

// WindowProbe.

func (c *Conn) Foreground() (platform.WindowInfo, error) {
	reply, err := xproto.GetInputFocus(c.xc).Reply()
	if err != nil {
		return platform.WindowInfo{}, fmt.Errorf("x11: get input focus: %w", err)
	}
	return c.windowInfo(reply.Focus)
}

// List enumerates the root window's direct children, which on every
// common window manager are the top-level application windows.
// Windows that never set a title (override-redirect popups, docks)
// are skipped.
func (c *Conn) List() ([]platform.WindowInfo, error) {
	tree, err := xproto.QueryTree(c.xc, c.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("x11: query tree: %w", err)
	}
	var windows []platform.WindowInfo
	for _, w := range tree.Children {
		info, err := c.windowInfo(w)
		if err != nil || info.Title == "" {
			continue
		}
		windows = append(windows, info)
	}
	return windows, nil
}

func (c *Conn) Focused(titleContains, processContains string) (bool, error) {
	info, err := c.Foreground()
	if err != nil {
		return false, err
	}
	return info.Exists && platform.MatchesWindow(info, titleContains, processContains), nil
}

func (c *Conn) Exists(titleContains, processContains string) (bool, error) {
	windows, err := c.List()
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

func (c *Conn) windowInfo(w xproto.Window) (platform.WindowInfo, error) {
	title, err := c.windowTitle(w)
	if err != nil {
		return platform.WindowInfo{Exists: true}, nil
	}
	process, _ := c.windowClass(w)
	return platform.WindowInfo{Title: title, Process: process, Exists: true}, nil
}

func (c *Conn) windowTitle(w xproto.Window) (string, error) {
	atom, err := xproto.InternAtom(c.xc, true, uint16(len("_NET_WM_NAME")), "_NET_WM_NAME").Reply()
	if err != nil {
		return "", err
	}
	reply, err := xproto.GetProperty(c.xc, false, w, atom.Atom, xproto.GetPropertyTypeAny, 0, 1024).Reply()
	if err != nil {
		return "", err
	}
	return string(reply.Value), nil
}

// windowClass reads WM_CLASS, which the ICCCM defines as two
// NUL-terminated strings: the instance name and the class name. The
// class name (e.g. "firefox", "Gimp") is the closer analogue of a
// process identifier for matching purposes.
func (c *Conn) windowClass(w xproto.Window) (string, error) {
	atom, err := xproto.InternAtom(c.xc, true, uint16(len("WM_CLASS")), "WM_CLASS").Reply()
	if err != nil {
		return "", err
	}
	reply, err := xproto.GetProperty(c.xc, false, w, atom.Atom, xproto.GetPropertyTypeAny, 0, 1024).Reply()
	if err != nil {
		return "", err
	}
	parts := bytes.Split(reply.Value, []byte{0})
	if len(parts) < 2 {
		return "", nil
	}
	return string(parts[1]), nil
}

// PixelProbe: samples the root window via GetImage.

func (c *Conn) PixelAt(x, y int) (platform.Color, error) {
	reply, err := xproto.GetImage(
		c.xc, xproto.ImageFormatZPixmap, xproto.Drawable(c.root),
		int16(x), int16(y), 1, 1, 0xffffffff,
	).Reply()
	if err != nil {
		return platform.Color{}, fmt.Errorf("x11: get image: %w", err)
	}
	if len(reply.Data) < 3 {
		return platform.Color{}, fmt.Errorf("x11: short pixel reply")
	}
	// BGRx on most common depths.
	return platform.Color{R: reply.Data[2], G: reply.Data[1], B: reply.Data[0]}, nil
}

func filepathGlob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}
