//go:build !linux

// Package unsupported is the fallback platform backend for any OS this
// module has no native backend for (Windows, macOS). Every call fails
// with platform.ErrUnsupported. The original implementation took the
// same position on macOS for parts of its input path by delegating
// entirely to a third-party crate rather than hand-rolling CGEventTap;
// here the honest move is to say so rather than fake a backend with no
// real OS binding.
package unsupported

import (
	"context"

	"github.com/inputtap/tap/platform"
)

type Backend struct{}

func New() *Backend { return &Backend{} }

func (b *Backend) AsBackend() platform.Backend {
	return platform.Backend{Name: "unsupported", Hook: b, Injector: b, Windows: b, Pixels: b}
}

func (b *Backend) Start(ctx context.Context) (<-chan platform.RawEvent, error) {
	return nil, platform.ErrUnsupported
}
func (b *Backend) Stop() error { return platform.ErrUnsupported }

func (b *Backend) MouseMove(x, y int) error                             { return platform.ErrUnsupported }
func (b *Backend) MouseDown(button platform.MouseButton, x, y int) error { return platform.ErrUnsupported }
func (b *Backend) MouseUp(button platform.MouseButton, x, y int) error   { return platform.ErrUnsupported }
func (b *Backend) Scroll(dx, dy int) error                              { return platform.ErrUnsupported }
func (b *Backend) KeyDown(key string) error                             { return platform.ErrUnsupported }
func (b *Backend) KeyUp(key string) error                               { return platform.ErrUnsupported }
func (b *Backend) TextInput(text string) error                          { return platform.ErrUnsupported }
func (b *Backend) Close() error                                         { return nil }

func (b *Backend) Foreground() (platform.WindowInfo, error) {
	return platform.WindowInfo{}, platform.ErrUnsupported
}
func (b *Backend) List() ([]platform.WindowInfo, error) {
	return nil, platform.ErrUnsupported
}
func (b *Backend) Focused(titleContains, processContains string) (bool, error) {
	return false, platform.ErrUnsupported
}
func (b *Backend) Exists(titleContains, processContains string) (bool, error) {
	return false, platform.ErrUnsupported
}

func (b *Backend) PixelAt(x, y int) (platform.Color, error) {
	return platform.Color{}, platform.ErrUnsupported
}
