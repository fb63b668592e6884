//go:build !linux

package unsupported

import (
	"context"
	"errors"
	"testing"

	"github.com/inputtap/tap/platform"
)

func TestBackendEveryOperationIsUnsupported(t *testing.T) {
	b := New()

	if _, err := b.Start(context.Background()); !errors.Is(err, platform.ErrUnsupported) {
		t.Errorf("Start: err = %v, want ErrUnsupported", err)
	}
	if err := b.MouseMove(1, 1); !errors.Is(err, platform.ErrUnsupported) {
		t.Errorf("MouseMove: err = %v, want ErrUnsupported", err)
	}
	if err := b.MouseDown(platform.ButtonLeft, 1, 1); !errors.Is(err, platform.ErrUnsupported) {
		t.Errorf("MouseDown: err = %v, want ErrUnsupported", err)
	}
	if err := b.KeyDown("a"); !errors.Is(err, platform.ErrUnsupported) {
		t.Errorf("KeyDown: err = %v, want ErrUnsupported", err)
	}
	if _, err := b.Foreground(); !errors.Is(err, platform.ErrUnsupported) {
		t.Errorf("Foreground: err = %v, want ErrUnsupported", err)
	}
	if _, err := b.List(); !errors.Is(err, platform.ErrUnsupported) {
		t.Errorf("List: err = %v, want ErrUnsupported", err)
	}
	if _, err := b.Focused("", ""); !errors.Is(err, platform.ErrUnsupported) {
		t.Errorf("Focused: err = %v, want ErrUnsupported", err)
	}
	if _, err := b.Exists("", ""); !errors.Is(err, platform.ErrUnsupported) {
		t.Errorf("Exists: err = %v, want ErrUnsupported", err)
	}
	if _, err := b.PixelAt(0, 0); !errors.Is(err, platform.ErrUnsupported) {
		t.Errorf("PixelAt: err = %v, want ErrUnsupported", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close should succeed even though nothing was opened: %v", err)
	}
}

func TestBackendAsBackendWiresAllFourRoles(t *testing.T) {
	backend := New().AsBackend()
	if backend.Name != "unsupported" {
		t.Errorf("Name = %q, want unsupported", backend.Name)
	}
	if backend.Hook == nil || backend.Injector == nil || backend.Windows == nil || backend.Pixels == nil {
		t.Error("AsBackend should populate every role with the same backend value")
	}
}
