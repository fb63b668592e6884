//go:build headless

package main

import (
	"context"
	"fmt"

	"github.com/inputtap/tap/platform"
)

func newSimulatedBackend(ctx context.Context, title string) (platform.Backend, func() error, error) {
	return platform.Backend{}, nil, fmt.Errorf("tapctl: built with -tags headless, the simulated backend is unavailable")
}
