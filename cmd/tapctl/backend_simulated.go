//go:build !headless

package main

import (
	"context"

	"github.com/inputtap/tap/platform"
	"github.com/inputtap/tap/platform/simulated"
)

func newSimulatedBackend(ctx context.Context, title string) (platform.Backend, func() error, error) {
	desktop := simulated.NewDesktop(title)
	if _, err := desktop.Start(ctx); err != nil {
		return platform.Backend{}, nil, err
	}
	return desktop.Backend(), desktop.Stop, nil
}
