//go:build !linux

package main

import (
	"github.com/inputtap/tap/platform"
	"github.com/inputtap/tap/platform/unsupported"
)

func newNativeBackend() (platform.Backend, func() error, error) {
	b := unsupported.New()
	return b.AsBackend(), func() error { return nil }, nil
}
