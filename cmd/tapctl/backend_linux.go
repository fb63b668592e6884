//go:build linux

package main

import (
	"github.com/inputtap/tap/platform"
	"github.com/inputtap/tap/platform/x11"
)

func newNativeBackend() (platform.Backend, func() error, error) {
	conn, err := x11.Dial()
	if err != nil {
		return platform.Backend{}, nil, err
	}
	return conn.Backend(), conn.Close, nil
}
