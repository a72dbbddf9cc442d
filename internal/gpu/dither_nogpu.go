// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build nogpu

package gpu

import (
	"errors"
	"log/slog"
)

// ErrNotReady is returned by every operation of the stub engine.
var ErrNotReady = errors.New("gpu-dither: built without GPU support")

// DitherEngine is a stub used when building with -tags nogpu.
type DitherEngine struct{}

// NewDitherEngine returns the stub engine.
func NewDitherEngine() *DitherEngine { return &DitherEngine{} }

// Name returns the engine name.
func (e *DitherEngine) Name() string { return "gpu" }

// Adapter returns an empty name.
func (e *DitherEngine) Adapter() string { return "" }

// SetLogger routes this package's logging to l.
func (e *DitherEngine) SetLogger(l *slog.Logger) { setLogger(l) }

// Configure is a no-op.
func (e *DitherEngine) Configure(int, []float32, int) error { return nil }

// Init always fails.
func (e *DitherEngine) Init() error {
	slogger().Debug("gpu-dither: GPU support compiled out")
	return ErrNotReady
}

// Close is a no-op.
func (e *DitherEngine) Close() {}

// SetDeviceProvider always fails.
func (e *DitherEngine) SetDeviceProvider(any) error { return ErrNotReady }

// Dither always fails.
func (e *DitherEngine) Dither([]byte, uint32, uint32, uint32, uint32) error { return ErrNotReady }
