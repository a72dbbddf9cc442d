// Package perf measures how long a workload takes and reports throughput in
// megapixels per second.
package perf

import (
	"fmt"
	"strconv"
	"time"
)

// Clock reports elapsed time from an arbitrary fixed origin.
type Clock interface {
	Now() time.Duration
}

// MonotonicClock reads the runtime's monotonic clock.
type MonotonicClock struct {
	origin time.Time
}

// NewMonotonicClock returns a clock anchored at the current instant.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{origin: time.Now()}
}

// Now returns the monotonic time elapsed since the clock was created.
func (c *MonotonicClock) Now() time.Duration {
	return time.Since(c.origin)
}

// hasMonotonic reports whether the origin carries a monotonic reading.
// Times stripped with Round(0), or built from a wall-clock value, do not.
func (c *MonotonicClock) hasMonotonic() bool {
	return c.origin != c.origin.Round(0)
}

// WallClock reads wall-clock time at millisecond resolution. It is the
// fallback when no monotonic source is available.
type WallClock struct{}

// Now returns wall-clock time since the Unix epoch, truncated to milliseconds.
func (WallClock) Now() time.Duration {
	return time.Duration(time.Now().UnixMilli()) * time.Millisecond
}

// DefaultClock returns a monotonic clock, or a WallClock if the platform
// provides no monotonic reading.
func DefaultClock() Clock {
	c := NewMonotonicClock()
	if c.hasMonotonic() {
		return c
	}
	return WallClock{}
}

// Time runs fn and returns how long it took on clock.
func Time(clock Clock, fn func()) time.Duration {
	start := clock.Now()
	fn()
	return clock.Now() - start
}

// Sample is one throughput measurement.
type Sample struct {
	Label   string
	Pixels  uint64
	Elapsed time.Duration
}

// Seconds returns the elapsed time in seconds.
func (s Sample) Seconds() float64 {
	return s.Elapsed.Seconds()
}

// Megapixels returns the pixel count in millions.
func (s Sample) Megapixels() float64 {
	return float64(s.Pixels) / 1e6
}

// Throughput returns megapixels per second. A zero elapsed time yields +Inf
// (or NaN for zero pixels), as plain float division does.
func (s Sample) Throughput() float64 {
	return s.Megapixels() / s.Seconds()
}

// String formats the sample as "{label}: {seconds}s, {mp/s} megapixels/s"
// with seconds in shortest form and throughput to two decimals.
func (s Sample) String() string {
	return fmt.Sprintf("%s: %ss, %.2f megapixels/s",
		s.Label, strconv.FormatFloat(s.Seconds(), 'f', -1, 64), s.Throughput())
}

// MeasureMegapixels times fn on clock and returns the sample together with
// fn's error. The sample is filled in even when fn fails.
func MeasureMegapixels(label string, pixels uint64, clock Clock, fn func() error) (Sample, error) {
	if clock == nil {
		clock = DefaultClock()
	}
	var err error
	elapsed := Time(clock, func() { err = fn() })
	return Sample{Label: label, Pixels: pixels, Elapsed: elapsed}, err
}
