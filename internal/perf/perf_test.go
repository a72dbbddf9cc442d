package perf

import (
	"errors"
	"math"
	"testing"
	"time"
)

// fakeClock advances by step on every reading.
type fakeClock struct {
	now  time.Duration
	step time.Duration
}

func (c *fakeClock) Now() time.Duration {
	t := c.now
	c.now += c.step
	return t
}

func TestSampleThroughput(t *testing.T) {
	s := Sample{Label: "x", Pixels: 1000 * 1000, Elapsed: 500 * time.Millisecond}
	if got := s.Throughput(); got != 2 {
		t.Errorf("Throughput() = %v, want 2", got)
	}
}

func TestSampleString(t *testing.T) {
	tests := []struct {
		name string
		s    Sample
		want string
	}{
		{
			name: "one megapixel in half a second",
			s:    Sample{Label: "Ordered dithering performance", Pixels: 1000 * 1000, Elapsed: 500 * time.Millisecond},
			want: "Ordered dithering performance: 0.5s, 2.00 megapixels/s",
		},
		{
			name: "rounded throughput",
			s:    Sample{Label: "run", Pixels: 1024 * 512, Elapsed: 3 * time.Millisecond},
			want: "run: 0.003s, 174.76 megapixels/s",
		},
		{
			name: "zero elapsed",
			s:    Sample{Label: "fast", Pixels: 10},
			want: "fast: 0s, +Inf megapixels/s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSampleZeroElapsed(t *testing.T) {
	s := Sample{Pixels: 1}
	if got := s.Throughput(); !math.IsInf(got, 1) {
		t.Errorf("Throughput() = %v, want +Inf", got)
	}
}

func TestTime(t *testing.T) {
	clock := &fakeClock{now: time.Second, step: 250 * time.Millisecond}
	called := false
	got := Time(clock, func() { called = true })
	if !called {
		t.Error("Time() did not run the workload")
	}
	if got != 250*time.Millisecond {
		t.Errorf("Time() = %v, want 250ms", got)
	}
}

func TestMeasureMegapixels(t *testing.T) {
	clock := &fakeClock{step: 500 * time.Millisecond}
	s, err := MeasureMegapixels("m", 1000*1000, clock, func() error { return nil })
	if err != nil {
		t.Fatalf("MeasureMegapixels() error = %v", err)
	}
	if s.Label != "m" || s.Pixels != 1000*1000 || s.Elapsed != 500*time.Millisecond {
		t.Errorf("MeasureMegapixels() = %+v", s)
	}
	if got := s.String(); got != "m: 0.5s, 2.00 megapixels/s" {
		t.Errorf("String() = %q", got)
	}
}

func TestMeasureMegapixelsKeepsError(t *testing.T) {
	boom := errors.New("boom")
	s, err := MeasureMegapixels("m", 1, &fakeClock{step: time.Millisecond}, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("MeasureMegapixels() error = %v, want %v", err, boom)
	}
	if s.Elapsed != time.Millisecond {
		t.Errorf("Elapsed = %v, want 1ms", s.Elapsed)
	}
}

func TestDefaultClockIsMonotonic(t *testing.T) {
	c := DefaultClock()
	if _, ok := c.(*MonotonicClock); !ok {
		t.Fatalf("DefaultClock() = %T, want *MonotonicClock", c)
	}
	a := c.Now()
	b := c.Now()
	if b < a {
		t.Errorf("clock went backwards: %v then %v", a, b)
	}
}

func TestWallClock(t *testing.T) {
	got := WallClock{}.Now()
	if got%time.Millisecond != 0 {
		t.Errorf("WallClock.Now() = %v, want millisecond resolution", got)
	}
	if got <= 0 {
		t.Errorf("WallClock.Now() = %v, want positive", got)
	}
}
