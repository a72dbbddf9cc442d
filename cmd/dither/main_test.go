package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/dither"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in, out, want string
	}{
		{"photo.jpg", "", "photo-dithered.png"},
		{"dir/scan.tiff", "", "dir/scan-dithered.png"},
		{"noext", "", "noext-dithered.png"},
		{"a.png", "b.png", "b.png"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.in, tt.out); got != tt.want {
			t.Errorf("outputPath(%q, %q) = %q, want %q", tt.in, tt.out, got, tt.want)
		}
	}
}

func TestNoGPU(t *testing.T) {
	tests := []struct {
		value string
		set   bool
		want  bool
	}{
		{"", false, false},
		{"", true, false},
		{"1", true, true},
		{"true", true, true},
		{"0", true, false},
		{"false", true, false},
		{"yes", true, true},
	}
	for _, tt := range tests {
		if tt.set {
			t.Setenv("DITHER_NO_GPU", tt.value)
		} else {
			os.Unsetenv("DITHER_NO_GPU")
		}
		if got := noGPU(); got != tt.want {
			t.Errorf("noGPU() with %q (set=%v) = %v, want %v", tt.value, tt.set, got, tt.want)
		}
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	img := image.NewNRGBA(image.Rect(0, 0, 40, 10))
	for x := 0; x < 40; x++ {
		for y := 0; y < 10; y++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 6), G: 128, B: 30, A: 255}) //nolint:gosec // < 256
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(in, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "out.png")
	if err := run(in, out, 20, dither.EngineCPU, []dither.Option{dither.WithMatrixSize(2)}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := got.Bounds(); b.Dx() != 20 || b.Dy() != 5 {
		t.Errorf("output size = %dx%d, want 20x5", b.Dx(), b.Dy())
	}
}

func TestRunRejectsText(t *testing.T) {
	in := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(in, []byte("plain text"), 0o600); err != nil {
		t.Fatal(err)
	}
	err := run(in, in+".png", 0, dither.EngineCPU, nil)
	if err == nil || !strings.Contains(err.Error(), "rather than an image") {
		t.Errorf("run() error = %v, want not-an-image message", err)
	}
}
