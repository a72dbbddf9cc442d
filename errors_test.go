package dither

import (
	"errors"
	"testing"

	"github.com/gogpu/dither/internal/loader"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"initialization hides cause", newError(KindInitialization, "gpu", cause), "capability unsupported"},
		{"not an image", newError(KindInvalidInput, "a.txt",
			&loader.NotImageError{Name: "a.txt", Type: "text/plain"}), "a.txt appears to be of type text/plain rather than an image"},
		{"growth", newError(KindCapacityGrowth, "big.png", cause), "dither: arena capacity growth failed: big.png: boom"},
		{"busy", newError(KindBusy, "", nil), "dither: processor busy"},
		{"name only", newError(KindBusy, "x.png", nil), "dither: processor busy: x.png"},
		{"cause only", newError(KindEngine, "", cause), "dither: engine failed: boom"},
		{"read failure", newError(KindIO, "a.png", cause), "dither: read failed: a.png: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	cause := errors.New("boom")
	err := error(newError(KindPrecondition, "p", cause))
	if !errors.Is(err, ErrPrecondition) {
		t.Error("errors.Is(err, ErrPrecondition) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if errors.Is(err, ErrEngine) {
		t.Error("errors.Is(err, ErrEngine) = true")
	}
}

func TestKindString(t *testing.T) {
	if got := KindCapacityGrowth.String(); got != "CapacityGrowthFailure" {
		t.Errorf("String() = %q", got)
	}
	if got := KindIO.String(); got != "IOFailure" {
		t.Errorf("String() = %q", got)
	}
	if got := Kind(42).String(); got != "Kind(42)" {
		t.Errorf("String() = %q", got)
	}
}
