package dither

import (
	"errors"
	"fmt"

	"github.com/gogpu/dither/internal/loader"
)

// Sentinel errors. Every error returned by a Processor wraps exactly one.
var (
	// ErrInitialization means the requested engine could not be loaded.
	ErrInitialization = errors.New("capability unsupported")

	// ErrCapacityGrowth means the arena could not grow to fit the image.
	// The engine was not invoked.
	ErrCapacityGrowth = errors.New("dither: arena capacity growth failed")

	// ErrInvalidInput means the input is not a usable image.
	ErrInvalidInput = errors.New("dither: invalid input")

	// ErrIO means the input could not be opened or read. The cause, such as
	// fs.ErrNotExist, stays in the chain.
	ErrIO = errors.New("dither: read failed")

	// ErrPrecondition means the engine rejected the call contract.
	// Only reported when checked mode is on.
	ErrPrecondition = errors.New("dither: precondition violated")

	// ErrEngine means the engine failed while dithering.
	ErrEngine = errors.New("dither: engine failed")

	// ErrBusy means another image is being processed.
	ErrBusy = errors.New("dither: processor busy")
)

// Kind classifies an Error.
type Kind uint8

const (
	KindInitialization Kind = iota + 1
	KindCapacityGrowth
	KindInvalidInput
	KindPrecondition
	KindEngine
	KindBusy
	KindIO
)

var kindSentinels = map[Kind]error{
	KindInitialization: ErrInitialization,
	KindCapacityGrowth: ErrCapacityGrowth,
	KindInvalidInput:   ErrInvalidInput,
	KindPrecondition:   ErrPrecondition,
	KindEngine:         ErrEngine,
	KindBusy:           ErrBusy,
	KindIO:             ErrIO,
}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInitialization:
		return "InitializationFailure"
	case KindCapacityGrowth:
		return "CapacityGrowthFailure"
	case KindInvalidInput:
		return "InvalidInput"
	case KindPrecondition:
		return "PreconditionViolation"
	case KindEngine:
		return "EngineFailure"
	case KindBusy:
		return "Busy"
	case KindIO:
		return "IOFailure"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Error is the error type returned by Processor methods.
//
// errors.Is(err, ErrX) matches the sentinel for Kind as well as anything in
// the Err chain.
type Error struct {
	Kind Kind

	// Name identifies the image or engine involved, if any.
	Name string

	// Err is the underlying cause. May be nil.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInitialization:
		// The user-facing message stays generic.
		return ErrInitialization.Error()
	case KindInvalidInput:
		// Names the file and its detected type.
		var nie *loader.NotImageError
		if errors.As(e.Err, &nie) {
			return nie.Error()
		}
	}
	msg := kindSentinels[e.Kind]
	if msg == nil {
		msg = errors.New("dither: error")
	}
	switch {
	case e.Name != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", msg, e.Name, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	case e.Name != "":
		return fmt.Sprintf("%s: %s", msg, e.Name)
	default:
		return msg.Error()
	}
}

// Unwrap returns the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := kindSentinels[e.Kind]; s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(kind Kind, name string, err error) *Error {
	return &Error{Kind: kind, Name: name, Err: err}
}
