package dither

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// discard drops every record. Enabled is false, so the per-image Debug
// records cost one atomic load when logging is off.
type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (discard) WithAttrs([]slog.Attr) slog.Handler        { return discard{} }
func (discard) WithGroup(string) slog.Handler             { return discard{} }

func quietLogger() *slog.Logger { return slog.New(discard{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(quietLogger())
}

// SetLogger routes the processor's and the engines' records to l.
// Nothing is logged by default; nil restores that. The logger is also handed
// to every registered engine that accepts one.
//
// SetLogger is safe for concurrent use.
//
// Records and their attributes:
//
//	Info  "dither: processor ready"        engine, matrix, levels, pages
//	Info  "dither: engine registered"      engine
//	Info  "dither: arena grown"            pages (added), total_pages
//	Warn  "dither: arena growth failed"    image, err
//	Warn  "dither: GPU engine not available, falling back to CPU"
//	Debug "dither: image placed"           image, layout
//	Debug "dither: image done"             image, elapsed, mpx_per_s
//
// The GPU engine adds "gpu-dither: engine initialized" (adapter) and
// "gpu-dither: shader compiled" (spirv_words).
//
// The CLI enables Debug with -v:
//
//	dither.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = quietLogger()
	}
	loggerPtr.Store(l)

	for _, e := range registeredEngines() {
		propagateLogger(e, l)
	}
}

// Logger returns the logger set with SetLogger. The gpu package logs
// through it.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by engines that log.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(e Engine, l *slog.Logger) {
	if ls, ok := e.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
