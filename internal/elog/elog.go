// Package elog wires elfscope's structured logging: a fan-out handler,
// built with slog-multi, that writes human-readable text to stderr and
// (optionally) JSON to a second sink, mirroring the dual-handler idiom
// the teacher's go.mod declares a dependency for but never wires up.
package elog

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Option configures the logger built by New.
type Option func(*options)

type options struct {
	jsonSink io.Writer
	level    slog.Level
}

// WithJSONSink adds a second handler emitting JSON-encoded records to w,
// fanned out alongside the default text handler.
func WithJSONSink(w io.Writer) Option {
	return func(o *options) { o.jsonSink = w }
}

// WithLevel sets the minimum level for both handlers. Default is Info.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// New builds a *slog.Logger writing human-readable text to stderr, and
// additionally JSON to the configured sink when WithJSONSink is given.
func New(opts ...Option) *slog.Logger {
	o := options{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(&o)
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: o.level}),
	}
	if o.jsonSink != nil {
		handlers = append(handlers, slog.NewJSONHandler(o.jsonSink, &slog.HandlerOptions{Level: o.level}))
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

// DecodeFailure logs a per-function decode error downgrade: the
// analysis continues with whatever instructions decoded successfully
// before the failure.
func DecodeFailure(logger *slog.Logger, function string, address uint64, arch string, err error) {
	logger.Warn("instruction decode failed, truncating function body",
		slog.String("function", function),
		slog.String("address", "0x"+hex(address)),
		slog.String("architecture", arch),
		slog.Any("error", err),
	)
}

// StackAnalysisFailure logs a per-function stack-analysis error; the
// caller reduces that function's local frame to zero and continues.
func StackAnalysisFailure(logger *slog.Logger, function string, address uint64, arch string, err error) {
	logger.Warn("stack analysis failed, local frame reset to zero",
		slog.String("function", function),
		slog.String("address", "0x"+hex(address)),
		slog.String("architecture", arch),
		slog.Any("error", err),
	)
}

func hex(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}
