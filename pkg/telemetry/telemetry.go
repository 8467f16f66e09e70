// Package telemetry defines the narrow capability interfaces the store uses
// for logging and stats, plus ready-made implementations: a zap-backed
// logger, a Prometheus-backed stats recorder, and no-op stubs for tests.
package telemetry

import (
	"time"

	"go.uber.org/zap"
)

// Logger is the logging capability consumed by the store. Implementations
// must be safe for concurrent use.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string, err error)
}

// StatsRecorder is the stats capability consumed by the store.
// Implementations must be safe for concurrent use.
type StatsRecorder interface {
	RecordCounterIncrement(tags map[string]string, name string)
	RecordTimer(tags map[string]string, name string, value time.Duration)
	RecordGauge(tags map[string]string, name string, value float64)
}

// Secret wraps a sensitive string so it cannot leak through formatting.
type Secret string

// String always returns a redacted marker.
func (s Secret) String() string { return "[REDACTED]" }

// GoString always returns a redacted marker, covering %#v formatting.
func (s Secret) GoString() string { return "[REDACTED]" }

// Reveal returns the underlying value. Call sites should be rare and obvious.
func (s Secret) Reveal() string { return string(s) }

type zapLogger struct {
	l *zap.Logger
}

// NewZapLogger adapts a zap.Logger to the Logger capability.
func NewZapLogger(l *zap.Logger) Logger {
	return &zapLogger{l: l}
}

func (z *zapLogger) Debug(msg string) { z.l.Debug(msg) }
func (z *zapLogger) Info(msg string)  { z.l.Info(msg) }
func (z *zapLogger) Warn(msg string)  { z.l.Warn(msg) }
func (z *zapLogger) Error(msg string, err error) {
	if err != nil {
		z.l.Error(msg, zap.Error(err))
		return
	}
	z.l.Error(msg)
}

type nopLogger struct{}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string)        {}
func (nopLogger) Info(string)         {}
func (nopLogger) Warn(string)         {}
func (nopLogger) Error(string, error) {}

// StatsRecorderStub discards all recordings.
type StatsRecorderStub struct{}

func (StatsRecorderStub) RecordCounterIncrement(map[string]string, string)     {}
func (StatsRecorderStub) RecordTimer(map[string]string, string, time.Duration) {}
func (StatsRecorderStub) RecordGauge(map[string]string, string, float64)       {}
