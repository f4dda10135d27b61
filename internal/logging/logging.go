// Package logging constructs the zap.Logger used across the crawler.
//
// Worker loops (§7 Propagation policy) log the failing URL, the error,
// and the worker identifier as structured fields (the error kind is
// counted in internal/metrics, not logged), and deliberately never
// attach a captured error's stack trace to a field that could retain a
// reference to a fetch response body. Building a logging helper that
// snapshots caller locals is the exact hazard the Design Notes call
// out — this package never does that.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger for the given level name ("debug", "info",
// "warn", "error"). Production builds get JSON output; a TTY running
// at debug level gets a human-readable console encoder.
func New(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if zapLevel == zapcore.DebugLevel && isTerminal(os.Stdout) {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapLevel)
	return zap.New(core), nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
