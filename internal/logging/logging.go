// Package logging wires a single zap.Logger for the whole process;
// subsystems take a Named() child so log lines carry their origin.
package logging

import "go.uber.org/zap"

// New builds the process logger. debug widens the level to Debug;
// otherwise the logger runs at Info.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "ts"
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// Nop returns a logger that discards everything, for tests.
func Nop() *zap.Logger {
	return zap.NewNop()
}
