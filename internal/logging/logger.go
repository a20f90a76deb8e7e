// Package logging builds the zap loggers shared by the crawler processes.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root zap.Logger. Development mode gets colored console
// output; production mode gets JSON with sampling disabled, since worker
// pools emit correlated bursts and sampled-away lines hide retry storms.
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Component returns a child logger tagged with the owning subsystem, so one
// process's pipeline, store and api lines stay separable.
func Component(logger *zap.Logger, name string) *zap.Logger {
	return logger.Named(name)
}
