// Package logging provides the module's structured logger, built on zap.
//
// The level and encoder come from the environment (SHMTASK_LOG_LEVEL,
// SHMTASK_LOG_DEV); the default is warn-and-above so the library stays quiet
// inside host programs.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/parproc/shmtask/internal/config"
)

var (
	once   sync.Once
	logger *zap.Logger
)

// L returns the process-wide logger, building it on first use.
func L() *zap.Logger {
	once.Do(func() {
		logger = build(config.Get())
	})
	return logger
}

// Named returns a child logger for one subsystem.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

func build(cfg config.Config) *zap.Logger {
	level := zapcore.WarnLevel
	if parsed, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		level = parsed
	}

	var zcfg zap.Config
	if cfg.LogDev {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	l, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("shmtask")
}
