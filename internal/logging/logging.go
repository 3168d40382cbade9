// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the structured logger used across the pipeline:
// a console core for interactive use plus, when configured, a rotated JSON
// file recording compile sessions for later inspection.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pdiddy/writeup-engine/pkg/types"
)

// New constructs a logger from cfg. An unknown level falls back to info
// rather than failing: logging must never block the pipeline.
func New(cfg types.LoggingConfig) *zap.Logger {
	cfg = cfg.WithDefaults()

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}
	if cfg.File != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			fileWriter,
			level,
		)
		cores = append(cores, fileCore)
	}

	return zap.New(zapcore.NewTee(cores...))
}
