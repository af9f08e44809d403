// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package logging builds the structured logger every component writes
// through: ISO-8601 UTC timestamps, leveled, rolling file appender
// with 10 MiB rotation and immediate deletion of old segments
// (spec.md §7).
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const rotateMaxSizeMiB = 10

// New builds a zap.Logger writing to path. The returned function must
// be called once at shutdown to flush buffered log entries.
func New(path string) (*zap.Logger, func(), error) {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotateMaxSizeMiB,
		MaxBackups: 1, // lumberjack treats 0 as "keep all backups forever"; 1 discards the old segment as soon as the next rotation completes
		Compress:   false,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = utcISO8601

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(rotator),
		zap.InfoLevel,
	)
	logger := zap.New(core, zap.AddCaller())

	return logger, func() { _ = logger.Sync() }, nil
}

// utcISO8601 forces timestamps to UTC before encoding — zap's built-in
// ISO8601TimeEncoder uses the time.Time's own location, and log
// timestamps must be directly comparable across hosts in different
// timezones.
func utcISO8601(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	zapcore.ISO8601TimeEncoder(t.UTC(), enc)
}
