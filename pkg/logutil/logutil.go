// Copyright 2025 EmberDB Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	// Level is one of debug|info|warn|error|panic|fatal
	Level string `toml:"level"`
	// Filename enables file output with rotation when non-empty
	Filename   string `toml:"filename"`
	MaxSize    int    `toml:"max-size"`
	MaxDays    int    `toml:"max-days"`
	MaxBackups int    `toml:"max-backups"`
}

var (
	logger *zap.Logger
	sugar  *zap.SugaredLogger
)

func init() {
	SetupLogger(&LogConfig{Level: "info"})
}

func SetupLogger(cfg *LogConfig) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level = zapcore.InfoLevel
		}
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var sink zapcore.WriteSyncer
	if cfg.Filename != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxDays,
			MaxBackups: cfg.MaxBackups,
		})
	} else {
		sink = zapcore.AddSync(os.Stderr)
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, level)
	logger = zap.New(core, zap.AddStacktrace(zapcore.FatalLevel))
	sugar = logger.Sugar()
}

func GetGlobalLogger() *zap.Logger { return logger }

func Debug(msg string, fields ...zap.Field) { logger.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { logger.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { logger.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { logger.Error(msg, fields...) }

func Debugf(msg string, args ...any) { sugar.Debugf(msg, args...) }
func Infof(msg string, args ...any)  { sugar.Infof(msg, args...) }
func Warnf(msg string, args ...any)  { sugar.Warnf(msg, args...) }
func Errorf(msg string, args ...any) { sugar.Errorf(msg, args...) }
func Panicf(msg string, args ...any) { sugar.Panicf(msg, args...) }
