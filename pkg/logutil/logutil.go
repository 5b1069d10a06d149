// Copyright 2024 Matrix Origin
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
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	_globalLogger atomic.Value
	_globalConfig atomic.Value
)

func init() {
	SetupLogger(&LogConfig{
		Level:  zapcore.InfoLevel.String(),
		Format: "console",
	})
}

// SetupLogger replaces the global logger with one built from conf.
func SetupLogger(conf *LogConfig) {
	logger := initLogger(conf)
	replaceGlobalLogger(logger)
	_globalConfig.Store(*conf)
}

func initLogger(conf *LogConfig) *zap.Logger {
	level := conf.getLevel()
	opts := conf.getOptions()
	sinks := conf.getSinks()

	cores := make([]zapcore.Core, 0, len(sinks))
	for _, sink := range sinks {
		cores = append(cores, zapcore.NewCore(sink.enc, sink.out, level))
	}
	return zap.New(zapcore.NewTee(cores...), opts...)
}

func replaceGlobalLogger(logger *zap.Logger) {
	_globalLogger.Store(logger)
}

// GetGlobalLogger returns the current global zap logger.
func GetGlobalLogger() *zap.Logger {
	return _globalLogger.Load().(*zap.Logger)
}

func getGlobalLogConfig() LogConfig {
	return _globalConfig.Load().(LogConfig)
}

// GetSkip1Logger skips this package's frame when reporting the caller.
func GetSkip1Logger() *zap.Logger {
	return GetGlobalLogger().WithOptions(zap.AddCallerSkip(1))
}

func Debug(msg string, fields ...zap.Field) {
	GetSkip1Logger().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	GetSkip1Logger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetSkip1Logger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetSkip1Logger().Error(msg, fields...)
}

func Panic(msg string, fields ...zap.Field) {
	GetSkip1Logger().Panic(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	GetSkip1Logger().Fatal(msg, fields...)
}

// Debugf only use in develop mode
func Debugf(msg string, fields ...interface{}) {
	GetSkip1Logger().Sugar().Debugf(msg, fields...)
}

// Infof only use in develop mode
func Infof(msg string, fields ...interface{}) {
	GetSkip1Logger().Sugar().Infof(msg, fields...)
}

// Warnf only use in develop mode
func Warnf(msg string, fields ...interface{}) {
	GetSkip1Logger().Sugar().Warnf(msg, fields...)
}

// Errorf only use in develop mode
func Errorf(msg string, fields ...interface{}) {
	GetSkip1Logger().WithOptions(zap.AddStacktrace(zap.ErrorLevel)).Sugar().Errorf(msg, fields...)
}
