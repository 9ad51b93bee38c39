/*
Copyright 2021 The Dapr Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logger is the structured logging façade used throughout
// spiffekit. Every long-lived component (workloadapi.Client,
// x509source.Source, jwtsource.Source) takes a Logger in its options,
// defaulting to a no-op implementation when none is supplied.
package logger

import (
	"context"
	"sync"
)

// LogLevel is the level of logging used by a Logger.
type LogLevel string

const (
	// DebugLevel has the most verbose logging level.
	DebugLevel LogLevel = "debug"
	// InfoLevel is the default logging level.
	InfoLevel LogLevel = "info"
	// WarnLevel is used for recoverable conditions.
	WarnLevel LogLevel = "warn"
	// ErrorLevel is used for terminal failures within a component.
	ErrorLevel LogLevel = "error"
	// FatalLevel logs and then exits the process.
	FatalLevel LogLevel = "fatal"
	// UndefinedLevel is returned by toLogLevel when the input does not
	// name one of the levels above.
	UndefinedLevel LogLevel = "undefined"
)

const (
	// LogTypeLog is the default log_type field value.
	LogTypeLog = "log"

	logFieldScope    = "scope"
	logFieldType     = "type"
	logFieldInstance = "instance"
	logFieldAppID    = "app_id"
	logFieldLevel    = "level"
	logFieldMessage  = "msg"
	logFieldTimeStamp = "time"

	defaultTraceEnabled = false
)

// Logger is the logging facade every spiffekit component is handed. An
// implementation is safe for concurrent use.
type Logger interface {
	// EnableJSONOutput enables JSON formatted log output.
	EnableJSONOutput(enabled bool)

	// SetAppID sets the app_id field attached to every log entry.
	SetAppID(id string)

	// SetOutputLevel sets the minimum level that will be logged.
	SetOutputLevel(outputLevel LogLevel)

	// WithLogType returns a copy of the logger tagged with the given
	// log_type field. The default value is LogTypeLog.
	WithLogType(logType string) Logger

	Info(args ...interface{})
	Infof(format string, args ...interface{})
	InfoWithContext(ctx context.Context, args ...interface{})
	InfoWithContextf(ctx context.Context, format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	DebugWithContext(ctx context.Context, args ...interface{})
	DebugWithContextf(ctx context.Context, format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	WarnWithContext(ctx context.Context, args ...interface{})
	WarnWithContextf(ctx context.Context, format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	ErrorWithContext(ctx context.Context, args ...interface{})
	ErrorWithContextf(ctx context.Context, format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

var (
	loggersMu      sync.Mutex
	globalLoggers  = map[string]Logger{}
	defaultOpLogger = NewLogger("spiffekit.default")
)

// NewLogger returns a named Logger, creating and registering one on
// first use. Subsequent calls with the same name return the same
// instance, so that Options applied via ApplyOptionsToLoggers reach
// every previously vended Logger.
func NewLogger(name string) Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := globalLoggers[name]; ok {
		return l
	}
	l := newDaprLogger(name)
	globalLoggers[name] = l
	return l
}

func getLoggers() map[string]Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	out := make(map[string]Logger, len(globalLoggers))
	for k, v := range globalLoggers {
		out[k] = v
	}
	return out
}

func toLogLevel(level string) LogLevel {
	switch LogLevel(level) {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel, FatalLevel:
		return LogLevel(level)
	default:
		return UndefinedLevel
	}
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying logger. A nil logger is
// stored as the package default.
func NewContext(ctx context.Context, logger Logger) context.Context {
	if logger == nil {
		logger = defaultOpLogger
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContextOrDefault returns the Logger stored in ctx by NewContext,
// or the package default logger if none was stored.
func FromContextOrDefault(ctx context.Context) Logger {
	if l, ok := ctx.Value(contextKey{}).(Logger); ok && l != nil {
		return l
	}
	return defaultOpLogger
}
