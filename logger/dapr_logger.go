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

package logger

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// daprLogger is the logrus-backed Logger implementation.
type daprLogger struct {
	name   string
	logger *logrus.Entry
}

func newDaprLogger(name string) *daprLogger {
	newLogger := logrus.New()
	newLogger.SetOutput(os.Stdout)

	dl := &daprLogger{
		name: name,
		logger: newLogger.WithFields(logrus.Fields{
			logFieldScope: name,
			logFieldType:  LogTypeLog,
		}),
	}

	dl.EnableJSONOutput(defaultJSONOutput)

	return dl
}

// EnableJSONOutput enables JSON formatted output log.
func (l *daprLogger) EnableJSONOutput(enabled bool) {
	var formatter logrus.Formatter

	fieldMap := logrus.FieldMap{
		logrus.FieldKeyTime:  logFieldTimeStamp,
		logrus.FieldKeyLevel: logFieldLevel,
		logrus.FieldKeyMsg:   logFieldMessage,
	}

	hostname, _ := os.Hostname()
	l.logger.Data = logrus.Fields{
		logFieldScope:    l.logger.Data[logFieldScope],
		logFieldType:     LogTypeLog,
		logFieldInstance: hostname,
	}

	if enabled {
		formatter = &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap:        fieldMap,
		}
	} else {
		formatter = &logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap:        fieldMap,
		}
	}

	l.logger.Logger.SetFormatter(formatter)
}

// SetAppID sets the app_id field in the log. Default value is empty string.
func (l *daprLogger) SetAppID(id string) {
	l.logger = l.logger.WithField(logFieldAppID, id)
}

func toLogrusLevel(lvl LogLevel) logrus.Level {
	// Only called with values that have passed toLogLevel.
	l, _ := logrus.ParseLevel(string(lvl))
	return l
}

// SetOutputLevel sets log output level.
func (l *daprLogger) SetOutputLevel(outputLevel LogLevel) {
	l.logger.Logger.SetLevel(toLogrusLevel(outputLevel))
}

// WithLogType specify the log_type field in log. Default value is LogTypeLog.
func (l *daprLogger) WithLogType(logType string) Logger {
	return &daprLogger{
		name:   l.name,
		logger: l.logger.WithField(logFieldType, logType),
	}
}

func (l *daprLogger) Info(args ...interface{}) { l.print(nil, logrus.InfoLevel, args...) }

func (l *daprLogger) Infof(format string, args ...interface{}) {
	l.printf(nil, logrus.InfoLevel, format, args...)
}

func (l *daprLogger) InfoWithContext(ctx context.Context, args ...interface{}) {
	l.print(ctx, logrus.InfoLevel, args...)
}

func (l *daprLogger) InfoWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.printf(ctx, logrus.InfoLevel, format, args...)
}

func (l *daprLogger) Debug(args ...interface{}) { l.print(nil, logrus.DebugLevel, args...) }

func (l *daprLogger) Debugf(format string, args ...interface{}) {
	l.printf(nil, logrus.DebugLevel, format, args...)
}

func (l *daprLogger) DebugWithContext(ctx context.Context, args ...interface{}) {
	l.print(ctx, logrus.DebugLevel, args...)
}

func (l *daprLogger) DebugWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.printf(ctx, logrus.DebugLevel, format, args...)
}

func (l *daprLogger) Warn(args ...interface{}) { l.print(nil, logrus.WarnLevel, args...) }

func (l *daprLogger) Warnf(format string, args ...interface{}) {
	l.printf(nil, logrus.WarnLevel, format, args...)
}

func (l *daprLogger) WarnWithContext(ctx context.Context, args ...interface{}) {
	l.print(ctx, logrus.WarnLevel, args...)
}

func (l *daprLogger) WarnWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.printf(ctx, logrus.WarnLevel, format, args...)
}

func (l *daprLogger) Error(args ...interface{}) { l.print(nil, logrus.ErrorLevel, args...) }

func (l *daprLogger) Errorf(format string, args ...interface{}) {
	l.printf(nil, logrus.ErrorLevel, format, args...)
}

func (l *daprLogger) ErrorWithContext(ctx context.Context, args ...interface{}) {
	l.print(ctx, logrus.ErrorLevel, args...)
}

func (l *daprLogger) ErrorWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.printf(ctx, logrus.ErrorLevel, format, args...)
}

func (l *daprLogger) Fatal(args ...interface{}) { l.print(nil, logrus.FatalLevel, args...) }

func (l *daprLogger) Fatalf(format string, args ...interface{}) {
	l.printf(nil, logrus.FatalLevel, format, args...)
}

func (l *daprLogger) print(_ context.Context, level logrus.Level, args ...interface{}) {
	l.logger.Log(level, args...)
}

func (l *daprLogger) printf(_ context.Context, level logrus.Level, format string, args ...interface{}) {
	l.logger.Logf(level, format, args...)
}
