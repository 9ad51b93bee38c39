/*
Copyright 2022 The Dapr Authors
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

import "context"

// NewNopLogger returns a Logger that discards everything. Components take
// this as their default when no Logger is supplied via options.
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) EnableJSONOutput(_ bool)      {}
func (nopLogger) SetAppID(_ string)            {}
func (nopLogger) SetOutputLevel(_ LogLevel)    {}
func (nopLogger) WithLogType(_ string) Logger  { return nopLogger{} }

func (nopLogger) Info(_ ...interface{})                                        {}
func (nopLogger) Infof(_ string, _ ...interface{})                             {}
func (nopLogger) InfoWithContext(_ context.Context, _ ...interface{})          {}
func (nopLogger) InfoWithContextf(_ context.Context, _ string, _ ...interface{}) {}

func (nopLogger) Debug(_ ...interface{})                                        {}
func (nopLogger) Debugf(_ string, _ ...interface{})                             {}
func (nopLogger) DebugWithContext(_ context.Context, _ ...interface{})          {}
func (nopLogger) DebugWithContextf(_ context.Context, _ string, _ ...interface{}) {}

func (nopLogger) Warn(_ ...interface{})                                        {}
func (nopLogger) Warnf(_ string, _ ...interface{})                             {}
func (nopLogger) WarnWithContext(_ context.Context, _ ...interface{})          {}
func (nopLogger) WarnWithContextf(_ context.Context, _ string, _ ...interface{}) {}

func (nopLogger) Error(_ ...interface{})                                        {}
func (nopLogger) Errorf(_ string, _ ...interface{})                             {}
func (nopLogger) ErrorWithContext(_ context.Context, _ ...interface{})          {}
func (nopLogger) ErrorWithContextf(_ context.Context, _ string, _ ...interface{}) {}

func (nopLogger) Fatal(_ ...interface{})            {}
func (nopLogger) Fatalf(_ string, _ ...interface{}) {}
