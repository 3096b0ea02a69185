// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package diag provides the tool's single diagnostic logger and its single
// fatal-exit path.
package diag

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the tool's single diagnostic logger. It writes to stderr so that
// the traced child's own stdout/stderr pass through untouched.
var Log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
	})
	return l
}

// SetVerbosity raises Log's level by n steps beyond its default of Warn,
// matching the "-v" repeat-to-increase semantics of the command line.
func SetVerbosity(n int) {
	levels := []logrus.Level{logrus.WarnLevel, logrus.InfoLevel, logrus.DebugLevel, logrus.TraceLevel}
	if n < 0 {
		n = 0
	}
	if n >= len(levels) {
		n = len(levels) - 1
	}
	Log.SetLevel(levels[n])
}

// Fatalf logs a single diagnostic line at Error level and terminates the
// process. It serves the errors raised where no error can be returned: a
// keystream construction failure and a full descriptor set. Setup and
// trace-protocol errors are returned to cli.Main instead, which logs them
// and exits with status 1.
func Fatalf(format string, args ...any) {
	Log.Errorf(format, args...)
	os.Exit(1)
}
