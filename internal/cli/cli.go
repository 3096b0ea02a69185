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

// Package cli wires the command's flags, secret acquisition, child launch
// and interception engine into the single top-level action runsc/cli's
// Main would otherwise dispatch to a subcommand.
package cli

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/talismancer/seedtrace/internal/config"
	"github.com/talismancer/seedtrace/internal/diag"
	"github.com/talismancer/seedtrace/internal/keystream"
	"github.com/talismancer/seedtrace/internal/launcher"
	"github.com/talismancer/seedtrace/internal/secret"
	"github.com/talismancer/seedtrace/internal/tracer"
)

// Main runs the tool end to end and returns the process exit code. It
// never itself calls os.Exit, so it stays testable.
func Main(args []string) int {
	c, err := config.Parse(args)
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			return 0
		}
		diag.Log.Errorf("%v", err)
		return 1
	}
	diag.SetVerbosity(c.Verbosity)

	passphrase, err := acquirePassphrase(c)
	if err != nil {
		diag.Log.Errorf("%v", err)
		return 1
	}

	key := secret.DeriveKey(passphrase)
	ks := keystream.New(key)

	var fakePID *int
	if c.HasFakePID {
		fakePID = &c.FakePID
	}

	// ptrace is thread-affined: the thread that attaches must be the one
	// that waits on and resumes the child for its entire lifetime.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	proc, err := launcher.Launch(c.Command, c.CommandArgs)
	if err != nil {
		diag.Log.Errorf("%v", err)
		return 1
	}
	defer proc.Close()

	code, err := tracer.New(ks, fakePID).Run(proc.Pid)
	if err != nil {
		diag.Log.Errorf("%v", err)
		return 1
	}
	return code
}

func acquirePassphrase(c *config.Config) (string, error) {
	if c.KeyFile != "" {
		p, err := secret.FromFile(c.KeyFile)
		if err != nil {
			return "", fmt.Errorf("cli: %w", err)
		}
		return p, nil
	}
	p, err := secret.Prompt(c.Repeat)
	if err != nil {
		return "", fmt.Errorf("cli: %w", err)
	}
	return p, nil
}
