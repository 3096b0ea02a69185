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

//go:build linux

// Package launcher starts the target command as a traced child: it
// requests PTRACE_TRACEME before the image switch, so the child is already
// stopped at the far side of its first exec by the time Launch returns.
package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/talismancer/seedtrace/internal/diag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Process is a launched, traced child. The caller must keep running on the
// same OS thread that called Launch for the lifetime of the trace: ptrace
// state is per-thread, not per-process.
type Process struct {
	Pid int

	cmd    *exec.Cmd
	cancel func()
}

// Launch starts name with args, attached for tracing, and blocks until the
// child has stopped at its post-exec SIGTRAP. The caller must have called
// runtime.LockOSThread before invoking Launch and must not unlock it before
// the trace completes.
func Launch(name string, args []string) (*Process, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &unix.SysProcAttr{Ptrace: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launcher: start %s: %w", name, err)
	}
	pid := cmd.Process.Pid

	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("launcher: initial wait: %w", err)
		}
		break
	}
	if !ws.Stopped() {
		return nil, fmt.Errorf("launcher: child did not stop post-exec (status %v)", ws)
	}

	if err := unix.PtraceSetOptions(pid, unix.PTRACE_O_EXITKILL); err != nil {
		return nil, fmt.Errorf("launcher: set PTRACE_O_EXITKILL: %w", err)
	}

	p := &Process{Pid: pid, cmd: cmd}
	p.cancel = forwardSignals(pid)
	return p, nil
}

// Close stops forwarding signals to the child. It does not wait for or kill
// the child; the tracer loop owns that.
func (p *Process) Close() {
	if p.cancel != nil {
		p.cancel()
	}
}

// forwardSignals relays SIGINT, SIGTERM and SIGWINCH delivered to this
// process on to pid, so a traced interactive program keeps behaving like an
// untraced one (ctrl-C, terminal resize) for the duration of the trace. It
// returns a function that stops the relay.
func forwardSignals(pid int) func() {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGWINCH)

	var g errgroup.Group
	done := make(chan struct{})
	g.Go(func() error {
		for {
			select {
			case sig := <-ch:
				if err := unix.Kill(pid, sig.(syscall.Signal)); err != nil {
					diag.Log.Debugf("launcher: forward %s to %d: %v", sig, pid, err)
				}
			case <-done:
				return nil
			}
		}
	})

	return func() {
		signal.Stop(ch)
		close(done)
		_ = g.Wait()
	}
}
