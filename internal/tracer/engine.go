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

// Package tracer implements the interception engine: the loop that pauses
// the traced child at each syscall boundary, classifies the call,
// suppresses the kernel's natural execution where an entropy request is
// found, and substitutes a result synthesized from the keystream.
package tracer

import (
	"fmt"

	"github.com/talismancer/seedtrace/internal/diag"
	"github.com/talismancer/seedtrace/internal/fdset"
	"github.com/talismancer/seedtrace/internal/keystream"
	"github.com/talismancer/seedtrace/internal/regs"
	"github.com/talismancer/seedtrace/internal/xmem"
	"golang.org/x/sys/unix"
)

// disarmedSyscallNR is written to the orig-ax slot to make the kernel
// reject the call with -ENOSYS instead of performing it. Any value outside
// the assigned syscall table works; -1 is the canonical choice (also used
// by the reference implementation this engine is grounded on).
const disarmedSyscallNR = -1

const (
	devRandom  = "/dev/random\x00"
	devURandom = "/dev/urandom\x00"
)

// Engine owns every piece of per-run tracer state: the descriptor set, the
// substitution buffer, and the keystream source. One Engine drives exactly
// one traced child for its entire lifetime.
type Engine struct {
	ks  *keystream.Source
	buf []byte
	fds fdset.Set

	fakePID    int
	hasFakePID bool
}

// New constructs an Engine. If fakePID is non-nil, every getpid() the child
// makes returns *fakePID instead of its real pid.
func New(ks *keystream.Source, fakePID *int) *Engine {
	e := &Engine{ks: ks}
	if fakePID != nil {
		e.fakePID = *fakePID
		e.hasFakePID = true
	}
	return e
}

// Run drives pid, which must already be stopped at its first ptrace stop
// (immediately post-exec, per launcher.Launch), until it exits. It returns
// the exit status to propagate from this process.
func (e *Engine) Run(pid int) (int, error) {
	for {
		if err := unix.PtraceSyscall(pid, 0); err != nil {
			return 0, fmt.Errorf("resume to syscall-entry stop: %w", err)
		}
		exited, code, err := wait(pid)
		if err != nil {
			return 0, err
		}
		if exited {
			return code, nil
		}

		entry, err := regs.Get(pid)
		if err != nil {
			return 0, fmt.Errorf("read entry registers: %w", err)
		}
		c := Classify(entry)

		if c.Tag == Exit {
			diag.Log.Debugf("tracer: exit(%d)", c.ExitStatus)
			return c.ExitStatus & 0xff, nil
		}

		capture := false
		if c.Tag == OpenPath {
			capture, err = isEntropyDevicePath(pid, c.PathArg)
			if err != nil {
				return 0, fmt.Errorf("read open path argument: %w", err)
			}
		}
		if c.Tag == Close {
			e.fds.Remove(c.FD)
			diag.Log.Debugf("tracer: close(%d)", c.FD)
		}

		size := uint64(0)
		dest := uint64(0)
		if c.Tag == Read && e.fds.Contains(c.FD) {
			dest, size = c.Dest, c.Size
			diag.Log.Debugf("tracer: read(%d, %#x, %d) monitored", c.FD, dest, size)
		}
		if c.Tag == GetRandom {
			dest, size = c.Dest, c.Size
			diag.Log.Debugf("tracer: getrandom(%#x, %d)", dest, size)
		}

		if size > 0 {
			if err := regs.PokeSyscallNR(pid, disarmedSyscallNR); err != nil {
				return 0, fmt.Errorf("disarm syscall: %w", err)
			}
			e.growBuf(size)
		}

		if err := unix.PtraceSyscall(pid, 0); err != nil {
			return 0, fmt.Errorf("resume to syscall-exit stop: %w", err)
		}
		exited, code, err = wait(pid)
		if err != nil {
			return 0, err
		}
		if exited {
			return code, nil
		}

		if size > 0 {
			buf := e.buf[:size]
			e.ks.Fill(buf)
			if err := xmem.WriteChild(pid, uintptr(dest), buf); err != nil {
				return 0, fmt.Errorf("write substituted entropy: %w", err)
			}
			if err := regs.PokeReturn(pid, size); err != nil {
				return 0, fmt.Errorf("set substituted return value: %w", err)
			}
		}

		if capture {
			exit, err := regs.Get(pid)
			if err != nil {
				return 0, fmt.Errorf("read exit registers: %w", err)
			}
			if rv := exit.ReturnValue(); rv >= 0 {
				if e.fds.Len() == fdset.Capacity {
					diag.Fatalf("tracer: too many concurrently open entropy descriptors (capacity %d)", fdset.Capacity)
				}
				e.fds.Add(int(rv))
				diag.Log.Debugf("tracer: monitoring fd %d", rv)
			}
		}

		if c.Tag == GetPid && e.hasFakePID {
			if err := regs.PokeReturn(pid, uint64(uint32(e.fakePID))); err != nil {
				return 0, fmt.Errorf("forge getpid result: %w", err)
			}
			diag.Log.Debugf("tracer: getpid() = %d (forged)", e.fakePID)
		}
	}
}

// growBuf ensures the substitution buffer is at least n bytes. It never
// shrinks: size is the largest substitution ever seen across the run.
func (e *Engine) growBuf(n uint64) {
	if uint64(len(e.buf)) >= n {
		return
	}
	e.buf = make([]byte, n)
}

// isEntropyDevicePath reads up to 13 bytes at the child's path argument and
// checks for an exact, NUL-inclusive match against one of the two
// canonical entropy device names. This deliberately rejects paths like
// "/dev/urandomXYZ": no normalization, symlink following, or dirfd-relative
// resolution is performed. A failed or short read of the path argument is
// returned as an error, like any other cross-process memory failure.
func isEntropyDevicePath(pid int, addr uint64) (bool, error) {
	buf := make([]byte, len(devURandom))
	if err := xmem.ReadChild(pid, uintptr(addr), buf); err != nil {
		return false, err
	}
	return string(buf[:len(devRandom)]) == devRandom || string(buf) == devURandom, nil
}

// wait blocks for the next stop of pid. exited reports whether the child
// has terminated (by exit or by signal); code is its propagation status in
// either case.
func wait(pid int) (exited bool, code int, err error) {
	var ws unix.WaitStatus
	for {
		_, err = unix.Wait4(pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, 0, fmt.Errorf("wait4: %w", err)
		}
		break
	}
	switch {
	case ws.Exited():
		return true, ws.ExitStatus(), nil
	case ws.Signaled():
		return true, 128 + int(ws.Signal()), nil
	default:
		return false, 0, nil
	}
}
