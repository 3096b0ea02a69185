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

//go:build linux && amd64

// Package regs reads and pokes the traced child's user-register file at a
// syscall-stop. It generalizes the per-architecture accessor style of
// gVisor's arch.Context64 (Return, SetReturn, syscall argument access) into
// the narrow surface the interception engine needs: the syscall number, the
// first four arguments, and the return value.
package regs

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Which names a single register slot that can be poked independently of
// the rest of the snapshot.
type Which int

const (
	// SyscallNR is the orig-ax slot: the syscall number at entry, and the
	// value the kernel actually dispatched on by the time of exit.
	SyscallNR Which = iota
	// ReturnValue is the ax slot: the syscall's return value at exit.
	ReturnValue
)

var offsets = [...]uintptr{
	SyscallNR:   unsafe.Offsetof(unix.PtraceRegs{}.Orig_rax),
	ReturnValue: unsafe.Offsetof(unix.PtraceRegs{}.Rax),
}

// Snapshot is the child's register file at a syscall-stop.
type Snapshot struct {
	regs unix.PtraceRegs
}

// Get reads the child's full register snapshot at the current stop.
func Get(pid int) (*Snapshot, error) {
	s := &Snapshot{}
	if err := unix.PtraceGetRegs(pid, &s.regs); err != nil {
		return nil, err
	}
	return s, nil
}

// Set writes a full snapshot back to the child.
func Set(pid int, s *Snapshot) error {
	return unix.PtraceSetRegs(pid, &s.regs)
}

// FromRaw builds a Snapshot from an already-populated register file. It
// exists for tests that need to drive Classify without a live tracee.
func FromRaw(raw unix.PtraceRegs) *Snapshot {
	return &Snapshot{regs: raw}
}

// SyscallNR is the syscall number observed at entry (orig-ax on amd64).
func (s *Snapshot) SyscallNR() int64 {
	return int64(s.regs.Orig_rax)
}

// Arg returns syscall argument i, for i in [0,4). amd64 passes the first
// four syscall arguments in rdi, rsi, rdx, r10.
func (s *Snapshot) Arg(i int) uint64 {
	switch i {
	case 0:
		return s.regs.Rdi
	case 1:
		return s.regs.Rsi
	case 2:
		return s.regs.Rdx
	case 3:
		return s.regs.R10
	default:
		panic("regs: argument index out of range")
	}
}

// ReturnValue is the syscall's return value (ax on amd64), valid only at an
// exit-stop.
func (s *Snapshot) ReturnValue() int64 {
	return int64(s.regs.Rax)
}

// PokeSyscallNR overwrites the syscall-number slot, e.g. to disarm a
// syscall by replacing it with a number the kernel will reject.
func PokeSyscallNR(pid int, nr int64) error {
	return pokeWord(pid, SyscallNR, uint64(nr))
}

// PokeReturn overwrites the return-value slot, e.g. to report a fully
// satisfied, synthetic result.
func PokeReturn(pid int, value uint64) error {
	return pokeWord(pid, ReturnValue, value)
}

func pokeWord(pid int, which Which, value uint64) error {
	var buf [8]byte
	// unix.PtracePokeUser takes care of the surrounding word alignment;
	// it is safe to poke a sub-word-aligned offset directly.
	*(*uint64)(unsafe.Pointer(&buf[0])) = value
	_, err := unix.PtracePokeUser(pid, offsets[which], buf[:])
	return err
}
