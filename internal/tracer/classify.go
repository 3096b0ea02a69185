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

package tracer

import (
	"github.com/talismancer/seedtrace/internal/regs"
	"golang.org/x/sys/unix"
)

// Tag is a coarse classification of a syscall-entry stop, built once from
// the entry register snapshot. It removes the implicit coupling that a
// switch statement setting loose "size"/"dest" locals would otherwise
// create between classification and substitution.
type Tag int

const (
	Other Tag = iota
	Exit
	OpenPath
	Close
	Read
	GetRandom
	GetPid
)

// Classified is the result of classifying one syscall-entry stop.
type Classified struct {
	Tag Tag
	NR  int64

	// ExitStatus is valid only for Tag == Exit: the status the child
	// passed to exit/exit_group.
	ExitStatus int

	// PathArg is the register holding the path argument, valid only for
	// Tag == OpenPath (openat's path argument follows its dirfd).
	PathArg uint64

	// FD is the file descriptor argument, valid for Tag == Close (the fd
	// being closed) and Tag == Read (the fd being read).
	FD int

	// Dest/Size are the destination buffer and byte count of an entropy
	// request, valid for Tag == Read (only once the fd is confirmed
	// monitored by the caller) and Tag == GetRandom.
	Dest uint64
	Size uint64
}

// Classify inspects a syscall-entry register snapshot and produces a Tag.
// It does not consult any tracer state (the descriptor set, in particular)
// — callers combine the Tag with fdset.Set membership themselves, since
// whether a Read is actually substituted depends on that set.
func Classify(s *regs.Snapshot) Classified {
	nr := s.SyscallNR()
	c := Classified{Tag: Other, NR: nr}

	switch nr {
	case unix.SYS_EXIT, unix.SYS_EXIT_GROUP:
		c.Tag = Exit
		c.ExitStatus = int(int32(s.Arg(0)))

	case unix.SYS_OPEN:
		c.Tag = OpenPath
		c.PathArg = s.Arg(0)

	case unix.SYS_OPENAT:
		c.Tag = OpenPath
		c.PathArg = s.Arg(1)

	case unix.SYS_CLOSE:
		c.Tag = Close
		c.FD = int(int32(s.Arg(0)))

	case unix.SYS_READ:
		c.Tag = Read
		c.FD = int(int32(s.Arg(0)))
		c.Dest = s.Arg(1)
		c.Size = s.Arg(2)

	case unix.SYS_GETRANDOM:
		c.Tag = GetRandom
		c.Dest = s.Arg(0)
		c.Size = s.Arg(1)

	case unix.SYS_GETPID:
		c.Tag = GetPid
	}

	return c
}
