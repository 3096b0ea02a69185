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

// Package xmem moves bytes into and out of a traced child's address space
// by absolute address. Transfers are single-shot: they do not resume or
// otherwise affect the child's execution, and they never touch registers.
package xmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ReadChild copies len(dst) bytes from the child's virtual address addr
// into dst. It returns an error on any partial transfer.
func ReadChild(pid int, addr uintptr, dst []byte) error {
	n, err := unix.PtracePeekData(pid, addr, dst)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return errShort(n, len(dst))
	}
	return nil
}

// WriteChild copies src into the child's virtual address addr.
func WriteChild(pid int, addr uintptr, src []byte) error {
	n, err := unix.PtracePokeData(pid, addr, src)
	if err != nil {
		return err
	}
	if n != len(src) {
		return errShort(n, len(src))
	}
	return nil
}

type shortTransferError struct {
	got, want int
}

func (e *shortTransferError) Error() string {
	return fmt.Sprintf("xmem: short transfer: got %d bytes, want %d", e.got, e.want)
}

func errShort(got, want int) error {
	return &shortTransferError{got: got, want: want}
}
