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

// Package fdset tracks the small set of child-side file descriptors that
// currently refer to a kernel entropy device.
package fdset

import "fmt"

// Capacity bounds the number of descriptors tracked at once. Spec requires
// at least 16.
const Capacity = 16

// Set is an unordered, fixed-capacity collection of nonnegative file
// descriptors. The zero value is an empty set.
type Set struct {
	fds [Capacity]int
	n   int
}

// Add inserts fd. It panics if the set is already at capacity — by
// invariant this indicates a leak in the tracker or pathological behavior
// from the traced child, and the caller is expected to treat it as fatal.
func (s *Set) Add(fd int) {
	if s.n == Capacity {
		panic(fmt.Sprintf("fdset: capacity %d exceeded adding fd %d", Capacity, fd))
	}
	s.fds[s.n] = fd
	s.n++
}

// Remove deletes fd from the set, if present, using swap-with-last for
// O(1) removal. It is a no-op if fd is not a member.
func (s *Set) Remove(fd int) {
	for i := 0; i < s.n; i++ {
		if s.fds[i] == fd {
			s.n--
			s.fds[i] = s.fds[s.n]
			return
		}
	}
}

// Contains reports whether fd is currently tracked.
func (s *Set) Contains(fd int) bool {
	for i := 0; i < s.n; i++ {
		if s.fds[i] == fd {
			return true
		}
	}
	return false
}

// Len reports the number of tracked descriptors.
func (s *Set) Len() int {
	return s.n
}
