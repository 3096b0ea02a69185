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

package secret

import (
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"
)

// FromFile reads the passphrase from the first line of path, under a shared
// advisory lock so a concurrent writer doesn't hand back a half-written
// file. A trailing newline, if present, is stripped; anything after the
// first newline is ignored, matching the reference implementation's
// file-loading path.
func FromFile(path string) (string, error) {
	lock := flock.New(path)
	if err := lock.RLock(); err != nil {
		return "", fmt.Errorf("secret: lock %s: %w", path, err)
	}
	defer lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("secret: open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, MaxLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("secret: read %s: %w", path, err)
	}
	line := buf[:n]
	for i, b := range line {
		if b == '\n' {
			return string(line[:i]), nil
		}
	}
	if n == len(buf) {
		return "", fmt.Errorf("secret: passphrase in %s too long (max %d bytes)", path, MaxLen)
	}
	return string(line), nil
}
