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

// Package secret acquires the passphrase that seeds a run, either from a
// keyfile or an echo-disabled terminal prompt, and derives the keystream
// key from it.
package secret

import (
	"fmt"
	"io"
	"os"

	"github.com/containerd/console"
)

// MaxLen bounds the passphrase length accepted from either source, matching
// the reference implementation's fixed-size stack buffer.
const MaxLen = 1024

// Prompt reads a passphrase from the controlling terminal with echo
// disabled, then asks again confirmTimes more times, failing unless every
// repetition matches exactly. confirmTimes matching the reference tool's
// default of 1 means the user types the passphrase twice.
func Prompt(confirmTimes int) (string, error) {
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("secret: open /dev/tty: %w", err)
	}
	defer f.Close()

	c, err := console.ConsoleFromFile(f)
	if err != nil {
		return "", fmt.Errorf("secret: /dev/tty is not a console: %w", err)
	}

	first, err := readLineNoEcho(c, f, "passphrase: ")
	if err != nil {
		return "", err
	}
	for i := 0; i < confirmTimes; i++ {
		again, err := readLineNoEcho(c, f, "passphrase (again): ")
		if err != nil {
			return "", err
		}
		if again != first {
			return "", fmt.Errorf("secret: passphrases don't match")
		}
	}
	return first, nil
}

func readLineNoEcho(c console.Console, f *os.File, prompt string) (string, error) {
	if err := c.DisableEcho(); err != nil {
		return "", fmt.Errorf("secret: disable echo: %w", err)
	}
	defer c.Reset()

	if _, err := io.WriteString(f, prompt); err != nil {
		return "", fmt.Errorf("secret: write prompt: %w", err)
	}

	line, err := readLine(c, MaxLen)
	if _, werr := io.WriteString(f, "\n"); werr != nil && err == nil {
		err = werr
	}
	return line, err
}

// readLine reads up to limit bytes looking for a newline, the way the
// reference get_passphrase does: a line at or beyond limit bytes without a
// terminator is rejected rather than silently truncated.
func readLine(r io.Reader, limit int) (string, error) {
	buf := make([]byte, 0, 128)
	one := make([]byte, 1)
	for len(buf) < limit {
		n, err := r.Read(one)
		if n == 1 {
			if one[0] == '\n' {
				return string(buf), nil
			}
			buf = append(buf, one[0])
			continue
		}
		if err == io.EOF {
			return string(buf), nil
		}
		if err != nil {
			return "", fmt.Errorf("secret: read passphrase: %w", err)
		}
	}
	return "", fmt.Errorf("secret: passphrase too long (max %d bytes)", limit)
}
