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
	"github.com/talismancer/seedtrace/internal/keystream"
	"golang.org/x/crypto/argon2"
)

// Argon2id "moderate" parameters, chosen to land in the same ballpark of
// work as the reference implementation's crypto_pwhash OPSLIMIT_MODERATE /
// MEMLIMIT_MODERATE profile.
const (
	kdfTime    = 3
	kdfMemoryK = 64 * 1024
	kdfThreads = 4
	kdfKeyLen  = 64
)

// zero salt, by design: the same passphrase must derive the same keystream
// on any host, with no per-run or per-install randomness.
var kdfSalt [16]byte

// DeriveKey runs passphrase through Argon2id and returns the first
// keystream.KeySize bytes of the output as the ChaCha20 key.
func DeriveKey(passphrase string) [keystream.KeySize]byte {
	out := argon2.IDKey([]byte(passphrase), kdfSalt[:], kdfTime, kdfMemoryK, kdfThreads, kdfKeyLen)
	var key [keystream.KeySize]byte
	copy(key[:], out)
	return key
}
