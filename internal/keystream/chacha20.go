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

// Package keystream produces the deterministic byte stream substituted for
// every entropy read the traced child makes.
package keystream

import (
	"github.com/talismancer/seedtrace/internal/diag"
	"golang.org/x/crypto/chacha20"
)

// KeySize is the width of the symmetric key in bytes.
const KeySize = chacha20.KeySize

// Source is a single, append-only view of ChaCha20(key, nonce=0^12). Every
// byte it ever emits, across every call to Fill, is the next byte of one
// unbroken keystream — callers never rewind it.
type Source struct {
	cipher *chacha20.Cipher
}

// New derives a Source from a 32-byte key. The nonce is fixed at twelve
// zero bytes: no other nonce is permitted, since any divergence breaks
// determinism across runs of the same passphrase.
func New(key [KeySize]byte) *Source {
	c, err := chacha20.NewUnauthenticatedCipher(key[:], make([]byte, chacha20.NonceSize))
	if err != nil {
		// Unreachable: key and nonce are always exactly the sizes
		// chacha20 demands.
		diag.Fatalf("keystream: %v", err)
	}
	return &Source{cipher: c}
}

// Fill overwrites every byte of dst with the next len(dst) bytes of the
// keystream. The offset into the stream advances by len(dst) on every
// call, so the concatenation of all buffers ever passed to Fill equals a
// single prefix of the keystream.
func (s *Source) Fill(dst []byte) {
	for i := range dst {
		dst[i] = 0
	}
	s.cipher.XORKeyStream(dst, dst)
}
