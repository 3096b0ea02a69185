package keystream_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/talismancer/seedtrace/internal/keystream"
	"golang.org/x/crypto/chacha20"
)

func reference(t *testing.T, key [keystream.KeySize]byte, n int) []byte {
	t.Helper()
	c, err := chacha20.NewUnauthenticatedCipher(key[:], make([]byte, chacha20.NonceSize))
	require.NoError(t, err)
	buf := make([]byte, n)
	c.XORKeyStream(buf, buf)
	return buf
}

func TestFillMatchesSingleShotPrefix(t *testing.T) {
	var key [keystream.KeySize]byte
	for i := range key {
		key[i] = byte(i)
	}

	want := reference(t, key, 48)

	s := keystream.New(key)
	got := make([]byte, 48)
	s.Fill(got)

	require.Equal(t, want, got)
}

func TestSuccessiveFillsAreConsecutiveSegments(t *testing.T) {
	var key [keystream.KeySize]byte
	copy(key[:], []byte("some deterministic passphrase-derived key!!!!!"))

	want := reference(t, key, 64)

	s := keystream.New(key)
	first := make([]byte, 16)
	second := make([]byte, 48)
	s.Fill(first)
	s.Fill(second)

	got := append(append([]byte{}, first...), second...)
	require.Equal(t, want, got)
}

func TestTwoSourcesWithSameKeyAreIdentical(t *testing.T) {
	var key [keystream.KeySize]byte
	for i := range key {
		key[i] = byte(i * 7)
	}

	a := keystream.New(key)
	b := keystream.New(key)

	bufA := make([]byte, 37)
	bufB := make([]byte, 37)
	a.Fill(bufA)
	b.Fill(bufB)

	require.Equal(t, bufA, bufB)
}
