package secret

import (
	"bufio"
	"testing"

	"github.com/containerd/console"
	"github.com/kr/pty"
	"github.com/stretchr/testify/require"
)

func TestReadLineNoEchoReadsUpToNewline(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	c, err := console.ConsoleFromFile(slave)
	require.NoError(t, err)

	go func() {
		_, _ = master.Write([]byte("hunter2\n"))
	}()

	line, err := readLineNoEcho(c, slave, "passphrase: ")
	require.NoError(t, err)
	require.Equal(t, "hunter2", line)

	r := bufio.NewReader(master)
	prompt, err := r.ReadString(':')
	require.NoError(t, err)
	require.Equal(t, "passphrase:", prompt)
}
