package tracer_test

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/talismancer/seedtrace/internal/keystream"
	"github.com/talismancer/seedtrace/internal/tracer"
	"golang.org/x/sys/unix"
)

// TestMain lets this test binary re-exec itself as the traced child. Real
// test runs never set seedtraceHelperEnv and fall straight through to
// m.Run(); a re-exec with that variable set runs helperMain instead and
// never reaches the test driver.
func TestMain(m *testing.M) {
	if os.Getenv(seedtraceHelperEnv) == "1" {
		helperMain()
		return
	}
	os.Exit(m.Run())
}

const seedtraceHelperEnv = "SEEDTRACE_TEST_HELPER"

// helperMain is the traced child body: it reads a fixed number of bytes
// from /dev/urandom, then prints them as hex so the parent test can
// compare them against the keystream directly.
func helperMain() {
	const n = 24
	buf := make([]byte, n)
	f, err := os.Open("/dev/urandom")
	if err != nil {
		fmt.Println("open error:", err)
		os.Exit(1)
	}
	if _, err := f.Read(buf); err != nil {
		fmt.Println("read error:", err)
		os.Exit(1)
	}
	f.Close()
	fmt.Print(hex.EncodeToString(buf))
	os.Exit(7)
}

// launchSelfTraced re-execs this test binary with seedtraceHelperEnv set,
// attached via PTRACE_TRACEME, and returns it stopped at its post-exec
// SIGTRAP, the same state launcher.Launch hands the engine in production.
func launchSelfTraced(t *testing.T, stdout *bytes.Buffer) int {
	t.Helper()
	self, err := os.Executable()
	require.NoError(t, err)

	cmd := exec.Command(self, "-test.run=^TestMain$")
	cmd.Env = append(os.Environ(), seedtraceHelperEnv+"=1")
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &unix.SysProcAttr{Ptrace: true}
	require.NoError(t, cmd.Start())

	var ws unix.WaitStatus
	_, err = unix.Wait4(cmd.Process.Pid, &ws, 0, nil)
	require.NoError(t, err)
	require.True(t, ws.Stopped())
	return cmd.Process.Pid
}

func TestEngineSubstitutesDevURandomDeterministically(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var key [keystream.KeySize]byte
	for i := range key {
		key[i] = byte(i)
	}

	var out bytes.Buffer
	pid := launchSelfTraced(t, &out)

	code, err := tracer.New(keystream.New(key), nil).Run(pid)
	require.NoError(t, err)
	require.Equal(t, 7, code)

	got, err := hex.DecodeString(out.String())
	require.NoError(t, err)

	want := make([]byte, 24)
	keystream.New(key).Fill(want)
	require.Equal(t, want, got)
}

func TestEngineIsDeterministicAcrossRuns(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var key [keystream.KeySize]byte
	for i := range key {
		key[i] = byte(0xaa)
	}

	run := func() string {
		var out bytes.Buffer
		pid := launchSelfTraced(t, &out)
		_, err := tracer.New(keystream.New(key), nil).Run(pid)
		require.NoError(t, err)
		return out.String()
	}

	first := run()
	second := run()
	require.Equal(t, first, second)
}
