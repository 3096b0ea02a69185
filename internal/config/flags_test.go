package config_test

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/talismancer/seedtrace/internal/config"
)

func TestParseDefaults(t *testing.T) {
	c, err := config.Parse([]string{"echo", "hi"})
	require.NoError(t, err)
	require.Equal(t, "echo", c.Command)
	require.Equal(t, []string{"hi"}, c.CommandArgs)
	require.Equal(t, 1, c.Repeat)
	require.False(t, c.HasFakePID)
}

func TestParseKeyFileAndVerbosity(t *testing.T) {
	c, err := config.Parse([]string{"-k", "pass.txt", "-v", "-v", "cat"})
	require.NoError(t, err)
	require.Equal(t, "pass.txt", c.KeyFile)
	require.Equal(t, 2, c.Verbosity)
	require.Equal(t, "cat", c.Command)
}

func TestParseFakePIDBare(t *testing.T) {
	c, err := config.Parse([]string{"-p", "cat"})
	require.NoError(t, err)
	require.True(t, c.HasFakePID)
	require.Equal(t, 2, c.FakePID)
}

func TestParseFakePIDAttached(t *testing.T) {
	c, err := config.Parse([]string{"-p1234", "cat"})
	require.NoError(t, err)
	require.True(t, c.HasFakePID)
	require.Equal(t, 1234, c.FakePID)
}

func TestParseStopsAtCommandsOwnFlags(t *testing.T) {
	c, err := config.Parse([]string{"-v", "grep", "-v", "pattern"})
	require.NoError(t, err)
	require.Equal(t, 1, c.Verbosity)
	require.Equal(t, "grep", c.Command)
	require.Equal(t, []string{"-v", "pattern"}, c.CommandArgs)
}

func TestParseMissingCommand(t *testing.T) {
	_, err := config.Parse([]string{"-v"})
	require.Error(t, err)
}

func TestParseKeyFileValueNotMistakenForCommand(t *testing.T) {
	c, err := config.Parse([]string{"-k", "pass.txt", "mycommand"})
	require.NoError(t, err)
	require.Equal(t, "pass.txt", c.KeyFile)
	require.Equal(t, "mycommand", c.Command)
}

func TestParseRepeatValueNotMistakenForCommand(t *testing.T) {
	c, err := config.Parse([]string{"-n", "3", "mycommand", "arg"})
	require.NoError(t, err)
	require.Equal(t, 3, c.Repeat)
	require.Equal(t, "mycommand", c.Command)
	require.Equal(t, []string{"arg"}, c.CommandArgs)
}

func TestParseHelp(t *testing.T) {
	_, err := config.Parse([]string{"-h"})
	require.ErrorIs(t, err, config.ErrHelp)
}

func TestParseHelpWritesToStdout(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	_, parseErr := config.Parse([]string{"-h"})
	os.Stdout = orig
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.ErrorIs(t, parseErr, config.ErrHelp)
	require.Contains(t, string(out), "usage: seedtrace")
}
