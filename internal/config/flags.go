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

// Package config declares and parses the command's flags, following the
// one-flag-per-field declarative style runsc/config uses for its flag set.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
)

// Config holds every flag value plus the positional command to launch.
type Config struct {
	KeyFile     string
	Repeat      int
	FakePID     int
	HasFakePID  bool
	Verbosity   int
	Command     string
	CommandArgs []string
}

// ErrHelp is returned by Parse when -h was given; the caller should print
// usage and exit successfully rather than treat this as a failure.
var ErrHelp = flag.ErrHelp

const defaultFakePID = 2

var attachedPID = regexp.MustCompile(`^-p(\d+)$`)

// fakePIDFlag implements flag.Value for "-p", with presence alone selecting
// defaultFakePID. The getopt-style attached form, "-p1234", is rewritten to
// "-p=1234" by splitArgs before the standard flag package ever sees it,
// since flag.Value has no notion of an optional inline argument.
type fakePIDFlag struct {
	set   *bool
	value *int
}

func (f fakePIDFlag) String() string {
	if f.value == nil || !*f.set {
		return ""
	}
	return fmt.Sprintf("%d", *f.value)
}

func (f fakePIDFlag) Set(s string) error {
	*f.set = true
	if s == "" || s == "true" {
		*f.value = defaultFakePID
		return nil
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return fmt.Errorf("invalid pid %q: %w", s, err)
	}
	*f.value = n
	return nil
}

func (f fakePIDFlag) IsBoolFlag() bool { return true }

// countingFlag implements flag.Value for "-v" repeated on the command line,
// each occurrence incrementing rather than overwriting.
type countingFlag struct {
	n *int
}

func (c countingFlag) String() string {
	if c.n == nil {
		return "0"
	}
	return fmt.Sprintf("%d", *c.n)
}

func (c countingFlag) Set(string) error {
	*c.n++
	return nil
}

func (c countingFlag) IsBoolFlag() bool { return true }

// Parse builds a Config from args (typically os.Args[1:]). Flag parsing
// stops at the first positional argument, which becomes the command to
// launch; everything after it is passed through as that command's own
// arguments, matching getopt's "+" leading-character behavior in the
// reference implementation (it never tries to interpret the target
// command's own flags).
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("seedtrace", flag.ContinueOnError)
	fs.Usage = func() { usage(fs, os.Stderr) }

	c := &Config{Repeat: 1}
	fs.StringVar(&c.KeyFile, "k", "", "read passphrase from a file")
	fs.IntVar(&c.Repeat, "n", 1, "number of times to repeat passphrase prompt")
	fs.Var(fakePIDFlag{set: &c.HasFakePID, value: &c.FakePID}, "p", "also intercept getpid() syscalls")
	fs.Var(countingFlag{n: &c.Verbosity}, "v", "increase verbosity (repeatable)")

	flagArgs, rest := splitArgs(args)

	// -h/-help is the one case spec.md sends to standard output; handle
	// it before fs.Parse so the FlagSet's own error path, which always
	// writes to stderr, never fires for it.
	for _, a := range flagArgs {
		if a == "-h" || a == "-help" || a == "--help" {
			usage(fs, os.Stdout)
			return nil, ErrHelp
		}
	}

	if err := fs.Parse(flagArgs); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, err
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("seedtrace: missing command")
	}
	c.Command = rest[0]
	c.CommandArgs = rest[1:]
	return c, nil
}

// valueFlags are the flags whose argument is commonly given as a separate
// token ("-k FILE", "-n N", per spec.md §6) rather than attached with "=".
var valueFlags = map[string]bool{"-k": true, "-n": true}

// splitArgs divides args into our own flag region and the command plus
// its own arguments, stopping at the first token that isn't itself a
// flag — the same "+"-prefixed getopt behavior the reference
// implementation gets from a leading '+' in its optstring, never trying
// to interpret the launched command's own flags. Within the flag region,
// a lone "-p1234"-shaped token is rewritten to "-p=1234" so the stdlib
// flag package, which only understands "-flag=value" or "-flag value",
// accepts the reference tool's getopt "-p[pid]" form; a bare "-k" or "-n"
// always takes the following token as its value, regardless of what it
// looks like, so it is never mistaken for the start of the command.
// Tokens belonging to the command itself are passed through untouched.
func splitArgs(args []string) (flagArgs, rest []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if len(a) == 0 || a[0] != '-' || a == "-" {
			return flagArgs, args[i:]
		}
		if m := attachedPID.FindStringSubmatch(a); m != nil {
			flagArgs = append(flagArgs, "-p="+m[1])
			continue
		}
		flagArgs = append(flagArgs, a)
		if valueFlags[a] && i+1 < len(args) {
			i++
			flagArgs = append(flagArgs, args[i])
		}
	}
	return flagArgs, nil
}

func usage(fs *flag.FlagSet, w *os.File) {
	fmt.Fprintln(w, "usage: seedtrace [-hv] [-n n] [-k file] [-p[pid]] command [args]")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
