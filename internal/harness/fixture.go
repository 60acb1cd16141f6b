package harness

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"confkit/internal/dispatch"
	"confkit/internal/platform"
)

// DefaultHost is the host triple the default platform-detection handlers
// report.
const DefaultHost = "x86_64-pc-linux-gnu"

// autoconfDir is where the host-detection helper scripts are
// pre-registered, relative to the source root.
const autoconfDir = "build/autoconf"

// entryScript is the configure entry point the fixture evaluates when a
// test has written one, relative to the source root.
const entryScript = "configure.js"

// Fixture is the reusable per-test base: it creates the trusted roots,
// moves the working directory into the build root for the duration of
// the test, and assembles harnesses with autoconf-style defaults.
type Fixture struct {
	// Host is the triple reported by the config.guess handler.
	Host string
	// Target, when set, contributes a --target argument.
	Target string
	// SourceRoot and BuildRoot are the trusted roots.
	SourceRoot string
	BuildRoot  string

	t *testing.T
}

// NewFixture sets up a fixture for one test case. The working directory
// is switched to the build root; restoration is registered with
// t.Cleanup, so it happens on every exit path, including a failing test
// body.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()

	f := &Fixture{
		Host:       DefaultHost,
		SourceRoot: t.TempDir(),
		BuildRoot:  t.TempDir(),
		t:          t,
	}

	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(f.BuildRoot); err != nil {
		t.Fatalf("chdir to build root: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})

	return f
}

// ConfigGuess mimics the autoconf host-triple guesser: it echoes the
// fixture's host triple.
func (f *Fixture) ConfigGuess(stdin string, args []string) (int, string, string) {
	return 0, f.Host, ""
}

// ConfigSub mimics the autoconf triple normalizer: it echoes its first
// argument unchanged.
func (f *Fixture) ConfigSub(stdin string, args []string) (int, string, string) {
	if len(args) == 0 {
		return 1, "", "missing triple"
	}
	return 0, args[0], ""
}

// WriteScript places src at the configure entry point under the source
// root and returns its path.
func (f *Fixture) WriteScript(src string) string {
	f.t.Helper()
	path := filepath.Join(f.SourceRoot, entryScript)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		f.t.Fatalf("write configure script: %v", err)
	}
	return path
}

// SandboxParams are the per-test inputs to Sandbox. Zero values give a
// harness with only the fixture defaults.
type SandboxParams struct {
	Paths      map[string]dispatch.Handler
	Config     map[string]any
	Args       []string
	Environ    map[string]string
	UserConfig string
	Modules    map[string]any
	Platform   platform.Platform
	Out        io.Writer
	Logger     zerolog.Logger
	Backend    afero.Fs
}

// Sandbox assembles a wrapped harness: fixture defaults (host-detection
// handlers under the autoconf directory, entry-point environment,
// --target argument) merged with the given params, and the configure
// entry script evaluated when the test wrote one. When UserConfig text
// is supplied it is written to a temporary file that is removed before
// Sandbox returns, whether or not construction succeeded.
func (f *Fixture) Sandbox(params SandboxParams) (*Harness, error) {
	paths := make(map[string]dispatch.Handler, len(params.Paths)+2)
	for p, h := range params.Paths {
		paths[p] = h
	}
	paths[filepath.Join(f.SourceRoot, autoconfDir, "config.guess")] = f.ConfigGuess
	paths[filepath.Join(f.SourceRoot, autoconfDir, "config.sub")] = f.ConfigSub

	environ := make(map[string]string, len(params.Environ)+1)
	for k, v := range params.Environ {
		environ[k] = v
	}
	entry := filepath.Join(f.SourceRoot, entryScript)
	environ[EnvConfigureScript] = entry

	args := []string{"configure"}
	if f.Target != "" {
		args = append(args, "--target="+f.Target)
	}
	args = append(args, params.Args...)

	var userConfigPath string
	if params.UserConfig != "" {
		tmp, err := os.CreateTemp("", "confkit-userconfig-*")
		if err != nil {
			return nil, err
		}
		userConfigPath = tmp.Name()
		defer os.Remove(userConfigPath)
		if _, err := tmp.WriteString(params.UserConfig); err != nil {
			tmp.Close()
			return nil, err
		}
		if err := tmp.Close(); err != nil {
			return nil, err
		}
	}

	h, err := New(Options{
		Paths:          paths,
		Config:         params.Config,
		Args:           args,
		Environ:        environ,
		UserConfigPath: userConfigPath,
		Modules:        params.Modules,
		Platform:       params.Platform,
		SourceRoot:     f.SourceRoot,
		BuildRoot:      f.BuildRoot,
		Out:            params.Out,
		Logger:         params.Logger,
		Backend:        params.Backend,
	})
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(entry); err == nil {
		if err := h.Include(entry); err != nil {
			return nil, err
		}
	}
	return h, nil
}
