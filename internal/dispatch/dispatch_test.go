package dispatch

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confkit/internal/platform"
	"confkit/internal/vfs"
)

// handlerReturning builds a handler with a fixed outcome.
func handlerReturning(code int, stdout, stderr string) Handler {
	return func(string, []string) (int, string, string) {
		return code, stdout, stderr
	}
}

func newDispatcher(t *testing.T, cfg Config) *Dispatcher {
	t.Helper()
	if cfg.VFS == nil {
		paths := make([]string, 0, len(cfg.Registry))
		for p := range cfg.Registry {
			paths = append(paths, p)
		}
		cfg.VFS = vfs.New(paths, nil, afero.NewMemMapFs())
	}
	return New(cfg, zerolog.Nop())
}

func TestWhichFindsOnSearchPath(t *testing.T) {
	d := newDispatcher(t, Config{
		Registry: map[string]Handler{
			"/usr/bin/true": handlerReturning(0, "", ""),
		},
		SearchPath: []string{"/opt/bin", "/usr/bin"},
	})

	path, ok := d.Which("true")
	require.True(t, ok)
	assert.Equal(t, "/usr/bin/true", path)
}

func TestWhichExplicitDirsOverrideSearchPath(t *testing.T) {
	d := newDispatcher(t, Config{
		Registry: map[string]Handler{
			"/opt/bin/cc": handlerReturning(0, "", ""),
		},
		SearchPath: []string{"/usr/bin"},
	})

	_, ok := d.Which("cc")
	assert.False(t, ok, "not on the stored search path")

	path, ok := d.Which("cc", "/opt/bin")
	require.True(t, ok)
	assert.Equal(t, "/opt/bin/cc", path)
}

func TestWhichAppendsExecutableSuffix(t *testing.T) {
	d := newDispatcher(t, Config{
		Registry: map[string]Handler{
			"/tools/cl.exe": handlerReturning(0, "", ""),
		},
		SearchPath: []string{"/tools"},
		Platform:   platform.Windows,
	})

	path, ok := d.Which("cl")
	require.True(t, ok)
	assert.Equal(t, "/tools/cl.exe", path)
}

func TestWhichNotFound(t *testing.T) {
	d := newDispatcher(t, Config{SearchPath: []string{"/usr/bin"}})

	_, ok := d.Which("missing-tool")
	assert.False(t, ok)
}

func TestRunReturnsHandlerOutcomeUnmodified(t *testing.T) {
	d := newDispatcher(t, Config{
		Registry: map[string]Handler{
			"/usr/bin/cc": handlerReturning(3, "out", "err"),
		},
		SearchPath: []string{"/usr/bin"},
	})

	proc, err := d.Run([]string{"cc", "--version"}, "")
	require.NoError(t, err)

	stdout, stderr := proc.Communicate()
	assert.Equal(t, "out", stdout)
	assert.Equal(t, "err", stderr)
	assert.Equal(t, 3, proc.Wait())
}

func TestRunHandlerReceivesStdinAndArgs(t *testing.T) {
	var gotStdin string
	var gotArgs []string
	d := newDispatcher(t, Config{
		Registry: map[string]Handler{
			"/usr/bin/sort": func(stdin string, args []string) (int, string, string) {
				gotStdin = stdin
				gotArgs = args
				return 0, "", ""
			},
		},
		SearchPath: []string{"/usr/bin"},
	})

	_, err := d.Run([]string{"sort", "-r", "-n"}, "b\na\n")
	require.NoError(t, err)
	assert.Equal(t, "b\na\n", gotStdin)
	assert.Equal(t, []string{"-r", "-n"}, gotArgs)
}

func TestRunCommandNotFound(t *testing.T) {
	d := newDispatcher(t, Config{SearchPath: []string{"/usr/bin"}})

	_, err := d.Run([]string{"missing-tool"}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist, "carries no-such-file semantics")
}

func TestOutputReturnsStdout(t *testing.T) {
	d := newDispatcher(t, Config{
		Registry: map[string]Handler{
			"/usr/bin/uname": handlerReturning(0, "Linux\n", ""),
		},
		SearchPath: []string{"/usr/bin"},
	})

	out, err := d.Output([]string{"uname"})
	require.NoError(t, err)
	assert.Equal(t, "Linux\n", out)
}

func TestOutputNonZeroExit(t *testing.T) {
	d := newDispatcher(t, Config{
		Registry: map[string]Handler{
			"/usr/bin/cc": handlerReturning(2, "partial", "boom"),
		},
		SearchPath: []string{"/usr/bin"},
	})

	_, err := d.Output([]string{"cc", "conftest.c"})
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.Equal(t, []string{"cc", "conftest.c"}, exitErr.Args)
	assert.Equal(t, "partial", exitErr.Stdout)
}

func TestShellIndirectionInvokesScriptHandler(t *testing.T) {
	d := newDispatcher(t, Config{
		Registry: map[string]Handler{
			"/bin/sh": nil, // shell itself needs no handler
			"/src/build/autoconf/config.guess": func(_ string, args []string) (int, string, string) {
				return 0, "x86_64-pc-linux-gnu", ""
			},
		},
		SearchPath: []string{"/bin"},
		ShellPath:  "/bin/sh",
	})

	proc, err := d.Run([]string{"sh", "/src/build/autoconf/config.guess"}, "")
	require.NoError(t, err)
	stdout, _ := proc.Communicate()
	assert.Equal(t, "x86_64-pc-linux-gnu", stdout)
	assert.Equal(t, 0, proc.Wait())
}

func TestShellIndirectionUnregisteredScript(t *testing.T) {
	d := newDispatcher(t, Config{
		Registry:   map[string]Handler{"/bin/sh": nil},
		SearchPath: []string{"/bin"},
		ShellPath:  "/bin/sh",
	})

	proc, err := d.Run([]string{"sh", "/no/such/script"}, "")
	require.NoError(t, err, "missing script is a result, not an error")
	stdout, stderr := proc.Communicate()
	assert.Equal(t, 127, proc.Wait())
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "not found")
}

func TestExistenceMarkerDispatchesAsSilentSuccess(t *testing.T) {
	d := newDispatcher(t, Config{
		Registry:   map[string]Handler{"/usr/bin/touchstone": nil},
		SearchPath: []string{"/usr/bin"},
	})

	proc, err := d.Run([]string{"touchstone"}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, proc.Wait())
}
