package shim

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confkit/internal/dispatch"
	"confkit/internal/platform"
	"confkit/internal/vfs"
)

func newResolver(t *testing.T, p platform.Platform, overrides map[string]any) *Resolver {
	t.Helper()
	registry := map[string]dispatch.Handler{
		"/usr/bin/uname": func(string, []string) (int, string, string) {
			return 0, "Linux\n", ""
		},
		"/usr/bin/false": func(string, []string) (int, string, string) {
			return 1, "", "no"
		},
	}
	paths := make([]string, 0, len(registry))
	for path := range registry {
		paths = append(paths, path)
	}
	v := vfs.New(paths, nil, afero.NewMemMapFs())
	d := dispatch.New(dispatch.Config{
		VFS:        v,
		Registry:   registry,
		SearchPath: []string{"/usr/bin"},
		Platform:   p,
	}, zerolog.Nop())
	return New(v, d, p, overrides)
}

func TestResolveSubprocess(t *testing.T) {
	r := newResolver(t, platform.Posix, nil)

	mod, ok := r.Resolve(ImportSubprocess)
	require.True(t, ok)
	sub, ok := mod.(*Subprocess)
	require.True(t, ok)

	proc, err := sub.Popen([]string{"uname"})
	require.NoError(t, err)
	stdout, stderr := proc.Communicate()
	assert.Equal(t, "Linux\n", stdout)
	assert.Empty(t, stderr)
	assert.Equal(t, 0, proc.Wait())

	out, err := sub.CheckOutput([]string{"uname"})
	require.NoError(t, err)
	assert.Equal(t, "Linux\n", out)

	_, err = sub.CheckOutput([]string{"false"})
	assert.ErrorIs(t, err, dispatch.ErrExit)
}

func TestResolveWhich(t *testing.T) {
	r := newResolver(t, platform.Posix, nil)

	mod, ok := r.Resolve(ImportWhich)
	require.True(t, ok)
	which, ok := mod.(func(string, ...string) any)
	require.True(t, ok)

	assert.Equal(t, "/usr/bin/uname", which("uname"))
	assert.Nil(t, which("missing-tool"))
}

func TestResolveOSPath(t *testing.T) {
	r := newResolver(t, platform.Posix, nil)

	mod, ok := r.Resolve(ImportOSPath)
	require.True(t, ok)
	osPath, ok := mod.(*OSPath)
	require.True(t, ok)

	assert.True(t, osPath.Exists("/usr/bin/uname"))
	assert.True(t, osPath.IsFile("/usr/bin/uname"))
	assert.False(t, osPath.Exists("/etc/hosts"))

	exists, ok := r.Resolve(ImportOSPathExists)
	require.True(t, ok)
	assert.True(t, exists.(func(string) bool)("/usr/bin/uname"))

	isfile, ok := r.Resolve(ImportOSPathIsFile)
	require.True(t, ok)
	assert.False(t, isfile.(func(string) bool)("/nope"))
}

func TestWinregOpenKeyAlwaysNotFound(t *testing.T) {
	r := newResolver(t, platform.Windows, nil)

	mod, ok := r.Resolve(ImportWinreg)
	require.True(t, ok)
	reg := mod.(*Winreg)

	key, err := reg.OpenKey(reg.HKLM, `SOFTWARE\Microsoft\VisualStudio`)
	assert.Nil(t, key)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestNativeShortPathName(t *testing.T) {
	r := newResolver(t, platform.Windows, nil)

	mod, ok := r.Resolve(ImportNative)
	require.True(t, ok)
	native := mod.(*Native)

	assert.Equal(t, "C:/Program~1/cc.exe", native.ShortPathName("C:/Program Files/cc.exe"))

	fn := func() int { return 42 }
	wrapped := native.Wrap(fn)
	assert.Equal(t, 42, wrapped.(func() int)())
}

func TestPlatformGatedImports(t *testing.T) {
	r := newResolver(t, platform.Posix, nil)

	_, ok := r.Resolve(ImportWinreg)
	assert.False(t, ok, "winreg is Windows-only")
	_, ok = r.Resolve(ImportNative)
	assert.False(t, ok, "native is Windows-only")
}

func TestOverridesWinOverBuiltins(t *testing.T) {
	fake := struct{ Name string }{"fake"}
	r := newResolver(t, platform.Posix, map[string]any{
		ImportSubprocess: fake,
		"custom.module":  "custom",
	})

	mod, ok := r.Resolve(ImportSubprocess)
	require.True(t, ok)
	assert.Equal(t, fake, mod)

	mod, ok = r.Resolve("custom.module")
	require.True(t, ok)
	assert.Equal(t, "custom", mod)
}

func TestUnknownImportFallsThrough(t *testing.T) {
	r := newResolver(t, platform.Posix, nil)

	_, ok := r.Resolve("json")
	assert.False(t, ok)
}
