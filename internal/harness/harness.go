// Package harness assembles the virtual filesystem, the command
// dispatcher, the import shim, and the evaluation engine into a drop-in
// execution environment for configure-script tests, and provides the
// on-demand single-value resolution the engine itself does not expose.
package harness

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"confkit/internal/dispatch"
	"confkit/internal/engine"
	"confkit/internal/platform"
	"confkit/internal/shim"
	"confkit/internal/vfs"
)

// Environment keys the harness injects or honors.
const (
	// EnvConfigShell names the shell interpreter; defaulted when the
	// caller does not set it.
	EnvConfigShell = "CONFIG_SHELL"
	// EnvBuildDir names the configuration-output directory.
	EnvBuildDir = "BUILD_DIR"
	// EnvUserConfig names the user configuration-override file.
	EnvUserConfig = "USER_CONFIG"
	// EnvConfigureScript names the build-script entry point.
	EnvConfigureScript = "CONFIGURE_SCRIPT"
)

// DefaultShell is the shell interpreter path used when CONFIG_SHELL is
// absent from the supplied environment.
const DefaultShell = "/bin/sh"

// probeHelperPath is where the platform-probe helper is pre-registered,
// relative to the source root. Its handler reports an empty result set.
const probeHelperPath = "build/win32/vswhere.exe"

// Options holds every construction input of a Harness.
type Options struct {
	// Paths maps absolute paths to handlers. A nil handler marks a
	// path that merely exists.
	Paths map[string]dispatch.Handler
	// Config seeds the configuration being built.
	Config map[string]any
	// Args is the command-line argument vector for the evaluation.
	Args []string
	// Environ is the starting environment. It is copied; the caller's
	// map is never mutated.
	Environ map[string]string
	// UserConfigPath, when set, names a configuration-override file
	// applied during construction (environment defaults and extra
	// arguments).
	UserConfigPath string
	// Modules overrides individual imports ahead of the shim's
	// built-in fakes.
	Modules map[string]any
	// Platform selects the simulated operating system conventions.
	Platform platform.Platform
	// SourceRoot and BuildRoot are the two trusted roots under which
	// real filesystem access passes through.
	SourceRoot string
	BuildRoot  string
	// Out receives script log lines. May be nil.
	Out io.Writer
	// Logger receives structured events from every layer.
	Logger zerolog.Logger
	// Backend is the filesystem behind the trusted roots; nil means
	// the real one.
	Backend afero.Fs
}

// Harness is a fully wired test environment around one evaluation
// engine. It lives for a single test case.
type Harness struct {
	engine     *engine.Engine
	vfs        *vfs.VFS
	dispatcher *dispatch.Dispatcher
	shim       *shim.Resolver
	environ    map[string]string
	logger     zerolog.Logger
}

// New builds a Harness from opts. The registry, the virtual filesystem,
// and the search path are fixed here and immutable afterwards.
func New(opts Options) (*Harness, error) {
	environ := make(map[string]string, len(opts.Environ))
	for k, v := range opts.Environ {
		environ[k] = v
	}

	args := append([]string(nil), opts.Args...)
	if opts.UserConfigPath != "" {
		environ[EnvUserConfig] = opts.UserConfigPath
		extraArgs, err := applyUserConfig(opts.UserConfigPath, environ)
		if err != nil {
			return nil, err
		}
		args = append(args, extraArgs...)
	}

	if _, ok := environ[EnvConfigShell]; !ok {
		environ[EnvConfigShell] = DefaultShell
	}
	if opts.BuildRoot != "" {
		environ[EnvBuildDir] = opts.BuildRoot
	}
	shellPath := vfs.Normalize(environ[EnvConfigShell])

	registry := make(map[string]dispatch.Handler, len(opts.Paths)+2)
	synthetic := make([]string, 0, len(opts.Paths)+2)
	for p, h := range opts.Paths {
		p = vfs.Normalize(p)
		registry[p] = h
		synthetic = append(synthetic, p)
	}
	if _, ok := registry[shellPath]; !ok {
		registry[shellPath] = nil
		synthetic = append(synthetic, shellPath)
	}
	if opts.SourceRoot != "" {
		probe := vfs.Normalize(opts.SourceRoot + "/" + probeHelperPath)
		registry[probe] = func(string, []string) (int, string, string) {
			return 0, "[]", ""
		}
		synthetic = append(synthetic, probe)
	}

	v := vfs.New(synthetic, []string{opts.SourceRoot, opts.BuildRoot}, opts.Backend)
	d := dispatch.New(dispatch.Config{
		VFS:        v,
		Registry:   registry,
		SearchPath: splitSearchPath(environ["PATH"], opts.Platform),
		ShellPath:  shellPath,
		Platform:   opts.Platform,
	}, opts.Logger)
	resolver := shim.New(v, d, opts.Platform, opts.Modules)

	eng, err := engine.New(engine.Config{
		Args:    args,
		Environ: environ,
		Config:  opts.Config,
		Imports: resolver.Resolve,
		Out:     opts.Out,
		Logger:  opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("harness: %w", err)
	}

	return &Harness{
		engine:     eng,
		vfs:        v,
		dispatcher: d,
		shim:       resolver,
		environ:    environ,
		logger:     opts.Logger,
	}, nil
}

// splitSearchPath derives the immutable search path from the PATH
// variable, using the simulated platform's list separator.
func splitSearchPath(pathVar string, p platform.Platform) []string {
	if pathVar == "" {
		return nil
	}
	return strings.Split(pathVar, p.ListSeparator())
}

// applyUserConfig reads a configuration-override file. "NAME=value"
// lines become environment defaults (an existing entry wins), and
// "add_options <arg>" lines contribute extra command-line arguments.
// Blank lines and "#" comments are skipped.
func applyUserConfig(path string, environ map[string]string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("harness: read user config: %w", err)
	}

	var args []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if arg, ok := strings.CutPrefix(line, "add_options "); ok {
			args = append(args, strings.TrimSpace(arg))
			continue
		}
		if name, value, ok := strings.Cut(line, "="); ok {
			name = strings.TrimSpace(name)
			if _, exists := environ[name]; !exists {
				environ[name] = strings.TrimSpace(value)
			}
			continue
		}
		return nil, fmt.Errorf("harness: malformed user config line: %q", line)
	}
	return args, nil
}

// ResolveOne evaluates exactly the pending work needed to produce the
// configuration value name, in the engine's own queue order, and no
// more. The boolean reports whether a value is now committed for name.
func (h *Harness) ResolveOne(name string) (any, bool, error) {
	return h.engine.ResolveOne(name)
}

// Include evaluates the configure entry script at path.
func (h *Harness) Include(path string) error {
	return h.engine.Include(path)
}

// RunScript evaluates src directly, without touching any filesystem.
func (h *Harness) RunScript(name, src string) error {
	return h.engine.RunScript(name, src)
}

// Run drains the engine's remaining queue.
func (h *Harness) Run() error {
	return h.engine.Run()
}

// Get returns a committed configuration value.
func (h *Harness) Get(name string) (any, bool) {
	return h.engine.Get(name)
}

// Snapshot returns a copy of the configuration committed so far.
func (h *Harness) Snapshot() map[string]any {
	return h.engine.Snapshot()
}

// Environ returns a copy of the harness environment after injection.
func (h *Harness) Environ() map[string]string {
	out := make(map[string]string, len(h.environ))
	for k, v := range h.environ {
		out[k] = v
	}
	return out
}

// VFS exposes the read-only virtual filesystem view.
func (h *Harness) VFS() *vfs.VFS {
	return h.vfs
}

// Dispatcher exposes the read-only command dispatcher view.
func (h *Harness) Dispatcher() *dispatch.Dispatcher {
	return h.dispatcher
}
