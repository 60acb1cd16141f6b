// Package dispatch routes command execution to test-supplied handler
// functions instead of spawning processes. Command names resolve against
// a search path using the virtual filesystem, then dispatch through a
// registry keyed by absolute executable path.
package dispatch

import (
	"fmt"

	"github.com/rs/zerolog"

	"confkit/internal/platform"
	"confkit/internal/vfs"
)

// Handler stands in for an external program. It receives the content of
// standard input and the arguments after the program name, and returns
// the exit code and the captured output streams. The dispatcher treats
// handlers as opaque and delivers their outcome unchanged.
type Handler func(stdin string, args []string) (code int, stdout, stderr string)

// Config holds everything a Dispatcher needs at construction.
type Config struct {
	// VFS answers the existence probes behind command resolution.
	VFS *vfs.VFS
	// Registry maps absolute executable paths to handlers. Keys are
	// normalized by New.
	Registry map[string]Handler
	// SearchPath is the ordered directory list used when Which is
	// called without explicit directories.
	SearchPath []string
	// ShellPath is the designated shell interpreter; dispatching it
	// triggers script indirection instead of a direct handler call.
	ShellPath string
	// Platform supplies the executable-suffix rule.
	Platform platform.Platform
}

// Dispatcher resolves command names and invokes registered handlers. It
// is immutable after New and safe to share within a single test case.
type Dispatcher struct {
	vfs        *vfs.VFS
	registry   map[string]Handler
	searchPath []string
	shellPath  string
	platform   platform.Platform
	logger     zerolog.Logger
}

// New builds a Dispatcher from cfg. Registry keys are normalized; later
// duplicates overwrite earlier ones.
func New(cfg Config, logger zerolog.Logger) *Dispatcher {
	registry := make(map[string]Handler, len(cfg.Registry))
	for p, h := range cfg.Registry {
		registry[vfs.Normalize(p)] = h
	}
	shellPath := cfg.ShellPath
	if shellPath != "" {
		shellPath = vfs.Normalize(shellPath)
	}
	return &Dispatcher{
		vfs:        cfg.VFS,
		registry:   registry,
		searchPath: cfg.SearchPath,
		shellPath:  shellPath,
		platform:   cfg.Platform,
		logger:     logger,
	}
}

// Which resolves command to an absolute executable path. Each directory
// is tried in order; for every directory both the bare name and the name
// with the platform executable suffix are probed. When no directories
// are given the dispatcher's stored search path is used.
func (d *Dispatcher) Which(command string, dirs ...string) (string, bool) {
	if len(dirs) == 0 {
		dirs = d.searchPath
	}
	suffix := d.platform.ExeSuffix()
	for _, dir := range dirs {
		candidate := vfs.Normalize(dir + "/" + command)
		for _, c := range []string{candidate, candidate + suffix} {
			if d.vfs.Exists(c) {
				return c, true
			}
			if suffix == "" {
				break
			}
		}
	}
	return "", false
}

// Process is the handle returned by Run. It mirrors the two-step
// interaction of a real process handle: collect the output streams, then
// retrieve the exit code.
type Process struct {
	code   int
	stdout string
	stderr string
}

// Communicate returns the captured stdout and stderr.
func (p *Process) Communicate() (stdout, stderr string) {
	return p.stdout, p.stderr
}

// Wait returns the exit code.
func (p *Process) Wait() int {
	return p.code
}

// Run resolves argv[0] on the search path and invokes its registered
// handler with stdin and argv[1:]. An unresolvable command yields a
// *CommandNotFoundError.
func (d *Dispatcher) Run(argv []string, stdin string) (*Process, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("dispatch: empty argument vector")
	}
	program, ok := d.Which(argv[0])
	if !ok {
		return nil, &CommandNotFoundError{Command: argv[0]}
	}

	handler := d.handlerFor(program)
	code, stdout, stderr := handler(stdin, argv[1:])
	d.logger.Debug().
		Str("program", program).
		Strs("args", argv[1:]).
		Int("code", code).
		Msg("dispatched command")

	return &Process{code: code, stdout: stdout, stderr: stderr}, nil
}

// Output runs argv and returns its stdout. A non-zero exit code yields
// an *ExitError carrying the code, arguments, and captured stdout.
func (d *Dispatcher) Output(argv []string) (string, error) {
	proc, err := d.Run(argv, "")
	if err != nil {
		return "", err
	}
	stdout, _ := proc.Communicate()
	if code := proc.Wait(); code != 0 {
		return "", &ExitError{Code: code, Args: argv, Stdout: stdout}
	}
	return stdout, nil
}

// handlerFor returns the handler registered for program. The shell
// interpreter gets the indirection handler; paths registered as bare
// existence markers (no handler) degrade to a silent success so that
// "file exists but does nothing" stays usable as a probe target.
func (d *Dispatcher) handlerFor(program string) Handler {
	if program == d.shellPath {
		return d.shell
	}
	if h, ok := d.registry[program]; ok && h != nil {
		return h
	}
	return func(string, []string) (int, string, string) {
		return 0, "", ""
	}
}

// shell models "the shell interpreting a script" as one more registry
// lookup: the first argument names the script, whose handler receives
// the remaining arguments. An unregistered script reports the shell's
// own convention for a missing file rather than failing the dispatch.
func (d *Dispatcher) shell(stdin string, args []string) (int, string, string) {
	if len(args) == 0 {
		return 0, "", ""
	}
	script := vfs.Normalize(args[0])
	if h, ok := d.registry[script]; ok && h != nil {
		return h(stdin, args[1:])
	}
	return 127, "", fmt.Sprintf("%s: not found", script)
}
