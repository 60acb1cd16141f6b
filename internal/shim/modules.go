package shim

import (
	"fmt"

	"confkit/internal/dispatch"
	"confkit/internal/platform"
	"confkit/internal/vfs"
)

// Subprocess is the fake process-spawning module. Exit codes and output
// come from registered handlers; nothing is ever spawned.
type Subprocess struct {
	dispatcher *dispatch.Dispatcher
}

// Popen dispatches argv and returns the process handle. Extra stdin
// content may be passed as a single optional argument.
func (s *Subprocess) Popen(argv []string, stdin ...string) (*dispatch.Process, error) {
	var input string
	if len(stdin) > 0 {
		input = stdin[0]
	}
	return s.dispatcher.Run(argv, input)
}

// CheckOutput dispatches argv and returns its stdout, failing when the
// handler reports a non-zero exit code.
func (s *Subprocess) CheckOutput(argv []string) (string, error) {
	return s.dispatcher.Output(argv)
}

// whichFunc adapts Dispatcher.Which to the executable-finder import: it
// returns the resolved path, or nil when the command is not found.
func whichFunc(d *dispatch.Dispatcher) func(command string, dirs ...string) any {
	return func(command string, dirs ...string) any {
		if path, ok := d.Which(command, dirs...); ok {
			return path
		}
		return nil
	}
}

// OSPath is the fake file-probing module, answering entirely from the
// virtual filesystem.
type OSPath struct {
	vfs *vfs.VFS
}

// Exists reports whether path exists in the virtual filesystem.
func (o *OSPath) Exists(path string) bool {
	return o.vfs.Exists(path)
}

// IsFile reports whether path is a regular file in the virtual
// filesystem.
func (o *OSPath) IsFile(path string) bool {
	return o.vfs.IsFile(path)
}

// KeyNotFoundError is the only failure the fake registry produces.
// Engine code that handles a missing registry key behaves identically
// under test; no registry content is emulated.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("shim: registry key not found: %s", e.Key)
}

// Is implements errors.Is for KeyNotFoundError.
func (e *KeyNotFoundError) Is(target error) bool {
	_, ok := target.(*KeyNotFoundError)
	return ok
}

// ErrKeyNotFound is a sentinel for errors.Is matching.
var ErrKeyNotFound = &KeyNotFoundError{}

// RegistryKey is the success type of Winreg.OpenKey. The fake never
// constructs one.
type RegistryKey struct{}

// Winreg is the fake platform-registry module.
type Winreg struct {
	// HKLM mirrors the conventional root-key constant so scripts can
	// pass it without caring about its value.
	HKLM int `json:"HKEY_LOCAL_MACHINE"`
}

// OpenKey always reports the key as absent.
func (w *Winreg) OpenKey(root int, key string) (*RegistryKey, error) {
	return nil, &KeyNotFoundError{Key: key}
}

// Native is the fake native-call module. It wraps arbitrary callables
// transparently and provides the one concrete platform call the engine
// is known to use.
type Native struct {
	platform platform.Platform
}

// Wrap returns fn unchanged; real native-call layers decorate functions,
// the fake only needs to preserve them.
func (n *Native) Wrap(fn any) any {
	return fn
}

// ShortPathName returns the 8.3-style abbreviation of path. See
// platform.Platform.ShortPath for the approximation this makes.
func (n *Native) ShortPathName(path string) string {
	return n.platform.ShortPath(path)
}
