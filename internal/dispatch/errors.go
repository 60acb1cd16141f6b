package dispatch

import (
	"fmt"
	"io/fs"
	"strings"
)

// CommandNotFoundError is returned by Run when argv[0] cannot be resolved
// to any executable on the search path. It unwraps to fs.ErrNotExist so
// callers can match it with the conventional "no such file" check.
type CommandNotFoundError struct {
	Command string
}

func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("dispatch: command not found: %s", e.Command)
}

// Unwrap makes errors.Is(err, fs.ErrNotExist) true.
func (e *CommandNotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

// Is implements errors.Is for CommandNotFoundError.
func (e *CommandNotFoundError) Is(target error) bool {
	_, ok := target.(*CommandNotFoundError)
	return ok
}

// ErrCommandNotFound is a sentinel for errors.Is matching.
var ErrCommandNotFound = &CommandNotFoundError{}

// ExitError is returned by Output when a dispatched handler reports a
// non-zero exit code. It carries the code, the full argument vector, and
// the captured stdout for diagnostics.
type ExitError struct {
	Code   int
	Args   []string
	Stdout string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("dispatch: command %q failed with exit code %d", strings.Join(e.Args, " "), e.Code)
}

// Is implements errors.Is for ExitError.
func (e *ExitError) Is(target error) bool {
	_, ok := target.(*ExitError)
	return ok
}

// ErrExit is a sentinel for errors.Is matching.
var ErrExit = &ExitError{}
