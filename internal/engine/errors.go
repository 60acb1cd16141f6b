package engine

import (
	"errors"
	"fmt"
)

// ErrUnknownImport indicates a script requested an import name that no
// resolver (override, shim, or built-in) could satisfy.
var ErrUnknownImport = errors.New("engine: unknown import")

// ScriptError wraps a failure raised while evaluating a configure script
// or one of its queued resolvers.
type ScriptError struct {
	Script string
	Cause  error
}

func (e *ScriptError) Error() string {
	if e.Script != "" {
		return fmt.Sprintf("engine: script error in %s: %v", e.Script, e.Cause)
	}
	return fmt.Sprintf("engine: script error: %v", e.Cause)
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ScriptError.
func (e *ScriptError) Is(target error) bool {
	_, ok := target.(*ScriptError)
	return ok
}

// ErrScript is a sentinel for errors.Is matching.
var ErrScript = &ScriptError{}
