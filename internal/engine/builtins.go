package engine

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// builtinImport covers the imports unrelated to OS or process
// interaction; these are the engine's own and are never intercepted by
// the harness.
func (e *Engine) builtinImport(name string) (any, bool) {
	switch name {
	case "version":
		return &VersionModule{}, true
	}
	return nil, false
}

// VersionModule compares tool version strings. Configure scripts
// conventionally gate features on the versions reported by probed
// programs.
type VersionModule struct{}

func parseVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("engine: invalid version %q: %w", s, err)
	}
	return v, nil
}

// AtLeast reports whether got is the same version as want or newer.
func (m *VersionModule) AtLeast(got, want string) (bool, error) {
	gv, err := parseVersion(got)
	if err != nil {
		return false, err
	}
	wv, err := parseVersion(want)
	if err != nil {
		return false, err
	}
	return !gv.LessThan(wv), nil
}

// Compare returns -1, 0 or 1 ordering a against b.
func (m *VersionModule) Compare(a, b string) (int, error) {
	av, err := parseVersion(a)
	if err != nil {
		return 0, err
	}
	bv, err := parseVersion(b)
	if err != nil {
		return 0, err
	}
	return av.Compare(bv), nil
}
