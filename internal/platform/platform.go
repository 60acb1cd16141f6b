// Package platform holds the per-target-platform conventions the harness
// models: executable naming, PATH splitting, and the legacy short-path
// transformation. Only two targets are supported.
package platform

import "strings"

// Platform selects which operating system conventions the harness
// simulates. It is fixed at harness construction and independent of the
// OS the tests actually run on.
type Platform int

const (
	// Posix models a POSIX-like system: no executable suffix,
	// colon-separated search paths.
	Posix Platform = iota
	// Windows models the legacy Windows API surface: ".exe" suffix,
	// semicolon-separated search paths, 8.3 short path names.
	Windows
)

// String returns the platform name.
func (p Platform) String() string {
	if p == Windows {
		return "windows"
	}
	return "posix"
}

// Parse converts a platform name to a Platform. Unknown names map to
// Posix.
func Parse(name string) Platform {
	if strings.EqualFold(name, "windows") {
		return Windows
	}
	return Posix
}

// ExeSuffix returns the suffix appended to executable candidates that a
// caller may omit when naming a command.
func (p Platform) ExeSuffix() string {
	if p == Windows {
		return ".exe"
	}
	return ""
}

// ListSeparator returns the separator used to split search-path
// environment variables.
func (p Platform) ListSeparator() string {
	if p == Windows {
		return ";"
	}
	return ":"
}

// ShortPath returns the 8.3-style abbreviation of path on Windows and
// path unchanged elsewhere. Each slash-separated segment containing a
// space is truncated to its first word plus "~1". This is a documented
// approximation of the real API: it ignores collision numbering and the
// 8-character limit, which is enough to validate that callers tolerate
// short names at all.
func (p Platform) ShortPath(path string) string {
	if p != Windows {
		return path
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if idx := strings.IndexByte(seg, ' '); idx >= 0 {
			segments[i] = seg[:idx] + "~1"
		}
	}
	return strings.Join(segments, "/")
}
