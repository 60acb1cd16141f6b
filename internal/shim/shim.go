// Package shim intercepts the evaluation engine's imports of external
// capabilities and substitutes fakes built on the virtual filesystem and
// the command dispatcher. The set of intercepted names is a closed
// enumeration; anything else falls through to the engine's own resolver.
package shim

import (
	"confkit/internal/dispatch"
	"confkit/internal/platform"
	"confkit/internal/vfs"
)

// Import names in the closed enumeration.
const (
	ImportSubprocess   = "subprocess"
	ImportWhich        = "which"
	ImportOSPath       = "os.path"
	ImportOSPathExists = "os.path.exists"
	ImportOSPathIsFile = "os.path.isfile"
	ImportWinreg       = "winreg"
	ImportNative       = "native"
)

// Resolver maps known import names to fake modules. A caller-supplied
// override map is consulted before the built-ins, so tests can replace
// any import wholesale.
type Resolver struct {
	subprocess *Subprocess
	ospath     *OSPath
	winreg     *Winreg
	native     *Native
	platform   platform.Platform
	overrides  map[string]any
}

// New builds a Resolver over the given backing layers. overrides may be
// nil.
func New(v *vfs.VFS, d *dispatch.Dispatcher, p platform.Platform, overrides map[string]any) *Resolver {
	return &Resolver{
		subprocess: &Subprocess{dispatcher: d},
		ospath:     &OSPath{vfs: v},
		winreg:     &Winreg{},
		native:     &Native{platform: p},
		platform:   p,
		overrides:  overrides,
	}
}

// Resolve returns the fake module registered for name. The boolean is
// false when name is outside both the override map and the enumeration,
// in which case the caller's own default resolver applies. The registry
// and native-call fakes exist only on the Windows platform.
func (r *Resolver) Resolve(name string) (any, bool) {
	if m, ok := r.overrides[name]; ok {
		return m, true
	}
	switch name {
	case ImportSubprocess:
		return r.subprocess, true
	case ImportWhich:
		return whichFunc(r.subprocess.dispatcher), true
	case ImportOSPath:
		return r.ospath, true
	case ImportOSPathExists:
		return r.ospath.vfs.Exists, true
	case ImportOSPathIsFile:
		return r.ospath.vfs.IsFile, true
	case ImportWinreg:
		if r.platform == platform.Windows {
			return r.winreg, true
		}
	case ImportNative:
		if r.platform == platform.Windows {
			return r.native, true
		}
	}
	return nil, false
}
