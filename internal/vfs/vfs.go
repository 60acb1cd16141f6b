// Package vfs implements the virtual filesystem the harness substitutes
// for the real one. Existence queries are answered from a fixed synthetic
// path set; only paths under the trusted source and build roots are
// allowed to fall through to a real backend.
package vfs

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Normalize converts p to the canonical form used for every path
// comparison in the harness: absolute, slash-separated, cleaned.
func Normalize(p string) string {
	p = filepath.ToSlash(p)
	if !path.IsAbs(p) {
		// Relative paths are anchored at the root rather than the
		// process working directory so that normalization never
		// depends on ambient state.
		p = "/" + p
	}
	return path.Clean(p)
}

// VFS answers existence and file-type queries for the harness. Synthetic
// paths always exist; paths under one of the trusted roots delegate to
// the backend; everything else is absent. A VFS is immutable after New.
type VFS struct {
	synthetic map[string]struct{}
	roots     []string
	backend   afero.Fs
}

// New builds a VFS over the given synthetic paths and trusted roots.
// backend is the filesystem consulted for trusted paths; nil means the
// real operating-system filesystem.
func New(paths []string, roots []string, backend afero.Fs) *VFS {
	if backend == nil {
		backend = afero.NewOsFs()
	}
	synthetic := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		synthetic[Normalize(p)] = struct{}{}
	}
	normRoots := make([]string, 0, len(roots))
	for _, r := range roots {
		if r != "" {
			normRoots = append(normRoots, Normalize(r))
		}
	}
	return &VFS{
		synthetic: synthetic,
		roots:     normRoots,
		backend:   backend,
	}
}

// Exists reports whether p exists in the virtual filesystem.
func (v *VFS) Exists(p string) bool {
	p = Normalize(p)
	if _, ok := v.synthetic[p]; ok {
		return true
	}
	if v.trusted(p) {
		ok, err := afero.Exists(v.backend, p)
		return err == nil && ok
	}
	return false
}

// IsFile reports whether p exists and is a regular file.
func (v *VFS) IsFile(p string) bool {
	p = Normalize(p)
	if _, ok := v.synthetic[p]; ok {
		return true
	}
	if v.trusted(p) {
		info, err := v.backend.Stat(p)
		return err == nil && !info.IsDir()
	}
	return false
}

// trusted reports whether p is equal to or below one of the trusted
// roots. p must already be normalized.
func (v *VFS) trusted(p string) bool {
	for _, root := range v.roots {
		if p == root || strings.HasPrefix(p, root+"/") {
			return true
		}
	}
	return false
}
