/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package vfs

import (
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Operation failure sentinels for the VFS contract table in spec §4.1.
// These are operation-level validation errors, distinct from the seven
// pipeline-wide errs.Kind values -- they are local to a single VFS method
// call and never escape to a caller that needs to branch on pipeline
// phase, so plain sentinel errors (as gravwell's filewatch.ErrNotRunning
// does) fit better than wrapping them in *errs.Error.
var (
	ErrDuplicatePath  = errors.New("vfs: path already present")
	ErrMalformedPath  = errors.New("vfs: path is not canonical")
	ErrMissingPath    = errors.New("vfs: path not present")
	ErrDuplicateMount = errors.New("vfs: mount point already registered")
)

// VFS is the path -> FilePolicy and path -> MountPoint mapping of spec §3.
// Not safe for concurrent use; per spec §5 it is owned exclusively by the
// init interpreter during boot simulation and by the label resolver
// thereafter.
type VFS struct {
	files  map[string]*FilePolicy
	mounts map[string]MountPoint
}

func NewVFS() *VFS {
	return &VFS{
		files:  make(map[string]*FilePolicy),
		mounts: make(map[string]MountPoint),
	}
}

// Canonicalize normalizes p: absolute, path.Clean'd, no trailing slash
// except for root itself. Spec §3: "Paths are pre-normalized; no trailing
// slash except root."
func Canonicalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	c := path.Clean(p)
	if c == "." {
		return "/"
	}
	return c
}

// Add inserts fp at path, which must not already be present.
func (v *VFS) Add(p string, fp FilePolicy) error {
	cp := Canonicalize(p)
	if cp != p {
		return ErrMalformedPath
	}
	if _, ok := v.files[cp]; ok {
		return ErrDuplicatePath
	}
	f := fp
	v.files[cp] = &f
	return nil
}

// AddOrUpdate inserts or overwrites fp at path.
func (v *VFS) AddOrUpdate(p string, fp FilePolicy) error {
	cp := Canonicalize(p)
	if cp != p {
		return ErrMalformedPath
	}
	f := fp
	v.files[cp] = &f
	return nil
}

// Get returns the FilePolicy at path and whether it is present.
func (v *VFS) Get(p string) (*FilePolicy, bool) {
	fp, ok := v.files[Canonicalize(p)]
	return fp, ok
}

// Delete removes path from the VFS, used by the label resolver's drop path
// (spec §4.3: "else drop the file and log").
func (v *VFS) Delete(p string) { delete(v.files, Canonicalize(p)) }

// Mkdir adds a directory at path with mode|ModeDir if absent. Idempotent:
// if path already names a directory, it is left untouched (spec §4.1,
// §8: "mkdir is idempotent").
func (v *VFS) Mkdir(p string, uid, gid int, mode uint32) {
	cp := Canonicalize(p)
	if existing, ok := v.files[cp]; ok && existing.IsDir() {
		return
	}
	v.files[cp] = &FilePolicy{UID: uid, GID: gid, Mode: (mode &^ ModeFmt) | ModeDir}
}

// Chown mutates uid/gid of an existing path.
func (v *VFS) Chown(p string, uid, gid int) error {
	fp, ok := v.files[Canonicalize(p)]
	if !ok {
		return ErrMissingPath
	}
	fp.UID = uid
	fp.GID = gid
	return nil
}

// Chmod replaces the low 12 bits of an existing path's mode; a silent
// no-op if the path is absent (spec §4.1 table).
func (v *VFS) Chmod(p string, mode uint32) {
	fp, ok := v.files[Canonicalize(p)]
	if !ok {
		return
	}
	fp.Mode = (fp.Mode &^ modePermMask) | (mode & modePermMask)
}

// Find returns every path matching the doublestar glob pattern, sorted.
// Spec §4.1: "find(glob) -- returns all matching paths".
func (v *VFS) Find(glob string) []string {
	var out []string
	for p := range v.files {
		// doublestar paths are slash-separated without a leading slash;
		// trim it so patterns are written relative to the root, e.g.
		// "vendor/**/fstab.*". A single "*" does not cross a "/"; use "**"
		// to match at any depth.
		trimmed := strings.TrimPrefix(p, "/")
		if ok, err := doublestar.Match(glob, trimmed); err == nil && ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Paths returns every canonical path in the VFS, sorted.
func (v *VFS) Paths() []string {
	out := make([]string, 0, len(v.files))
	for p := range v.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// AddMountPoint registers a mount at p, which must not already be a mount.
func (v *VFS) AddMountPoint(p, fstype, device string, opts []string) error {
	cp := Canonicalize(p)
	if _, ok := v.mounts[cp]; ok {
		return ErrDuplicateMount
	}
	v.mounts[cp] = MountPoint{FSType: fstype, Device: device, Options: opts}
	return nil
}

// MountPoints returns the mount path -> MountPoint map. The returned map is
// a shared reference; callers must not mutate it.
func (v *VFS) MountPoints() map[string]MountPoint { return v.mounts }

// MountPointFor returns the MountPoint registered at p, if any.
func (v *VFS) MountPointFor(p string) (MountPoint, bool) {
	mp, ok := v.mounts[Canonicalize(p)]
	return mp, ok
}

// Mount grafts other's paths under at, prefixing every one of other's
// canonical paths with at ("other's root becomes at"). FilePolicies are
// preserved by reference (spec §3: "preserves FilePolicies by reference").
// Fails if any resulting path already exists in v.
func (v *VFS) Mount(other *VFS, at string) error {
	cat := Canonicalize(at)
	grafted := make(map[string]*FilePolicy, len(other.files))
	for p, fp := range other.files {
		np := graftPath(cat, p)
		if _, exists := v.files[np]; exists {
			return ErrDuplicatePath
		}
		grafted[np] = fp
	}
	for np, fp := range grafted {
		v.files[np] = fp
	}
	for p, mp := range other.mounts {
		np := graftPath(cat, p)
		if _, exists := v.mounts[np]; !exists {
			v.mounts[np] = mp
		}
	}
	return nil
}

func graftPath(at, p string) string {
	if p == "/" {
		return at
	}
	return Canonicalize(at + p)
}
