/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package engine

import "github.com/coldbrewsec/macrecon/sepolicy"

// FileRecord is one file the firmware-extraction collaborator yielded for
// a partition (spec §6): "(absolute_logical_path, uid, gid, mode, size,
// symlink_target, xattrs)". HostPath is the already-resolved host-side
// location of the file's content, used to back a vfs.FilePolicy's
// OriginalPath so the init interpreter and label resolver can read it.
type FileRecord struct {
	Path       string
	UID        int
	GID        int
	Mode       uint32
	Size       int64
	LinkTarget string
	HostPath   string

	// SELinuxLabel is the raw security.selinux xattr value (spec §6:
	// "nul-terminated ASCII SELinux label"); "" if the xattr was absent.
	SELinuxLabel string
	// Capability is the raw security.capability xattr payload (spec §6:
	// "little-endian integer, variable width"); nil if absent.
	Capability []byte
}

// Partition is one "(partition_name, host_path, files_root)" record (spec
// §6) plus the mount parameters the init interpreter's fstab-driven mounts
// need once grafted into the combined VFS.
type Partition struct {
	Name       string
	MountPoint string // "/" for the root partition
	FSType     string
	Device     string
	Options    []string
	Files      []FileRecord
}

// Input is everything Pipeline.Run needs from the collaborators spec §6
// names as out of scope: the firmware-extraction walker's output, the
// SELinux policy collaborator's already-parsed Policy, and the raw
// configuration files (property files, the init entry point, file_contexts
// sources).
type Input struct {
	Partitions []Partition
	Policy     sepolicy.Policy

	// PropertyPaths are merged in order via propstore.Store.FromFile;
	// later files overwrite earlier keys.
	PropertyPaths []string

	// InitEntryPath is the VFS path of the first .rc file to load (spec
	// §4.2); it must resolve to a FileRecord already placed in one of
	// Partitions.
	InitEntryPath string

	FileContextsPaths []string
}

// decodeCapability reads b as a little-endian integer of up to 8 bytes
// (spec §6: "little-endian integer, variable width"), truncating anything
// beyond a uint64's width.
func decodeCapability(b []byte) uint64 {
	var v uint64
	n := len(b)
	if n > 8 {
		n = 8
	}
	for i := 0; i < n; i++ {
		v |= uint64(b[i]) << uint(8*i)
	}
	return v
}
