/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package vfs models the virtual filesystem reconstructed from a
// firmware's extracted partitions: a path -> FilePolicy map, a path ->
// MountPoint map, and the operations spec §4.1 requires of them.
package vfs

import "github.com/coldbrewsec/macrecon/sepolicy"

// POSIX mode bits used throughout label resolution and the init
// interpreter's chmod/mkdir semantics. These mirror include/uapi/linux/stat.h
// exactly; they are not os.FileMode bits (which use a different, Go-specific
// encoding), so the raw numeric values are needed verbatim wherever spec
// §4.2 talks about replacing "the low 12 bits of perms" or ORing in S_IFDIR.
const (
	ModeFmt  = 0170000 // file-type mask
	ModeDir  = 0040000
	ModeChr  = 0020000
	ModeBlk  = 0060000
	ModeReg  = 0100000
	ModeFifo = 0010000
	ModeLnk  = 0120000
	ModeSock = 0140000

	modePermMask = 0007777 // low 12 bits: permission + setuid/setgid/sticky
)

// Tag names a FilePolicy's mutable classification, added only during the
// trust pass (spec §4.8 "Trust pass"). Spec §3: "a mutable tag set (usb,
// bluetooth, nfc, modem)".
type Tag string

const (
	TagUSB       Tag = "usb"
	TagBluetooth Tag = "bluetooth"
	TagNFC       Tag = "nfc"
	TagModem     Tag = "modem"
)

// FilePolicy is one VFS entry: DAC facts plus an optional MAC label. The
// struct is not immutable: UID/GID/Mode are mutated in place by
// chown/chmod (§4.1's table), SELinux/HasLabel by the label resolver, and
// Tags by the trust pass. OriginalPath, Size, LinkTarget, HasCaps and
// CapBits never change after construction.
type FilePolicy struct {
	OriginalPath string // host-side source path; "" for pseudo/lazily-created files
	UID          int
	GID          int
	Mode         uint32 // includes file-type bits
	Size         int64
	LinkTarget   string // readlink() target, "" unless Mode&ModeFmt == ModeLnk

	SELinux   Context
	HasLabel  bool // whether SELinux was ever set (distinguishes zero-value from set-but-empty)
	HasCaps   bool
	CapBits   uint64 // little-endian security.capability xattr payload, already decoded

	Tags map[Tag]bool
}

// Context aliases sepolicy.Context so callers constructing a FilePolicy do
// not need to import sepolicy directly just to spell the label's type.
type Context = sepolicy.Context

// New constructs a FilePolicy for a regular/plain entry with no label yet.
func New(uid, gid int, mode uint32, size int64) FilePolicy {
	return FilePolicy{UID: uid, GID: gid, Mode: mode, Size: size}
}

// IsDir reports whether the file-type bits select a directory.
func (f FilePolicy) IsDir() bool { return f.Mode&ModeFmt == ModeDir }

// IsSymlink reports whether the file-type bits select a symlink.
func (f FilePolicy) IsSymlink() bool { return f.Mode&ModeFmt == ModeLnk }

// AddTag marks t on f, creating the tag set if necessary. Spec §4.8 trust
// pass: "Additionally tag each /dev/ backing file by name pattern".
func (f *FilePolicy) AddTag(t Tag) {
	if f.Tags == nil {
		f.Tags = make(map[Tag]bool)
	}
	f.Tags[t] = true
}

// HasTag reports whether t was set.
func (f FilePolicy) HasTag(t Tag) bool { return f.Tags[t] }
