/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package caps models POSIX/Linux capabilities reconstructed offline for a
// process that never runs. It is grounded on gravwell's
// ingesters/utils/caps package (capability name table and bit values), but
// generalized from a single live-queried bitmask into a Set of five
// independent named subsets -- permitted, effective, inheritable, bounding,
// ambient -- per spec §3, since we reconstruct state for all five rather
// than reading one live set for one process. There is no running kernel to
// query here, so this package has no module dependency on golang.org/x/sys;
// the capability numbering below only mirrors include/uapi/linux/capability.h
// directly, the same source x/sys/unix itself generates from.
package caps

import "sort"

// Cap identifies one Linux capability. Values match
// include/uapi/linux/capability.h, the same numbering
// gravwell/ingesters/utils/caps and moby/sys/capability (both in the
// retrieval pack) use.
type Cap int

const (
	CHOWN Cap = iota
	DAC_OVERRIDE
	DAC_READ_SEARCH
	FOWNER
	FSETID
	KILL
	SETGID
	SETUID
	SETPCAP
	LINUX_IMMUTABLE
	NET_BIND_SERVICE
	NET_BROADCAST
	NET_ADMIN
	NET_RAW
	IPC_LOCK
	IPC_OWNER
	SYS_MODULE
	SYS_RAWIO
	SYS_CHROOT
	SYS_PTRACE
	SYS_PACCT
	SYS_ADMIN
	SYS_BOOT
	SYS_NICE
	SYS_RESOURCE
	SYS_TIME
	SYS_TTY_CONFIG
	MKNOD
	LEASE
	AUDIT_WRITE
	AUDIT_CONTROL
	SETFCAP
	MAC_OVERRIDE
	MAC_ADMIN
	SYSLOG
	WAKE_ALARM
	BLOCK_SUSPEND
	AUDIT_READ
	PERFMON
	BPF
	CHECKPOINT_RESTORE
)

const (
	minCap = CHOWN
	maxCap = CHECKPOINT_RESTORE
)

var names = map[Cap]string{
	CHOWN:              "CAP_CHOWN",
	DAC_OVERRIDE:       "CAP_DAC_OVERRIDE",
	DAC_READ_SEARCH:    "CAP_DAC_READ_SEARCH",
	FOWNER:             "CAP_FOWNER",
	FSETID:             "CAP_FSETID",
	KILL:               "CAP_KILL",
	SETGID:             "CAP_SETGID",
	SETUID:             "CAP_SETUID",
	SETPCAP:            "CAP_SETPCAP",
	LINUX_IMMUTABLE:    "CAP_LINUX_IMMUTABLE",
	NET_BIND_SERVICE:   "CAP_NET_BIND_SERVICE",
	NET_BROADCAST:      "CAP_NET_BROADCAST",
	NET_ADMIN:          "CAP_NET_ADMIN",
	NET_RAW:            "CAP_NET_RAW",
	IPC_LOCK:           "CAP_IPC_LOCK",
	IPC_OWNER:          "CAP_IPC_OWNER",
	SYS_MODULE:         "CAP_SYS_MODULE",
	SYS_RAWIO:          "CAP_SYS_RAWIO",
	SYS_CHROOT:         "CAP_SYS_CHROOT",
	SYS_PTRACE:         "CAP_SYS_PTRACE",
	SYS_PACCT:          "CAP_SYS_PACCT",
	SYS_ADMIN:          "CAP_SYS_ADMIN",
	SYS_BOOT:           "CAP_SYS_BOOT",
	SYS_NICE:           "CAP_SYS_NICE",
	SYS_RESOURCE:       "CAP_SYS_RESOURCE",
	SYS_TIME:           "CAP_SYS_TIME",
	SYS_TTY_CONFIG:     "CAP_SYS_TTY_CONFIG",
	MKNOD:              "CAP_MKNOD",
	LEASE:              "CAP_LEASE",
	AUDIT_WRITE:        "CAP_AUDIT_WRITE",
	AUDIT_CONTROL:      "CAP_AUDIT_CONTROL",
	SETFCAP:            "CAP_SETFCAP",
	MAC_OVERRIDE:       "CAP_MAC_OVERRIDE",
	MAC_ADMIN:          "CAP_MAC_ADMIN",
	SYSLOG:             "CAP_SYSLOG",
	WAKE_ALARM:         "CAP_WAKE_ALARM",
	BLOCK_SUSPEND:      "CAP_BLOCK_SUSPEND",
	AUDIT_READ:         "CAP_AUDIT_READ",
	PERFMON:            "CAP_PERFMON",
	BPF:                "CAP_BPF",
	CHECKPOINT_RESTORE: "CAP_CHECKPOINT_RESTORE",
}

func (c Cap) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "CAP_UNKNOWN"
}

// byName resolves an init.rc-style capability token ("NET_BIND_SERVICE" or
// "CAP_NET_BIND_SERVICE") to a Cap.
func byName(s string) (Cap, bool) {
	for c, n := range names {
		if n == s || n == "CAP_"+s {
			return c, true
		}
	}
	return 0, false
}

// FromName resolves a capability token as it appears in an init.rc
// `capabilities` option (spec §4.2).
func FromName(s string) (Cap, bool) { return byName(s) }

// Subset names the five independent capability subsets of spec §3.
type Subset int

const (
	Permitted Subset = iota
	Effective
	Inheritable
	Bounding
	Ambient
	numSubsets
)

func (s Subset) String() string {
	switch s {
	case Permitted:
		return "permitted"
	case Effective:
		return "effective"
	case Inheritable:
		return "inheritable"
	case Bounding:
		return "bounding"
	case Ambient:
		return "ambient"
	default:
		return "unknown"
	}
}

// bits is a bitmask over Cap values; maxCap is well under 64 so a single
// uint64 suffices per subset, matching gravwell/ingesters/utils/caps's
// own Capabilities uint64.
type bits uint64

func (b bits) has(c Cap) bool  { return b&(1<<uint(c)) != 0 }
func (b *bits) add(c Cap)      { *b |= 1 << uint(c) }
func (b *bits) drop(c Cap)     { *b &^= 1 << uint(c) }
func (b *bits) clear()         { *b = 0 }
func (b *bits) fill()          { *b = bits(1<<uint(maxCap+1) - 1) }
func (b bits) list() []Cap {
	var out []Cap
	for c := minCap; c <= maxCap; c++ {
		if b.has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Set holds the five named capability subsets for one Cred (spec §3) plus
// an overlay used to track capabilities granted purely by SELinux policy
// (the "selinux-granted" overlay, e.g. via an allow rule on class
// cap/cap2) rather than by DAC/file-capability inheritance.
type Set struct {
	subsets  [numSubsets]bits
	selinux  bits // selinux-granted overlay; additive, queried separately
}

// Add adds c to the named subset.
func (s *Set) Add(sub Subset, c Cap) { s.subsets[sub].add(c) }

// Drop removes c from the named subset.
func (s *Set) Drop(sub Subset, c Cap) { s.subsets[sub].drop(c) }

// Has reports whether c is present in the named subset.
func (s Set) Has(sub Subset, c Cap) bool { return s.subsets[sub].has(c) }

// GrantAll sets every capability in every one of the five subsets -- used
// for kernel (pid 0) and init's credential per spec §4.8 step 2.
func (s *Set) GrantAll() {
	for i := range s.subsets {
		s.subsets[i].fill()
	}
}

// DropAll clears every capability in every subset -- used when a child's
// resulting uid is non-zero, per spec §4.8 step 3.d.
func (s *Set) DropAll() {
	for i := range s.subsets {
		s.subsets[i].clear()
	}
}

// SetBoundingEmpty clears only the bounding subset, per spec §4.8 step 6
// (system_server's "bounding set emptied, then add the fixed capability
// set").
func (s *Set) SetBoundingEmpty() { s.subsets[Bounding].clear() }

// SetAmbientAndMirror sets the ambient subset to exactly caps, and mirrors
// it into permitted, effective, inheritable, and bounding as well -- spec
// §8 S1: "permitted = effective = inheritable = bounding = ambient =
// {NET_BIND_SERVICE}". This is the init.rc `capabilities` option's effect
// once a non-root uid is assigned (spec §4.8 step 3.d).
func (s *Set) SetAmbientAndMirror(caps ...Cap) {
	var b bits
	for _, c := range caps {
		b.add(c)
	}
	s.subsets[Permitted] = b
	s.subsets[Effective] = b
	s.subsets[Inheritable] = b
	s.subsets[Bounding] = b
	s.subsets[Ambient] = b
}

// AddSELinuxGranted records a capability granted purely through a MAC
// allow rule on class cap/cap2 (spec §4.6 step 1: "the capability is added
// to the subject's selinux capability overlay") rather than through DAC
// inheritance.
func (s *Set) AddSELinuxGranted(c Cap) { s.selinux.add(c) }

// SELinuxGranted lists the capabilities granted via the selinux overlay,
// sorted for deterministic output.
func (s Set) SELinuxGranted() []Cap { return sortedCaps(s.selinux.list()) }

// List returns the sorted capability list for one subset.
func (s Set) List(sub Subset) []Cap { return sortedCaps(s.subsets[sub].list()) }

// Clone returns an independent copy, used by Cred.Execve (spec §3) which
// must not share mutable state with its parent.
func (s Set) Clone() Set { return s }

func sortedCaps(cs []Cap) []Cap {
	sort.Slice(cs, func(i, j int) bool { return cs[i] < cs[j] })
	return cs
}
