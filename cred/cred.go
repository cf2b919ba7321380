/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package cred models process credentials (spec §3 Cred) and the execve
// credential transition. The Credential Simulator (spec §4.8) that applies
// them across a process tree lives in package process (simulate.go).
package cred

import (
	"sort"

	"github.com/coldbrewsec/macrecon/caps"
	"github.com/coldbrewsec/macrecon/sepolicy"
)

// Cred is (uid, gid, supplementary groups, SELinuxContext, Capabilities),
// spec §3. Grounded on original_source/android/dac.py's Cred.
type Cred struct {
	UID    int
	GID    int
	Groups map[int]bool
	SID    sepolicy.Context
	Cap    caps.Set
}

func New(uid, gid int) Cred {
	return Cred{UID: uid, GID: gid, Groups: make(map[int]bool)}
}

func (c Cred) SortedGroups() []int {
	out := make([]int, 0, len(c.Groups))
	for g := range c.Groups {
		out = append(out, g)
	}
	sort.Ints(out)
	return out
}

func (c *Cred) AddGroup(gid int) {
	if c.Groups == nil {
		c.Groups = make(map[int]bool)
	}
	c.Groups[gid] = true
}

func (c *Cred) ClearGroups() { c.Groups = make(map[int]bool) }

// Execve returns the Cred that results from executing an image with the
// given target SID (or the current SID if newSID is nil): uid/gid and
// supplementary groups carry over unchanged, and capabilities are dropped
// unless the resulting uid is 0. Grounded on
// original_source/android/dac.py's Cred.execve.
func (c Cred) Execve(newSID *sepolicy.Context) Cred {
	out := New(c.UID, c.GID)
	for g := range c.Groups {
		out.Groups[g] = true
	}
	if newSID != nil {
		out.SID = *newSID
	} else {
		out.SID = c.SID
	}
	if out.UID == 0 {
		out.Cap = c.Cap.Clone()
	}
	return out
}
