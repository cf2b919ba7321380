/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package sepolicy models the SELinux side of the analysis: the
// SELinuxContext value type and the black-box interfaces consumed from the
// compiled binary policy (classes, commons, types, typeattributes, terules,
// genfscons, fs_uses). Parsing the binary policy itself is out of scope;
// callers hand us something that satisfies Policy.
package sepolicy

import "strings"

// Context is the 4-tuple (user, role, type, mls). mls is an
// arbitrarily-colon-containing suffix (an MLS/MCS range), so FromString
// rejoins everything after the third colon rather than splitting on ":".
// Equality and hashing are string-wise, per spec §3.
type Context struct {
	User string
	Role string
	Type string
	MLS  string
}

// FromString parses "user:role:type:mls" the way
// original_source/android/sepolicy.py's SELinuxContext.FromString does,
// including its handling of an MLS suffix that itself contains colons
// (e.g. "s0:c512,c768").
func FromString(s string) (Context, bool) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 4 {
		return Context{}, false
	}
	return Context{User: parts[0], Role: parts[1], Type: parts[2], MLS: parts[3]}, true
}

// String renders the canonical "user:role:type:mls" form.
func (c Context) String() string {
	return c.User + ":" + c.Role + ":" + c.Type + ":" + c.MLS
}

// Equal compares contexts string-wise, per spec §3.
func (c Context) Equal(o Context) bool { return c == o }

// IsZero reports whether c is the unset Context.
func (c Context) IsZero() bool { return c == Context{} }
