/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package trust implements the trust pass (spec §4.8, final paragraph): a
// post-simulation sweep marking SubjectNodes and object nodes as part of
// the trusted computing base, and tagging /dev/ backing files by name
// pattern.
package trust

import (
	"sort"
	"strings"

	"github.com/coldbrewsec/macrecon/dataflow"
	"github.com/coldbrewsec/macrecon/subject"
	"github.com/coldbrewsec/macrecon/vfs"
)

// trustedSubjectTypes is the conservative, name-based TCB list: "a Subject
// is trusted iff its type ∈ {init, vold, ueventd, kernel, system_server}".
var trustedSubjectTypes = map[string]bool{
	"init": true, "vold": true, "ueventd": true, "kernel": true, "system_server": true,
}

// Apply runs the trust pass over s's subjects and objects' backing
// files, using v to resolve each object type's backing paths. It mutates
// Node.Trusted, Object.Trusted, and FilePolicy.Tags in place.
func Apply(s subject.Set, objects dataflow.Set, v *vfs.VFS) {
	for _, n := range s.Nodes {
		n.Trusted = trustedSubjectTypes[n.Type]
	}

	pathsByType := indexPathsByType(v)

	var names []string
	for name := range objects.Objects {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		obj := objects.Objects[name]
		for _, p := range pathsByType[obj.Type] {
			if strings.HasPrefix(p, "/sys/") || strings.HasPrefix(p, "/dev/") {
				obj.Trusted = true
			}
			if strings.HasPrefix(p, "/dev/") {
				tagDevPath(v, p)
			}
		}
	}
}

// indexPathsByType groups every labelled VFS path by its SELinux type, so
// Apply can find the backing files of an object node (which carries only
// the concrete type, not a path) in one pass.
func indexPathsByType(v *vfs.VFS) map[string][]string {
	out := make(map[string][]string)
	for _, p := range v.Paths() {
		fp, ok := v.Get(p)
		if !ok || !fp.HasLabel {
			continue
		}
		out[fp.SELinux.Type] = append(out[fp.SELinux.Type], p)
	}
	return out
}

// tagDevPath applies spec §4.8's /dev/ name-pattern tagging to p's
// basename: "usb|GS|serial" -> usb; "bt_|bluetooth|hci" -> bluetooth;
// "nfc" -> nfc; "at_|atd|modem|mdm|smd" -> modem.
func tagDevPath(v *vfs.VFS, p string) {
	fp, ok := v.Get(p)
	if !ok {
		return
	}
	base := p
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		base = p[i+1:]
	}

	switch {
	case containsAny(base, "usb", "GS", "serial"):
		fp.AddTag(vfs.TagUSB)
	case containsAny(base, "bt_", "bluetooth", "hci"):
		fp.AddTag(vfs.TagBluetooth)
	case strings.Contains(base, "nfc"):
		fp.AddTag(vfs.TagNFC)
	case containsAny(base, "at_", "atd", "modem", "mdm", "smd"):
		fp.AddTag(vfs.TagModem)
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
