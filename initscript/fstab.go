/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package initscript

import (
	"regexp"
	"strings"
)

// FstabEntry is one line of an Android fstab: `<device> <path> <fstype>
// <csv-opts> [<csv-mgr-opts>]` (spec §4.2).
type FstabEntry struct {
	Device  string
	Path    string
	FSType  string
	Opts    []string
	MgrOpts []string
}

var fstabBlank = regexp.MustCompile(`^\s*(#.*)?$`)

// ParseFstab parses fstab content into entries, skipping comments and
// blank lines.
func ParseFstab(data string) []FstabEntry {
	var entries []FstabEntry
	for _, line := range strings.Split(data, "\n") {
		if fstabBlank.MatchString(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		e := FstabEntry{
			Device: fields[0],
			Path:   fields[1],
			FSType: fields[2],
			Opts:   strings.Split(fields[3], ","),
		}
		if len(fields) >= 5 {
			e.MgrOpts = strings.Split(fields[4], ",")
		}
		entries = append(entries, e)
	}
	return entries
}

// hasMgrOpt reports whether e's mgr-opts contain opt.
func (e FstabEntry) hasMgrOpt(opt string) bool {
	for _, o := range e.MgrOpts {
		if o == opt {
			return true
		}
	}
	return false
}

// SelectLate filters entries for `mount_all --late`: those whose mgr-opts
// contain "latemount".
func SelectLate(entries []FstabEntry) []FstabEntry {
	var out []FstabEntry
	for _, e := range entries {
		if e.hasMgrOpt("latemount") {
			out = append(out, e)
		}
	}
	return out
}

// SelectEarly filters entries for a bare `mount_all`: those whose mgr-opts
// do not contain "latemount".
func SelectEarly(entries []FstabEntry) []FstabEntry {
	var out []FstabEntry
	for _, e := range entries {
		if !e.hasMgrOpt("latemount") {
			out = append(out, e)
		}
	}
	return out
}
