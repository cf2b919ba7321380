/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package initscript

import (
	"regexp"

	"github.com/coldbrewsec/macrecon/propstore"
	"github.com/coldbrewsec/macrecon/vfs"
)

// hardwarePattern pairs a VFS glob with the regex used to pull the
// hardware name out of a matching path's basename.
type hardwarePattern struct {
	glob  string
	regex *regexp.Regexp
}

// hardwarePatterns is tried in this fixed order; the first glob with any
// match wins. This is SPEC_FULL.md §5 decision 1: original_source/android/init.py's
// determine_hardware recomputes this inconsistently between /system and
// /vendor in sibling code paths (spec §9); we implement the union of both
// trees, vendor first, fstab before ueventd, per that decision.
var hardwarePatterns = []hardwarePattern{
	{glob: "vendor/**/fstab.*", regex: regexp.MustCompile(`fstab\.([-_a-zA-Z0-9]+)$`)},
	{glob: "system/**/fstab.*", regex: regexp.MustCompile(`fstab\.([-_a-zA-Z0-9]+)$`)},
	{glob: "vendor/**/ueventd.*.rc", regex: regexp.MustCompile(`ueventd\.([-_a-zA-Z0-9]+)\.rc$`)},
	{glob: "system/**/ueventd.*.rc", regex: regexp.MustCompile(`ueventd\.([-_a-zA-Z0-9]+)\.rc$`)},
}

// DetermineHardware fixes ro.hardware in props if it is not already set,
// by globbing v for fstab/ueventd file names and applying the named regex
// group. Spec §4.2: "Deterministic: iterate search patterns in the
// declared order; first match wins." Returns the discovered value, or ""
// if nothing matched.
func DetermineHardware(v *vfs.VFS, props *propstore.Store) string {
	if existing, ok := props.Get("ro.hardware"); ok {
		return existing
	}
	for _, hp := range hardwarePatterns {
		for _, path := range v.Find(hp.glob) {
			if m := hp.regex.FindStringSubmatch(path); m != nil {
				props.Set("ro.hardware", m[1])
				return m[1]
			}
		}
	}
	return ""
}
