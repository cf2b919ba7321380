/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package initscript

import (
	"testing"

	"github.com/coldbrewsec/macrecon/propstore"
	"github.com/coldbrewsec/macrecon/vfs"
)

func TestDetermineHardwarePrefersExistingProperty(t *testing.T) {
	v := vfs.NewVFS()
	props := propstore.New()
	props.Set("ro.hardware", "already-set")
	got := DetermineHardware(v, props)
	if got != "already-set" {
		t.Fatalf("expected existing property to win, got %q", got)
	}
}

func TestDetermineHardwareVendorFirst(t *testing.T) {
	v := vfs.NewVFS()
	v.Add("/system/etc/fstab.foo", vfs.New(0, 0, vfs.ModeReg, 0))
	v.Add("/vendor/etc/fstab.bar", vfs.New(0, 0, vfs.ModeReg, 0))
	props := propstore.New()
	got := DetermineHardware(v, props)
	if got != "bar" {
		t.Fatalf("expected vendor fstab to win over system, got %q", got)
	}
	if stored, ok := props.Get("ro.hardware"); !ok || stored != "bar" {
		t.Fatalf("expected ro.hardware to be set as a side effect, got %q, %v", stored, ok)
	}
}

func TestDetermineHardwareFstabBeforeUeventd(t *testing.T) {
	v := vfs.NewVFS()
	v.Add("/system/etc/ueventd.baz.rc", vfs.New(0, 0, vfs.ModeReg, 0))
	v.Add("/system/etc/fstab.qux", vfs.New(0, 0, vfs.ModeReg, 0))
	props := propstore.New()
	got := DetermineHardware(v, props)
	if got != "qux" {
		t.Fatalf("expected fstab to win over ueventd, got %q", got)
	}
}

func TestDetermineHardwareNoMatch(t *testing.T) {
	v := vfs.NewVFS()
	props := propstore.New()
	got := DetermineHardware(v, props)
	if got != "" {
		t.Fatalf("expected empty string when nothing matches, got %q", got)
	}
}
