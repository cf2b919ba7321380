/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package trust

import (
	"testing"

	"github.com/coldbrewsec/macrecon/dataflow"
	"github.com/coldbrewsec/macrecon/sepolicy"
	"github.com/coldbrewsec/macrecon/subject"
	"github.com/coldbrewsec/macrecon/vfs"
)

func node(ty string) *subject.Node {
	return &subject.Node{
		Type:     ty,
		Parents:  make(map[string]bool),
		Children: make(map[string]bool),
		Backing:  make(map[string]*vfs.FilePolicy),
	}
}

func TestApplyMarksTCBSubjectsTrusted(t *testing.T) {
	s := subject.Set{Nodes: map[string]*subject.Node{
		"init":   node("init"),
		"vold":   node("vold"),
		"shell":  node("shell"),
		"kernel": node("kernel"),
	}, Groups: map[string]*subject.Node{}}

	Apply(s, dataflow.Set{Objects: map[string]*dataflow.Object{}}, vfs.NewVFS())

	if !s.Nodes["init"].Trusted || !s.Nodes["vold"].Trusted || !s.Nodes["kernel"].Trusted {
		t.Fatalf("expected init/vold/kernel to be trusted")
	}
	if s.Nodes["shell"].Trusted {
		t.Fatalf("expected shell to not be trusted")
	}
}

func TestApplyMarksObjectTrustedWhenBackingUnderSysOrDev(t *testing.T) {
	v := vfs.NewVFS()
	v.Add("/sys/class/foo", vfs.FilePolicy{SELinux: sepolicy.Context{Type: "sysfs_foo"}, HasLabel: true})
	v.Add("/data/foo", vfs.FilePolicy{SELinux: sepolicy.Context{Type: "data_foo"}, HasLabel: true})

	objects := dataflow.Set{Objects: map[string]*dataflow.Object{
		"file:sysfs_foo": {Kind: dataflow.File, Type: "sysfs_foo"},
		"file:data_foo":  {Kind: dataflow.File, Type: "data_foo"},
	}}

	Apply(subject.Set{Nodes: map[string]*subject.Node{}, Groups: map[string]*subject.Node{}}, objects, v)

	if !objects.Objects["file:sysfs_foo"].Trusted {
		t.Fatalf("expected sysfs_foo object to be trusted (backed under /sys/)")
	}
	if objects.Objects["file:data_foo"].Trusted {
		t.Fatalf("expected data_foo object to not be trusted")
	}
}

func TestApplyTagsDevPathsByNamePattern(t *testing.T) {
	v := vfs.NewVFS()
	v.Add("/dev/usb_device0", vfs.FilePolicy{SELinux: sepolicy.Context{Type: "usb_device"}, HasLabel: true})
	v.Add("/dev/ttyBT_hci0", vfs.FilePolicy{SELinux: sepolicy.Context{Type: "bt_device"}, HasLabel: true})
	v.Add("/dev/nfc_dev", vfs.FilePolicy{SELinux: sepolicy.Context{Type: "nfc_device"}, HasLabel: true})
	v.Add("/dev/smd_modem", vfs.FilePolicy{SELinux: sepolicy.Context{Type: "modem_device"}, HasLabel: true})

	objects := dataflow.Set{Objects: map[string]*dataflow.Object{
		"ipc:usb_device":   {Kind: dataflow.IPC, Type: "usb_device"},
		"ipc:bt_device":     {Kind: dataflow.IPC, Type: "bt_device"},
		"ipc:nfc_device":    {Kind: dataflow.IPC, Type: "nfc_device"},
		"ipc:modem_device":  {Kind: dataflow.IPC, Type: "modem_device"},
	}}

	Apply(subject.Set{Nodes: map[string]*subject.Node{}, Groups: map[string]*subject.Node{}}, objects, v)

	cases := map[string]vfs.Tag{
		"/dev/usb_device0": vfs.TagUSB,
		"/dev/ttyBT_hci0":  vfs.TagBluetooth,
		"/dev/nfc_dev":     vfs.TagNFC,
		"/dev/smd_modem":   vfs.TagModem,
	}
	for p, want := range cases {
		fp, ok := v.Get(p)
		if !ok {
			t.Fatalf("expected %s to be present", p)
		}
		if !fp.HasTag(want) {
			t.Fatalf("expected %s to be tagged %s, got tags %v", p, want, fp.Tags)
		}
	}
}
