/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package initscript

import "testing"

func TestParseFstabSkipsCommentsAndBlank(t *testing.T) {
	data := `
# comment
/dev/block/bootdevice/by-name/system /system ext4 ro,barrier=1 wait
/dev/block/bootdevice/by-name/userdata /data f2fs noatime wait,latemount

`
	entries := ParseFstab(data)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Path != "/system" || entries[0].FSType != "ext4" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Path != "/data" || !entries[1].hasMgrOpt("latemount") {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestSelectLateAndEarlyPartition(t *testing.T) {
	data := `/dev/a /a ext4 ro wait
/dev/b /b f2fs ro wait,latemount
`
	entries := ParseFstab(data)
	late := SelectLate(entries)
	early := SelectEarly(entries)
	if len(late) != 1 || late[0].Path != "/b" {
		t.Fatalf("unexpected late selection: %+v", late)
	}
	if len(early) != 1 || early[0].Path != "/a" {
		t.Fatalf("unexpected early selection: %+v", early)
	}
}
