/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/coldbrewsec/macrecon/errs"
	"github.com/coldbrewsec/macrecon/process"
	"github.com/coldbrewsec/macrecon/sepolicy"
	"github.com/coldbrewsec/macrecon/vfs"
)

// writeFixture writes content to name under dir and returns the host path.
func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return p
}

// samplePolicy builds a minimal policy wiring kernel -> init -> zygote via
// type_transition (so zygote gets a backing file, satisfying hierarchy's
// non-empty-backing requirement), then zygote -> system_server and
// zygote -> untrusted_app via dyntransition-shaped AVAllow edges, mirroring
// the real SEAndroid shape enough to exercise the whole pipeline.
func samplePolicy() sepolicy.Policy {
	return sepolicy.Policy{
		TypeList: []sepolicy.Type{
			{Name: "kernel", Attributes: []string{"domain"}},
			{Name: "init", Attributes: []string{"domain"}},
			{Name: "zygote", Attributes: []string{"domain"}},
			{Name: "system_server", Attributes: []string{"domain"}},
			{Name: "untrusted_app", Attributes: []string{"domain"}},
			{Name: "init_exec"},
			{Name: "zygote_exec"},
		},
		TypeAttributeNames: []string{"domain"},
		TERuleList: []sepolicy.TERule{
			{
				Kind: sepolicy.TypeTransition, Source: "kernel", Target: "init_exec",
				TClass: "process", Default: "init",
			},
			{
				Kind: sepolicy.TypeTransition, Source: "init", Target: "zygote_exec",
				TClass: "process", Default: "zygote",
			},
			{
				Kind: sepolicy.AVAllow, Source: "zygote", Target: "system_server",
				TClass: "process", Perms: []string{"transition"},
			},
			{
				Kind: sepolicy.AVAllow, Source: "zygote", Target: "untrusted_app",
				TClass: "process", Perms: []string{"transition"},
			},
		},
	}
}

// TestPipelineRunBuildsProcessTree drives the entire ten-phase pipeline
// over a hand-built policy and a three-file root partition, then checks the
// end-to-end invariants spec §8 names for the process tree and credential
// simulation (system_server forks under the --start-system-server zygote,
// untrusted_app gets the first app uid/gid, kernel/init/system_server are
// marked trusted).
func TestPipelineRunBuildsProcessTree(t *testing.T) {
	dir := t.TempDir()

	initRC := "service zygote /system/bin/app_process64 --start-system-server\n" +
		"    class main\n" +
		"    user root\n" +
		"    group root readproc\n"
	initPath := writeFixture(t, dir, "init.rc", initRC)

	p := New(Config{FirmwareName: "sample", AndroidMajor: 10}, nil)

	in := Input{
		Policy:        samplePolicy(),
		InitEntryPath: "/init.rc",
		Partitions: []Partition{
			{
				Name:       "root",
				MountPoint: "/",
				Files: []FileRecord{
					{
						Path: "/init.rc", UID: 0, GID: 0, Mode: vfs.ModeReg | 0644,
						HostPath: initPath,
					},
					{
						Path: "/init", UID: 0, GID: 0, Mode: vfs.ModeReg | 0750,
						SELinuxLabel: "u:object_r:init_exec:s0",
					},
					{
						Path: "/system/bin/app_process64", UID: 0, GID: 0, Mode: vfs.ModeReg | 0755,
						SELinuxLabel: "u:object_r:zygote_exec:s0",
					},
				},
			},
		},
	}

	res, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	byType := make(map[string]*process.Node, len(res.Tree))
	for _, n := range res.Tree {
		if _, dup := byType[n.Subject.Type]; !dup {
			byType[n.Subject.Type] = n
		}
	}

	if _, ok := byType["kernel"]; !ok {
		t.Fatalf("no kernel process node")
	}
	if _, ok := byType["init"]; !ok {
		t.Fatalf("no init process node")
	}
	zygoteNode := byType["zygote"]
	systemServerNode := byType["system_server"]
	untrustedAppNode := byType["untrusted_app"]
	if zygoteNode == nil {
		t.Fatalf("no zygote process node")
	}
	if zygoteNode.ExePath != "/system/bin/app_process64" {
		t.Fatalf("zygote exe path = %q, want /system/bin/app_process64", zygoteNode.ExePath)
	}
	if systemServerNode == nil {
		t.Fatalf("no system_server process node; zygote service matching likely failed")
	}
	if systemServerNode.Cred.UID != 1000 || systemServerNode.Cred.GID != 1000 {
		t.Fatalf("system_server uid/gid = %d/%d, want 1000/1000", systemServerNode.Cred.UID, systemServerNode.Cred.GID)
	}
	if systemServerNode.Parent != zygoteNode {
		t.Fatalf("system_server is not parented under the --start-system-server zygote")
	}
	if untrustedAppNode == nil {
		t.Fatalf("no untrusted_app process node")
	}
	if untrustedAppNode.Cred.UID != 10000 || untrustedAppNode.Cred.GID != 10000 {
		t.Fatalf("untrusted_app uid/gid = %d/%d, want 10000/10000", untrustedAppNode.Cred.UID, untrustedAppNode.Cred.GID)
	}

	for _, want := range []string{"kernel", "init", "system_server"} {
		n, ok := res.Subjects.Nodes[want]
		if !ok {
			t.Fatalf("subject %q missing from inflated set", want)
		}
		if !n.Trusted {
			t.Errorf("subject %q should be trusted", want)
		}
	}
	if n, ok := res.Subjects.Nodes["untrusted_app"]; ok && n.Trusted {
		t.Errorf("untrusted_app should not be trusted")
	}

	if _, ok := res.Services["zygote"]; !ok {
		t.Fatalf("zygote service not recorded from init.rc")
	}
}

// TestPipelineRunRejectsBadConfig checks that Run surfaces Config.Verify's
// validation failure rather than proceeding with a zero-value firmware
// name.
func TestPipelineRunRejectsBadConfig(t *testing.T) {
	p := New(Config{AndroidMajor: 10}, nil)
	if _, err := p.Run(context.Background(), Input{Policy: samplePolicy()}); err == nil {
		t.Fatalf("expected an error for missing FirmwareName")
	}
}

// TestConfigVerifyRejectsUnsupportedAndroidVersion checks that a firmware
// reporting an Android major version below 9 fails Verify with
// errs.UnsupportedVersion (spec §7 kind 2), not as a generic malformed
// config.
func TestConfigVerifyRejectsUnsupportedAndroidVersion(t *testing.T) {
	c := Config{FirmwareName: "sample", AndroidMajor: 8}
	err := c.Verify()
	if err == nil {
		t.Fatalf("expected an error for AndroidMajor=8")
	}
	if !errors.Is(err, errs.Sentinel(errs.UnsupportedVersion)) {
		t.Fatalf("err = %v, want kind %s", err, errs.UnsupportedVersion)
	}
}
