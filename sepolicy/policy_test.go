/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package sepolicy

import (
	"reflect"
	"sort"
	"testing"
)

func samplePolicy() Policy {
	return Policy{
		ClassList: []Class{
			{Name: "file", Common: "file", Perms: []string{"execute"}},
			{Name: "dir", Common: "file", Perms: nil},
		},
		CommonList: []Common{
			{Name: "file", Perms: []string{"read", "write"}},
		},
		TypeList: []Type{
			{Name: "init", Attributes: []string{"domain"}},
			{Name: "init_exec", Aliases: []string{"init_exec_alias"}},
		},
		TypeAttributeNames: []string{"domain"},
		GenFSConList: []GenFSCon{
			{FS: "proc", Path: "/", Context: "u:object_r:proc_t:s0"},
		},
		FSUseList: []FSUse{
			{FS: "tmpfs", Context: "u:object_r:tmpfs:s0"},
		},
	}
}

func TestResolveMergesCommonPerms(t *testing.T) {
	r := Resolve(samplePolicy())
	perms := append([]string(nil), r.Classes["file"].Perms...)
	sort.Strings(perms)
	want := []string{"execute", "read", "write"}
	if !reflect.DeepEqual(perms, want) {
		t.Fatalf("got %v want %v", perms, want)
	}
}

func TestResolveAliasCanonical(t *testing.T) {
	r := Resolve(samplePolicy())
	if got := r.Canonical("init_exec_alias"); got != "init_exec" {
		t.Fatalf("got %q want init_exec", got)
	}
	if got := r.Canonical("init_exec"); got != "init_exec" {
		t.Fatalf("canonical on a non-alias should be identity, got %q", got)
	}
}

func TestResolveAttributeMembership(t *testing.T) {
	r := Resolve(samplePolicy())
	if !r.IsAttribute("domain") {
		t.Fatalf("expected domain to be an attribute")
	}
	if r.IsAttribute("init") {
		t.Fatalf("init is a type, not an attribute")
	}
	if got := r.Expand("domain"); !reflect.DeepEqual(got, []string{"init"}) {
		t.Fatalf("got %v want [init]", got)
	}
	if got := r.Expand("init"); !reflect.DeepEqual(got, []string{"init"}) {
		t.Fatalf("expanding a concrete type should return itself, got %v", got)
	}
}

func TestResolveGenFSAndFSUse(t *testing.T) {
	r := Resolve(samplePolicy())
	if len(r.GenFS["proc"]) != 1 {
		t.Fatalf("expected one genfscon entry for proc")
	}
	if r.FSUse["tmpfs"].Context != "u:object_r:tmpfs:s0" {
		t.Fatalf("unexpected fs_use context: %+v", r.FSUse["tmpfs"])
	}
}
