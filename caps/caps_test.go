/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package caps

import "testing"

func TestFromName(t *testing.T) {
	c, ok := FromName("NET_BIND_SERVICE")
	if !ok || c != NET_BIND_SERVICE {
		t.Fatalf("got %v, %v want NET_BIND_SERVICE, true", c, ok)
	}
	if _, ok := FromName("NOT_A_CAP"); ok {
		t.Fatalf("expected no match for bogus capability name")
	}
}

func TestSetAmbientAndMirror(t *testing.T) {
	var s Set
	s.SetAmbientAndMirror(NET_BIND_SERVICE)
	for _, sub := range []Subset{Permitted, Effective, Inheritable, Bounding, Ambient} {
		if !s.Has(sub, NET_BIND_SERVICE) {
			t.Fatalf("subset %v missing NET_BIND_SERVICE", sub)
		}
		if len(s.List(sub)) != 1 {
			t.Fatalf("subset %v has extra capabilities: %v", sub, s.List(sub))
		}
	}
}

func TestGrantAllDropAll(t *testing.T) {
	var s Set
	s.GrantAll()
	if !s.Has(Permitted, SYS_ADMIN) {
		t.Fatalf("expected GrantAll to include SYS_ADMIN")
	}
	s.DropAll()
	if len(s.List(Permitted)) != 0 {
		t.Fatalf("expected DropAll to clear permitted, got %v", s.List(Permitted))
	}
}

func TestSetBoundingEmpty(t *testing.T) {
	var s Set
	s.GrantAll()
	s.SetBoundingEmpty()
	if len(s.List(Bounding)) != 0 {
		t.Fatalf("expected bounding to be empty, got %v", s.List(Bounding))
	}
	if len(s.List(Permitted)) == 0 {
		t.Fatalf("expected other subsets untouched")
	}
}

func TestSELinuxOverlayIndependentOfSubsets(t *testing.T) {
	var s Set
	s.AddSELinuxGranted(SYS_PTRACE)
	if s.Has(Permitted, SYS_PTRACE) {
		t.Fatalf("selinux overlay must not leak into DAC subsets")
	}
	got := s.SELinuxGranted()
	if len(got) != 1 || got[0] != SYS_PTRACE {
		t.Fatalf("got %v want [SYS_PTRACE]", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	var s Set
	s.Add(Permitted, KILL)
	clone := s.Clone()
	clone.Add(Permitted, SETUID)
	if s.Has(Permitted, SETUID) {
		t.Fatalf("mutating clone must not affect original")
	}
}
