/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package process

import (
	"testing"

	"github.com/coldbrewsec/macrecon/subject"
	"github.com/coldbrewsec/macrecon/vfs"
)

func buildSet(types []string, edges map[string][]string, backing map[string][]string) subject.Set {
	s := subject.Set{Nodes: make(map[string]*subject.Node), Groups: make(map[string]*subject.Node)}
	for _, t := range types {
		n := &subject.Node{
			Type:     t,
			Parents:  make(map[string]bool),
			Children: make(map[string]bool),
			Backing:  make(map[string]*vfs.FilePolicy),
		}
		s.Nodes[t] = n
	}
	for parent, children := range edges {
		for _, c := range children {
			s.Nodes[parent].AddChild(c)
			s.Nodes[c].AddParent(parent)
		}
	}
	for t, paths := range backing {
		for _, p := range paths {
			s.Nodes[t].AssociateFile(p, &vfs.FilePolicy{})
		}
	}
	return s
}

func TestBuildRequiresKernelSubject(t *testing.T) {
	s := buildSet([]string{"init"}, nil, nil)
	if _, err := Build(s); err == nil {
		t.Fatalf("expected an error when no kernel subject is present")
	}
}

func TestBuildAssignsKernelPIDZeroAndInitPIDOne(t *testing.T) {
	s := buildSet(
		[]string{"kernel", "init"},
		map[string][]string{"kernel": {"init"}},
		map[string][]string{"init": {"/init"}},
	)
	nodes, err := Build(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 process nodes, got %d", len(nodes))
	}
	if nodes[0].PID != 0 || nodes[0].Subject.Type != "kernel" || nodes[0].Parent != nil {
		t.Fatalf("expected kernel at pid 0 with no parent, got %+v", nodes[0])
	}
	if nodes[1].PID != 1 || nodes[1].Subject.Type != "init" || nodes[1].Parent != nodes[0] {
		t.Fatalf("expected init at pid 1 parented by kernel, got %+v", nodes[1])
	}
}

func TestBuildCreatesOneNodePerBackingFile(t *testing.T) {
	s := buildSet(
		[]string{"kernel", "multi"},
		map[string][]string{"kernel": {"multi"}},
		map[string][]string{"multi": {"/a", "/b"}},
	)
	nodes, err := Build(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 process nodes (kernel + 2 backing files), got %d", len(nodes))
	}
	var exePaths []string
	for _, n := range nodes[1:] {
		exePaths = append(exePaths, n.ExePath)
	}
	if !(exePaths[0] == "/a" && exePaths[1] == "/b") {
		t.Fatalf("expected backing files visited in sorted order, got %v", exePaths)
	}
}

func TestBuildSkipsChildWithNoBackingFile(t *testing.T) {
	s := buildSet(
		[]string{"kernel", "ghost"},
		map[string][]string{"kernel": {"ghost"}},
		nil,
	)
	nodes, err := Build(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected only the kernel root node, got %d: %+v", len(nodes), nodes)
	}
}

func TestBuildVisitsEachSubjectOnlyOnce(t *testing.T) {
	// Both a and b claim "shared" as a child; only the first DFS arrival
	// should materialize it.
	s := buildSet(
		[]string{"kernel", "a", "b", "shared"},
		map[string][]string{"kernel": {"a", "b"}, "a": {"shared"}, "b": {"shared"}},
		map[string][]string{"a": {"/a"}, "b": {"/b"}, "shared": {"/shared"}},
	)
	nodes, err := Build(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count := 0
	for _, n := range nodes {
		if n.Subject.Type == "shared" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected shared to be visited exactly once, got %d", count)
	}
}

func TestBuildRevisitsCrashDumpUnderEveryZygote(t *testing.T) {
	s := buildSet(
		[]string{"kernel", "zygote", "zygote_secondary", "crash_dump"},
		map[string][]string{
			"kernel": {"zygote", "zygote_secondary"},
			"zygote": {"crash_dump"},
			// zygote_secondary's crash_dump edge is added the way the
			// dyntransition overlay would: both zygotes claim it.
			"zygote_secondary": {"crash_dump"},
		},
		map[string][]string{
			"zygote":           {"/system/bin/app_process"},
			"zygote_secondary": {"/system/bin/app_process"},
			"crash_dump":       {"/system/bin/crash_dump"},
		},
	)
	nodes, err := Build(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count := 0
	for _, n := range nodes {
		if n.Subject.Type == "crash_dump" {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected crash_dump to appear once per zygote (2 total), got %d", count)
	}
}

func TestBuildPIDsAreContiguousAndUnique(t *testing.T) {
	s := buildSet(
		[]string{"kernel", "init", "zygote", "app"},
		map[string][]string{"kernel": {"init"}, "init": {"zygote"}, "zygote": {"app"}},
		map[string][]string{"init": {"/init"}, "zygote": {"/system/bin/app_process"}, "app": {"/system/bin/app_process"}},
	)
	nodes, err := Build(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := make(map[int]bool)
	for i, n := range nodes {
		if n.PID != i {
			t.Fatalf("expected pid %d at index %d, got %d", i, i, n.PID)
		}
		if seen[n.PID] {
			t.Fatalf("duplicate pid %d", n.PID)
		}
		seen[n.PID] = true
	}
}
