/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package graph

import (
	"testing"

	"github.com/coldbrewsec/macrecon/sepolicy"
)

func TestBuildAllowAndTransition(t *testing.T) {
	p := sepolicy.Policy{
		TypeList: []sepolicy.Type{
			{Name: "init_exec", Aliases: []string{"init_exec_alias"}},
		},
		TERuleList: []sepolicy.TERule{
			{Kind: sepolicy.AVAllow, Source: "init", Target: "tmpfs", TClass: "filesystem", Perms: []string{"mount"}},
			{Kind: sepolicy.TypeTransition, Source: "init", Target: "init_exec_alias", TClass: "process", Default: "init"},
		},
	}
	r := sepolicy.Resolve(p)
	allow, trans, err := Build(r, p.TERuleList)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(allow.Edges()) != 1 || allow.Edges()[0].Target != "tmpfs" {
		t.Fatalf("unexpected allow edges: %+v", allow.Edges())
	}
	if !allow.HasSource("init") {
		t.Fatalf("expected init to be a source")
	}
	edges := trans.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected one transition edge, got %d", len(edges))
	}
	if edges[0].Through != "init_exec_alias" {
		t.Fatalf("Through should preserve the uncanonicalized target, got %q", edges[0].Through)
	}
}

func TestBuildRejectsConditional(t *testing.T) {
	p := sepolicy.Policy{
		TERuleList: []sepolicy.TERule{
			{Kind: sepolicy.AVAllow, Source: "a", Target: "b", Conditional: true},
		},
	}
	r := sepolicy.Resolve(p)
	if _, _, err := Build(r, p.TERuleList); err == nil {
		t.Fatalf("expected conditional rule to be rejected")
	}
}

func TestDataflowDedup(t *testing.T) {
	g := NewDataflow()
	if !g.AddEdge("a", "b", Write, "file") {
		t.Fatalf("expected first insert to succeed")
	}
	if g.AddEdge("a", "b", Write, "file") {
		t.Fatalf("expected duplicate write edge to be suppressed")
	}
	if !g.AddEdge("a", "b", Read, "file") {
		t.Fatalf("a distinct kind should not be deduplicated against the write edge")
	}
	if len(g.Nodes()) != 2 {
		t.Fatalf("expected 2 nodes, got %v", g.Nodes())
	}
}
