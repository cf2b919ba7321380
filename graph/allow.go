/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package graph holds the three multigraphs the pipeline builds and
// consumes: G_allow and G_transition (spec §3, both over concrete types and
// attributes), and G_dataflow (spec §4.6, over materialized subject/object
// node names). Node identity is a plain string (a type, attribute, or
// node name) throughout -- spec §9 asks for a tagged union for graph
// *nodes* elsewhere in the pipeline (see the subject/graph-node types in
// package subject), but the three graphs here are edge-lists keyed by name,
// not owners of node objects, so a string key is the right representation
// and matches original_source/se/sepolicygraph.py's use of networkx
// MultiDiGraph with string node ids.
package graph

import "sort"

// AllowEdge is one MAC allow/auditallow rule instance: source -(teclass,
// perms)-> target. Spec §3: "G_allow: multigraph of `source_type
// -(teclass, perms[])-> target_type`".
type AllowEdge struct {
	Source string
	Target string
	TEClass string
	Perms   []string
}

// Allow is G_allow: a multigraph indexed for both outgoing and incoming
// traversal, since the dataflow inflater's owner-discovery step (spec
// §4.6.4) needs "incoming edges to the actualized type".
type Allow struct {
	edges     []AllowEdge
	bySource  map[string][]int
	byTarget  map[string][]int
}

// NewAllow builds an Allow graph from a pre-built edge list (in source-name
// sorted order, matching original_source/se/sepolicygraph.py's cond_sort
// helper so that iteration elsewhere is deterministic per spec §5).
func NewAllow(edges []AllowEdge) *Allow {
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	g := &Allow{
		edges:    edges,
		bySource: make(map[string][]int),
		byTarget: make(map[string][]int),
	}
	for i, e := range edges {
		g.bySource[e.Source] = append(g.bySource[e.Source], i)
		g.byTarget[e.Target] = append(g.byTarget[e.Target], i)
	}
	return g
}

// Edges returns every edge, in deterministic order.
func (g *Allow) Edges() []AllowEdge { return g.edges }

// Out returns the edges whose source is name.
func (g *Allow) Out(name string) []AllowEdge {
	return g.selectEdges(g.bySource[name])
}

// In returns the edges whose target is name.
func (g *Allow) In(name string) []AllowEdge {
	return g.selectEdges(g.byTarget[name])
}

// HasSource reports whether name appears as a source of any edge -- used
// by the subject inflater's "A appears as a source in G_allow" test (spec
// §4.4).
func (g *Allow) HasSource(name string) bool { return len(g.bySource[name]) > 0 }

func (g *Allow) selectEdges(idx []int) []AllowEdge {
	out := make([]AllowEdge, len(idx))
	for i, id := range idx {
		out[i] = g.edges[id]
	}
	return out
}

// HasPerm reports whether any perm in e.Perms equals p.
func (e AllowEdge) HasPerm(p string) bool {
	for _, x := range e.Perms {
		if x == p {
			return true
		}
	}
	return false
}
