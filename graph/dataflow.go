/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package graph

import "sort"

// FlowKind is the direction of a dataflow edge. Spec §4.6.5: "object ->
// subject with ty=read... subject -> object with ty=write".
type FlowKind int

const (
	Read FlowKind = iota
	Write
	// IsA is the attribute-to-concrete membership edge spec §4.6.6 adds
	// for every retained SubjectGroup: subject -> group.
	IsA
)

func (k FlowKind) String() string {
	switch k {
	case Write:
		return "write"
	case IsA:
		return "is-a"
	default:
		return "read"
	}
}

// DataflowEdge is one edge of G_dataflow: a directed relation between two
// node names (a subject, subject-group, or object node name) tagged by
// direction and the security class that produced it.
type DataflowEdge struct {
	From    string
	To      string
	Kind    FlowKind
	TEClass string
}

// Dataflow is G_dataflow: "multigraph over subject/subject-group/object
// node-names with `{ty: read|write, …}` edges" (spec §3). Duplicate
// edges (same From/To/Kind) are suppressed on insert, matching spec §4.6.5
// ("do not duplicate an existing write edge").
type Dataflow struct {
	edges []DataflowEdge
	seen  map[dfKey]bool
	nodes map[string]bool
}

type dfKey struct {
	From, To string
	Kind     FlowKind
}

func NewDataflow() *Dataflow {
	return &Dataflow{
		seen:  make(map[dfKey]bool),
		nodes: make(map[string]bool),
	}
}

// AddEdge inserts an edge if an equivalent (From, To, Kind) edge is not
// already present. Returns true if the edge was newly added.
func (g *Dataflow) AddEdge(from, to string, kind FlowKind, teclass string) bool {
	k := dfKey{From: from, To: to, Kind: kind}
	if g.seen[k] {
		return false
	}
	g.seen[k] = true
	g.nodes[from] = true
	g.nodes[to] = true
	g.edges = append(g.edges, DataflowEdge{From: from, To: to, Kind: kind, TEClass: teclass})
	return true
}

// HasEdge reports whether an equivalent edge already exists.
func (g *Dataflow) HasEdge(from, to string, kind FlowKind) bool {
	return g.seen[dfKey{From: from, To: to, Kind: kind}]
}

// Edges returns every edge in insertion order (deterministic because
// callers insert in a sorted traversal, per spec §5).
func (g *Dataflow) Edges() []DataflowEdge { return g.edges }

// Nodes returns every node name that appears in at least one edge, sorted.
func (g *Dataflow) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
