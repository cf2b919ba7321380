/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package graph

import "sort"

// TransitionEdge is one type_transition rule instance: source, through the
// object used to start the transition (Through == terule.target in
// original_source/se/sepolicygraph.py's terminology), yielding Default as
// the new type, optionally qualified by a filename (FileNameTERule). Spec
// §3: "G_transition: multigraph of `source_type -(teclass, through,
// optional_filename)-> default_type`".
type TransitionEdge struct {
	Source   string
	Default  string
	TEClass  string
	Through  string
	Filename string // "" if this is a plain (non-filename) type_transition
}

// Transition is G_transition.
type Transition struct {
	edges    []TransitionEdge
	bySource map[string][]int
}

func NewTransition(edges []TransitionEdge) *Transition {
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Default < edges[j].Default
	})
	g := &Transition{edges: edges, bySource: make(map[string][]int)}
	for i, e := range edges {
		g.bySource[e.Source] = append(g.bySource[e.Source], i)
	}
	return g
}

// Edges returns every edge, in deterministic order.
func (g *Transition) Edges() []TransitionEdge { return g.edges }

// Out returns the edges whose source is name.
func (g *Transition) Out(name string) []TransitionEdge {
	idx := g.bySource[name]
	out := make([]TransitionEdge, len(idx))
	for i, id := range idx {
		out[i] = g.edges[id]
	}
	return out
}
