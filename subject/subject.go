/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package subject implements the Subject Inflater (spec §4.4): one
// SubjectNode per type in the `domain` attribute, plus SubjectGroups for
// attributes whose membership is entirely covered by existing subjects.
package subject

import (
	"sort"

	"github.com/coldbrewsec/macrecon/cred"
	"github.com/coldbrewsec/macrecon/graph"
	"github.com/coldbrewsec/macrecon/sepolicy"
	"github.com/coldbrewsec/macrecon/vfs"
)

// Node is one SELinux process type: its default Cred, its backing files
// (executables with this domain's label), its parent/child edges (a
// polymorphic DAG filled in by the hierarchy recoverer), and whether the
// trust pass has marked it as part of the TCB. Spec §3 SubjectNode /
// SubjectGroup share this shape; SubjectGroup represents a union over an
// attribute's members rather than one concrete type.
type Node struct {
	Type     string
	Cred     cred.Cred
	Parents  map[string]bool
	Children map[string]bool

	Backing map[string]*vfs.FilePolicy

	Trusted bool

	IsGroup bool // true for an attribute-derived SubjectGroup
}

func newNode(typeName string) *Node {
	return &Node{
		Type:     typeName,
		Parents:  make(map[string]bool),
		Children: make(map[string]bool),
		Backing:  make(map[string]*vfs.FilePolicy),
	}
}

// AssociateFile records fp as a backing executable of n.
func (n *Node) AssociateFile(path string, fp *vfs.FilePolicy) { n.Backing[path] = fp }

// SortedBackingPaths returns n's backing file paths in sorted order.
func (n *Node) SortedBackingPaths() []string {
	out := make([]string, 0, len(n.Backing))
	for p := range n.Backing {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (n *Node) AddChild(child string)   { n.Children[child] = true }
func (n *Node) AddParent(parent string) { n.Parents[parent] = true }

// SortedChildren / SortedParents give deterministic iteration order over
// n's DAG edges, spec §5.
func (n *Node) SortedChildren() []string { return sortedKeys(n.Children) }
func (n *Node) SortedParents() []string  { return sortedKeys(n.Parents) }

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Set is the inflated subject/group universe: Nodes holds every concrete
// SubjectNode keyed by type; Groups holds every retained SubjectGroup
// keyed by attribute name.
type Set struct {
	Nodes  map[string]*Node
	Groups map[string]*Node
}

// Inflate builds a Set from policy and allow, per spec §4.4. Grounded on
// original_source/fs/filesysteminstance.py's inflate_subjects.
func Inflate(policy sepolicy.Resolved, allow *graph.Allow) Set {
	s := Set{Nodes: make(map[string]*Node), Groups: make(map[string]*Node)}

	domainTypes := append([]string(nil), policy.Attributes["domain"]...)
	sort.Strings(domainTypes)

	domainAttrs := make(map[string]bool)
	for _, t := range domainTypes {
		n := newNode(t)
		n.Cred.SID = sepolicy.Context{User: "u", Role: "r", Type: t, MLS: "s0"}
		s.Nodes[t] = n
		for _, attr := range policy.Types[t] {
			domainAttrs[attr] = true
		}
	}

	var candidateAttrs []string
	for a := range domainAttrs {
		candidateAttrs = append(candidateAttrs, a)
	}
	sort.Strings(candidateAttrs)

	for _, attr := range candidateAttrs {
		if attr == "domain" {
			continue
		}
		if !allow.HasSource(attr) {
			continue
		}
		members := policy.Expand(attr)
		allPresent := true
		for _, m := range members {
			if _, ok := s.Nodes[m]; !ok {
				allPresent = false
				break
			}
		}
		if !allPresent || len(members) == 0 {
			continue
		}
		g := newNode(attr)
		g.IsGroup = true
		g.Cred.SID = sepolicy.Context{User: "u", Role: "r", Type: attr, MLS: "s0"}
		s.Groups[attr] = g
	}

	return s
}
