/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package sepolicy

import "sort"

// Class is a security object class: a name, an optional common parent
// (empty string if none), and the permissions the class itself declares
// (not including inherited common perms).
type Class struct {
	Name   string
	Common string
	Perms  []string
}

// Common is an access-vector common block shared by one or more classes.
type Common struct {
	Name  string
	Perms []string
}

// Type is one SELinux type declaration: its aliases and the attributes it
// carries.
type Type struct {
	Name       string
	Aliases    []string
	Attributes []string
}

// TERuleKind tags which of the three TE rule shapes a TERule carries. Spec
// §6: "terules (three shapes: AV-allow..., AV-xperm, type-transition with
// optional filename)".
type TERuleKind int

const (
	AVAllow TERuleKind = iota
	AVXperm
	TypeTransition
)

// TERule is a tagged union over the three rule shapes the policy
// collaborator can produce. Only the fields relevant to Kind are
// meaningful; this mirrors spec §9's tagged-union guidance rather than
// three separate Go types, since downstream code (graph construction)
// switches on Kind once and only needs a single slice type to iterate.
type TERule struct {
	Kind TERuleKind

	Source string
	Target string
	TClass string

	// AVAllow / AVXperm
	Perms []string

	// TypeTransition
	Default  string
	Filename string // "" if this is a plain (non-filename) type_transition

	// Conditional marks a rule guarded by a boolean conditional
	// expression. Spec §7 MalformedPolicy: "the SELinux policy contains
	// conditional rules... not supported for SEAndroid graphing" (see
	// original_source/se/sepolicygraph.py's build_graph, which raises on
	// terule_.conditional).
	Conditional bool
}

// GenFSCon labels paths under a pseudo filesystem identified by fstype.
// Spec §4.3: "genfscon entries (longest partial_path wins, prefix-match)".
type GenFSCon struct {
	FS      string
	Path    string
	Context string
}

// FSUse labels an entire pseudo filesystem by fstype (fs_use_task and
// friends), restricted in this implementation to tmpfs per spec §4.3.
type FSUse struct {
	FS      string
	Context string
}

// Policy is the black-box interface consumed from the SELinux binary
// policy collaborator (spec §6). Parsing the binary policy format itself
// is out of scope; anything satisfying this interface -- a real parser, a
// golden-file fixture, a test double -- can drive the rest of the engine.
type Policy struct {
	ClassList          []Class
	CommonList         []Common
	TypeList           []Type
	TypeAttributeNames []string
	TERuleList         []TERule
	GenFSConList       []GenFSCon
	FSUseList          []FSUse
}

// Resolved is a Policy after alias resolution and attribute-membership
// indexing: the form every downstream pass (subject inflation, hierarchy
// recovery, dataflow inflation) actually consumes. Spec invariant 2: "Aliases
// never appear as graph nodes; they are always resolved to their canonical
// type before insertion."
type Resolved struct {
	// Classes maps class name -> Class, with Perms pre-merged with the
	// named common's perms (if any).
	Classes map[string]Class
	Commons map[string]Common

	// Attributes maps attribute name -> sorted member type names.
	Attributes map[string][]string
	// Types maps concrete type name -> its own attribute list.
	Types map[string][]string
	// Aliases maps alias name -> canonical type name.
	Aliases map[string]string

	GenFS map[string][]GenFSCon // keyed by fstype
	FSUse map[string]FSUse      // keyed by fstype
}

// Resolve builds a Resolved view of p: it canonicalizes aliases, merges
// common perms into their classes, and indexes attribute membership.
// Grounded on original_source/se/sepolicygraph.py's build_graph, which
// performs this same bookkeeping inline before constructing G_allow /
// G_transition; we split it out so alias resolution happens exactly once
// and is reusable by both graph construction and direct lookups (e.g. the
// subject inflater's attribute-membership test).
func Resolve(p Policy) Resolved {
	r := Resolved{
		Classes:    make(map[string]Class, len(p.ClassList)),
		Commons:    make(map[string]Common, len(p.CommonList)),
		Attributes: make(map[string][]string, len(p.TypeAttributeNames)),
		Types:      make(map[string][]string, len(p.TypeList)),
		Aliases:    make(map[string]string),
		GenFS:      make(map[string][]GenFSCon),
		FSUse:      make(map[string]FSUse),
	}

	for _, c := range p.CommonList {
		r.Commons[c.Name] = c
	}
	for _, cl := range p.ClassList {
		perms := append([]string(nil), cl.Perms...)
		if cl.Common != "" {
			if common, ok := r.Commons[cl.Common]; ok {
				perms = append(perms, common.Perms...)
			}
		}
		r.Classes[cl.Name] = Class{Name: cl.Name, Common: cl.Common, Perms: perms}
	}
	for _, a := range p.TypeAttributeNames {
		r.Attributes[a] = []string{}
	}
	for _, t := range p.TypeList {
		for _, attr := range t.Attributes {
			r.Attributes[attr] = append(r.Attributes[attr], t.Name)
		}
		for _, alias := range t.Aliases {
			r.Aliases[alias] = t.Name
		}
		r.Types[t.Name] = append([]string(nil), t.Attributes...)
	}
	for _, members := range r.Attributes {
		sort.Strings(members)
	}
	for _, g := range p.GenFSConList {
		r.GenFS[g.FS] = append(r.GenFS[g.FS], g)
	}
	for _, f := range p.FSUseList {
		r.FSUse[f.FS] = f
	}
	return r
}

// Canonical resolves t through the alias table, returning t unchanged if it
// is not an alias.
func (r Resolved) Canonical(t string) string {
	if c, ok := r.Aliases[t]; ok {
		return c
	}
	return t
}

// IsAttribute reports whether name is a type attribute rather than a
// concrete type.
func (r Resolved) IsAttribute(name string) bool {
	_, ok := r.Attributes[name]
	return ok
}

// Expand returns the concrete member types of an attribute, or [name]
// itself if name is already a concrete type. Spec §9: "`expand(t)` returns
// `[t]` for a type and the members for an attribute."
func (r Resolved) Expand(name string) []string {
	if members, ok := r.Attributes[name]; ok {
		return members
	}
	return []string{name}
}
