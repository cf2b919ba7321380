/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package hierarchy implements the Hierarchy Recoverer (spec §4.5): it
// fills in a subject.Set's parent/child edges and backing-file
// associations from G_transition, the dyntransition overlay in G_allow,
// and a handful of special-cased domains.
package hierarchy

import (
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/coldbrewsec/macrecon/errs"
	"github.com/coldbrewsec/macrecon/graph"
	"github.com/coldbrewsec/macrecon/sepolicy"
	"github.com/coldbrewsec/macrecon/subject"
	"github.com/coldbrewsec/macrecon/vfs"
)

// fileIndex maps a (dereferenced) type to every VFS path carrying it.
type fileIndex map[string]map[string]*vfs.FilePolicy

// buildFileIndex walks v, grouping paths by their labelled type (aliases
// resolved to canonical names first, per spec invariant 2).
func buildFileIndex(v *vfs.VFS, policy sepolicy.Resolved) fileIndex {
	idx := make(fileIndex)
	for _, p := range v.Paths() {
		fp, ok := v.Get(p)
		if !ok || fp.SELinux.IsZero() {
			continue
		}
		t := policy.Canonical(fp.SELinux.Type)
		if idx[t] == nil {
			idx[t] = make(map[string]*vfs.FilePolicy)
		}
		idx[t][p] = fp
	}
	return idx
}

// Recover runs the recovery per spec §4.5 against s, mutating it in place.
// It returns an error if zygote has no backing file: spec §4.5 treats that
// as a fatal inconsistency, since every later stage assumes zygote is a
// real forking process.
func Recover(s subject.Set, policy sepolicy.Resolved, allow *graph.Allow, transition *graph.Transition, v *vfs.VFS) error {
	idx := buildFileIndex(v, policy)

	// referenced marks every domain named as a type_transition's Default,
	// regardless of whether the Through type resolved to any VFS paths.
	// Spec §4.5 step 3's last-ditch glob excludes these domains too, not
	// just ones that actually got a backing file out of step 1.
	referenced := make(map[string]bool)

	// Step 1: type_transition edges with teclass=process.
	for _, e := range transition.Edges() {
		if e.TEClass != "process" {
			continue
		}
		parent, ok := s.Nodes[e.Source]
		if !ok {
			continue
		}
		child, ok := s.Nodes[e.Default]
		if !ok {
			continue
		}
		referenced[child.Type] = true
		parent.AddChild(child.Type)
		child.AddParent(parent.Type)
		for p, fp := range idx[policy.Canonical(e.Through)] {
			child.AssociateFile(p, fp)
		}
	}

	// Step 2: dyntransition overlay from G_allow.
	for _, e := range allow.Edges() {
		if e.TEClass != "process" {
			continue
		}
		if !e.HasPerm("transition") && !e.HasPerm("dyntransition") {
			continue
		}
		parent, ok := s.Nodes[e.Source]
		if !ok {
			continue
		}
		for _, childType := range policy.Expand(e.Target) {
			if childType == e.Source {
				continue
			}
			child, ok := s.Nodes[childType]
			if !ok {
				continue
			}
			parent.AddChild(child.Type)
			child.AddParent(parent.Type)
		}
	}

	return applySpecialCases(s, policy, v, referenced)
}

func applySpecialCases(s subject.Set, policy sepolicy.Resolved, v *vfs.VFS, referenced map[string]bool) error {
	if init, ok := s.Nodes["init"]; ok && len(init.Backing) == 0 {
		if fp, ok := v.Get("/init"); ok {
			init.AssociateFile("/init", fp)
		}
	}

	if ss, ok := s.Nodes["system_server"]; ok {
		ss.Backing = make(map[string]*vfs.FilePolicy)
	}

	zygote, hasZygote := s.Nodes["zygote"]
	if hasZygote {
		if len(zygote.Backing) == 0 {
			return errs.New(errs.HierarchyInconsistent, "zygote", errors.New("zygote subject has no backing file"))
		}
		for _, childType := range zygote.SortedChildren() {
			child := s.Nodes[childType]
			if child != nil && len(child.Backing) == 0 {
				for p, fp := range zygote.Backing {
					child.AssociateFile(p, fp)
				}
			}
		}
	}

	// Last-ditch heuristic: any domain with no backing file gets a single
	// *<domain> glob attempt, skipping appdomain members and domains a
	// type_transition already referenced as its Default (spec §4.5 step 3:
	// "appdomain exclusion, then a last-ditch heuristic").
	appdomain := make(map[string]bool)
	for _, t := range policy.Attributes["appdomain"] {
		appdomain[t] = true
	}

	var names []string
	for name := range s.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		n := s.Nodes[name]
		if len(n.Backing) != 0 || appdomain[name] || referenced[name] {
			continue
		}
		matches := findByBasenameSuffix(v, name)
		if len(matches) == 1 {
			if fp, ok := v.Get(matches[0]); ok {
				n.AssociateFile(matches[0], fp)
			}
		}
	}

	return nil
}

// findByBasenameSuffix returns every VFS path whose basename ends with
// suffix, sorted. "Glob the VFS for *<domain>" (spec §4.5) names a shell
// glob; a basename-suffix scan is the direct equivalent that also works
// for domains with no directory prefix at all.
func findByBasenameSuffix(v *vfs.VFS, suffix string) []string {
	var out []string
	for _, p := range v.Paths() {
		if strings.HasSuffix(path.Base(p), suffix) {
			out = append(out, p)
		}
	}
	return out
}
