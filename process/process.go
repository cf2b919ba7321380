/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package process implements the Process Tree Builder (spec §4.7): a DFS
// from the kernel subject down through the hierarchy recoverer's
// parent/child edges, materializing one ProcessNode per backing file with
// a fresh, contiguous PID.
package process

import (
	"errors"
	"strings"

	"github.com/coldbrewsec/macrecon/cred"
	"github.com/coldbrewsec/macrecon/errs"
	"github.com/coldbrewsec/macrecon/subject"
	"github.com/coldbrewsec/macrecon/vfs"
)

// State is a ProcessNode's run state, set initially here (always Running
// except the credential simulator's Service-matching step in spec §4.8
// may later flip a node to Stopped).
type State int

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "stopped"
	}
	return "running"
}

// Node is one ProcessNode: a single backing executable of a SubjectNode,
// given a fresh PID. Spec §8 invariant: |p.exe| == 1 and p.parent == nil
// iff p.pid == 0.
type Node struct {
	PID      int
	Subject  *subject.Node
	Parent   *Node
	Children []*Node

	ExePath string
	Exe     *vfs.FilePolicy

	Cred  cred.Cred
	State State
}

// kernelExePath is the synthetic single-entry "executable" assigned to
// the PID-0 kernel process, modeled like PID 1 init but with no backing
// file in the VFS. This is a deliberate reading of spec §4.7's "DFS from
// kernel_0" requiring PID 0 to exist at all even though the kernel
// subject typically has no backing_files entry.
const kernelExePath = "[kernel]"

// Build runs the DFS tree construction against s, rooted at the "kernel"
// subject (PID 0). It returns every ProcessNode created, in PID order.
func Build(s subject.Set) ([]*Node, error) {
	kernelSubj, ok := s.Nodes["kernel"]
	if !ok {
		return nil, errs.New(errs.HierarchyInconsistent, "kernel", errors.New("no kernel subject in the inflated subject set"))
	}

	root := &Node{
		PID:     0,
		Subject: kernelSubj,
		ExePath: kernelExePath,
		Exe:     &vfs.FilePolicy{},
		State:   Running,
	}

	b := &builder{
		subjects: s,
		visited:  map[string]bool{"kernel": true},
		nextPID:  1,
	}
	b.all = append(b.all, root)
	b.visit(root, "kernel")

	return b.all, nil
}

type builder struct {
	subjects subject.Set
	visited  map[string]bool
	nextPID  int
	all      []*Node
}

// visit recurses into subjType's children, each push ordered
// alphabetically by type name per spec §5, creating one ProcessNode per
// backing file of each child (in canonical/sorted path order).
func (b *builder) visit(parent *Node, subjType string) {
	subj := b.subjects.Nodes[subjType]
	if subj == nil {
		return
	}

	for _, childType := range subj.SortedChildren() {
		// crash_dump is the one subject spec §4.7 allows to be
		// re-visited, and only as a child of a zygote fork class -- it
		// is re-forked under every one of them (zygote, zygote_secondary,
		// ...), not just the primary zygote.
		revisitable := childType == "crash_dump" && strings.HasPrefix(subjType, "zygote")
		if !revisitable {
			if b.visited[childType] {
				continue
			}
			b.visited[childType] = true
		}

		child := b.subjects.Nodes[childType]
		if child == nil {
			continue
		}

		// A subject with no backing file yields no ProcessNode and
		// contributes no subtree: there is no executable to have forked
		// it, so there is nothing for its own children to fork from
		// either.
		for _, p := range child.SortedBackingPaths() {
			node := &Node{
				PID:     b.nextPID,
				Subject: child,
				Parent:  parent,
				ExePath: p,
				Exe:     child.Backing[p],
				State:   Running,
			}
			b.nextPID++
			b.all = append(b.all, node)
			parent.Children = append(parent.Children, node)
			b.visit(node, childType)
		}
	}
}
