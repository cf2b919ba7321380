/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package dataflow implements the Dataflow Inflater (spec §4.6): it walks
// every G_allow edge, classifies its target into a FileNode or IPCNode (or
// discards it as a subject self-edge), and emits read/write edges into
// G_dataflow between subjects and the objects they can reach.
package dataflow

import (
	"sort"
	"strings"

	"github.com/coldbrewsec/macrecon/caps"
	"github.com/coldbrewsec/macrecon/graph"
	"github.com/coldbrewsec/macrecon/sepolicy"
	"github.com/coldbrewsec/macrecon/subject"
)

// Kind distinguishes the two object node variants spec §4.6.1 produces.
type Kind int

const (
	File Kind = iota
	IPC
)

// Object is one materialized object node: a FileNode (Kind == File) or an
// IPCNode (Kind == IPC). Class records the teclass (or the "process_op"
// substitution) that produced it; Owner is set only for IPC objects, per
// spec §4.6.4's owner-discovery rules.
type Object struct {
	Kind  Kind
	Class string
	Type  string
	Owner string

	// Trusted is set by the trust pass (spec §4.8): any backing file
	// under /sys/ or /dev/ makes the whole object node trusted.
	Trusted bool
}

// Set is the object-node universe the inflater builds, keyed by dataflow
// node name (see SubjectNodeName / ObjectNodeName).
type Set struct {
	Objects map[string]*Object
}

// SubjectNodeName is the G_dataflow node name for a subject or subject
// group of the given type. Grounded on
// original_source/se/graphnode.py's SubjectNode.get_node_name
// ("subject:%s" % sid.type).
func SubjectNodeName(t string) string { return "subject:" + t }

// ObjectNodeName is the G_dataflow node name for a FileNode/IPCNode of the
// given concrete type.
func ObjectNodeName(k Kind, t string) string {
	if k == File {
		return "file:" + t
	}
	return "ipc:" + t
}

// Options configures inflation behavior left unspecified by a hard rule in
// spec §4.6.4 ("If the chosen owner has no backing file and the
// 'skip-fileless' policy is on, discard").
type Options struct {
	SkipFileless bool
}

var selfSkipClasses = map[string]bool{
	"fd": true, "bpf": true, "cap_userns": true, "cap2_userns": true,
}

var capOverlayClasses = map[string]bool{
	"capability": true, "capability2": true,
}

// namedIPCClasses is the explicit named-class table of spec §4.6.1. Every
// member becomes an IPCNode identified by its own class name, except
// "process" which is renamed "process_op" to avoid colliding with the
// unrelated "process" teclass used by type_transition/dyntransition
// edges the hierarchy recoverer already consumes.
var namedIPCClasses = map[string]bool{
	"drmservice": true, "debuggerd": true, "property_service": true,
	"service_manager": true, "hwservice_manager": true, "binder": true,
	"key": true, "msg": true, "system": true, "security": true,
	"keystore_key": true, "zygote": true, "kernel_service": true,
	"process": true,
}

var socketClasses = map[string]bool{"netif": true, "peer": true, "node": true}

var readPerms = permSet(
	"read", "ioctl", "unix_read", "search", "recv", "receive", "recv_msg",
	"recvfrom", "rawip_recv", "tcp_recv", "dccp_recv", "udp_recv",
	"nlmsg_read", "nlmsg_readpriv", "call", "list", "find",
)

var writePerms = permSet(
	"write", "append", "add_name", "unix_write", "enqueue", "send",
	"send_msg", "sendto", "rawip_send", "tcp_send", "dccp_send",
	"udp_send", "connectto", "nlmsg_write", "call", "set", "add", "find",
	"ptrace", "transition",
)

var managePerms = permSet("create", "open")

func permSet(perms ...string) map[string]bool {
	m := make(map[string]bool, len(perms))
	for _, p := range perms {
		m[p] = true
	}
	return m
}

func hasAny(perms []string, set map[string]bool) bool {
	for _, p := range perms {
		if set[p] {
			return true
		}
	}
	return false
}

// classification is the result of classifying one teclass, per spec
// §4.6.1.
type classification int

const (
	classSkip classification = iota
	classOverlay
	classFile
	classIPC
)

// classify decides what an allow edge's teclass produces: a FileNode, an
// IPCNode (with its own class identifier, which may differ from teclass),
// a selinux-capability overlay addition, or nothing (subject self-edge).
func classify(teclass string, classes map[string]sepolicy.Class) (classification, string) {
	if capOverlayClasses[teclass] {
		return classOverlay, ""
	}
	if selfSkipClasses[teclass] {
		return classSkip, ""
	}
	if namedIPCClasses[teclass] {
		if teclass == "process" {
			return classIPC, "process_op"
		}
		return classIPC, teclass
	}
	if socketClasses[teclass] {
		return classIPC, "socket"
	}
	if teclass == "filesystem" || teclass == "file" {
		return classFile, ""
	}
	if teclass == "socket" {
		return classIPC, "socket"
	}
	if teclass == "ipc" {
		return classIPC, teclass
	}
	if cl, ok := classes[teclass]; ok {
		switch cl.Common {
		case "file":
			return classFile, ""
		case "socket":
			return classIPC, "socket"
		case "ipc":
			return classIPC, teclass
		}
	}
	return classSkip, ""
}

// Inflate runs the Dataflow Inflater against s and policy's G_allow
// edges, mutating s's subject capability overlays in place and returning
// the object-node universe plus the populated G_dataflow graph.
func Inflate(s subject.Set, policy sepolicy.Resolved, allow *graph.Allow, opts Options) (*graph.Dataflow, Set) {
	g := graph.NewDataflow()
	objects := Set{Objects: make(map[string]*Object)}

	edges := append([]graph.AllowEdge(nil), allow.Edges()...)

	for _, e := range edges {
		kind, classID := classify(e.TEClass, policy.Classes)

		switch kind {
		case classSkip:
			continue
		case classOverlay:
			for _, srcType := range policy.Expand(e.Source) {
				subj, ok := s.Nodes[srcType]
				if !ok {
					continue
				}
				for _, p := range e.Perms {
					if c, ok := caps.FromName(p); ok {
						subj.Cred.Cap.AddSELinuxGranted(c)
					}
				}
			}
			continue
		}

		hasRead := hasAny(e.Perms, readPerms)
		hasWrite := hasAny(e.Perms, writePerms) || hasAny(e.Perms, managePerms)
		if !hasRead && !hasWrite {
			continue
		}

		subjectTypes := policy.Expand(e.Source)
		objectTypes := policy.Expand(e.Target)

		for _, objType := range objectTypes {
			nodeKind := File
			if kind == classIPC {
				nodeKind = IPC
			}
			objName := ObjectNodeName(nodeKind, objType)

			obj, exists := objects.Objects[objName]
			if !exists {
				obj = &Object{Kind: nodeKind, Class: classIDOrTEClass(classID, e.TEClass), Type: objType}
				if nodeKind == IPC {
					owner, found := discoverOwner(objType, classID, s, policy, allow)
					if !found || (opts.SkipFileless && !hasBacking(s, owner)) {
						continue // no publisher (or fileless owner under policy): discard
					}
					obj.Owner = owner
				}
				objects.Objects[objName] = obj
			}

			for _, subjType := range subjectTypes {
				if _, ok := s.Nodes[subjType]; !ok {
					continue
				}
				subjName := SubjectNodeName(subjType)
				if hasRead {
					g.AddEdge(objName, subjName, graph.Read, e.TEClass)
				}
				if hasWrite {
					g.AddEdge(subjName, objName, graph.Write, e.TEClass)
				}
			}
		}
	}

	addGroupMembershipEdges(s, policy, g)

	return g, objects
}

func classIDOrTEClass(classID, teclass string) string {
	if classID != "" {
		return classID
	}
	return teclass
}

// discoverOwner implements spec §4.6.4's owner-discovery rules for an
// IPCNode of concrete type objType, produced by class identifier classID.
func discoverOwner(objType, classID string, s subject.Set, policy sepolicy.Resolved, allow *graph.Allow) (string, bool) {
	if _, ok := s.Nodes[objType]; ok {
		return objType, true
	}

	if strings.HasSuffix(classID, "service_manager") {
		candidates := append([]graph.AllowEdge(nil), allow.In(objType)...)
		for _, attr := range policy.Types[objType] {
			candidates = append(candidates, allow.In(attr)...)
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].Source != candidates[j].Source {
				return candidates[i].Source < candidates[j].Source
			}
			return candidates[i].Target < candidates[j].Target
		})
		for _, e := range candidates {
			if !e.HasPerm("add") {
				continue
			}
			members := policy.Expand(e.Source)
			if len(members) == 0 {
				continue
			}
			if _, ok := s.Nodes[members[0]]; !ok {
				continue // spec §8: every ipc object's owner must be a SubjectNode
			}
			return members[0], true
		}
		return "", false
	}

	if classID == "property_service" {
		return "init", true
	}

	return "", false
}

func hasBacking(s subject.Set, ownerType string) bool {
	n, ok := s.Nodes[ownerType]
	if !ok {
		return false
	}
	return len(n.Backing) != 0
}

// addGroupMembershipEdges adds a subject -> group "is-a" edge for each
// retained SubjectGroup's concrete members, spec §4.6.6.
func addGroupMembershipEdges(s subject.Set, policy sepolicy.Resolved, g *graph.Dataflow) {
	var groupNames []string
	for name := range s.Groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	for _, groupName := range groupNames {
		members := policy.Expand(groupName)
		for _, m := range members {
			if _, ok := s.Nodes[m]; !ok {
				continue
			}
			g.AddEdge(SubjectNodeName(m), SubjectNodeName(groupName), graph.IsA, "")
		}
	}
}
