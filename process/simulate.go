/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package process

import (
	"errors"
	"sort"
	"strings"

	"github.com/coldbrewsec/macrecon/aid"
	"github.com/coldbrewsec/macrecon/caps"
	"github.com/coldbrewsec/macrecon/cred"
	"github.com/coldbrewsec/macrecon/errs"
	"github.com/coldbrewsec/macrecon/initscript"
	"github.com/coldbrewsec/macrecon/vfs"
)

// fixedServerCaps is the capability set spec §4.8 step 6 grants to
// system_server's permitted/effective/inheritable subsets.
var fixedServerCaps = []caps.Cap{
	caps.IPC_LOCK, caps.KILL, caps.NET_ADMIN, caps.NET_BIND_SERVICE,
	caps.NET_BROADCAST, caps.NET_RAW, caps.SYS_MODULE, caps.SYS_NICE,
	caps.SYS_PTRACE, caps.SYS_TIME, caps.SYS_TTY_CONFIG, caps.WAKE_ALARM,
}

// fixedServerGroups is the supplementary group set spec §4.8 step 6 adds
// to system_server.
var fixedServerGroups = []int{
	1001, 1002, 1003, 1004, 1005, 1006, 1007, 1008, 1009, 1010,
	1018, 1021, 1023, 1032,
	3001, 3002, 3003, 3006, 3007, 3009, 3010,
}

// Simulate runs the Credential Simulator (spec §4.8) over tree in place,
// deterministically, in a single pass. It assigns Cred and State to
// kernel, init, init's direct children, and the untrusted_app*,
// crash_dump* and system_server children of the --start-system-server
// zygote; every other Node keeps its zero Cred and initial State.
// androidMajor gates init's supplementary-group step (spec
// §4.8 step 2).
func Simulate(tree []*Node, services map[string]*initscript.Service, androidMajor int) error {
	if len(tree) == 0 || tree[0].Parent != nil || tree[0].Subject.Type != "kernel" {
		return errs.New(errs.HierarchyInconsistent, "kernel", errors.New("process tree is not rooted at kernel"))
	}
	kernel := tree[0]
	kernel.Cred = cred.New(0, 0)
	kernel.Cred.Cap.GrantAll()
	kernel.State = Running

	var initNode *Node
	for _, c := range kernel.Children {
		if c.Subject.Type == "init" {
			initNode = c
			break
		}
	}
	if initNode == nil {
		return errs.New(errs.SimulationFailed, "init", errors.New("no init process in tree"))
	}
	initNode.Cred = cred.New(0, 0)
	initNode.Cred.SID = initNode.Subject.Cred.SID
	initNode.Cred.Cap.GrantAll()
	initNode.State = Running
	if androidMajor >= 7 {
		if gid, ok := aid.ByName("readproc"); ok {
			initNode.Cred.AddGroup(gid)
		}
	} else {
		initNode.Cred.ClearGroups()
	}

	matched := make(map[*Node]*initscript.Service)
	for _, child := range initNode.Children {
		sid := child.Subject.Cred.SID
		child.Cred = initNode.Cred.Execve(&sid)
		child.Cred.ClearGroups()

		svc := matchService(services, child.ExePath)
		if svc == nil {
			child.State = Stopped
			continue
		}
		matched[child] = svc
		child.State = Running
		if svc.HasUID {
			child.Cred.UID = svc.UID
		}
		if svc.HasGID {
			child.Cred.GID = svc.GID
		}
		for _, g := range svc.Groups {
			child.Cred.AddGroup(g)
		}
		if child.Cred.UID != 0 {
			child.Cred.Cap.DropAll()
			if len(svc.Ambient) > 0 {
				var granted []caps.Cap
				for _, name := range svc.Ambient {
					if c, ok := caps.FromName(name); ok {
						granted = append(granted, c)
					}
				}
				child.Cred.Cap.SetAmbientAndMirror(granted...)
			}
		}
	}

	var zygotes []*Node
	var systemServerZygote *Node
	for _, child := range initNode.Children {
		if !strings.HasPrefix(child.Subject.Type, "zygote") {
			continue
		}
		zygotes = append(zygotes, child)
		if svc := matched[child]; svc != nil && hasArg(svc.Args, "--start-system-server") {
			systemServerZygote = child
		}
	}
	if len(zygotes) == 0 {
		return errs.New(errs.SimulationFailed, "zygote", errors.New("no zygote process in tree"))
	}
	if systemServerZygote == nil {
		return errs.New(errs.SimulationFailed, "zygote", errors.New("no --start-system-server zygote found"))
	}

	// The process tree builder already materializes system_server as a
	// child of only one zygote (its visited-once rule). If that zygote
	// is not the --start-system-server one, move system_server there
	// instead of dropping it outright, so exactly one instance survives
	// and it is parented correctly (spec §8 S2).
	var orphanSystemServer *Node
	for _, z := range zygotes {
		kept := z.Children[:0:0]
		for _, c := range z.Children {
			if c.Subject.Type == "system_server" {
				if z == systemServerZygote {
					kept = append(kept, c)
				} else {
					orphanSystemServer = c
				}
				continue
			}
			if c.ExePath != z.ExePath && !strings.Contains(c.Subject.Type, "crash") {
				continue // dropped: not forked from the zygote's own executable
			}
			kept = append(kept, c)
		}
		z.Children = kept
	}
	if orphanSystemServer != nil {
		orphanSystemServer.Parent = systemServerZygote
		systemServerZygote.Children = append(systemServerZygote.Children, orphanSystemServer)
	}

	appID := 0
	for _, c := range systemServerZygote.Children {
		t := c.Subject.Type
		if !strings.HasPrefix(t, "untrusted_app") && !strings.HasPrefix(t, "crash_dump") {
			continue
		}
		sid := c.Subject.Cred.SID
		c.Cred = systemServerZygote.Cred.Execve(&sid)
		c.Cred.ClearGroups()
		c.Cred.Cap.DropAll()

		uid := 10000 + appID
		c.Cred.UID = uid
		c.Cred.GID = uid
		if g, ok := aid.ByName("inet"); ok {
			c.Cred.AddGroup(g)
		}
		if g, ok := aid.ByName("everybody"); ok {
			c.Cred.AddGroup(g)
		}
		c.Cred.AddGroup(50000 + appID)
		c.State = Running
		appID++
	}

	for _, c := range systemServerZygote.Children {
		if c.Subject.Type != "system_server" {
			continue
		}
		c.Cred = cred.New(1000, 1000)
		c.Cred.SID = c.Subject.Cred.SID
		c.Cred.Cap.SetBoundingEmpty()
		for _, fc := range fixedServerCaps {
			c.Cred.Cap.Add(caps.Permitted, fc)
			c.Cred.Cap.Add(caps.Effective, fc)
			c.Cred.Cap.Add(caps.Inheritable, fc)
		}
		for _, g := range fixedServerGroups {
			c.Cred.AddGroup(g)
		}
		c.State = Running
		break
	}

	reparent(initNode, zygotes)

	return nil
}

// reparent implements spec §4.8 step 7: any STOPPED non-zygote init-child
// is reparented to a RUNNING sibling sharing the same Subject, with its
// cred re-derived from the new parent's.
func reparent(initNode *Node, zygotes []*Node) {
	isZygote := make(map[*Node]bool, len(zygotes))
	for _, z := range zygotes {
		isZygote[z] = true
	}

	var stopped, kept []*Node
	for _, c := range initNode.Children {
		if c.State == Stopped && !isZygote[c] {
			stopped = append(stopped, c)
		} else {
			kept = append(kept, c)
		}
	}

	for _, s := range stopped {
		var newParent *Node
		for _, k := range kept {
			if k.State == Running && k.Subject == s.Subject {
				newParent = k
				break
			}
		}
		if newParent == nil {
			kept = append(kept, s)
			continue
		}
		s.Parent = newParent
		s.Cred = newParent.Cred.Execve(nil)
		newParent.Children = append(newParent.Children, s)
	}

	initNode.Children = kept
}

// matchService finds a non-oneshot Service whose first argument resolves
// to exePath, in deterministic (sorted-by-name) order -- spec §4.8 step
// 3.b.
func matchService(services map[string]*initscript.Service, exePath string) *initscript.Service {
	names := make([]string, 0, len(services))
	for n := range services {
		names = append(names, n)
	}
	sort.Strings(names)

	target := vfs.Canonicalize(exePath)
	for _, n := range names {
		svc := services[n]
		if svc.Oneshot || len(svc.Args) == 0 {
			continue
		}
		if vfs.Canonicalize(svc.Args[0]) == target {
			return svc
		}
	}
	return nil
}

func hasArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}
