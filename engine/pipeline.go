/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package engine

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coldbrewsec/macrecon/dataflow"
	"github.com/coldbrewsec/macrecon/errs"
	"github.com/coldbrewsec/macrecon/graph"
	"github.com/coldbrewsec/macrecon/hierarchy"
	"github.com/coldbrewsec/macrecon/initscript"
	"github.com/coldbrewsec/macrecon/labels"
	"github.com/coldbrewsec/macrecon/logging"
	"github.com/coldbrewsec/macrecon/process"
	"github.com/coldbrewsec/macrecon/propstore"
	"github.com/coldbrewsec/macrecon/sepolicy"
	"github.com/coldbrewsec/macrecon/subject"
	"github.com/coldbrewsec/macrecon/trust"
	"github.com/coldbrewsec/macrecon/vfs"
)

// Result is everything a completed analysis run produced: the combined
// VFS and property store, the resolved policy and its derived graphs, the
// subject/process universe, and the warnings accumulated along the way.
// report.Emit consumes this directly.
type Result struct {
	ID uuid.UUID

	VFS    *vfs.VFS
	Props  *propstore.Store
	Policy sepolicy.Resolved

	Rules           []labels.Rule
	RecoveredLabels int

	Allow      *graph.Allow
	Transition *graph.Transition

	Subjects subject.Set

	Dataflow *graph.Dataflow
	Objects  dataflow.Set

	Services map[string]*initscript.Service
	Actions  []*initscript.Action

	Tree []*process.Node

	Warnings *errs.Warnings
}

// Pipeline drives the ten analysis phases of spec §2 in order, mutating a
// single Result in place.
type Pipeline struct {
	Config Config
	Log    *logging.Logger
}

// New builds a Pipeline. log may be nil, in which case a discard logger is
// used (matching logging.NewDiscard's purpose for components that accept
// an optional logger).
func New(cfg Config, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.NewDiscard()
	}
	return &Pipeline{Config: cfg, Log: log}
}

// phase is one named pipeline stage. ctx carries only cancellation: the
// phases never branch on a deadline, only on whether an earlier phase in
// this same Run already failed.
type phase struct {
	name string
	run  func(context.Context, Input, *Result) error
}

// Run executes every phase against in, in order, short-circuiting on the
// first error. The phases are strictly sequential (spec §5: "single owner,
// no shared mutable state between phases"), but are driven through a
// one-slot errgroup rather than a plain for loop: SetLimit(1) serializes
// phase execution, and the group's derived context is canceled the moment
// any phase returns an error, so a phase that runs after a failure used to
// already be queued, not after, bails out via gctx.Err() before doing any
// work instead of running on a half-built Result.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	if err := p.Config.Verify(); err != nil {
		return nil, err
	}

	res := &Result{ID: uuid.New(), Warnings: &errs.Warnings{}}

	phases := []phase{
		{"vfs+policy", p.buildVFSAndPolicy},
		{"graphs", p.buildGraphs},
		{"init+boot", p.bootInit},
		{"labels", p.resolveLabels},
		{"subjects", p.inflateSubjects},
		{"hierarchy", p.recoverHierarchy},
		{"dataflow", p.inflateDataflow},
		{"process-tree", p.buildProcessTree},
		{"credentials", p.simulateCredentials},
		{"trust", p.applyTrust},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(1)

	for _, ph := range phases {
		ph := ph
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.Log.Debug("phase start", logging.KV("phase", ph.name))
			if err := ph.run(gctx, in, res); err != nil {
				return fmt.Errorf("phase %s: %w", ph.name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// buildVFSAndPolicy grafts every partition's files into one combined VFS
// (spec §4.1: "overlay mounting -- graft one subtree at a mount point"),
// merges property files, and resolves the policy collaborator's black-box
// Policy into the Resolved form every later phase consumes.
func (p *Pipeline) buildVFSAndPolicy(_ context.Context, in Input, res *Result) error {
	res.VFS = vfs.NewVFS()
	res.Props = propstore.New()

	for _, part := range in.Partitions {
		sub := vfs.NewVFS()
		for _, f := range part.Files {
			fp := vfs.New(f.UID, f.GID, f.Mode, f.Size)
			fp.OriginalPath = f.HostPath
			fp.LinkTarget = f.LinkTarget
			if f.SELinuxLabel != "" {
				if ctx, ok := sepolicy.FromString(strings.TrimRight(f.SELinuxLabel, "\x00")); ok {
					fp.SELinux = ctx
					fp.HasLabel = true
				}
			}
			if len(f.Capability) > 0 {
				fp.CapBits = decodeCapability(f.Capability)
				fp.HasCaps = true
			}
			if err := sub.Add(f.Path, fp); err != nil {
				return errs.New(errs.MalformedConfig, part.Name+":"+f.Path, err)
			}
		}
		if err := res.VFS.Mount(sub, part.MountPoint); err != nil {
			return errs.New(errs.MalformedConfig, part.Name, err)
		}
		if part.FSType != "" {
			if err := res.VFS.AddMountPoint(part.MountPoint, part.FSType, part.Device, part.Options); err != nil {
				return errs.New(errs.MalformedConfig, part.MountPoint, err)
			}
		}
	}

	for _, path := range in.PropertyPaths {
		if err := res.Props.FromFile(path); err != nil {
			return errs.New(errs.MissingInput, path, err)
		}
	}

	res.Policy = sepolicy.Resolve(in.Policy)
	return nil
}

// buildGraphs turns the resolved policy's TE rules into G_allow and
// G_transition (spec §4.6's prerequisite, spec §9's expand/canonical
// machinery). Grounded on graph.Build, independent of the VFS/boot state.
func (p *Pipeline) buildGraphs(_ context.Context, in Input, res *Result) error {
	allow, transition, err := graph.Build(res.Policy, in.Policy.TERuleList)
	if err != nil {
		return err
	}
	res.Allow, res.Transition = allow, transition
	return nil
}

// bootInit runs the init interpreter's staged boot (spec §4.2) against the
// combined VFS and property store, recording every Service/Action it
// parsed for the later credential-simulation phase.
func (p *Pipeline) bootInit(_ context.Context, in Input, res *Result) error {
	interp := initscript.New(res.VFS, res.Props, p.Log)
	if err := interp.Load(in.InitEntryPath); err != nil {
		return err
	}
	if err := interp.Boot(); err != nil {
		return err
	}
	for _, w := range interp.Warnings().Items() {
		res.Warnings.Add(w.Kind, w.Source, "%s", w.Message)
	}
	res.Services = interp.Services()
	res.Actions = interp.Actions()
	return nil
}

// resolveLabels parses every file_contexts source and runs the Label
// Resolver (spec §4.3) against the combined VFS.
func (p *Pipeline) resolveLabels(_ context.Context, in Input, res *Result) error {
	var rules []labels.Rule
	for _, path := range in.FileContextsPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return errs.New(errs.MissingInput, path, err)
		}
		rules = append(rules, labels.ParseFileContexts(string(data), func(line int, msg string) {
			res.Warnings.Add(errs.MalformedConfig, fmt.Sprintf("%s:%d", path, line), "%s", msg)
		})...)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Pattern < rules[j].Pattern })
	res.Rules = rules

	resolver := labels.NewResolver(rules, res.Policy)
	res.RecoveredLabels = resolver.Resolve(res.VFS, res.Warnings)
	return nil
}

// inflateSubjects runs the Subject Inflater (spec §4.4).
func (p *Pipeline) inflateSubjects(_ context.Context, _ Input, res *Result) error {
	res.Subjects = subject.Inflate(res.Policy, res.Allow)
	return nil
}

// recoverHierarchy runs the Hierarchy Recoverer (spec §4.5).
func (p *Pipeline) recoverHierarchy(_ context.Context, _ Input, res *Result) error {
	return hierarchy.Recover(res.Subjects, res.Policy, res.Allow, res.Transition, res.VFS)
}

// inflateDataflow runs the Dataflow Inflater (spec §4.6).
func (p *Pipeline) inflateDataflow(_ context.Context, _ Input, res *Result) error {
	res.Dataflow, res.Objects = dataflow.Inflate(res.Subjects, res.Policy, res.Allow, dataflow.Options{
		SkipFileless: p.Config.SkipFileless,
	})
	return nil
}

// buildProcessTree runs the Process Tree Builder (spec §4.7).
func (p *Pipeline) buildProcessTree(_ context.Context, _ Input, res *Result) error {
	tree, err := process.Build(res.Subjects)
	if err != nil {
		return err
	}
	res.Tree = tree
	return nil
}

// simulateCredentials runs the Credential Simulator (spec §4.8).
func (p *Pipeline) simulateCredentials(_ context.Context, _ Input, res *Result) error {
	return process.Simulate(res.Tree, res.Services, p.Config.AndroidMajor)
}

// applyTrust runs the trust pass (spec §4.8's closing paragraph).
func (p *Pipeline) applyTrust(_ context.Context, _ Input, res *Result) error {
	trust.Apply(res.Subjects, res.Objects, res.VFS)
	return nil
}
