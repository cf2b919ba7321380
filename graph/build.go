/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package graph

import (
	"errors"

	"github.com/coldbrewsec/macrecon/errs"
	"github.com/coldbrewsec/macrecon/sepolicy"
)

// Build turns a resolved policy's TE rules into G_allow and G_transition.
// Grounded on original_source/se/sepolicygraph.py's build_graph: each
// AVAllow rule becomes one Allow edge; each TypeTransition rule becomes one
// Transition edge keyed by its Default (the python source's "default" field
// -- "technically target is not the target... default is the target type,
// whereas target is the object used to start the transition"). Source and
// target/default are canonicalized through aliases first, honoring spec
// invariant 2. A conditional rule or an unrecognized Kind is MalformedPolicy,
// matching the python source's `raise RuntimeError("Unhandled TE rule")` and
// its conditional check.
func Build(r sepolicy.Resolved, terules []sepolicy.TERule) (*Allow, *Transition, error) {
	var allowEdges []AllowEdge
	var transEdges []TransitionEdge

	for _, tr := range terules {
		if tr.Conditional {
			return nil, nil, errs.New(errs.MalformedPolicy, tr.Source,
				errors.New("policy has conditional rules; not supported for SEAndroid graphing"))
		}

		switch tr.Kind {
		case sepolicy.AVAllow, sepolicy.AVXperm:
			u := r.Canonical(tr.Source)
			v := r.Canonical(tr.Target)
			allowEdges = append(allowEdges, AllowEdge{
				Source:  u,
				Target:  v,
				TEClass: tr.TClass,
				Perms:   append([]string(nil), tr.Perms...),
			})
		case sepolicy.TypeTransition:
			u := r.Canonical(tr.Source)
			def := r.Canonical(tr.Default)
			transEdges = append(transEdges, TransitionEdge{
				Source:   u,
				Default:  def,
				TEClass:  tr.TClass,
				Through:  tr.Target,
				Filename: tr.Filename,
			})
		default:
			return nil, nil, errs.New(errs.MalformedPolicy, tr.Source, errors.New("unhandled TE rule shape"))
		}
	}

	return NewAllow(allowEdges), NewTransition(transEdges), nil
}
