/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package initscript

// Option is one service option line (spec §4.2 grammar: `option :=
// IDENT ARG*`).
type Option struct {
	Name string
	Args []string
}

// Command is one action-body command line.
type Command struct {
	Name string
	Args []string
}

// Service is a parsed `service NAME ARG+` block with its option lines.
// Credential/label fields are populated by applyOption as options are
// seen; Unknown carries any option this package does not interpret,
// "retained verbatim but not interpreted" per spec §4.2.
type Service struct {
	Name string
	Args []string

	UID         int
	HasUID      bool
	GID         int
	HasGID      bool
	Groups      []int
	Ambient     []string // capability names, spec §4.2 "capabilities <cap>... (adds to ambient)"
	Seclabel    string
	HasSeclabel bool
	Class       string
	ClassGroups []string
	Disabled    bool
	Oneshot     bool
	Unknown     []Option
}

// Trigger is a single condition in an `on` statement: either a bare stage
// name, or a `property:KEY=VALUE` equality constraint. Multiple triggers
// joined by `&&` all must hold (spec §4.2: "a stage string or null, plus a
// map of property-equality constraints").
type Trigger struct {
	Stage   string // "" if this on-statement has no bare stage
	PropKey string
	PropVal string // may be "*", a wildcard that matches any value
	IsProp  bool
}

// Action is a parsed `on trigger (&& trigger)*` block with its commands.
type Action struct {
	Triggers []Trigger
	Commands []Command
}

// Program is the parsed form of one or more .rc files: merged services,
// appended actions, and any `import` statements encountered (followed by
// the interpreter, resolved through the VFS).
type Program struct {
	Services map[string]*Service
	Actions  []*Action
	Imports  []string
}

// Note on spec §9's documented dead code: "Trigger-condition property
// evaluation has an unreachable branch referring to an undefined `prop`
// identifier; treat this as dead code, not a feature." There is no
// equivalent branch here -- Trigger.IsProp/PropKey/PropVal model only the
// one reachable shape (`property:KEY=VALUE`), so the dead branch has no Go
// counterpart to carry forward.
