/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package errs defines the typed error kinds surfaced to callers of
// macrecon's analysis pipeline, and a warning accumulator for the
// recovered-per-line parse failures spec §7 treats as non-fatal.
package errs

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories a firmware analysis run can fail
// with. Every *Error returned across package boundaries carries one.
type Kind int

const (
	// MissingInput: a required firmware artifact was not found (system
	// partition, init.rc entry point, sepolicy binary).
	MissingInput Kind = iota + 1
	// UnsupportedVersion: the firmware's Android major version is below
	// the floor this engine supports.
	UnsupportedVersion
	// MalformedPolicy: the SELinux policy collaborator surfaced a rule
	// shape this engine does not model (e.g. a conditional rule).
	MalformedPolicy
	// MalformedConfig: an init script or property file violated its
	// grammar badly enough that no recovery is possible for the whole
	// file (as opposed to a single recoverable line).
	MalformedConfig
	// LabelUnresolved: a file was dropped because no context could be
	// derived for it. Non-fatal; counted, not returned as a hard error,
	// but the kind still exists so a caller inspecting a Warning can
	// react to it.
	LabelUnresolved
	// HierarchyInconsistent: a structural invariant in the subject
	// hierarchy was violated (zygote has no backing executable,
	// duplicate subject creation).
	HierarchyInconsistent
	// SimulationFailed: the credential simulator could not find a
	// zygote, or no --start-system-server zygote exists.
	SimulationFailed
)

func (k Kind) String() string {
	switch k {
	case MissingInput:
		return "missing-input"
	case UnsupportedVersion:
		return "unsupported-version"
	case MalformedPolicy:
		return "malformed-policy"
	case MalformedConfig:
		return "malformed-config"
	case LabelUnresolved:
		return "label-unresolved"
	case HierarchyInconsistent:
		return "hierarchy-inconsistent"
	case SimulationFailed:
		return "simulation-failed"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by macrecon packages. Callers
// that need to branch on category should use errors.As to recover one and
// inspect Kind, rather than comparing against sentinel values.
type Error struct {
	Kind    Kind
	Subject string // the path/type/name the error is about, if any
	Cause   error
}

func New(k Kind, subject string, cause error) *Error {
	return &Error{Kind: k, Subject: subject, Cause: cause}
}

func (e *Error) Error() string {
	if e.Subject == "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
		}
		return e.Kind.String()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Subject, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Subject)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, errs.Sentinel(MissingInput)) work by comparing
// kinds when both sides are *Error; see Sentinel below for the comparison
// target.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Sentinel builds a zero-cause, zero-subject *Error for a Kind, useful as
// the comparison target for errors.Is(err, errs.Sentinel(errs.MissingInput)).
func Sentinel(k Kind) *Error { return &Error{Kind: k} }

// Warning is a single recovered, non-fatal parse or resolution failure.
// Spec §7: "validation failures in parsing are recovered per-line with a
// warning... Label resolution's drop path is silent-but-counted by design."
type Warning struct {
	Kind    Kind
	Source  string // file:line, path, or type name
	Message string
}

func (w Warning) String() string {
	if w.Source == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.Source, w.Message)
}

// Warnings accumulates Warning values across a pass. It is not safe for
// concurrent use by design -- the whole pipeline is single-threaded per
// spec §5.
type Warnings struct {
	items []Warning
}

func (w *Warnings) Add(k Kind, source, format string, args ...interface{}) {
	w.items = append(w.items, Warning{Kind: k, Source: source, Message: fmt.Sprintf(format, args...)})
}

func (w *Warnings) Items() []Warning { return append([]Warning(nil), w.items...) }

func (w *Warnings) Len() int { return len(w.items) }

func (w *Warnings) CountKind(k Kind) int {
	n := 0
	for _, it := range w.items {
		if it.Kind == k {
			n++
		}
	}
	return n
}
