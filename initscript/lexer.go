/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package initscript parses Android init .rc files (spec §4.2) and
// simulates the staged boot event loop against a vfs.VFS and a
// propstore.Store.
package initscript

import (
	"regexp"
	"strings"
)

var (
	blankOrComment = regexp.MustCompile(`^\s*(#.*)?$`)
	runsOfSpace    = regexp.MustCompile(`\s+`)
)

// section is one lexed block: a header line's components followed by zero
// or more indented option/command lines, each already whitespace-collapsed
// and split. Mirrors original_source/android/init.py's `Section = List[List[str]]`.
type section [][]string

// lex splits raw .rc content into sections. A new section starts at any
// line beginning with import/on/service; comments and blank lines are
// skipped; a trailing `\` continues the line onto the next (components are
// appended, not joined into one string, matching the python source's
// `current_section[-1] += components`).
func lex(data string) []section {
	var sections []section
	var current section
	haveCurrent := false
	continuing := false

	for _, raw := range strings.Split(data, "\n") {
		if blankOrComment.MatchString(raw) {
			continue
		}
		line := runsOfSpace.ReplaceAllString(strings.TrimSpace(raw), " ")
		components := strings.Split(line, " ")

		action := components[0]
		if action == "import" || action == "on" || action == "service" {
			if haveCurrent && len(current) > 0 {
				sections = append(sections, current)
			}
			current = section{}
			haveCurrent = true
		} else if !haveCurrent {
			continue // ignore stray lines before the first section
		}

		continueNext := components[len(components)-1] == `\`
		if continueNext {
			components = components[:len(components)-1]
		}

		if continuing && len(current) > 0 {
			current[len(current)-1] = append(current[len(current)-1], components...)
		} else {
			current = append(current, components)
		}
		continuing = continueNext
	}

	if haveCurrent && len(current) > 0 {
		sections = append(sections, current)
	}
	return sections
}
