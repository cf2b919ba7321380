/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package labels implements the Label Resolver (spec §4.3): it applies a
// parsed file_contexts list, genfscon entries, and fs_use entries to a
// vfs.VFS, producing a label for every file or dropping it when none can
// be derived.
package labels

import (
	"regexp"
	"sort"
	"strings"

	"github.com/coldbrewsec/macrecon/sepolicy"
)

var (
	fcBlankOrComment = regexp.MustCompile(`^(\s*#|\s*$)`)
	fcRunsOfSpace    = regexp.MustCompile(`\s+`)
	fcMetachar       = regexp.MustCompile(`[.^$?*+|\[({]`)
)

// fModeInv maps the file_contexts mode shorthand (-d, -c, ...) to the
// POSIX format bits it denotes. Grounded on
// original_source/fs/filecontext.py's F_MODE/F_MODE_INV tables.
var fModeInv = map[string]uint32{
	"-p": 0010000, // S_IFIFO
	"-c": 0020000, // S_IFCHR
	"-d": 0040000, // S_IFDIR
	"-b": 0060000, // S_IFBLK
	"--": 0100000, // S_IFREG
	"-l": 0120000, // S_IFLNK
	"-s": 0140000, // S_IFSOCK
}

// Rule is one parsed file_contexts line: a path regex, an optional file
// type restriction, and the context it assigns.
type Rule struct {
	Pattern string // the regex text as written, without the ^...$ anchors
	Regex   *regexp.Regexp
	Mode    uint32 // 0 if the line carried no type restriction
	Context sepolicy.Context
}

// Match reports whether path matches the rule's regex. Mode is parsed but
// never consulted here -- original_source/fs/filesysteminstance.py's
// get_file_context_matches calls afc.match(filename) with no mode
// argument, so AndroidFileContext.match's mode-filtering branch is
// unreachable at that call site. We carry Mode on Rule for fidelity to
// the file format but do not gate matching on it, matching the behavior
// actually exercised by the original.
func (r Rule) Match(path string) bool {
	return r.Regex.MatchString(path)
}

// literalPrefixLen returns the length of r.Pattern up to its first regex
// metacharacter, used as the specificity tiebreak between overlapping
// matches (spec §4.3: "longest literal prefix wins").
func (r Rule) literalPrefixLen() int {
	if loc := fcMetachar.FindStringIndex(r.Pattern); loc != nil {
		return loc[0]
	}
	return len(r.Pattern)
}

// ParseFileContexts parses file_contexts content into Rules, sorted by
// pattern text (grounded on original_source/fs/filecontext.py's
// read_file_contexts, which sorts contexts by regex.pattern on return).
// Malformed lines are skipped with a message appended to warnings, rather
// than aborting the whole file -- spec §7: "parsing recovers per-line".
func ParseFileContexts(data string, warnFn func(line int, msg string)) []Rule {
	var rules []Rule
	for i, raw := range strings.Split(data, "\n") {
		if fcBlankOrComment.MatchString(raw) {
			continue
		}
		line := fcRunsOfSpace.ReplaceAllString(raw, " ")
		fields := strings.Fields(line)

		var pattern, modeTok, ctxTok string
		switch len(fields) {
		case 3:
			pattern, modeTok, ctxTok = fields[0], fields[1], fields[2]
		case 2:
			pattern, ctxTok = fields[0], fields[1]
		default:
			if warnFn != nil {
				warnFn(i+1, "malformed or unhandled file_contexts syntax")
			}
			continue
		}

		var mode uint32
		if modeTok != "" {
			m, ok := fModeInv[modeTok]
			if !ok {
				if warnFn != nil {
					warnFn(i+1, "unrecognized file type token "+modeTok)
				}
				continue
			}
			mode = m
		}

		re, err := regexp.Compile("^" + pattern + "$")
		if err != nil {
			if warnFn != nil {
				warnFn(i+1, "invalid regex: "+err.Error())
			}
			continue
		}

		ctx, ok := sepolicy.FromString(ctxTok)
		if !ok {
			if warnFn != nil {
				warnFn(i+1, "malformed context "+ctxTok)
			}
			continue
		}

		rules = append(rules, Rule{Pattern: pattern, Regex: re, Mode: mode, Context: ctx})
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].Pattern < rules[j].Pattern })
	return rules
}
