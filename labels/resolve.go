/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package labels

import (
	"regexp"
	"sort"
	"strings"

	"github.com/coldbrewsec/macrecon/errs"
	"github.com/coldbrewsec/macrecon/sepolicy"
	"github.com/coldbrewsec/macrecon/vfs"
)

// Resolver applies Rules plus a Resolved policy's genfscon/fs_use tables
// to a VFS. Grounded on
// original_source/fs/filesysteminstance.py's FileSystemInstance
// (apply_file_contexts, get_file_context_matches).
type Resolver struct {
	Rules  []Rule
	Policy sepolicy.Resolved
}

func NewResolver(rules []Rule, policy sepolicy.Resolved) *Resolver {
	return &Resolver{Rules: rules, Policy: policy}
}

// genfsMatch is one candidate label derived from a genfscon or fs_use
// entry: the mount path it was found under, the genfscon path fragment
// (used only for the tiebreak sort), and the context it assigns.
type genfsMatch struct {
	mountPath string
	genfsPath string
	context   sepolicy.Context
}

// matches returns every Rule matching path, sorted by pattern text
// descending (original_source's get_file_context_matches: `sorted(matches,
// reverse=True, key=lambda x: x.regex.pattern)`).
func (r *Resolver) matches(path string) []Rule {
	var out []Rule
	for _, rule := range r.Rules {
		if rule.Match(path) {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern > out[j].Pattern })
	return out
}

// primaryFileContextMatch picks the longest-literal-prefix rule among
// matches, mirroring apply_file_contexts' max_prefix_len loop (a
// ">=" comparison, so later entries in iteration order win ties --
// preserved here by iterating matches in the same sorted order `matches`
// returns them in).
func primaryFileContextMatch(matches []Rule) sepolicy.Context {
	var best sepolicy.Context
	maxLen := -1
	for _, m := range matches {
		l := m.literalPrefixLen()
		if l >= maxLen {
			maxLen = l
			best = m.Context
		}
	}
	return best
}

// genfsMatchesFor finds every genfscon/fs_use candidate for path across
// v's mount points, iterated in sorted mount-path order for determinism
// (spec §5).
func (r *Resolver) genfsMatchesFor(path string, v *vfs.VFS) []genfsMatch {
	var out []genfsMatch

	mps := v.MountPoints()
	paths := make([]string, 0, len(mps))
	for p := range mps {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, mountPath := range paths {
		if !strings.HasPrefix(path, mountPath) {
			continue
		}
		mp := mps[mountPath]
		relfs := path[len(mountPath):]
		if relfs == "" {
			relfs = "/"
		}

		if entries, ok := r.Policy.GenFS[mp.FSType]; ok {
			for _, g := range entries {
				re, err := regexp.Compile("^" + g.Path + ".*")
				if err != nil {
					continue
				}
				if re.MatchString(relfs) {
					ctx, ok := sepolicy.FromString(g.Context)
					if !ok {
						continue
					}
					out = append(out, genfsMatch{mountPath: mountPath, genfsPath: g.Path, context: ctx})
				}
			}
		} else if fu, ok := r.Policy.FSUse[mp.FSType]; ok && mp.FSType == "tmpfs" {
			ctx, ok := sepolicy.FromString(fu.Context)
			if ok {
				out = append(out, genfsMatch{mountPath: mountPath, genfsPath: "/", context: ctx})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].genfsPath > out[j].genfsPath })
	return out
}

// Resolve applies file_contexts and genfscon/fs_use labeling to every path
// in v, mutating FilePolicy.SELinux in place and deleting files for which
// no context could be found at all (spec §4.3, §7: the drop path is
// silent-but-counted). Returns the number of labels recovered (newly
// assigned or overridden by a higher-priority source).
func (r *Resolver) Resolve(v *vfs.VFS, warnings *errs.Warnings) int {
	recovered := 0
	mps := v.MountPoints()
	var dropped []string

	for _, path := range v.Paths() {
		fp, ok := v.Get(path)
		if !ok {
			continue
		}

		fcMatches := r.matches(path)
		_, isMountPoint := mps[path]

		var primary sepolicy.Context
		haveLabel := false
		fromFileContext := true

		if len(fcMatches) == 0 || isMountPoint {
			gm := r.genfsMatchesFor(path, v)
			if len(gm) == 0 {
				if fp.SELinux.IsZero() {
					dropped = append(dropped, path)
					warnings.Add(errs.LabelUnresolved, path, "no file context")
					continue
				}
				primary = fp.SELinux
				haveLabel = true
			} else {
				primary = gm[0].context
				haveLabel = true
				fromFileContext = false
			}
		} else {
			primary = primaryFileContextMatch(fcMatches)
			haveLabel = true
		}

		if !haveLabel {
			continue
		}

		switch {
		case fp.SELinux.IsZero():
			fp.SELinux = primary
			fp.HasLabel = true
			recovered++
		case !fp.SELinux.Equal(primary):
			if fromFileContext {
				warnings.Add(errs.LabelUnresolved, path, "file context %s does not match existing label %s", primary, fp.SELinux)
			} else {
				fp.SELinux = primary
				fp.HasLabel = true
				recovered++
			}
		}
	}

	for _, path := range dropped {
		v.Delete(path)
	}
	return recovered
}
