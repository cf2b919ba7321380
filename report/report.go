/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package report persists the artifacts spec §6 names for a completed
// analysis run under `eval/<firmware>/`: the VFS snapshot, copied-out
// source config files, the merged property dump, and the missing-label
// report.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/coldbrewsec/macrecon/engine"
	"github.com/coldbrewsec/macrecon/errs"
	"github.com/coldbrewsec/macrecon/vfs"
)

const (
	dbDirName           = "db"
	snapshotFileName    = "combined_fs.bin"
	propertiesFileName  = "all_properties.prop"
	missingFCReportName = "missing-fc-report.txt"
)

// Emit writes every spec §6 persisted artifact for a completed run under
// cfg.EvalRoot/cfg.FirmwareName, creating directories as needed.
func Emit(cfg engine.Config, in engine.Input, res *engine.Result) error {
	root := filepath.Join(cfg.EvalRoot, cfg.FirmwareName)

	if err := os.MkdirAll(filepath.Join(root, dbDirName), 0755); err != nil {
		return errs.New(errs.MissingInput, root, err)
	}

	snap := vfs.NewSnapshot(filepath.Join(root, dbDirName, snapshotFileName))
	if err := snap.Save(res.VFS); err != nil {
		return err
	}

	if err := copySourceFiles(root, in); err != nil {
		return err
	}
	if err := writeAllProperties(root, res); err != nil {
		return err
	}
	if err := writeMissingFCReport(root, res); err != nil {
		return err
	}
	return nil
}

// copySourceFiles copies every config source file (property files,
// file_contexts sources) the run was given into root, preserving
// basenames, per spec §6: "Copied-out policy files under
// eval/<firmware>/ preserving basenames."
func copySourceFiles(root string, in engine.Input) error {
	var srcs []string
	srcs = append(srcs, in.PropertyPaths...)
	srcs = append(srcs, in.FileContextsPaths...)

	for _, src := range srcs {
		data, err := os.ReadFile(src)
		if err != nil {
			return errs.New(errs.MissingInput, src, err)
		}
		dst := filepath.Join(root, filepath.Base(src))
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return errs.New(errs.MissingInput, dst, err)
		}
	}
	return nil
}

// writeAllProperties writes the merged property store as sorted
// `KEY=VALUE` lines, per spec §6's "all_properties.prop as merged
// KEY=VALUE lines."
func writeAllProperties(root string, res *engine.Result) error {
	keys := res.Props.Keys()
	sort.Strings(keys)

	var out []byte
	for _, k := range keys {
		v, _ := res.Props.Get(k)
		out = append(out, []byte(fmt.Sprintf("%s=%s\n", k, v))...)
	}
	return os.WriteFile(filepath.Join(root, propertiesFileName), out, 0644)
}

// writeMissingFCReport lists every file_contexts rule that matched zero
// VFS paths after the label resolver ran, per spec §6's "plain-text
// missing-fc-report.txt listing unmatched file-context regexes." No
// existing package tracks per-rule match usage (labels.Resolver.Resolve only
// returns the number of labels it recovered, not which rules fired), so this re-runs each
// rule's own regex against the final VFS path set directly.
func writeMissingFCReport(root string, res *engine.Result) error {
	paths := res.VFS.Paths()

	var out []byte
	for _, rule := range res.Rules {
		matched := false
		for _, p := range paths {
			if rule.Match(p) {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, []byte(rule.Pattern+"\n")...)
		}
	}
	return os.WriteFile(filepath.Join(root, missingFCReportName), out, 0644)
}
