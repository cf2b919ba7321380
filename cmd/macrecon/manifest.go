/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package main

import (
	"encoding/json"
	"os"

	"github.com/coldbrewsec/macrecon/engine"
	"github.com/coldbrewsec/macrecon/sepolicy"
)

// manifest is the JSON-serialized shape of engine.Input this CLI reads
// from disk. Spec §6 names the firmware-extraction walker and the
// SELinux policy collaborator as out-of-scope producers of exactly this
// data (partition/file records, policy class/type/terule iterators); the
// CLI's one job is to decode whatever already assembled those into JSON
// and hand the result to Pipeline.Run, since "the core is invoked as a
// library" and carries no parser for either upstream format itself.
type manifest struct {
	Partitions        []partitionJSON `json:"partitions"`
	Policy            policyJSON      `json:"policy"`
	PropertyPaths     []string        `json:"property_paths"`
	InitEntryPath     string          `json:"init_entry_path"`
	FileContextsPaths []string        `json:"file_contexts_paths"`
}

type partitionJSON struct {
	Name       string     `json:"name"`
	MountPoint string     `json:"mount_point"`
	FSType     string     `json:"fs_type"`
	Device     string     `json:"device"`
	Options    []string   `json:"options"`
	Files      []fileJSON `json:"files"`
}

type fileJSON struct {
	Path         string `json:"path"`
	UID          int    `json:"uid"`
	GID          int    `json:"gid"`
	Mode         uint32 `json:"mode"`
	Size         int64  `json:"size"`
	LinkTarget   string `json:"link_target"`
	HostPath     string `json:"host_path"`
	SELinuxLabel string `json:"selinux_label"`
	Capability   []byte `json:"capability"`
}

type policyJSON struct {
	Classes    []sepolicy.Class    `json:"classes"`
	Commons    []sepolicy.Common   `json:"commons"`
	Types      []sepolicy.Type     `json:"types"`
	Attributes []string            `json:"attributes"`
	TERules    []sepolicy.TERule   `json:"terules"`
	GenFSCons  []sepolicy.GenFSCon `json:"genfscons"`
	FSUses     []sepolicy.FSUse    `json:"fs_uses"`
}

// loadManifest decodes the manifest at path and converts it into an
// engine.Input.
func loadManifest(path string) (engine.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Input{}, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return engine.Input{}, err
	}
	return m.toInput(), nil
}

func (m manifest) toInput() engine.Input {
	in := engine.Input{
		Policy: sepolicy.Policy{
			ClassList:          m.Policy.Classes,
			CommonList:         m.Policy.Commons,
			TypeList:           m.Policy.Types,
			TypeAttributeNames: m.Policy.Attributes,
			TERuleList:         m.Policy.TERules,
			GenFSConList:       m.Policy.GenFSCons,
			FSUseList:          m.Policy.FSUses,
		},
		PropertyPaths:     m.PropertyPaths,
		InitEntryPath:     m.InitEntryPath,
		FileContextsPaths: m.FileContextsPaths,
	}

	for _, p := range m.Partitions {
		part := engine.Partition{
			Name:       p.Name,
			MountPoint: p.MountPoint,
			FSType:     p.FSType,
			Device:     p.Device,
			Options:    p.Options,
		}
		for _, f := range p.Files {
			part.Files = append(part.Files, engine.FileRecord{
				Path:         f.Path,
				UID:          f.UID,
				GID:          f.GID,
				Mode:         f.Mode,
				Size:         f.Size,
				LinkTarget:   f.LinkTarget,
				HostPath:     f.HostPath,
				SELinuxLabel: f.SELinuxLabel,
				Capability:   f.Capability,
			})
		}
		in.Partitions = append(in.Partitions, part)
	}

	return in
}
