/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package vfs

// MountPoint records the fstype/device/options of a mounted filesystem.
// Spec §3: "MountPoint -- (fstype, device, options[])".
type MountPoint struct {
	FSType  string
	Device  string
	Options []string
}
