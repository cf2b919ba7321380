/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package aid implements Android's UID/GID name table: the well-known
// AID_* constants plus the numeric ranges Android derives names from
// (oem_NNNN, u0_aNNNN / app_NNNN, and the AID-range shared GIDs). Spec §9:
// "Global AID table... expose it as an immutable lookup resource
// initialized at startup; do not hide it behind mutable global state."
//
// Grounded on original_source/android/dac.py's _parse_aid_file, which
// reads a single android_filesystem_config.h off the firmware and derives
// this same table. We cannot read that header here (the collaborator that
// extracts firmware partitions is out of scope, and the header itself
// isn't guaranteed to be present or unmodified across vendors -- dac.py's
// own comment notes vendors fork it) so this package ships the well-known
// AOSP table as a compiled-in baseline and applies the same range-naming
// rules dac.py applies for ids outside the well-known table.
package aid

import "fmt"

// wellKnown mirrors the AID_* constants from
// system/core/libcutils/include/private/android_filesystem_config.h.
var wellKnown = map[int]string{
	0:     "root",
	1000:  "system",
	1001:  "radio",
	1002:  "bluetooth",
	1003:  "graphics",
	1004:  "input",
	1005:  "audio",
	1006:  "camera",
	1007:  "log",
	1008:  "compass",
	1009:  "mount",
	1010:  "wifi",
	1011:  "adb",
	1012:  "install",
	1013:  "media",
	1014:  "dhcp",
	1015:  "sdcard_rw",
	1016:  "vpn",
	1017:  "keystore",
	1018:  "usb",
	1019:  "drm",
	1020:  "mdnsr",
	1021:  "gps",
	1023:  "media_rw",
	1024:  "mtp",
	1026:  "drmrpc",
	1027:  "nfc",
	1028:  "sdcard_r",
	1029:  "clat",
	1030:  "loop_radio",
	1031:  "mediadrm",
	1032:  "package_info",
	1033:  "sdcard_pics",
	1034:  "sdcard_av",
	1035:  "sdcard_all",
	1036:  "logd",
	1037:  "shared_relro",
	1038:  "dbus",
	1039:  "tlsdate",
	1040:  "mediaex",
	1041:  "mediadrmrpc",
	1042:  "webserv",
	1043:  "debuggerd",
	1044:  "mediacodec",
	1045:  "camerax",
	1046:  "hsm",
	1047:  "media_ex",
	1048:  "audioserver",
	1049:  "metrics_coll",
	1050:  "metricsd",
	1051:  "webview_zygote",
	1052:  "vehicle_network",
	1053:  "media_audio",
	1054:  "media_video",
	1055:  "media_image",
	1056:  "tombstoned",
	1057:  "media_obb",
	1058:  "esdfs",
	1059:  "ese",
	1060:  "ota_update",
	1061:  "automotive_evs",
	1062:  "localization",
	1063:  "uwb",
	1064:  "uso",
	2000:  "shell",
	2001:  "cache",
	2002:  "diag",
	3001:  "net_bt_admin",
	3002:  "net_bt",
	3003:  "inet",
	3004:  "net_raw",
	3005:  "net_admin",
	3006:  "net_bw_stats",
	3007:  "net_bw_acct",
	3008:  "net_bt_stack",
	3009:  "readproc",
	3010:  "wakelock",
	3011:  "uhid",
	3012:  "readtracefs",
	9997:  "everybody",
	9998:  "misc",
	9999:  "nobody",
	10000: "app_0",
}

// ranges are applied in order; a uid/gid falling in one of these is named
// by the range rule rather than an exact wellKnown entry. Mirrors
// dac.py's handling of `AID_..._START`/`_END` pairs.
type rng struct {
	lo, hi int
	name   func(offset int) string
}

var ranges = []rng{
	{lo: 2900, hi: 2999, name: func(o int) string { return fmt.Sprintf("oem_%d", 2900+o) }},
	{lo: 5000, hi: 5999, name: func(o int) string { return fmt.Sprintf("isolated_%d", o) }},
	{lo: 10000, hi: 19999, name: func(o int) string { return fmt.Sprintf("u0_a%d", o) }},
	{lo: 50000, hi: 59999, name: func(o int) string { return fmt.Sprintf("shared_gid_%d", o) }},
	{lo: 90000, hi: 98999, name: func(o int) string { return fmt.Sprintf("u%d_a%d", o/100000+9, o%100000) }},
	{lo: 99000, hi: 99999, name: func(o int) string { return fmt.Sprintf("u1_i%d", o-99000) }},
}

// Name resolves a numeric uid/gid to its Android symbolic name, the way
// spec §4.8's cred dumps and §4.2's `user`/`group` options need it for
// display and for matching init.rc tokens against numeric ids.
func Name(id int) string {
	if n, ok := wellKnown[id]; ok {
		return n
	}
	for _, r := range ranges {
		if id >= r.lo && id <= r.hi {
			return r.name(id - r.lo)
		}
	}
	return fmt.Sprintf("%d", id)
}

// ByName resolves an init.rc `user <aid>` / `group <aid>` token (spec
// §4.2) to a numeric id. Accepts both well-known names and the synthetic
// range names Name produces (oem_NNNN, u0_aNNNN, ...), and falls back to
// parsing a bare decimal uid/gid.
func ByName(name string) (int, bool) {
	for id, n := range wellKnown {
		if n == name {
			return id, true
		}
	}
	if id, ok := parseRangeName(name); ok {
		return id, true
	}
	return parseDecimal(name)
}

func parseRangeName(name string) (int, bool) {
	var offset int
	if n, err := fmt.Sscanf(name, "oem_%d", &offset); err == nil && n == 1 {
		if offset >= 2900 && offset <= 2999 {
			return offset, true
		}
		return 0, false
	}
	if n, err := fmt.Sscanf(name, "u0_a%d", &offset); err == nil && n == 1 {
		return 10000 + offset, true
	}
	if n, err := fmt.Sscanf(name, "isolated_%d", &offset); err == nil && n == 1 {
		return 5000 + offset, true
	}
	if n, err := fmt.Sscanf(name, "shared_gid_%d", &offset); err == nil && n == 1 {
		return 50000 + offset, true
	}
	return 0, false
}

func parseDecimal(s string) (int, bool) {
	var v int
	if n, err := fmt.Sscanf(s, "%d", &v); err == nil && n == 1 {
		return v, true
	}
	return 0, false
}

// IsApp reports whether id falls in the app uid range (u0_aNNNN /
// app_NNNN), used by the credential simulator's untrusted-app spawning
// (spec §4.8 step 5) to recognize already-assigned app uids.
func IsApp(id int) bool { return id >= 10000 && id <= 19999 }

// AppID returns the `app_id` offset used throughout spec §4.8 ("uid = gid
// = 10000 + app_id") for an app uid, or -1 if id is not an app uid.
func AppID(id int) int {
	if !IsApp(id) {
		return -1
	}
	return id - 10000
}
