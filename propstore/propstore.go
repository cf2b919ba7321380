/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package propstore implements the Android property store: a flat
// string->string map with multi-file merge, ${key} expansion, and
// first-of lookup (spec §4.1).
package propstore

import (
	"os"
	"regexp"
	"strings"
)

var kvLine = regexp.MustCompile(`^\s*([-_.a-zA-Z0-9]+)\s*=\s*(.*)$`)

// Store is the property key/value map. Grounded on
// original_source/android/property.py's AndroidPropertyList.
type Store struct {
	props map[string]string
}

func New() *Store { return &Store{props: make(map[string]string)} }

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	v, ok := s.props[key]
	return v, ok
}

// GetDefault returns the value for key, or def if absent.
func (s *Store) GetDefault(key, def string) string {
	if v, ok := s.props[key]; ok {
		return v
	}
	return def
}

// GetAny tries each key in order, returning the first one present, or def
// if none are. Spec §4.1: "'first-of' lookup".
func (s *Store) GetAny(keys []string, def string) string {
	for _, k := range keys {
		if v, ok := s.props[k]; ok {
			return v
		}
	}
	return def
}

// Set assigns key directly (used by initscript.DetermineHardware to record
// ro.hardware; the interpreter's `setprop` command is a no-op).
func (s *Store) Set(key, value string) { s.props[key] = value }

// Merge overlays other onto s, overwriting any existing keys.
func (s *Store) Merge(other map[string]string) {
	for k, v := range other {
		s.props[k] = v
	}
}

// Keys returns every key in no particular order; callers that need a
// deterministic dump (e.g. report's writeAllProperties) sort it.
func (s *Store) Keys() []string {
	out := make([]string, 0, len(s.props))
	for k := range s.props {
		out = append(out, k)
	}
	return out
}

// FromFile parses a property file's content and merges the result into s.
// Lines are `^key = value`; `#` comments and blank lines are ignored;
// `import` lines are ignored verbatim (spec §4.1). Grounded on
// original_source/android/property.py's from_file.
func (s *Store) FromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	s.Merge(ParseProperties(string(data)))
	return nil
}

// ParseProperties parses property-file content without touching disk, so
// it can also be used directly against VFS-sourced content.
func ParseProperties(data string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(data, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "import") {
			continue
		}
		m := kvLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// strip a trailing comment the way PROPERTY_VALUE = r'[^#]*' does.
		value := m[2]
		if idx := strings.IndexByte(value, '#'); idx >= 0 {
			value = value[:idx]
		}
		out[m[1]] = strings.TrimRight(value, " \t")
	}
	return out
}

// Expand replaces every ${KEY} in s with the property value, or "" if
// unset; text with no ${...} substitution is preserved verbatim. Spec
// §4.1: "any `${KEY}` in a string is replaced by the property value or
// empty string; unexpanded text is preserved."
func (s *Store) Expand(str string) string {
	var b strings.Builder
	i := 0
	for i < len(str) {
		start := strings.Index(str[i:], "${")
		if start < 0 {
			b.WriteString(str[i:])
			break
		}
		start += i
		b.WriteString(str[i:start])
		end := strings.IndexByte(str[start+2:], '}')
		if end < 0 {
			b.WriteString(str[start:])
			break
		}
		end += start + 2
		key := str[start+2 : end]
		b.WriteString(s.GetDefault(key, ""))
		i = end + 1
	}
	return b.String()
}
