/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package logging

import (
	"bytes"
	"strings"
	"testing"
)

type bufCloser struct{ bytes.Buffer }

func (bufCloser) Close() error { return nil }

func TestLevelFiltering(t *testing.T) {
	var buf bufCloser
	l := New(&buf)
	if err := l.SetLevel(WARN); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	l.Info("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below level, got %q", buf.String())
	}
	l.Warn("should appear", KV("k", "v"))
	if buf.Len() == 0 {
		t.Fatalf("expected output at or above level")
	}
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("missing message in output: %q", buf.String())
	}
}

func TestWithPrependsFields(t *testing.T) {
	var buf bufCloser
	base := New(&buf)
	derived := base.With(KV("subject", "odm_xml_file"))
	derived.Error("resolution failed", KVErr(nil))
	if !strings.Contains(buf.String(), "odm_xml_file") {
		t.Fatalf("expected prepended field in output: %q", buf.String())
	}
}

func TestCloseThenWriteErrors(t *testing.T) {
	var buf bufCloser
	l := New(&buf)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := l.Info("after close"); err != ErrNotOpen {
		t.Fatalf("expected ErrNotOpen after Close, got %v", err)
	}
}

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString("warn")
	if err != nil || lvl != WARN {
		t.Fatalf("got %v, %v want WARN, nil", lvl, err)
	}
	if _, err := LevelFromString("bogus"); err != ErrInvalidLevel {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}
