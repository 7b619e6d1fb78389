// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flouka/flouka"
	"github.com/flouka/flouka/archive"
	"github.com/flouka/flouka/floukatest"
	"github.com/flouka/flouka/internal/testenv"
	"github.com/flouka/flouka/layout"
	"github.com/flouka/flouka/memory"
)

func TestPrintTree(t *testing.T) {
	info := floukatest.Information(t, floukatest.Demo(t))

	var buf bytes.Buffer
	printTree(&buf, info, nil)
	if got := strings.Count(buf.String(), "\n"); got != 2+3+5 {
		t.Errorf("tree has %d lines, want 10:\n%s", got, &buf)
	}

	buf.Reset()
	printTree(&buf, info, []uint32{1234567, 0, 0, 0, 42})
	out := buf.String()
	for _, want := range []string{"1,234,567", "Reception Connection 2", "# Bytes received", "42 Byte(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestPrintChanges(t *testing.T) {
	info := floukatest.Information(t, floukatest.Demo(t))
	var buf bytes.Buffer
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	printChanges(&buf, at, info, []uint32{0, 5, 0, 0, 0}, []uint32{1000, 5, 0, 0, 0})
	want := "03:04:05 [0] # Bytes transmitted: 1,000 (+1,000 Byte(s))\n"
	if got := buf.String(); got != want {
		t.Errorf("printChanges:\ngot  %q\nwant %q", got, want)
	}
}

func TestPrintSnapshot(t *testing.T) {
	prev := &archive.Snapshot{Seq: 1, Values: []uint32{1, 2}}
	s := &archive.Snapshot{Seq: 2, Time: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Values: []uint32{1, 2002}}
	var buf bytes.Buffer
	printSnapshot(&buf, s, prev)
	want := "-- snapshot 2 at 2026-01-02T03:04:05Z --\n  [0] 1\n  [1] 2,002 (+2,000)\n"
	if got := buf.String(); got != want {
		t.Errorf("printSnapshot:\ngot  %q\nwant %q", got, want)
	}
}

func TestShowFile(t *testing.T) {
	testenv.NeedsMmap(t)
	dir := t.TempDir()
	reg, err := layout.Demo().New(flouka.Config{Allocator: &memory.Mapped{Dir: dir}})
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Destroy()
	if _, err := reg.Information(); err != nil {
		t.Fatal(err)
	}
	if err := reg.Increase(layout.RxBytes1, 65536); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := showFile(&buf, dir); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "65,536") {
		t.Errorf("mapped value not shown:\n%s", &buf)
	}

	if err := showFile(&buf, filepath.Join(dir, "missing")); !os.IsNotExist(err) {
		t.Errorf("showFile(missing) = %v, want not-exist error", err)
	}
}
