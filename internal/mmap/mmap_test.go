// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/flouka/flouka/internal/mmap"
	"github.com/flouka/flouka/internal/testenv"
)

func TestWriteThrough(t *testing.T) {
	testenv.NeedsMmap(t)

	name := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(name, make([]byte, 16), 0o666); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	d, err := mmap.Mmap(f, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Data) != 16 {
		t.Fatalf("mapped %d bytes, want 16", len(d.Data))
	}
	copy(d.Data, "flouka")
	if err := mmap.Munmap(d); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(got, []byte("flouka")) {
		t.Errorf("file starts with %q, want %q", got[:6], "flouka")
	}
}

func TestEmptyFile(t *testing.T) {
	testenv.NeedsMmap(t)

	name := filepath.Join(t.TempDir(), "empty")
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	d, err := mmap.Mmap(f, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Data) != 0 {
		t.Errorf("mapped %d bytes of an empty file", len(d.Data))
	}
	if err := mmap.Munmap(d); err != nil {
		t.Errorf("Munmap of empty mapping: %v", err)
	}
}
