// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The mmap package provides an abstraction for memory mapping files
// on different platforms.
package mmap

import (
	"os"
)

// Data is mmap'ed read-only or read-write data from a file.
// Data stays valid until Munmap, even if the file is closed.
type Data struct {
	f      *os.File
	Data   []byte
	handle uintptr // file mapping handle on windows
}

// Mmap maps the entire file f into memory, read-only unless writable is
// set. Mappings are shared: writes through a writable mapping are visible
// to every process mapping the same file.
func Mmap(f *os.File, writable bool) (*Data, error) {
	return mmapFile(f, writable)
}

// Munmap unmaps d. It does not close the file.
func Munmap(d *Data) error {
	if d == nil || len(d.Data) == 0 {
		return nil
	}
	return munmapFile(d)
}

// File returns the mapped file.
func (d *Data) File() *os.File { return d.f }
