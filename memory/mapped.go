// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"unsafe"

	"github.com/flouka/flouka/internal/mmap"
)

// Mapped allocates buffers backed by shared memory-mapped files in Dir.
// The n'th allocation, counting from zero, lives in the file "<n>.buf".
// A registry allocates its statistics first and its information second,
// so another process can watch the counters of a running program by
// mapping Dir/0.buf, and learn their names from Dir/1.buf.
//
// Files are left in place after Deallocate; removing them is up to the
// caller.
type Mapped struct {
	Dir string

	mu   sync.Mutex
	seq  int
	live map[*byte]*mmap.Data
}

// StatisticsFile and InformationFile return the files in dir that hold the
// buffers of the first registry allocated from a Mapped in dir.
func StatisticsFile(dir string) string  { return filepath.Join(dir, "0.buf") }
func InformationFile(dir string) string { return filepath.Join(dir, "1.buf") }

// Allocate creates the next file in m.Dir, sizes it, and maps it read-write.
func (m *Mapped) Allocate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memory: cannot map %d bytes", size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	name := filepath.Join(m.Dir, strconv.Itoa(m.seq)+".buf")
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	// The mapping outlives the descriptor.
	defer f.Close()
	if err := f.Truncate(int64(size)); err != nil {
		return nil, err
	}
	d, err := mmap.Mmap(f, true)
	if err != nil {
		return nil, fmt.Errorf("memory: mapping %s: %w", name, err)
	}
	if m.live == nil {
		m.live = make(map[*byte]*mmap.Data)
	}
	m.seq++
	buf := d.Data[:size:size]
	m.live[unsafe.SliceData(buf)] = d
	return buf, nil
}

// Deallocate unmaps buf.
func (m *Mapped) Deallocate(buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := unsafe.SliceData(buf)
	d, ok := m.live[p]
	if !ok {
		return ErrNotAllocated
	}
	delete(m.live, p)
	return mmap.Munmap(d)
}

// Open maps the existing file name read-only, for a process that observes
// another one's registry. The returned function unmaps it.
func Open(name string) (buf []byte, closer func() error, err error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	d, err := mmap.Mmap(f, false)
	if err != nil {
		return nil, nil, fmt.Errorf("memory: mapping %s: %w", name, err)
	}
	return d.Data, func() error { return mmap.Munmap(d) }, nil
}
