// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memory provides allocators for registry buffers.
//
// A registry never allocates once it is complete, but it does obtain two
// buffers over its life: the statistics array, at creation, and the
// information encoding, on first export. The allocators here decide where
// those buffers live: the Go heap ([Heap]), or shared memory-mapped files
// that other processes can read ([Mapped]).
package memory

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// ErrNotAllocated is returned by Deallocate for a buffer the allocator
// did not hand out, or already took back.
var ErrNotAllocated = errors.New("memory: buffer not allocated by this allocator")

// Heap allocates 8-byte aligned buffers from the Go heap.
// The zero value is ready to use.
type Heap struct {
	mu   sync.Mutex
	live map[*byte]int
}

// Allocate returns a zeroed buffer of size bytes.
func (h *Heap) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("memory: negative size %d", size)
	}
	// Backing the buffer with uint64 words guarantees its alignment.
	words := make([]uint64, (size+7)/8+1)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), size)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.live == nil {
		h.live = make(map[*byte]int)
	}
	h.live[unsafe.SliceData(buf)] = size
	return buf, nil
}

// Deallocate forgets buf. The memory is reclaimed by the garbage collector
// once nothing refers to it.
func (h *Heap) Deallocate(buf []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := unsafe.SliceData(buf)
	if _, ok := h.live[p]; !ok {
		return ErrNotAllocated
	}
	delete(h.live, p)
	return nil
}

// Live returns the number of buffers allocated and not yet deallocated.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}
