// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memory

import (
	"errors"
	"sync/atomic"
)

// Allocator is the interface implemented by the allocators in this
// package. It matches flouka.Allocator.
type Allocator interface {
	Allocate(size int) ([]byte, error)
	Deallocate(buf []byte) error
}

// ErrLimit is returned by a Counting allocator whose limit is reached.
var ErrLimit = errors.New("memory: allocation limit reached")

// Counting wraps an allocator and counts the calls made to it. If Limit is
// positive, allocations beyond the first Limit fail with ErrLimit, which
// lets tests exercise allocation failures.
type Counting struct {
	Allocator Allocator
	Limit     int

	allocs   atomic.Int64
	deallocs atomic.Int64
	bytes    atomic.Int64
}

func (c *Counting) Allocate(size int) ([]byte, error) {
	if c.Limit > 0 && c.allocs.Load() >= int64(c.Limit) {
		return nil, ErrLimit
	}
	buf, err := c.Allocator.Allocate(size)
	if err != nil {
		return nil, err
	}
	c.allocs.Add(1)
	c.bytes.Add(int64(size))
	return buf, nil
}

func (c *Counting) Deallocate(buf []byte) error {
	if err := c.Allocator.Deallocate(buf); err != nil {
		return err
	}
	c.deallocs.Add(1)
	return nil
}

// Allocs returns the number of successful allocations.
func (c *Counting) Allocs() int { return int(c.allocs.Load()) }

// Deallocs returns the number of successful deallocations.
func (c *Counting) Deallocs() int { return int(c.deallocs.Load()) }

// Bytes returns the total size of successful allocations.
func (c *Counting) Bytes() int { return int(c.bytes.Load()) }
