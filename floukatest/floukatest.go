// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// floukatest provides testing utilities for registries.
// This package cannot be used except for testing.
package floukatest

import (
	"errors"
	"testing"

	"github.com/flouka/flouka"
	"github.com/flouka/flouka/layout"
	"github.com/flouka/flouka/memory"
	"github.com/flouka/flouka/wire"
)

// New returns a complete registry laid out as l, built with cfg.
// The registry is destroyed when the test ends, and the test fails if any
// buffer it allocated is not released exactly once.
func New(t testing.TB, l *layout.Layout, cfg flouka.Config) *flouka.Registry {
	t.Helper()
	if cfg.Allocator == nil {
		cfg.Allocator = new(memory.Heap)
	}
	alloc := &memory.Counting{Allocator: cfg.Allocator}
	cfg.Allocator = alloc
	r, err := l.New(cfg)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Destroy(); err != nil && !errors.Is(err, flouka.ErrDestroyed) {
			t.Errorf("Destroy: %v", err)
		}
		if alloc.Allocs() != alloc.Deallocs() {
			t.Errorf("%d buffers allocated, %d released", alloc.Allocs(), alloc.Deallocs())
		}
	})
	return r
}

// Demo returns a complete registry with the demo layout: two groups,
// three subgroups and five counters.
func Demo(t testing.TB) *flouka.Registry {
	t.Helper()
	return New(t, layout.Demo(), flouka.Config{})
}

// Values returns the current counter values of r.
func Values(t testing.TB, r *flouka.Registry) []uint32 {
	t.Helper()
	v, err := r.Snapshot(nil)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return v
}

// Information returns the decoded information buffer of r.
func Information(t testing.TB, r *flouka.Registry) *wire.Information {
	t.Helper()
	buf, err := r.Information()
	if err != nil {
		t.Fatalf("Information: %v", err)
	}
	info, err := wire.Decode(buf)
	if err != nil {
		t.Fatalf("decoding information: %v", err)
	}
	return info
}
