// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flouka

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/flouka/flouka/internal/meta"
	"github.com/flouka/flouka/internal/store"
	"github.com/flouka/flouka/memory"
	"github.com/flouka/flouka/wire"
)

// Max is the reserved counter value. Increment, Increase, Decrement and
// Decrease never produce it; Set may.
const Max = store.Max

// An Allocator provides the raw buffers a Registry owns. Buffers returned
// by Allocate must be at least size bytes and 4-byte aligned; they need
// not be zeroed. Deallocate is called exactly once for each buffer, by
// [Registry.Destroy].
type Allocator interface {
	Allocate(size int) ([]byte, error)
	Deallocate(buf []byte) error
}

// Config holds the fixed capacities of a Registry and the capabilities it
// borrows from its host.
type Config struct {
	// Groups, Subgroups and Counters are the number of ids of each kind.
	// Ids of each kind are dense, in [0, n). All must be positive.
	Groups    int
	Subgroups int
	Counters  int

	// Allocator provides the statistics and information buffers.
	// If nil, buffers come from the Go heap.
	Allocator Allocator

	// Locker guards assignment. If nil, a sync.Mutex is used.
	// Use NopLocker when assignment happens on a single goroutine.
	Locker sync.Locker

	// Strict makes every failed operation panic with its *Error instead
	// of returning it. It is meant for development builds, where a contract
	// violation should stop the program at the faulty call.
	Strict bool
}

// NopLocker is a sync.Locker that does nothing.
type NopLocker struct{}

func (NopLocker) Lock()   {}
func (NopLocker) Unlock() {}

// A Registry is a fixed set of named counters organized in groups and
// subgroups.
//
// A Registry starts out assigning: every group, subgroup and counter id must
// be assigned exactly once, parents before children. Once all are
// assigned the registry is complete: its information and statistics may be
// exported, and its layout no longer changes.
//
// Assignment may happen from several goroutines; it is serialized by the
// configured Locker. Counter operations take no lock. Distinct counters
// may be updated concurrently; updates of the same counter from several
// goroutines are each atomic, but their ordering is up to the caller.
type Registry struct {
	table  *meta.Table
	store  *store.Store
	alloc  Allocator
	strict bool

	stats []byte // from alloc, backs store's values

	infoMu sync.Mutex
	info   []byte // from alloc, set once

	complete  atomic.Bool // latched: a complete table never changes again
	destroyed atomic.Bool
}

// New allocates a registry with the capacities in cfg. On failure no
// buffer remains allocated.
func New(cfg Config) (*Registry, error) {
	if err := checkConfig(&cfg); err != nil {
		return nil, failure(cfg.Strict, 2, "New", err)
	}
	alloc := cfg.Allocator
	if alloc == nil {
		alloc = new(memory.Heap)
	}
	locker := cfg.Locker
	if locker == nil {
		locker = new(sync.Mutex)
	}

	size := cfg.Counters * wire.ValueSize
	buf, err := alloc.Allocate(size)
	if err != nil {
		return nil, failure(cfg.Strict, 2, "New", fmt.Errorf("allocating %d bytes of statistics: %w", size, err))
	}
	if len(buf) < size || uintptr(unsafe.Pointer(unsafe.SliceData(buf)))%4 != 0 {
		err := ErrAlignment
		if len(buf) < size {
			err = fmt.Errorf("allocator returned %d bytes, want %d", len(buf), size)
		}
		if derr := alloc.Deallocate(buf); derr != nil {
			err = fmt.Errorf("%w (deallocating: %v)", err, derr)
		}
		return nil, failure(cfg.Strict, 2, "New", err)
	}
	buf = buf[:size:size]
	values := unsafe.Slice((*uint32)(unsafe.Pointer(unsafe.SliceData(buf))), cfg.Counters)
	clear(values)

	table := meta.NewTable(cfg.Groups, cfg.Subgroups, cfg.Counters, locker)
	return &Registry{
		table:  table,
		store:  store.New(values, table),
		alloc:  alloc,
		strict: cfg.Strict,
		stats:  buf,
	}, nil
}

func checkConfig(cfg *Config) error {
	for _, c := range []struct {
		name string
		n    int
	}{
		{"groups", cfg.Groups},
		{"subgroups", cfg.Subgroups},
		{"counters", cfg.Counters},
	} {
		if c.n <= 0 {
			return fmt.Errorf("%w: %s capacity %d must be positive", ErrConfig, c.name, c.n)
		}
		if uint64(c.n) > math.MaxUint32 {
			return fmt.Errorf("%w: %s capacity %d exceeds the 32-bit id space", ErrConfig, c.name, c.n)
		}
	}
	return nil
}

// Destroy releases the registry's buffers. Every later call on r fails with
// ErrDestroyed. Slices returned by Statistics and Information must not be
// used after Destroy.
func (r *Registry) Destroy() error {
	if !r.destroyed.CompareAndSwap(false, true) {
		return r.fail("Destroy", ErrDestroyed)
	}
	r.infoMu.Lock()
	info := r.info
	r.info = nil
	r.infoMu.Unlock()

	var errs []error
	if info != nil {
		if err := r.alloc.Deallocate(info); err != nil {
			errs = append(errs, fmt.Errorf("information buffer: %w", err))
		}
	}
	if err := r.alloc.Deallocate(r.stats); err != nil {
		errs = append(errs, fmt.Errorf("statistics buffer: %w", err))
	}
	r.stats = nil
	if len(errs) > 0 {
		return r.fail("Destroy", errors.Join(errs...))
	}
	return nil
}

// AssignGroup assigns group id.
func (r *Registry) AssignGroup(id uint32, name, description string) error {
	if r.destroyed.Load() {
		return r.fail("AssignGroup", ErrDestroyed)
	}
	if err := r.table.AssignGroup(id, name, description); err != nil {
		return r.fail("AssignGroup", err)
	}
	return nil
}

// AssignSubgroup assigns subgroup id as a child of group.
func (r *Registry) AssignSubgroup(id, group uint32, name, description string) error {
	if r.destroyed.Load() {
		return r.fail("AssignSubgroup", ErrDestroyed)
	}
	if err := r.table.AssignSubgroup(id, group, name, description); err != nil {
		return r.fail("AssignSubgroup", err)
	}
	return nil
}

// AssignCounter assigns counter id as a child of subgroup. The unit is a
// short label such as "bytes" or "errors".
func (r *Registry) AssignCounter(id, subgroup uint32, unit, name, description string) error {
	if r.destroyed.Load() {
		return r.fail("AssignCounter", ErrDestroyed)
	}
	if err := r.table.AssignCounter(id, subgroup, unit, name, description); err != nil {
		return r.fail("AssignCounter", err)
	}
	return nil
}

// Complete reports whether every group, subgroup and counter is assigned.
func (r *Registry) Complete() bool {
	return !r.destroyed.Load() && r.table.Complete()
}

func (r *Registry) checkComplete() error {
	if r.destroyed.Load() {
		return ErrDestroyed
	}
	if r.complete.Load() {
		return nil
	}
	if !r.table.Complete() {
		a := r.table.Assigned()
		g, s, c := r.table.Capacity()
		return fmt.Errorf("%w: %d/%d groups, %d/%d subgroups, %d/%d counters",
			ErrIncomplete, a.Groups, g, a.Subgroups, s, a.Counters, c)
	}
	r.complete.Store(true)
	return nil
}

// InformationSize returns the size of the information encoding after its
// 4-byte length header, so that
//
//	len(Information()) == wire.HeaderSize + InformationSize()
func (r *Registry) InformationSize() (int, error) {
	if err := r.checkComplete(); err != nil {
		return 0, r.fail("InformationSize", err)
	}
	return wire.Size(r.table.Information()), nil
}

// Information returns the information encoding of the registry, header
// included. The buffer is produced by the first call and shared by all
// later ones; callers must not modify it.
func (r *Registry) Information() ([]byte, error) {
	if err := r.checkComplete(); err != nil {
		return nil, r.fail("Information", err)
	}
	r.infoMu.Lock()
	defer r.infoMu.Unlock()
	// Destroy marks the registry before it takes infoMu.
	if r.destroyed.Load() {
		return nil, r.fail("Information", ErrDestroyed)
	}
	if r.info != nil {
		return r.info, nil
	}
	info := r.table.Information()
	size := wire.HeaderSize + wire.Size(info)
	buf, err := r.alloc.Allocate(size)
	if err != nil {
		return nil, r.fail("Information", fmt.Errorf("allocating %d bytes of information: %w", size, err))
	}
	n, err := wire.Encode(buf, info)
	if err != nil {
		if derr := r.alloc.Deallocate(buf); derr != nil {
			err = errors.Join(err, fmt.Errorf("deallocating information buffer: %w", derr))
		}
		return nil, r.fail("Information", err)
	}
	r.info = buf[:n:n]
	return r.info, nil
}

// CopyInformation writes the information encoding into the caller's dst
// and returns the number of bytes written.
// It fails with ErrShortBuffer if dst is smaller than
// wire.HeaderSize+InformationSize().
func (r *Registry) CopyInformation(dst []byte) (int, error) {
	if err := r.checkComplete(); err != nil {
		return 0, r.fail("CopyInformation", err)
	}
	n, err := wire.Encode(dst, r.table.Information())
	if err != nil {
		return 0, r.fail("CopyInformation", err)
	}
	return n, nil
}

// Statistics returns the live counter values as a byte slice of
// 4*Counters bytes: one host-order uint32 per counter, in id order.
//
// The slice is the registry's own storage. Every call returns the same
// slice, and its contents change as counters are updated, so a caller may
// keep it and re-read it before each use. Concurrent readers should use
// Snapshot, which reads each value atomically.
func (r *Registry) Statistics() ([]byte, error) {
	if err := r.checkComplete(); err != nil {
		return nil, r.fail("Statistics", err)
	}
	return r.stats, nil
}

// Snapshot appends the current value of every counter to dst and returns
// the extended slice. Each value is read atomically.
func (r *Registry) Snapshot(dst []uint32) ([]uint32, error) {
	if err := r.checkComplete(); err != nil {
		return dst, r.fail("Snapshot", err)
	}
	return r.store.Snapshot(dst), nil
}

// Layout returns a copy of the registry's descriptors. The registry must be
// complete.
func (r *Registry) Layout() (*wire.Information, error) {
	if err := r.checkComplete(); err != nil {
		return nil, r.fail("Layout", err)
	}
	info := r.table.Information()
	return &wire.Information{
		Assigned:  info.Assigned,
		Groups:    slices.Clone(info.Groups),
		Subgroups: slices.Clone(info.Subgroups),
		Counters:  slices.Clone(info.Counters),
	}, nil
}

// Increment adds one to counter id. It fails with a *RangeError wrapping
// ErrOverflow if the result would be Max.
func (r *Registry) Increment(id uint32) error {
	if r.destroyed.Load() {
		return r.fail("Increment", ErrDestroyed)
	}
	if err := r.store.Increment(id); err != nil {
		return r.fail("Increment", err)
	}
	return nil
}

// Decrement subtracts one from counter id. It fails with a *RangeError
// wrapping ErrUnderflow if the counter is zero.
func (r *Registry) Decrement(id uint32) error {
	if r.destroyed.Load() {
		return r.fail("Decrement", ErrDestroyed)
	}
	if err := r.store.Decrement(id); err != nil {
		return r.fail("Decrement", err)
	}
	return nil
}

// Increase adds delta to counter id. It fails, leaving the counter
// unchanged, if the result would be Max or more.
func (r *Registry) Increase(id, delta uint32) error {
	if r.destroyed.Load() {
		return r.fail("Increase", ErrDestroyed)
	}
	if err := r.store.Increase(id, delta); err != nil {
		return r.fail("Increase", err)
	}
	return nil
}

// Decrease subtracts delta from counter id. It fails, leaving the counter
// unchanged, if the result would be negative.
func (r *Registry) Decrease(id, delta uint32) error {
	if r.destroyed.Load() {
		return r.fail("Decrease", ErrDestroyed)
	}
	if err := r.store.Decrease(id, delta); err != nil {
		return r.fail("Decrease", err)
	}
	return nil
}

// Set stores v in counter id. Unlike the other mutators it performs no
// range check: any value, Max included, may be stored.
func (r *Registry) Set(id, v uint32) error {
	if r.destroyed.Load() {
		return r.fail("Set", ErrDestroyed)
	}
	if err := r.store.Set(id, v); err != nil {
		return r.fail("Set", err)
	}
	return nil
}

// Reset sets counter id to zero.
func (r *Registry) Reset(id uint32) error {
	if r.destroyed.Load() {
		return r.fail("Reset", ErrDestroyed)
	}
	if err := r.store.Reset(id); err != nil {
		return r.fail("Reset", err)
	}
	return nil
}

// Get returns the value of counter id.
func (r *Registry) Get(id uint32) (uint32, error) {
	if r.destroyed.Load() {
		return 0, r.fail("Get", ErrDestroyed)
	}
	v, err := r.store.Get(id)
	if err != nil {
		return 0, r.fail("Get", err)
	}
	return v, nil
}
