// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store implements the counter values of a registry.
//
// Values live in a caller-provided array that never moves. Every slot is
// accessed with atomic word operations and no lock is ever taken, so a
// reader holding the array sees each value as of some recent write.
//
// The checked mutators refuse to produce Max, which is reserved: an
// increment from Max-1 fails even though it would not wrap. Set does not
// check, and may store Max.
package store

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/flouka/flouka/internal/meta"
)

// Max is the reserved counter value that checked mutators never reach.
const Max = 1<<32 - 1

var (
	ErrOverflow  = errors.New("counter overflow")
	ErrUnderflow = errors.New("counter underflow")
)

// A RangeError reports a checked mutation that was refused because it
// would have left the counter outside [0, Max).
type RangeError struct {
	Op    string
	ID    uint32
	Value uint32 // value before the refused mutation
	Delta uint32
	Err   error // ErrOverflow or ErrUnderflow
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s counter %d by %d from %d: %v", e.Op, e.ID, e.Delta, e.Value, e.Err)
}

func (e *RangeError) Unwrap() error { return e.Err }

// A Store mutates counter values. Only counters assigned in its table may
// be touched.
type Store struct {
	values []uint32
	table  *meta.Table
}

// New returns a store over values, which must have one slot per counter in
// table.
func New(values []uint32, table *meta.Table) *Store {
	return &Store{values: values, table: table}
}

func (s *Store) slot(id uint32) (*uint32, error) {
	if uint64(id) >= uint64(len(s.values)) {
		return nil, fmt.Errorf("counter %d: %w [0, %d)", id, meta.ErrOutOfRange, len(s.values))
	}
	if !s.table.CounterAssigned(id) {
		return nil, fmt.Errorf("counter %d: %w", id, meta.ErrUnassigned)
	}
	return &s.values[id], nil
}

// Increment adds one to counter id.
func (s *Store) Increment(id uint32) error {
	return s.add("increment", id, 1)
}

// Increase adds delta to counter id.
func (s *Store) Increase(id, delta uint32) error {
	return s.add("increase", id, delta)
}

// Decrement subtracts one from counter id.
func (s *Store) Decrement(id uint32) error {
	return s.sub("decrement", id, 1)
}

// Decrease subtracts delta from counter id.
func (s *Store) Decrease(id, delta uint32) error {
	return s.sub("decrease", id, delta)
}

func (s *Store) add(op string, id, delta uint32) error {
	p, err := s.slot(id)
	if err != nil {
		return err
	}
	for {
		v := atomic.LoadUint32(p)
		// Compare against the headroom so the check itself cannot wrap.
		if v >= Max || delta > Max-1-v {
			return &RangeError{Op: op, ID: id, Value: v, Delta: delta, Err: ErrOverflow}
		}
		if atomic.CompareAndSwapUint32(p, v, v+delta) {
			return nil
		}
	}
}

func (s *Store) sub(op string, id, delta uint32) error {
	p, err := s.slot(id)
	if err != nil {
		return err
	}
	for {
		v := atomic.LoadUint32(p)
		if delta > v {
			return &RangeError{Op: op, ID: id, Value: v, Delta: delta, Err: ErrUnderflow}
		}
		if atomic.CompareAndSwapUint32(p, v, v-delta) {
			return nil
		}
	}
}

// Set stores v in counter id without any range check.
func (s *Store) Set(id, v uint32) error {
	p, err := s.slot(id)
	if err != nil {
		return err
	}
	atomic.StoreUint32(p, v)
	return nil
}

// Reset sets counter id to zero.
func (s *Store) Reset(id uint32) error {
	return s.Set(id, 0)
}

// Get returns the value of counter id.
func (s *Store) Get(id uint32) (uint32, error) {
	p, err := s.slot(id)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32(p), nil
}

// Snapshot appends the current value of every counter to dst. Each value is
// read atomically; the snapshot as a whole is not.
func (s *Store) Snapshot(dst []uint32) []uint32 {
	for i := range s.values {
		dst = append(dst, atomic.LoadUint32(&s.values[i]))
	}
	return dst
}
