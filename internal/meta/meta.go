// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package meta holds the descriptors of a registry's groups, subgroups and
// counters, and enforces the assign-once, parent-before-child protocol.
package meta

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/flouka/flouka/wire"
)

var (
	ErrCapacity         = errors.New("all slots already assigned")
	ErrOutOfRange       = errors.New("id out of range")
	ErrAssigned         = errors.New("id already assigned")
	ErrUnassigned       = errors.New("id not assigned")
	ErrParentUnassigned = errors.New("parent not assigned")
	ErrEmptyString      = errors.New("empty string")
	ErrInvalidString    = errors.New("string contains NUL byte")
)

// A Table is the fixed-capacity descriptor storage of one registry.
// Slot i of each kind describes the item with id i.
//
// Assignment methods run under the table's locker. Read accessors do not
// lock: they are meant for use once the table is complete, when it no
// longer changes.
type Table struct {
	mu sync.Locker

	groups    []wire.Group
	subgroups []wire.Subgroup
	counters  []wire.Counter

	groupSet    []bool
	subgroupSet []bool
	counterSet  []atomic.Bool // read without the lock by counter operations

	assigned wire.Counts
}

// NewTable returns a table with the given capacities. Every slot starts
// unassigned, with its id set and empty strings.
func NewTable(groups, subgroups, counters int, mu sync.Locker) *Table {
	t := &Table{
		mu:          mu,
		groups:      make([]wire.Group, groups),
		subgroups:   make([]wire.Subgroup, subgroups),
		counters:    make([]wire.Counter, counters),
		groupSet:    make([]bool, groups),
		subgroupSet: make([]bool, subgroups),
		counterSet:  make([]atomic.Bool, counters),
	}
	for i := range t.groups {
		t.groups[i].ID = uint32(i)
	}
	for i := range t.subgroups {
		t.subgroups[i].ID = uint32(i)
	}
	for i := range t.counters {
		t.counters[i].ID = uint32(i)
	}
	return t
}

// AssignGroup gives group id its name and description.
func (t *Table) AssignGroup(id uint32, name, description string) error {
	if err := checkStrings(name, description); err != nil {
		return fmt.Errorf("group %d: %w", id, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := checkSlot(len(t.groupSet), int(t.assigned.Groups), id, func(id uint32) bool { return t.groupSet[id] }); err != nil {
		return fmt.Errorf("group %d: %w", id, err)
	}
	t.groups[id] = wire.Group{ID: id, Name: name, Description: description}
	t.groupSet[id] = true
	t.assigned.Groups++
	return nil
}

// AssignSubgroup gives subgroup id its parent group, name and description.
// The parent group must already be assigned.
func (t *Table) AssignSubgroup(id, group uint32, name, description string) error {
	if err := checkStrings(name, description); err != nil {
		return fmt.Errorf("subgroup %d: %w", id, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := checkSlot(len(t.subgroupSet), int(t.assigned.Subgroups), id, func(id uint32) bool { return t.subgroupSet[id] }); err != nil {
		return fmt.Errorf("subgroup %d: %w", id, err)
	}
	if !isSet(t.groupSet, group) {
		return fmt.Errorf("subgroup %d: group %d: %w", id, group, ErrParentUnassigned)
	}
	t.subgroups[id] = wire.Subgroup{ID: id, Group: group, Name: name, Description: description}
	t.subgroupSet[id] = true
	t.assigned.Subgroups++
	return nil
}

// AssignCounter gives counter id its parent subgroup, unit, name and
// description. The parent subgroup must already be assigned.
func (t *Table) AssignCounter(id, subgroup uint32, unit, name, description string) error {
	if err := checkStrings(unit, name, description); err != nil {
		return fmt.Errorf("counter %d: %w", id, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := checkSlot(len(t.counterSet), int(t.assigned.Counters), id, t.CounterAssigned); err != nil {
		return fmt.Errorf("counter %d: %w", id, err)
	}
	if !isSet(t.subgroupSet, subgroup) {
		return fmt.Errorf("counter %d: subgroup %d: %w", id, subgroup, ErrParentUnassigned)
	}
	t.counters[id] = wire.Counter{ID: id, Subgroup: subgroup, Unit: unit, Name: name, Description: description}
	t.counterSet[id].Store(true)
	t.assigned.Counters++
	return nil
}

func checkSlot(capacity, assigned int, id uint32, set func(uint32) bool) error {
	switch {
	case assigned >= capacity:
		return ErrCapacity
	case uint64(id) >= uint64(capacity):
		return fmt.Errorf("%w [0, %d)", ErrOutOfRange, capacity)
	case set(id):
		return ErrAssigned
	}
	return nil
}

func isSet(set []bool, id uint32) bool {
	return uint64(id) < uint64(len(set)) && set[id]
}

func checkStrings(ss ...string) error {
	for _, s := range ss {
		if s == "" {
			return ErrEmptyString
		}
		if strings.IndexByte(s, 0) >= 0 {
			return fmt.Errorf("%w: %q", ErrInvalidString, s)
		}
	}
	return nil
}

// Complete reports whether every slot of every kind is assigned.
func (t *Table) Complete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(t.assigned.Groups) == len(t.groups) &&
		int(t.assigned.Subgroups) == len(t.subgroups) &&
		int(t.assigned.Counters) == len(t.counters)
}

// Assigned returns the number of assigned slots of each kind.
func (t *Table) Assigned() wire.Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.assigned
}

// Capacity returns the number of slots of each kind.
func (t *Table) Capacity() (groups, subgroups, counters int) {
	return len(t.groups), len(t.subgroups), len(t.counters)
}

// CounterAssigned reports whether counter id is assigned. It does not lock,
// so that counter mutation never contends with assignment.
func (t *Table) CounterAssigned(id uint32) bool {
	return uint64(id) < uint64(len(t.counterSet)) && t.counterSet[id].Load()
}

// Information returns the descriptors as the codec sees them. The slices
// are the table's own; callers must not modify them.
func (t *Table) Information() *wire.Information {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &wire.Information{
		Assigned:  t.assigned,
		Groups:    t.groups,
		Subgroups: t.subgroups,
		Counters:  t.counters,
	}
}
