// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/flouka/flouka/wire"
	"github.com/google/go-cmp/cmp"
)

func TestAssignOrder(t *testing.T) {
	tab := NewTable(2, 2, 2, new(sync.Mutex))

	if err := tab.AssignSubgroup(0, 0, "s", "d"); !errors.Is(err, ErrParentUnassigned) {
		t.Errorf("subgroup before its group: got %v, want ErrParentUnassigned", err)
	}
	if err := tab.AssignCounter(0, 0, "u", "c", "d"); !errors.Is(err, ErrParentUnassigned) {
		t.Errorf("counter before its subgroup: got %v, want ErrParentUnassigned", err)
	}
	if err := tab.AssignGroup(0, "g", "d"); err != nil {
		t.Fatal(err)
	}
	if err := tab.AssignGroup(0, "g", "d"); !errors.Is(err, ErrAssigned) {
		t.Errorf("duplicate group: got %v, want ErrAssigned", err)
	}
	if err := tab.AssignSubgroup(0, 1, "s", "d"); !errors.Is(err, ErrParentUnassigned) {
		t.Errorf("subgroup of unassigned group 1: got %v, want ErrParentUnassigned", err)
	}
	if err := tab.AssignSubgroup(1, 0, "s", "d"); err != nil {
		t.Fatal(err)
	}
	if err := tab.AssignCounter(2, 1, "u", "c", "d"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("counter id 2 of 2: got %v, want ErrOutOfRange", err)
	}
	if err := tab.AssignCounter(1, 5, "u", "c", "d"); !errors.Is(err, ErrParentUnassigned) {
		t.Errorf("counter of subgroup 5: got %v, want ErrParentUnassigned", err)
	}
	if tab.Complete() {
		t.Error("partial table reports complete")
	}
	if got, want := tab.Assigned(), (wire.Counts{Groups: 1, Subgroups: 1}); got != want {
		t.Errorf("Assigned() = %+v, want %+v", got, want)
	}
}

func TestCapacityBeforeRange(t *testing.T) {
	tab := NewTable(1, 1, 1, new(sync.Mutex))
	if err := tab.AssignGroup(0, "g", "d"); err != nil {
		t.Fatal(err)
	}
	// Once every slot is taken, the capacity error wins over the range
	// error.
	if err := tab.AssignGroup(7, "g", "d"); !errors.Is(err, ErrCapacity) {
		t.Errorf("got %v, want ErrCapacity", err)
	}
}

func TestStrings(t *testing.T) {
	tab := NewTable(1, 1, 1, new(sync.Mutex))
	for _, test := range []struct {
		name, desc string
		want       error
	}{
		{"", "d", ErrEmptyString},
		{"g", "", ErrEmptyString},
		{"g\x00x", "d", ErrInvalidString},
	} {
		if err := tab.AssignGroup(0, test.name, test.desc); !errors.Is(err, test.want) {
			t.Errorf("AssignGroup(%q, %q): got %v, want %v", test.name, test.desc, err, test.want)
		}
	}
	if got := tab.Assigned().Groups; got != 0 {
		t.Errorf("rejected assignments changed the count to %d", got)
	}
}

func TestInformation(t *testing.T) {
	tab := NewTable(1, 1, 2, new(sync.Mutex))
	if err := tab.AssignGroup(0, "g", "gd"); err != nil {
		t.Fatal(err)
	}
	if err := tab.AssignSubgroup(0, 0, "s", "sd"); err != nil {
		t.Fatal(err)
	}
	if err := tab.AssignCounter(1, 0, "u", "c", "cd"); err != nil {
		t.Fatal(err)
	}
	want := &wire.Information{
		Assigned:  wire.Counts{Groups: 1, Subgroups: 1, Counters: 1},
		Groups:    []wire.Group{{ID: 0, Name: "g", Description: "gd"}},
		Subgroups: []wire.Subgroup{{ID: 0, Group: 0, Name: "s", Description: "sd"}},
		Counters: []wire.Counter{
			{ID: 0},
			{ID: 1, Subgroup: 0, Unit: "u", Name: "c", Description: "cd"},
		},
	}
	if diff := cmp.Diff(want, tab.Information()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if tab.CounterAssigned(0) || !tab.CounterAssigned(1) || tab.CounterAssigned(2) {
		t.Error("CounterAssigned disagrees with the assignments")
	}
}

func TestConcurrentAssign(t *testing.T) {
	const n = 64
	tab := NewTable(1, 1, n, new(sync.Mutex))
	if err := tab.AssignGroup(0, "g", "d"); err != nil {
		t.Fatal(err)
	}
	if err := tab.AssignSubgroup(0, 0, "s", "d"); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	// Every id is attempted twice; exactly one attempt may win.
	for i := 0; i < 2*n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := uint32(i % n)
			errs <- tab.AssignCounter(id, 0, "u", fmt.Sprint("c", id), "d")
		}()
	}
	wg.Wait()
	close(errs)
	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAssigned), errors.Is(err, ErrCapacity):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != n || dup != n {
		t.Errorf("%d successes and %d refusals, want %d of each", ok, dup, n)
	}
	if !tab.Complete() {
		t.Error("table not complete")
	}
}
