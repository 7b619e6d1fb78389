// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flouka implements a fixed-capacity registry of named 32-bit
// counters for programs that must not allocate in steady state.
//
// Counters are organized in a three-level hierarchy: groups contain
// subgroups, and subgroups contain counters. All capacities are fixed by
// [New]; every id is then assigned exactly once, parents before children:
//
//	r, err := flouka.New(flouka.Config{Groups: 1, Subgroups: 1, Counters: 2})
//	...
//	r.AssignGroup(0, "Transmission", "Counters of the transmission path")
//	r.AssignSubgroup(0, 0, "Connection 1", "Transmission on connection 1")
//	r.AssignCounter(0, 0, "Byte(s)", "# Bytes transmitted", "Bytes transmitted")
//	r.AssignCounter(1, 0, "TX Failure(s)", "# Transmission failures", "Failed transmissions")
//
// Once complete, the registry exports two buffers. [Registry.Information]
// describes the hierarchy in the encoding of package [wire]; it is built
// once. [Registry.Statistics] is the live array of counter values: the same
// slice for the whole life of the registry, whose contents change as the
// counters do.
//
// Counter updates ([Registry.Increment], [Registry.Increase] and so on) are
// lock-free and allocation-free. They refuse to reach [Max] or go below
// zero and report a [*RangeError] instead.
//
// All failures are returned as [*Error] values that record the operation
// and the caller's file and line. With [Config.Strict] set, they panic
// instead, which stops a development build at the faulty call.
package flouka
