// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package archive records periodic snapshots of a registry's counters,
// keeps the recent ones in memory, and optionally writes them to a
// bucket.
package archive

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// A Snapshot is the value of every counter of a registry at one time.
type Snapshot struct {
	Seq    uint64    `cbor:"1,keyasint"`
	Time   time.Time `cbor:"2,keyasint"`
	Values []uint32  `cbor:"3,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot CBOR encoder mode: %v", err))
	}
	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot CBOR decoder mode: %v", err))
	}
}

// Marshal returns the canonical CBOR encoding of s.
func (s *Snapshot) Marshal() ([]byte, error) {
	return encMode.Marshal(s)
}

// Unmarshal decodes a snapshot encoded by Marshal.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := decMode.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &s, nil
}

// Delta returns the per-counter difference from prev to s, for counters
// present in both. A counter that went down yields zero.
func (s *Snapshot) Delta(prev *Snapshot) []uint32 {
	n := min(len(s.Values), len(prev.Values))
	d := make([]uint32, n)
	for i := range d {
		if s.Values[i] > prev.Values[i] {
			d[i] = s.Values[i] - prev.Values[i]
		}
	}
	return d
}

// ObjectName returns the bucket object name of snapshot seq. Names sort in
// sequence order.
func ObjectName(seq uint64) string {
	return fmt.Sprintf("snapshots/%020d.cbor", seq)
}
