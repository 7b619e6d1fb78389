// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wire implements the binary encodings produced by a registry.
//
// The information encoding describes the whole group/subgroup/counter
// hierarchy. It is a sequence of little-endian uint32 fields and
// NUL-terminated strings:
//
//	[u32 size of the whole buffer, including this field]
//	[u32 assigned groups][u32 assigned subgroups][u32 assigned counters]
//	per group:    [u32 id][name][description]
//	per subgroup: [u32 id][u32 parent group id][name][description]
//	per counter:  [u32 id][u32 parent subgroup id][unit][name][description]
//
// Every configured slot is written, assigned or not. An unassigned slot
// has empty strings and encodes as its id followed by empty strings.
//
// The statistics encoding has no framing: it is the array of counter
// values, one host-order uint32 per counter, in counter id order.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the size of the leading length field of an information
// buffer.
const HeaderSize = 4

// ValueSize is the size of one counter value in a statistics buffer.
const ValueSize = 4

var (
	// ErrShortBuffer is returned by Encode when the destination cannot hold
	// the encoded information.
	ErrShortBuffer = errors.New("wire: buffer too small for information")

	// ErrMalformed is returned by the decoders for buffers that do not follow
	// the encoding.
	ErrMalformed = errors.New("wire: malformed buffer")
)

// A Group is the top level of the naming hierarchy.
type Group struct {
	ID          uint32
	Name        string
	Description string
}

// A Subgroup belongs to exactly one group.
type Subgroup struct {
	ID          uint32
	Group       uint32
	Name        string
	Description string
}

// A Counter is a unit-labeled value belonging to exactly one subgroup.
type Counter struct {
	ID          uint32
	Subgroup    uint32
	Unit        string
	Name        string
	Description string
}

// Counts holds how many slots of each kind have been assigned.
type Counts struct {
	Groups    uint32
	Subgroups uint32
	Counters  uint32
}

// Information is the decoded form of an information buffer. The length of
// each slice is the configured capacity for that kind of slot.
type Information struct {
	Assigned  Counts
	Groups    []Group
	Subgroups []Subgroup
	Counters  []Counter
}

// Size returns the number of bytes Encode writes after the header.
func Size(info *Information) int {
	n := 3 * 4 // assigned counts
	for i := range info.Groups {
		g := &info.Groups[i]
		n += 4 + cstrLen(g.Name) + cstrLen(g.Description)
	}
	for i := range info.Subgroups {
		s := &info.Subgroups[i]
		n += 4 + 4 + cstrLen(s.Name) + cstrLen(s.Description)
	}
	for i := range info.Counters {
		c := &info.Counters[i]
		n += 4 + 4 + cstrLen(c.Unit) + cstrLen(c.Name) + cstrLen(c.Description)
	}
	return n
}

func cstrLen(s string) int { return len(s) + 1 }

// Encode writes the information encoding of info, header included, to dst
// and returns the number of bytes written, HeaderSize+Size(info).
func Encode(dst []byte, info *Information) (int, error) {
	total := HeaderSize + Size(info)
	if len(dst) < total {
		return 0, fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(dst), total)
	}
	if uint64(total) > 1<<32-1 {
		return 0, fmt.Errorf("wire: information size %d does not fit the header", total)
	}
	e := encoder{buf: dst}
	e.u32(uint32(total))
	e.u32(info.Assigned.Groups)
	e.u32(info.Assigned.Subgroups)
	e.u32(info.Assigned.Counters)
	for _, g := range info.Groups {
		e.u32(g.ID)
		e.cstr(g.Name)
		e.cstr(g.Description)
	}
	for _, s := range info.Subgroups {
		e.u32(s.ID)
		e.u32(s.Group)
		e.cstr(s.Name)
		e.cstr(s.Description)
	}
	for _, c := range info.Counters {
		e.u32(c.ID)
		e.u32(c.Subgroup)
		e.cstr(c.Unit)
		e.cstr(c.Name)
		e.cstr(c.Description)
	}
	return e.off, nil
}

// Append appends the information encoding of info to dst.
func Append(dst []byte, info *Information) []byte {
	n := HeaderSize + Size(info)
	start := len(dst)
	dst = append(dst, make([]byte, n)...)
	if _, err := Encode(dst[start:], info); err != nil {
		panic(err) // unreachable: the buffer was sized by Size
	}
	return dst
}

type encoder struct {
	buf []byte
	off int
}

func (e *encoder) u32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[e.off:], v)
	e.off += 4
}

func (e *encoder) cstr(s string) {
	e.off += copy(e.buf[e.off:], s)
	e.buf[e.off] = 0
	e.off++
}

// DecodeCapacity parses an information buffer whose slot capacities are
// known to the caller. The capacities are not part of the encoding.
func DecodeCapacity(buf []byte, groups, subgroups, counters int) (*Information, error) {
	d := decoder{buf: buf}
	total := d.u32()
	if d.err != nil {
		return nil, d.err
	}
	if int64(total) != int64(len(buf)) {
		return nil, fmt.Errorf("%w: header says %d bytes, buffer has %d", ErrMalformed, total, len(buf))
	}
	info := &Information{}
	info.Assigned.Groups = d.u32()
	info.Assigned.Subgroups = d.u32()
	info.Assigned.Counters = d.u32()
	if d.err != nil {
		return nil, d.err
	}
	// Each slot takes at least 4 bytes, which bounds the allocations below
	// for hostile capacities.
	if groups < 0 || subgroups < 0 || counters < 0 || (groups+subgroups+counters)*4 > len(buf) {
		return nil, fmt.Errorf("%w: capacities (%d, %d, %d) exceed buffer of %d bytes", ErrMalformed, groups, subgroups, counters, len(buf))
	}
	info.Groups = make([]Group, groups)
	for i := range info.Groups {
		g := &info.Groups[i]
		g.ID = d.u32()
		g.Name = d.cstr()
		g.Description = d.cstr()
	}
	info.Subgroups = make([]Subgroup, subgroups)
	for i := range info.Subgroups {
		s := &info.Subgroups[i]
		s.ID = d.u32()
		s.Group = d.u32()
		s.Name = d.cstr()
		s.Description = d.cstr()
	}
	info.Counters = make([]Counter, counters)
	for i := range info.Counters {
		c := &info.Counters[i]
		c.ID = d.u32()
		c.Subgroup = d.u32()
		c.Unit = d.cstr()
		c.Name = d.cstr()
		c.Description = d.cstr()
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.off != len(buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(buf)-d.off)
	}
	return info, nil
}

// Decode parses an information buffer. Registries only produce information
// once every slot is assigned, so the assigned counts in the buffer are
// taken as the capacities.
func Decode(buf []byte) (*Information, error) {
	if len(buf) < HeaderSize+12 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformed, len(buf))
	}
	groups := binary.LittleEndian.Uint32(buf[4:])
	subgroups := binary.LittleEndian.Uint32(buf[8:])
	counters := binary.LittleEndian.Uint32(buf[12:])
	if uint64(groups)+uint64(subgroups)+uint64(counters) > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: counts (%d, %d, %d) exceed buffer of %d bytes", ErrMalformed, groups, subgroups, counters, len(buf))
	}
	return DecodeCapacity(buf, int(groups), int(subgroups), int(counters))
}

type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) u32() uint32 {
	if d.err != nil {
		return 0
	}
	if len(d.buf)-d.off < 4 {
		d.err = fmt.Errorf("%w: truncated at offset %d", ErrMalformed, d.off)
		return 0
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *decoder) cstr() string {
	if d.err != nil {
		return ""
	}
	rest := d.buf[d.off:]
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		d.err = fmt.Errorf("%w: unterminated string at offset %d", ErrMalformed, d.off)
		return ""
	}
	s := string(rest[:i])
	d.off += i + 1
	return s
}

// AppendStatistics appends the statistics encoding of values to dst.
func AppendStatistics(dst []byte, values []uint32) []byte {
	for _, v := range values {
		dst = binary.NativeEndian.AppendUint32(dst, v)
	}
	return dst
}

// DecodeStatistics parses a statistics buffer produced on a host with the
// same byte order.
func DecodeStatistics(buf []byte) ([]uint32, error) {
	if len(buf)%ValueSize != 0 {
		return nil, fmt.Errorf("%w: statistics length %d is not a multiple of %d", ErrMalformed, len(buf), ValueSize)
	}
	values := make([]uint32, len(buf)/ValueSize)
	for i := range values {
		values[i] = binary.NativeEndian.Uint32(buf[i*ValueSize:])
	}
	return values, nil
}
