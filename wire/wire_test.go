// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire_test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/flouka/flouka/wire"
	"github.com/google/go-cmp/cmp"
)

func sample() *wire.Information {
	return &wire.Information{
		Assigned: wire.Counts{Groups: 1, Subgroups: 1, Counters: 2},
		Groups:   []wire.Group{{ID: 0, Name: "G", Description: "gd"}},
		Subgroups: []wire.Subgroup{
			{ID: 0, Group: 0, Name: "S", Description: "sd"},
		},
		Counters: []wire.Counter{
			{ID: 0, Subgroup: 0, Unit: "u", Name: "c0", Description: "d0"},
			{ID: 1, Subgroup: 0, Unit: "u", Name: "c1", Description: "d1"},
		},
	}
}

func TestSize(t *testing.T) {
	// counts + group(4+2+3) + subgroup(8+2+3) + 2 counters(8+2+3+3)
	const want = 12 + 9 + 13 + 2*16
	if got := wire.Size(sample()); got != want {
		t.Errorf("Size = %d, want %d", got, want)
	}
}

func TestEncodeHeader(t *testing.T) {
	info := sample()
	buf := make([]byte, 256)
	n, err := wire.Encode(buf, info)
	if err != nil {
		t.Fatal(err)
	}
	if want := wire.HeaderSize + wire.Size(info); n != want {
		t.Errorf("Encode wrote %d bytes, want %d", n, want)
	}
	if got := binary.LittleEndian.Uint32(buf); int(got) != n {
		t.Errorf("header = %d, want %d", got, n)
	}
	for i, want := range []uint32{1, 1, 2} {
		if got := binary.LittleEndian.Uint32(buf[4+4*i:]); got != want {
			t.Errorf("count %d = %d, want %d", i, got, want)
		}
	}
	// The first group follows the counts: id, then "G\x00gd\x00".
	if got := string(buf[20:25]); got != "G\x00gd\x00" {
		t.Errorf("group strings = %q", got)
	}
}

func TestEncodeShortBuffer(t *testing.T) {
	info := sample()
	need := wire.HeaderSize + wire.Size(info)
	_, err := wire.Encode(make([]byte, need-1), info)
	if !errors.Is(err, wire.ErrShortBuffer) {
		t.Errorf("Encode into %d bytes: got %v, want ErrShortBuffer", need-1, err)
	}
}

func TestUnassignedSlots(t *testing.T) {
	// Unassigned slots encode as their id and empty strings.
	info := &wire.Information{
		Groups:    []wire.Group{{ID: 0}, {ID: 1}},
		Subgroups: []wire.Subgroup{{ID: 0}},
		Counters:  []wire.Counter{{ID: 0}},
	}
	if got, want := wire.Size(info), 12+2*(4+2)+(8+2)+(8+3); got != want {
		t.Errorf("Size = %d, want %d", got, want)
	}
	buf := wire.Append(nil, info)
	got, err := wire.DecodeCapacity(buf, 2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(info, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// randomInformation returns a complete layout with random capacities,
// parent links and strings.
func randomInformation(r *rand.Rand) *wire.Information {
	str := func() string {
		var b strings.Builder
		for n := 1 + r.IntN(40); n > 0; n-- {
			b.WriteByte(byte(' ' + r.IntN(95)))
		}
		return b.String()
	}
	g, s, c := 1+r.IntN(8), 1+r.IntN(16), 1+r.IntN(64)
	info := &wire.Information{
		Assigned:  wire.Counts{Groups: uint32(g), Subgroups: uint32(s), Counters: uint32(c)},
		Groups:    make([]wire.Group, g),
		Subgroups: make([]wire.Subgroup, s),
		Counters:  make([]wire.Counter, c),
	}
	for i := range info.Groups {
		info.Groups[i] = wire.Group{ID: uint32(i), Name: str(), Description: str()}
	}
	for i := range info.Subgroups {
		info.Subgroups[i] = wire.Subgroup{ID: uint32(i), Group: uint32(r.IntN(g)), Name: str(), Description: str()}
	}
	for i := range info.Counters {
		info.Counters[i] = wire.Counter{ID: uint32(i), Subgroup: uint32(r.IntN(s)), Unit: str(), Name: str(), Description: str()}
	}
	return info
}

func TestRoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		info := randomInformation(r)
		size := wire.HeaderSize + wire.Size(info)
		buf := make([]byte, size+7)
		n, err := wire.Encode(buf, info)
		if err != nil {
			t.Fatalf("layout %d: %v", i, err)
		}
		if n != size {
			t.Fatalf("layout %d: wrote %d bytes, computed %d", i, n, size)
		}
		got, err := wire.Decode(buf[:n])
		if err != nil {
			t.Fatalf("layout %d: %v", i, err)
		}
		if diff := cmp.Diff(info, got); diff != "" {
			t.Fatalf("layout %d: mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	good := wire.Append(nil, sample())
	withHeader := func(b []byte) []byte {
		b = append([]byte(nil), b...)
		binary.LittleEndian.PutUint32(b, uint32(len(b)))
		return b
	}
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"header only", good[:4]},
		{"length mismatch", append(append([]byte(nil), good...), 0)},
		{"truncated", withHeader(good[:len(good)-3])},
		{"trailing bytes", withHeader(append(append([]byte(nil), good...), 0, 0, 0, 0))},
		{"unterminated string", withHeader(good[:len(good)-1])},
		{"huge counts", func() []byte {
			b := append([]byte(nil), good...)
			binary.LittleEndian.PutUint32(b[12:], 1<<31)
			return b
		}()},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := wire.Decode(test.buf); !errors.Is(err, wire.ErrMalformed) {
				t.Errorf("Decode: got %v, want ErrMalformed", err)
			}
		})
	}
}

func TestStatistics(t *testing.T) {
	values := []uint32{0, 1, 1001, 1<<32 - 1}
	buf := wire.AppendStatistics(nil, values)
	if len(buf) != len(values)*wire.ValueSize {
		t.Fatalf("len = %d, want %d", len(buf), len(values)*wire.ValueSize)
	}
	if got := binary.NativeEndian.Uint32(buf[8:]); got != 1001 {
		t.Errorf("third value = %d, want 1001", got)
	}
	got, err := wire.DecodeStatistics(buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(values, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := wire.DecodeStatistics(buf[:5]); !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("DecodeStatistics of 5 bytes: got %v, want ErrMalformed", err)
	}
}

func ExampleSize() {
	info := &wire.Information{
		Assigned:  wire.Counts{Groups: 1, Subgroups: 1, Counters: 1},
		Groups:    []wire.Group{{Name: "g", Description: "g"}},
		Subgroups: []wire.Subgroup{{Name: "s", Description: "s"}},
		Counters:  []wire.Counter{{Unit: "u", Name: "c", Description: "c"}},
	}
	fmt.Println(wire.Size(info), wire.HeaderSize+wire.Size(info))
	// Output: 46 50
}
