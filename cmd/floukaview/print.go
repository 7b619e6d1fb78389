// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/flouka/flouka/archive"
	"github.com/flouka/flouka/wire"
)

// numbers groups digits, so that large byte counts stay readable.
var numbers = message.NewPrinter(language.English)

// printTree prints the hierarchy of info. If values is not nil, each
// counter is followed by its value.
func printTree(w io.Writer, info *wire.Information, values []uint32) {
	for _, g := range info.Groups {
		fmt.Fprintf(w, "%s\n", g.Name)
		for _, s := range info.Subgroups {
			if s.Group != g.ID {
				continue
			}
			fmt.Fprintf(w, "  %s\n", s.Name)
			for _, c := range info.Counters {
				if c.Subgroup != s.ID {
					continue
				}
				if values == nil || int(c.ID) >= len(values) {
					fmt.Fprintf(w, "    [%d] %s (%s)\n", c.ID, c.Name, c.Unit)
					continue
				}
				fmt.Fprint(w, "  ")
				printCounter(w, c, values[c.ID])
			}
		}
	}
}

func printCounter(w io.Writer, c wire.Counter, v uint32) {
	numbers.Fprintf(w, "  [%d] %-28s %15d %s\n", c.ID, c.Name, v, c.Unit)
}

// printChanges prints the counters whose value differs between prev and
// values.
func printChanges(w io.Writer, t time.Time, info *wire.Information, prev, values []uint32) {
	for i, v := range values {
		if i >= len(prev) || v == prev[i] {
			continue
		}
		c := info.Counters[i]
		numbers.Fprintf(w, "%s [%d] %s: %d (%+d %s)\n",
			t.Format(time.TimeOnly), c.ID, c.Name, v, int64(v)-int64(prev[i]), c.Unit)
	}
}

func printSnapshot(w io.Writer, s, prev *archive.Snapshot) {
	fmt.Fprintf(w, "-- snapshot %d at %s --\n", s.Seq, s.Time.Format(time.RFC3339))
	var delta []uint32
	if prev != nil {
		delta = s.Delta(prev)
	}
	for i, v := range s.Values {
		if i < len(delta) && delta[i] != 0 {
			numbers.Fprintf(w, "  [%d] %d (+%d)\n", i, v, delta[i])
			continue
		}
		numbers.Fprintf(w, "  [%d] %d\n", i, v)
	}
}
