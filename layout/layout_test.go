// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flouka/flouka"
	"github.com/flouka/flouka/layout"
	"github.com/flouka/flouka/wire"
	"github.com/google/go-cmp/cmp"
)

func TestDemo(t *testing.T) {
	l := layout.Demo()
	g, s, c := l.Capacities()
	if g != 2 || s != 3 || c != 5 {
		t.Errorf("Capacities() = (%d, %d, %d), want (2, 3, 5)", g, s, c)
	}
	r, err := l.New(flouka.Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()
	if !r.Complete() {
		t.Fatal("demo registry is not complete")
	}
	info, err := r.Layout()
	if err != nil {
		t.Fatal(err)
	}
	var parents []uint32
	for _, c := range info.Counters {
		parents = append(parents, c.Subgroup)
	}
	if diff := cmp.Diff([]uint32{0, 0, 1, 1, 2}, parents); diff != "" {
		t.Errorf("counter parents mismatch (-want +got):\n%s", diff)
	}
	want := wire.Counter{
		ID:          layout.TxFailures1,
		Subgroup:    0,
		Unit:        "TX Failure(s)",
		Name:        "# Transmission failure",
		Description: "This counter represents the number of transmission failure",
	}
	if diff := cmp.Diff(want, info.Counters[layout.TxFailures1]); diff != "" {
		t.Errorf("counter %d mismatch (-want +got):\n%s", layout.TxFailures1, diff)
	}
	if got := info.Subgroups[2].Group; got != 1 {
		t.Errorf("subgroup 2 belongs to group %d, want 1", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		line int // 0 if the error is not tied to a line
	}{
		{"bad version", "version: one\ngroups: []\n", 0},
		{"v2", "version: v2.0.0\ngroups: []\n", 0},
		{"no groups", "version: v1.0.0\n", 0},
		{"empty group", `version: v1.0.0
groups:
  - id: 0
    name: g
    description: d
`, 3},
		{"duplicate subgroup", `version: v1.0.0
groups:
  - id: 0
    name: g
    description: d
    subgroups:
      - {id: 0, name: s, description: d, counters: [{id: 0, unit: u, name: c, description: d}]}
      - {id: 0, name: s, description: d, counters: [{id: 1, unit: u, name: c, description: d}]}
`, 8},
		{"missing unit", `version: v1.0.0
groups:
  - id: 0
    name: g
    description: d
    subgroups:
      - id: 0
        name: s
        description: d
        counters:
          - {id: 0, name: c, description: d}
`, 11},
		{"sparse counters", `version: v1.0.0
groups:
  - id: 0
    name: g
    description: d
    subgroups:
      - {id: 0, name: s, description: d, counters: [{id: 0, unit: u, name: c, description: d}, {id: 2, unit: u, name: c, description: d}]}
`, 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := layout.Parse([]byte(test.doc))
			if !errors.Is(err, layout.ErrInvalid) {
				t.Fatalf("Parse: got %v, want ErrInvalid", err)
			}
			var le *layout.LineError
			switch {
			case test.line == 0 && errors.As(err, &le):
				t.Errorf("got error on line %d, want no line", le.Line)
			case test.line != 0 && !errors.As(err, &le):
				t.Errorf("got %v, want an error on line %d", err, test.line)
			case test.line != 0 && le.Line != test.line:
				t.Errorf("got error on line %d, want line %d", le.Line, test.line)
			}
		})
	}
}

func TestParseSyntax(t *testing.T) {
	if _, err := layout.Parse([]byte("version: v1.0.0\ngroups: [\n")); err == nil {
		t.Error("Parse of broken YAML succeeded")
	}
	if _, err := layout.Parse([]byte("version: v1.0.0\ncolour: red\n")); err == nil || !strings.Contains(err.Error(), "colour") {
		t.Errorf("Parse with an unknown field: got %v", err)
	}
}

func TestLoad(t *testing.T) {
	name := filepath.Join(t.TempDir(), "layout.yaml")
	doc := `version: v1.2.3
groups:
  - id: 0
    name: g
    description: d
    subgroups:
      - id: 0
        name: s
        description: d
        counters:
          - {id: 1, unit: u, name: second, description: d}
          - {id: 0, unit: u, name: first, description: d}
`
	if err := os.WriteFile(name, []byte(doc), 0o666); err != nil {
		t.Fatal(err)
	}
	l, err := layout.Load(name)
	if err != nil {
		t.Fatal(err)
	}
	r, err := l.New(flouka.Config{Locker: flouka.NopLocker{}})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()
	info, err := r.Layout()
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Counters[0].Name; got != "first" {
		t.Errorf("counter 0 is %q, want %q", got, "first")
	}
}

func TestApplyMismatch(t *testing.T) {
	r, err := flouka.New(flouka.Config{Groups: 1, Subgroups: 1, Counters: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()
	if err := layout.Demo().Apply(r); !errors.Is(err, flouka.ErrOutOfRange) && !errors.Is(err, flouka.ErrCapacity) {
		t.Errorf("applying the demo to a smaller registry: got %v", err)
	}
}
