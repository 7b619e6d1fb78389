// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package layout reads registry layouts from YAML files.
//
// A layout names every group, subgroup and counter of a registry. Nesting
// in the document gives the parent links, and explicit ids give the slots:
//
//	version: v1.0.0
//	groups:
//	  - id: 0
//	    name: Transmission
//	    description: Counters of the transmission path
//	    subgroups:
//	      - id: 0
//	        name: Connection 1
//	        description: Transmission on connection 1
//	        counters:
//	          - {id: 0, unit: Byte(s), name: "# Bytes transmitted", description: Bytes sent}
//
// Ids of each kind must be dense: a layout with counters 0 and 2 but not 1
// is rejected, since a registry cannot complete with a slot left over.
package layout

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/flouka/flouka"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// A Layout is a parsed layout document.
type Layout struct {
	Version string  `yaml:"version"`
	Groups  []Group `yaml:"groups"`
}

type Group struct {
	ID          uint32     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Subgroups   []Subgroup `yaml:"subgroups"`

	Line int `yaml:"-"` // line of the entry in the document
}

type Subgroup struct {
	ID          uint32    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Counters    []Counter `yaml:"counters"`

	Line int `yaml:"-"`
}

type Counter struct {
	ID          uint32 `yaml:"id"`
	Unit        string `yaml:"unit"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Line int `yaml:"-"`
}

func (g *Group) UnmarshalYAML(n *yaml.Node) error {
	type plain Group
	if err := n.Decode((*plain)(g)); err != nil {
		return err
	}
	g.Line = n.Line
	return nil
}

func (s *Subgroup) UnmarshalYAML(n *yaml.Node) error {
	type plain Subgroup
	if err := n.Decode((*plain)(s)); err != nil {
		return err
	}
	s.Line = n.Line
	return nil
}

func (c *Counter) UnmarshalYAML(n *yaml.Node) error {
	type plain Counter
	if err := n.Decode((*plain)(c)); err != nil {
		return err
	}
	c.Line = n.Line
	return nil
}

// ErrInvalid is wrapped by every validation error of Parse.
var ErrInvalid = errors.New("invalid layout")

// A LineError is a validation error tied to a line of the document.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *LineError) Unwrap() error { return e.Err }

func lineErrorf(line int, format string, args ...any) error {
	return &LineError{Line: line, Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)}
}

// Parse parses and validates a layout document.
func Parse(data []byte) (*Layout, error) {
	var l Layout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	if err := l.validate(); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return &l, nil
}

// Load reads and parses the layout file name.
func Load(name string) (*Layout, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return l, nil
}

//go:embed demo.yaml
var demoYAML []byte

// Demo returns the transmission/reception demo layout:
// two groups, three subgroups and five counters.
func Demo() *Layout {
	l, err := Parse(demoYAML)
	if err != nil {
		panic(err) // the embedded file is tested
	}
	return l
}

// Demo counter ids.
const (
	TxBytes1 uint32 = iota
	TxFailures1
	TxBytes2
	TxFailures2
	RxBytes1
)

func (l *Layout) validate() error {
	if !semver.IsValid(l.Version) {
		return fmt.Errorf("%w: version %q is not a semantic version", ErrInvalid, l.Version)
	}
	if semver.Major(l.Version) != "v1" {
		return fmt.Errorf("%w: unsupported version %s", ErrInvalid, l.Version)
	}
	if len(l.Groups) == 0 {
		return fmt.Errorf("%w: no groups", ErrInvalid)
	}
	groups, subgroups, counters := newIDSet("group"), newIDSet("subgroup"), newIDSet("counter")
	for _, g := range l.Groups {
		if err := groups.add(g.ID, g.Line); err != nil {
			return err
		}
		if err := checkStrings(g.Line, g.Name, g.Description); err != nil {
			return err
		}
		if len(g.Subgroups) == 0 {
			return lineErrorf(g.Line, "group %d has no subgroups", g.ID)
		}
		for _, s := range g.Subgroups {
			if err := subgroups.add(s.ID, s.Line); err != nil {
				return err
			}
			if err := checkStrings(s.Line, s.Name, s.Description); err != nil {
				return err
			}
			if len(s.Counters) == 0 {
				return lineErrorf(s.Line, "subgroup %d has no counters", s.ID)
			}
			for _, c := range s.Counters {
				if err := counters.add(c.ID, c.Line); err != nil {
					return err
				}
				if err := checkStrings(c.Line, c.Unit, c.Name, c.Description); err != nil {
					return err
				}
			}
		}
	}
	for _, set := range []*idSet{groups, subgroups, counters} {
		if err := set.dense(); err != nil {
			return err
		}
	}
	return nil
}

func checkStrings(line int, ss ...string) error {
	for _, s := range ss {
		if s == "" {
			return lineErrorf(line, "missing name, unit or description")
		}
		if strings.IndexByte(s, 0) >= 0 {
			return lineErrorf(line, "NUL byte in %q", s)
		}
	}
	return nil
}

// idSet records the ids of one kind and where they were defined.
type idSet struct {
	kind  string
	lines map[uint32]int
	max   uint32
}

func newIDSet(kind string) *idSet {
	return &idSet{kind: kind, lines: make(map[uint32]int)}
}

func (s *idSet) add(id uint32, line int) error {
	if prev, ok := s.lines[id]; ok {
		return lineErrorf(line, "%s %d already defined on line %d", s.kind, id, prev)
	}
	s.lines[id] = line
	s.max = max(s.max, id)
	return nil
}

func (s *idSet) dense() error {
	if n := uint64(s.max) + 1; n != uint64(len(s.lines)) {
		for id := uint32(0); id < s.max; id++ {
			if _, ok := s.lines[id]; !ok {
				return fmt.Errorf("%w: %s %d is missing (highest id is %d)", ErrInvalid, s.kind, id, s.max)
			}
		}
	}
	return nil
}

// Capacities returns the number of groups, subgroups and counters in l.
func (l *Layout) Capacities() (groups, subgroups, counters int) {
	for _, g := range l.Groups {
		groups++
		for _, s := range g.Subgroups {
			subgroups++
			counters += len(s.Counters)
		}
	}
	return groups, subgroups, counters
}

// Apply assigns every group, subgroup and counter of l in r, parents
// first. r must have the capacities of l and nothing assigned yet.
func (l *Layout) Apply(r *flouka.Registry) error {
	for _, g := range l.Groups {
		if err := r.AssignGroup(g.ID, g.Name, g.Description); err != nil {
			return fmt.Errorf("layout line %d: %w", g.Line, err)
		}
		for _, s := range g.Subgroups {
			if err := r.AssignSubgroup(s.ID, g.ID, s.Name, s.Description); err != nil {
				return fmt.Errorf("layout line %d: %w", s.Line, err)
			}
			for _, c := range s.Counters {
				if err := r.AssignCounter(c.ID, s.ID, c.Unit, c.Name, c.Description); err != nil {
					return fmt.Errorf("layout line %d: %w", c.Line, err)
				}
			}
		}
	}
	return nil
}

// New creates a registry with the capacities of l and applies l to it.
// The capacities in cfg are ignored; its other fields are used as given.
// The returned registry is complete.
func (l *Layout) New(cfg flouka.Config) (*flouka.Registry, error) {
	cfg.Groups, cfg.Subgroups, cfg.Counters = l.Capacities()
	r, err := flouka.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := l.Apply(r); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}
