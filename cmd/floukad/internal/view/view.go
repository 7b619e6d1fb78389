// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package view serves a web page showing the counters of a registry, and
// the same data as JSON.
package view

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"github.com/flouka/flouka/archive"
	"github.com/flouka/flouka/wire"
)

//go:embed templates/*.tmpl
var content embed.FS

// A Registry is the part of *flouka.Registry the viewer uses.
type Registry interface {
	Layout() (*wire.Information, error)
	Snapshot(dst []uint32) ([]uint32, error)
}

// A Handler serves the viewer pages.
type Handler struct {
	Title    string
	Registry Registry
	History  *archive.History // optional; gives the change per snapshot

	tmpl *template.Template
}

// New returns a handler for r.
func New(title string, r Registry, h *archive.History) (*Handler, error) {
	tmpl, err := template.ParseFS(content, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &Handler{Title: title, Registry: r, History: h, tmpl: tmpl}, nil
}

// Register installs the pages on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("/", handlerFunc(h.handleIndex))
	mux.Handle("/counters.json", handlerFunc(h.handleJSON))
}

type page struct {
	Title    string
	Counters int
	Latest   *archive.Snapshot
	Groups   []*group
}

type group struct {
	wire.Group
	Subgroups []*subgroup
}

type subgroup struct {
	wire.Subgroup
	Counters []*counter
}

type counter struct {
	wire.Counter
	Value uint32
	Delta uint32 `json:",omitempty"`
}

// build arranges the registry's counters as a tree, with their current
// values and their change over the last two snapshots.
func (h *Handler) build() (*page, error) {
	info, err := h.Registry.Layout()
	if err != nil {
		return nil, err
	}
	values, err := h.Registry.Snapshot(nil)
	if err != nil {
		return nil, err
	}
	var delta []uint32
	p := &page{Title: h.Title, Counters: len(info.Counters)}
	if h.History != nil {
		if all := h.History.All(); len(all) >= 2 {
			delta = all[len(all)-1].Delta(all[len(all)-2])
		}
		p.Latest = h.History.Latest()
	}

	groups := make([]*group, len(info.Groups))
	for i, g := range info.Groups {
		groups[i] = &group{Group: g}
	}
	subgroups := make([]*subgroup, len(info.Subgroups))
	for i, s := range info.Subgroups {
		subgroups[i] = &subgroup{Subgroup: s}
		g := groups[s.Group]
		g.Subgroups = append(g.Subgroups, subgroups[i])
	}
	for i, c := range info.Counters {
		ctr := &counter{Counter: c, Value: values[i]}
		if i < len(delta) {
			ctr.Delta = delta[i]
		}
		s := subgroups[c.Subgroup]
		s.Counters = append(s.Counters, ctr)
	}
	p.Groups = groups
	return p, nil
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) error {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return nil
	}
	p, err := h.build()
	if err != nil {
		return err
	}
	return renderTemplate(w, h.tmpl, "index.tmpl", p)
}

func (h *Handler) handleJSON(w http.ResponseWriter, r *http.Request) error {
	p, err := h.build()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(p.Groups, "", "\t")
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	return err
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (f handlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := f(w, r); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// renderTemplate executes a template response.
func renderTemplate(w http.ResponseWriter, tmpl *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, err := w.Write(buf.Bytes())
	return err
}

