// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package promexport exposes the counters of a registry as Prometheus
// gauges.
//
// Counter values may go down (Decrement, Reset, Set), so they are gauges,
// not Prometheus counters. The metric of counter c in subgroup s of group
// g is named namespace_g_s_c, from the sanitized names.
package promexport

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/flouka/flouka/wire"
	"github.com/prometheus/client_golang/prometheus"
)

// A Registry is the part of *flouka.Registry the collector uses.
type Registry interface {
	Layout() (*wire.Information, error)
	Snapshot(dst []uint32) ([]uint32, error)
}

// A Collector is a prometheus.Collector over a registry.
type Collector struct {
	reg   Registry
	descs []*prometheus.Desc // by counter id
	up    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// New returns a collector for r, which must be complete.
func New(r Registry, namespace string) (*Collector, error) {
	info, err := r.Layout()
	if err != nil {
		return nil, err
	}
	c := &Collector{
		reg: r,
		up: prometheus.NewDesc(prometheus.BuildFQName(sanitize(namespace), "", "up"),
			"Whether the registry could be read.", nil, nil),
	}
	seen := make(map[string]bool)
	for _, ctr := range info.Counters {
		sg := info.Subgroups[ctr.Subgroup]
		g := info.Groups[sg.Group]
		name := prometheus.BuildFQName(sanitize(namespace), sanitize(g.Name), sanitize(sg.Name)+"_"+sanitize(ctr.Name))
		// The suffixed name may itself be taken, by a counter whose name
		// ends in a number.
		for seen[name] {
			name += "_" + strconv.FormatUint(uint64(ctr.ID), 10)
		}
		seen[name] = true
		c.descs = append(c.descs, prometheus.NewDesc(name, ctr.Description, nil, prometheus.Labels{
			"unit":    ctr.Unit,
			"counter": strconv.FormatUint(uint64(ctr.ID), 10),
		}))
	}
	return c, nil
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	for _, d := range c.descs {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	values, err := c.reg.Snapshot(nil)
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	for i, d := range c.descs {
		if i < len(values) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(values[i]))
		}
	}
}

// sanitize turns s into a metric name component: lower case ASCII letters,
// digits and single underscores.
func sanitize(s string) string {
	var b strings.Builder
	under := true // drop leading underscores
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			under = false
		} else if !under {
			b.WriteByte('_')
			under = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
