// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the settings of the flouka commands. Settings come
// from the environment first, and command-line flags override them.
package config

import (
	"flag"
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Addr is the address of the statistics service.
	Addr string

	// MetricsAddr is the address of the HTTP metrics endpoint.
	// Empty disables it.
	MetricsAddr string

	// Layout is a layout file. Empty selects the demo layout.
	Layout string

	// StatsDir is a directory for memory-mapped registry buffers.
	// Empty keeps the buffers on the heap.
	StatsDir string

	// ArchiveDir is the directory of the filesystem snapshot bucket.
	ArchiveDir string

	// ArchiveBucket is the bucket that receives snapshots. Empty disables
	// archiving.
	ArchiveBucket string

	// ProjectID is a GCP project ID, used to create a missing GCS bucket.
	ProjectID string

	// SnapshotInterval is the period of the snapshot recorder.
	SnapshotInterval time.Duration

	// History is the number of snapshots kept in memory.
	History int64

	// MaxConns limits concurrent service connections; 0 means no limit.
	MaxConns int64

	// LogFormat is one of text, json or gcp.
	LogFormat string

	// LogLevel is the minimum level logged, such as info or debug.
	LogLevel string

	// UseGCS is true if snapshots go to Cloud Storage instead of
	// ArchiveDir.
	UseGCS bool

	// Advertise is true if the service is announced over mDNS.
	Advertise bool

	// Simulate is true if the daemon updates the demo counters on every
	// statistics request, as a stand-in for real traffic.
	Simulate bool
}

// NewConfig returns the configuration given by the environment.
func NewConfig() *Config {
	return &Config{
		Addr:             env("FLOUKA_ADDR", ":4444"),
		MetricsAddr:      env("FLOUKA_METRICS_ADDR", ""),
		Layout:           env("FLOUKA_LAYOUT", ""),
		StatsDir:         env("FLOUKA_STATS_DIR", ""),
		ArchiveDir:       env("FLOUKA_ARCHIVE_DIR", ".localstorage"),
		ArchiveBucket:    env("FLOUKA_ARCHIVE_BUCKET", ""),
		ProjectID:        env("FLOUKA_PROJECT_ID", ""),
		SnapshotInterval: env("FLOUKA_SNAPSHOT_INTERVAL", 10*time.Second),
		History:          env("FLOUKA_HISTORY", int64(360)),
		MaxConns:         env("FLOUKA_MAX_CONNS", int64(0)),
		LogFormat:        env("FLOUKA_LOG_FORMAT", "text"),
		LogLevel:         env("FLOUKA_LOG_LEVEL", "info"),
		UseGCS:           env("FLOUKA_GCS", false),
		Advertise:        env("FLOUKA_ADVERTISE", false),
		Simulate:         env("FLOUKA_SIMULATE", false),
	}
}

// RegisterFlags defines a flag for every setting of c on fs, with the
// current value as its default.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "address of the statistics service")
	fs.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "address of the HTTP metrics endpoint (empty to disable)")
	fs.StringVar(&c.Layout, "layout", c.Layout, "layout file (empty for the demo layout)")
	fs.StringVar(&c.StatsDir, "mmap", c.StatsDir, "directory for memory-mapped registry buffers")
	fs.StringVar(&c.ArchiveDir, "archive-dir", c.ArchiveDir, "directory of the local snapshot bucket")
	fs.StringVar(&c.ArchiveBucket, "archive", c.ArchiveBucket, "bucket receiving snapshots (empty to disable)")
	fs.StringVar(&c.ProjectID, "project", c.ProjectID, "GCP project of the snapshot bucket")
	fs.DurationVar(&c.SnapshotInterval, "interval", c.SnapshotInterval, "snapshot interval")
	fs.Int64Var(&c.History, "history", c.History, "number of snapshots kept in memory")
	fs.Int64Var(&c.MaxConns, "max-conns", c.MaxConns, "maximum concurrent connections (0 for no limit)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text, json or gcp")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "minimum log level")
	fs.BoolVar(&c.UseGCS, "gcs", c.UseGCS, "archive snapshots to Cloud Storage")
	fs.BoolVar(&c.Advertise, "advertise", c.Advertise, "announce the service over mDNS")
	fs.BoolVar(&c.Simulate, "simulate", c.Simulate, "update the demo counters on every statistics request")
}

// env reads a value from the os environment and returns a fallback
// when it is unset.
func env[T string | int64 | bool | time.Duration](key string, fallback T) T {
	s, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var (
		v   any
		err error
	)
	switch any(fallback).(type) {
	case string:
		v = s
	case int64:
		v, err = strconv.ParseInt(s, 10, 64)
	case bool:
		v, err = strconv.ParseBool(s)
	case time.Duration:
		v, err = time.ParseDuration(s)
	}
	if err != nil {
		log.Fatalf("bad value %q for %s: %v", s, key, err)
	}
	return v.(T)
}
