// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Floukad serves a statistics registry over TCP.
//
// The registry is built from a layout file, or from the built-in demo
// layout. Besides the statistics service, floukad can serve Prometheus
// metrics and a web page of the counters, archive periodic snapshots to a
// local directory or a Cloud Storage bucket, and announce itself over mDNS.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"github.com/flouka/flouka"
	"github.com/flouka/flouka/archive"
	"github.com/flouka/flouka/archive/storage"
	"github.com/flouka/flouka/cmd/floukad/internal/view"
	"github.com/flouka/flouka/discovery"
	"github.com/flouka/flouka/internal/config"
	flog "github.com/flouka/flouka/internal/log"
	"github.com/flouka/flouka/internal/middleware"
	"github.com/flouka/flouka/layout"
	"github.com/flouka/flouka/memory"
	"github.com/flouka/flouka/promexport"
	"github.com/flouka/flouka/server"
	"github.com/flouka/flouka/wire"
)

func main() {
	log.SetFlags(0)
	cfg := config.NewConfig()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		if err := run(cfg); err != nil {
			log.Fatal(err)
		}
		return
	}
	switch cmd := args[0]; cmd {
	case "layout":
		if err := checkLayout(os.Stdout, args[1:]); err != nil {
			log.Fatal(err)
		}
	case "help":
		flag.CommandLine.SetOutput(os.Stdout)
		flag.Usage()
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "\tfloukad [flags] (serves the registry)")
	fmt.Fprintln(w, "\tfloukad layout [file] (checks a layout file, or the demo layout)")
	fmt.Fprintln(w, "\tfloukad help")
	fmt.Fprintln(w, "Flags:")
	flag.CommandLine.PrintDefaults()
}

// checkLayout validates a layout and prints what a registry built from it
// would need.
func checkLayout(w io.Writer, args []string) error {
	var l *layout.Layout
	switch len(args) {
	case 0:
		l = layout.Demo()
	case 1:
		var err error
		if l, err = layout.Load(args[0]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("layout: expected at most one file, got %d", len(args))
	}
	r, err := l.New(flouka.Config{Locker: flouka.NopLocker{}})
	if err != nil {
		return err
	}
	defer r.Destroy()
	size, err := r.InformationSize()
	if err != nil {
		return err
	}
	g, s, c := l.Capacities()
	fmt.Fprintf(w, "version:     %s\n", l.Version)
	fmt.Fprintf(w, "groups:      %d\n", g)
	fmt.Fprintf(w, "subgroups:   %d\n", s)
	fmt.Fprintf(w, "counters:    %d\n", c)
	fmt.Fprintf(w, "information: %d bytes (+%d header)\n", size, wire.HeaderSize)
	fmt.Fprintf(w, "statistics:  %d bytes\n", wire.ValueSize*c)
	return nil
}

func run(cfg *config.Config) error {
	level, err := flog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, err := flog.New(os.Stderr, cfg.LogFormat, level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	l := layout.Demo()
	if cfg.Layout != "" {
		if l, err = layout.Load(cfg.Layout); err != nil {
			return err
		}
	}
	if cfg.Simulate && cfg.Layout != "" {
		return errors.New("-simulate needs the demo layout")
	}

	var alloc flouka.Allocator
	if cfg.StatsDir != "" {
		if err := os.MkdirAll(cfg.StatsDir, 0o755); err != nil {
			return err
		}
		alloc = &memory.Mapped{Dir: cfg.StatsDir}
	}
	reg, err := l.New(flouka.Config{Allocator: alloc})
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Destroy(); err != nil {
			logger.Error("destroying registry", "err", err)
		}
	}()
	// Build the information buffer now, so that the mapped files are
	// complete before the first client looks.
	if _, err := reg.Information(); err != nil {
		return err
	}
	if cfg.StatsDir != "" {
		logger.Info("registry mapped",
			"statistics", memory.StatisticsFile(cfg.StatsDir),
			"information", memory.InformationFile(cfg.StatsDir))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &server.Server{
		Registry: reg,
		Logger:   logger,
		MaxConns: int(cfg.MaxConns),
	}
	if cfg.Simulate {
		srv.OnStatistics = simulate(reg, logger)
	}

	hist := archive.NewHistory(int(cfg.History))
	rec := &archive.Recorder{
		Source:   reg,
		History:  hist,
		Interval: cfg.SnapshotInterval,
		Logger:   logger,
	}
	if cfg.ArchiveBucket != "" {
		b, err := storage.NewBucket(ctx, cfg.UseGCS, cfg.ProjectID, cfg.ArchiveDir, cfg.ArchiveBucket)
		if err != nil {
			return err
		}
		rec.Bucket = b
		logger.Info("archiving snapshots", "bucket", b.URI())
	}
	var hs *http.Server
	if cfg.MetricsAddr != "" {
		h, err := metricsHandler(reg, hist, logger)
		if err != nil {
			return err
		}
		hs = &http.Server{Addr: cfg.MetricsAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	}

	// Nothing may fail between here and g.Wait: the goroutines read the
	// registry, which is destroyed when run returns.
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Addr)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx, ln) })
	g.Go(func() error { return rec.Run(ctx) })
	if hs != nil {
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(sctx)
		})
	}
	if cfg.Advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		instance := "flouka-" + uuid.NewString()[:8]
		txt := map[string]string{
			"id":       instance,
			"counters": strconv.Itoa(len(mustSnapshot(reg))),
			"layout":   l.Version,
		}
		stopAdvertising, err := discovery.Advertise(ctx, instance, port, txt)
		if err != nil {
			logger.Warn("mDNS announcement failed", "err", err)
		} else {
			defer stopAdvertising()
			logger.Info("announced", "instance", instance, "type", discovery.ServiceType, "port", port)
		}
	}
	err = g.Wait()
	logger.Info("stopped")
	return err
}

func metricsHandler(reg *flouka.Registry, hist *archive.History, logger *slog.Logger) (http.Handler, error) {
	col, err := promexport.New(reg, "flouka")
	if err != nil {
		return nil, err
	}
	pr := prometheus.NewRegistry()
	pr.MustRegister(col,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	v, err := view.New("flouka registry", reg, hist)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(pr, promhttp.HandlerOpts{}))
	v.Register(mux)
	return middleware.Default(logger)(mux), nil
}

func mustSnapshot(reg *flouka.Registry) []uint32 {
	v, err := reg.Snapshot(nil)
	if err != nil {
		panic(err) // the registry was built complete
	}
	return v
}

// simulate returns a hook that moves the demo counters the way a
// transmitting peer would: every statistics request counts one failed
// transmission and a thousand bytes sent on connection 1.
func simulate(reg *flouka.Registry, logger *slog.Logger) func() {
	return func() {
		if err := reg.Increment(layout.TxFailures1); err != nil {
			logger.Debug("simulation", "err", err)
		}
		if err := reg.Increase(layout.TxBytes1, 1000); err != nil {
			logger.Debug("simulation", "err", err)
		}
	}
}
