// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Floukaview inspects statistics registries: live ones served by floukad,
// memory-mapped ones on the local disk, and archived snapshots.
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/flouka/flouka/archive"
	"github.com/flouka/flouka/archive/storage"
	"github.com/flouka/flouka/discovery"
	"github.com/flouka/flouka/memory"
	"github.com/flouka/flouka/server"
	"github.com/flouka/flouka/wire"
)

var (
	addr       = flag.String("addr", "localhost:4444", "address of the statistics service")
	timeout    = flag.Duration("timeout", 5*time.Second, "timeout of each request, or of discovery")
	interval   = flag.Duration("interval", time.Second, "polling interval of watch")
	archiveDir = flag.String("archive-dir", ".localstorage", "directory of the local snapshot bucket")
	bucket     = flag.String("archive", "snapshots", "snapshot bucket read by dump")
	useGCS     = flag.Bool("gcs", false, "read snapshots from Cloud Storage")
	project    = flag.String("project", "", "GCP project of the snapshot bucket")
)

func main() {
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	var err error
	switch cmd := args[0]; cmd {
	case "info":
		err = withClient(ctx, func(c *server.Client, info *wire.Information) error {
			printTree(os.Stdout, info, nil)
			return nil
		})
	case "stats":
		err = withClient(ctx, func(c *server.Client, info *wire.Information) error {
			values, err := request(ctx, c.Statistics)
			if err != nil {
				return err
			}
			printTree(os.Stdout, info, values)
			return nil
		})
	case "watch":
		err = withClient(ctx, func(c *server.Client, info *wire.Information) error {
			return watch(ctx, os.Stdout, c, info)
		})
	case "shell":
		err = withClient(ctx, func(c *server.Client, info *wire.Information) error {
			return shell(ctx, c, info)
		})
	case "file":
		if len(args) != 2 {
			err = errors.New("file: expected one directory")
			break
		}
		err = showFile(os.Stdout, args[1])
	case "dump":
		err = dump(ctx, os.Stdout)
	case "discover":
		err = discover(ctx, os.Stdout)
	case "help":
		flag.CommandLine.SetOutput(os.Stdout)
		flag.Usage()
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "\tfloukaview info (prints the counter hierarchy)")
	fmt.Fprintln(w, "\tfloukaview stats (prints the hierarchy with current values)")
	fmt.Fprintln(w, "\tfloukaview watch (prints counter changes as they happen)")
	fmt.Fprintln(w, "\tfloukaview shell (interactive session)")
	fmt.Fprintln(w, "\tfloukaview file <dir> (reads a memory-mapped registry)")
	fmt.Fprintln(w, "\tfloukaview dump (prints archived snapshots)")
	fmt.Fprintln(w, "\tfloukaview discover (lists services announced over mDNS)")
	fmt.Fprintln(w, "\tfloukaview help")
	fmt.Fprintln(w, "Flags:")
	flag.CommandLine.PrintDefaults()
}

// request calls f with a context bounded by -timeout.
func request[T any](ctx context.Context, f func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	return f(ctx)
}

// withClient opens a session with the service at -addr, fetches its
// information and calls f.
func withClient(ctx context.Context, f func(*server.Client, *wire.Information) error) error {
	dctx, cancel := context.WithTimeout(ctx, *timeout)
	c, err := server.Dial(dctx, *addr)
	cancel()
	if err != nil {
		return err
	}
	defer c.Close()
	info, err := request(ctx, c.Information)
	if err != nil {
		return err
	}
	return f(c, info)
}

// watch polls the service every -interval and prints the counters that
// changed since the previous poll.
func watch(ctx context.Context, w io.Writer, c *server.Client, info *wire.Information) error {
	prev, err := request(ctx, c.Statistics)
	if err != nil {
		return err
	}
	printTree(w, info, prev)
	t := time.NewTicker(*interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			values, err := request(ctx, c.Statistics)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			printChanges(w, now, info, prev, values)
			prev = values
		}
	}
}

func showFile(w io.Writer, dir string) error {
	ibuf, closeInfo, err := memory.Open(memory.InformationFile(dir))
	if err != nil {
		return err
	}
	defer closeInfo()
	if len(ibuf) < wire.HeaderSize {
		return fmt.Errorf("%s: %w", memory.InformationFile(dir), wire.ErrMalformed)
	}
	// The mapping may be longer than the information it holds.
	if n := binary.LittleEndian.Uint32(ibuf); int64(n) <= int64(len(ibuf)) {
		ibuf = ibuf[:n]
	}
	info, err := wire.Decode(ibuf)
	if err != nil {
		return fmt.Errorf("%s: %w", memory.InformationFile(dir), err)
	}

	sbuf, closeStats, err := memory.Open(memory.StatisticsFile(dir))
	if err != nil {
		return err
	}
	defer closeStats()
	n := len(info.Counters) * wire.ValueSize
	if len(sbuf) < n {
		return fmt.Errorf("%s: %d bytes, want %d", memory.StatisticsFile(dir), len(sbuf), n)
	}
	values, err := wire.DecodeStatistics(sbuf[:n])
	if err != nil {
		return err
	}
	printTree(w, info, values)
	return nil
}

func dump(ctx context.Context, w io.Writer) error {
	b, err := storage.NewBucket(ctx, *useGCS, *project, *archiveDir, *bucket)
	if err != nil {
		return err
	}
	snaps, err := archive.Load(ctx, b)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d snapshots in %s\n", len(snaps), b.URI())
	var prev *archive.Snapshot
	for _, s := range snaps {
		printSnapshot(w, s, prev)
		prev = s
	}
	return nil
}

func discover(ctx context.Context, w io.Writer) error {
	services, err := discovery.Browse(ctx, *timeout)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		fmt.Fprintln(w, "no services found")
		return nil
	}
	for _, s := range services {
		fmt.Fprintf(w, "%s\t%s\tcounters=%s layout=%s\n", s.Instance, s.Addr(), s.TXT["counters"], s.TXT["layout"])
	}
	return nil
}

// shell runs an interactive session on c.
func shell(ctx context.Context, c *server.Client, info *wire.Information) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "flouka> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("info"),
			readline.PcItem("stats"),
			readline.PcItem("get"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return fmt.Errorf("creating readline: %w", err)
	}
	defer rl.Close()
	out := rl.Stdout()
	fmt.Fprintf(out, "connected to %s: %d counters\n", *addr, len(info.Counters))

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "info":
			printTree(out, info, nil)
		case "stats":
			values, err := request(ctx, c.Statistics)
			if err != nil {
				return err
			}
			printTree(out, info, values)
		case "get":
			values, err := request(ctx, c.Statistics)
			if err != nil {
				return err
			}
			for _, arg := range fields[1:] {
				id, err := strconv.ParseUint(arg, 10, 32)
				if err != nil || id >= uint64(len(values)) {
					fmt.Fprintf(out, "%s: no such counter\n", arg)
					continue
				}
				printCounter(out, info.Counters[id], values[id])
			}
		case "help":
			fmt.Fprintln(out, "commands: info, stats, get <id>..., quit")
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q (type help)\n", fields[0])
		}
	}
	return nil
}
