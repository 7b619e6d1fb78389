// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package archive

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/flouka/flouka/archive/storage"
	"golang.org/x/exp/slog"
)

// A Source provides counter values. *flouka.Registry implements it.
type Source interface {
	Snapshot(dst []uint32) ([]uint32, error)
}

// A Recorder takes snapshots of Source.
type Recorder struct {
	Source   Source
	History  *History             // if nil, snapshots are not kept
	Bucket   storage.BucketHandle // if nil, snapshots are not written
	Interval time.Duration
	Logger   *slog.Logger

	seq atomic.Uint64
	now func() time.Time // for tests
}

// Record takes one snapshot, adds it to the history and writes it to the
// bucket.
func (r *Recorder) Record(ctx context.Context) (*Snapshot, error) {
	values, err := r.Source.Snapshot(nil)
	if err != nil {
		return nil, err
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	s := &Snapshot{Seq: r.seq.Add(1) - 1, Time: now().UTC(), Values: values}
	if r.History != nil {
		r.History.Add(s)
	}
	if r.Bucket != nil {
		if err := r.write(ctx, s); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (r *Recorder) write(ctx context.Context, s *Snapshot) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	name := ObjectName(s.Seq)
	w, err := r.Bucket.Object(name).NewWriter(ctx)
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Run records a snapshot every Interval until ctx is done. Failed
// snapshots are logged and do not stop the recorder.
func (r *Recorder) Run(ctx context.Context) error {
	if r.Interval <= 0 {
		return fmt.Errorf("archive: invalid interval %v", r.Interval)
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s, err := r.Record(ctx)
			if err != nil {
				logger.Warn("snapshot failed", "err", err)
				continue
			}
			logger.Debug("snapshot", "seq", s.Seq, "counters", len(s.Values))
		}
	}
}

// Load reads every archived snapshot from b, in sequence order.
func Load(ctx context.Context, b storage.BucketHandle) ([]*Snapshot, error) {
	var snaps []*Snapshot
	it := b.Objects(ctx, "snapshots/")
	for {
		name, err := it.Next()
		if errors.Is(err, storage.ErrObjectIteratorDone) {
			return snaps, nil
		}
		if err != nil {
			return nil, err
		}
		s, err := readSnapshot(ctx, b, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		snaps = append(snaps, s)
	}
}

func readSnapshot(ctx context.Context, b storage.BucketHandle, name string) (*Snapshot, error) {
	rd, err := b.Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	dec := decMode.NewDecoder(rd)
	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
