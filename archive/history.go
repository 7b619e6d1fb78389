// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package archive

import (
	"sync"

	"github.com/eapache/queue"
)

// A History holds the most recent snapshots, oldest first. It is safe for
// concurrent use.
type History struct {
	mu  sync.Mutex
	max int
	q   *queue.Queue
}

// NewHistory returns a history holding at most n snapshots.
func NewHistory(n int) *History {
	return &History{max: max(n, 1), q: queue.New()}
}

// Add appends s, dropping the oldest snapshot if the history is full.
func (h *History) Add(s *Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.q.Length() == h.max {
		h.q.Remove()
	}
	h.q.Add(s)
}

// Len returns the number of snapshots held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.q.Length()
}

// Latest returns the most recent snapshot, or nil.
func (h *History) Latest() *Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.q.Length() == 0 {
		return nil
	}
	return h.q.Get(-1).(*Snapshot)
}

// All returns the snapshots held, oldest first.
func (h *History) All() []*Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	all := make([]*Snapshot, h.q.Length())
	for i := range all {
		all[i] = h.q.Get(i).(*Snapshot)
	}
	return all
}
