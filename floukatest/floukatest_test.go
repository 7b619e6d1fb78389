// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package floukatest_test

import (
	"testing"

	"github.com/flouka/flouka/floukatest"
	"github.com/flouka/flouka/layout"
	"github.com/google/go-cmp/cmp"
)

func TestDemo(t *testing.T) {
	r := floukatest.Demo(t)
	if err := r.Increase(layout.TxBytes1, 1000); err != nil {
		t.Fatal(err)
	}
	if err := r.Increment(layout.TxFailures1); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint32{1000, 1, 0, 0, 0}, floukatest.Values(t, r)); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	info := floukatest.Information(t, r)
	if got := info.Groups[1].Name; got != "Reception" {
		t.Errorf("group 1 is %q, want Reception", got)
	}
}
