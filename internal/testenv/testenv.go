// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package testenv contains helper functions for skipping tests
// based on what the environment supports.
package testenv

import (
	"net"
	"os"
	"runtime"
	"testing"
)

// NeedsLocalhostNet skips t if networking does not work for ports opened
// with "localhost".
func NeedsLocalhostNet(t testing.TB) {
	t.Helper()
	switch runtime.GOOS {
	case "js", "wasip1":
		t.Skipf(`Listening on "localhost" fails on %s; see https://go.dev/issue/59718`, runtime.GOOS)
	}
}

// NeedsMmap skips t if files cannot be memory mapped.
func NeedsMmap(t testing.TB) {
	t.Helper()
	switch runtime.GOOS {
	case "js", "wasip1", "plan9":
		t.Skipf("skipping test: no mmap on %s", runtime.GOOS)
	}
}

// MustHaveExec checks that the current system can start new processes
// using os.StartProcess or (more commonly) exec.Command.
// If not, MustHaveExec calls t.Skip with an explanation.
func MustHaveExec(t testing.TB) {
	t.Helper()
	switch runtime.GOOS {
	case "wasip1", "js", "ios":
		t.Skipf("skipping test: may not be able to exec subprocess on %s/%s", runtime.GOOS, runtime.GOARCH)
	}
}

// NeedsMulticast skips t unless FLOUKA_TEST_MULTICAST is set and some
// interface is up with multicast enabled. mDNS tests are flaky in
// containers and CI sandboxes, so they are opt-in.
func NeedsMulticast(t testing.TB) {
	t.Helper()
	if os.Getenv("FLOUKA_TEST_MULTICAST") == "" {
		t.Skip("skipping test: set FLOUKA_TEST_MULTICAST=1 to run mDNS tests")
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		t.Skipf("skipping test: %v", err)
	}
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagUp != 0 && ifi.Flags&net.FlagMulticast != 0 {
			return
		}
	}
	t.Skip("skipping test: no multicast interface")
}
