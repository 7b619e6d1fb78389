// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/flouka/flouka/archive"
	"github.com/flouka/flouka/floukatest"
	"github.com/flouka/flouka/internal/log"
	"github.com/flouka/flouka/internal/testenv"
	"github.com/flouka/flouka/layout"
	"github.com/flouka/flouka/server"
)

func TestSimulate(t *testing.T) {
	testenv.NeedsLocalhostNet(t)
	reg := floukatest.Demo(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &server.Server{Registry: reg, Logger: log.Discard, OnStatistics: simulate(reg, log.Discard)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve: %v", err)
		}
	})

	ctx, cancelReq := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelReq()
	c, err := server.Dial(ctx, ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := c.Information(ctx); err != nil {
		t.Fatal(err)
	}
	first, err := c.Statistics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint32{0, 0, 0, 0, 0}, first); diff != "" {
		t.Errorf("first statistics mismatch (-want +got):\n%s", diff)
	}
	// The session serves requests in order, so exactly one simulation step
	// runs between the two responses.
	second, err := c.Statistics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := make([]uint32, 5)
	want[layout.TxBytes1] = 1000
	want[layout.TxFailures1] = 1
	if diff := cmp.Diff(want, second); diff != "" {
		t.Errorf("second statistics mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := checkLayout(&buf, nil); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"version:     v1.0.0\n",
		"groups:      2\n",
		"subgroups:   3\n",
		"counters:    5\n",
		"statistics:  20 bytes\n",
		"(+4 header)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("version: v2.0.0\ngroups: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := checkLayout(&buf, []string{bad}); err == nil {
		t.Error("checkLayout accepted a v2 layout")
	}
	if err := checkLayout(&buf, []string{bad, bad}); err == nil {
		t.Error("checkLayout accepted two files")
	}
}

func TestMetricsHandler(t *testing.T) {
	reg := floukatest.Demo(t)
	if err := reg.Increase(layout.RxBytes1, 321); err != nil {
		t.Fatal(err)
	}
	h, err := metricsHandler(reg, archive.NewHistory(2), log.Discard)
	if err != nil {
		t.Fatal(err)
	}

	for _, test := range []struct {
		method, path string
		wantCode     int
		wantBody     string
	}{
		{"GET", "/metrics", http.StatusOK, "flouka_reception_reception_connection_2_bytes_received{counter=\"4\",unit=\"Byte(s)\"} 321"},
		{"GET", "/metrics", http.StatusOK, "flouka_up 1"},
		{"GET", "/", http.StatusOK, "Transmission Connection 1"},
		{"GET", "/counters.json", http.StatusOK, "\"Value\": 321"},
		{"POST", "/", http.StatusMethodNotAllowed, ""},
		{"GET", "/nowhere", http.StatusNotFound, ""},
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(test.method, test.path, nil))
		if w.Code != test.wantCode {
			t.Errorf("%s %s: status %d, want %d", test.method, test.path, w.Code, test.wantCode)
			continue
		}
		if !strings.Contains(w.Body.String(), test.wantBody) {
			t.Errorf("%s %s: body does not contain %q:\n%s", test.method, test.path, test.wantBody, w.Body)
		}
	}
}
