// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package view

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flouka/flouka/archive"
	"github.com/flouka/flouka/floukatest"
	"github.com/flouka/flouka/layout"
)

func TestPages(t *testing.T) {
	reg := floukatest.Demo(t)
	hist := archive.NewHistory(4)
	hist.Add(&archive.Snapshot{Seq: 0, Values: []uint32{0, 0, 0, 0, 0}})
	if err := reg.Increase(layout.TxBytes2, 1500); err != nil {
		t.Fatal(err)
	}
	hist.Add(&archive.Snapshot{Seq: 1, Values: []uint32{0, 0, 1500, 0, 0}})

	h, err := New("demo", reg, hist)
	if err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	h.Register(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /: status %d\n%s", w.Code, w.Body)
	}
	body := w.Body.String()
	for _, want := range []string{"Transmission Connection 2", "1500", "+1500", "# Bytes received"} {
		if !strings.Contains(body, want) {
			t.Errorf("page does not contain %q", want)
		}
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/counters.json", nil))
	var groups []struct {
		Name      string
		Subgroups []struct {
			Counters []struct {
				ID    uint32
				Value uint32
			}
		}
	}
	if err := json.Unmarshal(w.Body.Bytes(), &groups); err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[0].Subgroups[1].Counters[0].Value != 1500 {
		t.Errorf("unexpected JSON: %s", w.Body)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/elsewhere", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /elsewhere: status %d, want 404", w.Code)
	}
}
