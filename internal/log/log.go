// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log builds the structured loggers of the flouka commands.
package log

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/exp/slog"
)

// Log formats accepted by NewHandler.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatGCP  = "gcp" // JSON with the field names of Cloud Logging
)

// NewHandler returns a handler writing to w in format, dropping records
// below level.
func NewHandler(w io.Writer, format string, level slog.Leveler) (slog.Handler, error) {
	switch format {
	case FormatText, "":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), nil
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), nil
	case FormatGCP:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			ReplaceAttr: gcpReplaceAttr,
			Level:       level,
		}), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

// New returns a logger for NewHandler(w, format, level).
func New(w io.Writer, format string, level slog.Leveler) (*slog.Logger, error) {
	h, err := NewHandler(w, format, level)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

// ParseLevel parses a level name such as "debug" or "warn+2".
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return l, nil
}

// Discard is a logger that drops every record.
var Discard = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 100}))

func gcpReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if a.Value.Kind() == slog.KindTime {
			a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
		}
	case slog.MessageKey:
		a.Key = "message"
	case slog.LevelKey:
		a.Key = "severity"
	case slog.SourceKey:
		a.Key = "logging.googleapis.com/sourceLocation"
	case "conn":
		a.Key = "logging.googleapis.com/operation"
	}
	return a
}
