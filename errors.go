// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flouka

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/flouka/flouka/internal/meta"
	"github.com/flouka/flouka/internal/store"
	"github.com/flouka/flouka/wire"
)

// Errors reported by a Registry. Returned errors wrap one of these and can
// be tested with [errors.Is].
var (
	// ErrCapacity: every slot of the kind being assigned is already assigned.
	ErrCapacity = meta.ErrCapacity
	// ErrOutOfRange: an id is not below the configured capacity.
	ErrOutOfRange = meta.ErrOutOfRange
	// ErrAssigned: the id was assigned before.
	ErrAssigned = meta.ErrAssigned
	// ErrUnassigned: a counter operation named a counter that was never assigned.
	ErrUnassigned = meta.ErrUnassigned
	// ErrParentUnassigned: the parent group or subgroup is not assigned yet.
	ErrParentUnassigned = meta.ErrParentUnassigned
	// ErrEmptyString: a name, description or unit is empty.
	ErrEmptyString = meta.ErrEmptyString
	// ErrInvalidString: a name, description or unit contains a NUL byte.
	ErrInvalidString = meta.ErrInvalidString

	// ErrOverflow: a checked mutation would reach the reserved maximum.
	ErrOverflow = store.ErrOverflow
	// ErrUnderflow: a checked mutation would go below zero.
	ErrUnderflow = store.ErrUnderflow

	// ErrShortBuffer: a destination buffer cannot hold the information.
	ErrShortBuffer = wire.ErrShortBuffer

	ErrIncomplete = errors.New("registry is not completely assigned")
	ErrDestroyed  = errors.New("registry is destroyed")
	ErrAlignment  = errors.New("allocator returned a misaligned buffer")
	ErrConfig     = errors.New("invalid registry configuration")
)

// RangeError is the error type of refused Increment, Decrement, Increase
// and Decrease calls.
type RangeError = store.RangeError

// An Error records a failed Registry operation and the site it was
// called from.
type Error struct {
	Op   string // operation, such as "AssignGroup"
	Site string // file:line of the caller, if known
	Err  error
}

func (e *Error) Error() string {
	if e.Site == "" {
		return fmt.Sprintf("flouka: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("flouka: %s: %v (called from %s)", e.Op, e.Err, e.Site)
}

func (e *Error) Unwrap() error { return e.Err }

// fail wraps err for operation op. It must be called directly from the
// exported method, so that the caller two frames up is the user's code.
// In strict mode it panics instead of returning.
func (r *Registry) fail(op string, err error) error {
	return failure(r.strict, 3, op, err)
}

func failure(strict bool, skip int, op string, err error) error {
	e := &Error{Op: op, Err: err}
	if _, file, line, ok := runtime.Caller(skip); ok {
		e.Site = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	if strict {
		panic(e)
	}
	return e
}
