// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix && !windows

package mmap

import (
	"errors"
	"os"
)

func mmapFile(f *os.File, writable bool) (*Data, error) {
	return nil, errors.ErrUnsupported
}

func munmapFile(d *Data) error {
	return errors.ErrUnsupported
}
