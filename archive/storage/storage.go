// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storage provides an interface and types for reading and writing
// snapshot archives to Cloud Storage or a filesystem.
package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

var (
	_ BucketHandle = &GCSBucket{}
	_ BucketHandle = &FSBucket{}
)

var (
	ErrObjectIteratorDone = errors.New("object iterator done")
	ErrObjectNotExist     = errors.New("object not exist")
)

type BucketHandle interface {
	Object(name string) ObjectHandle
	// Objects iterates over the names of the objects that start with
	// prefix, in lexical order.
	Objects(ctx context.Context, prefix string) ObjectIterator
	URI() string
}

type ObjectHandle interface {
	NewReader(ctx context.Context) (io.ReadCloser, error)
	NewWriter(ctx context.Context) (io.WriteCloser, error)
	Delete(ctx context.Context) error
}

type ObjectIterator interface {
	Next() (name string, err error)
}

// NewBucket opens the bucket named bucket: in Cloud Storage if useGCS is
// set, creating it in project if needed, and otherwise as a subdirectory
// of dir.
func NewBucket(ctx context.Context, useGCS bool, project, dir, bucket string) (BucketHandle, error) {
	if useGCS {
		return NewGCSBucket(ctx, project, bucket)
	}
	return NewFSBucket(ctx, dir, bucket)
}

type GCSBucket struct {
	*storage.BucketHandle
	url string
}

// NewGCSBucket opens bucket with the default credentials. The
// STORAGE_EMULATOR_HOST environment variable selects an emulator.
func NewGCSBucket(ctx context.Context, project, bucket string) (BucketHandle, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	bkt := client.Bucket(bucket)
	// Check if the bucket exists by reading its metadata and on error create the bucket.
	if _, err := bkt.Attrs(ctx); err != nil {
		if err := bkt.Create(ctx, project, nil); err != nil {
			return nil, err
		}
	}
	return &GCSBucket{bkt, "gs://" + bucket}, nil
}

func (b *GCSBucket) Object(name string) ObjectHandle {
	return &GCSObject{b.BucketHandle.Object(name)}
}

type GCSObject struct {
	*storage.ObjectHandle
}

func (o *GCSObject) NewReader(ctx context.Context) (io.ReadCloser, error) {
	r, err := o.ObjectHandle.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotExist
	}
	return r, err
}

func (o *GCSObject) NewWriter(ctx context.Context) (io.WriteCloser, error) {
	return o.ObjectHandle.NewWriter(ctx), nil
}

func (o *GCSObject) Delete(ctx context.Context) error {
	err := o.ObjectHandle.Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotExist
	}
	return err
}

func (b *GCSBucket) Objects(ctx context.Context, prefix string) ObjectIterator {
	return &GCSObjectIterator{b.BucketHandle.Objects(ctx, &storage.Query{Prefix: prefix})}
}

type GCSObjectIterator struct {
	*storage.ObjectIterator
}

func (it *GCSObjectIterator) Next() (elem string, err error) {
	o, err := it.ObjectIterator.Next()
	if errors.Is(err, iterator.Done) {
		return "", ErrObjectIteratorDone
	}
	if err != nil {
		return "", err
	}
	return o.Name, nil
}

func (b *GCSBucket) URI() string {
	return b.url
}

type FSBucket struct {
	root, uri string
}

func NewFSBucket(ctx context.Context, dir, bucket string) (BucketHandle, error) {
	root := filepath.Join(dir, filepath.Clean(bucket))
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, err
	}
	uri, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &FSBucket{root, uri}, nil
}

func (b *FSBucket) Object(name string) ObjectHandle {
	return &FSObject{filepath.Join(b.root, filepath.FromSlash(name))}
}

type FSObject struct {
	filename string
}

func (o *FSObject) Filename() string {
	return o.filename
}

func (o *FSObject) NewReader(ctx context.Context) (io.ReadCloser, error) {
	r, err := os.Open(o.filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotExist
	}
	return r, err
}

// NewWriter returns a writer whose data replaces the object on Close.
// Readers never see a partially written object.
func (o *FSObject) NewWriter(ctx context.Context) (io.WriteCloser, error) {
	dir := filepath.Dir(o.filename)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return nil, err
	}
	return &fsWriter{f, o.filename}, nil
}

type fsWriter struct {
	*os.File
	dst string
}

func (w *fsWriter) Close() error {
	if err := w.File.Close(); err != nil {
		os.Remove(w.File.Name())
		return err
	}
	return os.Rename(w.File.Name(), w.dst)
}

func (o *FSObject) Delete(ctx context.Context) error {
	err := os.Remove(o.filename)
	if errors.Is(err, os.ErrNotExist) {
		return ErrObjectNotExist
	}
	return err
}

func (b *FSBucket) Objects(ctx context.Context, prefix string) ObjectIterator {
	var names []string
	err := fs.WalkDir(os.DirFS(b.root), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		name := filepath.ToSlash(path)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	return &FSObjectIterator{names: names, err: err}
}

type FSObjectIterator struct {
	names []string
	err   error
	index int
}

func (it *FSObjectIterator) Next() (name string, err error) {
	if it.err != nil {
		return "", it.err
	}
	if it.index >= len(it.names) {
		return "", ErrObjectIteratorDone
	}
	name = it.names[it.index]
	it.index++
	return name, nil
}

func (b *FSBucket) URI() string {
	return b.uri
}
