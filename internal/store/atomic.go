// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// WriteAtomic writes the content produced by fn to path by first writing to
// a sibling temp file via github.com/grailbio/base/file, then renaming it
// into place (spec §6: "Atomic replacement on update (write to temp,
// rename)"). Persisted state always lives under a local `~/.tgv`-style
// root, so a plain os.Rename is sufficient even though file.Create/Open is
// used for the write/read path itself, matching pamwriter.go's and
// pileup/snp/output.go's use of file.Create for the teacher's local and
// remote output alike.
func WriteAtomic(ctx context.Context, path string, fn func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.E(err, "store: creating", dir)
	}
	tmp := path + ".tmp"
	f, err := file.Create(ctx, tmp)
	if err != nil {
		return errors.E(err, "store: creating temp file", tmp)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp) // nolint: errcheck
		}
	}()
	if err = fn(f.Writer(ctx)); err != nil {
		f.Close(ctx) // nolint: errcheck
		return errors.E(err, "store: writing", tmp)
	}
	if err = f.Close(ctx); err != nil {
		return errors.E(err, "store: closing", tmp)
	}
	if err = os.Rename(tmp, path); err != nil {
		return errors.E(err, "store: renaming", tmp, "to", path)
	}
	return nil
}

// Open opens path for reading via github.com/grailbio/base/file, the same
// entry point the teacher's readers use (encoding/bam/shard.go,
// pileup/common.go) so local and remote-backed genome directories are
// handled uniformly, even though in practice persisted state is always
// local.
func Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "store: opening", path)
	}
	return readCloser{f: f, ctx: ctx, r: f.Reader(ctx)}, nil
}

// readCloser adapts a file.File's Reader to io.ReadCloser, closing the
// underlying file.File (not just the reader) on Close.
type readCloser struct {
	f   file.File
	ctx context.Context
	r   io.Reader
}

func (rc readCloser) Read(p []byte) (int, error) { return rc.r.Read(p) }
func (rc readCloser) Close() error                { return rc.f.Close(rc.ctx) }
