// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"os"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/grailbio/base/file"
	"github.com/grailbio/tgv/internal/store"
)

// ReferenceBaseURIEnv names the environment variable that points at the
// reference-distribution root (spec §6's "download <genome>: populate the
// local reference/feature cache" names no concrete source -- like the SQL
// client and the 2-bit/feature formats themselves, the distribution host is
// an external collaborator per spec §1). Each genome is expected to live at
// <base>/<genome>/{sequence.2bit,features.tsv.gz,aliases.tsv}, any scheme
// github.com/grailbio/base/file supports (file, s3, gs, http(s)).
const ReferenceBaseURIEnv = "TGV_REFERENCE_BASE_URI"

// runDownload populates store.Genome(genomeID)'s three files by copying them
// from the configured distribution root, atomically (spec §6 "Atomic
// replacement on update"). It returns ErrDataSourceUnreachable if the base
// URI isn't configured or a fetch fails, so main can map it to exit code 3.
func runDownload(ctx context.Context, genomeID string) error {
	base := os.Getenv(ReferenceBaseURIEnv)
	if base == "" {
		return errors.Wrapf(ErrDataSourceUnreachable, "%s is not set; don't know where to download %q from", ReferenceBaseURIEnv, genomeID)
	}

	gdir, err := store.Genome(genomeID)
	if err != nil {
		return errors.Wrap(err, "tgv: resolving genome store")
	}
	if err := gdir.Ensure(); err != nil {
		return errors.Wrap(err, "tgv: preparing genome directory")
	}

	files := []struct{ remote, local string }{
		{base + "/" + genomeID + "/sequence.2bit", gdir.SequencePath()},
		{base + "/" + genomeID + "/features.tsv.gz", gdir.FeatureTablePath()},
		{base + "/" + genomeID + "/aliases.tsv", gdir.AliasTablePath()},
	}
	for _, f := range files {
		log.Print("tgv: downloading " + f.remote)
		if err := downloadOne(ctx, f.remote, f.local); err != nil {
			return errors.Wrapf(ErrDataSourceUnreachable, "downloading %s: %v", f.remote, err)
		}
	}
	return nil
}

func downloadOne(ctx context.Context, remote, local string) error {
	src, err := file.Open(ctx, remote)
	if err != nil {
		return err
	}
	defer src.Close(ctx)

	return store.WriteAtomic(ctx, local, func(w io.Writer) error {
		_, err := io.Copy(w, src.Reader(ctx))
		return err
	})
}
