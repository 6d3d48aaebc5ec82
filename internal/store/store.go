// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package store implements tgv's persisted local cache (spec §6
// "Persisted state"): a per-genome directory under `~/.tgv` (overridable)
// holding a 2-bit sequence file, a sorted feature table, and a contig-alias
// table, each replaced atomically on update. It is grounded on
// encoding/pam/pamutil's directory-layout-path-builder convention
// (CoordPathString-style helpers) and on the write-then-rename pattern
// every teacher writer (markduplicates.mark_duplicates.go,
// pileup/snp/output.go) uses via github.com/grailbio/base/file.
package store

import (
	"os"
	"path/filepath"

	"github.com/grailbio/base/errors"
)

// EnvOverride is the environment variable that overrides the default
// `~/.tgv` root (spec §6: "overridable").
const EnvOverride = "TGV_HOME"

// Root returns the root directory for persisted state: $TGV_HOME if set,
// else `~/.tgv`.
func Root() (string, error) {
	if dir := os.Getenv(EnvOverride); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.E(err, "store: cannot resolve home directory")
	}
	return filepath.Join(home, ".tgv"), nil
}

// GenomeDir is the per-genome subdirectory layout under Root() (spec §6:
// "per-genome subdirectories containing a 2-bit sequence file, a feature
// table ..., and a contig-alias table").
type GenomeDir struct {
	root string
}

// Genome returns the GenomeDir for genomeID, e.g. "hg38".
func Genome(genomeID string) (GenomeDir, error) {
	root, err := Root()
	if err != nil {
		return GenomeDir{}, err
	}
	return GenomeDir{root: filepath.Join(root, genomeID)}, nil
}

// Dir returns the directory path itself.
func (g GenomeDir) Dir() string { return g.root }

// SequencePath is the 2-bit reference sequence file path.
func (g GenomeDir) SequencePath() string { return filepath.Join(g.root, "sequence.2bit") }

// FeatureTablePath is the sorted, tab-separated, gzip-compressed feature
// table path (spec §6: "a feature table (tab-separated, sorted by
// contig+start)"; the gzip framing matches annotation/table.go's on-disk
// format, grounded on pileup/common.go's compressed TSV convention).
func (g GenomeDir) FeatureTablePath() string { return filepath.Join(g.root, "features.tsv.gz") }

// AliasTablePath is the contig-alias table path.
func (g GenomeDir) AliasTablePath() string { return filepath.Join(g.root, "aliases.tsv") }

// Ensure creates the genome directory if it doesn't already exist.
func (g GenomeDir) Ensure() error {
	if err := os.MkdirAll(g.root, 0755); err != nil {
		return errors.E(err, "store: creating", g.root)
	}
	return nil
}

// Exists reports whether a genome directory has already been populated
// (i.e. download has already run for it).
func (g GenomeDir) Exists() bool {
	_, err := os.Stat(g.SequencePath())
	return err == nil
}
