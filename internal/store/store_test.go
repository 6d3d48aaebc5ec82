// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/base/testutil"
)

func withOverride(t *testing.T, dir string) {
	t.Helper()
	old, had := os.LookupEnv(EnvOverride)
	require.NoError(t, os.Setenv(EnvOverride, dir))
	t.Cleanup(func() {
		if had {
			os.Setenv(EnvOverride, old) // nolint: errcheck
		} else {
			os.Unsetenv(EnvOverride) // nolint: errcheck
		}
	})
}

func TestRootHonorsOverride(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	withOverride(t, dir)
	root, err := Root()
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestGenomeDirPaths(t *testing.T) {
	withOverride(t, "/tmp/tgv-home")
	g, err := Genome("hg38")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/tgv-home", "hg38"), g.Dir())
	assert.Equal(t, filepath.Join("/tmp/tgv-home", "hg38", "sequence.2bit"), g.SequencePath())
	assert.Equal(t, filepath.Join("/tmp/tgv-home", "hg38", "features.tsv.gz"), g.FeatureTablePath())
	assert.Equal(t, filepath.Join("/tmp/tgv-home", "hg38", "aliases.tsv"), g.AliasTablePath())
}

func TestGenomeDirExists(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	withOverride(t, dir)
	g, err := Genome("cat")
	require.NoError(t, err)
	assert.False(t, g.Exists())
	require.NoError(t, g.Ensure())
	require.NoError(t, ioutil.WriteFile(g.SequencePath(), []byte("x"), 0644))
	assert.True(t, g.Exists())
}

func TestWriteAtomicReplacesOnSuccess(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "aliases.tsv")
	require.NoError(t, ioutil.WriteFile(path, []byte("old"), 0644))

	ctx := context.Background()
	err := WriteAtomic(ctx, path, func(w io.Writer) error {
		_, err := w.Write([]byte("new"))
		return err
	})
	require.NoError(t, err)

	got, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteAtomicLeavesOriginalOnFailure(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "aliases.tsv")
	require.NoError(t, ioutil.WriteFile(path, []byte("old"), 0644))

	ctx := context.Background()
	sentinel := assertErr{}
	err := WriteAtomic(ctx, path, func(w io.Writer) error {
		return sentinel
	})
	require.Error(t, err)

	got, readErr := ioutil.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "old", string(got))

	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

type assertErr struct{}

func (assertErr) Error() string { return "write failed" }
