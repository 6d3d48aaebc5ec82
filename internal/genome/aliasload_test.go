// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package genome

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/base/testutil"
)

func writeAliasFile(t *testing.T, contents string) string {
	t.Helper()
	dir, cleanup := testutil.TempDir(t, "", "")
	t.Cleanup(cleanup)
	path := filepath.Join(dir, "aliases.tsv")
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadAliasTableResolvesAliases(t *testing.T) {
	path := writeAliasFile(t, "chr1\t248956422\t1,NC_000001.11\nchr2\t242193529\t2\n")

	table, err := LoadAliasTable(path)
	require.NoError(t, err)

	c1, err := table.Canonical("1")
	require.NoError(t, err)
	assert.Equal(t, "chr1", c1.ID)
	assert.EqualValues(t, 248956422, c1.Length)

	c2, err := table.Canonical("chr2")
	require.NoError(t, err)
	assert.Equal(t, "chr2", c2.ID)

	_, err = table.Canonical("chr3")
	assert.Error(t, err)
}

func TestLoadAliasTableSkipsBlankAndCommentLines(t *testing.T) {
	path := writeAliasFile(t, "# canonical\tlength\taliases\nchr1\t248956422\t\n\nchr2\t242193529\t2\n")

	table, err := LoadAliasTable(path)
	require.NoError(t, err)
	assert.Len(t, table.All(), 2)

	c1, err := table.Canonical("chr1")
	require.NoError(t, err)
	assert.Equal(t, "chr1", c1.ID)
}

func TestLoadAliasTableRejectsMalformedRow(t *testing.T) {
	path := writeAliasFile(t, "chr1\n")

	_, err := LoadAliasTable(path)
	assert.Error(t, err)
}

func TestLoadAliasTableMissingFile(t *testing.T) {
	_, err := LoadAliasTable("/nonexistent/aliases.tsv")
	assert.Error(t, err)
}
