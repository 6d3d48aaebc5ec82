// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOptsReferenceOnlyBrowse(t *testing.T) {
	opts, err := validateOpts("hg38", "", "", "", "", false, false, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "hg38", opts.Genome)
	assert.Empty(t, opts.AlignmentPath)
}

func TestValidateOptsWithAlignmentPositional(t *testing.T) {
	opts, err := validateOpts("hg38", "chr1:1000", "", "", "", false, false, false, []string{"reads.bam"})
	require.NoError(t, err)
	assert.Equal(t, "reads.bam", opts.AlignmentPath)
	assert.Equal(t, "chr1:1000", opts.Region)
}

func TestValidateOptsNoReferenceAllowsNoGenome(t *testing.T) {
	opts, err := validateOpts("", "", "", "", "", true, false, false, []string{"reads.bam"})
	require.NoError(t, err)
	assert.True(t, opts.NoReference)
}

func TestValidateOptsRejectsTooManyPositionalArgs(t *testing.T) {
	_, err := validateOpts("hg38", "", "", "", "", false, false, false, []string{"a.bam", "b.bam"})
	assert.Error(t, err)
}

func TestValidateOptsRejectsNoGenomeOrNoReference(t *testing.T) {
	_, err := validateOpts("", "", "", "", "", false, false, false, nil)
	assert.Error(t, err)
}

func TestValidateOptsListShortCircuitsPositionalValidation(t *testing.T) {
	opts, err := validateOpts("", "", "", "", "", false, true, false, nil)
	require.NoError(t, err)
	assert.True(t, opts.List)
}

func TestValidateOptsDownloadSubcommand(t *testing.T) {
	opts, err := validateOpts("", "", "", "", "", false, false, false, []string{"download", "hg38"})
	require.NoError(t, err)
	assert.Equal(t, "hg38", opts.Download)
}

func TestValidateOptsDownloadRequiresOneGenome(t *testing.T) {
	_, err := validateOpts("", "", "", "", "", false, false, false, []string{"download"})
	assert.Error(t, err)

	_, err = validateOpts("", "", "", "", "", false, false, false, []string{"download", "hg38", "hg19"})
	assert.Error(t, err)
}
