// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/tgv/internal/align"
	"github.com/grailbio/tgv/internal/genome"
)

func TestCoverageCountsReads(t *testing.T) {
	iv, err := genome.NewInterval("chr1", 100, 104)
	require.NoError(t, err)
	r1 := align.Read{
		Interval: iv,
		Calls: []align.BaseCall{
			{Op: align.OpMatch, Base: 'A'},
			{Op: align.OpMatch, Base: 'C'},
			{Op: align.OpDeletion},
			{Op: align.OpMatch, Base: 'T'},
		},
	}
	cols := Coverage(iv, []align.Read{r1}, []byte("ACGT"))
	require.Len(t, cols, 4)
	assert.Equal(t, 1, cols[0].Coverage)
	assert.Equal(t, 1, cols[0].Tally.A)
	assert.Equal(t, 1, cols[2].Tally.Del)
}

func TestMismatchColumnFlagged(t *testing.T) {
	iv, err := genome.NewInterval("chr1", 0, 1)
	require.NoError(t, err)
	reads := []align.Read{
		{Interval: iv, Calls: []align.BaseCall{{Op: align.OpMismatch, Base: 'T'}}},
		{Interval: iv, Calls: []align.BaseCall{{Op: align.OpMismatch, Base: 'T'}}},
	}
	cols := Coverage(iv, reads, []byte("A"))
	assert.True(t, cols[0].Mismatch)
}

func TestNiceAxisMax(t *testing.T) {
	cols := []Column{{Coverage: 47}}
	assert.Equal(t, 50, NiceAxisMax(cols))
	cols = []Column{{Coverage: 3}}
	assert.Equal(t, 5, NiceAxisMax(cols))
	cols = []Column{{Coverage: 0}}
	assert.Equal(t, 1, NiceAxisMax(cols))
}
