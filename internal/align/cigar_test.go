// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package align

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefConsumedLen(t *testing.T) {
	cig := sam.Cigar{
		sam.NewCigarOp(sam.CigarSoftClipped, 3),
		sam.NewCigarOp(sam.CigarMatch, 10),
		sam.NewCigarOp(sam.CigarDeletion, 2),
		sam.NewCigarOp(sam.CigarMatch, 5),
		sam.NewCigarOp(sam.CigarInsertion, 4),
		sam.NewCigarOp(sam.CigarMatch, 1),
	}
	assert.Equal(t, int64(18), refConsumedLen(cig))
}

func TestValidateCigarLength(t *testing.T) {
	cig := sam.Cigar{
		sam.NewCigarOp(sam.CigarSoftClipped, 3),
		sam.NewCigarOp(sam.CigarMatch, 10),
		sam.NewCigarOp(sam.CigarInsertion, 2),
	}
	require.NoError(t, validateCigarLength(cig, 15))
	err := validateCigarLength(cig, 14)
	assert.Error(t, err)
}

func TestClassifyMatch(t *testing.T) {
	ref := []byte("ACGT")
	assert.Equal(t, OpMatch, classifyMatch(sam.CigarMatch, 'A', ref, 0))
	assert.Equal(t, OpMismatch, classifyMatch(sam.CigarMatch, 'T', ref, 0))
	assert.Equal(t, OpMatch, classifyMatch(sam.CigarMatch, 'T', nil, 0))
	assert.Equal(t, OpMatch, classifyMatch(sam.CigarEqual, 'T', ref, 0))
	assert.Equal(t, OpMismatch, classifyMatch(sam.CigarMismatch, 'A', ref, 0))
}
