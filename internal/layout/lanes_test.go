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

func mkRead(t *testing.T, name string, start, end genome.PosType) align.Read {
	t.Helper()
	iv, err := genome.NewInterval("chr1", start, end)
	require.NoError(t, err)
	return align.Read{QueryName: name, Interval: iv}
}

// spec §8: for all read sets R, no two reads in the same lane have
// overlapping intervals (with the pad).
func TestAssignLanesNoOverlapWithinLane(t *testing.T) {
	reads := []align.Read{
		mkRead(t, "r1", 100, 200),
		mkRead(t, "r2", 150, 250),
		mkRead(t, "r3", 210, 260), // fits in r1's lane after pad
		mkRead(t, "r4", 100, 120),
	}
	assignment := AssignLanes(reads)
	byLane := map[int][]align.Read{}
	for i, l := range assignment.Lane {
		byLane[l] = append(byLane[l], reads[i])
	}
	for _, laneReads := range byLane {
		for i := 0; i < len(laneReads); i++ {
			for j := i + 1; j < len(laneReads); j++ {
				assert.False(t, laneReads[i].Interval.Intersects(laneReads[j].Interval))
			}
		}
	}
}

func TestAssignLanesDeterministicTieBreak(t *testing.T) {
	reads := []align.Read{
		mkRead(t, "b", 100, 200),
		mkRead(t, "a", 100, 200),
	}
	a1 := AssignLanes(reads)
	a2 := AssignLanes(reads)
	assert.Equal(t, a1.Lane, a2.Lane)
	// "a" sorts before "b" at equal start, so it gets the lower lane index.
	assert.Less(t, a1.Lane[1], a1.Lane[0])
}

func TestAssignLanesRespectsPad(t *testing.T) {
	reads := []align.Read{
		mkRead(t, "r1", 100, 200),
		mkRead(t, "r2", 200, 210), // touches r1's end exactly: needs the 1bp pad
	}
	assignment := AssignLanes(reads)
	assert.NotEqual(t, assignment.Lane[0], assignment.Lane[1])
}
