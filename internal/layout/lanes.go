// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package layout implements the track layout engine (spec §4.6): greedy lane
// assignment for the read pileup, and the coverage/mismatch histogram.
package layout

import (
	"sort"

	"github.com/grailbio/tgv/internal/align"
	"github.com/grailbio/tgv/internal/genome"
)

// Pad is the minimum gap, in bases, required between two reads sharing a
// lane (spec §3 "Lane assignment").
const Pad = 1

// LaneAssignment maps a read index (into the slice passed to AssignLanes) to
// its lane.
type LaneAssignment struct {
	Lane []int
}

// AssignLanes greedily packs reads into non-overlapping horizontal lanes
// (spec §4.6). Reads are processed in (start, query_name) order for
// determinism; each read is placed in the lowest-indexed lane whose last
// placed read ends (plus Pad) at or before this read's start, else a new
// lane is opened.
func AssignLanes(reads []align.Read) LaneAssignment {
	order := make([]int, len(reads))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := reads[order[i]], reads[order[j]]
		if a.Interval.Start != b.Interval.Start {
			return a.Interval.Start < b.Interval.Start
		}
		return a.QueryName < b.QueryName
	})

	laneEnds := []genome.PosType{} // last occupied end (exclusive) + Pad, per lane
	laneOf := make([]int, len(reads))
	for _, idx := range order {
		r := reads[idx]
		placed := -1
		for lane, end := range laneEnds {
			if end <= r.Interval.Start {
				placed = lane
				break
			}
		}
		if placed == -1 {
			placed = len(laneEnds)
			laneEnds = append(laneEnds, 0)
		}
		laneEnds[placed] = r.Interval.End + Pad
		laneOf[idx] = placed
	}
	return LaneAssignment{Lane: laneOf}
}

// NumLanes returns the number of lanes used by an assignment.
func (a LaneAssignment) NumLanes() int {
	max := -1
	for _, l := range a.Lane {
		if l > max {
			max = l
		}
	}
	return max + 1
}
