// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/tgv/internal/align"
	"github.com/grailbio/tgv/internal/annotation"
	"github.com/grailbio/tgv/internal/genome"
)

func testWindow() genome.ViewWindow {
	return genome.ViewWindow{ContigID: "chr1", LeftBase: 1000, BasesPerColumn: 1, Columns: 40}
}

func rowText(g Grid, row int) string {
	var sb strings.Builder
	for _, c := range g.Rows[row] {
		r := c.Rune
		if r == 0 {
			r = ' '
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func TestRenderReferenceTrackLiteralAtBasesPerColumnOne(t *testing.T) {
	w := testWindow()
	in := Input{
		Window:      w,
		RefBases:    []byte(strings.Repeat("ACGT", 10)),
		RefInterval: w.Interval(),
	}
	g := Render(in)
	refRow := rowText(g, 3)
	assert.Contains(t, refRow, "ACGT")
}

func TestRenderReferenceTrackCompressedWhenZoomedOut(t *testing.T) {
	w := testWindow()
	w.BasesPerColumn = 8
	in := Input{
		Window:      w,
		RefBases:    []byte(strings.Repeat("AAAA", 100)),
		RefInterval: w.Interval(),
	}
	g := Render(in)
	refRow := rowText(g, 3)
	assert.NotContains(t, refRow, "ACGT")
	assert.Contains(t, refRow, "=")
}

func TestRenderNoReferenceSkipsTrack(t *testing.T) {
	w := testWindow()
	in := Input{
		Window:      w,
		NoReference: true,
		RefBases:    []byte(strings.Repeat("A", 40)),
		RefInterval: w.Interval(),
	}
	g := Render(in)
	refRow := rowText(g, 3)
	assert.NotContains(t, refRow, "A")
}

func TestRenderGeneTrackDrawsFeatureName(t *testing.T) {
	w := testWindow()
	iv, err := genome.NewInterval("chr1", 1005, 1020)
	require.NoError(t, err)
	in := Input{
		Window: w,
		Features: []annotation.Feature{
			{Kind: annotation.KindGene, Name: "BRCA1", Interval: iv},
		},
	}
	g := Render(in)
	geneRow := rowText(g, 1)
	assert.Contains(t, geneRow, "BRCA1")
}

func TestRenderStatusLineShowsModeContent(t *testing.T) {
	w := testWindow()
	in := Input{Window: w, Mode: ModeCommand, CommandBuffer: "brca1"}
	g := Render(in)
	status := rowText(g, g.Height()-1)
	assert.Contains(t, status, ":brca1")

	in.Mode = ModeError
	in.ErrorMessage = "connection refused"
	g = Render(in)
	status = rowText(g, g.Height()-1)
	assert.Contains(t, status, "ERROR")
	assert.Contains(t, status, "connection refused")

	in.Mode = ModeNormal
	in.ErrorMessage = ""
	in.StatusMessage = "already at the right edge"
	g = Render(in)
	status = rowText(g, g.Height()-1)
	assert.Contains(t, status, "already at the right edge")
}

func TestRenderDefaultStatusShowsWindowInterval(t *testing.T) {
	w := testWindow()
	g := Render(Input{Window: w})
	status := rowText(g, g.Height()-1)
	assert.Contains(t, status, "chr1:")
}

func TestRenderHelpOverlayReplacesTracks(t *testing.T) {
	w := testWindow()
	in := Input{Window: w, Mode: ModeHelp}
	g := Render(in)
	found := false
	for row := 0; row < g.Height(); row++ {
		if strings.Contains(rowText(g, row), "key reference") {
			found = true
		}
	}
	assert.True(t, found)
}

// matchCalls returns n matching base calls with a real base, so every
// covered column draws a visible glyph.
func matchCalls(n genome.PosType) []align.BaseCall {
	calls := make([]align.BaseCall, n)
	for i := range calls {
		calls[i] = align.BaseCall{Op: align.OpMatch, Base: 'A'}
	}
	return calls
}

func TestRenderReadLanesRespectScroll(t *testing.T) {
	w := testWindow()
	iv1, err := genome.NewInterval("chr1", 1000, 1010)
	require.NoError(t, err)
	iv2, err := genome.NewInterval("chr1", 1012, 1022)
	require.NoError(t, err)
	reads := []align.Read{
		{QueryName: "r1", Interval: iv1, Calls: matchCalls(iv1.Len())},
		{QueryName: "r2", Interval: iv2, Calls: matchCalls(iv2.Len())},
	}
	// With iv2, r2 would share r1's lane: end(r1)+Pad = 1010+1 = 1011 <=
	// start(r2) = 1012. Use an overlapping interval instead to force two
	// lanes.
	iv2Overlap, err := genome.NewInterval("chr1", 1005, 1022)
	require.NoError(t, err)
	reads[1].Interval = iv2Overlap
	reads[1].Calls = matchCalls(iv2Overlap.Len())

	in := Input{Window: w, Reads: reads, LaneScroll: 0}
	g := Render(in)
	// First lane row is right after the coverage histogram.
	laneStartRow := 1 /*ruler*/ + 1 /*gene*/ + 1 /*exon*/ + 1 /*ref*/ + CoverageHeight
	lane0 := rowText(g, laneStartRow)
	lane1 := rowText(g, laneStartRow+1)
	assert.NotEqual(t, strings.TrimSpace(lane0), "")
	assert.NotEqual(t, strings.TrimSpace(lane1), "")

	in.LaneScroll = 1
	g2 := Render(in)
	scrolledLane0 := rowText(g2, laneStartRow)
	assert.Equal(t, lane1, scrolledLane0)
}

func TestGridPositionAtRoundTripsOnTrackRow(t *testing.T) {
	w := testWindow()
	g := Render(Input{Window: w})
	pos, ok := g.PositionAt(5, 0)
	require.True(t, ok)
	assert.Equal(t, "chr1", pos.ContigID)
	assert.EqualValues(t, 1005, pos.Base)
}

func TestGridPositionAtFalseOnStatusLine(t *testing.T) {
	w := testWindow()
	g := Render(Input{Window: w})
	_, ok := g.PositionAt(0, g.Height()-1)
	assert.False(t, ok)
}
