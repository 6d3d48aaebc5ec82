// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package render

import (
	"fmt"

	"github.com/grailbio/tgv/internal/align"
	"github.com/grailbio/tgv/internal/annotation"
	"github.com/grailbio/tgv/internal/genome"
	"github.com/grailbio/tgv/internal/layout"
)

// Mode mirrors controller.Mode's four values without importing the
// controller package, so this package stays a standalone pure function (see
// DESIGN.md "internal/render"). cmd/tgv's event loop translates
// controller.Mode to render.Mode once per frame.
type Mode int

const (
	ModeNormal Mode = iota
	ModeCommand
	ModeHelp
	ModeError
)

// CoverageHeight is the fixed number of rows given to the coverage
// histogram (spec §4.6/§4.8).
const CoverageHeight = 5

// Input is everything Render needs, named after the (window, snapshot,
// mode, command_buffer, error) tuple spec §4.8 specifies.
type Input struct {
	Window genome.ViewWindow
	Mode   Mode

	CommandBuffer string
	StatusMessage string
	ErrorMessage  string

	// LaneScroll is the index of the first read lane shown (spec §4.8 "up to
	// a scroll-offset-controlled window of lanes").
	LaneScroll int

	RefBases    []byte // aligned to Window.Interval(); nil if not yet loaded or --no-reference
	RefInterval genome.Interval

	Features         []annotation.Feature
	FeaturesInterval genome.Interval

	Reads         []align.Read
	ReadsInterval genome.Interval

	// NoReference mirrors the CLI --no-reference flag (spec §6): when set,
	// the reference and mismatch-coloring layers are never drawn regardless
	// of whether RefBases happens to be populated.
	NoReference bool
}

// Render is the pure function from Input to a styled cell Grid (spec §4.8).
// It never mutates its input and produces identical output for identical
// input.
func Render(in Input) Grid {
	rows, kinds := planRows(in)
	g := newGrid(in.Window.Columns, in.Window, kinds)

	cur := 0
	cur = drawRuler(g, cur, in)
	cur = drawFeatureTracks(g, cur, in)
	cur = drawReferenceTrack(g, cur, in)
	cur = drawCoverage(g, cur, in)
	cur = drawReadLanes(g, cur, in, rows-cur-1)
	drawStatusLine(g, cur, in)

	if in.Mode == ModeHelp {
		drawHelpOverlay(g)
	}
	return g
}

// planRows computes the total row count and each row's rowKind, so newGrid
// can preallocate correctly. The row layout is: ruler(1), gene(1), exon(1),
// [reference(1) iff bases_per_column==1, else compressed-summary(1)],
// coverage(CoverageHeight), read lanes (laneRowBudget, a fixed
// defaultLaneRows), status line(1).
func planRows(in Input) (int, []rowKind) {
	const fixed = 1 /*ruler*/ + 1 /*gene*/ + 1 /*exon*/ + 1 /*ref/summary*/ + CoverageHeight + 1 /*status*/
	laneRows := laneRowBudget(in)
	total := fixed + laneRows

	kinds := make([]rowKind, total)
	row := 0
	kinds[row] = rowTrack
	row++
	kinds[row] = rowTrack
	row++
	kinds[row] = rowTrack
	row++
	kinds[row] = rowTrack // reference/summary row maps to a position too
	row++
	for i := 0; i < CoverageHeight; i++ {
		kinds[row] = rowOther
		row++
	}
	for i := 0; i < laneRows; i++ {
		kinds[row] = rowTrack
		row++
	}
	kinds[row] = rowOther // status line
	return total, kinds
}

// laneRowBudget returns how many read-lane rows to render. A real terminal
// backend knows its own height and would instead pass the number of
// available rows in through Window.Columns' row counterpart; since spec §3's
// ViewWindow only carries Columns (width), height is implied by whatever is
// left after the fixed tracks -- here fixed to a reasonable default so the
// pure function has a deterministic row count independent of terminal size.
// The terminal's row count is not consulted: a resize changes only
// Window.Columns, and the backend draws every row of the grid.
const defaultLaneRows = 20

func laneRowBudget(in Input) int {
	return defaultLaneRows
}

// drawRuler renders the coordinate ruler: tick marks every power-of-ten-ish
// interval with the base position labeled (spec §4.8 "coordinate ruler").
func drawRuler(g Grid, row int, in Input) int {
	w := in.Window
	step := rulerStep(w.BasesPerColumn)
	for col := 0; col < w.Columns; col++ {
		base := w.LeftBase + genome.PosType(col)*w.BasesPerColumn
		if base%step != 0 {
			continue
		}
		label := fmt.Sprintf("%d", base)
		g.setString(row, col, label, Style{Fg: ColorRuler, Invert: true})
	}
	return row + 1
}

// rulerStep picks a tick spacing in bases that keeps labels from overlapping
// at the current zoom: a nice round number at least 10 columns wide.
func rulerStep(basesPerColumn genome.PosType) genome.PosType {
	minBases := basesPerColumn * 10
	step := genome.PosType(1)
	for _, mag := range []genome.PosType{1, 2, 5} {
		for scale := genome.PosType(1); ; scale *= 10 {
			step = mag * scale
			if step >= minBases {
				return step
			}
			if scale > 1<<40 {
				return step
			}
		}
	}
	return step
}

// drawFeatureTracks renders the gene row then the exon row (spec §4.8
// "gene/exon track"). Each feature is drawn across its columns by
// drawFeatureSpan, with a distinct style per kind;
// overlapping features on the same row simply overwrite in slice order,
// since the annotation index does not guarantee non-overlap across genes.
func drawFeatureTracks(g Grid, row int, in Input) int {
	geneRow, exonRow := row, row+1
	for _, f := range in.Features {
		var targetRow int
		var style Style
		switch f.Kind {
		case annotation.KindGene:
			targetRow, style = geneRow, Style{Fg: ColorGene, Bold: true}
		case annotation.KindExon:
			targetRow, style = exonRow, Style{Fg: ColorExon}
		default:
			continue
		}
		drawFeatureSpan(g, targetRow, in.Window, f, style)
	}
	return exonRow + 1
}

// drawFeatureSpan fills the columns a feature's interval overlaps with its
// name once, followed by '-' in the remaining columns; a feature narrower
// than its name shows the name truncated to fit. An empty name draws as '-'.
func drawFeatureSpan(g Grid, row int, w genome.ViewWindow, f annotation.Feature, style Style) {
	startCol, endCol, ok := columnsFor(w, f.Interval)
	if !ok {
		return
	}
	name := f.Name
	if name == "" {
		name = "-"
	}
	for col := startCol; col < endCol; col++ {
		r := '-'
		if idx := col - startCol; idx < len(name) {
			r = rune(name[idx])
		}
		g.set(row, col, r, style)
	}
}

// columnsFor converts iv to a [startCol, endCol) column range visible within
// w, clipped to the window, and reports false if iv doesn't overlap w at
// all.
func columnsFor(w genome.ViewWindow, iv genome.Interval) (int, int, bool) {
	win := w.Interval()
	if win.ContigID != iv.ContigID || !win.Intersects(iv) {
		return 0, 0, false
	}
	start := iv.Start
	if start < win.Start {
		start = win.Start
	}
	end := iv.End
	if end > win.End {
		end = win.End
	}
	startCol := int((start - win.Start) / w.BasesPerColumn)
	endCol := int((end - win.Start + w.BasesPerColumn - 1) / w.BasesPerColumn)
	if endCol > w.Columns {
		endCol = w.Columns
	}
	if startCol >= endCol {
		return 0, 0, false
	}
	return startCol, endCol, true
}

// drawReferenceTrack renders literal bases when bases_per_column == 1, else
// a compressed per-column summary (spec §4.8: "reference sequence track
// (only when bases_per_column == 1, else a compressed summary)"). The
// summary shown when zoomed out is the dominant base's color with a '='
// glyph, giving a visual texture without claiming base-level precision.
func drawReferenceTrack(g Grid, row int, in Input) int {
	if in.NoReference {
		return row + 1
	}
	w := in.Window
	if len(in.RefBases) == 0 {
		g.setString(row, 0, "(reference loading)", Style{Fg: ColorDefault})
		return row + 1
	}
	winIv := w.Interval()
	offset := winIv.Start - in.RefInterval.Start
	if w.BasesPerColumn == 1 {
		for col := 0; col < w.Columns; col++ {
			idx := offset + genome.PosType(col)
			if idx < 0 || idx >= genome.PosType(len(in.RefBases)) {
				continue
			}
			b := in.RefBases[idx]
			g.set(row, col, rune(b), Style{Fg: baseColor(b)})
		}
		return row + 1
	}
	for col := 0; col < w.Columns; col++ {
		lo := offset + genome.PosType(col)*w.BasesPerColumn
		hi := lo + w.BasesPerColumn
		if lo < 0 {
			lo = 0
		}
		if hi > genome.PosType(len(in.RefBases)) {
			hi = genome.PosType(len(in.RefBases))
		}
		if lo >= hi {
			continue
		}
		dominant := dominantBase(in.RefBases[lo:hi])
		g.set(row, col, '=', Style{Fg: baseColor(dominant)})
	}
	return row + 1
}

func baseColor(b byte) Color {
	switch b {
	case 'A', 'a':
		return ColorBaseA
	case 'C', 'c':
		return ColorBaseC
	case 'G', 'g':
		return ColorBaseG
	case 'T', 't':
		return ColorBaseT
	default:
		return ColorBaseN
	}
}

func dominantBase(bases []byte) byte {
	var a, c, g, t, n int
	for _, b := range bases {
		switch b {
		case 'A', 'a':
			a++
		case 'C', 'c':
			c++
		case 'G', 'g':
			g++
		case 'T', 't':
			t++
		default:
			n++
		}
	}
	best, bestCount := byte('N'), n
	for _, cand := range []struct {
		b byte
		n int
	}{{'A', a}, {'C', c}, {'G', g}, {'T', t}} {
		if cand.n > bestCount {
			best, bestCount = cand.b, cand.n
		}
	}
	return best
}

// drawCoverage renders the fixed-height coverage histogram (spec §4.6/§4.8),
// scaled to the "nice" axis max computed by layout.NiceAxisMax.
func drawCoverage(g Grid, row int, in Input) int {
	w := in.Window
	winIv := w.Interval()
	var ref []byte
	if !in.NoReference && len(in.RefBases) > 0 {
		ref = alignRefToWindow(in.RefBases, in.RefInterval, winIv)
	}
	reads := clipReadsToInterval(in.Reads, winIv)
	cols := layout.Coverage(winIv, reads, ref)
	axisMax := layout.NiceAxisMax(cols)
	if axisMax < 1 {
		axisMax = 1
	}

	for col := 0; col < w.Columns; col++ {
		lo, hi := columnBaseRange(w, col)
		cov, mismatch := aggregateCoverage(cols, winIv, lo, hi)
		bars := (cov * CoverageHeight) / axisMax
		if bars > CoverageHeight {
			bars = CoverageHeight
		}
		style := Style{Fg: ColorCoverageBar}
		if mismatch {
			style.Fg = ColorMismatch
		}
		for h := 0; h < bars; h++ {
			barRow := row + CoverageHeight - 1 - h
			g.set(barRow, col, '|', style)
		}
	}
	g.setString(row, 0, fmt.Sprintf("%d", axisMax), Style{Fg: ColorCoverageAxis})
	return row + CoverageHeight
}

// alignRefToWindow slices ref (spanning refIv) down to exactly win, padding
// with 'N' for any part of win not covered by refIv.
func alignRefToWindow(ref []byte, refIv, win genome.Interval) []byte {
	out := make([]byte, win.Len())
	for i := range out {
		out[i] = 'N'
	}
	pos := win.Start
	for i := range out {
		if pos >= refIv.Start && pos < refIv.End {
			out[i] = ref[pos-refIv.Start]
		}
		pos++
	}
	return out
}

func clipReadsToInterval(reads []align.Read, iv genome.Interval) []align.Read {
	out := make([]align.Read, 0, len(reads))
	for _, r := range reads {
		if r.Interval.Intersects(iv) {
			out = append(out, r)
		}
	}
	return out
}

func columnBaseRange(w genome.ViewWindow, col int) (genome.PosType, genome.PosType) {
	lo := w.LeftBase + genome.PosType(col)*w.BasesPerColumn
	return lo, lo + w.BasesPerColumn
}

// aggregateCoverage averages layout.Column.Coverage over [lo, hi) (a single
// rendered column may span several reference bases when zoomed out) and
// reports whether any underlying base was flagged a mismatch column.
func aggregateCoverage(cols []layout.Column, winIv genome.Interval, lo, hi genome.PosType) (int, bool) {
	total := 0
	mismatch := false
	for pos := lo; pos < hi; pos++ {
		if pos < winIv.Start || pos >= winIv.End {
			continue
		}
		c := cols[pos-winIv.Start]
		total += c.Coverage
		if c.Mismatch {
			mismatch = true
		}
	}
	// Average rather than sum across the compressed span, so the bar height
	// reflects typical per-base coverage instead of scaling up with zoom.
	span := hi - lo
	if span > 1 {
		total /= int(span)
	}
	return total, mismatch
}

// drawReadLanes renders up to maxRows lanes of aligned reads, starting at
// in.LaneScroll (spec §4.8 "scroll-offset-controlled window of lanes"),
// using layout.AssignLanes for placement.
func drawReadLanes(g Grid, row int, in Input, maxRows int) int {
	if maxRows <= 0 {
		return row
	}
	w := in.Window
	winIv := w.Interval()
	reads := clipReadsToInterval(in.Reads, winIv)
	assignment := layout.AssignLanes(reads)

	for i, r := range reads {
		lane := assignment.Lane[i] - in.LaneScroll
		if lane < 0 || lane >= maxRows {
			continue
		}
		drawReadRow(g, row+lane, w, r)
	}
	return row + maxRows
}

func drawReadRow(g Grid, row int, w genome.ViewWindow, r align.Read) {
	startCol, endCol, ok := columnsFor(w, r.Interval)
	if !ok {
		return
	}
	strandColor := ColorReadForward
	if r.Strand == genome.StrandReverse {
		strandColor = ColorReadReverse
	}
	for col := startCol; col < endCol; col++ {
		base := w.LeftBase + genome.PosType(col)*w.BasesPerColumn
		glyph, style := readGlyphAt(r, base, w.BasesPerColumn, strandColor)
		g.set(row, col, glyph, style)
	}
}

// readGlyphAt summarizes the read's coverage of [base, base+basesPerColumn)
// into one glyph: a deletion dash if any covered position is a deletion, the
// query base if exactly one base is covered (bases_per_column == 1), else
// '='.
func readGlyphAt(r align.Read, base, basesPerColumn genome.PosType, strandColor Color) (rune, Style) {
	style := Style{Fg: strandColor}
	if basesPerColumn == 1 {
		call, ok := r.CallAt(base)
		if !ok {
			return ' ', style
		}
		switch call.Op {
		case align.OpDeletion:
			return '-', Style{Fg: ColorDeletion}
		case align.OpRefSkip:
			return ' ', style
		case align.OpMismatch:
			return rune(call.Base), Style{Fg: ColorMismatch}
		default:
			return rune(call.Base), style
		}
	}
	anyDeletion := false
	any := false
	for pos := base; pos < base+basesPerColumn; pos++ {
		call, ok := r.CallAt(pos)
		if !ok {
			continue
		}
		any = true
		if call.Op == align.OpDeletion {
			anyDeletion = true
		}
	}
	if !any {
		return ' ', style
	}
	if anyDeletion {
		return '-', Style{Fg: ColorDeletion}
	}
	return '=', style
}

// drawStatusLine renders the final status/command/error line, whose content
// depends on Mode (spec §4.8).
func drawStatusLine(g Grid, row int, in Input) {
	switch in.Mode {
	case ModeCommand:
		g.setString(row, 0, ":"+in.CommandBuffer, Style{Fg: ColorCommand})
	case ModeError:
		g.setString(row, 0, "ERROR: "+in.ErrorMessage, Style{Fg: ColorError, Bold: true})
	default:
		if in.StatusMessage != "" {
			g.setString(row, 0, in.StatusMessage, Style{Fg: ColorStatus})
		} else {
			g.setString(row, 0, in.Window.Interval().String(), Style{Fg: ColorStatus})
		}
	}
}
