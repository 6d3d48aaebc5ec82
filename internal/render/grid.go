// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package render implements the pure render model (spec §4.8): a function
// from (window, snapshot, mode, command_buffer, error) to a grid of styled
// cells, with no state of its own and no terminal I/O. It is grounded on
// biogo-examples' separation of layout computation from drawing (e.g.
// krishna separates matrix computation from rendering): the actual
// terminal backend that turns a Grid into escape sequences is an external
// collaborator, out of scope per spec §1.
package render

import (
	"github.com/grailbio/tgv/internal/genome"
)

// Color is a logical color slot; the terminal backend maps these to
// whatever palette it has available. Keeping this as a small closed enum
// rather than an RGB triple matches a 256-color terminal's actual
// constraint and keeps this package free of any terminal library.
type Color int

const (
	ColorDefault Color = iota
	ColorBaseA
	ColorBaseC
	ColorBaseG
	ColorBaseT
	ColorBaseN
	ColorMismatch
	ColorDeletion
	ColorCoverageBar
	ColorCoverageAxis
	ColorGene
	ColorExon
	ColorReadForward
	ColorReadReverse
	ColorRuler
	ColorStatus
	ColorCommand
	ColorError
	ColorHelp
)

// Style is the visual treatment of one Cell.
type Style struct {
	Fg     Color
	Bg     Color
	Bold   bool
	Invert bool // used for ruler tick labels
}

// Cell is one terminal character cell.
type Cell struct {
	Rune  rune
	Style Style
}

// rowKind tags what a Grid row represents, for PositionAt translation: only
// the ruler, gene, exon, reference and read-lane rows map a column back to a
// reference base; the coverage histogram and status line do not.
type rowKind int

const (
	rowOther rowKind = iota
	rowTrack
)

// Grid is the render model's output: one frame's worth of styled cells,
// plus enough bookkeeping to translate a mouse click back into a genomic
// position (spec §6 "Terminal input/output": "Mouse clicks map to the cell
// at cursor, translated by the render model back into a base position").
type Grid struct {
	Rows    [][]Cell
	Columns int

	window   genome.ViewWindow
	rowKinds []rowKind // parallel to Rows
}

// newGrid allocates a Columns-wide, len(rowKinds)-tall grid filled with
// blank default-styled cells.
func newGrid(columns int, window genome.ViewWindow, rowKinds []rowKind) Grid {
	g := Grid{
		Columns:  columns,
		window:   window,
		rowKinds: rowKinds,
	}
	g.Rows = make([][]Cell, len(rowKinds))
	for i := range g.Rows {
		row := make([]Cell, columns)
		for j := range row {
			row[j] = Cell{Rune: ' '}
		}
		g.Rows[i] = row
	}
	return g
}

// Height returns the number of rows in the grid.
func (g Grid) Height() int { return len(g.Rows) }

// set writes a styled rune at (row, col), silently clipping out-of-range
// writes rather than panicking, since several draw helpers compute columns
// from variable-width labels that may run past the grid edge.
func (g Grid) set(row, col int, r rune, style Style) {
	if row < 0 || row >= len(g.Rows) || col < 0 || col >= g.Columns {
		return
	}
	g.Rows[row][col] = Cell{Rune: r, Style: style}
}

// setString writes s starting at (row, col), one rune per column.
func (g Grid) setString(row, col int, s string, style Style) {
	for i, r := range s {
		g.set(row, col+i, r, style)
	}
}

// PositionAt translates a screen (col, row) back into a genomic position
// (spec §6), returning false if (col, row) isn't over a genomic track row
// (e.g. it's the status line, or a Help-mode overlay).
func (g Grid) PositionAt(col, row int) (genome.Position, bool) {
	if row < 0 || row >= len(g.rowKinds) || g.rowKinds[row] != rowTrack {
		return genome.Position{}, false
	}
	if col < 0 || col >= g.Columns {
		return genome.Position{}, false
	}
	base := g.window.LeftBase + genome.PosType(col)*g.window.BasesPerColumn
	return genome.Position{ContigID: g.window.ContigID, Base: base}, true
}
