// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package render

// helpLines is the key reference shown in ModeHelp (spec §4.1, §4.7: "any
// key returns to Normal"). Kept as a flat list rather than generated from
// the command grammar so the wording can stay human-friendly.
var helpLines = []string{
	"tgv -- key reference",
	"",
	"h/l          pan left/right by one column",
	"y/p          pan left/right by one window",
	"z/o          zoom in/out",
	"j/k          scroll read lanes down/up",
	"w/b          next/previous exon start",
	"e/ge         next/previous exon end",
	"W/B          next/previous gene start",
	"E/gE         next/previous gene end",
	":<N>         jump to position N on the current contig",
	":<contig>:N  jump to position N on <contig>",
	":<name>      jump to a named feature",
	":ls          list loaded contigs",
	":q           quit",
	"Esc          cancel / return to Normal",
	"",
	"press any key to dismiss",
}

// drawHelpOverlay draws the key reference centered over the grid. Each row
// it writes to is blanked first; rows above and below the help text keep
// their track content.
func drawHelpOverlay(g Grid) {
	top := (g.Height() - len(helpLines)) / 2
	if top < 0 {
		top = 0
	}
	for i, line := range helpLines {
		row := top + i
		if row >= g.Height() {
			break
		}
		blankRow(g, row)
		left := (g.Columns - len(line)) / 2
		if left < 0 {
			left = 0
		}
		g.setString(row, left, line, Style{Fg: ColorHelp, Bold: i == 0})
	}
}

// blankRow clears a full row before drawing help text over it, so no track
// glyphs from the pre-overlay pass bleed through.
func blankRow(g Grid, row int) {
	if row < 0 || row >= len(g.Rows) {
		return
	}
	for col := range g.Rows[row] {
		g.Rows[row][col] = Cell{Rune: ' '}
	}
}
