// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package controller

import (
	"fmt"

	"github.com/grailbio/tgv/internal/annotation"
	"github.com/grailbio/tgv/internal/command"
	"github.com/grailbio/tgv/internal/genome"
)

// dispatchLocked resolves a parsed Command into a window mutation, a mode
// change, or a status message. Callers must hold c.mu.
func (c *Controller) dispatchLocked(cmd command.Command) {
	c.state.StatusMessage = ""
	switch cmd.Kind {
	case command.KindQuit:
		c.state.Quit = true
	case command.KindHelp:
		c.state.Mode = ModeHelp
	case command.KindListContigs:
		c.state.StatusMessage = fmt.Sprintf("%d contigs loaded", len(c.aliases.All()))

	case command.KindPanBase:
		c.panLocked(cmd.Repeat)
	case command.KindPanWindow:
		c.panWindowsLocked(cmd.Repeat)
	case command.KindScrollLane:
		c.state.LaneScroll += cmd.Repeat

	case command.KindZoomIn:
		c.zoomLocked(-cmd.Repeat)
	case command.KindZoomOut:
		c.zoomLocked(cmd.Repeat)

	case command.KindNextExonStart:
		c.featureMotionLocked(annotation.KindExon, annotation.Forward, false, cmd.Repeat)
	case command.KindPrevExonStart:
		c.featureMotionLocked(annotation.KindExon, annotation.Backward, false, cmd.Repeat)
	case command.KindNextExonEnd:
		c.featureMotionLocked(annotation.KindExon, annotation.Forward, true, cmd.Repeat)
	case command.KindPrevExonEnd:
		c.featureMotionLocked(annotation.KindExon, annotation.Backward, true, cmd.Repeat)
	case command.KindNextGeneStart:
		c.featureMotionLocked(annotation.KindGene, annotation.Forward, false, cmd.Repeat)
	case command.KindPrevGeneStart:
		c.featureMotionLocked(annotation.KindGene, annotation.Backward, false, cmd.Repeat)
	case command.KindNextGeneEnd:
		c.featureMotionLocked(annotation.KindGene, annotation.Forward, true, cmd.Repeat)
	case command.KindPrevGeneEnd:
		c.featureMotionLocked(annotation.KindGene, annotation.Backward, true, cmd.Repeat)

	case command.KindJumpPosition:
		c.jumpPositionLocked(c.state.Window.ContigID, genome.PosType(cmd.Position))
	case command.KindJumpContigPosition:
		c.jumpPositionLocked(cmd.Contig, genome.PosType(cmd.Position))
	case command.KindJumpFeature:
		c.jumpFeatureLocked(cmd.Feature)
	}
}

// panLocked implements h/l: pan by repeat bases-per-column-scaled bases
// (spec §4.7 scenario 2: "20h" at bpc=1 moves left_base by 20).
func (c *Controller) panLocked(repeat int) {
	w := c.state.Window
	delta := genome.PosType(repeat) * w.BasesPerColumn
	if delta == 0 {
		return
	}
	length, _ := c.contigLength(w.ContigID)
	moved := c.moveWindowLocked(w, delta, length)
	if !moved {
		dir := "right"
		if delta < 0 {
			dir = "left"
		}
		c.state.StatusMessage = fmt.Sprintf("already at the %s edge", dir)
	}
}

// panWindowsLocked implements y/p: pan by repeat full window-widths.
func (c *Controller) panWindowsLocked(repeat int) {
	w := c.state.Window
	delta := genome.PosType(repeat) * w.VisibleBases()
	if delta == 0 {
		return
	}
	length, _ := c.contigLength(w.ContigID)
	c.moveWindowLocked(w, delta, length)
}

// moveWindowLocked shifts w.LeftBase by delta, clamps against length (if
// known), and applies the result if it actually changed the window; it
// returns false for a clamped no-op (spec §8 boundary: "Pan-right at contig
// end is a no-op and sets an informational message").
func (c *Controller) moveWindowLocked(w genome.ViewWindow, delta genome.PosType, length genome.PosType) bool {
	before := w.LeftBase
	w.LeftBase += delta
	if length > 0 {
		w = w.Clamp(length)
	} else if w.LeftBase < 1 {
		w.LeftBase = 1
	}
	if w.LeftBase == before {
		return false
	}
	c.setWindowLocked(w)
	return true
}

// zoomLocked applies repeat zoom steps; negative repeat zooms in (halves
// bases_per_column), positive zooms out (doubles it), per the KindZoomIn /
// KindZoomOut split in dispatchLocked. bases_per_column floors at 1 (spec §8
// boundary: "Zoom-in at bases_per_column == 1 is a no-op") and, zooming out,
// is capped at the smallest power of two that shows the whole contig (spec
// §9 Open Question, resolved in DESIGN.md); a zoom-out that is already at
// the cap is a no-op that sets an informational message.
func (c *Controller) zoomLocked(repeat int) {
	w := c.state.Window
	bpc := w.BasesPerColumn
	before := bpc
	if repeat < 0 {
		for i := 0; i < -repeat; i++ {
			if bpc <= 1 {
				break
			}
			bpc /= 2
		}
	} else {
		length, ok := c.contigLength(w.ContigID)
		var bpcCap genome.PosType = -1
		if ok {
			bpcCap = maxBasesPerColumn(length, w.Columns)
		}
		for i := 0; i < repeat; i++ {
			next := bpc * 2
			if bpcCap > 0 && next > bpcCap {
				break
			}
			bpc = next
		}
	}
	if bpc == before {
		if repeat > 0 {
			c.state.StatusMessage = "already zoomed out to the whole contig"
		}
		return
	}
	center := w.LeftBase + w.VisibleBases()/2
	w.BasesPerColumn = bpc
	length, _ := c.contigLength(w.ContigID)
	c.setWindowLocked(centerOn(w, center, length))
}

// maxBasesPerColumn returns the smallest power of two bases_per_column such
// that columns * bases_per_column >= contigLen, i.e. the whole contig fits.
func maxBasesPerColumn(contigLen genome.PosType, columns int) genome.PosType {
	if columns <= 0 {
		columns = 1
	}
	need := (contigLen + genome.PosType(columns) - 1) / genome.PosType(columns)
	bpc := genome.PosType(1)
	for bpc < need {
		bpc *= 2
	}
	return bpc
}

// centerOn returns w with LeftBase adjusted so pos falls in the middle
// column, clamped against length if known.
func centerOn(w genome.ViewWindow, pos genome.PosType, length genome.PosType) genome.ViewWindow {
	w.LeftBase = pos - w.VisibleBases()/2
	if length > 0 {
		return w.Clamp(length)
	}
	if w.LeftBase < 1 {
		w.LeftBase = 1
	}
	return w
}

// featureMotionLocked walks repeat features of kind in dir from the window
// center, landing on each one's start (or end, if useEnd) and centering the
// window there (spec §4.7 scenario 4). If any step finds nothing, the walk
// stops where it is: a zero-step walk leaves the window unchanged and sets
// an informational message (spec §4.7, §8: "no feature found" is not an
// error).
func (c *Controller) featureMotionLocked(k annotation.Kind, dir annotation.Direction, useEnd bool, repeat int) {
	w := c.state.Window
	from := genome.Position{ContigID: w.ContigID, Base: w.LeftBase + w.VisibleBases()/2}
	found := false
	var landed genome.Position
	for i := 0; i < repeat; i++ {
		f, ok, err := c.annotation.NextFeature(k, from, dir, useEnd)
		if err != nil {
			c.state.StatusMessage = err.Error()
			return
		}
		if !ok {
			break
		}
		found = true
		pos := f.Start()
		if useEnd {
			pos = f.End()
		}
		landed = genome.Position{ContigID: w.ContigID, Base: pos}
		from = landed
	}
	if !found {
		c.state.StatusMessage = fmt.Sprintf("no further %s in that direction", k)
		return
	}
	length, _ := c.contigLength(w.ContigID)
	c.setWindowLocked(centerOn(w, landed.Base, length))
}

// jumpPositionLocked implements ':<N>' and ':<contig>:<N>' (spec §4.1),
// centering the window at pos on contigID without changing bases_per_column.
func (c *Controller) jumpPositionLocked(contigID string, pos genome.PosType) {
	ct, err := c.aliases.Canonical(contigID)
	if err != nil {
		c.state.StatusMessage = err.Error()
		return
	}
	w := c.state.Window
	w.ContigID = ct.ID
	c.setWindowLocked(centerOn(w, pos, ct.Length))
}

// jumpFeatureLocked implements ':<name>' (spec §4.1, §4.7): centers the
// window on the feature and chooses bases_per_column so the feature fills
// between 50% and 100% of the columns (spec §8 scenario 1). For a feature
// longer than Columns bases, the smallest power-of-2 bases_per_column with
// bpc*Columns >= f.Len() lands the fill fraction in (50%, 100%]: halving bpc
// again would drop bpc*Columns below f.Len(). A feature of at most Columns
// bases stays at bpc=1 and may fill less than half the columns.
func (c *Controller) jumpFeatureLocked(name string) {
	f, ok, err := c.annotation.Lookup(name)
	if err != nil {
		c.state.StatusMessage = err.Error()
		return
	}
	if !ok {
		c.state.StatusMessage = fmt.Sprintf("unknown feature %q", name)
		return
	}
	w := c.state.Window
	w.ContigID = f.Interval.ContigID
	if w.Columns <= 0 {
		w.Columns = 1
	}
	bpc := genome.PosType(1)
	for bpc*genome.PosType(w.Columns) < f.Len() {
		bpc *= 2
	}
	w.BasesPerColumn = bpc
	center := f.Start() + f.Len()/2
	length, _ := c.contigLength(w.ContigID)
	c.setWindowLocked(centerOn(w, center, length))
}

// setWindowLocked installs w as the current window and issues get_or_fetch
// on all three providers (spec §4.7: "After the window changes, the controller
// issues get_or_fetch for the new interval on each of the three
// providers"). The generation is left unchanged; completions for an earlier
// window are dropped by applyCompletionLocked's interval check.
func (c *Controller) setWindowLocked(w genome.ViewWindow) {
	c.state.Window = w
	c.issueFetchesLocked()
}
