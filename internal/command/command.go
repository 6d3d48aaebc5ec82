// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package command implements the modal key grammar and command-line grammar
// described in spec §4.1: it turns keystrokes and submitted command-mode
// strings into a typed Command value, without touching any view state.
package command

import (
	"fmt"
)

// Kind enumerates the distinct things a Command can ask the controller to
// do.
type Kind int

const (
	// KindNone is the zero value; never produced by a successful parse.
	KindNone Kind = iota
	// KindPanBase pans by Repeat bases times the current zoom.
	KindPanBase
	// KindPanWindow pans by Repeat window-widths.
	KindPanWindow
	// KindScrollLane scrolls the read-lane viewport by Repeat lanes.
	KindScrollLane
	// KindZoomIn halves bases-per-column, Repeat times.
	KindZoomIn
	// KindZoomOut doubles bases-per-column, Repeat times.
	KindZoomOut
	// KindNextExonStart is the 'w' motion.
	KindNextExonStart
	// KindPrevExonStart is the 'b' motion.
	KindPrevExonStart
	// KindNextExonEnd is the 'e' motion.
	KindNextExonEnd
	// KindPrevExonEnd is the 'ge' motion.
	KindPrevExonEnd
	// KindNextGeneStart is the 'W' motion.
	KindNextGeneStart
	// KindPrevGeneStart is the 'B' motion.
	KindPrevGeneStart
	// KindNextGeneEnd is the 'E' motion.
	KindNextGeneEnd
	// KindPrevGeneEnd is the 'gE' motion.
	KindPrevGeneEnd
	// KindEnterCommand switches to Command mode.
	KindEnterCommand
	// KindEscape returns to Normal mode.
	KindEscape
	// KindQuit is the ':q' command.
	KindQuit
	// KindHelp is the ':h' command, or Command-mode 'h'.
	KindHelp
	// KindJumpPosition is an integer N typed in Command mode: jump to N on
	// the current contig.
	KindJumpPosition
	// KindJumpContigPosition is '<contig>:<N>'.
	KindJumpContigPosition
	// KindListContigs is ':ls'.
	KindListContigs
	// KindJumpFeature is an identifier typed in Command mode.
	KindJumpFeature
)

// Direction distinguishes forward/backward feature motions.
type Direction int

const (
	// Forward searches with increasing position.
	Forward Direction = 1
	// Backward searches with decreasing position.
	Backward Direction = -1
)

// Command is the fully parsed result of either a Normal-mode keystroke
// sequence or a submitted Command-mode line. Equality on this struct is used
// by the round-trip testable property in spec §8.
type Command struct {
	Kind     Kind
	Repeat   int    // effective repeat count for movement kinds; magnitude >= 1, negative for h, k and y
	Contig   string // KindJumpContigPosition
	Position int64  // KindJumpPosition, KindJumpContigPosition
	Feature  string // KindJumpFeature
}

// String re-emits a Command as the line a user would have typed to produce
// it, used by the round-trip property (spec §8): parsing String() must
// reproduce an equal Command.
func (c Command) String() string {
	switch c.Kind {
	case KindQuit:
		return "q"
	case KindHelp:
		return "h"
	case KindListContigs:
		return "ls"
	case KindJumpPosition:
		return fmt.Sprintf("%d", c.Position)
	case KindJumpContigPosition:
		return fmt.Sprintf("%s:%d", c.Contig, c.Position)
	case KindJumpFeature:
		return c.Feature
	default:
		return ""
	}
}
