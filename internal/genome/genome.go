// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package genome defines the coordinate model shared by every layer of tgv:
// contigs, 1-based positions, half-open intervals, and the view window that
// the controller mutates in response to commands.
package genome

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// PosType is the integer type used for genomic coordinates.
type PosType = int64

// Strand is the orientation of a feature or read relative to the reference.
type Strand int8

const (
	// StrandNone indicates strand is not applicable or unknown.
	StrandNone Strand = 0
	// StrandForward is the '+' strand.
	StrandForward Strand = 1
	// StrandReverse is the '-' strand.
	StrandReverse Strand = -1
)

func (s Strand) String() string {
	switch s {
	case StrandForward:
		return "+"
	case StrandReverse:
		return "-"
	default:
		return "."
	}
}

// Contig is a named continuous reference sequence.
type Contig struct {
	// ID is the canonical identifier, e.g. "chr17".
	ID string
	// Length is the contig length in bases.
	Length PosType
}

// Position identifies a single base on a contig. Positions are 1-based.
// Comparing positions across different contigs is unordered and Compare
// returns 0 only to signal "incomparable"; callers that need cross-contig
// ordering should compare ContigID first.
type Position struct {
	ContigID string
	Base     PosType
}

// Valid reports whether p.Base lies within [1, length].
func (p Position) Valid(length PosType) bool {
	return p.Base >= 1 && p.Base <= length
}

// Compare returns <0, 0, >0 if p<p1, p==p1, p>p1, assuming same contig.
// If the contigs differ the result is unspecified; callers must not rely on
// it for cross-contig ordering (spec: "comparing positions across contigs is
// unordered").
func (p Position) Compare(p1 Position) int {
	if p.Base < p1.Base {
		return -1
	}
	if p.Base > p1.Base {
		return 1
	}
	return 0
}

// LT reports whether p < p1 on the same contig.
func (p Position) LT(p1 Position) bool { return p.Compare(p1) < 0 }

// LE reports whether p <= p1 on the same contig.
func (p Position) LE(p1 Position) bool { return p.Compare(p1) <= 0 }

// GE reports whether p >= p1 on the same contig.
func (p Position) GE(p1 Position) bool { return p.Compare(p1) >= 0 }

// GT reports whether p > p1 on the same contig.
func (p Position) GT(p1 Position) bool { return p.Compare(p1) > 0 }

// String renders "<contig>:<base>".
func (p Position) String() string {
	return fmt.Sprintf("%s:%d", p.ContigID, p.Base)
}

// Interval is a half-open genomic interval [Start, End) on one contig.
type Interval struct {
	ContigID string
	Start    PosType
	End      PosType
}

// ErrEmptyInterval is returned when Start >= End.
var ErrEmptyInterval = errors.New("genome: empty or inverted interval")

// NewInterval validates and constructs an Interval.
func NewInterval(contigID string, start, end PosType) (Interval, error) {
	if start >= end {
		return Interval{}, errors.Wrapf(ErrEmptyInterval, "%s:%d-%d", contigID, start, end)
	}
	return Interval{ContigID: contigID, Start: start, End: end}, nil
}

// Len returns the number of bases the interval spans.
func (iv Interval) Len() PosType { return iv.End - iv.Start }

// Contains reports whether p falls within iv.
func (iv Interval) Contains(p Position) bool {
	return iv.ContigID == p.ContigID && p.Base >= iv.Start && p.Base < iv.End
}

// Intersects reports whether iv and iv1 share any base.
func (iv Interval) Intersects(iv1 Interval) bool {
	return iv.ContigID == iv1.ContigID && iv.Start < iv1.End && iv1.Start < iv.End
}

// ContainsInterval reports whether iv1 is entirely inside iv.
func (iv Interval) ContainsInterval(iv1 Interval) bool {
	return iv.ContigID == iv1.ContigID && iv.Start <= iv1.Start && iv1.End <= iv.End
}

// Union returns the smallest interval containing both iv and iv1. Both must
// share a contig.
func (iv Interval) Union(iv1 Interval) Interval {
	out := iv
	if iv1.Start < out.Start {
		out.Start = iv1.Start
	}
	if iv1.End > out.End {
		out.End = iv1.End
	}
	return out
}

// Intersect returns the overlap of iv and iv1, and whether it is non-empty.
func (iv Interval) Intersect(iv1 Interval) (Interval, bool) {
	if !iv.Intersects(iv1) {
		return Interval{}, false
	}
	start := iv.Start
	if iv1.Start > start {
		start = iv1.Start
	}
	end := iv.End
	if iv1.End < end {
		end = iv1.End
	}
	return Interval{ContigID: iv.ContigID, Start: start, End: end}, true
}

// String renders "<contig>:<start>-<end>" using 1-based inclusive display
// coordinates, the convention bioinformaticians expect on a status line.
func (iv Interval) String() string {
	return fmt.Sprintf("%s:%d-%d", iv.ContigID, iv.Start, iv.End-1)
}

// ViewWindow is the portion of a contig currently displayed.
type ViewWindow struct {
	ContigID       string
	LeftBase       PosType // 1-based
	BasesPerColumn PosType // >= 1
	Columns        int
}

// VisibleBases returns the number of reference bases spanned by the window.
func (w ViewWindow) VisibleBases() PosType {
	return w.BasesPerColumn * PosType(w.Columns)
}

// Interval returns the half-open reference interval the window covers.
func (w ViewWindow) Interval() Interval {
	return Interval{ContigID: w.ContigID, Start: w.LeftBase, End: w.LeftBase + w.VisibleBases()}
}

// Clamp adjusts w so that it satisfies the spec §3 ViewWindow invariants
// against a contig of the given length: LeftBase >= 1 and window end <=
// length+1. BasesPerColumn is floored at 1. Returns the clamped window.
func (w ViewWindow) Clamp(length PosType) ViewWindow {
	if w.BasesPerColumn < 1 {
		w.BasesPerColumn = 1
	}
	visible := w.VisibleBases()
	maxLeft := length - visible + 1
	if maxLeft < 1 {
		maxLeft = 1
	}
	if w.LeftBase > maxLeft {
		w.LeftBase = maxLeft
	}
	if w.LeftBase < 1 {
		w.LeftBase = 1
	}
	return w
}

// CanonicalContigID normalizes common aliasing conventions (chr1, 1, Chr1)
// to lower-case-stripped form for comparison; the authoritative mapping to a
// single canonical id lives in the alias table (see aliases.go), this helper
// only computes the lookup key.
func CanonicalContigID(raw string) string {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "chr")
	id = strings.TrimPrefix(id, "Chr")
	id = strings.TrimPrefix(id, "CHR")
	return strings.ToLower(id)
}
