// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package align implements the alignment provider (spec §4.4): fetching
// reads overlapping a window and expanding their CIGAR strings to
// per-reference-base operations, grounded on
// encoding/bamprovider.BAMProvider's iterator and free-list design.
package align

import (
	"github.com/grailbio/tgv/internal/genome"
)

// OpKind is the per-reference-base effect of one CIGAR operation, per spec
// §4.4's table.
type OpKind int8

const (
	// OpMatch is a reference-base-consuming, matching aligned base.
	OpMatch OpKind = iota
	// OpMismatch is a reference-base-consuming, mismatching aligned base.
	OpMismatch
	// OpDeletion is a deleted reference base (CIGAR D).
	OpDeletion
	// OpRefSkip is a skipped reference base, e.g. an intron (CIGAR N).
	OpRefSkip
	// OpSoftClip marks a reference position adjacent to soft-clipped query
	// bases. ExpandCIGAR never emits it: CIGAR S bases are kept in
	// Read.LeadingClip / Read.TrailingClip instead.
	OpSoftClip
)

// Insertion records an insertion attached to the preceding reference
// position (or, if at the very start of a read, to the read's first aligned
// base — spec §4.4).
type Insertion struct {
	// Bases is the inserted query sequence.
	Bases []byte
}

// BaseCall is one expanded reference-base-aligned position within a read.
type BaseCall struct {
	Op   OpKind
	Base byte // query base, uppercase; meaningless for OpDeletion/OpRefSkip
	// Insertion is non-nil when an insertion is attached to this position.
	Insertion *Insertion
}

// Read is a CIGAR-expanded alignment record (spec §3).
type Read struct {
	QueryName    string
	Interval     genome.Interval
	Strand       genome.Strand
	MappingQual  uint8
	Calls        []BaseCall // one entry per position in Interval, in order
	LeadingClip  []byte     // soft-clipped bases before Interval.Start
	TrailingClip []byte     // soft-clipped bases after Interval.End
}

// CallAt returns the BaseCall for a reference position within the read, and
// whether it is in range.
func (r Read) CallAt(pos genome.PosType) (BaseCall, bool) {
	if pos < r.Interval.Start || pos >= r.Interval.End {
		return BaseCall{}, false
	}
	return r.Calls[pos-r.Interval.Start], true
}
