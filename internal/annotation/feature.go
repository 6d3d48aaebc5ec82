// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package annotation implements the gene/exon/transcript index (spec §4.2):
// name lookup, feature-relative motion, and interval range queries.
package annotation

import (
	"github.com/grailbio/tgv/internal/genome"
)

// Kind enumerates feature kinds (spec §3 Feature).
type Kind int

const (
	// KindGene is a gene feature.
	KindGene Kind = iota
	// KindExon is an exon feature.
	KindExon
	// KindTranscript is a transcript feature.
	KindTranscript
)

func (k Kind) String() string {
	switch k {
	case KindGene:
		return "gene"
	case KindExon:
		return "exon"
	case KindTranscript:
		return "transcript"
	default:
		return "unknown"
	}
}

// Feature is a named annotated interval (spec §3). Exons refer to their
// parent gene by name rather than by pointer, keeping the gene<->exon
// relationship acyclic.
type Feature struct {
	Kind     Kind
	Name     string
	Interval genome.Interval
	Strand   genome.Strand
	// ParentGene is set only for KindExon.
	ParentGene string
}

// Start returns the feature's interval start.
func (f Feature) Start() genome.PosType { return f.Interval.Start }

// End returns the feature's interval end (half-open).
func (f Feature) End() genome.PosType { return f.Interval.End }

// Len returns the feature's length in bases.
func (f Feature) Len() genome.PosType { return f.Interval.Len() }
