// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package align

import (
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/log"

	"github.com/grailbio/tgv/internal/genome"
	"github.com/grailbio/tgv/internal/refseq"
)

// Provider fetches reads overlapping a genomic interval (spec §4.4). Only
// reads whose reference span overlaps iv are returned; malformed CIGARs are
// logged and skipped rather than failing the whole batch.
type Provider interface {
	Fetch(iv genome.Interval) ([]Read, error)
}

// expandBatch runs ExpandCIGAR over raw records, skipping (and logging) any
// that fail, per spec §4.4's "malformed CIGAR fails the read with a warning;
// other reads in the batch are still returned."
func expandBatch(raw []rawRecord, ref refseq.Provider) []Read {
	reads := make([]Read, 0, len(raw))
	for _, rr := range raw {
		var refBases []byte
		if ref != nil {
			span, err := genome.NewInterval(rr.contigID, genome.PosType(rr.rec.Pos), genome.PosType(rr.rec.Pos)+rr.refSpan)
			if err == nil {
				if bases, ferr := ref.Fetch(span); ferr == nil {
					refBases = bases
				}
			}
		}
		read, err := ExpandCIGAR(rr.rec, refBases)
		if err != nil {
			log.Error.Printf("align: skipping read %s: %v", rr.rec.Name, err)
			continue
		}
		reads = append(reads, read)
	}
	return reads
}

// rawRecord pairs a *sam.Record with the precomputed reference span needed
// to fetch the matching slice of reference bases before expansion.
type rawRecord struct {
	rec      *sam.Record
	contigID string
	refSpan  genome.PosType
}

// refConsumedLen sums the reference-consuming CIGAR ops (spec §4.4 table:
// M, =, X, D, N), giving the length of the read's reference span.
func refConsumedLen(cig sam.Cigar) genome.PosType {
	var n genome.PosType
	for _, op := range cig {
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch, sam.CigarDeletion, sam.CigarSkip:
			n += genome.PosType(op.Len())
		}
	}
	return n
}
