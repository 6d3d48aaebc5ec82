// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package align

import (
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"github.com/grailbio/tgv/internal/genome"
)

// ErrMalformedCigar is wrapped when a CIGAR's query-consuming length doesn't
// match the record's sequence length (spec §4.4).
var ErrMalformedCigar = errors.New("align: malformed CIGAR")

// ExpandCIGAR expands rec's CIGAR into per-reference-base BaseCalls, per the
// table in spec §4.4. refBases, if non-nil, must cover exactly the read's
// reference span (rec.Pos .. rec.End()) and is used to classify M-ops as
// match/mismatch; '=' and 'X' ops are classified from the CIGAR op itself
// without consulting refBases. If refBases is nil (--no-reference mode),
// every M/=/X position is reported as OpMatch (spec §4.3: "no mismatch
// highlighting").
func ExpandCIGAR(rec *sam.Record, refBases []byte) (Read, error) {
	seq := rec.Seq.Expand()
	if err := validateCigarLength(rec.Cigar, len(seq)); err != nil {
		return Read{}, errors.Wrapf(err, "read %s", rec.Name)
	}

	start := genome.PosType(rec.Pos)
	refName := ""
	if rec.Ref != nil {
		refName = rec.Ref.Name()
	}

	var calls []BaseCall
	var leadingClip, trailingClip []byte
	qpos := 0
	refPos := start
	pendingInsertion := (*Insertion)(nil)

	attach := func(ins *Insertion) {
		if len(calls) == 0 {
			// Insertion before the first aligned base attaches to that base
			// once it's appended (spec §4.4).
			pendingInsertion = ins
			return
		}
		calls[len(calls)-1].Insertion = ins
	}

	for _, op := range rec.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for i := 0; i < n; i++ {
				base := toUpperBase(seq[qpos+i])
				kind := classifyMatch(op.Type(), base, refBases, refPos+genome.PosType(i)-start)
				calls = append(calls, BaseCall{Op: kind, Base: base})
				if pendingInsertion != nil {
					calls[len(calls)-1-i].Insertion = pendingInsertion
					pendingInsertion = nil
				}
			}
			qpos += n
			refPos += genome.PosType(n)
		case sam.CigarInsertion:
			ins := &Insertion{Bases: upperCopy(seq[qpos : qpos+n])}
			attach(ins)
			qpos += n
		case sam.CigarDeletion:
			for i := 0; i < n; i++ {
				calls = append(calls, BaseCall{Op: OpDeletion})
			}
			refPos += genome.PosType(n)
		case sam.CigarSkip:
			for i := 0; i < n; i++ {
				calls = append(calls, BaseCall{Op: OpRefSkip})
			}
			refPos += genome.PosType(n)
		case sam.CigarSoftClipped:
			clip := upperCopy(seq[qpos : qpos+n])
			if len(calls) == 0 {
				leadingClip = clip
			} else {
				trailingClip = clip
			}
			qpos += n
		case sam.CigarHardClipped, sam.CigarPadded:
			// Skipped per spec §4.4.
		default:
			return Read{}, errors.Errorf("read %s: unsupported CIGAR op %v", rec.Name, op.Type())
		}
	}

	if len(calls) == 0 {
		return Read{}, errors.Errorf("read %s: CIGAR produced no reference-consuming ops", rec.Name)
	}
	iv := genome.Interval{ContigID: refName, Start: start, End: refPos}

	strand := genome.StrandForward
	if rec.Flags&sam.Reverse != 0 {
		strand = genome.StrandReverse
	}
	return Read{
		QueryName:    rec.Name,
		Interval:     iv,
		Strand:       strand,
		MappingQual:  rec.MapQ,
		Calls:        calls,
		LeadingClip:  leadingClip,
		TrailingClip: trailingClip,
	}, nil
}

func classifyMatch(opType sam.CigarOpType, base byte, refBases []byte, offset genome.PosType) OpKind {
	switch opType {
	case sam.CigarEqual:
		return OpMatch
	case sam.CigarMismatch:
		return OpMismatch
	}
	if refBases == nil || offset < 0 || int(offset) >= len(refBases) {
		return OpMatch
	}
	if toUpperBase(refBases[offset]) == base {
		return OpMatch
	}
	return OpMismatch
}

func validateCigarLength(cig sam.Cigar, seqLen int) error {
	consumed := 0
	for _, op := range cig {
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch, sam.CigarInsertion, sam.CigarSoftClipped:
			consumed += op.Len()
		}
	}
	if seqLen != 0 && consumed != seqLen {
		return errors.Wrapf(ErrMalformedCigar, "cigar consumes %d query bases, sequence has %d", consumed, seqLen)
	}
	return nil
}

func toUpperBase(b byte) byte {
	return byte(strings.ToUpper(string(b))[0])
}

func upperCopy(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[i] = toUpperBase(b)
	}
	return out
}
