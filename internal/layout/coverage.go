// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package layout

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/grailbio/tgv/internal/align"
	"github.com/grailbio/tgv/internal/genome"
)

// BaseTally counts aligned bases by type at one reference column.
type BaseTally struct {
	A, C, G, T, N, Del int
}

func (t *BaseTally) add(b byte) {
	switch b {
	case 'A':
		t.A++
	case 'C':
		t.C++
	case 'G':
		t.G++
	case 'T':
		t.T++
	default:
		t.N++
	}
}

// Total returns the number of reads covering this column (excluding
// deletions, which are tracked separately per spec §3).
func (t BaseTally) Total() int { return t.A + t.C + t.G + t.T + t.N }

// Column is the per-reference-position coverage summary (spec §3 "Coverage
// column").
type Column struct {
	Coverage int
	Tally    BaseTally
	// Mismatch is true if any base tally is >= MismatchThreshold and differs
	// from the reference base.
	Mismatch bool
}

// MismatchThreshold is the minimum read count at a differing base before a
// column is flagged as a mismatch column (spec §3).
const MismatchThreshold = 2

// Coverage computes one Column per position in iv from reads (which must
// already be CIGAR-expanded and overlap iv), and ref (the reference bases
// for iv; may be nil in --no-reference mode, in which case Mismatch is
// always false per spec §4.3).
func Coverage(iv genome.Interval, reads []align.Read, ref []byte) []Column {
	cols := make([]Column, iv.Len())
	for _, r := range reads {
		lo := r.Interval.Start
		if lo < iv.Start {
			lo = iv.Start
		}
		hi := r.Interval.End
		if hi > iv.End {
			hi = iv.End
		}
		for pos := lo; pos < hi; pos++ {
			call, ok := r.CallAt(pos)
			if !ok {
				continue
			}
			col := &cols[pos-iv.Start]
			switch call.Op {
			case align.OpMatch, align.OpMismatch:
				col.Tally.add(call.Base)
				col.Coverage++
			case align.OpDeletion:
				col.Tally.Del++
				col.Coverage++
			}
		}
	}
	if ref != nil {
		for i := range cols {
			refBase := byte('N')
			if i < len(ref) {
				refBase = ref[i]
			}
			cols[i].Mismatch = isMismatchColumn(cols[i].Tally, refBase)
		}
	}
	return cols
}

func isMismatchColumn(t BaseTally, refBase byte) bool {
	counts := map[byte]int{'A': t.A, 'C': t.C, 'G': t.G, 'T': t.T}
	for base, n := range counts {
		if base != refBase && n >= MismatchThreshold {
			return true
		}
	}
	return false
}

// NiceAxisMax rounds the maximum coverage value in cols up to the next
// "nice" number (1/2/5 x 10^k), per spec §4.6's coverage display scaling.
func NiceAxisMax(cols []Column) int {
	if len(cols) == 0 {
		return 1
	}
	vals := make([]float64, len(cols))
	for i, c := range cols {
		vals[i] = float64(c.Coverage)
	}
	max := floats.Max(vals)
	if max <= 0 {
		return 1
	}
	return niceCeil(max)
}

// niceCeil rounds v up to the nearest value of the form {1,2,5} x 10^k.
func niceCeil(v float64) int {
	exp := math.Floor(math.Log10(v))
	base := math.Pow(10, exp)
	for _, m := range []float64{1, 2, 5, 10} {
		if candidate := m * base; candidate >= v {
			return int(candidate)
		}
	}
	return int(10 * base)
}
