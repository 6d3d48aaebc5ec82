// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package refseq implements the reference sequence provider (spec §4.3): it
// fetches IUPAC base strings for a genomic window from a local 2-bit file or
// a remote JSON API, splitting large windows into chunks internally.
package refseq

import (
	"github.com/grailbio/tgv/internal/genome"
)

// MaxChunkBases bounds how much sequence a single underlying fetch will
// request; windows larger than this are split and reassembled by the
// provider (spec §4.3).
const MaxChunkBases = 1 << 20

// Provider fetches reference bases for a genomic interval.
type Provider interface {
	// Fetch returns one uppercase IUPAC base character per position in iv,
	// len(result) == iv.Len().
	Fetch(iv genome.Interval) ([]byte, error)
}

// splitChunks breaks iv into contiguous sub-intervals no larger than
// MaxChunkBases, preserving order.
func splitChunks(iv genome.Interval) []genome.Interval {
	var chunks []genome.Interval
	start := iv.Start
	for start < iv.End {
		end := start + MaxChunkBases
		if end > iv.End {
			end = iv.End
		}
		chunks = append(chunks, genome.Interval{ContigID: iv.ContigID, Start: start, End: end})
		start = end
	}
	return chunks
}

// fetchChunked is shared by the local and remote providers: it splits iv,
// calls fetchOne per chunk, and concatenates the results in order.
func fetchChunked(iv genome.Interval, fetchOne func(genome.Interval) ([]byte, error)) ([]byte, error) {
	chunks := splitChunks(iv)
	if len(chunks) == 1 {
		return fetchOne(chunks[0])
	}
	out := make([]byte, 0, iv.Len())
	for _, c := range chunks {
		part, err := fetchOne(c)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}
