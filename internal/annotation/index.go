// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package annotation

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/grailbio/tgv/internal/genome"
)

// Direction is the search direction for NextFeature.
type Direction int

const (
	// Forward searches toward increasing position.
	Forward Direction = 1
	// Backward searches toward decreasing position.
	Backward Direction = -1
)

// ErrUnknownFeature is the sentinel the controller classifies as an unknown
// feature. Lookup does not return it: an unknown name is reported as
// (zero, false, nil).
var ErrUnknownFeature = errors.New("annotation: unknown feature")

// Source abstracts where feature data comes from: a remote SQL query over
// the UCSC-compatible schema (sqlindex.go) or a local cached table
// (table.go). Per spec §4.2, the abstraction exposes exactly these three
// operations.
type Source interface {
	Lookup(name string) (Feature, bool, error)
	NextFeature(kind Kind, from genome.Position, dir Direction, useEnd bool) (Feature, bool, error)
	FeaturesIn(iv genome.Interval) ([]Feature, error)
}

// perContig holds one contig's features, per kind, in two parallel sort
// orders: byKind by start (for start-keyed motions and containment
// scanning), byKindEnd by end (for end-keyed motions, since end is not
// monotone in start order and a single start-sorted slice can't be binary
// searched on end).
type perContig struct {
	byKind    map[Kind][]Feature
	byKindEnd map[Kind][]Feature
}

// Index is an in-memory annotation index built once per reference selection
// (spec §3 Lifecycle) and queried by the view controller on every
// feature-relative motion or named jump. It is also a Source, letting it sit
// directly behind the controller without another indirection when the
// caller has already materialized all features (e.g. from table.go).
type Index struct {
	mu      sync.RWMutex
	contigs map[string]*perContig
	byName  map[string]Feature // lower-cased name -> feature
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		contigs: make(map[string]*perContig),
		byName:  make(map[string]Feature),
	}
}

// Add inserts a feature into the index. Callers must call Build after all
// Add calls to sort per-contig slices.
func (ix *Index) Add(f Feature) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	pc, ok := ix.contigs[f.Interval.ContigID]
	if !ok {
		pc = &perContig{byKind: make(map[Kind][]Feature)}
		ix.contigs[f.Interval.ContigID] = pc
	}
	pc.byKind[f.Kind] = append(pc.byKind[f.Kind], f)
	ix.byName[strings.ToLower(f.Name)] = f
}

// Build sorts every per-contig, per-kind slice by start position, with ties
// broken by preferring the longer feature (spec §4.2 tie-break), so motions
// land deterministically on the dominant feature. It also builds a
// by-end-sorted copy of each slice: end is not monotone in start order, so
// the end-keyed motions (NextFeature with useEnd) need their own sorted
// order to binary search correctly.
func (ix *Index) Build() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, pc := range ix.contigs {
		pc.byKindEnd = make(map[Kind][]Feature, len(pc.byKind))
		for k, feats := range pc.byKind {
			sort.SliceStable(feats, func(i, j int) bool {
				if feats[i].Start() != feats[j].Start() {
					return feats[i].Start() < feats[j].Start()
				}
				// Longer feature first so it's preferred on a shared start.
				return feats[i].Len() > feats[j].Len()
			})
			pc.byKind[k] = feats

			byEnd := make([]Feature, len(feats))
			copy(byEnd, feats)
			sort.SliceStable(byEnd, func(i, j int) bool {
				if byEnd[i].End() != byEnd[j].End() {
					return byEnd[i].End() < byEnd[j].End()
				}
				return byEnd[i].Len() > byEnd[j].Len()
			})
			pc.byKindEnd[k] = byEnd
		}
	}
}

// Lookup resolves a feature name, case-insensitively, with aliases folded in
// by whatever populated the index (spec §4.2).
func (ix *Index) Lookup(name string) (Feature, bool, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	f, ok := ix.byName[strings.ToLower(name)]
	if !ok {
		return Feature{}, false, nil
	}
	return f, true, nil
}

// NextFeature returns the first feature of kind whose start (or end, when
// useEnd) is strictly past from in the given direction. Motion clamps at the
// contig boundary: crossing past the last/first feature returns (zero,
// false, nil), which the controller treats as "no feature found" (spec
// §4.2, §4.7), not an error.
func (ix *Index) NextFeature(kind Kind, from genome.Position, dir Direction, useEnd bool) (Feature, bool, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	pc, ok := ix.contigs[from.ContigID]
	if !ok {
		return Feature{}, false, nil
	}
	feats := pc.byKind[kind]
	if useEnd {
		feats = pc.byKindEnd[kind]
	}
	if len(feats) == 0 {
		return Feature{}, false, nil
	}
	key := func(f Feature) genome.PosType {
		if useEnd {
			return f.End()
		}
		return f.Start()
	}
	if dir == Forward {
		i := sort.Search(len(feats), func(i int) bool { return key(feats[i]) > from.Base })
		if i == len(feats) {
			return Feature{}, false, nil
		}
		return feats[i], true, nil
	}
	// Backward: last feature whose key is strictly less than from.Base.
	i := sort.Search(len(feats), func(i int) bool { return key(feats[i]) >= from.Base })
	if i == 0 {
		return Feature{}, false, nil
	}
	return feats[i-1], true, nil
}

// FeaturesIn returns every feature (of any kind) overlapping iv, in start
// order, for the gene/exon track (spec render model §4.8).
func (ix *Index) FeaturesIn(iv genome.Interval) ([]Feature, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	pc, ok := ix.contigs[iv.ContigID]
	if !ok {
		return nil, nil
	}
	var out []Feature
	for _, feats := range pc.byKind {
		// Linear scan: feats is sorted by Start, but End isn't monotone in
		// Start order, so a feature starting well before iv can still
		// overlap it (e.g. a gene spanning the whole window) -- that rules
		// out a Start-keyed binary search for the overlap test.
		for _, f := range feats {
			if f.Start() < iv.End && f.End() > iv.Start {
				out = append(out, f)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start() < out[j].Start() })
	return out, nil
}
