// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package genome

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// ErrUnknownContig is wrapped and returned by AliasTable.Canonical when no
// contig matches.
var ErrUnknownContig = errors.New("genome: unknown contig")

// AliasTable resolves contig aliases (chr1, 1, NC_000001.11, ...) to one
// canonical Contig per loaded reference. It is populated once per reference
// selection (spec §3 "Lifecycle"). Every method takes the table's lock, so
// lookups are safe concurrently with Add and Reset.
type AliasTable struct {
	mu         sync.RWMutex
	byAlias    map[string]*Contig
	canonical  []*Contig
	generation int
}

// NewAliasTable returns an empty table.
func NewAliasTable() *AliasTable {
	return &AliasTable{byAlias: make(map[string]*Contig)}
}

// Reset clears the table and bumps its generation, used when switching
// reference genomes.
func (t *AliasTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byAlias = make(map[string]*Contig)
	t.canonical = nil
	t.generation++
}

// Add registers a contig under its canonical id plus any aliases. The first
// call for a given canonical id wins; later calls with the same canonical id
// are ignored (mirrors how a reference's own sequence dictionary is
// authoritative).
func (t *AliasTable) Add(canonicalID string, length PosType, aliases ...string) *Contig {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := CanonicalContigID(canonicalID)
	if c, ok := t.byAlias[key]; ok {
		return c
	}
	c := &Contig{ID: canonicalID, Length: length}
	t.canonical = append(t.canonical, c)
	t.byAlias[key] = c
	for _, a := range aliases {
		t.byAlias[CanonicalContigID(a)] = c
	}
	// A contig is always its own alias, and common chr<->bare forms resolve
	// to each other regardless of which form was loaded.
	t.byAlias[CanonicalContigID(canonicalID)] = c
	return c
}

// Canonical resolves any accepted alias spelling to the loaded Contig.
func (t *AliasTable) Canonical(raw string) (*Contig, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if c, ok := t.byAlias[CanonicalContigID(raw)]; ok {
		return c, nil
	}
	return nil, errors.Wrap(ErrUnknownContig, fmt.Sprintf("%q", raw))
}

// All returns the contigs in load order.
func (t *AliasTable) All() []*Contig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Contig, len(t.canonical))
	copy(out, t.canonical)
	return out
}

// Generation returns the current generation, incremented by Reset.
func (t *AliasTable) Generation() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}
