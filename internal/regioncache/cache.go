// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package regioncache implements the per-data-kind region cache (spec §4.5):
// interval-indexed payload storage with request coalescing, generation-based
// invalidation, and LRU eviction. It is generalized over payload type via a
// small Assembler interface rather than Go generics, matching the
// pre-generics idiom of the teacher corpus.
package regioncache

import (
	"sort"
	"sync"

	"github.com/dgryski/go-farm"

	"github.com/grailbio/tgv/internal/genome"
)

// Assembler knows how to fetch, merge, and slice payloads of one data kind
// (reference sequence, alignments, or features). Fetch is called once per
// missing sub-interval; Merge and Slice let the cache store payloads
// contiguously and answer queries that only partially align with stored
// entries (spec §4.5 "assembled slice").
type Assembler interface {
	// Fetch retrieves the payload for exactly iv from the underlying
	// provider.
	Fetch(iv genome.Interval) (interface{}, error)
	// Merge concatenates a (earlier) and b (later, contiguous or
	// overlapping) payloads covering ivA and ivB respectively into one
	// payload covering ivA.Union(ivB).
	Merge(a interface{}, ivA genome.Interval, b interface{}, ivB genome.Interval) interface{}
	// Slice extracts the portion of payload (which covers supersetIv) that
	// covers wantIv. wantIv must be contained in supersetIv.
	Slice(payload interface{}, supersetIv, wantIv genome.Interval) interface{}
	// Size estimates the memory footprint of payload, for eviction
	// accounting.
	Size(payload interface{}) int64
}

// entry is one contiguous, cached, gap-free span within a contig.
type entry struct {
	iv         genome.Interval
	payload    interface{}
	generation int
	lastUsed   uint64 // logical clock tick, for LRU
}

type contigState struct {
	entries []entry // sorted, non-overlapping, by Start
}

// inflight represents one coalesced fetch of a sub-interval: every caller
// whose missing piece overlaps it waits on done.
type inflight struct {
	iv         genome.Interval
	generation int
	done       chan struct{}
	payload    interface{}
	err        error
}

// Cache is a generation-bounded, size-bounded, coalescing cache for one data
// kind.
type Cache struct {
	assembler Assembler
	maxBytes  int64

	mu         sync.Mutex
	generation int
	clock      uint64
	contigs    map[string]*contigState
	curBytes   int64
	inflights  map[string]*inflight // key: contigID + "|" + interval hash
	// pinned is the interval the view is currently showing; never evicted.
	pinned map[string]genome.Interval
}

// New returns a Cache using assembler for fetch/merge/slice and bounding
// total cached payload size to maxBytes (spec §4.5 "bounded total payload
// size per kind (configurable)").
func New(assembler Assembler, maxBytes int64) *Cache {
	return &Cache{
		assembler: assembler,
		maxBytes:  maxBytes,
		contigs:   make(map[string]*contigState),
		inflights: make(map[string]*inflight),
		pinned:    make(map[string]genome.Interval),
	}
}

// Pin marks iv as the interval currently shown by the view, exempting it
// from eviction (spec §4.5). Passing a zero Interval for a contig clears any
// pin on that contig.
func (c *Cache) Pin(iv genome.Interval) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned[iv.ContigID] = iv
}

// InvalidateAll bumps the generation; in-flight fetches from earlier
// generations are discarded when they complete (spec §4.5, §5).
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.contigs = make(map[string]*contigState)
	c.curBytes = 0
}

// Generation returns the cache's current generation.
func (c *Cache) Generation() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// inflightKey hashes (contig, interval) into a short coalescing key using
// the same farm hash family encoding/bam uses for record dedup (DESIGN.md).
func inflightKey(contigID string, iv genome.Interval) string {
	buf := make([]byte, 0, len(contigID)+16)
	buf = append(buf, contigID...)
	buf = appendInt64(buf, iv.Start)
	buf = appendInt64(buf, iv.End)
	h := farm.Hash64(buf)
	return contigID + "|" + itoa64(int64(h))
}

func appendInt64(buf []byte, v int64) []byte {
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(v>>(8*uint(i))))
	}
	return buf
}

func itoa64(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// GetOrFetch returns the payload covering iv, fetching whatever sub-span is
// missing (spec §4.5). It blocks the calling goroutine until all needed
// fetches complete; callers that want async behavior should call this from
// a worker goroutine and post the result back to the controller's
// completion queue (spec §5) rather than calling it from the event loop.
func (c *Cache) GetOrFetch(iv genome.Interval) (interface{}, error) {
	missing, generation := c.missingPieces(iv)
	for _, piece := range missing {
		payload, err := c.fetchCoalesced(piece, generation)
		if err != nil {
			return nil, err
		}
		c.store(piece, payload, generation)
	}
	return c.assembleLocked(iv)
}

// Prefetch fires a fetch for iv without returning its result; errors are
// swallowed (spec §4.5 "fire-and-forget").
func (c *Cache) Prefetch(iv genome.Interval) {
	go func() {
		_, _ = c.GetOrFetch(iv)
	}()
}

// missingPieces returns the minimal sub-intervals of iv not already covered
// by same-generation entries, along with the generation the caller should
// tag its fetches with.
func (c *Cache) missingPieces(iv genome.Interval) ([]genome.Interval, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.generation
	st := c.contigs[iv.ContigID]
	if st == nil {
		return []genome.Interval{iv}, gen
	}
	covered := make([]genome.Interval, 0, len(st.entries))
	for _, e := range st.entries {
		if e.generation != gen {
			continue
		}
		if sub, ok := e.iv.Intersect(iv); ok {
			covered = append(covered, sub)
		}
	}
	sort.Slice(covered, func(i, j int) bool { return covered[i].Start < covered[j].Start })
	var missing []genome.Interval
	cursor := iv.Start
	for _, c2 := range covered {
		if c2.Start > cursor {
			missing = append(missing, genome.Interval{ContigID: iv.ContigID, Start: cursor, End: c2.Start})
		}
		if c2.End > cursor {
			cursor = c2.End
		}
	}
	if cursor < iv.End {
		missing = append(missing, genome.Interval{ContigID: iv.ContigID, Start: cursor, End: iv.End})
	}
	return missing, gen
}

// fetchCoalesced ensures exactly one underlying Fetch is in flight for piece
// within generation gen, satisfying spec §4.5's "At most one in-flight
// fetch... for any given (kind, contig, sub-interval)" invariant, and spec
// §8's concurrent-coalescing testable property.
func (c *Cache) fetchCoalesced(piece genome.Interval, gen int) (interface{}, error) {
	key := inflightKey(piece.ContigID, piece)
	c.mu.Lock()
	if f, ok := c.inflights[key]; ok && f.generation == gen {
		c.mu.Unlock()
		<-f.done
		return f.payload, f.err
	}
	f := &inflight{iv: piece, generation: gen, done: make(chan struct{})}
	c.inflights[key] = f
	c.mu.Unlock()

	payload, err := c.assembler.Fetch(piece)

	c.mu.Lock()
	f.payload, f.err = payload, err
	delete(c.inflights, key)
	c.mu.Unlock()
	close(f.done)
	return payload, err
}

// store inserts a freshly fetched payload into the contig's entry list,
// merging it with adjacent same-generation entries. A stale (older
// generation) store is dropped silently (spec §5: "a completion whose
// generation differs from current is discarded").
func (c *Cache) store(iv genome.Interval, payload interface{}, gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	st := c.contigs[iv.ContigID]
	if st == nil {
		st = &contigState{}
		c.contigs[iv.ContigID] = st
	}
	c.clock++
	newEntry := entry{iv: iv, payload: payload, generation: gen, lastUsed: c.clock}

	var merged []entry
	inserted := false
	for _, e := range st.entries {
		if e.generation != gen || !adjacentOrOverlapping(e.iv, newEntry.iv) {
			merged = append(merged, e)
			continue
		}
		if !inserted {
			newEntry = mergeEntries(c.assembler, e, newEntry)
			inserted = true
			continue
		}
		newEntry = mergeEntries(c.assembler, newEntry, e)
	}
	merged = append(merged, newEntry)
	sort.Slice(merged, func(i, j int) bool { return merged[i].iv.Start < merged[j].iv.Start })
	st.entries = merged
	c.curBytes += c.assembler.Size(payload)
	c.evictIfNeededLocked()
}

func adjacentOrOverlapping(a, b genome.Interval) bool {
	return a.ContigID == b.ContigID && a.Start <= b.End && b.Start <= a.End
}

func mergeEntries(asm Assembler, a, b entry) entry {
	first, second := a, b
	if second.iv.Start < first.iv.Start {
		first, second = second, first
	}
	merged := asm.Merge(first.payload, first.iv, second.payload, second.iv)
	unionIv := first.iv.Union(second.iv)
	lastUsed := first.lastUsed
	if second.lastUsed > lastUsed {
		lastUsed = second.lastUsed
	}
	return entry{iv: unionIv, payload: merged, generation: first.generation, lastUsed: lastUsed}
}

// assembleLocked reads back the requested interval from stored entries. Per
// spec §4.5, the returned payload may be a superset of iv (over-returning
// for caching efficiency); callers must filter.
func (c *Cache) assembleLocked(iv genome.Interval) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.generation
	st := c.contigs[iv.ContigID]
	if st == nil {
		return nil, nil
	}
	var result interface{}
	var resultIv genome.Interval
	have := false
	for i := range st.entries {
		e := &st.entries[i]
		if e.generation != gen {
			continue
		}
		sub, ok := e.iv.Intersect(iv)
		if !ok {
			continue
		}
		c.clock++
		e.lastUsed = c.clock
		piece := c.assembler.Slice(e.payload, e.iv, sub)
		if !have {
			result, resultIv, have = piece, sub, true
			continue
		}
		result = c.assembler.Merge(result, resultIv, piece, sub)
		resultIv = resultIv.Union(sub)
	}
	return result, nil
}

// evictIfNeededLocked evicts least-recently-used, unpinned entries until
// curBytes <= maxBytes, or nothing evictable remains (spec §4.5).
func (c *Cache) evictIfNeededLocked() {
	if c.maxBytes <= 0 {
		return
	}
	for c.curBytes > c.maxBytes {
		var victimContig string
		var victimIdx = -1
		var oldest uint64
		for contigID, st := range c.contigs {
			pinned, hasPin := c.pinned[contigID]
			for i, e := range st.entries {
				if hasPin && e.iv.Intersects(pinned) {
					continue
				}
				if victimIdx == -1 || e.lastUsed < oldest {
					victimContig, victimIdx, oldest = contigID, i, e.lastUsed
				}
			}
		}
		if victimIdx == -1 {
			return // everything remaining is pinned
		}
		st := c.contigs[victimContig]
		victim := st.entries[victimIdx]
		c.curBytes -= c.assembler.Size(victim.payload)
		st.entries = append(st.entries[:victimIdx], st.entries[victimIdx+1:]...)
	}
}
