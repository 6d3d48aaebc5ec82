// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package regioncache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/tgv/internal/genome"
)

// countingBytes is a byteAssembler-shaped Assembler that counts Fetch calls,
// used to verify the coalescing invariant from spec §8.
type countingBytes struct {
	fetches int64
}

func (c *countingBytes) Fetch(iv genome.Interval) (interface{}, error) {
	atomic.AddInt64(&c.fetches, 1)
	out := make([]byte, iv.Len())
	for i := range out {
		out[i] = 'N'
	}
	return out, nil
}

func (c *countingBytes) Merge(x interface{}, ivX genome.Interval, y interface{}, ivY genome.Interval) interface{} {
	xb, yb := x.([]byte), y.([]byte)
	overlap := ivX.End - ivY.Start
	if overlap > 0 && overlap <= int64(len(yb)) {
		yb = yb[overlap:]
	}
	return append(append([]byte{}, xb...), yb...)
}

func (c *countingBytes) Slice(payload interface{}, supersetIv, wantIv genome.Interval) interface{} {
	b := payload.([]byte)
	off := wantIv.Start - supersetIv.Start
	return b[off : off+wantIv.Len()]
}

func (c *countingBytes) Size(payload interface{}) int64 { return int64(len(payload.([]byte))) }

func mustIv(t *testing.T, contig string, start, end genome.PosType) genome.Interval {
	t.Helper()
	iv, err := genome.NewInterval(contig, start, end)
	require.NoError(t, err)
	return iv
}

func TestGetOrFetchServesFromCacheOnRepeat(t *testing.T) {
	asm := &countingBytes{}
	c := New(asm, 1<<20)
	iv := mustIv(t, "chr1", 100, 200)

	_, err := c.GetOrFetch(iv)
	require.NoError(t, err)
	_, err = c.GetOrFetch(iv)
	require.NoError(t, err)
	assert.EqualValues(t, 1, asm.fetches)
}

func TestGetOrFetchOnlyFetchesMissingPiece(t *testing.T) {
	asm := &countingBytes{}
	c := New(asm, 1<<20)
	_, err := c.GetOrFetch(mustIv(t, "chr1", 100, 200))
	require.NoError(t, err)
	_, err = c.GetOrFetch(mustIv(t, "chr1", 150, 250))
	require.NoError(t, err)
	assert.EqualValues(t, 2, asm.fetches)

	payload, err := c.GetOrFetch(mustIv(t, "chr1", 100, 250))
	require.NoError(t, err)
	assert.Len(t, payload.([]byte), 150)
	assert.EqualValues(t, 2, asm.fetches, "no new fetch needed once fully covered")
}

// spec §8: "For all intervals I and generations G, two concurrent
// get_or_fetch(I) calls within G result in exactly one underlying provider
// fetch."
func TestConcurrentGetOrFetchCoalesces(t *testing.T) {
	asm := &countingBytes{}
	c := New(asm, 1<<20)
	iv := mustIv(t, "chr1", 1000, 2000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrFetch(iv)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, asm.fetches)
}

func TestInvalidateAllDropsStaleGenerationData(t *testing.T) {
	asm := &countingBytes{}
	c := New(asm, 1<<20)
	iv := mustIv(t, "chr1", 0, 100)
	_, err := c.GetOrFetch(iv)
	require.NoError(t, err)
	g0 := c.Generation()

	c.InvalidateAll()
	assert.NotEqual(t, g0, c.Generation())

	_, err = c.GetOrFetch(iv)
	require.NoError(t, err)
	assert.EqualValues(t, 2, asm.fetches, "post-invalidation fetch must re-fetch, not reuse stale entries")
}

func TestEvictionSparesPinnedInterval(t *testing.T) {
	asm := &countingBytes{}
	c := New(asm, 150) // small budget forces eviction
	pinned := mustIv(t, "chr1", 0, 100)
	c.Pin(pinned)

	_, err := c.GetOrFetch(pinned)
	require.NoError(t, err)
	_, err = c.GetOrFetch(mustIv(t, "chr1", 1000, 1100))
	require.NoError(t, err)

	payload, err := c.GetOrFetch(pinned)
	require.NoError(t, err)
	assert.Len(t, payload.([]byte), 100, "pinned interval must survive eviction")
}
