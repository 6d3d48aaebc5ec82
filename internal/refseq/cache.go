// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package refseq

import (
	"github.com/grailbio/tgv/internal/genome"
	"github.com/grailbio/tgv/internal/regioncache"
)

// byteAssembler adapts a Provider to regioncache.Assembler, with []byte
// payloads representing one base per position (spec §4.5).
type byteAssembler struct {
	p Provider
}

func (a byteAssembler) Fetch(iv genome.Interval) (interface{}, error) {
	return a.p.Fetch(iv)
}

func (a byteAssembler) Merge(x interface{}, ivX genome.Interval, y interface{}, ivY genome.Interval) interface{} {
	xb, yb := x.([]byte), y.([]byte)
	overlap := ivX.End - ivY.Start
	if overlap > 0 && overlap <= int64(len(yb)) {
		yb = yb[overlap:]
	}
	out := make([]byte, 0, len(xb)+len(yb))
	out = append(out, xb...)
	out = append(out, yb...)
	return out
}

func (a byteAssembler) Slice(payload interface{}, supersetIv, wantIv genome.Interval) interface{} {
	b := payload.([]byte)
	off := wantIv.Start - supersetIv.Start
	return b[off : off+wantIv.Len()]
}

func (a byteAssembler) Size(payload interface{}) int64 {
	return int64(len(payload.([]byte)))
}

// CachingProvider wraps an underlying Provider with a regioncache.Cache,
// coalescing overlapping concurrent fetches and serving small pans from
// cache (spec §4.5).
type CachingProvider struct {
	cache *regioncache.Cache
}

// NewCachingProvider wraps p with a cache bounded to maxBytes total bytes.
func NewCachingProvider(p Provider, maxBytes int64) *CachingProvider {
	return &CachingProvider{cache: regioncache.New(byteAssembler{p: p}, maxBytes)}
}

// Fetch implements Provider.
func (c *CachingProvider) Fetch(iv genome.Interval) ([]byte, error) {
	payload, err := c.cache.GetOrFetch(iv)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	return payload.([]byte), nil
}

// Pin exempts iv from eviction; the controller calls this after every
// window change (spec §4.5).
func (c *CachingProvider) Pin(iv genome.Interval) { c.cache.Pin(iv) }

// InvalidateAll bumps the cache generation (spec §4.5, on reference switch).
func (c *CachingProvider) InvalidateAll() { c.cache.InvalidateAll() }

// Prefetch fires a fire-and-forget fetch (spec §4.5).
func (c *CachingProvider) Prefetch(iv genome.Interval) { c.cache.Prefetch(iv) }
