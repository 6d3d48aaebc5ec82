// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package annotation

import (
	"github.com/grailbio/tgv/internal/genome"
	"github.com/grailbio/tgv/internal/regioncache"
)

// featureAssembler adapts a Source's FeaturesIn to regioncache.Assembler.
// Lookup and NextFeature bypass the cache entirely (they are index-wide
// queries, not interval fetches); only FeaturesIn, used by the render
// model's gene/exon track, benefits from region caching.
type featureAssembler struct {
	src Source
}

func (a featureAssembler) Fetch(iv genome.Interval) (interface{}, error) {
	return a.src.FeaturesIn(iv)
}

func (a featureAssembler) Merge(x interface{}, ivX genome.Interval, y interface{}, ivY genome.Interval) interface{} {
	xf, yf := x.([]Feature), y.([]Feature)
	seen := make(map[string]bool, len(xf)+len(yf))
	out := make([]Feature, 0, len(xf)+len(yf))
	for _, f := range append(append([]Feature{}, xf...), yf...) {
		key := f.Kind.String() + "|" + f.Name
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

func (a featureAssembler) Slice(payload interface{}, supersetIv, wantIv genome.Interval) interface{} {
	feats := payload.([]Feature)
	out := make([]Feature, 0, len(feats))
	for _, f := range feats {
		if f.Interval.Intersects(wantIv) {
			out = append(out, f)
		}
	}
	return out
}

func (a featureAssembler) Size(payload interface{}) int64 {
	return int64(len(payload.([]Feature))) * 128
}

// CachingSource wraps a Source, caching FeaturesIn queries while passing
// Lookup/NextFeature straight through (spec §4.5).
type CachingSource struct {
	src   Source
	cache *regioncache.Cache
}

// NewCachingSource wraps src with a feature-interval cache bounded to
// maxBytes.
func NewCachingSource(src Source, maxBytes int64) *CachingSource {
	return &CachingSource{src: src, cache: regioncache.New(featureAssembler{src: src}, maxBytes)}
}

// Lookup implements Source.
func (c *CachingSource) Lookup(name string) (Feature, bool, error) { return c.src.Lookup(name) }

// NextFeature implements Source.
func (c *CachingSource) NextFeature(kind Kind, from genome.Position, dir Direction, useEnd bool) (Feature, bool, error) {
	return c.src.NextFeature(kind, from, dir, useEnd)
}

// FeaturesIn implements Source, through the cache.
func (c *CachingSource) FeaturesIn(iv genome.Interval) ([]Feature, error) {
	payload, err := c.cache.GetOrFetch(iv)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	feats := payload.([]Feature)
	out := make([]Feature, 0, len(feats))
	for _, f := range feats {
		if f.Interval.Intersects(iv) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Pin exempts iv from eviction.
func (c *CachingSource) Pin(iv genome.Interval) { c.cache.Pin(iv) }

// InvalidateAll bumps the cache generation.
func (c *CachingSource) InvalidateAll() { c.cache.InvalidateAll() }
