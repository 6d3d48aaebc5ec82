// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/tgv/internal/genome"
)

func mustInterval(t *testing.T, contig string, start, end genome.PosType) genome.Interval {
	t.Helper()
	iv, err := genome.NewInterval(contig, start, end)
	require.NoError(t, err)
	return iv
}

func buildTestIndex(t *testing.T) *Index {
	ix := NewIndex()
	ix.Add(Feature{Kind: KindGene, Name: "GENE500", Interval: mustInterval(t, "chr1", 500, 1000), Strand: genome.StrandForward})
	ix.Add(Feature{Kind: KindGene, Name: "GENE1500", Interval: mustInterval(t, "chr1", 1500, 1800), Strand: genome.StrandForward})
	ix.Add(Feature{Kind: KindGene, Name: "GENE2500", Interval: mustInterval(t, "chr1", 2500, 3500), Strand: genome.StrandReverse})
	ix.Add(Feature{Kind: KindExon, Name: "GENE500.1", Interval: mustInterval(t, "chr1", 500, 700), ParentGene: "GENE500"})
	ix.Add(Feature{Kind: KindExon, Name: "GENE500.2", Interval: mustInterval(t, "chr1", 800, 1000), ParentGene: "GENE500"})
	ix.Build()
	return ix
}

func TestLookupCaseInsensitive(t *testing.T) {
	ix := buildTestIndex(t)
	f, ok, err := ix.Lookup("gene500")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "GENE500", f.Name)
}

func TestLookupUnknown(t *testing.T) {
	ix := buildTestIndex(t)
	_, ok, err := ix.Lookup("notagene")
	require.NoError(t, err)
	assert.False(t, ok)
}

// spec §8: for every feature F found by lookup(name), next_feature(kind,
// F.start, forward) returns a feature with start > F.start (or none).
func TestNextFeatureMonotonic(t *testing.T) {
	ix := buildTestIndex(t)
	f, ok, err := ix.Lookup("GENE500")
	require.NoError(t, err)
	require.True(t, ok)

	next, ok, err := ix.NextFeature(KindGene, genome.Position{ContigID: "chr1", Base: f.Start()}, Forward, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Greater(t, next.Start(), f.Start())
	assert.Equal(t, "GENE1500", next.Name)
}

func TestNextFeatureClampsAtBoundary(t *testing.T) {
	ix := buildTestIndex(t)
	_, ok, err := ix.NextFeature(KindGene, genome.Position{ContigID: "chr1", Base: 2500}, Forward, false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNextFeatureBackward(t *testing.T) {
	ix := buildTestIndex(t)
	prev, ok, err := ix.NextFeature(KindGene, genome.Position{ContigID: "chr1", Base: 1}, Forward, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "GENE500", prev.Name)

	prev, ok, err = ix.NextFeature(KindGene, genome.Position{ContigID: "chr1", Base: 3000}, Backward, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "GENE2500", prev.Name)
}

func TestFeaturesInOrder(t *testing.T) {
	ix := buildTestIndex(t)
	feats, err := ix.FeaturesIn(mustInterval(t, "chr1", 0, 4000))
	require.NoError(t, err)
	var starts []genome.PosType
	for _, f := range feats {
		if f.Kind == KindGene {
			starts = append(starts, f.Start())
		}
	}
	assert.Equal(t, []genome.PosType{500, 1500, 2500}, starts)
}

// A feature that starts well before the window but extends into it must
// still be returned: Start-order is not End-order, so a naive Start-keyed
// binary search for the overlap test would miss it (see FeaturesIn).
func TestFeaturesInIncludesLongFeatureStartingBeforeWindow(t *testing.T) {
	ix := NewIndex()
	ix.Add(Feature{Kind: KindGene, Name: "A", Interval: mustInterval(t, "chr1", 100, 5000), Strand: genome.StrandForward})
	ix.Add(Feature{Kind: KindGene, Name: "B", Interval: mustInterval(t, "chr1", 200, 300), Strand: genome.StrandForward})
	ix.Build()

	feats, err := ix.FeaturesIn(mustInterval(t, "chr1", 1000, 1100))
	require.NoError(t, err)
	var names []string
	for _, f := range feats {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"A"}, names)
}

// NextFeature with useEnd must land on the nearest end, not the nearest
// start: an end-keyed search over a Start-sorted slice can return the wrong
// feature entirely (see Build's byKindEnd).
func TestNextFeatureUseEndFindsNearestEnd(t *testing.T) {
	ix := NewIndex()
	ix.Add(Feature{Kind: KindExon, Name: "A", Interval: mustInterval(t, "chr1", 100, 200)})
	ix.Add(Feature{Kind: KindExon, Name: "B", Interval: mustInterval(t, "chr1", 150, 160)})
	ix.Add(Feature{Kind: KindExon, Name: "C", Interval: mustInterval(t, "chr1", 300, 400)})
	ix.Build()

	next, ok, err := ix.NextFeature(KindExon, genome.Position{ContigID: "chr1", Base: 170}, Forward, true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", next.Name)
	assert.Equal(t, genome.PosType(200), next.End())
}
