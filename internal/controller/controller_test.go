// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/tgv/internal/align"
	"github.com/grailbio/tgv/internal/annotation"
	"github.com/grailbio/tgv/internal/command"
	"github.com/grailbio/tgv/internal/genome"
)

// fakeRef, fakeAlign and fakeIndex are minimal in-memory stand-ins for the
// Caching* providers, letting dispatch tests run without any I/O.

type fakeRef struct {
	bases []byte
	err   error
}

func (f *fakeRef) Fetch(iv genome.Interval) ([]byte, error) { return f.bases, f.err }
func (f *fakeRef) Pin(genome.Interval)                      {}
func (f *fakeRef) InvalidateAll()                           {}
func (f *fakeRef) Prefetch(genome.Interval)                 {}

type fakeAlign struct {
	reads []align.Read
	err   error
}

func (f *fakeAlign) Fetch(iv genome.Interval) ([]align.Read, error) { return f.reads, f.err }
func (f *fakeAlign) Pin(genome.Interval)                            {}
func (f *fakeAlign) InvalidateAll()                                 {}
func (f *fakeAlign) Prefetch(genome.Interval)                       {}

func mustIv(t *testing.T, contig string, start, end genome.PosType) genome.Interval {
	t.Helper()
	iv, err := genome.NewInterval(contig, start, end)
	require.NoError(t, err)
	return iv
}

func newTestController(t *testing.T) (*Controller, *genome.AliasTable) {
	t.Helper()
	aliases := genome.NewAliasTable()
	aliases.Add("chr1", 250000)
	aliases.Add("chr2", 100000)

	idx := annotation.NewIndex()
	idx.Add(annotation.Feature{Kind: annotation.KindGene, Name: "geneA", Interval: mustIv(t, "chr1", 499, 1499)})
	idx.Add(annotation.Feature{Kind: annotation.KindGene, Name: "geneB", Interval: mustIv(t, "chr1", 1499, 2499)})
	idx.Add(annotation.Feature{Kind: annotation.KindExon, Name: "ex1", Interval: mustIv(t, "chr1", 600, 700), ParentGene: "geneA"})
	idx.Build()
	src := annotation.NewCachingSource(idx, 1<<20)

	initial := genome.ViewWindow{ContigID: "chr1", LeftBase: 1000, BasesPerColumn: 1, Columns: 80}
	sync := func(fn func()) { fn() }
	c := New(initial, aliases, src, &fakeRef{bases: []byte("ACGT")}, &fakeAlign{}, sync)
	return c, aliases
}

func TestPanBaseMatchesScenario2(t *testing.T) {
	c, _ := newTestController(t)
	// spec §8 scenario 2: "20h" at left=1000, bpc=1 => new left = 980.
	st := c.HandleNormalKey("2")
	st = c.HandleNormalKey("0")
	st = c.HandleNormalKey(command.KeyH)
	assert.EqualValues(t, 980, st.Window.LeftBase)
	assert.EqualValues(t, 1, st.Window.BasesPerColumn)
}

func TestPanRightAtContigEndIsNoOpWithMessage(t *testing.T) {
	c, _ := newTestController(t)
	st := c.State()
	st.Window = genome.ViewWindow{ContigID: "chr1", LeftBase: 249921, BasesPerColumn: 1, Columns: 80}
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()

	st = c.HandleNormalKey(command.KeyL)
	assert.EqualValues(t, 249921, st.Window.LeftBase)
	assert.NotEmpty(t, st.StatusMessage)
}

func TestZeroPrefixTreatedAsOne(t *testing.T) {
	c, _ := newTestController(t)
	st := c.HandleNormalKey("0")
	st = c.HandleNormalKey(command.KeyL)
	assert.EqualValues(t, 1001, st.Window.LeftBase)
}

func TestZoomInAtFloorIsNoOp(t *testing.T) {
	c, _ := newTestController(t)
	st := c.HandleNormalKey(command.KeyZ)
	assert.EqualValues(t, 1, st.Window.BasesPerColumn)
}

func TestZoomOutThenInRoundTrips(t *testing.T) {
	c, _ := newTestController(t)
	st := c.HandleNormalKey(command.KeyO)
	require.EqualValues(t, 2, st.Window.BasesPerColumn)
	st = c.HandleNormalKey(command.KeyO)
	require.EqualValues(t, 4, st.Window.BasesPerColumn)
	st = c.HandleNormalKey(command.KeyZ)
	assert.EqualValues(t, 2, st.Window.BasesPerColumn)
}

func TestFeatureMotionCentersOnGeneStart(t *testing.T) {
	c, _ := newTestController(t)
	// spec §8 scenario 4: 'W' from position 1 centers on the next gene
	// start. Our test fixture's window center starts at 1040 (left=1000,
	// bpc=1, cols=80), so 'W' should land on geneB's start (1499).
	st := c.HandleNormalKey(command.KeyShiftW)
	wantCenter := st.Window.LeftBase + st.Window.VisibleBases()/2
	assert.EqualValues(t, 1499, wantCenter)
}

func TestJumpFeatureEntersCommandModeAndCenters(t *testing.T) {
	c, _ := newTestController(t)
	st := c.HandleNormalKey(command.KeyColon)
	require.Equal(t, ModeCommand, st.Mode)
	for _, r := range "geneA" {
		st = c.HandleCommandRune(r)
	}
	st = c.HandleEnter()
	require.Equal(t, ModeNormal, st.Mode)
	assert.Equal(t, "chr1", st.Window.ContigID)
	center := st.Window.LeftBase + st.Window.VisibleBases()/2
	// geneA spans [499, 1499); center is 999.
	assert.InDelta(t, 999, center, 2)
	// Feature (1000bp) should occupy a sizeable majority of the columns:
	// bases_per_column is the smallest power of two with bpc*80 >= 1000,
	// i.e. bpc=16 (visible=1280, fill=78%).
	assert.EqualValues(t, 16, st.Window.BasesPerColumn)
}

// spec §8 scenario 1's own TP53 example (7687490-7668421 = 19069bp, 80
// columns): the fill fraction must stay within [50%, 100%], which the old
// "/0.8 then round up" formula violated (46.6%).
func TestJumpFeatureFillStaysWithinSpecBounds(t *testing.T) {
	aliases := genome.NewAliasTable()
	aliases.Add("chr17", 80000000)
	idx := annotation.NewIndex()
	idx.Add(annotation.Feature{Kind: annotation.KindGene, Name: "TP53", Interval: mustIv(t, "chr17", 7668421, 7687490)})
	idx.Build()
	src := annotation.NewCachingSource(idx, 1<<20)
	initial := genome.ViewWindow{ContigID: "chr17", LeftBase: 1, BasesPerColumn: 1, Columns: 80}
	sync := func(fn func()) { fn() }
	c := New(initial, aliases, src, &fakeRef{bases: []byte("ACGT")}, &fakeAlign{}, sync)

	c.HandleNormalKey(command.KeyColon)
	for _, r := range "TP53" {
		c.HandleCommandRune(r)
	}
	st := c.HandleEnter()

	featureLen := float64(7687490 - 7668421)
	visible := float64(st.Window.VisibleBases())
	fill := featureLen / visible
	assert.GreaterOrEqual(t, fill, 0.5)
	assert.LessOrEqual(t, fill, 1.0)
	// Smallest power of two with bpc*80 >= 19069 is 256 (20480 >= 19069).
	assert.EqualValues(t, 256, st.Window.BasesPerColumn)
}

func TestUnknownFeatureSetsStatusMessageNotErrorMode(t *testing.T) {
	c, _ := newTestController(t)
	c.HandleNormalKey(command.KeyColon)
	for _, r := range "notagene" {
		c.HandleCommandRune(r)
	}
	st := c.HandleEnter()
	assert.Equal(t, ModeNormal, st.Mode)
	assert.Contains(t, st.StatusMessage, "unknown feature")
}

func TestQuitCommand(t *testing.T) {
	c, _ := newTestController(t)
	c.HandleNormalKey(command.KeyColon)
	c.HandleCommandRune('q')
	st := c.HandleEnter()
	assert.True(t, st.Quit)
}

func TestEscReturnsToNormalFromCommand(t *testing.T) {
	c, _ := newTestController(t)
	c.HandleNormalKey(command.KeyColon)
	c.HandleCommandRune('x')
	st := c.HandleEsc()
	assert.Equal(t, ModeNormal, st.Mode)
	assert.Equal(t, "", st.CommandBuffer)
}

func TestDataSourceUnavailableEntersErrorModeAndRecovers(t *testing.T) {
	aliases := genome.NewAliasTable()
	aliases.Add("chr1", 250000)
	idx := annotation.NewIndex()
	idx.Build()
	src := annotation.NewCachingSource(idx, 1<<20)
	ref := &fakeRef{err: assertIOErr}
	initial := genome.ViewWindow{ContigID: "chr1", LeftBase: 1000, BasesPerColumn: 1, Columns: 80}
	c := New(initial, aliases, src, ref, &fakeAlign{}, func(fn func()) { fn() })
	st := c.DrainCompletions()
	require.Equal(t, ModeError, st.Mode)

	ref.err = nil
	ref.bases = []byte("ACGT")
	c.retryNow()
	st = c.DrainCompletions()
	assert.Equal(t, ModeNormal, st.Mode)
}

var assertIOErr = &ioErr{}

type ioErr struct{}

func (e *ioErr) Error() string { return "connection refused" }
