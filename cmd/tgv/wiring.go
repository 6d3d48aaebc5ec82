// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/grailbio/tgv/internal/align"
	"github.com/grailbio/tgv/internal/annotation"
	"github.com/grailbio/tgv/internal/command"
	"github.com/grailbio/tgv/internal/controller"
	"github.com/grailbio/tgv/internal/genome"
	"github.com/grailbio/tgv/internal/refseq"
	"github.com/grailbio/tgv/internal/store"
)

// maxCacheBytes bounds each of the three region caches (spec §4.5); one
// constant for all three, matching the teacher's habit of a single
// "good enough" default rather than exposing every cache knob as a flag
// (cmd/bio-pileup/main.go does the same for e.g. -max-read-len).
const maxCacheBytes = 256 << 20

// ErrDataSourceUnreachable is classified to exit code 3 (spec §6).
var ErrDataSourceUnreachable = errors.New("tgv: reference data source unreachable at startup")

// ErrCacheCorruption is classified to exit code 4 (spec §6).
var ErrCacheCorruption = errors.New("tgv: persisted cache is corrupt")

// app bundles everything main's event loop needs beyond the Controller
// itself: InvalidateReference-capable align/ref providers are already owned
// by the controller, but Close needs the raw BAM handles.
type app struct {
	ctrl        *controller.Controller
	aliases     *genome.AliasTable
	noReference bool
	closers     []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Error.Printf("tgv: close: %v", err)
		}
	}
}

// buildApp wires the persisted store, the three provider caches, and the
// controller together from parsed Opts (spec §6's "Persisted state" and
// §4.3/§4.4 provider selection "at construction time from CLI flags", per
// spec §9's dynamic-dispatch note).
func buildApp(opts *Opts, cols int) (*app, error) {
	a := &app{}

	aliases := genome.NewAliasTable()
	var ref refseq.Provider = refseq.NoReference{}
	var ann annotation.Source = annotation.NewIndex()
	initialContig := ""

	if !opts.NoReference && opts.Genome != "" {
		gdir, err := store.Genome(opts.Genome)
		if err != nil {
			return nil, errors.Wrap(err, "tgv: resolving genome store")
		}
		if !gdir.Exists() {
			return nil, errors.Wrapf(ErrDataSourceUnreachable,
				"genome %q not found under %s; run '%s download %s' first", opts.Genome, gdir.Dir(), os.Args[0], opts.Genome)
		}

		loadedAliases, err := genome.LoadAliasTable(gdir.AliasTablePath())
		if err != nil {
			return nil, errors.Wrapf(ErrCacheCorruption, "loading alias table: %v", err)
		}
		aliases = loadedAliases

		local2bit, err := refseq.OpenLocal2Bit(gdir.SequencePath())
		if err != nil {
			if errors.Is(err, refseq.ErrMalformedReference) {
				return nil, errors.Wrapf(ErrCacheCorruption, "loading sequence: %v", err)
			}
			return nil, errors.Wrapf(ErrDataSourceUnreachable, "loading sequence: %v", err)
		}
		ref = refseq.NewCachingProvider(local2bit, maxCacheBytes)

		table, err := annotation.LoadTable(gdir.FeatureTablePath())
		if err != nil {
			return nil, errors.Wrapf(ErrCacheCorruption, "loading feature table: %v", err)
		}
		ann = table

		if cts := aliases.All(); len(cts) > 0 {
			initialContig = cts[0].ID
		}
	}

	var alignProvider align.Provider
	if opts.AlignmentPath != "" {
		switch {
		case strings.HasPrefix(opts.AlignmentPath, "s3://"):
			remote, err := align.NewRemoteBAM(opts.AlignmentPath, opts.IndexPath, ref)
			if err != nil {
				return nil, errors.Wrapf(ErrDataSourceUnreachable, "opening %s: %v", opts.AlignmentPath, err)
			}
			alignProvider = remote
		default:
			indexPath := opts.IndexPath
			if indexPath == "" {
				indexPath = opts.AlignmentPath + ".bai"
			}
			local := align.NewLocalBAM(opts.AlignmentPath, indexPath, ref)
			a.closers = append(a.closers, local.Close)
			alignProvider = local
		}
	}
	if alignProvider == nil {
		alignProvider = noAlignment{}
	}

	cachedAnn := annotation.NewCachingSource(ann, maxCacheBytes)
	cachedAlign := align.NewCachingProvider(alignProvider, maxCacheBytes)
	var cachedRef *refseq.CachingProvider
	if cp, ok := ref.(*refseq.CachingProvider); ok {
		cachedRef = cp
	} else {
		cachedRef = refseq.NewCachingProvider(ref, maxCacheBytes)
	}

	win, err := initialWindow(opts, aliases, cachedAnn, initialContig, cols)
	if err != nil {
		return nil, err
	}

	a.ctrl = controller.New(win, aliases, cachedAnn, cachedRef, cachedAlign, nil)
	a.aliases = aliases
	a.noReference = opts.NoReference
	return a, nil
}

// noAlignment is used when no alignment path was given (reference-only
// browse, spec §6 "Absence implies reference-only browse"): Fetch always
// returns an empty slice rather than requiring every downstream consumer to
// nil-check the provider.
type noAlignment struct{}

func (noAlignment) Fetch(iv genome.Interval) ([]align.Read, error) { return nil, nil }

// initialWindow resolves the -r flag (or a sane default) into a starting
// ViewWindow. It feeds -r through command.ParseCommandLine, the same
// grammar the ':' command uses at runtime (internal/command/grammar.go), so
// "-r chr1:2345" and ":chr1:2345" parse to the same Command. The resulting
// window differs from the ':' command's: -r also accepts a bare contig name,
// and it places the position (or a feature's start) at the window's left
// edge at one base per column, where ':' centers it.
func initialWindow(opts *Opts, aliases *genome.AliasTable, ann annotation.Source, fallbackContig string, cols int) (genome.ViewWindow, error) {
	contig := fallbackContig
	var left genome.PosType = 1

	if opts.Region != "" {
		cmd, err := command.ParseCommandLine(opts.Region)
		if err != nil {
			return genome.ViewWindow{}, errors.Wrapf(ErrUsage, "-r %q: %v", opts.Region, err)
		}
		switch cmd.Kind {
		case command.KindJumpPosition:
			left = genome.PosType(cmd.Position)
		case command.KindJumpContigPosition:
			contig = cmd.Contig
			left = genome.PosType(cmd.Position)
		case command.KindJumpFeature:
			if ct, err := aliases.Canonical(cmd.Feature); err == nil {
				contig = ct.ID
			} else if feat, ok, err := ann.Lookup(cmd.Feature); err == nil && ok {
				contig = feat.Interval.ContigID
				left = feat.Start()
			} else {
				contig = cmd.Feature
			}
		default:
			return genome.ViewWindow{}, errors.Wrapf(ErrUsage, "-r %q: not a region", opts.Region)
		}
	}

	w := genome.ViewWindow{ContigID: contig, LeftBase: left, BasesPerColumn: 1, Columns: cols}
	if ct, err := aliases.Canonical(contig); err == nil {
		w = w.Clamp(ct.Length)
	}
	return w, nil
}
