// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// ErrUsage is returned when the command line is malformed (spec §6 exit
// code 2).
var ErrUsage = errors.New("tgv: usage error")

// Opts is the parsed CLI surface (spec §6 "CLI surface").
type Opts struct {
	AlignmentPath string // positional; empty means reference-only browse
	Genome        string // -g
	Region        string // -r
	IndexPath     string // -i
	VCFPath       string // -v
	BEDPath       string // -b
	NoReference   bool   // --no-reference
	List          bool   // --list
	ListMore      bool   // --list-more

	// Download, if non-empty, names a "download <genome>" subcommand
	// invocation instead of the browser; all other fields are ignored.
	Download string
}

// Package-level flag registration, in the same style cmd/bio-pileup/main.go
// uses: flag.* vars declared at package scope so grail.Init()'s flag.Parse
// sees them already registered (init order guarantees these run before
// main).
var (
	genomeFlag  = flag.String("g", "", "Reference genome identifier (e.g. hg38, hg19, cat, covid)")
	regionFlag  = flag.String("r", "", "Initial region: <contig>:<pos>, <contig>, or <feature-name>")
	indexFlag   = flag.String("i", "", "BAM index path (local only); defaults to alignment path + .bai")
	vcfFlag     = flag.String("v", "", "Auxiliary VCF overlay path")
	bedFlag     = flag.String("b", "", "Auxiliary BED overlay path")
	noRefFlag   = flag.Bool("no-reference", false, "Disable sequence/feature layers")
	listFlag    = flag.Bool("list", false, "Print supported genome identifiers and exit")
	listMoreFlg = flag.Bool("list-more", false, "Print supported genome identifiers with descriptions and exit")
)

func tgvUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [bampath]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "       %s download <genome>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Other options:\n")
	flag.PrintDefaults()
}

// optsFromFlags reads the already-parsed package-level flags plus the
// remaining positional arguments (flag.Args()) into an Opts. Call after
// flag.Parse() (done inside grail.Init()).
func optsFromFlags(positional []string) (*Opts, error) {
	return validateOpts(*genomeFlag, *regionFlag, *indexFlag, *vcfFlag, *bedFlag, *noRefFlag, *listFlag, *listMoreFlg, positional)
}

// validateOpts is the pure, flag-package-free core of CLI validation, kept
// separate from optsFromFlags so it can be unit tested without touching
// Go's global flag.CommandLine (which a package-level var block can only
// safely register flags on once per test binary).
func validateOpts(genome, region, index, vcf, bed string, noRef, list, listMore bool, positional []string) (*Opts, error) {
	if len(positional) > 0 && positional[0] == "download" {
		if len(positional) != 2 {
			return nil, errors.Wrap(ErrUsage, "download requires exactly one <genome> argument")
		}
		return &Opts{Download: positional[1]}, nil
	}

	opts := &Opts{
		Genome:      genome,
		Region:      region,
		IndexPath:   index,
		VCFPath:     vcf,
		BEDPath:     bed,
		NoReference: noRef,
		List:        list,
		ListMore:    listMore,
	}
	if opts.List || opts.ListMore {
		return opts, nil
	}

	switch len(positional) {
	case 0:
		// Reference-only browse.
	case 1:
		opts.AlignmentPath = positional[0]
	default:
		return nil, errors.Wrapf(ErrUsage, "too many positional arguments: %v", positional)
	}
	if opts.AlignmentPath == "" && opts.Genome == "" && !opts.NoReference {
		return nil, errors.Wrap(ErrUsage, "need -g <genome> (or --no-reference with a bam path) to know what to browse")
	}
	return opts, nil
}
