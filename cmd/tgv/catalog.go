// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
)

// catalogEntry is one row of the --list/--list-more genome catalog (spec §6).
// The real catalog of what a running tgv install can download is a remote
// concern (download.go fetches from a configured base URL); this fixed list
// is only the set of identifiers tgv knows how to ask for out of the box.
type catalogEntry struct {
	id          string
	description string
}

var genomeCatalog = []catalogEntry{
	{"hg38", "Human GRCh38"},
	{"hg19", "Human GRCh37"},
	{"mm10", "Mouse GRCm38"},
	{"cat", "Domestic cat (Felis catus 9.0)"},
	{"covid", "SARS-CoV-2 (ASM985889v3)"},
}

// printCatalog implements --list (names only) and --list-more (names with
// description), per spec §6.
func printCatalog(w io.Writer, verbose bool) {
	for _, e := range genomeCatalog {
		if verbose {
			fmt.Fprintf(w, "%s\t%s\n", e.id, e.description)
		} else {
			fmt.Fprintln(w, e.id)
		}
	}
}
