// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package annotation

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/tgv/internal/genome"
)

// LoadTable builds an Index from the tab-separated, contig+start sorted
// feature table described in spec §6 ("Persisted state"): one row per
// feature, columns kind/name/contig/start/end/strand/parent. The file may be
// gzip-compressed (detected by the .gz suffix), mirroring the on-disk format
// pileup/common.go reads with github.com/klauspost/compress/gzip.
func LoadTable(path string) (*Index, error) {
	ctx := vcontext.Background()
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "annotation: opening feature table %s", path)
	}
	defer f.Close(ctx)

	var r io.Reader = f.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "annotation: gzip header in %s", path)
		}
		defer gz.Close()
		r = gz
	}

	ix := NewIndex()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		feat, err := parseFeatureRow(line)
		if err != nil {
			return nil, errors.Wrapf(err, "annotation: %s line %d", path, lineNo)
		}
		ix.Add(feat)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "annotation: reading %s", path)
	}
	ix.Build()
	return ix, nil
}

func parseFeatureRow(line string) (Feature, error) {
	cols := strings.Split(line, "\t")
	if len(cols) < 6 {
		return Feature{}, errors.Errorf("expected >= 6 columns, got %d", len(cols))
	}
	var kind Kind
	switch cols[0] {
	case "gene":
		kind = KindGene
	case "exon":
		kind = KindExon
	case "transcript":
		kind = KindTranscript
	default:
		return Feature{}, errors.Errorf("unknown feature kind %q", cols[0])
	}
	start, err := strconv.ParseInt(cols[3], 10, 64)
	if err != nil {
		return Feature{}, errors.Wrap(err, "start")
	}
	end, err := strconv.ParseInt(cols[4], 10, 64)
	if err != nil {
		return Feature{}, errors.Wrap(err, "end")
	}
	iv, err := genome.NewInterval(cols[2], start, end)
	if err != nil {
		return Feature{}, err
	}
	strand := genome.StrandNone
	switch cols[5] {
	case "+":
		strand = genome.StrandForward
	case "-":
		strand = genome.StrandReverse
	}
	var parent string
	if len(cols) > 6 {
		parent = cols[6]
	}
	return Feature{
		Kind:       kind,
		Name:       cols[1],
		Interval:   iv,
		Strand:     strand,
		ParentGene: parent,
	}, nil
}
