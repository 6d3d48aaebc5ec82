// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package genome

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
)

// LoadAliasTable populates an AliasTable from the persisted contig-alias
// table (spec §6, "Persisted state": "a contig-alias table"). Each
// tab-separated row is canonical_id, length, comma-separated aliases (the
// alias column may be empty). The format mirrors annotation.LoadTable's
// plain TSV convention (annotation/table.go), but lives in its own small
// loader here since AliasTable, not Index, owns the parsed result.
func LoadAliasTable(path string) (*AliasTable, error) {
	ctx := vcontext.Background()
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "genome: opening alias table %s", path)
	}
	defer f.Close(ctx)

	t := NewAliasTable()
	sc := bufio.NewScanner(f.Reader(ctx))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 2 {
			return nil, errors.Errorf("genome: %s line %d: expected >= 2 columns, got %d", path, lineNo, len(cols))
		}
		length, err := strconv.ParseInt(cols[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "genome: %s line %d: length", path, lineNo)
		}
		var aliases []string
		if len(cols) > 2 && cols[2] != "" {
			aliases = strings.Split(cols[2], ",")
		}
		t.Add(cols[0], PosType(length), aliases...)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "genome: reading %s", path)
	}
	return t, nil
}
