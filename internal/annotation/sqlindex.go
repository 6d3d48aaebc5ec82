// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package annotation

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/grailbio/tgv/internal/genome"
)

// SQLSource implements Source against a UCSC-compatible refGene/ensGene-style
// schema (spec §4.2: "a remote SQL query over the UCSC-compatible schema").
// The concrete driver is injected by the caller via database/sql, per spec §1
// ("the SQL client ... used for annotation" is an external collaborator);
// SQLSource only depends on the standard database/sql interface.
type SQLSource struct {
	db    *sql.DB
	table string // e.g. "refGene"
}

// NewSQLSource wraps an already-open *sql.DB. table names the gene table to
// query (spec §6 -g genome selects the reference and implicitly the
// matching annotation table).
func NewSQLSource(db *sql.DB, table string) *SQLSource {
	return &SQLSource{db: db, table: table}
}

// Lookup implements Source.
func (s *SQLSource) Lookup(name string) (Feature, bool, error) {
	row := s.db.QueryRow(
		`SELECT name2, chrom, txStart, txEnd, strand FROM `+s.table+
			` WHERE LOWER(name2) = LOWER(?) OR LOWER(name) = LOWER(?) LIMIT 1`,
		name, name)
	var geneName, chrom, strandStr string
	var start, end int64
	if err := row.Scan(&geneName, &chrom, &start, &end, &strandStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Feature{}, false, nil
		}
		return Feature{}, false, errors.Wrapf(err, "annotation: sql lookup %q", name)
	}
	iv, err := genome.NewInterval(chrom, start, end)
	if err != nil {
		return Feature{}, false, err
	}
	return Feature{Kind: KindGene, Name: geneName, Interval: iv, Strand: parseStrand(strandStr)}, true, nil
}

// NextFeature implements Source. It always queries s.table's txStart/txEnd
// columns; kind is used only to label the returned Feature, not to pick a
// column family within the table. A caller wanting separate gene- and
// exon-level search must construct one SQLSource per table (e.g. "refGene"
// and an exon-level table) and always call NextFeature on the matching
// instance with the matching kind. The query orders by the relevant
// coordinate and direction and returns the first row strictly past from.
func (s *SQLSource) NextFeature(kind Kind, from genome.Position, dir Direction, useEnd bool) (Feature, bool, error) {
	col := "txStart"
	if useEnd {
		col = "txEnd"
	}
	op, order := ">", "ASC"
	if dir == Backward {
		op, order = "<", "DESC"
	}
	query := `SELECT name2, chrom, txStart, txEnd, strand FROM ` + s.table +
		` WHERE chrom = ? AND ` + col + ` ` + op + ` ? ORDER BY ` + col + ` ` + order + ` LIMIT 1`
	row := s.db.QueryRow(query, from.ContigID, from.Base)
	var geneName, chrom, strandStr string
	var start, end int64
	if err := row.Scan(&geneName, &chrom, &start, &end, &strandStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Feature{}, false, nil
		}
		return Feature{}, false, errors.Wrap(err, "annotation: sql next_feature")
	}
	iv, err := genome.NewInterval(chrom, start, end)
	if err != nil {
		return Feature{}, false, err
	}
	return Feature{Kind: kind, Name: geneName, Interval: iv, Strand: parseStrand(strandStr)}, true, nil
}

// FeaturesIn implements Source.
func (s *SQLSource) FeaturesIn(iv genome.Interval) ([]Feature, error) {
	rows, err := s.db.Query(
		`SELECT name2, chrom, txStart, txEnd, strand FROM `+s.table+
			` WHERE chrom = ? AND txStart < ? AND txEnd > ? ORDER BY txStart ASC`,
		iv.ContigID, iv.End, iv.Start)
	if err != nil {
		return nil, errors.Wrap(err, "annotation: sql features_in")
	}
	defer rows.Close()
	var out []Feature
	for rows.Next() {
		var geneName, chrom, strandStr string
		var start, end int64
		if err := rows.Scan(&geneName, &chrom, &start, &end, &strandStr); err != nil {
			return nil, errors.Wrap(err, "annotation: scanning features_in row")
		}
		featIv, err := genome.NewInterval(chrom, start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, Feature{Kind: KindGene, Name: geneName, Interval: featIv, Strand: parseStrand(strandStr)})
	}
	return out, rows.Err()
}

func parseStrand(s string) genome.Strand {
	switch strings.TrimSpace(s) {
	case "+":
		return genome.StrandForward
	case "-":
		return genome.StrandReverse
	default:
		return genome.StrandNone
	}
}
