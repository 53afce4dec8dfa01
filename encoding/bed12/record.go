// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bed12 reads and writes BED12 transcript records.  See
// https://genome.ucsc.edu/FAQ/FAQformat.html#format1.  Briefly, each line has
// twelve whitespace-separated columns:
//
//   chrom chromStart chromEnd name score strand thickStart thickEnd itemRgb
//   blockCount blockSizes blockStarts
//
// chromStart/chromEnd is a 0-based half-open transcript span, thickStart/
// thickEnd is the coding region (empty for non-coding transcripts), and the
// two comma-separated block lists give the exons as (size, offset) pairs, with
// offsets relative to chromStart.  For example:
//
//   chr1	100	200	tx1	0	+	110	190	0	3	20,20,20,	0,30,80,
package bed12

import (
	"strings"

	"github.com/grailbio/packbed/interval"
)

// Strand is the transcript orientation column.
type Strand byte

const (
	// Forward is the '+' strand.
	Forward Strand = '+'
	// Reverse is the '-' strand.
	Reverse Strand = '-'
	// Unknown is the '.' strand.
	Unknown Strand = '.'
)

// Valid reports whether s is one of the three strand values BED allows.
func (s Strand) Valid() bool {
	return s == Forward || s == Reverse || s == Unknown
}

func (s Strand) String() string { return string(s) }

// Block is one exon, relative to the owning transcript's start.
type Block struct {
	Offset interval.PosType
	Size   interval.PosType
}

// Record is one parsed BED12 line.  Records are never modified after parsing;
// code that needs a variant (e.g., a recolored line) passes the override to
// the Writer instead.
type Record struct {
	Chrom      string
	Start      interval.PosType
	End        interval.PosType
	Name       string
	Score      string
	Strand     Strand
	ThickStart interval.PosType
	ThickEnd   interval.PosType
	ItemRGB    string
	Blocks     []Block
}

// Span returns the transcript span.
func (r *Record) Span() interval.Span {
	return interval.Span{Start: r.Start, End: r.End}
}

// IsCoding reports whether the record has a non-empty thick region.
func (r *Record) IsCoding() bool { return r.ThickEnd > r.ThickStart }

// CDS returns the thick (coding) span.  ok is false for non-coding records.
func (r *Record) CDS() (span interval.Span, ok bool) {
	return interval.Span{Start: r.ThickStart, End: r.ThickEnd}, r.IsCoding()
}

// Exons returns the blocks as absolute spans, in block order.
func (r *Record) Exons() []interval.Span {
	exons := make([]interval.Span, len(r.Blocks))
	for i, b := range r.Blocks {
		exons[i] = interval.Span{Start: r.Start + b.Offset, End: r.Start + b.Offset + b.Size}
	}
	return exons
}

// Equal compares every field.  Nil and empty block lists are equal.
func (r *Record) Equal(o *Record) bool {
	if r.Chrom != o.Chrom || r.Start != o.Start || r.End != o.End ||
		r.Name != o.Name || r.Score != o.Score || r.Strand != o.Strand ||
		r.ThickStart != o.ThickStart || r.ThickEnd != o.ThickEnd ||
		r.ItemRGB != o.ItemRGB || len(r.Blocks) != len(o.Blocks) {
		return false
	}
	for i := range r.Blocks {
		if r.Blocks[i] != o.Blocks[i] {
			return false
		}
	}
	return true
}

// String renders r as a BED12 line without the trailing newline.
func (r *Record) String() string {
	var sb strings.Builder
	w := NewWriter(&sb)
	if err := w.Write(r); err != nil {
		return "<" + err.Error() + ">"
	}
	if err := w.Flush(); err != nil {
		return "<" + err.Error() + ">"
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
