// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed12

import (
	"bytes"
	"fmt"
	"strconv"

	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/packbed/interval"
)

// NumFields is the number of columns in a BED12 line.
const NumFields = 12

var fieldNames = [NumFields]string{
	"chrom", "chromStart", "chromEnd", "name", "score", "strand",
	"thickStart", "thickEnd", "itemRgb", "blockCount", "blockSizes", "blockStarts",
}

// ParseError describes a line that does not decode into a valid record.
type ParseError struct {
	// Path and Line locate the offending line.  They are empty/zero when Parse
	// is called directly.
	Path string
	Line int
	// Field is the BED12 column name, or "line" for column-count errors.
	Field string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Path == "" && e.Line == 0 {
		return fmt.Sprintf("bed12: field %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("%s:%d: bed12: field %s: %s", e.Path, e.Line, e.Field, e.Msg)
}

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

func fieldErr(col int, format string, args ...interface{}) *ParseError {
	return &ParseError{Field: fieldNames[col], Msg: fmt.Sprintf(format, args...)}
}

func parsePos(tokens [][]byte, col int) (interval.PosType, error) {
	v, err := strconv.ParseInt(gunsafe.BytesToString(tokens[col]), 10, 64)
	if err != nil {
		return 0, fieldErr(col, "not an integer: %q", tokens[col])
	}
	if v < 0 || v >= interval.PosTypeMax {
		return 0, fieldErr(col, "coordinate %d out of range", v)
	}
	return interval.PosType(v), nil
}

// parseList parses a comma-separated list of non-negative integers.  A single
// trailing comma is allowed, as UCSC tools emit one.
func parseList(tokens [][]byte, col int, dst []interval.PosType) ([]interval.PosType, error) {
	list := tokens[col]
	if n := len(list); n > 0 && list[n-1] == ',' {
		list = list[:n-1]
	}
	for len(list) > 0 {
		var item []byte
		if i := bytes.IndexByte(list, ','); i >= 0 {
			item, list = list[:i], list[i+1:]
			if len(list) == 0 {
				return nil, fieldErr(col, "malformed list %q", tokens[col])
			}
		} else {
			item, list = list, nil
		}
		v, err := strconv.ParseInt(gunsafe.BytesToString(item), 10, 64)
		if err != nil || v < 0 || v >= interval.PosTypeMax {
			return nil, fieldErr(col, "malformed list element %q", item)
		}
		dst = append(dst, interval.PosType(v))
	}
	return dst, nil
}

// Parse decodes one BED12 line.  The returned record does not alias line.  On
// failure the error is a *ParseError with Field set; Path and Line are filled
// in by Reader.
func Parse(line []byte) (Record, error) {
	var tokens [NumFields + 1][]byte
	if n := getTokens(tokens[:], line); n != NumFields {
		return Record{}, &ParseError{Field: "line", Msg: fmt.Sprintf("expected %d columns, found %d", NumFields, n)}
	}
	var (
		r   Record
		err error
	)
	r.Chrom = string(tokens[0])
	if r.Start, err = parsePos(tokens[:], 1); err != nil {
		return Record{}, err
	}
	if r.End, err = parsePos(tokens[:], 2); err != nil {
		return Record{}, err
	}
	if r.End < r.Start {
		return Record{}, fieldErr(2, "chromEnd %d precedes chromStart %d", r.End, r.Start)
	}
	r.Name = string(tokens[3])
	r.Score = string(tokens[4])
	if len(tokens[5]) != 1 || !Strand(tokens[5][0]).Valid() {
		return Record{}, fieldErr(5, "expected one of +-., found %q", tokens[5])
	}
	r.Strand = Strand(tokens[5][0])
	if r.ThickStart, err = parsePos(tokens[:], 6); err != nil {
		return Record{}, err
	}
	if r.ThickEnd, err = parsePos(tokens[:], 7); err != nil {
		return Record{}, err
	}
	if r.ThickEnd < r.ThickStart {
		return Record{}, fieldErr(7, "thickEnd %d precedes thickStart %d", r.ThickEnd, r.ThickStart)
	}
	r.ItemRGB = string(tokens[8])

	blockCount, err := strconv.Atoi(gunsafe.BytesToString(tokens[9]))
	if err != nil || blockCount < 1 {
		return Record{}, fieldErr(9, "expected a positive integer, found %q", tokens[9])
	}
	var scratch [2 * 16]interval.PosType
	sizes, err := parseList(tokens[:], 10, scratch[:0:16])
	if err != nil {
		return Record{}, err
	}
	if len(sizes) != blockCount {
		return Record{}, fieldErr(10, "%d sizes for blockCount %d", len(sizes), blockCount)
	}
	starts, err := parseList(tokens[:], 11, scratch[16:16])
	if err != nil {
		return Record{}, err
	}
	if len(starts) != blockCount {
		return Record{}, fieldErr(11, "%d starts for blockCount %d", len(starts), blockCount)
	}
	txLen := r.End - r.Start
	r.Blocks = make([]Block, blockCount)
	for i := range r.Blocks {
		if starts[i] > txLen || sizes[i] > txLen-starts[i] {
			return Record{}, fieldErr(11, "block %d [%d,+%d) exceeds transcript length %d", i, starts[i], sizes[i], txLen)
		}
		r.Blocks[i] = Block{Offset: starts[i], Size: sizes[i]}
	}
	return r, nil
}
