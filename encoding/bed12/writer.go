// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed12

import (
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"
	gunsafe "github.com/grailbio/base/unsafe"
)

// Writer renders records as BED12 lines.  Block lists are written with a
// trailing comma, as UCSC tools do.
type Writer struct {
	tsvw    *tsv.Writer
	scratch []byte
}

// NewWriter creates a writer on top of out.  Flush must be called after the
// last Write.
func NewWriter(out io.Writer) *Writer {
	return &Writer{tsvw: tsv.NewWriter(out)}
}

// Write emits r unchanged.
func (w *Writer) Write(r *Record) error {
	return w.WriteColored(r, r.ItemRGB)
}

// WriteColored emits r with its itemRgb column replaced by rgb.
func (w *Writer) WriteColored(r *Record, rgb string) error {
	tsvw := w.tsvw
	tsvw.WriteString(r.Chrom)
	tsvw.WriteUint32(uint32(r.Start))
	tsvw.WriteUint32(uint32(r.End))
	tsvw.WriteString(r.Name)
	tsvw.WriteString(r.Score)
	tsvw.WriteByte(byte(r.Strand))
	tsvw.WriteUint32(uint32(r.ThickStart))
	tsvw.WriteUint32(uint32(r.ThickEnd))
	tsvw.WriteString(rgb)
	tsvw.WriteUint32(uint32(len(r.Blocks)))

	w.scratch = w.scratch[:0]
	for _, b := range r.Blocks {
		w.scratch = strconv.AppendUint(w.scratch, uint64(b.Size), 10)
		w.scratch = append(w.scratch, ',')
	}
	tsvw.WriteString(gunsafe.BytesToString(w.scratch))
	w.scratch = w.scratch[:0]
	for _, b := range r.Blocks {
		w.scratch = strconv.AppendUint(w.scratch, uint64(b.Offset), 10)
		w.scratch = append(w.scratch, ',')
	}
	tsvw.WriteString(gunsafe.BytesToString(w.scratch))
	return tsvw.EndLine()
}

// Flush writes buffered lines to the underlying writer.
func (w *Writer) Flush() error { return w.tsvw.Flush() }
