// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed12

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// maxLineLen bounds a single BED line.  Transcripts with thousands of exons
// produce lines of a few tens of kilobytes at most.
const maxLineLen = 16 << 20

// Reader reads records from a BED12 stream.  Blank lines, '#' comments and
// UCSC "track"/"browser" header lines are skipped.
type Reader struct {
	path    string
	scanner *bufio.Scanner
	lineIdx int
	err     error
}

// NewReader creates a reader.  path is only used to label errors.
func NewReader(in io.Reader, path string) *Reader {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(nil, maxLineLen)
	return &Reader{path: path, scanner: scanner}
}

func isHeader(line []byte) bool {
	var tokens [1][]byte
	if getTokens(tokens[:], line) == 0 {
		return true
	}
	first := tokens[0]
	return first[0] == '#' || bytes.Equal(first, []byte("track")) || bytes.Equal(first, []byte("browser"))
}

// Read returns the next record.  It returns io.EOF at the end of the stream.
// A malformed line yields a *ParseError naming the path, line and column; the
// reader is unusable afterwards.
func (r *Reader) Read() (Record, error) {
	if r.err != nil {
		return Record{}, r.err
	}
	for r.scanner.Scan() {
		r.lineIdx++
		line := r.scanner.Bytes()
		if isHeader(line) {
			continue
		}
		rec, err := Parse(line)
		if err != nil {
			perr := err.(*ParseError)
			perr.Path = r.path
			perr.Line = r.lineIdx
			r.err = perr
			return Record{}, r.err
		}
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		r.err = errors.Wrapf(err, "%s: read failed after line %d", r.path, r.lineIdx)
	} else {
		r.err = io.EOF
	}
	return Record{}, r.err
}

// ReadAll reads the rest of the stream.
func (r *Reader) ReadAll() ([]Record, error) {
	var recs []Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}

// ReadFile reads every record in path.  Gzip input is detected from the file
// extension and decompressed transparently.
func ReadFile(ctx context.Context, path string) (recs []Record, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	reader := io.Reader(in.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(reader); err != nil {
			return nil, errors.Wrapf(err, "%s: gzip", path)
		}
		defer gz.Close() // nolint: errcheck
		reader = gz
	}
	if recs, err = NewReader(bufio.NewReaderSize(reader, 1<<20), path).ReadAll(); err != nil {
		return nil, err
	}
	log.Debug.Printf("bed12: %s: %d record(s)", path, len(recs))
	return recs, nil
}

// ReadFiles reads several files concurrently, with at most parallelism files
// open at once, and concatenates the records in argument order.  The result is
// therefore independent of scheduling.  The first error in argument order is
// returned.
func ReadFiles(ctx context.Context, paths []string, parallelism int) ([]Record, error) {
	if parallelism <= 0 {
		parallelism = 1
	}
	perFile := make([][]Record, len(paths))
	errs := make([]error, len(paths))
	_ = traverse.Limit(parallelism).Each(len(paths), func(i int) error {
		perFile[i], errs[i] = ReadFile(ctx, paths[i])
		return nil
	})
	n := 0
	for i := range paths {
		if errs[i] != nil {
			return nil, errs[i]
		}
		n += len(perFile[i])
	}
	recs := make([]Record, 0, n)
	for _, fr := range perFile {
		recs = append(recs, fr...)
	}
	log.Printf("bed12: read %d record(s) from %d file(s)", n, len(paths))
	return recs, nil
}
