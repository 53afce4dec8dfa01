// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package packio stores a pack.ComponentMap in a versioned, checksummed binary
// container, so that a clustering run can be written out with
// "bio-packbed pack --type bin" and turned into BED files later without
// re-reading and re-clustering the input.
//
// Layout, all integers little-endian:
//
//   magic      [8]byte  "PACKBED\n"
//   version    uint16
//   flags      uint8    bit 0: body is snappy-compressed
//   criterion  uint8
//   rawLen     uvarint  length of the uncompressed body
//   storedLen  uvarint  length of the body as stored
//   body       [storedLen]byte
//   checksum   uint64   highwayhash Sum64 of version, flags, criterion,
//                       rawLen and the uncompressed body
//
// The uncompressed body holds the sorted chromosome table, the record arena
// and the components:
//
//   nChroms uvarint, then nChroms length-prefixed names
//   nRecords uvarint, then per record:
//     chrom index uvarint, start varint, end-start uvarint,
//     name, score, itemRgb (length-prefixed), strand byte,
//     thickStart-start varint, thickEnd-start varint,
//     nBlocks uvarint, then per block offset uvarint, size uvarint
//   nMapChroms uvarint, then per chromosome in increasing index order:
//     chrom index uvarint, nComponents uvarint,
//     per component nMembers uvarint followed by the member RecordIDs
//
// Nothing after the checksum is allowed.
package packio

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/packbed/encoding/bed12"
	"github.com/grailbio/packbed/interval"
	"github.com/grailbio/packbed/pack"
	"github.com/minio/highwayhash"
)

const (
	// Magic starts every container.
	Magic = "PACKBED\n"
	// Version is the layout version written by Marshal.  Unmarshal rejects
	// any other version.
	Version uint16 = 1

	flagSnappy uint8 = 1 << 0
	knownFlags       = flagSnappy
)

// checksumKey is the fixed highwayhash key.  Changing it invalidates every
// existing file.
var checksumKey = []byte("packbed component map checksum!!")

// checksum covers the body and every header field that affects how it is
// decoded.
func checksum(flags uint8, criterion pack.Criterion, body []byte) uint64 {
	b := byteBuffer(make([]byte, 0, len(body)+16))
	b.PutUint16(Version)
	b.PutUint8(flags)
	b.PutUint8(uint8(criterion))
	b.PutUvarint64(uint64(len(body)))
	b.PutBytes(body)
	return highwayhash.Sum64(b, checksumKey)
}

// Opts controls encoding.
type Opts struct {
	// Compress snappy-compresses the body.
	Compress bool
}

// DefaultOpts is used by Marshal and WriteFile.
var DefaultOpts = Opts{Compress: true}

// checkRecord returns a non-empty message if r can't be represented.  The
// decoder applies the same checks, so everything Marshal accepts round-trips.
func checkRecord(r *bed12.Record) string {
	switch {
	case r.Start < 0 || r.End < r.Start:
		return fmt.Sprintf("bad span %v", r.Span())
	case r.ThickEnd < r.ThickStart:
		return fmt.Sprintf("thickEnd %d < thickStart %d", r.ThickEnd, r.ThickStart)
	case !r.Strand.Valid():
		return fmt.Sprintf("bad strand %q", byte(r.Strand))
	}
	for i, b := range r.Blocks {
		if b.Offset < 0 || b.Size < 0 || int64(b.Offset)+int64(b.Size) > int64(r.End-r.Start) {
			return fmt.Sprintf("block %d (%d+%d) outside span %v", i, b.Offset, b.Size, r.Span())
		}
	}
	return ""
}

// chromTable returns the sorted union of the map's chromosomes and the
// records' chromosomes.
func chromTable(m *pack.ComponentMap) ([]string, map[string]int) {
	index := map[string]int{}
	for chrom := range m.Chroms {
		index[chrom] = 0
	}
	for i := range m.Records {
		index[m.Records[i].Chrom] = 0
	}
	names := make([]string, 0, len(index))
	for chrom := range index {
		names = append(names, chrom)
	}
	sort.Strings(names)
	for i, chrom := range names {
		index[chrom] = i
	}
	return names, index
}

func encodeBody(m *pack.ComponentMap) ([]byte, error) {
	names, index := chromTable(m)
	b := byteBuffer(make([]byte, 0, 64*len(m.Records)+16))
	b.PutUvarint64(uint64(len(names)))
	for _, chrom := range names {
		b.PutString(chrom)
	}

	b.PutUvarint64(uint64(len(m.Records)))
	for i := range m.Records {
		r := &m.Records[i]
		if msg := checkRecord(r); msg != "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("packio: record %d (%s): %s", i, r.Name, msg))
		}
		b.PutUvarint64(uint64(index[r.Chrom]))
		b.PutVarint64(int64(r.Start))
		b.PutUvarint64(uint64(r.End - r.Start))
		b.PutString(r.Name)
		b.PutString(r.Score)
		b.PutString(r.ItemRGB)
		b.PutUint8(uint8(r.Strand))
		b.PutVarint64(int64(r.ThickStart - r.Start))
		b.PutVarint64(int64(r.ThickEnd - r.Start))
		b.PutUvarint64(uint64(len(r.Blocks)))
		for _, blk := range r.Blocks {
			b.PutUvarint64(uint64(blk.Offset))
			b.PutUvarint64(uint64(blk.Size))
		}
	}

	chroms := m.ChromNames()
	seen := make([]bool, len(m.Records))
	b.PutUvarint64(uint64(len(chroms)))
	for _, chrom := range chroms {
		comps := m.Chroms[chrom]
		b.PutUvarint64(uint64(index[chrom]))
		b.PutUvarint64(uint64(len(comps)))
		for i, comp := range comps {
			if len(comp) == 0 {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("packio: %s: component %d is empty", chrom, i))
			}
			b.PutUvarint64(uint64(len(comp)))
			for _, id := range comp {
				if id < 0 || int(id) >= len(m.Records) || seen[id] || m.Records[id].Chrom != chrom {
					return nil, errors.E(errors.Invalid,
						fmt.Sprintf("packio: %s: component %d: bad or repeated record %d", chrom, i, id))
				}
				seen[id] = true
				b.PutUvarint64(uint64(id))
			}
		}
	}
	for id, ok := range seen {
		if !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("packio: record %d belongs to no component", id))
		}
	}
	return b, nil
}

// Marshal encodes m with DefaultOpts.
func Marshal(m *pack.ComponentMap) ([]byte, error) {
	return MarshalOpts(m, DefaultOpts)
}

// MarshalOpts encodes m.  Records that no BED12 line could produce (inverted
// spans, blocks outside the span) are rejected with an Invalid error.
func MarshalOpts(m *pack.ComponentMap, opts Opts) ([]byte, error) {
	if !m.Criterion.Valid() {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("packio: invalid criterion %v", m.Criterion))
	}
	body, err := encodeBody(m)
	if err != nil {
		return nil, err
	}
	var flags uint8
	stored := body
	if opts.Compress {
		flags |= flagSnappy
		stored = snappy.Encode(nil, body)
	}
	out := byteBuffer(make([]byte, 0, len(stored)+32))
	out.PutBytes([]byte(Magic))
	out.PutUint16(Version)
	out.PutUint8(flags)
	out.PutUint8(uint8(m.Criterion))
	out.PutUvarint64(uint64(len(body)))
	out.PutUvarint64(uint64(len(stored)))
	out.PutBytes(stored)
	out.PutUint64(checksum(flags, m.Criterion, body))
	return out, nil
}

func integrityError(err *DecodeError) error {
	return errors.E(errors.Integrity, err)
}

// Unmarshal decodes a container produced by Marshal.  Any malformed input
// yields an Integrity error wrapping a *DecodeError; a partial map is never
// returned.
func Unmarshal(data []byte) (*pack.ComponentMap, error) {
	d := newDecoder(data)
	d.at("magic", -1)
	if magic := d.RawBytes(len(Magic)); d.err == nil && !bytes.Equal(magic, []byte(Magic)) {
		d.off -= len(Magic)
		d.fail("not a packbed container (magic %q)", magic)
	}
	d.at("version", -1)
	if v := d.Uint16(); d.err == nil && v != Version {
		d.off -= 2
		d.fail("unsupported version %d, want %d", v, Version)
	}
	d.at("flags", -1)
	flags := d.Uint8()
	if d.err == nil && flags&^knownFlags != 0 {
		d.off--
		d.fail("unknown flags %#x", flags)
	}
	d.at("criterion", -1)
	criterion := pack.Criterion(d.Uint8())
	if d.err == nil && !criterion.Valid() {
		d.off--
		d.fail("bad criterion %d", uint8(criterion))
	}
	d.at("rawLen", -1)
	rawLen := d.Uvarint64()
	d.at("storedLen", -1)
	storedLen := d.Count(1)
	d.at("body", -1)
	stored := d.RawBytes(storedLen)
	d.at("checksum", -1)
	sum := d.Uint64()
	if d.err == nil && d.remaining() != 0 {
		d.fail("%d trailing byte(s)", d.remaining())
	}
	if d.err != nil {
		return nil, integrityError(d.err)
	}

	body := stored
	if flags&flagSnappy != 0 {
		n, err := snappy.DecodedLen(stored)
		if err == nil && uint64(n) != rawLen {
			err = fmt.Errorf("decoded length %d, header says %d", n, rawLen)
		}
		if err == nil {
			body, err = snappy.Decode(nil, stored)
		}
		if err != nil {
			return nil, integrityError(&DecodeError{Offset: 0, Field: "body", Msg: err.Error()})
		}
	} else if uint64(len(body)) != rawLen {
		return nil, integrityError(&DecodeError{Offset: 0, Field: "body",
			Msg: fmt.Sprintf("length %d, header says %d", len(body), rawLen)})
	}
	if got := checksum(flags, criterion, body); got != sum {
		return nil, integrityError(&DecodeError{Offset: 0, Field: "checksum",
			Msg: fmt.Sprintf("header and body hash to %#x, stored %#x", got, sum)})
	}
	m, derr := decodeBody(body, criterion)
	if derr != nil {
		return nil, integrityError(derr)
	}
	return m, nil
}

func decodeBody(body []byte, criterion pack.Criterion) (*pack.ComponentMap, *DecodeError) {
	d := newDecoder(body)
	d.at("nChroms", -1)
	names := make([]string, d.Count(1))
	for i := range names {
		d.at("chrom", i)
		names[i] = d.LenString()
		if d.err == nil && i > 0 && names[i] <= names[i-1] {
			d.fail("chromosome table not sorted: %q after %q", names[i], names[i-1])
		}
	}

	d.at("nRecords", -1)
	// A record takes at least 10 bytes.
	records := make([]bed12.Record, d.Count(10))
	for i := range records {
		if d.err != nil {
			return nil, d.err
		}
		r := &records[i]
		d.at("record.chrom", i)
		chromIdx := d.Uvarint64()
		if d.err == nil && chromIdx >= uint64(len(names)) {
			d.fail("chromosome index %d out of range", chromIdx)
		}
		if d.err == nil {
			r.Chrom = names[chromIdx]
		}
		d.at("record.start", i)
		start := d.Varint64()
		d.at("record.len", i)
		length := d.Uvarint64()
		if d.err == nil && (start < 0 || start > interval.PosTypeMax || length > uint64(interval.PosTypeMax-start)) {
			d.fail("span start %d length %d out of range", start, length)
		}
		r.Start = interval.PosType(start)
		r.End = interval.PosType(start + int64(length))
		d.at("record.name", i)
		r.Name = d.LenString()
		d.at("record.score", i)
		r.Score = d.LenString()
		d.at("record.itemRgb", i)
		r.ItemRGB = d.LenString()
		d.at("record.strand", i)
		r.Strand = bed12.Strand(d.Uint8())
		d.at("record.thick", i)
		thickStart := start + d.Varint64()
		thickEnd := start + d.Varint64()
		if d.err == nil && (thickStart < 0 || thickEnd < 0 || thickStart > interval.PosTypeMax || thickEnd > interval.PosTypeMax) {
			d.fail("thick span [%d,%d) out of range", thickStart, thickEnd)
		}
		r.ThickStart = interval.PosType(thickStart)
		r.ThickEnd = interval.PosType(thickEnd)
		d.at("record.blocks", i)
		nBlocks := d.Count(2)
		if nBlocks > 0 {
			r.Blocks = make([]bed12.Block, nBlocks)
		}
		for j := range r.Blocks {
			offset := d.Uvarint64()
			size := d.Uvarint64()
			if d.err == nil && (offset > uint64(interval.PosTypeMax) || size > uint64(interval.PosTypeMax)) {
				d.fail("block %d out of range", j)
			}
			r.Blocks[j] = bed12.Block{Offset: interval.PosType(offset), Size: interval.PosType(size)}
		}
		if d.err == nil {
			if msg := checkRecord(r); msg != "" {
				d.at("record", i)
				d.fail("%s", msg)
			}
		}
	}

	d.at("nMapChroms", -1)
	nMapChroms := d.Count(2)
	chroms := make(map[string][]pack.Component, nMapChroms)
	seen := make([]bool, len(records))
	nSeen := 0
	lastChrom := -1
	for c := 0; c < nMapChroms && d.err == nil; c++ {
		d.at("map.chrom", c)
		chromIdx := d.Uvarint64()
		if d.err == nil && (chromIdx >= uint64(len(names)) || int(chromIdx) <= lastChrom) {
			d.fail("chromosome index %d out of range or out of order", chromIdx)
			break
		}
		lastChrom = int(chromIdx)
		chrom := names[chromIdx]
		d.at("map.components", c)
		comps := make([]pack.Component, d.Count(2))
		for k := range comps {
			d.at("map.component", k)
			comp := make(pack.Component, d.Count(1))
			if d.err == nil && len(comp) == 0 {
				d.fail("empty component on %s", chrom)
			}
			for j := range comp {
				id := d.Uvarint64()
				if d.err != nil {
					break
				}
				if id >= uint64(len(records)) || seen[id] || records[id].Chrom != chrom {
					d.fail("member %d of component on %s: bad or repeated record %d", j, chrom, id)
					break
				}
				seen[id] = true
				nSeen++
				comp[j] = pack.RecordID(id)
			}
			comps[k] = comp
		}
		chroms[chrom] = comps
	}
	if d.err == nil && nSeen != len(records) {
		d.at("map", -1)
		d.fail("%d of %d record(s) belong to no component", len(records)-nSeen, len(records))
	}
	if d.err == nil && d.remaining() != 0 {
		d.at("body", -1)
		d.fail("%d trailing byte(s)", d.remaining())
	}
	if d.err != nil {
		return nil, d.err
	}
	return &pack.ComponentMap{Criterion: criterion, Records: records, Chroms: chroms}, nil
}

// WriteFile marshals m and writes it to path.
func WriteFile(ctx context.Context, path string, m *pack.ComponentMap) (err error) {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, fmt.Sprintf("packio: create %s", path))
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = errors.E(cerr, fmt.Sprintf("packio: close %s", path))
		}
	}()
	if _, err = out.Writer(ctx).Write(data); err != nil {
		return errors.E(err, fmt.Sprintf("packio: write %s", path))
	}
	log.Printf("packio: %s: wrote %d component(s), %d record(s), %d byte(s)", path, m.Len(), len(m.Records), len(data))
	return nil
}

// ReadFile reads a container written by WriteFile.
func ReadFile(ctx context.Context, path string) (m *pack.ComponentMap, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("packio: open %s", path))
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = errors.E(cerr, fmt.Sprintf("packio: close %s", path))
		}
	}()
	data, err := ioutil.ReadAll(in.Reader(ctx))
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("packio: read %s", path))
	}
	if m, err = Unmarshal(data); err != nil {
		return nil, errors.E(err, path)
	}
	log.Debug.Printf("packio: %s: read %d component(s), %d record(s)", path, m.Len(), len(m.Records))
	return m, nil
}
