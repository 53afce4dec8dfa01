// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pack

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/packbed/encoding/bed12"
	"github.com/grailbio/packbed/interval"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func sampleMap(t *testing.T) *ComponentMap {
	records := []bed12.Record{
		tx("chr2", 10, 20, "d"),
		tx("chr1", 1, 100, "a"),
		tx("chr1", 50, 150, "b"),
		tx("chr1", 300, 400, "c"),
	}
	m, err := Pack(records, DefaultOpts)
	assert.NoError(t, err)
	return m
}

func readLines(t *testing.T, path string) []string {
	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestWriteBED(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	m := sampleMap(t)

	path := filepath.Join(tempDir, "plain.bed")
	assert.NoError(t, WriteBED(ctx, path, m, DefaultOutputOpts))
	expect.EQ(t, readLines(t, path), []string{
		"chr1\t1\t100\ta\t0\t+\t1\t100\t0\t1\t99,\t0,",
		"chr1\t50\t150\tb\t0\t+\t50\t150\t0\t1\t100,\t0,",
		"chr1\t300\t400\tc\t0\t+\t300\t400\t0\t1\t100,\t0,",
		"chr2\t10\t20\td\t0\t+\t10\t20\t0\t1\t10,\t0,",
	})

	opts := DefaultOutputOpts
	opts.Colorize = true
	path = filepath.Join(tempDir, "sub", "color.bed")
	assert.NoError(t, WriteBED(ctx, path, m, opts))
	var colors []string
	for _, line := range readLines(t, path) {
		colors = append(colors, strings.Split(line, "\t")[8])
	}
	expect.EQ(t, colors, []string{Palette[0], Palette[0], Palette[1], Palette[2]})

	// Colorizing never touches the arena.
	expect.EQ(t, m.Record(0).ItemRGB, "0")
}

func TestWriteBEDGzip(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	m := sampleMap(t)

	path := filepath.Join(tempDir, "out.bed.gz")
	assert.NoError(t, WriteBED(ctx, path, m, DefaultOutputOpts))
	recs, err := bed12.ReadFile(ctx, path)
	assert.NoError(t, err)
	assert.EQ(t, len(recs), 4)
	expect.EQ(t, recs[0].Name, "a")
	expect.True(t, recs[3].Equal(m.Record(0)))
}

func TestWriteComponents(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	m := sampleMap(t)

	for _, subdirs := range []bool{false, true} {
		dir := filepath.Join(tempDir, "flat")
		if subdirs {
			dir = filepath.Join(tempDir, "nested")
		}
		opts := OutputOpts{Type: CompOutput, Path: dir, Subdirs: subdirs, Parallelism: 3}
		assert.NoError(t, Write(ctx, m, opts))

		expect.EQ(t, readLines(t, ComponentPath(dir, "chr1", 0, subdirs)), []string{
			"chr1\t1\t100\ta\t0\t+\t1\t100\t0\t1\t99,\t0,",
			"chr1\t50\t150\tb\t0\t+\t50\t150\t0\t1\t100,\t0,",
		})
		expect.EQ(t, len(readLines(t, ComponentPath(dir, "chr1", 1, subdirs))), 1)
		expect.EQ(t, len(readLines(t, ComponentPath(dir, "chr2", 0, subdirs))), 1)
		entries, err := ioutil.ReadDir(dir)
		assert.NoError(t, err)
		expect.EQ(t, len(entries), 3)
		for _, e := range entries {
			expect.EQ(t, e.IsDir(), subdirs, e.Name())
		}
	}
	expect.EQ(t, ComponentPath("out", "chr1", 3, false), "out/chr1_3.bed")
	expect.EQ(t, ComponentPath("out/", "chr1", 3, true), "out/comp_chr1_3/chr1_3.bed")
	expect.EQ(t, ComponentPath("s3://bucket/x", "chrM", 0, false), "s3://bucket/x/chrM_0.bed")
}

func TestOutputOpts(t *testing.T) {
	for _, typ := range []OutputType{BEDOutput, CompOutput, BinOutput} {
		got, err := ParseOutputType(typ.String())
		assert.NoError(t, err)
		expect.EQ(t, got, typ)
	}
	_, err := ParseOutputType("vcf")
	expect.True(t, errors.Is(errors.Invalid, err))

	o := OutputOpts{Type: BEDOutput, Subdirs: true}
	expect.HasSubstr(t, o.Validate().Error(), "--subdirs")
	o = OutputOpts{Type: CompOutput, Colorize: true}
	expect.HasSubstr(t, o.Validate().Error(), "--colorize")
	o = OutputOpts{Type: CompOutput, Subdirs: true}
	expect.NoError(t, o.Validate())
	expect.EQ(t, o.OutPath(), "components")
	o = OutputOpts{Type: BinOutput}
	expect.EQ(t, o.OutPath(), "components.bin")
	o.Path = "x.bin"
	expect.EQ(t, o.OutPath(), "x.bin")
	expect.EQ(t, DefaultOutputOpts.Type.DefaultPath(), "comp.bed")

	err = Write(context.Background(), &ComponentMap{}, OutputOpts{Type: BinOutput})
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestComponentColor(t *testing.T) {
	m := sampleMap(t)
	comp := m.Chroms["chr1"][0]
	for i := 0; i < 2*len(Palette); i++ {
		expect.EQ(t, ComponentColor(PaletteColors, m, comp, i), Palette[i%len(Palette)])
	}

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		c := ComponentColor(HSVColors, m, comp, i)
		expect.EQ(t, len(strings.Split(c, ",")), 3, c)
		expect.EQ(t, ComponentColor(HSVColors, m, comp, i), c)
		seen[c] = true
	}
	expect.EQ(t, len(seen), 20)

	// Hash colors follow the members, not the position.
	h := ComponentColor(HashColors, m, comp, 0)
	expect.EQ(t, ComponentColor(HashColors, m, comp, 7), h)
	found := false
	for _, p := range Palette {
		found = found || p == h
	}
	expect.True(t, found, h)

	for _, s := range []ColorScheme{PaletteColors, HSVColors, HashColors} {
		got, err := ParseColorScheme(s.String())
		assert.NoError(t, err)
		expect.EQ(t, got, s)
	}
	_, err := ParseColorScheme("rainbow")
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestHints(t *testing.T) {
	hints, err := ParseHints("chr1:0,3; chr2:5;HLA-A*01:01:1")
	assert.NoError(t, err)
	expect.EQ(t, hints, []Hint{
		{Chrom: "chr1", Indices: []int{0, 3}},
		{Chrom: "chr2", Indices: []int{5}},
		{Chrom: "HLA-A*01:01", Indices: []int{1}},
	})
	for _, bad := range []string{"", ";", "chr1", "chr1:", ":1", "chr1:x", "chr1:-1", "chr1:1,,2"} {
		_, err := ParseHints(bad)
		expect.True(t, errors.Is(errors.Invalid, err), bad)
	}
}

func TestSelect(t *testing.T) {
	m := sampleMap(t)
	sels, err := Select(m, []Hint{{"chr2", []int{0}}, {"chr1", []int{1, 0, 1}}})
	assert.NoError(t, err)
	assert.EQ(t, len(sels), 3)
	expect.EQ(t, sels[0], Selection{Chrom: "chr2", Index: 0, Component: Component{0}})
	expect.EQ(t, sels[1], Selection{Chrom: "chr1", Index: 1, Component: Component{3}})
	expect.EQ(t, sels[2], Selection{Chrom: "chr1", Index: 0, Component: Component{1, 2}})

	_, err = Select(m, []Hint{{"chr1", []int{2}}})
	expect.True(t, errors.Is(errors.NotExist, err), "%v", err)
	_, err = Select(m, []Hint{{"chrX", []int{0}}})
	expect.True(t, errors.Is(errors.NotExist, err), "%v", err)
}

func TestSelectRegion(t *testing.T) {
	m := sampleMap(t)
	expect.EQ(t, Footprint(m, m.Chroms["chr1"][0]), []interval.Span{{Start: 1, End: 150}})

	query := func(region string) []int {
		e, err := interval.ParseRegionString(region)
		assert.NoError(t, err)
		sels, err := SelectRegion(m, e)
		assert.NoError(t, err)
		var idx []int
		for _, s := range sels {
			idx = append(idx, s.Index)
		}
		return idx
	}
	expect.EQ(t, query("chr1:120-350"), []int{0, 1})
	expect.EQ(t, query("chr1:151-300"), []int(nil))
	expect.EQ(t, query("chr1:301"), []int{1})
	expect.EQ(t, query("chr1"), []int{0, 1})
	expect.EQ(t, query("chr2:1-15"), []int{0})

	_, err := SelectRegion(m, interval.Entry{ChrName: "chrX", End: 10})
	expect.True(t, errors.Is(errors.NotExist, err), "%v", err)

	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	e, err := interval.ParseRegionString("chr1:1-1000")
	assert.NoError(t, err)
	sels, err := SelectRegion(m, e)
	assert.NoError(t, err)
	assert.NoError(t, WriteSelections(context.Background(), tempDir, m, sels, DefaultOutputOpts))
	expect.EQ(t, len(readLines(t, ComponentPath(tempDir, "chr1", 0, false))), 2)
	expect.EQ(t, len(readLines(t, ComponentPath(tempDir, "chr1", 1, false))), 1)
}
