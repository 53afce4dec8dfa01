// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/packbed/pack"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strFlag(s string) *string { return &s }
func boolFlag(b bool) *bool    { return &b }
func intFlag(i int) *int       { return &i }

func newOutputFlags(typ, out string) outputFlags {
	return outputFlags{
		typ:         strFlag(typ),
		out:         strFlag(out),
		subdirs:     boolFlag(false),
		colorize:    boolFlag(false),
		colorScheme: strFlag("palette"),
		threads:     intFlag(2),
	}
}

const (
	bedA = "chr1\t1\t500\ttxA\t0\t+\t1\t500\t0\t1\t99,\t0,\n" +
		"chr2\t10\t20\ttxC\t0\t-\t10\t10\t0\t1\t10,\t0,\n"
	bedB = "track name=b\n" +
		"chr1\t1\t500\ttxB\t0\t+\t1\t500\t0\t1\t100,\t199,\n"
)

func writeInputs(t *testing.T, dir string) string {
	a := filepath.Join(dir, "a.bed")
	b := filepath.Join(dir, "b.bed")
	require.NoError(t, ioutil.WriteFile(a, []byte(bedA), 0600))
	require.NoError(t, ioutil.WriteFile(b, []byte(bedB), 0600))
	return a + "," + b
}

func lines(t *testing.T, path string) []string {
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestPackUnpackExtract(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	beds := writeInputs(t, tempDir)

	// Transcript overlap, colorized BED.
	out := filepath.Join(tempDir, "comp.bed")
	flags := packFlags{
		bed:         strFlag(beds),
		overlapCDS:  boolFlag(false),
		overlapExon: boolFlag(false),
		output:      newOutputFlags("bed", out),
	}
	flags.output.colorize = boolFlag(true)
	require.NoError(t, runPack(ctx, flags))
	got := lines(t, out)
	require.Len(t, got, 3)
	assert.True(t, strings.HasPrefix(got[0], "chr1\t1\t500\ttxA\t0\t+\t1\t500\t"+pack.Palette[0]+"\t"))
	assert.Contains(t, got[1], "txB\t0\t+\t1\t500\t"+pack.Palette[0]+"\t")
	assert.Contains(t, got[2], "txC\t0\t-\t10\t10\t"+pack.Palette[1]+"\t")

	// Exon overlap into the binary form, then back out.
	bin := filepath.Join(tempDir, "genes.bin")
	flags = packFlags{
		bed:         strFlag(beds),
		overlapCDS:  boolFlag(false),
		overlapExon: boolFlag(true),
		output:      newOutputFlags("bin", bin),
	}
	require.NoError(t, runPack(ctx, flags))

	compDir := filepath.Join(tempDir, "components")
	unpack := newOutputFlags("comp", compDir)
	unpack.subdirs = boolFlag(true)
	require.NoError(t, runUnpack(ctx, bin, unpack))
	for _, name := range []string{"comp_chr1_0/chr1_0.bed", "comp_chr1_1/chr1_1.bed", "comp_chr2_0/chr2_0.bed"} {
		assert.Len(t, lines(t, filepath.Join(compDir, name)), 1, name)
	}
	assert.Contains(t, lines(t, filepath.Join(compDir, "comp_chr1_1/chr1_1.bed"))[0], "txB")

	extractDir := filepath.Join(tempDir, "extract")
	ex := extractFlags{
		hints:   strFlag("chr1:1;chr2:0"),
		region:  strFlag(""),
		out:     strFlag(extractDir),
		subdirs: boolFlag(false),
		threads: intFlag(2),
	}
	require.NoError(t, runExtract(ctx, bin, ex))
	entries, err := ioutil.ReadDir(extractDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "chr1_1.bed", entries[0].Name())
	assert.Equal(t, "chr2_0.bed", entries[1].Name())

	regionDir := filepath.Join(tempDir, "region")
	ex.hints = strFlag("")
	ex.region = strFlag("chr1:250-260")
	ex.out = strFlag(regionDir)
	require.NoError(t, runExtract(ctx, bin, ex))
	assert.Contains(t, lines(t, filepath.Join(regionDir, "chr1_0.bed"))[0], "txA")
	assert.Contains(t, lines(t, filepath.Join(regionDir, "chr1_1.bed"))[0], "txB")

	ex.region = strFlag("chr1:600-700")
	ex.out = strFlag(filepath.Join(tempDir, "none"))
	require.NoError(t, runExtract(ctx, bin, ex))
	_, err = os.Stat(filepath.Join(tempDir, "none"))
	assert.True(t, os.IsNotExist(err))
}

func TestConfigErrors(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	beds := writeInputs(t, tempDir)

	invalid := func(err error, substr string) {
		require.Error(t, err)
		assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
		assert.Contains(t, err.Error(), substr)
	}

	flags := packFlags{
		bed:         strFlag(beds),
		overlapCDS:  boolFlag(true),
		overlapExon: boolFlag(true),
		output:      newOutputFlags("bed", filepath.Join(tempDir, "x.bed")),
	}
	invalid(runPack(ctx, flags), "mutually exclusive")

	flags.overlapExon = boolFlag(false)
	flags.output.subdirs = boolFlag(true)
	invalid(runPack(ctx, flags), "--subdirs")

	flags.output = newOutputFlags("comp", filepath.Join(tempDir, "c"))
	flags.output.colorize = boolFlag(true)
	invalid(runPack(ctx, flags), "--colorize")

	flags.output = newOutputFlags("tsv", "")
	invalid(runPack(ctx, flags), "tsv")

	flags.output = newOutputFlags("bed", "")
	flags.bed = strFlag(" , ")
	invalid(runPack(ctx, flags), "--bed")

	invalid(runUnpack(ctx, "x.bin", newOutputFlags("bin", "")), "bed or comp")

	ex := extractFlags{
		hints:   strFlag(""),
		region:  strFlag(""),
		out:     strFlag(tempDir),
		subdirs: boolFlag(false),
		threads: intFlag(1),
	}
	invalid(runExtract(ctx, "x.bin", ex), "exactly one")
	ex.region = strFlag("chr1:0-")
	invalid(runExtract(ctx, "x.bin", ex), "out of range")
}

func TestPackParseError(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	bad := filepath.Join(tempDir, "bad.bed")
	require.NoError(t, ioutil.WriteFile(bad, []byte(
		"chr1\t1\t500\ttxA\t0\t+\t1\t500\t0\t1\t99,\t0,\n"+
			"chr1\t1\t500\ttxB\t0\t+\t1\t500\t0\t1\t99,\n"), 0600))
	flags := packFlags{
		bed:         strFlag(bad),
		overlapCDS:  boolFlag(false),
		overlapExon: boolFlag(false),
		output:      newOutputFlags("bed", filepath.Join(tempDir, "out.bed")),
	}
	err := runPack(context.Background(), flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.bed:2")
	_, err = os.Stat(filepath.Join(tempDir, "out.bed"))
	assert.True(t, os.IsNotExist(err))
}
