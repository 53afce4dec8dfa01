// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"log"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/packbed/pack"
	"v.io/x/lib/cmdline"
)

// outputFlags are shared by the commands that write components.
type outputFlags struct {
	typ         *string
	out         *string
	subdirs     *bool
	colorize    *bool
	colorScheme *string
	threads     *int
}

func addOutputFlags(cmd *cmdline.Command, defaultType string) outputFlags {
	return outputFlags{
		typ: cmd.Flags.String("type", defaultType, `Output form, one of:
  bed:  all components in one BED12 file, grouped by component
  comp: one BED12 file per component, named <chrom>_<index>.bed
  bin:  binary component map, for later unpack/extract`),
		out: cmd.Flags.String("out", "", `Output path.  Defaults to comp.bed (bed),
components (comp) or components.bin (bin).  A .gz suffix compresses BED output.`),
		subdirs:     cmd.Flags.Bool("subdirs", false, "With --type comp, put each component file in its own directory"),
		colorize:    cmd.Flags.Bool("colorize", false, "With --type bed, give all members of a component the same itemRgb"),
		colorScheme: cmd.Flags.String("color-scheme", "palette", "Colors used by --colorize: palette, hsv or hash"),
		threads:     cmd.Flags.Int("threads", pack.DefaultOpts.Parallelism, "Number of worker threads. 0 means one per CPU"),
	}
}

func (f outputFlags) opts() (pack.OutputOpts, error) {
	o := pack.DefaultOutputOpts
	var err error
	if o.Type, err = pack.ParseOutputType(*f.typ); err != nil {
		return o, err
	}
	if o.ColorScheme, err = pack.ParseColorScheme(*f.colorScheme); err != nil {
		return o, err
	}
	o.Path = *f.out
	o.Subdirs = *f.subdirs
	o.Colorize = *f.colorize
	o.Parallelism = *f.threads
	return o, o.Validate()
}

func newCmdPack() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "pack",
		Short: "Cluster BED12 records into overlap components",
		Long: `
Pack reads one or more BED12 files (plain or gzipped), groups the records of
each chromosome into maximal sets of transitively overlapping transcripts, and
writes the result in the form chosen by --type.  By default two records overlap
when their transcript spans do; --overlap_cds compares coding regions instead
and --overlap_exon compares individual exons.`,
	}
	flags := packFlags{
		bed:         cmd.Flags.String("bed", "", "Comma-separated list of BED12 files"),
		overlapCDS:  cmd.Flags.Bool("overlap_cds", false, "Compare coding regions (thickStart, thickEnd)"),
		overlapExon: cmd.Flags.Bool("overlap_exon", false, "Compare exon blocks"),
	}
	flags.output = addOutputFlags(cmd, "bed")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("pack takes no positional arguments, but got %v", argv)
		}
		return runPack(vcontext.Background(), flags)
	})
	return cmd
}

func newCmdUnpack() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "unpack",
		Short:    "Convert a binary component map into BED12 files",
		ArgsName: "path",
	}
	output := addOutputFlags(cmd, "bed")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("unpack takes one pathname argument, but got %v", argv)
		}
		return runUnpack(vcontext.Background(), argv[0], output)
	})
	return cmd
}

func newCmdExtract() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "extract",
		Short:    "Write selected components of a binary component map",
		ArgsName: "path",
		Long: `
Extract writes the components picked by --hints or --region, one BED12 file per
component, into the --out directory.`,
	}
	flags := extractFlags{
		hints: cmd.Flags.String("hints", "", `Components to extract, as chrom:index[,index...] terms
separated by ';', e.g. "chr1:0,3;chr2:5"`),
		region: cmd.Flags.String("region", "", `Extract the components overlapping this region.
Format is chrom, chrom:pos or chrom:start-end, with 1-based closed coordinates.`),
		out:     cmd.Flags.String("out", ".", "Output directory"),
		subdirs: cmd.Flags.Bool("subdirs", false, "Put each component file in its own directory"),
		threads: cmd.Flags.Int("threads", pack.DefaultOpts.Parallelism, "Number of worker threads. 0 means one per CPU"),
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("extract takes one pathname argument, but got %v", argv)
		}
		return runExtract(vcontext.Background(), argv[0], flags)
	})
	return cmd
}

// Run is the entry point of bio-packbed.
func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-packbed",
			Short:    "Group overlapping BED12 transcripts into components",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdPack(),
				newCmdUnpack(),
				newCmdExtract(),
			},
		})
}
