// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/packbed/encoding/bed12"
	"github.com/klauspost/compress/gzip"
	"v.io/x/lib/vlog"
)

// OutputType selects the form in which a ComponentMap is emitted.
type OutputType uint8

const (
	// BEDOutput writes every component into one BED12 file.
	BEDOutput OutputType = iota
	// CompOutput writes one BED12 file per component.
	CompOutput
	// BinOutput writes the binary container (see package packio).
	BinOutput
)

func (t OutputType) String() string {
	switch t {
	case BEDOutput:
		return "bed"
	case CompOutput:
		return "comp"
	case BinOutput:
		return "bin"
	}
	return fmt.Sprintf("OutputType(%d)", uint8(t))
}

// ParseOutputType parses the output of OutputType.String.
func ParseOutputType(s string) (OutputType, error) {
	switch s {
	case "bed":
		return BEDOutput, nil
	case "comp":
		return CompOutput, nil
	case "bin":
		return BinOutput, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("pack: unknown output type %q (want bed, comp or bin)", s))
}

// DefaultPath is the output path used when none is given.
func (t OutputType) DefaultPath() string {
	switch t {
	case CompOutput:
		return "components"
	case BinOutput:
		return "components.bin"
	}
	return "comp.bed"
}

// OutputOpts controls how a ComponentMap is written.
type OutputOpts struct {
	// Type is the output form.
	Type OutputType
	// Path is the output file (BEDOutput, BinOutput) or directory
	// (CompOutput).  Empty means Type.DefaultPath().
	Path string
	// Subdirs puts each component file in a directory of its own.  CompOutput
	// only.
	Subdirs bool
	// Colorize overwrites itemRgb so that each component has one color.
	// BEDOutput only.
	Colorize bool
	// ColorScheme picks the colors when Colorize is set.
	ColorScheme ColorScheme
	// Parallelism bounds the number of component files written at once.  0
	// means runtime.NumCPU().
	Parallelism int
}

// DefaultOutputOpts is the default output configuration.
var DefaultOutputOpts = OutputOpts{
	Type:        BEDOutput,
	ColorScheme: PaletteColors,
	Parallelism: 8,
}

// Validate checks o for inconsistent settings.
func (o *OutputOpts) Validate() error {
	if o.Subdirs && o.Type != CompOutput {
		return errors.E(errors.Invalid, fmt.Sprintf("pack: --subdirs requires --type comp, not %v", o.Type))
	}
	if o.Colorize && o.Type != BEDOutput {
		return errors.E(errors.Invalid, fmt.Sprintf("pack: --colorize requires --type bed, not %v", o.Type))
	}
	if o.Parallelism < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("pack: negative parallelism %d", o.Parallelism))
	}
	return nil
}

// OutPath returns o.Path, or the type's default when it is empty.
func (o *OutputOpts) OutPath() string {
	if o.Path == "" {
		return o.Type.DefaultPath()
	}
	return o.Path
}

func (o *OutputOpts) parallelism() int {
	p := Opts{Parallelism: o.Parallelism}
	return p.parallelism()
}

func isLocal(path string) bool { return !strings.Contains(path, "://") }

// bedFile is a BED12 output file, gzip-compressed when the path ends in .gz.
type bedFile struct {
	path string
	out  file.File
	gz   *gzip.Writer
	w    *bed12.Writer
}

func createBED(ctx context.Context, path string) (*bedFile, error) {
	if isLocal(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.E(err, fmt.Sprintf("pack: mkdir for %s", path))
		}
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("pack: create %s", path))
	}
	b := &bedFile{path: path, out: out}
	if fileio.DetermineType(path) == fileio.Gzip {
		b.gz = gzip.NewWriter(out.Writer(ctx))
		b.w = bed12.NewWriter(b.gz)
	} else {
		b.w = bed12.NewWriter(out.Writer(ctx))
	}
	return b, nil
}

// close flushes and closes the file.  It must be called even after a write
// error; the first error wins.
func (b *bedFile) close(ctx context.Context, err error) error {
	if err == nil {
		err = b.w.Flush()
	}
	if b.gz != nil {
		if e := b.gz.Close(); e != nil && err == nil {
			err = e
		}
	}
	if e := b.out.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return errors.E(err, fmt.Sprintf("pack: write %s", b.path))
	}
	return nil
}

// WriteBED writes all components to a single BED12 file: chromosomes in
// canonical order, then components in order, then members in order.  With
// opts.Colorize, the i'th component in that sequence gets
// ComponentColor(opts.ColorScheme, m, comp, i).
func WriteBED(ctx context.Context, path string, m *ComponentMap, opts OutputOpts) error {
	b, err := createBED(ctx, path)
	if err != nil {
		return err
	}
	index, nRec := 0, 0
	for _, chrom := range m.ChromNames() {
		for _, comp := range m.Chroms[chrom] {
			rgb := ""
			if opts.Colorize {
				rgb = ComponentColor(opts.ColorScheme, m, comp, index)
			}
			for _, id := range comp {
				r := m.Record(id)
				if opts.Colorize {
					err = b.w.WriteColored(r, rgb)
				} else {
					err = b.w.Write(r)
				}
				if err != nil {
					return b.close(ctx, err)
				}
				nRec++
			}
			index++
		}
	}
	vlog.VI(1).Infof("%s: wrote %d record(s) in %d component(s)", path, nRec, index)
	return b.close(ctx, nil)
}

// ComponentPath returns the file that WriteComponents uses for the index'th
// component of chrom: dir/<chrom>_<index>.bed, or
// dir/comp_<chrom>_<index>/<chrom>_<index>.bed with subdirs.
func ComponentPath(dir, chrom string, index int, subdirs bool) string {
	base := fmt.Sprintf("%s_%d", chrom, index)
	if subdirs {
		return joinPath(dir, "comp_"+base+"/"+base+".bed")
	}
	return joinPath(dir, base+".bed")
}

// joinPath joins a local path or URL with a relative suffix.  filepath.Join
// would collapse the "//" of a URL scheme.
func joinPath(dir, rel string) string {
	if dir == "" {
		return rel
	}
	return strings.TrimSuffix(dir, "/") + "/" + rel
}

type compJob struct {
	chrom string
	index int
}

// WriteComponents writes each component to its own BED12 file under dir (see
// ComponentPath), at most opts.Parallelism files at a time.  Records keep
// their original itemRgb.
func WriteComponents(ctx context.Context, dir string, m *ComponentMap, opts OutputOpts) error {
	var jobs []compJob
	for _, chrom := range m.ChromNames() {
		for i := range m.Chroms[chrom] {
			jobs = append(jobs, compJob{chrom, i})
		}
	}
	if isLocal(dir) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.E(err, fmt.Sprintf("pack: mkdir %s", dir))
		}
	}
	err := traverse.Limit(opts.parallelism()).Each(len(jobs), func(i int) error {
		job := jobs[i]
		comp := m.Chroms[job.chrom][job.index]
		return writeComponent(ctx, ComponentPath(dir, job.chrom, job.index, opts.Subdirs), m, comp)
	})
	if err != nil {
		return err
	}
	vlog.VI(1).Infof("%s: wrote %d component file(s)", dir, len(jobs))
	return nil
}

func writeComponent(ctx context.Context, path string, m *ComponentMap, comp Component) error {
	b, err := createBED(ctx, path)
	if err != nil {
		return err
	}
	for _, id := range comp {
		if err := b.w.Write(m.Record(id)); err != nil {
			return b.close(ctx, err)
		}
	}
	return b.close(ctx, nil)
}

// Write emits m according to opts.Type.  BinOutput is handled by package
// packio and is rejected here.
func Write(ctx context.Context, m *ComponentMap, opts OutputOpts) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	switch opts.Type {
	case BEDOutput:
		return WriteBED(ctx, opts.OutPath(), m, opts)
	case CompOutput:
		return WriteComponents(ctx, opts.OutPath(), m, opts)
	}
	return errors.E(errors.Invalid, fmt.Sprintf("pack: output type %v must be written with packio", opts.Type))
}
