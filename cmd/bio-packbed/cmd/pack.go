// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/packbed/encoding/packio"
	"github.com/grailbio/packbed/interval"
	"github.com/grailbio/packbed/pack"
)

type packFlags struct {
	bed         *string
	overlapCDS  *bool
	overlapExon *bool
	output      outputFlags
}

type extractFlags struct {
	hints   *string
	region  *string
	out     *string
	subdirs *bool
	threads *int
}

func splitPaths(list string) []string {
	var paths []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// writeMap emits m in the form selected by o.
func writeMap(ctx context.Context, m *pack.ComponentMap, o pack.OutputOpts) error {
	if o.Type == pack.BinOutput {
		return packio.WriteFile(ctx, o.OutPath(), m)
	}
	return pack.Write(ctx, m, o)
}

func runPack(ctx context.Context, flags packFlags) error {
	// All configuration is checked before any input is read.
	paths := splitPaths(*flags.bed)
	if len(paths) == 0 {
		return errors.E(errors.Invalid, "pack: --bed is required")
	}
	criterion, err := pack.CriterionFromFlags(*flags.overlapCDS, *flags.overlapExon)
	if err != nil {
		return err
	}
	outOpts, err := flags.output.opts()
	if err != nil {
		return err
	}
	m, err := pack.Run(ctx, paths, pack.Opts{Criterion: criterion, Parallelism: outOpts.Parallelism})
	if err != nil {
		return err
	}
	if err = writeMap(ctx, m, outOpts); err != nil {
		return err
	}
	log.Printf("pack: wrote %d component(s) to %s (%v)", m.Len(), outOpts.OutPath(), outOpts.Type)
	return nil
}

func runUnpack(ctx context.Context, path string, output outputFlags) error {
	outOpts, err := output.opts()
	if err != nil {
		return err
	}
	if outOpts.Type == pack.BinOutput {
		return errors.E(errors.Invalid, "unpack: --type must be bed or comp")
	}
	m, err := packio.ReadFile(ctx, path)
	if err != nil {
		return err
	}
	return writeMap(ctx, m, outOpts)
}

func runExtract(ctx context.Context, path string, flags extractFlags) error {
	if (*flags.hints == "") == (*flags.region == "") {
		return errors.E(errors.Invalid, "extract: exactly one of --hints and --region is required")
	}
	outOpts := pack.OutputOpts{
		Type:        pack.CompOutput,
		Path:        *flags.out,
		Subdirs:     *flags.subdirs,
		Parallelism: *flags.threads,
	}
	if err := outOpts.Validate(); err != nil {
		return err
	}
	var (
		hints  []pack.Hint
		region interval.Entry
		err    error
	)
	if *flags.hints != "" {
		if hints, err = pack.ParseHints(*flags.hints); err != nil {
			return err
		}
	} else if region, err = interval.ParseRegionString(*flags.region); err != nil {
		return errors.E(errors.Invalid, err)
	}

	m, err := packio.ReadFile(ctx, path)
	if err != nil {
		return err
	}
	var sels []pack.Selection
	if hints != nil {
		sels, err = pack.Select(m, hints)
	} else {
		sels, err = pack.SelectRegion(m, region)
	}
	if err != nil {
		return err
	}
	if len(sels) == 0 {
		log.Printf("extract: nothing selected in %s", path)
		return nil
	}
	if err = pack.WriteSelections(ctx, outOpts.OutPath(), m, sels, outOpts); err != nil {
		return err
	}
	log.Printf("extract: wrote %d component(s) to %s", len(sels), outOpts.OutPath())
	return nil
}
