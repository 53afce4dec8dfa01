// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pack

import (
	"context"
	"sort"
	"time"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/sync/multierror"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/packbed/encoding/bed12"
)

// maxReportedErrors bounds the number of per-chromosome failures kept in the
// error returned by Pack.
const maxReportedErrors = 8

// Pack clusters records into overlap components, one chromosome per task, on a
// pool of opts.Parallelism workers.  The records slice becomes the arena of the
// returned map and must not be modified afterwards.
//
// A failing chromosome doesn't stop the others, but any failure fails the whole
// run: Pack never returns a partial map.  The result is identical for every
// parallelism setting.
func Pack(records []bed12.Record, opts Opts) (*ComponentMap, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	parts := Partition(records)
	chroms := make([]string, 0, len(parts))
	for chrom := range parts {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)

	t0 := time.Now()
	results := newConcurrentMap()
	chromErrs := make([]error, len(chroms))
	_ = traverse.Limit(opts.parallelism()).Each(len(chroms), func(i int) error {
		chrom := chroms[i]
		comps, err := Cluster(records, parts[chrom], opts.Criterion)
		if err != nil {
			chromErrs[i] = err
			return nil
		}
		log.Debug.Printf("pack: %s: %d record(s), %d component(s)", chrom, len(parts[chrom]), len(comps))
		results.insert(chrom, comps)
		return nil
	})
	// Errors are reported in chromosome order, whatever order the tasks ran in.
	errs := multierror.NewMultiError(maxReportedErrors)
	for _, err := range chromErrs {
		if err != nil {
			errs.Add(err)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	m := &ComponentMap{
		Criterion: opts.Criterion,
		Records:   records,
		Chroms:    results.drain(),
	}
	log.Printf("pack: clustered %d record(s) on %d chromosome(s) into %d component(s) by %v overlap in %v",
		len(records), len(chroms), m.Len(), opts.Criterion, time.Since(t0))
	return m, nil
}

// Run reads the BED12 files at paths and clusters their records.  Records are
// numbered in argument order, then line order.
func Run(ctx context.Context, paths []string, opts Opts) (*ComponentMap, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	records, err := bed12.ReadFiles(ctx, paths, opts.parallelism())
	if err != nil {
		return nil, err
	}
	return Pack(records, opts)
}
