// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pack

import (
	"fmt"
	"runtime"

	"github.com/grailbio/base/errors"
)

// Criterion selects the coordinates used to decide whether two records
// overlap.
type Criterion uint8

const (
	// WholeTranscript compares transcript spans (chromStart, chromEnd).
	WholeTranscript Criterion = iota
	// CdsOnly compares thick spans (thickStart, thickEnd).  Non-coding records
	// never overlap anything and end up in singleton components.
	CdsOnly
	// ExonOnly compares the individual exon blocks, so two transcripts whose
	// spans overlap only through an intron stay apart.
	ExonOnly

	numCriteria
)

// Valid reports whether c is one of the defined criteria.
func (c Criterion) Valid() bool { return c < numCriteria }

func (c Criterion) String() string {
	switch c {
	case WholeTranscript:
		return "transcript"
	case CdsOnly:
		return "cds"
	case ExonOnly:
		return "exon"
	}
	return fmt.Sprintf("Criterion(%d)", uint8(c))
}

// ParseCriterion parses the output of Criterion.String.  "tx" is accepted as
// an alias of "transcript".
func ParseCriterion(s string) (Criterion, error) {
	switch s {
	case "transcript", "tx":
		return WholeTranscript, nil
	case "cds":
		return CdsOnly, nil
	case "exon":
		return ExonOnly, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("pack: unknown overlap criterion %q", s))
}

// CriterionFromFlags maps the --overlap_cds/--overlap_exon flag pair to a
// criterion.  Setting both is a configuration error.
func CriterionFromFlags(overlapCDS, overlapExon bool) (Criterion, error) {
	switch {
	case overlapCDS && overlapExon:
		return 0, errors.E(errors.Invalid, "pack: --overlap_cds and --overlap_exon are mutually exclusive")
	case overlapCDS:
		return CdsOnly, nil
	case overlapExon:
		return ExonOnly, nil
	}
	return WholeTranscript, nil
}

// Opts controls a clustering run.
type Opts struct {
	// Criterion is the overlap test.
	Criterion Criterion
	// Parallelism is the worker-pool size for both file reading and
	// clustering.  0 means runtime.NumCPU().
	Parallelism int
}

// DefaultOpts is the default configuration.
var DefaultOpts = Opts{
	Criterion:   WholeTranscript,
	Parallelism: 8,
}

// Validate checks o for configuration errors.
func (o *Opts) Validate() error {
	if !o.Criterion.Valid() {
		return errors.E(errors.Invalid, fmt.Sprintf("pack: invalid criterion %v", o.Criterion))
	}
	if o.Parallelism < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("pack: negative parallelism %d", o.Parallelism))
	}
	return nil
}

func (o *Opts) parallelism() int {
	if o.Parallelism == 0 {
		return runtime.NumCPU()
	}
	return o.Parallelism
}
