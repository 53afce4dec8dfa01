// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package interval

import (
	"fmt"
	"math"
)

// PosType is the type used to represent interval coordinates.  int32 should be
// wide enough for some time to come; every coordinate in a BED12 line is
// validated against PosTypeMax when parsed.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// Span is a 0-based half-open interval [Start, End) on one chromosome.
type Span struct {
	Start PosType
	End   PosType
}

// Len returns the number of bases covered by s.
func (s Span) Len() PosType { return s.End - s.Start }

// Empty reports whether s covers no bases.  A span with End < Start is also
// considered empty.
func (s Span) Empty() bool { return s.End <= s.Start }

// Overlaps reports whether s and o share at least one base.  Empty spans never
// overlap anything, and spans that merely touch ([a, b) and [b, c)) don't
// overlap.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End && !s.Empty() && !o.Empty()
}

// Less orders spans by start, then by end.
func (s Span) Less(o Span) bool {
	if s.Start != o.Start {
		return s.Start < o.Start
	}
	return s.End < o.End
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Merger tracks the running union of a stream of non-empty spans sorted by
// start.  It is the single-pass sweep used both for transcript-level
// clustering and for exon-level union-find.
//
// Usage:
//   var m Merger
//   for _, s := range sorted {
//     if !m.Add(s) {
//       // s starts a new run; the previous run (if any) is closed.
//     }
//   }
type Merger struct {
	run  Span
	open bool
}

// Add folds s into the current run if it overlaps it, extending the run's end
// when necessary, and returns true.  Otherwise the current run is replaced by
// s and Add returns false.  The first call always returns false.
//
// REQUIRES: s is non-empty, and s.Start is >= the start of every span
// previously passed to Add.
func (m *Merger) Add(s Span) bool {
	if m.open && s.Start < m.run.End {
		if s.Start < m.run.Start {
			panic(fmt.Sprintf("interval.Merger: unsorted input %v after %v", s, m.run))
		}
		if s.End > m.run.End {
			m.run.End = s.End
		}
		return true
	}
	m.run = s
	m.open = true
	return false
}

// Run returns the current run.  It is the zero Span if Add has not been called.
func (m *Merger) Run() Span { return m.run }

// Union merges overlapping spans and drops empty ones.  The input must be
// sorted by start; the result is sorted and pairwise disjoint.
func Union(sorted []Span) []Span {
	var (
		m      Merger
		result []Span
	)
	for _, s := range sorted {
		if s.Empty() {
			continue
		}
		if m.Add(s) {
			result[len(result)-1] = m.Run()
		} else {
			result = append(result, s)
		}
	}
	return result
}
