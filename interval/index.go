// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package interval

import (
	"sort"

	biointerval "github.com/biogo/store/interval"
)

// Index answers overlap queries against a fixed collection of spans, each
// tagged with an integer value (typically a component index).  Spans are
// grouped by chromosome; each chromosome gets its own interval tree.
//
// All Insert calls must precede Freeze, and all Query calls must follow it.
type Index struct {
	trees  map[string]*biointerval.IntTree
	nextID uintptr
	frozen bool
}

type indexedSpan struct {
	span  Span
	id    uintptr
	value int
}

func (s indexedSpan) Overlap(b biointerval.IntRange) bool {
	return int(s.span.End) > b.Start && int(s.span.Start) < b.End
}
func (s indexedSpan) ID() uintptr { return s.id }
func (s indexedSpan) Range() biointerval.IntRange {
	return biointerval.IntRange{Start: int(s.span.Start), End: int(s.span.End)}
}

type spanQuery Span

func (q spanQuery) Overlap(b biointerval.IntRange) bool {
	return int(q.End) > b.Start && int(q.Start) < b.End
}
func (q spanQuery) ID() uintptr { return 0 }
func (q spanQuery) Range() biointerval.IntRange {
	return biointerval.IntRange{Start: int(q.Start), End: int(q.End)}
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{trees: map[string]*biointerval.IntTree{}}
}

// Insert adds span s on chrom, tagged with value.  Empty spans are ignored,
// since they can never overlap a query.
func (x *Index) Insert(chrom string, s Span, value int) error {
	if x.frozen {
		panic("interval.Index: Insert after Freeze")
	}
	if s.Empty() {
		return nil
	}
	t, ok := x.trees[chrom]
	if !ok {
		t = &biointerval.IntTree{}
		x.trees[chrom] = t
	}
	x.nextID++
	return t.Insert(indexedSpan{span: s, id: x.nextID, value: value}, true)
}

// Freeze finalizes the trees.  It must be called once, after the last Insert.
func (x *Index) Freeze() {
	for _, t := range x.trees {
		t.AdjustRanges()
	}
	x.frozen = true
}

// Query returns the distinct values of all spans overlapping e, in increasing
// order.
func (x *Index) Query(e Entry) []int {
	if !x.frozen {
		panic("interval.Index: Query before Freeze")
	}
	t, ok := x.trees[e.ChrName]
	if !ok || e.Span().Empty() {
		return nil
	}
	seen := map[int]bool{}
	var values []int
	for _, hit := range t.Get(spanQuery(e.Span())) {
		v := hit.(indexedSpan).value
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Ints(values)
	return values
}

// Len returns the number of spans in the index.
func (x *Index) Len() int {
	n := 0
	for _, t := range x.trees {
		n += t.Len()
	}
	return n
}
