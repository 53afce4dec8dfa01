// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pack

import (
	"fmt"
	"sort"

	"github.com/grailbio/packbed/encoding/bed12"
	"github.com/grailbio/packbed/interval"
)

// ClusterError reports a record that cannot be clustered, e.g., an inverted
// span in a programmatically constructed record.  Records produced by
// bed12.Parse never trigger it.
type ClusterError struct {
	Chrom string
	ID    RecordID
	Name  string
	Msg   string
}

func (e *ClusterError) Error() string {
	return fmt.Sprintf("pack: %s: record %d (%s): %s", e.Chrom, e.ID, e.Name, e.Msg)
}

// keyedSpan is a span tagged with its owner.  For transcript-level sweeps the
// owner is a RecordID; for exon sweeps it is the owner's sort position.
type keyedSpan struct {
	span  interval.Span
	owner int32
}

// sortKeyed sorts by (start, end, owner).  The owner tie-break makes the order
// total, so the result never depends on the input permutation.
func sortKeyed(items []keyedSpan) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.span != b.span {
			return a.span.Less(b.span)
		}
		return a.owner < b.owner
	})
}

func criterionSpan(r *bed12.Record, c Criterion) interval.Span {
	if c == CdsOnly {
		span, _ := r.CDS()
		return span
	}
	return r.Span()
}

func checkRecord(records []bed12.Record, chrom string, id RecordID) error {
	r := &records[id]
	if r.Chrom != chrom {
		return &ClusterError{Chrom: chrom, ID: id, Name: r.Name, Msg: fmt.Sprintf("belongs to %s", r.Chrom)}
	}
	if r.End < r.Start {
		return &ClusterError{Chrom: chrom, ID: id, Name: r.Name, Msg: fmt.Sprintf("inverted span %v", r.Span())}
	}
	return nil
}

// Cluster partitions the records of one chromosome into maximal components
// under criterion c.  ids must all refer to records on the same chromosome.
// Every ID appears in exactly one component.
//
// Components and their members are ordered by the stable key (start, end,
// RecordID) of the criterion span, so the output depends only on the records
// and the criterion.  See clusterSpans and clusterExons for details.
func Cluster(records []bed12.Record, ids []RecordID, c Criterion) ([]Component, error) {
	if len(ids) == 0 {
		return []Component{}, nil
	}
	chrom := records[ids[0]].Chrom
	for _, id := range ids {
		if err := checkRecord(records, chrom, id); err != nil {
			return nil, err
		}
	}
	switch c {
	case WholeTranscript, CdsOnly:
		return clusterSpans(records, ids, c), nil
	case ExonOnly:
		return clusterExons(records, chrom, ids)
	}
	return nil, fmt.Errorf("pack: invalid criterion %v", c)
}

// clusterSpans implements the transcript and CDS criteria with a single
// sort-and-sweep: a record joins the open component iff it starts before the
// running maximum end.
//
// A record whose criterion span is empty (a non-coding record under CdsOnly,
// or a zero-length transcript) can't overlap anything.  Each such record forms
// its own component; these follow the swept components, ordered by transcript
// span and ID.
func clusterSpans(records []bed12.Record, ids []RecordID, c Criterion) []Component {
	items := make([]keyedSpan, 0, len(ids))
	var empties []keyedSpan
	for _, id := range ids {
		r := &records[id]
		span := criterionSpan(r, c)
		if span.Empty() {
			empties = append(empties, keyedSpan{span: r.Span(), owner: int32(id)})
			continue
		}
		items = append(items, keyedSpan{span: span, owner: int32(id)})
	}
	sortKeyed(items)
	sortKeyed(empties)

	comps := make([]Component, 0, len(empties)+1)
	var m interval.Merger
	for _, it := range items {
		if !m.Add(it.span) {
			comps = append(comps, Component{})
		}
		last := len(comps) - 1
		comps[last] = append(comps[last], RecordID(it.owner))
	}
	for _, it := range empties {
		comps = append(comps, Component{RecordID(it.owner)})
	}
	return comps
}

// clusterExons implements ExonOnly.  Exon-level overlap is not reducible to one
// span per record, so the sweep runs over all exons of the chromosome and
// unions the owners of overlapping exons in a disjoint-set forest indexed by
// the owners' transcript sort positions.
//
// Components are ordered by their first member's sort position and members by
// sort position.  A record without non-empty exons is a singleton.
func clusterExons(records []bed12.Record, chrom string, ids []RecordID) ([]Component, error) {
	byPos := make([]keyedSpan, len(ids))
	nExon := 0
	for i, id := range ids {
		byPos[i] = keyedSpan{span: records[id].Span(), owner: int32(id)}
		nExon += len(records[id].Blocks)
	}
	sortKeyed(byPos)

	exons := make([]keyedSpan, 0, nExon)
	for pos, item := range byPos {
		r := &records[item.owner]
		for _, e := range r.Exons() {
			if e.End > r.End || e.Start < r.Start {
				return nil, &ClusterError{Chrom: chrom, ID: RecordID(item.owner), Name: r.Name,
					Msg: fmt.Sprintf("exon %v outside transcript %v", e, r.Span())}
			}
			if e.Empty() {
				continue
			}
			exons = append(exons, keyedSpan{span: e, owner: int32(pos)})
		}
	}
	sortKeyed(exons)

	uf := interval.NewUnionFind(len(byPos))
	var (
		m      interval.Merger
		anchor int
	)
	for _, e := range exons {
		if m.Add(e.span) {
			uf.Union(anchor, int(e.owner))
		} else {
			anchor = int(e.owner)
		}
	}

	groups := uf.Groups()
	comps := make([]Component, len(groups))
	for i, g := range groups {
		comp := make(Component, len(g))
		for j, pos := range g {
			comp[j] = RecordID(byPos[pos].owner)
		}
		comps[i] = comp
	}
	return comps, nil
}
