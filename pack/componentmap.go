// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pack

import (
	"sort"

	"github.com/grailbio/packbed/encoding/bed12"
)

// RecordID identifies a record by its index in ComponentMap.Records.  IDs are
// assigned in input order (files in argument order, lines in file order), so
// they double as the input-order tie-breaker during clustering.
type RecordID int32

// Component is a maximal group of transitively overlapping records, in
// clustering sort order.
type Component []RecordID

// ComponentMap is the result of a clustering run.  Records is the arena that
// owns every record; components refer into it by ID.
type ComponentMap struct {
	// Criterion is the overlap test the components were built with.
	Criterion Criterion
	// Records is the arena.  It is never modified after construction.
	Records []bed12.Record
	// Chroms maps a chromosome name to its components.  A chromosome may map to
	// an empty list.
	Chroms map[string][]Component
}

// Record returns the record with the given ID.
func (m *ComponentMap) Record(id RecordID) *bed12.Record { return &m.Records[id] }

// ChromNames returns the chromosome names in canonical (byte-wise lexical)
// order.  Every consumer that serializes or prints the map iterates in this
// order.
func (m *ComponentMap) ChromNames() []string {
	names := make([]string, 0, len(m.Chroms))
	for chrom := range m.Chroms {
		names = append(names, chrom)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of components.
func (m *ComponentMap) Len() int {
	n := 0
	for _, comps := range m.Chroms {
		n += len(comps)
	}
	return n
}

// Equal checks that m and o have the same criterion, the same records in the
// same arena order, and the same grouping, treating nil and empty slices
// alike.
func (m *ComponentMap) Equal(o *ComponentMap) bool {
	if m.Criterion != o.Criterion || len(m.Records) != len(o.Records) || len(m.Chroms) != len(o.Chroms) {
		return false
	}
	for i := range m.Records {
		if !m.Records[i].Equal(&o.Records[i]) {
			return false
		}
	}
	for chrom, comps := range m.Chroms {
		ocomps, ok := o.Chroms[chrom]
		if !ok || len(comps) != len(ocomps) {
			return false
		}
		for i := range comps {
			if len(comps[i]) != len(ocomps[i]) {
				return false
			}
			for j := range comps[i] {
				if comps[i][j] != ocomps[i][j] {
					return false
				}
			}
		}
	}
	return true
}
