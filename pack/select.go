// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pack

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/packbed/interval"
	"v.io/x/lib/vlog"
)

// Hint names components by position: Indices of the components of Chrom.
type Hint struct {
	Chrom   string
	Indices []int
}

// ParseHints parses a hint list of the form "chr1:0,3;chr2:5".  Chromosome
// names may themselves contain ':'; the last one separates the indices.
func ParseHints(s string) ([]Hint, error) {
	var hints []Hint
	for _, term := range strings.Split(s, ";") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		colon := strings.LastIndexByte(term, ':')
		if colon <= 0 || colon == len(term)-1 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("pack: hint %q: want chrom:index[,index...]", term))
		}
		h := Hint{Chrom: term[:colon]}
		for _, f := range strings.Split(term[colon+1:], ",") {
			idx, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil || idx < 0 {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("pack: hint %q: bad component index %q", term, f))
			}
			h.Indices = append(h.Indices, idx)
		}
		hints = append(hints, h)
	}
	if len(hints) == 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("pack: empty hint list %q", s))
	}
	return hints, nil
}

// Selection is one component picked out of a ComponentMap.
type Selection struct {
	Chrom     string
	Index     int
	Component Component
}

// Select returns the components named by hints, in hint order.  A component
// named twice is returned once.
func Select(m *ComponentMap, hints []Hint) ([]Selection, error) {
	var sels []Selection
	type key struct {
		chrom string
		index int
	}
	seen := map[key]bool{}
	for _, h := range hints {
		comps, ok := m.Chroms[h.Chrom]
		if !ok {
			return nil, errors.E(errors.NotExist, fmt.Sprintf("pack: chromosome %s not found", h.Chrom))
		}
		for _, idx := range h.Indices {
			if idx >= len(comps) {
				return nil, errors.E(errors.NotExist,
					fmt.Sprintf("pack: %s has %d component(s), no component %d", h.Chrom, len(comps), idx))
			}
			if k := (key{h.Chrom, idx}); !seen[k] {
				seen[k] = true
				sels = append(sels, Selection{Chrom: h.Chrom, Index: idx, Component: comps[idx]})
			}
		}
	}
	return sels, nil
}

// Footprint returns the union of the transcript spans of comp's members,
// sorted and disjoint.
func Footprint(m *ComponentMap, comp Component) []interval.Span {
	spans := make([]interval.Span, len(comp))
	for i, id := range comp {
		spans[i] = m.Record(id).Span()
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Less(spans[j]) })
	return interval.Union(spans)
}

// RegionIndex finds the components whose footprint overlaps a region.
type RegionIndex struct {
	m     *ComponentMap
	index *interval.Index
}

// NewRegionIndex indexes the footprints of every component in m.
func NewRegionIndex(m *ComponentMap) (*RegionIndex, error) {
	index := interval.NewIndex()
	for _, chrom := range m.ChromNames() {
		for i, comp := range m.Chroms[chrom] {
			for _, span := range Footprint(m, comp) {
				if err := index.Insert(chrom, span, i); err != nil {
					return nil, errors.E(err, fmt.Sprintf("pack: index %s component %d", chrom, i))
				}
			}
		}
	}
	index.Freeze()
	vlog.VI(1).Infof("pack: indexed %d footprint span(s) on %d chromosome(s)", index.Len(), len(m.Chroms))
	return &RegionIndex{m: m, index: index}, nil
}

// Query returns the components overlapping region, in component order.  An
// unknown chromosome is a NotExist error; a region that hits nothing yields an
// empty result.
func (x *RegionIndex) Query(region interval.Entry) ([]Selection, error) {
	comps, ok := x.m.Chroms[region.ChrName]
	if !ok {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("pack: chromosome %s not found", region.ChrName))
	}
	var sels []Selection
	for _, i := range x.index.Query(region) {
		sels = append(sels, Selection{Chrom: region.ChrName, Index: i, Component: comps[i]})
	}
	return sels, nil
}

// SelectRegion returns the components of m overlapping region.  Use
// RegionIndex directly to run many queries against one map.
func SelectRegion(m *ComponentMap, region interval.Entry) ([]Selection, error) {
	x, err := NewRegionIndex(m)
	if err != nil {
		return nil, err
	}
	return x.Query(region)
}

// WriteSelections writes each selection to ComponentPath(dir, chrom, index,
// subdirs), like WriteComponents does for the whole map.
func WriteSelections(ctx context.Context, dir string, m *ComponentMap, sels []Selection, opts OutputOpts) error {
	err := traverse.Limit(opts.parallelism()).Each(len(sels), func(i int) error {
		s := sels[i]
		return writeComponent(ctx, ComponentPath(dir, s.Chrom, s.Index, opts.Subdirs), m, s.Component)
	})
	if err != nil {
		return err
	}
	vlog.VI(1).Infof("%s: wrote %d selected component(s)", dir, len(sels))
	return nil
}
