// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package interval

// UnionFind is an array-backed disjoint-set forest over the dense IDs
// [0, n).  Find uses path halving; Union links the smaller tree under the
// larger one.  Thread compatible.
type UnionFind struct {
	parent []int32
	size   []int32
}

// NewUnionFind creates a forest of n singleton sets.
func NewUnionFind(n int) *UnionFind {
	u := &UnionFind{
		parent: make([]int32, n),
		size:   make([]int32, n),
	}
	for i := range u.parent {
		u.parent[i] = int32(i)
		u.size[i] = 1
	}
	return u
}

// Find returns the representative of x's set.
func (u *UnionFind) Find(x int) int {
	p := u.parent
	for int(p[x]) != x {
		p[x] = p[p[x]]
		x = int(p[x])
	}
	return x
}

// Union merges the sets containing x and y, and returns the representative of
// the merged set.
func (u *UnionFind) Union(x, y int) int {
	rx, ry := u.Find(x), u.Find(y)
	if rx == ry {
		return rx
	}
	if u.size[rx] < u.size[ry] {
		rx, ry = ry, rx
	}
	u.parent[ry] = int32(rx)
	u.size[rx] += u.size[ry]
	return rx
}

// Groups flushes the forest into its sets.  Each set lists its members in
// increasing order, and the sets are ordered by their smallest member, so the
// result depends only on the partition, not on the order of Union calls.
func (u *UnionFind) Groups() [][]int {
	slot := make([]int32, len(u.parent))
	for i := range slot {
		slot[i] = -1
	}
	var groups [][]int
	for i := range u.parent {
		r := u.Find(i)
		if slot[r] < 0 {
			slot[r] = int32(len(groups))
			groups = append(groups, make([]int, 0, u.size[r]))
		}
		groups[slot[r]] = append(groups[slot[r]], i)
	}
	return groups
}
