// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package interval

import (
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestUnionFind(t *testing.T) {
	u := NewUnionFind(6)
	u.Union(4, 1)
	u.Union(5, 3)
	u.Union(3, 4)
	expect.EQ(t, u.Find(1), u.Find(5))
	expect.True(t, u.Find(0) != u.Find(1))
	expect.EQ(t, u.Groups(), [][]int{{0}, {1, 3, 4, 5}, {2}})
}

// Groups must not depend on the order in which unions were applied.
func TestUnionFindGroupsOrderIndependent(t *testing.T) {
	const n = 200
	r := rand.New(rand.NewSource(0))
	var pairs [][2]int
	for i := 0; i < n/2; i++ {
		pairs = append(pairs, [2]int{r.Intn(n), r.Intn(n)})
	}
	build := func(order []int) [][]int {
		u := NewUnionFind(n)
		for _, i := range order {
			u.Union(pairs[i][0], pairs[i][1])
		}
		return u.Groups()
	}
	want := build(r.Perm(len(pairs)))
	for iter := 0; iter < 10; iter++ {
		assert.EQ(t, build(r.Perm(len(pairs))), want)
	}
	total := 0
	for _, g := range want {
		total += len(g)
	}
	expect.EQ(t, total, n)
}
