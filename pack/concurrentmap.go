// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pack

import (
	"fmt"
	"sync"

	"blainsmith.com/go/seahash"
	gunsafe "github.com/grailbio/base/unsafe"
)

const numConcurrentMapShards = 64

type mapShard struct {
	mu    sync.Mutex
	comps map[string][]Component
}

// concurrentMap is a sharded, thread-safe map from chromosome name to its
// components.  Clustering workers publish into it as they finish.
type concurrentMap struct {
	shards [numConcurrentMapShards]mapShard
}

func newConcurrentMap() *concurrentMap {
	m := &concurrentMap{}
	for i := 0; i < len(m.shards); i++ {
		m.shards[i].comps = make(map[string][]Component)
	}
	return m
}

func (m *concurrentMap) shard(chrom string) *mapShard {
	h := seahash.Sum64(gunsafe.StringToBytes(chrom))
	return &m.shards[int(h%uint64(numConcurrentMapShards))]
}

// insert records the components of chrom.  Each chromosome is clustered by
// exactly one worker, so a second insert for the same name is a bug.
func (m *concurrentMap) insert(chrom string, comps []Component) {
	shard := m.shard(chrom)
	shard.mu.Lock()
	if _, ok := shard.comps[chrom]; ok {
		shard.mu.Unlock()
		panic(fmt.Sprintf("pack: chromosome %s clustered twice", chrom))
	}
	shard.comps[chrom] = comps
	shard.mu.Unlock()
}

// drain merges the shards into one map.  It must be called after all workers
// have finished.
func (m *concurrentMap) drain() map[string][]Component {
	n := 0
	for i := range m.shards {
		n += len(m.shards[i].comps)
	}
	all := make(map[string][]Component, n)
	for i := range m.shards {
		s := &m.shards[i]
		for chrom, comps := range s.comps {
			all[chrom] = comps
		}
		s.comps = nil
	}
	return all
}
