// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// bio-packbed groups BED12 transcripts into connected components of
// overlapping records.
//
// Sample usage:
//
//   bio-packbed pack --bed a.bed,b.bed.gz --overlap_exon --type bin --out genes.bin
//   bio-packbed unpack --type comp --subdirs --out components genes.bin
//   bio-packbed extract --region chr1:1,000,000-2,000,000 --out region genes.bin
package main

import (
	"github.com/grailbio/base/grail"
	"github.com/grailbio/packbed/cmd/bio-packbed/cmd"
)

func main() {
	shutdown := grail.Init()
	defer shutdown()
	cmd.Run()
}
