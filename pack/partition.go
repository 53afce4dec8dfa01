// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pack

import "github.com/grailbio/packbed/encoding/bed12"

// Partition groups record IDs by chromosome, preserving input order within
// each chromosome.  Chromosomes never interact under any criterion, so each
// group is an independent unit of work.
func Partition(records []bed12.Record) map[string][]RecordID {
	parts := map[string][]RecordID{}
	for i := range records {
		chrom := records[i].Chrom
		parts[chrom] = append(parts[chrom], RecordID(i))
	}
	return parts
}
