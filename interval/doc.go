// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*Package interval provides the coordinate primitives shared by the BED12
  reader and the component clusterer: half-open genomic spans, region strings,
  a disjoint-set forest over dense integer IDs, and a span index for overlap
  queries.
  It assumes every position fits in a PosType, which is currently defined as
  int32 since no assembled chromosome comes close to 2^31 bases.
*/
package interval
