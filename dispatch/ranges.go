// Copyright 2026 The Gocal Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dispatch splits a tensor.Dataset into chunk-sized row/channel
// ranges and runs the solver over them concurrently (§5).
package dispatch

import (
	"sort"

	"github.com/gocal/gocal/tensor"
)

// Range is a half-open [Start, End) index range along either axis.
type Range struct {
	Start, End int
}

// RowChunks splits the dataset's rows into chunks of approximately
// rowsPerChunk rows, snapped outward so that no chunk splits a group of
// rows sharing the same timestamp, and so that no chunk crosses a scan
// boundary (§5: "row chunks never split a unique timestamp or a scan").
// rowsPerChunk <= 0 means each scan segment is one chunk (the whole dataset
// when there are no scan boundaries).
func RowChunks(dataset *tensor.Dataset, rowsPerChunk int) []Range {
	nRow := dataset.NRow()
	if nRow == 0 {
		return nil
	}
	if rowsPerChunk <= 0 {
		rowsPerChunk = nRow
	}

	// Scan boundaries always cut a chunk, even mid-count; processed as
	// independent segments so that a rowsPerChunk-sized chunk can never
	// straddle one.
	segEnds := append([]int(nil), dataset.ScanBoundaries...)
	segEnds = append(segEnds, nRow)
	sort.Ints(segEnds)

	var ranges []Range
	segStart := 0
	for _, segEnd := range segEnds {
		if segEnd <= segStart || segEnd > nRow {
			continue
		}
		ranges = append(ranges, chunkSegment(dataset, segStart, segEnd, rowsPerChunk)...)
		segStart = segEnd
	}
	return ranges
}

// chunkSegment chunks [segStart, segEnd) into rowsPerChunk-sized pieces,
// snapped outward only far enough to avoid splitting a group of rows that
// share a timestamp — it never looks past segEnd, so a scan boundary is
// always respected.
func chunkSegment(dataset *tensor.Dataset, segStart, segEnd, rowsPerChunk int) []Range {
	var ranges []Range
	start := segStart
	for start < segEnd {
		end := start + rowsPerChunk
		if end > segEnd {
			end = segEnd
		}
		for end < segEnd && dataset.Time[end] == dataset.Time[end-1] {
			end++
		}
		ranges = append(ranges, Range{start, end})
		start = end
	}
	return ranges
}

// ChanChunks splits the dataset's channel axis into contiguous chunks of
// approximately chansPerChunk channels. chansPerChunk <= 0 means the whole
// band is one chunk.
func ChanChunks(dataset *tensor.Dataset, chansPerChunk int) []Range {
	nChan := dataset.NChan()
	if nChan == 0 {
		return nil
	}
	if chansPerChunk <= 0 {
		return []Range{{0, nChan}}
	}

	var ranges []Range
	for start := 0; start < nChan; start += chansPerChunk {
		end := start + chansPerChunk
		if end > nChan {
			end = nChan
		}
		ranges = append(ranges, Range{start, end})
	}
	return ranges
}
