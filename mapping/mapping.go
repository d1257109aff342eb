// Copyright 2026 The Gocal Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mapping builds the interval tables (§4.1) that translate
// per-row times and per-channel frequencies into the solution-cell indices
// a gain term solves over.
package mapping

import (
	"sort"

	"github.com/cpmech/gosl/chk"
)

// Interval describes a requested solution interval (§4.1, §6): either an
// integer count of unique timestamps/channels, a floating-point duration in
// seconds or Hz, or 0 meaning "entire chunk".
type Interval struct {
	// Count is used whenever Count > 0.
	Count int
	// Duration is used when Count == 0 and Duration > 0.
	Duration float64
}

// IsWholeChunk reports whether the interval collapses onto a single bin.
func (iv Interval) IsWholeChunk() bool { return iv.Count == 0 && iv.Duration == 0 }

// Tables bundles the mapping tables for a single gain term, computed once
// per chunk and shared read-only across all outer iterations.
type Tables struct {
	// TMap[row] -> time-bin.
	TMap []int32
	// FMap[chan] -> freq-bin.
	FMap []int32
	// DMap[dir] -> output direction; identity if direction-dependent,
	// all-zero if direction-independent (§4.1).
	DMap []int32
	// NTimeBins, NFreqBins are the bin counts spanned by TMap/FMap.
	NTimeBins, NFreqBins int
}

// BuildTimeMap constructs t_map[row] and the unique-time bin count for the
// given interval over the chunk's row times. Times need not be sorted on
// input; rows map through their position in the sorted-unique sequence.
func BuildTimeMap(times []float64, iv Interval) ([]int32, int, error) {
	if iv.Count < 0 || iv.Duration < 0 {
		return nil, 0, chk.Err("time interval must be non-negative, got count=%d duration=%g", iv.Count, iv.Duration)
	}

	uniq, inverse := uniqueSorted(times)

	if iv.IsWholeChunk() {
		tMap := make([]int32, len(times))
		for i := range tMap {
			tMap[i] = 0
		}
		return tMap, 1, nil
	}

	bin := binUniqueValues(uniq, iv, func(lo, hi int) float64 {
		// duration case: cumulative span of unique timestamps in [lo, hi)
		if hi <= lo {
			return 0
		}
		return uniq[hi-1] - uniq[lo]
	})

	tMap := make([]int32, len(times))
	for i, u := range inverse {
		tMap[i] = bin[u]
	}
	nBins := 0
	if len(bin) > 0 {
		nBins = int(bin[len(bin)-1]) + 1
	}
	return tMap, nBins, nil
}

// BuildFreqMap constructs f_map[chan] analogously to BuildTimeMap, using
// channel widths to accumulate duration-style (bandwidth) intervals.
func BuildFreqMap(chanFreq, chanWidth []float64, iv Interval) ([]int32, int, error) {
	if iv.Count < 0 || iv.Duration < 0 {
		return nil, 0, chk.Err("freq interval must be non-negative, got count=%d duration=%g", iv.Count, iv.Duration)
	}
	if len(chanFreq) != len(chanWidth) {
		return nil, 0, chk.Err("chan_freq and chan_width length mismatch: %d vs %d", len(chanFreq), len(chanWidth))
	}

	n := len(chanFreq)
	if iv.IsWholeChunk() {
		fMap := make([]int32, n)
		return fMap, 1, nil
	}

	fMap := make([]int32, n)
	if iv.Count > 0 {
		for i := 0; i < n; i++ {
			fMap[i] = int32(i / iv.Count)
		}
	} else {
		binNum := int32(0)
		net := 0.0
		for i := 0; i < n; i++ {
			fMap[i] = binNum
			net += chanWidth[i]
			if net >= iv.Duration {
				net = 0
				binNum++
			}
		}
	}
	nBins := 0
	if n > 0 {
		nBins = int(fMap[n-1]) + 1
	}
	return fMap, nBins, nil
}

// BuildDirMap constructs d_map[k, d] for a term: identity if the term is
// direction-dependent, all-zero (every direction collapses onto gain 0)
// otherwise.
func BuildDirMap(nDir int, directionDependent bool) []int32 {
	dMap := make([]int32, nDir)
	if !directionDependent {
		return dMap
	}
	for d := range dMap {
		dMap[d] = int32(d)
	}
	return dMap
}

// Build assembles the full Tables for one term over one chunk.
func Build(times, chanFreq, chanWidth []float64, tIv, fIv Interval, nDir int, directionDependent bool) (Tables, error) {
	tMap, nT, err := BuildTimeMap(times, tIv)
	if err != nil {
		return Tables{}, err
	}
	fMap, nF, err := BuildFreqMap(chanFreq, chanWidth, fIv)
	if err != nil {
		return Tables{}, err
	}
	dMap := BuildDirMap(nDir, directionDependent)
	return Tables{TMap: tMap, FMap: fMap, DMap: dMap, NTimeBins: nT, NFreqBins: nF}, nil
}

// uniqueSorted returns the sorted unique values of xs and, for every
// original index i, the position of xs[i] within that sorted-unique slice.
func uniqueSorted(xs []float64) (uniq []float64, inverse []int) {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	uniq = make([]float64, 0, len(xs))
	rank := make([]int, len(xs))
	for _, i := range idx {
		if len(uniq) == 0 || xs[i] != uniq[len(uniq)-1] {
			uniq = append(uniq, xs[i])
		}
		rank[i] = len(uniq) - 1
	}
	return uniq, rank
}

// binUniqueValues groups the sorted-unique values into contiguous bins
// according to iv, returning bin[u] for every unique value u. span(lo, hi)
// returns the cumulative duration of the half-open range [lo, hi) of
// unique-value indices, used only in the duration case: a value whose span
// from its bin's first value would meet or exceed iv.Duration opens the
// next bin.
func binUniqueValues(uniq []float64, iv Interval, span func(lo, hi int) float64) []int32 {
	bin := make([]int32, len(uniq))
	if len(uniq) == 0 {
		return bin
	}
	if iv.Count > 0 {
		for i := range uniq {
			bin[i] = int32(i / iv.Count)
		}
		return bin
	}
	binNum := int32(0)
	start := 0
	for i := range uniq {
		if i > start && span(start, i+1) >= iv.Duration {
			binNum++
			start = i
		}
		bin[i] = binNum
	}
	return bin
}
