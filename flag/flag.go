// Copyright 2026 The Gocal Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flag implements the two flagging mechanisms the solver and
// dispatcher rely on (§4.4): a per-iteration gain-flag trend tracker that
// watches Gauss-Newton convergence cell by cell, and a post-solve MAD
// outlier flagger. Both only ever add flags — once a cell is hard-flagged
// it never becomes unflagged again within the same chunk solve.
package flag

import (
	"math"

	"github.com/gocal/gocal/gain"
	"github.com/gocal/gocal/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Flag values stored in a TermState's GainFlags/ParamFlags tensors.
const (
	Unflagged int8 = 0
	Soft      int8 = 1
	Hard      int8 = 2
)

// softTrendLimit is the number of consecutive non-converging iterations a
// cell tolerates before it is marked Soft. A cell that is still Soft when
// the term's iteration budget runs out is promoted to Hard in Finalize.
const softTrendLimit = 5

// GainFlagTracker watches one term's per-cell convergence trend across its
// Gauss-Newton iterations (§4.4a). It is constructed fresh for every term
// solve and discarded once that term's Finalize call returns.
type GainFlagTracker struct {
	trend [][][][]int
}

// NewGainFlagTracker allocates a tracker shaped like ts.GainFlags.
func NewGainFlagTracker(ts *gain.TermState) *GainFlagTracker {
	nT := len(ts.GainFlags)
	trend := make([][][][]int, nT)
	for t := range trend {
		nF := len(ts.GainFlags[t])
		trend[t] = make([][][]int, nF)
		for f := range trend[t] {
			nAnt := len(ts.GainFlags[t][f])
			trend[t][f] = make([][]int, nAnt)
			for a := range trend[t][f] {
				trend[t][f][a] = make([]int, len(ts.GainFlags[t][f][a]))
			}
		}
	}
	return &GainFlagTracker{trend: trend}
}

// RecordMissing immediately hard-flags a cell that received no contributing
// baselines this chunk (§4.4a: missing cells are flagged on sight, not
// tracked through the trend window).
func (g *GainFlagTracker) RecordMissing(ts *gain.TermState, t, f, a, d int) {
	ts.GainFlags[t][f][a][d] = Hard
}

// Update compares the per-cell squared gain delta against stopCrit,
// advancing or resetting each cell's non-convergence trend and promoting
// cells that have stalled for softTrendLimit consecutive iterations to
// Soft. It returns the fraction of unflagged cells that converged this
// iteration (ts.ConvergedPercentage's source, §4.3 step 7).
func (g *GainFlagTracker) Update(ts *gain.TermState, delta2 [][][][]float64, stopCrit float64) float64 {
	total, converged := 0, 0
	for t := range delta2 {
		for f := range delta2[t] {
			for a := range delta2[t][f] {
				for d := range delta2[t][f][a] {
					if ts.GainFlags[t][f][a][d] == Hard {
						continue
					}
					total++
					if delta2[t][f][a][d] <= stopCrit {
						converged++
						g.trend[t][f][a][d] = 0
						continue
					}
					g.trend[t][f][a][d]++
					if g.trend[t][f][a][d] >= softTrendLimit {
						ts.GainFlags[t][f][a][d] = Soft
					}
				}
			}
		}
	}
	if total == 0 {
		return 1
	}
	return float64(converged) / float64(total)
}

// Finalize promotes every still-Soft cell to Hard: a cell that never
// recovered within its trend window by the time the term's iteration
// budget is exhausted is treated as unsolved, not merely slow (§4.4a
// soft→hard promotion).
func (g *GainFlagTracker) Finalize(ts *gain.TermState) {
	for t := range ts.GainFlags {
		for f := range ts.GainFlags[t] {
			for a := range ts.GainFlags[t][f] {
				for d := range ts.GainFlags[t][f][a] {
					if ts.GainFlags[t][f][a][d] == Soft {
						ts.GainFlags[t][f][a][d] = Hard
					}
				}
			}
		}
	}
}

// PropagateToChunk ORs a direction-independent term's hard gain flags onto
// the chunk's aggregate per-visibility flag buffer (§4.4a: only
// direction-independent terms propagate, since a direction-dependent
// term's flag is specific to a sky component, not the whole visibility).
func PropagateToChunk(ts *gain.TermState, chunkFlags [][]int8, ant1, ant2 []int, tMap, fMap []int32) {
	for r := range ant1 {
		for f := range fMap {
			tBin := tMap[r]
			fBin := fMap[f]
			if ts.GainFlags[tBin][fBin][ant1[r]][0] == Hard || ts.GainFlags[tBin][fBin][ant2[r]][0] == Hard {
				chunkFlags[r][f] = 1
			}
		}
	}
}

// CopyGainFlagsToParamFlags mirrors GainFlags onto ParamFlags for
// parameterized terms, the two tensors sharing the same (t, f, ant, dir)
// shape (§4.4a).
func CopyGainFlagsToParamFlags(ts *gain.TermState) {
	if ts.ParamFlags == nil {
		return
	}
	for t := range ts.GainFlags {
		for f := range ts.GainFlags[t] {
			for a := range ts.GainFlags[t][f] {
				copy(ts.ParamFlags[t][f][a], ts.GainFlags[t][f][a])
			}
		}
	}
}

// MADOptions configures the post-solve residual MAD flagger (§6
// `mad_flags.enable`/`.threshold_bl`/`.threshold_global`/`.max_deviation`).
type MADOptions struct {
	Enable          bool
	ThresholdBl     float64
	ThresholdGlobal float64
	MaxDeviation    float64
}

// MADFlagger applies the post-solve residual median-absolute-deviation
// outlier test of §4.4(b): per-baseline and per-chunk-global MAD statistics
// of the chi-squared `|R|²·W`, three independent thresholds, OR-ed into the
// chunk's data flag column. Grounded on quartical's `add_mad_graph`
// (`compute_chisq` → `compute_bl_mad_and_med`/`compute_gbl_mad_and_med` →
// `compute_mad_flags`), reimplemented over a single in-memory chunk instead
// of quartical's blockwise dask graph. It only adds flags: cells already
// flagged are excluded from every median/MAD computation and left as-is in
// the output.
type MADFlagger struct {
	Opts MADOptions
}

// baselineKey identifies one (ant1, ant2) pair's residual population —
// matching compute_bl_mad_and_med's per-(ant1,ant2) statistics rather than a
// symmetrized baseline identity, since the chunk's ant1/ant2 ordering is
// itself already canonical per baseline.
type baselineKey struct{ p, q int }

// Flag computes chi-squared per visibility from residual and chunk's
// weights, derives per-baseline and global median/MAD over chi-squared
// (excluding already-flagged cells), and ORs new flags into chunk.Flags for
// any cell whose chi-squared deviates from either statistic beyond its
// configured threshold, or from the global statistic beyond max_deviation
// unconditionally (§4.4b's three conditions).
func (m *MADFlagger) Flag(chunk *tensor.Chunk, residual [][][]complex128) {
	if !m.Opts.Enable {
		return
	}
	nRow, nChan := chunk.NRow(), chunk.NChan()
	if nRow == 0 || nChan == 0 {
		return
	}

	chisq := make([][]float64, nRow)
	for r := 0; r < nRow; r++ {
		chisq[r] = make([]float64, nChan)
		for f := 0; f < nChan; f++ {
			chisq[r][f] = chiSquared(residual[r][f], chunk.Weights[r][f])
		}
	}

	blValues := make(map[baselineKey][]float64)
	var globalValues []float64
	for r := 0; r < nRow; r++ {
		k := baselineKey{chunk.Ant1[r], chunk.Ant2[r]}
		for f := 0; f < nChan; f++ {
			if chunk.IsFlagged(r, f) {
				continue
			}
			v := chisq[r][f]
			if v <= 0 {
				continue
			}
			blValues[k] = append(blValues[k], v)
			globalValues = append(globalValues, v)
		}
	}

	blMedian := make(map[baselineKey]float64, len(blValues))
	blMAD := make(map[baselineKey]float64, len(blValues))
	for k, vals := range blValues {
		med := medianOf(vals)
		blMedian[k] = med
		blMAD[k] = madOf(vals, med)
	}
	var gblMedian, gblMAD float64
	if len(globalValues) > 0 {
		gblMedian = medianOf(globalValues)
		gblMAD = madOf(globalValues, gblMedian)
	}

	for r := 0; r < nRow; r++ {
		k := baselineKey{chunk.Ant1[r], chunk.Ant2[r]}
		medBl, madBl := blMedian[k], blMAD[k]
		for f := 0; f < nChan; f++ {
			if chunk.IsFlagged(r, f) {
				continue
			}
			v := chisq[r][f]
			flagged := false
			if madBl > 0 && math.Abs(v-medBl) > m.Opts.ThresholdBl*madBl {
				flagged = true
			}
			if gblMAD > 0 {
				dev := math.Abs(v - gblMedian)
				if dev > m.Opts.ThresholdGlobal*gblMAD {
					flagged = true
				}
				if dev > m.Opts.MaxDeviation*gblMAD {
					flagged = true
				}
			}
			if flagged {
				chunk.Flags[r][f] = 1
			}
		}
	}
}

// chiSquared sums |R_c|²·w_c over every correlation c of one visibility
// (§4.4b's `|R|² · W`).
func chiSquared(r []complex128, w []float64) float64 {
	sum := 0.0
	for i, v := range r {
		sum += (real(v)*real(v) + imag(v)*imag(v)) * w[i]
	}
	return sum
}

func medianOf(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	floats.Sort(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func madOf(xs []float64, median float64) float64 {
	devs := make([]float64, len(xs))
	for i, x := range xs {
		devs[i] = math.Abs(x - median)
	}
	return medianOf(devs)
}
