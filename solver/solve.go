// Copyright 2026 The Gocal Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package solver implements the per-chunk Gauss-Newton calibration loop
// (§4.3): one round-robin sweep through a gain.Chain, each term solved to
// its own stop criterion or iteration budget, with per-cell flag tracking
// and the closed-form complex/real normal-equation updates the gain
// package's capability interfaces make possible.
package solver

import (
	"context"

	"github.com/cpmech/gosl/chk"
	"github.com/gocal/gocal/flag"
	"github.com/gocal/gocal/gain"
	"github.com/gocal/gocal/tensor"
	"github.com/rs/zerolog"
)

// SolveChunk runs the full calibration chain over one chunk: the terms in
// chain.Terms are solved in order, each to completion, before the next
// term begins (§5: chain order is fixed and never reordered). chain must
// already be allocated (gain.Chain.Allocate) and identity-initialized.
// SolveChunk checks ctx between terms so a cancelled chunk returns
// promptly with whatever terms finished solving.
func SolveChunk(ctx context.Context, chunk *tensor.Chunk, chain *gain.Chain) error {
	logger := zerolog.Ctx(ctx)
	for k, ts := range chain.Terms {
		if err := ctx.Err(); err != nil {
			return chk.Err("chunk solve cancelled before term %q: %v", ts.Spec.Name, err)
		}
		logger.Debug().Str("term", ts.Spec.Name).Str("variant", ts.Spec.Variant).Msg("solving term")
		if err := solveTerm(ctx, chunk, chain, k); err != nil {
			return err
		}
		logger.Debug().
			Str("term", ts.Spec.Name).
			Int("iterations", ts.IterCount).
			Float64("converged_pct", ts.ConvergedPercentage).
			Msg("term solved")
	}
	return nil
}

// solveTerm runs the per-term lifecycle: optional initial estimate,
// optional frequency rescaling, the Gauss-Newton iteration loop, trend-
// based flag finalization, frequency unscaling, and flag propagation.
func solveTerm(ctx context.Context, chunk *tensor.Chunk, chain *gain.Chain, k int) error {
	ts := chain.Terms[k]
	mode := chunk.Mode

	if estimator, ok := ts.Term.(gain.InitialEstimator); ok {
		gctx := &gain.Context{Chunk: chunk, Chain: chain, Active: k}
		if err := estimator.EstimateInitial(gctx); err != nil {
			return chk.Err("term %q: initial estimate failed: %v", ts.Spec.Name, err)
		}
		if mapper, ok := ts.Term.(gain.ParamMapper); ok {
			applyParamsToGains(ts, mapper, mode, ts.Table.FMap, chunk.ChanFreq)
		}
	}

	chanFreq := chunk.ChanFreq
	var scaler gain.FreqScaler
	minFreq := 1.0
	if fs, ok := ts.Term.(gain.FreqScaler); ok {
		scaler = fs
		var scaled []float64
		scaled, minFreq = fs.ScaleChanFreq(chunk.ChanFreq)
		chanFreq = scaled
		scaleParams(ts, minFreq)
	}
	binFreqs := computeBinFreqs(chanFreq, ts.Table.FMap, ts.Table.NFreqBins)

	tracker := flag.NewGainFlagTracker(ts)

	iter := 0
	for ; iter < ts.Spec.Iters; iter++ {
		if err := ctx.Err(); err != nil {
			break
		}

		residual := computeResidual(chunk, chain)

		var delta2 [][][][]float64
		if mapper, ok := ts.Term.(gain.ParamMapper); ok {
			jhj, jhr := accumulateParameterized(chunk, chain, k, chanFreq, residual)
			delta2 = applyParamUpdate(ts, mapper, mode, jhj, jhr, binFreqs, tracker)
		} else {
			jhj, jhr := accumulateComplex(chunk, chain, k, residual)
			delta2 = applyComplexUpdate(ts, mode, jhj, jhr, tracker)
		}

		convPct := tracker.Update(ts, delta2, ts.Spec.StopCrit)
		ts.IterCount = iter + 1
		ts.ConvergedPercentage = convPct
		if convPct > ts.Spec.StopFrac {
			break
		}
	}

	tracker.Finalize(ts)

	if scaler != nil {
		unscaleParams(ts, minFreq)
	}

	if !ts.Spec.DirectionDependent {
		flag.PropagateToChunk(ts, chunk.Flags, chunk.Ant1, chunk.Ant2, ts.Table.TMap, ts.Table.FMap)
	}
	flag.CopyGainFlagsToParamFlags(ts)

	return nil
}

// applyParamsToGains recomputes every cell of ts.Gains from ts.Params,
// used right after an initial estimate seeds Params and before the first
// Gauss-Newton iteration reads Gains through gain.ChainProductFull.
func applyParamsToGains(ts *gain.TermState, mapper gain.ParamMapper, mode tensor.CorrMode, fMap []int32, chanFreq []float64) {
	binFreqs := computeBinFreqs(chanFreq, fMap, len(ts.Params[0]))
	for t := range ts.Params {
		for f := range ts.Params[t] {
			for a := range ts.Params[t][f] {
				for d := range ts.Params[t][f][a] {
					g, _ := mapper.ParamGain(ts.Params[t][f][a][d], binFreqs[f], mode)
					ts.Gains[t][f][a][d] = g
				}
			}
		}
	}
}

// scaleParams/unscaleParams implement the "internally scales channel
// frequency by ν/ν_min ... undoes the scaling before returning parameters"
// policy (gain.FreqScaler's doc comment): the parameter itself is kept in
// the scaled domain (θ_scaled = θ·ν_min) for the duration of the term's
// iteration loop, and converted back exactly once before flags/outputs are
// read by anything outside this package.
func scaleParams(ts *gain.TermState, minFreq float64) {
	for t := range ts.Params {
		for f := range ts.Params[t] {
			for a := range ts.Params[t][f] {
				for d := range ts.Params[t][f][a] {
					ts.Params[t][f][a][d] *= minFreq
				}
			}
		}
	}
}

func unscaleParams(ts *gain.TermState, minFreq float64) {
	if minFreq == 0 {
		return
	}
	for t := range ts.Params {
		for f := range ts.Params[t] {
			for a := range ts.Params[t][f] {
				for d := range ts.Params[t][f][a] {
					ts.Params[t][f][a][d] /= minFreq
				}
			}
		}
	}
}
