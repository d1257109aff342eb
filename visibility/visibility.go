// Copyright 2026 The Gocal Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package visibility computes the output visibility products a solved
// gain.Chain makes available over a chunk (§4.5): the residual, the
// corrected residual, and fully corrected data.
package visibility

import (
	"github.com/gocal/gocal/gain"
	"github.com/gocal/gocal/tensor"
)

// Residual returns Data − Σ_d G·M(d)·Gᴴ for every visibility, identical in
// formula to the solver's own internal residual (§4.3 observation model)
// but exposed here as a first-class chunk-wide output product.
func Residual(chunk *tensor.Chunk, chain *gain.Chain) [][][]complex128 {
	mode := chunk.Mode
	nRow, nChan := chunk.NRow(), chunk.NChan()
	out := make([][][]complex128, nRow)
	for r := 0; r < nRow; r++ {
		out[r] = make([][]complex128, nChan)
		p, q := chunk.Ant1[r], chunk.Ant2[r]
		for f := 0; f < nChan; f++ {
			if chunk.IsFlagged(r, f) {
				out[r][f] = tensor.Zero(mode)
				continue
			}
			predicted := tensor.Zero(mode)
			for d := 0; d < len(chunk.Model[r][f]); d++ {
				Gp := gain.ChainProductFull(chain, r, f, p, d)
				Gq := gain.ChainProductFull(chain, r, f, q, d)
				contrib := tensor.MatMul(mode, tensor.MatMul(mode, Gp, chunk.Model[r][f][d]), tensor.ConjTranspose(mode, Gq))
				predicted = tensor.Add(mode, predicted, contrib)
			}
			out[r][f] = tensor.Sub(mode, chunk.Data[r][f], predicted)
		}
	}
	return out
}

// CorrectedResidual returns Gᵖ⁻¹·Residual·Gᵠ⁻ᴴ, the residual with the
// solved gains removed (§4.5). A hard-flagged cell's chain
// product is not invertible in general (the solve never converged there),
// so its inverse is taken to be the identity rather than propagating a
// division-by-zero artifact into the output (§7.3 policy).
func CorrectedResidual(chunk *tensor.Chunk, chain *gain.Chain) [][][]complex128 {
	residual := Residual(chunk, chain)
	return applyInverseChain(chunk, chain, residual)
}

// CorrectedData returns Gᵖ⁻¹·Data·Gᵠ⁻ᴴ, the observed data corrected by the
// solved chain with no subtraction of the model (§4.5).
func CorrectedData(chunk *tensor.Chunk, chain *gain.Chain) [][][]complex128 {
	return applyInverseChain(chunk, chain, chunk.Data)
}

// applyInverseChain forms Gᵖ⁻¹·V·Gᵠ⁻ᴴ against modelDir 0 (the chain's own
// d_map collapses every direction onto the same gain for direction-
// independent terms; direction-dependent correction of a visibility
// product not already split by direction is out of scope, matching
// spec.md's Non-goals).
func applyInverseChain(chunk *tensor.Chunk, chain *gain.Chain, v [][][]complex128) [][][]complex128 {
	mode := chunk.Mode
	nRow, nChan := chunk.NRow(), chunk.NChan()
	out := make([][][]complex128, nRow)
	for r := 0; r < nRow; r++ {
		out[r] = make([][]complex128, nChan)
		p, q := chunk.Ant1[r], chunk.Ant2[r]
		for f := 0; f < nChan; f++ {
			if chunk.IsFlagged(r, f) {
				out[r][f] = v[r][f]
				continue
			}
			Gp := gain.ChainProductFull(chain, r, f, p, 0)
			Gq := gain.ChainProductFull(chain, r, f, q, 0)
			GpInv, okP := tensor.Invert(mode, Gp)
			GqInv, okQ := tensor.Invert(mode, Gq)
			if !okP || !okQ {
				out[r][f] = v[r][f]
				continue
			}
			out[r][f] = tensor.MatMul(mode, tensor.MatMul(mode, GpInv, v[r][f]), tensor.ConjTranspose(mode, GqInv))
		}
	}
	return out
}
