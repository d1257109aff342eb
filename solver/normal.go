package solver

import (
	"github.com/gocal/gocal/gain"
	"github.com/gocal/gocal/tensor"
)

// termGain looks up ts's own current gain at (row, chanIdx, ant, modelDir),
// resolving through ts's own interval and direction mapping tables —
// identical in spirit to gain.ChainProductFull's per-term lookup, but
// exported fields let the solver do it directly without round-tripping
// through the gain package.
func termGain(ts *gain.TermState, row, chanIdx, ant, modelDir int) []complex128 {
	tBin := int(ts.Table.TMap[row])
	fBin := int(ts.Table.FMap[chanIdx])
	dOut := int(ts.Table.DMap[modelDir])
	return ts.Gains[tBin][fBin][ant][dOut]
}

// allZeroWeight reports whether every correlation's weight for a cell is
// zero, in which case the cell contributes nothing to any normal equation
// and can be skipped outright (mirrors quartical's `w_0, w_1, w_2, w_3`
// unpack in compute_jhwj_jhwr_elem_factory, where an all-zero row never
// reaches the jhwj/jhwr accumulation).
func allZeroWeight(w []float64) bool {
	for _, wi := range w {
		if wi != 0 {
			return false
		}
	}
	return true
}

// matSize returns the JHJ/JHR accumulator width for mode: a FullCorr normal
// matrix is shared identically by both rows of the gain being solved (see
// tensor.Invert4x4Blockwise's doc comment), so it needs only a 2x2 (4
// entry) slot, not a dense 4x4 one.
func matSize(mode tensor.CorrMode) int {
	switch mode {
	case tensor.ScalarCorr:
		return 1
	case tensor.DiagCorr:
		return 2
	case tensor.FullCorr:
		return 4
	}
	return 0
}

// accumulateNormal adds one baseline's contribution to a cell's unparameterized
// normal equations: JHJ += WᴴAAᴴ, JHR += WᴴRAᴴ, weighting each correlation's
// entry by its own w_i (§3's `weights (row,chan,corr)`, §4.3 step 2's
// "JᴴWJ and JᴴWR accumulation") rather than a single scalar shared across
// correlations — mirrors quartical's compute_jhwj_jhwr_elem_factory, which
// unpacks w_0, w_1, w_2, w_3 (XX, XY, YX, YY) and weights each normal-
// equation entry by its own correlation's weight.
func accumulateNormal(mode tensor.CorrMode, jhj, jhr []complex128, w []float64, A, R []complex128) {
	switch mode {
	case tensor.ScalarCorr:
		cw := complex(w[0], 0)
		jhj[0] += cw * A[0] * cmplxConj(A[0])
		jhr[0] += cw * R[0] * cmplxConj(A[0])
	case tensor.DiagCorr:
		for i := 0; i < 2; i++ {
			cw := complex(w[i], 0)
			jhj[i] += cw * A[i] * cmplxConj(A[i])
			jhr[i] += cw * R[i] * cmplxConj(A[i])
		}
	case tensor.FullCorr:
		AH := tensor.ConjTranspose(mode, A)
		AAH := tensor.MatMul(mode, A, AH)
		RAH := tensor.MatMul(mode, R, AH)
		for i := 0; i < 4; i++ {
			cw := complex(w[i], 0)
			jhj[i] += cw * AAH[i]
			jhr[i] += cw * RAH[i]
		}
	}
}

// solveComplexUpdate solves the unparameterized cell's closed-form update,
// ΔG = JHR · JHJ⁻¹ (§4.3 step 4), the order dictated by the right-
// multiplication model ΔG·A ≈ R the normal equations linearize.
func solveComplexUpdate(mode tensor.CorrMode, jhj, jhr []complex128) []complex128 {
	switch mode {
	case tensor.ScalarCorr:
		inv, ok := tensor.InvertScalar(jhj[0])
		if !ok {
			return []complex128{0}
		}
		return []complex128{jhr[0] * inv}
	case tensor.DiagCorr:
		out := make([]complex128, 2)
		for i := 0; i < 2; i++ {
			inv, ok := tensor.InvertScalar(jhj[i])
			if ok {
				out[i] = jhr[i] * inv
			}
		}
		return out
	case tensor.FullCorr:
		inv, ok := tensor.Invert4x4Blockwise(jhj)
		if !ok {
			return []complex128{0, 0, 0, 0}
		}
		return tensor.MatMul(mode, jhr, inv)
	}
	return nil
}

// solveParamUpdate solves the parameterized cell's closed-form real scalar
// update Δθ = JHR / JHJ, guarding division by zero (§4.3/§7.3).
func solveParamUpdate(jhj, jhr float64) float64 {
	if jhj == 0 {
		return 0
	}
	return jhr / jhj
}

// computeBinFreqs averages chanFreq over every channel mapping to each
// frequency bin, giving the representative frequency a parameterized
// term's coarser-resolution Gains tensor is recomputed at (the
// accumulation itself always uses the true per-channel frequency; only the
// stored gain snapshot uses this representative value).
func computeBinFreqs(chanFreq []float64, fMap []int32, nBins int) []float64 {
	sums := make([]float64, nBins)
	counts := make([]int, nBins)
	for i, f := range chanFreq {
		b := fMap[i]
		sums[b] += f
		counts[b]++
	}
	out := make([]float64, nBins)
	for b := range out {
		if counts[b] > 0 {
			out[b] = sums[b] / float64(counts[b])
		}
	}
	return out
}

func cmplxConj(z complex128) complex128 { return complex(real(z), -imag(z)) }
