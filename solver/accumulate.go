package solver

import (
	"github.com/gocal/gocal/gain"
	"github.com/gocal/gocal/tensor"
)

// allocComplexAccum allocates zeroed JHJ/JHR accumulators shaped like ts's
// own Gains tensor, one matSize(mode)-wide slot per (t, f, ant, dir) cell.
func allocComplexAccum(ts *gain.TermState, size int) (jhj, jhr [][][][][]complex128) {
	nT := len(ts.Gains)
	jhj = make([][][][][]complex128, nT)
	jhr = make([][][][][]complex128, nT)
	for t := 0; t < nT; t++ {
		nF := len(ts.Gains[t])
		jhj[t] = make([][][][]complex128, nF)
		jhr[t] = make([][][][]complex128, nF)
		for f := 0; f < nF; f++ {
			nAnt := len(ts.Gains[t][f])
			jhj[t][f] = make([][][]complex128, nAnt)
			jhr[t][f] = make([][][]complex128, nAnt)
			for a := 0; a < nAnt; a++ {
				nDir := len(ts.Gains[t][f][a])
				jhj[t][f][a] = make([][]complex128, nDir)
				jhr[t][f][a] = make([][]complex128, nDir)
				for d := 0; d < nDir; d++ {
					jhj[t][f][a][d] = make([]complex128, size)
					jhr[t][f][a][d] = make([]complex128, size)
				}
			}
		}
	}
	return jhj, jhr
}

func allocFloatAccum(ts *gain.TermState) (jhj, jhr [][][][]float64) {
	nT := len(ts.Params)
	jhj = make([][][][]float64, nT)
	jhr = make([][][][]float64, nT)
	for t := 0; t < nT; t++ {
		nF := len(ts.Params[t])
		jhj[t] = make([][][]float64, nF)
		jhr[t] = make([][][]float64, nF)
		for f := 0; f < nF; f++ {
			nAnt := len(ts.Params[t][f])
			jhj[t][f] = make([][]float64, nAnt)
			jhr[t][f] = make([][]float64, nAnt)
			for a := 0; a < nAnt; a++ {
				jhj[t][f][a] = make([]float64, len(ts.Params[t][f][a]))
				jhr[t][f][a] = make([]float64, len(ts.Params[t][f][a]))
			}
		}
	}
	return jhj, jhr
}

// accumulateComplex runs the §4.3 step 2 accumulation for an
// unparameterized term (k), filling jhj/jhr from every unflagged baseline
// in the chunk and every model direction the term maps to its own gains.
func accumulateComplex(chunk *tensor.Chunk, chain *gain.Chain, k int, residual [][][]complex128) (jhj, jhr [][][][][]complex128) {
	ts := chain.Terms[k]
	mode := chunk.Mode
	jhj, jhr = allocComplexAccum(ts, matSize(mode))

	nRow, nChan := chunk.NRow(), chunk.NChan()
	for r := 0; r < nRow; r++ {
		p, q := chunk.Ant1[r], chunk.Ant2[r]
		for f := 0; f < nChan; f++ {
			if chunk.IsFlagged(r, f) {
				continue
			}
			w := chunk.Weights[r][f]
			if allZeroWeight(w) {
				continue
			}
			R := residual[r][f]
			for d := 0; d < chain.NDir; d++ {
				Kp := gain.ChainProductExcept(chain, r, f, p, d, k)
				Kq := gain.ChainProductExcept(chain, r, f, q, d, k)
				Mtilde := tensor.MatMul(mode, tensor.MatMul(mode, Kp, chunk.Model[r][f][d]), tensor.ConjTranspose(mode, Kq))

				Gp := termGain(ts, r, f, p, d)
				Gq := termGain(ts, r, f, q, d)

				tBin, fBin := int(ts.Table.TMap[r]), int(ts.Table.FMap[f])
				dOut := int(ts.Table.DMap[d])

				Ap := tensor.MatMul(mode, Mtilde, tensor.ConjTranspose(mode, Gq))
				accumulateNormal(mode, jhj[tBin][fBin][p][dOut], jhr[tBin][fBin][p][dOut], w, Ap, R)

				Aq := tensor.MatMul(mode, tensor.ConjTranspose(mode, Mtilde), tensor.ConjTranspose(mode, Gp))
				Rqp := tensor.ConjTranspose(mode, R)
				accumulateNormal(mode, jhj[tBin][fBin][q][dOut], jhr[tBin][fBin][q][dOut], w, Aq, Rqp)
			}
		}
	}
	return jhj, jhr
}

// accumulateParameterized runs the parameterized analogue of
// accumulateComplex: the chain-rule linearization ΔV = D·Δθ·A reduces each
// cell to a single real scalar normal equation (§4.3 closing note).
func accumulateParameterized(chunk *tensor.Chunk, chain *gain.Chain, k int, chanFreq []float64, residual [][][]complex128) (jhj, jhr [][][][]float64) {
	ts := chain.Terms[k]
	mapper := ts.Term.(gain.ParamMapper)
	mode := chunk.Mode
	jhj, jhr = allocFloatAccum(ts)

	nRow, nChan := chunk.NRow(), chunk.NChan()
	for r := 0; r < nRow; r++ {
		p, q := chunk.Ant1[r], chunk.Ant2[r]
		for f := 0; f < nChan; f++ {
			if chunk.IsFlagged(r, f) {
				continue
			}
			w := chunk.Weights[r][f]
			if allZeroWeight(w) {
				continue
			}
			R := residual[r][f]
			for d := 0; d < chain.NDir; d++ {
				Kp := gain.ChainProductExcept(chain, r, f, p, d, k)
				Kq := gain.ChainProductExcept(chain, r, f, q, d, k)
				Mtilde := tensor.MatMul(mode, tensor.MatMul(mode, Kp, chunk.Model[r][f][d]), tensor.ConjTranspose(mode, Kq))

				Gp := termGain(ts, r, f, p, d)
				Gq := termGain(ts, r, f, q, d)

				tBin, fBin := int(ts.Table.TMap[r]), int(ts.Table.FMap[f])
				dOut := int(ts.Table.DMap[d])

				thetaP := ts.Params[tBin][fBin][p][dOut]
				thetaQ := ts.Params[tBin][fBin][q][dOut]
				_, derivP := mapper.ParamGain(thetaP, chanFreq[f], mode)
				_, derivQ := mapper.ParamGain(thetaQ, chanFreq[f], mode)

				Ap := tensor.MatMul(mode, Mtilde, tensor.ConjTranspose(mode, Gq))
				DAp := tensor.MatMul(mode, derivP, Ap)
				jP, rP := realNormalTerm(w, DAp, R)
				jhj[tBin][fBin][p][dOut] += jP
				jhr[tBin][fBin][p][dOut] += rP

				Aq := tensor.MatMul(mode, tensor.ConjTranspose(mode, Mtilde), tensor.ConjTranspose(mode, Gp))
				DAq := tensor.MatMul(mode, derivQ, Aq)
				Rqp := tensor.ConjTranspose(mode, R)
				jQ, rQ := realNormalTerm(w, DAq, Rqp)
				jhj[tBin][fBin][q][dOut] += jQ
				jhr[tBin][fBin][q][dOut] += rQ
			}
		}
	}
	return jhj, jhr
}

// realNormalTerm evaluates 2·‖DA‖²_W and 2·Re(⟨DA, R⟩_W) — the real-valued
// Gauss-Newton normal-equation contributions for a single real parameter,
// via the per-correlation-weighted Frobenius inner product over DA and R's
// corr-matrix entries (each entry i weighted by its own w[i], mirroring
// quartical's per-w_i jhwj/jhwr accumulation rather than a pooled scalar).
func realNormalTerm(w []float64, DA, R []complex128) (jhj, jhr float64) {
	for i := range DA {
		jhj += 2 * w[i] * (real(DA[i])*real(DA[i]) + imag(DA[i])*imag(DA[i]))
		jhr += 2 * w[i] * real(cmplxConj(DA[i])*R[i])
	}
	return jhj, jhr
}
