package solver

import (
	"github.com/gocal/gocal/flag"
	"github.com/gocal/gocal/gain"
	"github.com/gocal/gocal/tensor"
)

// applyComplexUpdate solves and applies the half-step damped update for an
// unparameterized term (§4.3 steps 3-5), honoring SolvePerArray by pooling
// every antenna's normal equations into one shared solve before broadcasting
// the result back out. It returns the per-cell squared gain delta the flag
// tracker uses to judge convergence.
func applyComplexUpdate(ts *gain.TermState, mode tensor.CorrMode, jhj, jhr [][][][][]complex128, tracker missingRecorder) [][][][]float64 {
	size := matSize(mode)
	delta2 := allocDelta2(ts)

	for t := range ts.Gains {
		for f := range ts.Gains[t] {
			nAnt := len(ts.Gains[t][f])
			for d := range ts.Gains[t][f][0] {
				if ts.Spec.SolvePer == gain.SolvePerArray {
					pooledJHJ := make([]complex128, size)
					pooledJHR := make([]complex128, size)
					any := false
					for a := 0; a < nAnt; a++ {
						if ts.GainFlags[t][f][a][d] != flag.Unflagged {
							continue
						}
						for i := 0; i < size; i++ {
							pooledJHJ[i] += jhj[t][f][a][d][i]
							pooledJHR[i] += jhr[t][f][a][d][i]
						}
						any = true
					}
					if !any {
						continue
					}
					update := solveComplexUpdate(mode, pooledJHJ, pooledJHR)
					update = tensor.Scale(mode, update, 0.5)
					for a := 0; a < nAnt; a++ {
						if ts.GainFlags[t][f][a][d] == flag.Hard {
							continue
						}
						ts.Gains[t][f][a][d] = tensor.Add(mode, ts.Gains[t][f][a][d], update)
						delta2[t][f][a][d] = squaredNorm(update)
					}
					continue
				}

				for a := 0; a < nAnt; a++ {
					if ts.GainFlags[t][f][a][d] == flag.Hard {
						continue
					}
					if isZero(jhj[t][f][a][d]) {
						tracker.RecordMissing(ts, t, f, a, d)
						continue
					}
					update := solveComplexUpdate(mode, jhj[t][f][a][d], jhr[t][f][a][d])
					update = tensor.Scale(mode, update, 0.5)
					ts.Gains[t][f][a][d] = tensor.Add(mode, ts.Gains[t][f][a][d], update)
					delta2[t][f][a][d] = squaredNorm(update)
				}
			}
		}
	}
	return delta2
}

// applyParamUpdate is applyComplexUpdate's parameterized analogue: the
// scalar parameter moves by +Δθ/2 (§4.3 step 5 — the same direction as the
// unparameterized case, which moves by +ΔG/2), then the term's Gains tensor
// is recomputed from the updated parameters at binFreqs.
func applyParamUpdate(ts *gain.TermState, mapper gain.ParamMapper, mode tensor.CorrMode, jhj, jhr [][][][]float64, binFreqs []float64, tracker missingRecorder) [][][][]float64 {
	delta2 := allocDelta2(ts)

	for t := range ts.Params {
		for f := range ts.Params[t] {
			nAnt := len(ts.Params[t][f])
			for a := 0; a < nAnt; a++ {
				for d := range ts.Params[t][f][a] {
					if ts.GainFlags[t][f][a][d] == flag.Hard {
						continue
					}
					if jhj[t][f][a][d] == 0 {
						tracker.RecordMissing(ts, t, f, a, d)
						continue
					}
					delta := solveParamUpdate(jhj[t][f][a][d], jhr[t][f][a][d])
					delta *= 0.5
					ts.Params[t][f][a][d] += delta
					delta2[t][f][a][d] = delta * delta

					g, _ := mapper.ParamGain(ts.Params[t][f][a][d], binFreqs[f], mode)
					ts.Gains[t][f][a][d] = g
				}
			}
		}
	}
	return delta2
}

type missingRecorder interface {
	RecordMissing(ts *gain.TermState, t, f, a, d int)
}

func allocDelta2(ts *gain.TermState) [][][][]float64 {
	nT := len(ts.GainFlags)
	out := make([][][][]float64, nT)
	for t := 0; t < nT; t++ {
		nF := len(ts.GainFlags[t])
		out[t] = make([][][]float64, nF)
		for f := 0; f < nF; f++ {
			nAnt := len(ts.GainFlags[t][f])
			out[t][f] = make([][]float64, nAnt)
			for a := 0; a < nAnt; a++ {
				out[t][f][a] = make([]float64, len(ts.GainFlags[t][f][a]))
			}
		}
	}
	return out
}

func isZero(m []complex128) bool {
	for _, v := range m {
		if v != 0 {
			return false
		}
	}
	return true
}

func squaredNorm(m []complex128) float64 {
	sum := 0.0
	for _, v := range m {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return sum
}
