package gain

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/gocal/gocal/tensor"
	"gonum.org/v1/gonum/fourier"
)

// FreqScaler is implemented by parameterized terms whose accumulation is
// better conditioned against a rescaled frequency axis (§4.3 numerical
// policy: "Delay term: internally scales channel frequency by ν/ν_min...
// undoes the scaling before returning parameters"). The solver applies
// ScaleChanFreq once per term solve before accumulation and divides the
// solved parameters by the returned minFreq once the term's iterations end.
type FreqScaler interface {
	ScaleChanFreq(chanFreq []float64) (scaled []float64, minFreq float64)
}

// DelayTerm solves a single real delay (seconds) per (t_bin, f_bin, ant,
// dir) cell: g(τ, ν) = exp(i·2π·ν·τ). Registered under both "delay" and
// "slow_delay" (see ComplexTerm's doc comment for the naming rationale).
type DelayTerm struct {
	spec Spec
}

func newDelayTerm(spec Spec) (Term, error) {
	if spec.Iters <= 0 {
		return nil, chk.Err("term %q: iters must be positive, got %d", spec.Name, spec.Iters)
	}
	return &DelayTerm{spec: spec}, nil
}

func (t *DelayTerm) Variant() string     { return t.spec.Variant }
func (t *DelayTerm) Parameterized() bool { return true }

// ParamGain evaluates g(τ, ν) = exp(i·2π·ν·τ) and its τ-derivative
// i·2π·ν·g, broadcast onto the diagonal of mode's corr-matrix layout. The
// caller is expected to have already applied ScaleChanFreq's rescaling to
// chanFreq and theta consistently (theta in the scaled domain is τ·ν_min).
func (t *DelayTerm) ParamGain(theta, chanFreq float64, mode tensor.CorrMode) (gainMat, derivMat []complex128) {
	phase := 2 * math.Pi * chanFreq * theta
	g := complex(math.Cos(phase), math.Sin(phase))
	dg := complex(0, 2*math.Pi*chanFreq) * g
	return diagonalGain(mode, g), diagonalGain(mode, dg)
}

// ScaleChanFreq implements FreqScaler.
func (t *DelayTerm) ScaleChanFreq(chanFreq []float64) ([]float64, float64) {
	minFreq := chanFreq[0]
	for _, f := range chanFreq[1:] {
		if f < minFreq {
			minFreq = f
		}
	}
	if minFreq == 0 {
		minFreq = 1
	}
	scaled := make([]float64, len(chanFreq))
	for i, f := range chanFreq {
		scaled[i] = f / minFreq
	}
	return scaled, minFreq
}

// EstimateInitial implements InitialEstimator (§8 scenario 4, supplemented
// feature per SPEC_FULL.md §11): seeds this term's Params from an FFT of
// the per-antenna, per-direction phase spectrum of the data/model ratio,
// gated by Spec.InitialEstimate. The delay that maximizes the FFT
// magnitude along the channel axis is, to within 1/(N·Δν), the true delay
// (spec.md §8 scenario 4's tolerance).
func (t *DelayTerm) EstimateInitial(ctx *Context) error {
	if !t.spec.InitialEstimate {
		return nil
	}
	ts := ctx.ActiveTerm()
	chunk := ctx.Chunk

	nChan := chunk.NChan()
	if nChan < 2 {
		return nil
	}
	chanWidths := make([]float64, 0, nChan)
	for i := 1; i < nChan; i++ {
		chanWidths = append(chanWidths, chunk.ChanFreq[i]-chunk.ChanFreq[i-1])
	}
	deltaNu := meanOf(chanWidths)
	if deltaNu == 0 {
		return nil
	}

	nT, nF, nAnt, nDir := len(ts.Params), 0, chunk.NAnt, ts.NDir()
	if nT > 0 {
		nF = len(ts.Params[0])
	}

	fft := fourier.NewCmplxFFT(nChan)

	for a := 0; a < nAnt; a++ {
		for d := 0; d < nDir; d++ {
			spectrum := make([]complex128, nChan)
			counts := make([]int, nChan)
			for r := 0; r < chunk.NRow(); r++ {
				var ant, other int
				if chunk.Ant1[r] == a {
					ant, other = chunk.Ant1[r], chunk.Ant2[r]
				} else if chunk.Ant2[r] == a {
					ant, other = chunk.Ant2[r], chunk.Ant1[r]
				} else {
					continue
				}
				_ = other
				for f := 0; f < nChan; f++ {
					if chunk.IsFlagged(r, f) {
						continue
					}
					model := chunk.Model[r][f][d%len(chunk.Model[r][f])][0]
					if model == 0 {
						continue
					}
					ratio := chunk.Data[r][f][0] / model
					if chunk.Ant1[r] == a {
						spectrum[f] += ratio
					} else {
						spectrum[f] += cmplxConj(ratio)
					}
					counts[f]++
				}
				_ = ant
			}
			for f := range spectrum {
				if counts[f] > 0 {
					spectrum[f] /= complex(float64(counts[f]), 0)
				}
			}

			transformed := fft.Coefficients(nil, spectrum)
			bestBin, bestMag := 0, -1.0
			for i, c := range transformed {
				mag := real(c)*real(c) + imag(c)*imag(c)
				if mag > bestMag {
					bestMag, bestBin = mag, i
				}
			}
			n := len(transformed)
			lag := bestBin
			if lag > n/2 {
				lag -= n
			}
			tau := float64(lag) / (float64(n) * deltaNu)

			for tt := 0; tt < nT; tt++ {
				for ff := 0; ff < len(ts.Params[tt]); ff++ {
					ts.Params[tt][ff][a][d] = tau
				}
			}
		}
	}
	return nil
}

func cmplxConj(z complex128) complex128 { return complex(real(z), -imag(z)) }

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
