package gain

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/gocal/gocal/tensor"
)

// PhaseTerm solves a single real phase per (t_bin, f_bin, ant, dir) cell,
// applied identically (diagonally, no off-diagonal mixing) to every stored
// correlation: g(θ) = exp(iθ). Scenario 2 of spec.md §8 exercises this
// term directly.
type PhaseTerm struct {
	spec Spec
}

func newPhaseTerm(spec Spec) (Term, error) {
	if spec.Iters <= 0 {
		return nil, chk.Err("term %q: iters must be positive, got %d", spec.Name, spec.Iters)
	}
	return &PhaseTerm{spec: spec}, nil
}

func (t *PhaseTerm) Variant() string     { return t.spec.Variant }
func (t *PhaseTerm) Parameterized() bool { return true }

// ParamGain implements ParamMapper: g = exp(iθ) on every diagonal entry,
// off-diagonal structurally zero; derivative is i·g.
func (t *PhaseTerm) ParamGain(theta, _ float64, mode tensor.CorrMode) (gainMat, derivMat []complex128) {
	g := complex(math.Cos(theta), math.Sin(theta))
	dg := complex(0, 1) * g
	return diagonalGain(mode, g), diagonalGain(mode, dg)
}

// diagonalGain broadcasts a scalar onto every on-diagonal correlation
// entry of mode's corr-matrix layout, leaving any off-diagonal entries
// structurally zero (§3 invariant for 2-correlation data, generalized to
// the diagonal gain any parameterized term here produces).
func diagonalGain(mode tensor.CorrMode, v complex128) []complex128 {
	switch mode {
	case tensor.ScalarCorr:
		return []complex128{v}
	case tensor.DiagCorr:
		return []complex128{v, v}
	case tensor.FullCorr:
		return []complex128{v, 0, 0, v}
	}
	return nil
}
