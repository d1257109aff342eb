package gain

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/gocal/gocal/tensor"
)

// ParallacticAngleTerm solves a single real parallactic angle (radians)
// per cell, expressed as a real rotation of the linear feed basis:
//
//	G(θ) = [ cosθ  sinθ ]
//	       [-sinθ  cosθ ]
//
// For ScalarCorr/DiagCorr data (no off-diagonal storage) the rotation
// degenerates to identity, since the feed-mixing term it corrects is
// structurally absent.
type ParallacticAngleTerm struct {
	spec Spec
}

func newParallacticAngleTerm(spec Spec) (Term, error) {
	if spec.Iters <= 0 {
		return nil, chk.Err("term %q: iters must be positive, got %d", spec.Name, spec.Iters)
	}
	return &ParallacticAngleTerm{spec: spec}, nil
}

func (t *ParallacticAngleTerm) Variant() string     { return t.spec.Variant }
func (t *ParallacticAngleTerm) Parameterized() bool { return true }

func (t *ParallacticAngleTerm) ParamGain(theta, _ float64, mode tensor.CorrMode) (gainMat, derivMat []complex128) {
	c, s := math.Cos(theta), math.Sin(theta)
	if mode != tensor.FullCorr {
		return diagonalGain(mode, complex(1, 0)), diagonalGain(mode, complex(0, 0))
	}
	gainMat = []complex128{complex(c, 0), complex(s, 0), complex(-s, 0), complex(c, 0)}
	derivMat = []complex128{complex(-s, 0), complex(c, 0), complex(-c, 0), complex(-s, 0)}
	return gainMat, derivMat
}
