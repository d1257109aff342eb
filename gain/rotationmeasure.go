package gain

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/gocal/gocal/tensor"
)

// speedOfLight matches the constant original_source's
// rotation_measure/__init__.py uses to convert frequency to wavelength.
const speedOfLight = 299792458.0

// RotationMeasureTerm solves a single real rotation measure (rad/m²) per
// cell: g(RM, ν) = exp(i·RM·λ²), λ = c/ν. A pure parameter→gain map, per
// spec.md §4.3's closing note.
type RotationMeasureTerm struct {
	spec Spec
}

func newRotationMeasureTerm(spec Spec) (Term, error) {
	if spec.Iters <= 0 {
		return nil, chk.Err("term %q: iters must be positive, got %d", spec.Name, spec.Iters)
	}
	return &RotationMeasureTerm{spec: spec}, nil
}

func (t *RotationMeasureTerm) Variant() string     { return t.spec.Variant }
func (t *RotationMeasureTerm) Parameterized() bool { return true }

func (t *RotationMeasureTerm) ParamGain(theta, chanFreq float64, mode tensor.CorrMode) (gainMat, derivMat []complex128) {
	lambdaSq := (speedOfLight / chanFreq) * (speedOfLight / chanFreq)
	phase := theta * lambdaSq
	g := complex(math.Cos(phase), math.Sin(phase))
	dg := complex(0, lambdaSq) * g
	return diagonalGain(mode, g), diagonalGain(mode, dg)
}
