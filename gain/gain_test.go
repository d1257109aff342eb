package gain

import (
	"math"
	"testing"

	"github.com/gocal/gocal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryRegistersAllVariants(t *testing.T) {
	variants := []string{"complex", "slow_complex", "phase", "delay", "slow_delay", "rotation_measure", "parallactic_angle"}
	for _, v := range variants {
		term, err := New(Spec{Name: "t", Variant: v, Iters: 1})
		require.NoError(t, err, v)
		assert.Equal(t, v, term.Variant())
	}
}

func TestFactoryUnknownVariant(t *testing.T) {
	_, err := New(Spec{Name: "t", Variant: "nonsense", Iters: 1})
	assert.Error(t, err)
}

func TestFactoryRejectsNonPositiveIters(t *testing.T) {
	_, err := New(Spec{Name: "t", Variant: "phase", Iters: 0})
	assert.Error(t, err)
}

func TestPhaseParamGainIdentityAtZero(t *testing.T) {
	term, err := New(Spec{Name: "t", Variant: "phase", Iters: 1})
	require.NoError(t, err)
	mapper := term.(ParamMapper)
	g, dg := mapper.ParamGain(0, 0, tensor.ScalarCorr)
	assert.InDelta(t, 1.0, real(g[0]), 1e-12)
	assert.InDelta(t, 0.0, imag(g[0]), 1e-12)
	assert.InDelta(t, 0.0, real(dg[0]), 1e-12)
	assert.InDelta(t, 1.0, imag(dg[0]), 1e-12)
}

// TestPhaseParamGainDerivativeMatchesFiniteDifference exercises the
// closed-form derivative against a central finite difference, independent
// of any solver machinery.
func TestPhaseParamGainDerivativeMatchesFiniteDifference(t *testing.T) {
	term, err := New(Spec{Name: "t", Variant: "phase", Iters: 1})
	require.NoError(t, err)
	mapper := term.(ParamMapper)

	theta := 0.7
	h := 1e-6
	gPlus, _ := mapper.ParamGain(theta+h, 0, tensor.ScalarCorr)
	gMinus, _ := mapper.ParamGain(theta-h, 0, tensor.ScalarCorr)
	_, dg := mapper.ParamGain(theta, 0, tensor.ScalarCorr)

	fd := (gPlus[0] - gMinus[0]) / complex(2*h, 0)
	assert.InDelta(t, real(fd), real(dg[0]), 1e-6)
	assert.InDelta(t, imag(fd), imag(dg[0]), 1e-6)
}

func TestDelayParamGainUnitModulus(t *testing.T) {
	term, err := New(Spec{Name: "t", Variant: "delay", Iters: 1})
	require.NoError(t, err)
	mapper := term.(ParamMapper)
	g, _ := mapper.ParamGain(3e-9, 150e6, tensor.ScalarCorr)
	mag := real(g[0])*real(g[0]) + imag(g[0])*imag(g[0])
	assert.InDelta(t, 1.0, mag, 1e-9)
}

func TestDelayScaleChanFreqNormalizesToUnitMinimum(t *testing.T) {
	term, err := New(Spec{Name: "t", Variant: "delay", Iters: 1})
	require.NoError(t, err)
	scaler := term.(FreqScaler)
	scaled, minFreq := scaler.ScaleChanFreq([]float64{100e6, 150e6, 200e6})
	assert.Equal(t, 100e6, minFreq)
	assert.InDelta(t, 1.0, scaled[0], 1e-9)
	assert.InDelta(t, 2.0, scaled[2], 1e-9)
}

func TestRotationMeasureParamGainUnitModulus(t *testing.T) {
	term, err := New(Spec{Name: "t", Variant: "rotation_measure", Iters: 1})
	require.NoError(t, err)
	mapper := term.(ParamMapper)
	g, _ := mapper.ParamGain(2.0, 150e6, tensor.DiagCorr)
	for _, v := range g {
		mag := real(v)*real(v) + imag(v)*imag(v)
		assert.InDelta(t, 1.0, mag, 1e-9)
	}
}

func TestParallacticAngleParamGainIsOrthogonal(t *testing.T) {
	term, err := New(Spec{Name: "t", Variant: "parallactic_angle", Iters: 1})
	require.NoError(t, err)
	mapper := term.(ParamMapper)
	g, _ := mapper.ParamGain(math.Pi/5, 0, tensor.FullCorr)
	gH := tensor.ConjTranspose(tensor.FullCorr, g)
	product := tensor.MatMul(tensor.FullCorr, g, gH)
	ident := tensor.Identity(tensor.FullCorr)
	for i := range ident {
		assert.InDelta(t, real(ident[i]), real(product[i]), 1e-9)
		assert.InDelta(t, imag(ident[i]), imag(product[i]), 1e-9)
	}
}

func TestParallacticAngleDegeneratesToIdentityOutsideFullCorr(t *testing.T) {
	term, err := New(Spec{Name: "t", Variant: "parallactic_angle", Iters: 1})
	require.NoError(t, err)
	mapper := term.(ParamMapper)
	g, _ := mapper.ParamGain(1.23, 0, tensor.DiagCorr)
	assert.Equal(t, []complex128{1, 1}, g)
}

func TestChainProductExcludesActiveTerm(t *testing.T) {
	identityTerm, err := New(Spec{Name: "G", Variant: "complex", Iters: 1})
	require.NoError(t, err)
	otherTerm, err := New(Spec{Name: "B", Variant: "complex", Iters: 1})
	require.NoError(t, err)

	tsG := &TermState{Spec: Spec{Name: "G"}, Term: identityTerm}
	tsB := &TermState{Spec: Spec{Name: "B"}, Term: otherTerm}
	chain := &Chain{Terms: []*TermState{tsG, tsB}, NDir: 1, Mode: tensor.ScalarCorr}
	require.NoError(t, chain.BuildTables([]float64{0}, []float64{1e8}, []float64{1e6}))
	chain.Allocate(2)

	tsB.Gains[0][0][0][0] = complex(2, 0)

	product := ChainProductExcept(chain, 0, 0, 0, 0, 0)
	assert.Equal(t, complex(2, 0), product[0])

	full := ChainProductFull(chain, 0, 0, 0, 0)
	assert.Equal(t, complex(2, 0), full[0])
}
