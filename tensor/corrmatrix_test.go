package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityIsMatMulNeutral(t *testing.T) {
	for _, mode := range []CorrMode{ScalarCorr, DiagCorr, FullCorr} {
		a := someMatrix(mode)
		got := MatMul(mode, a, Identity(mode))
		for i := range got {
			assert.InDelta(t, real(a[i]), real(got[i]), 1e-12, mode)
			assert.InDelta(t, imag(a[i]), imag(got[i]), 1e-12, mode)
		}
	}
}

func TestInvert2x2RoundTrips(t *testing.T) {
	m := []complex128{complex(1, 1), complex(0, 2), complex(-1, 0), complex(2, 1)}
	inv, ok := Invert2x2(m)
	require.True(t, ok)
	product := MatMul(FullCorr, m, inv)
	ident := Identity(FullCorr)
	for i := range ident {
		assert.InDelta(t, real(ident[i]), real(product[i]), 1e-9)
		assert.InDelta(t, imag(ident[i]), imag(product[i]), 1e-9)
	}
}

func TestInvert2x2SingularReturnsNotOK(t *testing.T) {
	m := []complex128{1, 1, 1, 1}
	_, ok := Invert2x2(m)
	assert.False(t, ok)
}

func TestInvert4x4BlockwiseMatchesInvert2x2(t *testing.T) {
	m := []complex128{complex(2, 0), complex(0, 1), complex(0, -1), complex(3, 0)}
	want, wantOK := Invert2x2(m)
	got, gotOK := Invert4x4Blockwise(m)
	require.Equal(t, wantOK, gotOK)
	assert.Equal(t, want, got)
}

func TestConjTransposeIsInvolution(t *testing.T) {
	m := someMatrix(FullCorr)
	twice := ConjTranspose(FullCorr, ConjTranspose(FullCorr, m))
	assert.Equal(t, m, twice)
}

func TestInvertDispatchesByMode(t *testing.T) {
	s, ok := Invert(ScalarCorr, []complex128{complex(2, 0)})
	require.True(t, ok)
	assert.Equal(t, complex(0.5, 0), s[0])

	d, ok := Invert(DiagCorr, []complex128{complex(2, 0), complex(4, 0)})
	require.True(t, ok)
	assert.Equal(t, []complex128{complex(0.5, 0), complex(0.25, 0)}, d)

	_, ok = Invert(ScalarCorr, []complex128{0})
	assert.False(t, ok)
}

func someMatrix(mode CorrMode) []complex128 {
	switch mode {
	case ScalarCorr:
		return []complex128{complex(1, 2)}
	case DiagCorr:
		return []complex128{complex(1, 2), complex(3, -1)}
	case FullCorr:
		return []complex128{complex(1, 2), complex(0, 1), complex(-1, 0), complex(2, 2)}
	}
	return nil
}
