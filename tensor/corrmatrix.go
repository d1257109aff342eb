package tensor

// A "corr-matrix" is the in-memory representation a gain or Jones term
// takes at one solution cell: a length-NCorr() slice of complex128 using
// exactly the same layout as the data model's corr axis (§3) — scalar,
// diagonal (2 entries), or full 2x2 row-major (XX, XY, YX, YY). All
// per-term algebra (chain products, inversion, residual formation) is
// expressed through these few mode-aware operators so the solver's outer
// loops never branch on correlation count themselves (§9 redesign note).

// Identity returns the multiplicative identity corr-matrix for mode.
func Identity(mode CorrMode) []complex128 {
	switch mode {
	case ScalarCorr:
		return []complex128{1}
	case DiagCorr:
		return []complex128{1, 1}
	case FullCorr:
		return []complex128{1, 0, 0, 1}
	}
	return nil
}

// Zero returns the additive identity corr-matrix for mode.
func Zero(mode CorrMode) []complex128 {
	return make([]complex128, mode.NCorr())
}

// MatMul returns a*b under mode's matrix layout.
func MatMul(mode CorrMode, a, b []complex128) []complex128 {
	switch mode {
	case ScalarCorr:
		return []complex128{a[0] * b[0]}
	case DiagCorr:
		return []complex128{a[0] * b[0], a[1] * b[1]}
	case FullCorr:
		return []complex128{
			a[0]*b[0] + a[1]*b[2],
			a[0]*b[1] + a[1]*b[3],
			a[2]*b[0] + a[3]*b[2],
			a[2]*b[1] + a[3]*b[3],
		}
	}
	return nil
}

// ConjTranspose returns aᴴ under mode's matrix layout.
func ConjTranspose(mode CorrMode, a []complex128) []complex128 {
	switch mode {
	case ScalarCorr:
		return []complex128{cmplxConj(a[0])}
	case DiagCorr:
		return []complex128{cmplxConj(a[0]), cmplxConj(a[1])}
	case FullCorr:
		return []complex128{cmplxConj(a[0]), cmplxConj(a[2]), cmplxConj(a[1]), cmplxConj(a[3])}
	}
	return nil
}

// Add returns a+b element-wise.
func Add(mode CorrMode, a, b []complex128) []complex128 {
	out := make([]complex128, mode.NCorr())
	for i := range out {
		out[i] = a[i] + b[i]
	}
	return out
}

// Sub returns a-b element-wise.
func Sub(mode CorrMode, a, b []complex128) []complex128 {
	out := make([]complex128, mode.NCorr())
	for i := range out {
		out[i] = a[i] - b[i]
	}
	return out
}

// Scale returns s*a element-wise, for a real scale factor s.
func Scale(mode CorrMode, a []complex128, s float64) []complex128 {
	out := make([]complex128, mode.NCorr())
	for i := range out {
		out[i] = complex(s, 0) * a[i]
	}
	return out
}

// Invert2x2 inverts a dense 2x2 complex matrix (row-major a,b,c,d),
// returning the zero matrix and ok=false if the determinant is zero
// (§4.3/§7.3 division-by-zero policy: never produce NaN/Inf).
func Invert2x2(m []complex128) (inv []complex128, ok bool) {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 {
		return []complex128{0, 0, 0, 0}, false
	}
	invDet := 1 / det
	return []complex128{
		m[3] * invDet, -m[1] * invDet,
		-m[2] * invDet, m[0] * invDet,
	}, true
}

// InvertScalar inverts a 1x1 "matrix", returning 0 on division by zero.
func InvertScalar(m complex128) (complex128, bool) {
	if m == 0 {
		return 0, false
	}
	return 1 / m, true
}

// Invert4x4Blockwise inverts a FullCorr gain-solve normal matrix that is
// block-diagonal in its two matrix rows (§4.3 step 4: "4×4 via blockwise
// inversion") — the right-multiplication model G·A used throughout this
// solver decouples the two rows of G, so the dense 4x4 normal matrix is
// exactly two independent 2x2 blocks; inverting them separately is exact,
// not an approximation.
func Invert4x4Blockwise(rowBlock []complex128) (inv []complex128, ok bool) {
	inv, ok = Invert2x2(rowBlock)
	return inv, ok
}

// Invert inverts a corr-matrix under mode's layout, dispatching to
// InvertScalar/Invert2x2 as appropriate. Used by the visibility package to
// apply the inverse chain to data/residuals (§4.5).
func Invert(mode CorrMode, m []complex128) (inv []complex128, ok bool) {
	switch mode {
	case ScalarCorr:
		v, ok := InvertScalar(m[0])
		return []complex128{v}, ok
	case DiagCorr:
		v0, ok0 := InvertScalar(m[0])
		v1, ok1 := InvertScalar(m[1])
		return []complex128{v0, v1}, ok0 && ok1
	case FullCorr:
		return Invert2x2(m)
	}
	return nil, false
}

func cmplxConj(z complex128) complex128 {
	return complex(real(z), -imag(z))
}
