package gain

import "github.com/cpmech/gosl/chk"

// ComplexTerm solves the full (or diagonal/scalar) gain matrix directly,
// with no underlying parameterization. Registered under both "complex"
// and "slow_complex" (§7 supplemented feature: the two names share the
// identical kernel and differ only in the interval/direction-dependence
// defaults a config file gives them — see SPEC_FULL.md §7).
type ComplexTerm struct {
	spec Spec
}

func newComplexTerm(spec Spec) (Term, error) {
	if spec.Iters <= 0 {
		return nil, chk.Err("term %q: iters must be positive, got %d", spec.Name, spec.Iters)
	}
	return &ComplexTerm{spec: spec}, nil
}

func (t *ComplexTerm) Variant() string    { return t.spec.Variant }
func (t *ComplexTerm) Parameterized() bool { return false }
