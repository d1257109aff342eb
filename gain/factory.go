package gain

import "github.com/cpmech/gosl/chk"

// registry holds the allocator for every registered variant name, keyed
// exactly as ele.SetAllocator/ele.New key their element-type registry in
// the teacher, generalized from "element type" to "gain-term variant".
var registry = make(map[string]Allocator)

// RegisterVariant installs the allocator for a variant name. Panics (a
// fail-fast assembly error, not a returned error, matching ele.SetAllocator)
// if the name is already registered.
func RegisterVariant(name string, fn Allocator) {
	if _, ok := registry[name]; ok {
		chk.Panic("cannot register gain-term variant %q because it is already registered", name)
	}
	registry[name] = fn
}

// New allocates a Term for spec.Variant via the registry. Unknown variant
// names are a configuration error (§7.1), surfaced to the caller.
func New(spec Spec) (Term, error) {
	fn, ok := registry[spec.Variant]
	if !ok {
		return nil, chk.Err("unknown gain-term variant %q for term %q", spec.Variant, spec.Name)
	}
	return fn(spec)
}

func init() {
	RegisterVariant("complex", newComplexTerm)
	RegisterVariant("slow_complex", newComplexTerm)
	RegisterVariant("phase", newPhaseTerm)
	RegisterVariant("delay", newDelayTerm)
	RegisterVariant("slow_delay", newDelayTerm)
	RegisterVariant("rotation_measure", newRotationMeasureTerm)
	RegisterVariant("parallactic_angle", newParallacticAngleTerm)
}
