package gain

import "github.com/gocal/gocal/tensor"

// Context bundles the per-chunk state a Term's optional capabilities
// (ParamMapper, InitialEstimator) need, without requiring those
// capabilities to depend on the solver package. The solver owns the
// Gauss-Newton loop itself; Context only exposes read access to the chunk
// and sibling terms.
type Context struct {
	Chunk  *tensor.Chunk
	Chain  *Chain
	Active int // index into Chain.Terms of the term being operated on
}

// ActiveTerm returns the TermState the active index refers to.
func (c *Context) ActiveTerm() *TermState {
	return c.Chain.Terms[c.Active]
}
