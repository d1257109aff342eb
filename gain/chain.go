package gain

import (
	"github.com/gocal/gocal/mapping"
	"github.com/gocal/gocal/tensor"
)

// TermState is the mutable per-chunk solve state for one term in the
// chain: its spec, its Term implementation, the interval mapping tables
// computed for it, and the tensors it owns for the duration of the chunk
// solve (§3 lifecycle: written once per chunk, handed back to the
// dispatcher, nothing persists across chunks).
type TermState struct {
	Spec  Spec
	Term  Term
	Table mapping.Tables

	// Gains holds the gain tensor, indexed [t][f][ant][dir][corr].
	Gains [][][][][]complex128
	// GainFlags holds the per-solution-cell flag, indexed [t][f][ant][dir].
	GainFlags [][][][]int8
	// Params holds the underlying parameter, indexed [t][f][ant][dir] (one
	// real scalar per cell; see ParamMapper). Nil for unparameterized terms.
	Params [][][][]float64
	// ParamFlags mirrors GainFlags onto the parameter's own t/f mapping.
	ParamFlags [][][][]int8

	IterCount           int
	ConvergedPercentage float64
}

// NDir returns the number of distinct gain directions this term carries
// (1 if direction-independent).
func (ts *TermState) NDir() int {
	if !ts.Spec.DirectionDependent {
		return 1
	}
	n := 0
	for _, d := range ts.Table.DMap {
		if int(d)+1 > n {
			n = int(d) + 1
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

// Chain is the ordered sequence of gain terms (§6). Term-round-robin order
// is fixed by this slice's order and must never be reordered by the solver
// (§5 ordering).
type Chain struct {
	Terms []*TermState
	NDir  int // number of model directions (shared across all terms' d_map)
	Mode  tensor.CorrMode
}

// Clone returns a fresh Chain sharing this chain's Spec/Term values (both
// immutable once constructed) but with brand new, zero-valued TermStates —
// the per-chunk tensors a dispatch.Dispatcher's chainFactory must hand each
// chunk its own copy of (§3: nothing persists across chunks).
func (c *Chain) Clone() *Chain {
	terms := make([]*TermState, len(c.Terms))
	for i, ts := range c.Terms {
		terms[i] = &TermState{Spec: ts.Spec, Term: ts.Term}
	}
	return &Chain{Terms: terms, NDir: c.NDir, Mode: c.Mode}
}

// BuildTables computes each term's interval mapping tables against one
// chunk's time/frequency axes (§4.1) and assigns them to ts.Table. Must run
// before Allocate, since the tensor shapes Allocate builds are read from
// Table.NTimeBins/NFreqBins.
func (c *Chain) BuildTables(times, chanFreq, chanWidth []float64) error {
	for _, ts := range c.Terms {
		tIv := mapping.Interval{Count: ts.Spec.TimeInterval.Count, Duration: ts.Spec.TimeInterval.Duration}
		fIv := mapping.Interval{Count: ts.Spec.FreqInterval.Count, Duration: ts.Spec.FreqInterval.Duration}
		table, err := mapping.Build(times, chanFreq, chanWidth, tIv, fIv, c.NDir, ts.Spec.DirectionDependent)
		if err != nil {
			return err
		}
		ts.Table = table
	}
	return nil
}

// Allocate builds Gains set to the identity corr-matrix and zero-valued
// GainFlags/Params/ParamFlags for every term, sized from its mapping tables
// and the chunk's antenna count and correlation mode.
func (c *Chain) Allocate(nAnt int) {
	for _, ts := range c.Terms {
		nT, nF := ts.Table.NTimeBins, ts.Table.NFreqBins
		nDir := ts.NDir()
		nCorr := c.Mode.NCorr()

		ts.Gains = make([][][][][]complex128, nT)
		ts.GainFlags = make([][][][]int8, nT)
		for t := 0; t < nT; t++ {
			ts.Gains[t] = make([][][][]complex128, nF)
			ts.GainFlags[t] = make([][][]int8, nF)
			for f := 0; f < nF; f++ {
				ts.Gains[t][f] = make([][][]complex128, nAnt)
				ts.GainFlags[t][f] = make([][]int8, nAnt)
				for a := 0; a < nAnt; a++ {
					ts.Gains[t][f][a] = make([][]complex128, nDir)
					ts.GainFlags[t][f][a] = make([]int8, nDir)
					for d := 0; d < nDir; d++ {
						ts.Gains[t][f][a][d] = tensor.Identity(c.Mode)
					}
				}
			}
		}

		if ts.Term.Parameterized() {
			ts.Params = make([][][][]float64, nT)
			ts.ParamFlags = make([][][][]int8, nT)
			for t := 0; t < nT; t++ {
				ts.Params[t] = make([][][]float64, nF)
				ts.ParamFlags[t] = make([][][]int8, nF)
				for f := 0; f < nF; f++ {
					ts.Params[t][f] = make([][]float64, nAnt)
					ts.ParamFlags[t][f] = make([][]int8, nAnt)
					for a := 0; a < nAnt; a++ {
						ts.Params[t][f][a] = make([]float64, nDir)
						ts.ParamFlags[t][f][a] = make([]int8, nDir)
					}
				}
			}
		}
		_ = nCorr
	}
}
