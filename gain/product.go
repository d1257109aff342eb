package gain

import "github.com/gocal/gocal/tensor"

// gainAt looks up term ts's current gain for the given row/channel,
// antenna and model direction, resolving through that term's own interval
// and direction mapping tables — every term in a chain may bin time,
// frequency and direction differently (§4.1).
func gainAt(ts *TermState, row, chanIdx, ant, modelDir int, mode tensor.CorrMode) []complex128 {
	tBin := int(ts.Table.TMap[row])
	fBin := int(ts.Table.FMap[chanIdx])
	dOut := int(ts.Table.DMap[modelDir])
	return ts.Gains[tBin][fBin][ant][dOut]
}

// ChainProductExcept forms the ordered product G¹_a·G²_a·…·Gᴷ_a (§4.3
// observation model) for antenna a and model direction modelDir, skipping
// the term at index exclude (pass -1 to include every term). Chain order
// is preserved exactly as given — §5 forbids reordering it.
func ChainProductExcept(chain *Chain, row, chanIdx, ant, modelDir, exclude int) []complex128 {
	acc := tensor.Identity(chain.Mode)
	for j, ts := range chain.Terms {
		if j == exclude {
			continue
		}
		g := gainAt(ts, row, chanIdx, ant, modelDir, chain.Mode)
		acc = tensor.MatMul(chain.Mode, acc, g)
	}
	return acc
}

// ChainProductFull is ChainProductExcept with no excluded term.
func ChainProductFull(chain *Chain, row, chanIdx, ant, modelDir int) []complex128 {
	return ChainProductExcept(chain, row, chanIdx, ant, modelDir, -1)
}
