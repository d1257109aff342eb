package visibility

import (
	"testing"

	"github.com/gocal/gocal/gain"
	"github.com/gocal/gocal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTwoAntennaChunk(t *testing.T) *tensor.Chunk {
	t.Helper()
	modelVal := complex(3.0, 1.0)
	data := [][][]complex128{{{modelVal}}}
	model := [][][][]complex128{{{{modelVal}}}}
	weights := [][][]float64{{{1}}}
	flags := [][]int8{{0}}
	chunk, err := tensor.NewChunk(data, model, weights, flags, []int{0}, []int{1}, []float64{0}, []float64{1e8}, []float64{1e6}, 2)
	require.NoError(t, err)
	return chunk
}

func identityChain(t *testing.T, chunk *tensor.Chunk) *gain.Chain {
	t.Helper()
	term, err := gain.New(gain.Spec{Name: "G", Variant: "complex", Iters: 1})
	require.NoError(t, err)
	ts := &gain.TermState{Spec: gain.Spec{Name: "G", Variant: "complex"}, Term: term}
	chain := &gain.Chain{Terms: []*gain.TermState{ts}, NDir: 1, Mode: tensor.ScalarCorr}
	require.NoError(t, chain.BuildTables(chunk.Time, chunk.ChanFreq, chunk.ChanWidth))
	chain.Allocate(chunk.NAnt)
	return chain
}

func TestResidualIsZeroWhenDataMatchesModelUnderIdentity(t *testing.T) {
	chunk := buildTwoAntennaChunk(t)
	chain := identityChain(t, chunk)

	res := Residual(chunk, chain)
	assert.Equal(t, complex(0, 0), res[0][0][0])
}

func TestCorrectedDataIsUnchangedUnderIdentityGains(t *testing.T) {
	chunk := buildTwoAntennaChunk(t)
	chain := identityChain(t, chunk)

	out := CorrectedData(chunk, chain)
	assert.Equal(t, chunk.Data[0][0][0], out[0][0][0])
}

func TestCorrectedResidualIsZeroWhenDataMatchesModel(t *testing.T) {
	chunk := buildTwoAntennaChunk(t)
	chain := identityChain(t, chunk)

	out := CorrectedResidual(chunk, chain)
	assert.Equal(t, complex(0, 0), out[0][0][0])
}

func TestApplyInverseChainPassesThroughFlaggedCells(t *testing.T) {
	chunk := buildTwoAntennaChunk(t)
	chunk.Flags[0][0] = 1
	chain := identityChain(t, chunk)

	out := CorrectedData(chunk, chain)
	assert.Equal(t, chunk.Data[0][0][0], out[0][0][0])
}
