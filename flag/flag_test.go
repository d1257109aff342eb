package flag

import (
	"math"
	"testing"

	"github.com/gocal/gocal/gain"
	"github.com/gocal/gocal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTermState(t *testing.T, nT, nF, nAnt, nDir int) *gain.TermState {
	t.Helper()
	term, err := gain.New(gain.Spec{Name: "G", Variant: "complex", Iters: 1})
	require.NoError(t, err)
	ts := &gain.TermState{Spec: gain.Spec{Name: "G", Variant: "complex"}, Term: term}

	ts.Gains = make([][][][][]complex128, nT)
	ts.GainFlags = make([][][][]int8, nT)
	for tt := 0; tt < nT; tt++ {
		ts.Gains[tt] = make([][][][]complex128, nF)
		ts.GainFlags[tt] = make([][][]int8, nF)
		for f := 0; f < nF; f++ {
			ts.Gains[tt][f] = make([][][]complex128, nAnt)
			ts.GainFlags[tt][f] = make([][]int8, nAnt)
			for a := 0; a < nAnt; a++ {
				ts.Gains[tt][f][a] = make([][]complex128, nDir)
				ts.GainFlags[tt][f][a] = make([]int8, nDir)
				for d := 0; d < nDir; d++ {
					ts.Gains[tt][f][a][d] = []complex128{1}
				}
			}
		}
	}
	return ts
}

func buildDelta2(ts *gain.TermState, value float64) [][][][]float64 {
	out := make([][][][]float64, len(ts.GainFlags))
	for t := range ts.GainFlags {
		out[t] = make([][][]float64, len(ts.GainFlags[t]))
		for f := range ts.GainFlags[t] {
			out[t][f] = make([][]float64, len(ts.GainFlags[t][f]))
			for a := range ts.GainFlags[t][f] {
				out[t][f][a] = make([]float64, len(ts.GainFlags[t][f][a]))
				for d := range out[t][f][a] {
					out[t][f][a][d] = value
				}
			}
		}
	}
	return out
}

func TestGainFlagTrackerPromotesSoftAfterSustainedNonConvergence(t *testing.T) {
	ts := buildTermState(t, 1, 1, 1, 1)
	tracker := NewGainFlagTracker(ts)

	for i := 0; i < softTrendLimit-1; i++ {
		tracker.Update(ts, buildDelta2(ts, 1.0), 1e-6)
		assert.Equal(t, Unflagged, ts.GainFlags[0][0][0][0])
	}
	tracker.Update(ts, buildDelta2(ts, 1.0), 1e-6)
	assert.Equal(t, Soft, ts.GainFlags[0][0][0][0])
}

func TestGainFlagTrackerResetsTrendOnConvergence(t *testing.T) {
	ts := buildTermState(t, 1, 1, 1, 1)
	tracker := NewGainFlagTracker(ts)

	for i := 0; i < softTrendLimit-1; i++ {
		tracker.Update(ts, buildDelta2(ts, 1.0), 1e-6)
	}
	tracker.Update(ts, buildDelta2(ts, 0.0), 1e-6)
	assert.Equal(t, Unflagged, ts.GainFlags[0][0][0][0])

	pct := tracker.Update(ts, buildDelta2(ts, 0.0), 1e-6)
	assert.Equal(t, 1.0, pct)
}

func TestFinalizePromotesSoftToHard(t *testing.T) {
	ts := buildTermState(t, 1, 1, 1, 1)
	ts.GainFlags[0][0][0][0] = Soft
	tracker := NewGainFlagTracker(ts)
	tracker.Finalize(ts)
	assert.Equal(t, Hard, ts.GainFlags[0][0][0][0])
}

func TestRecordMissingSetsHardImmediately(t *testing.T) {
	ts := buildTermState(t, 1, 1, 1, 1)
	tracker := NewGainFlagTracker(ts)
	tracker.RecordMissing(ts, 0, 0, 0, 0)
	assert.Equal(t, Hard, ts.GainFlags[0][0][0][0])
}

func TestCopyGainFlagsToParamFlags(t *testing.T) {
	ts := buildTermState(t, 1, 1, 1, 1)
	ts.ParamFlags = [][][][]int8{{{{0}}}}
	ts.GainFlags[0][0][0][0] = Hard
	CopyGainFlagsToParamFlags(ts)
	assert.Equal(t, Hard, ts.ParamFlags[0][0][0][0])
}

func TestPropagateToChunkOrsHardFlagsOntoVisibilities(t *testing.T) {
	ts := buildTermState(t, 1, 1, 2, 1)
	ts.GainFlags[0][0][1][0] = Hard
	chunkFlags := [][]int8{{0}, {0}}
	ant1 := []int{0, 1}
	ant2 := []int{1, 0}
	tMap := []int32{0, 0}
	fMap := []int32{0}

	PropagateToChunk(ts, chunkFlags, ant1, ant2, tMap, fMap)
	assert.EqualValues(t, 1, chunkFlags[0][0])
	assert.EqualValues(t, 1, chunkFlags[1][0])
}

// TestMADFlaggerFlagsInjectedOutliers builds a single-baseline chunk of 20
// rows whose chi-squared (|R|²·W, scalar corr so W is just the row weight)
// is a smooth ramp for 15 rows plus 5 outliers at median+10·MAD (median
// 1.25, MAD 0.25 over all 20 values; spec.md §8 scenario 6) and checks that exactly those 5 rows get flagged,
// with the 15 background rows untouched.
func TestMADFlaggerFlagsInjectedOutliers(t *testing.T) {
	const nNormal = 15
	const nOutlier = 5
	nRow := nNormal + nOutlier

	data := make([][][]complex128, nRow)
	model := make([][][][]complex128, nRow)
	weights := make([][][]float64, nRow)
	flags := make([][]int8, nRow)
	ant1 := make([]int, nRow)
	ant2 := make([]int, nRow)
	timeCol := make([]float64, nRow)
	residual := make([][][]complex128, nRow)

	chiSq := make([]float64, nRow)
	for i := 0; i < nNormal; i++ {
		chiSq[i] = 0.80 + 0.05*float64(i)
	}
	for i := 0; i < nOutlier; i++ {
		chiSq[nNormal+i] = 3.75
	}

	for r := 0; r < nRow; r++ {
		data[r] = [][]complex128{{0}}
		model[r] = [][][]complex128{{{0}}}
		weights[r] = [][]float64{{1}}
		flags[r] = []int8{0}
		ant1[r], ant2[r] = 0, 1
		timeCol[r] = float64(r)
		residual[r] = [][]complex128{{complex(math.Sqrt(chiSq[r]), 0)}}
	}

	chunk, err := tensor.NewChunk(data, model, weights, flags, ant1, ant2, timeCol,
		[]float64{1e8}, []float64{1e6}, 2)
	require.NoError(t, err)

	f := &MADFlagger{Opts: MADOptions{Enable: true, ThresholdBl: 3, ThresholdGlobal: 3, MaxDeviation: 20}}
	f.Flag(chunk, residual)

	for i := 0; i < nNormal; i++ {
		assert.EqualValues(t, 0, chunk.Flags[i][0], "background row %d flagged", i)
	}
	for i := 0; i < nOutlier; i++ {
		assert.EqualValues(t, 1, chunk.Flags[nNormal+i][0], "outlier row %d not flagged", nNormal+i)
	}
}

// TestMADFlaggerDisabledLeavesFlagsUntouched checks the enable gate.
func TestMADFlaggerDisabledLeavesFlagsUntouched(t *testing.T) {
	data := [][][]complex128{{{0}}}
	model := [][][][]complex128{{{{0}}}}
	weights := [][][]float64{{{1}}}
	flags := [][]int8{{0}}
	ant1 := []int{0}
	ant2 := []int{1}
	timeCol := []float64{0}
	residual := [][][]complex128{{{complex(1000, 0)}}}

	chunk, err := tensor.NewChunk(data, model, weights, flags, ant1, ant2, timeCol, []float64{1e8}, []float64{1e6}, 2)
	require.NoError(t, err)

	f := &MADFlagger{Opts: MADOptions{Enable: false, ThresholdBl: 1, ThresholdGlobal: 1, MaxDeviation: 1}}
	f.Flag(chunk, residual)

	assert.EqualValues(t, 0, chunk.Flags[0][0])
}
