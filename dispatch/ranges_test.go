package dispatch

import (
	"testing"

	"github.com/gocal/gocal/tensor"
	"github.com/stretchr/testify/assert"
)

func datasetWithTimes(times []float64) *tensor.Dataset {
	n := len(times)
	data := make([][][]complex128, n)
	model := make([][][][]complex128, n)
	weights := make([][][]float64, n)
	flags := make([][]int8, n)
	ant1 := make([]int, n)
	ant2 := make([]int, n)
	for i := range data {
		data[i] = [][]complex128{{1}}
		model[i] = [][][]complex128{{{1}}}
		weights[i] = [][]float64{{1}}
		flags[i] = []int8{0}
		ant1[i], ant2[i] = 0, 1
	}
	return &tensor.Dataset{
		Data: data, Model: model, Weights: weights, Flags: flags,
		Ant1: ant1, Ant2: ant2, Time: times,
		ChanFreq: []float64{1e8}, ChanWidth: []float64{1e6}, NAnt: 2,
	}
}

func TestRowChunksWholeDatasetWhenNoSize(t *testing.T) {
	ds := datasetWithTimes([]float64{0, 0, 1, 1, 2})
	ranges := RowChunks(ds, 0)
	assert.Equal(t, []Range{{0, 5}}, ranges)
}

func TestRowChunksNeverSplitsUniqueTimestamp(t *testing.T) {
	// Rows 3,4,5 share time 2; with a chunk size of 2 the second chunk
	// must extend to include all three before cutting.
	ds := datasetWithTimes([]float64{0, 0, 1, 2, 2, 2, 3})
	ranges := RowChunks(ds, 2)
	for _, r := range ranges {
		if r.End < ds.NRow() {
			assert.NotEqual(t, ds.Time[r.End], ds.Time[r.End-1], "chunk boundary at %d splits a timestamp", r.End)
		}
	}
	// range lengths must add up to the row count
	covered := 0
	for _, r := range ranges {
		covered += r.End - r.Start
	}
	assert.Equal(t, ds.NRow(), covered)
}

func TestRowChunksRespectsScanBoundaries(t *testing.T) {
	ds := datasetWithTimes([]float64{0, 1, 2, 3})
	ds.ScanBoundaries = []int{2}
	ranges := RowChunks(ds, 3)
	require := assert.New(t)
	require.Contains(ranges, Range{0, 2})
}

func TestChanChunksContiguous(t *testing.T) {
	ds := datasetWithTimes([]float64{0})
	ds.ChanFreq = []float64{1, 2, 3, 4, 5}
	ds.ChanWidth = []float64{1, 1, 1, 1, 1}
	ds.Data = [][][]complex128{{{1}, {1}, {1}, {1}, {1}}}

	ranges := ChanChunks(ds, 2)
	assert.Equal(t, []Range{{0, 2}, {2, 4}, {4, 5}}, ranges)
}
