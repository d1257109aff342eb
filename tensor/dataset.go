package tensor

// Dataset is the full, unchunked collection of columns the ingestion
// collaborator supplies (§6, upstream collaborator contract). The
// dispatcher slices it into Chunks. Slice shares the row/channel slabs
// rather than copying them, so flags written into a Chunk's Flags also
// land in the Dataset's Flags.
type Dataset struct {
	Data       [][][]complex128
	Model      [][][][]complex128
	Weights    [][][]float64
	Flags      [][]int8
	Ant1, Ant2 []int
	Time       []float64
	ChanFreq   []float64
	ChanWidth  []float64
	NAnt       int
	// ScanBoundaries holds row indices (sorted, exclusive end of a scan)
	// that a chunk boundary must respect in addition to unique-timestamp
	// boundaries, per the ingestion contract in §6.
	ScanBoundaries []int
}

// NRow returns the total row count of the dataset.
func (d *Dataset) NRow() int { return len(d.Data) }

// NChan returns the total channel count of the dataset.
func (d *Dataset) NChan() int {
	if len(d.Data) == 0 {
		return 0
	}
	return len(d.Data[0])
}

// Slice extracts a Chunk covering rows [rowStart, rowEnd) and channels
// [chanStart, chanEnd). The caller (dispatch.RowChunks/ChanChunks) is
// responsible for respecting unique-timestamp and scan boundaries.
func (d *Dataset) Slice(rowStart, rowEnd, chanStart, chanEnd int) (*Chunk, error) {
	nRow := rowEnd - rowStart
	nChan := chanEnd - chanStart

	data := make([][][]complex128, nRow)
	model := make([][][][]complex128, nRow)
	weights := make([][][]float64, nRow)
	flags := make([][]int8, nRow)
	for i := 0; i < nRow; i++ {
		r := rowStart + i
		data[i] = d.Data[r][chanStart:chanEnd]
		model[i] = d.Model[r][chanStart:chanEnd]
		weights[i] = d.Weights[r][chanStart:chanEnd]
		flags[i] = d.Flags[r][chanStart:chanEnd]
	}

	return NewChunk(
		data, model, weights, flags,
		append([]int(nil), d.Ant1[rowStart:rowEnd]...),
		append([]int(nil), d.Ant2[rowStart:rowEnd]...),
		append([]float64(nil), d.Time[rowStart:rowEnd]...),
		append([]float64(nil), d.ChanFreq[chanStart:chanEnd]...),
		append([]float64(nil), d.ChanWidth[chanStart:chanEnd]...),
		d.NAnt,
	)
}
