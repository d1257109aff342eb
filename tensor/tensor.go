// Copyright 2026 The Gocal Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tensor holds the dense per-chunk data model that the solver,
// flagging and visibility-output packages operate on. All tensors are
// owned by the chunk solve for the duration of one (row-chunk, chan-chunk)
// task; nothing persists across chunks.
package tensor

import (
	"github.com/cpmech/gosl/chk"
)

// CorrMode tags the correlation layout of a chunk, resolved once at chunk
// entry. Replaces runtime dispatch on correlation count with a tag chosen
// once per chunk, per the scalar/diag/full kernel split.
type CorrMode int

const (
	// ScalarCorr is single-correlation data; gains are plain scalars.
	ScalarCorr CorrMode = iota
	// DiagCorr is 2-correlation data; off-diagonal gain terms are
	// structurally zero and never stored.
	DiagCorr
	// FullCorr is 4-correlation data, laid out (XX, XY, YX, YY).
	FullCorr
)

// NCorr returns the stored correlation count for the mode (1, 2 or 4).
func (m CorrMode) NCorr() int {
	switch m {
	case ScalarCorr:
		return 1
	case DiagCorr:
		return 2
	case FullCorr:
		return 4
	}
	return 0
}

// CorrModeFromCount maps a stored correlation count to its tag.
func CorrModeFromCount(nCorr int) (CorrMode, error) {
	switch nCorr {
	case 1:
		return ScalarCorr, nil
	case 2:
		return DiagCorr, nil
	case 4:
		return FullCorr, nil
	default:
		return 0, chk.Err("unsupported correlation count %d; expected 1, 2 or 4", nCorr)
	}
}

// Chunk is the contiguous data/model/weights/flags slab handed to the
// solver for one (row-chunk, chan-chunk) task.
type Chunk struct {
	// Data holds observed visibilities, indexed [row][chan][corr].
	Data [][][]complex128
	// Model holds predicted visibilities per direction, indexed
	// [row][chan][dir][corr].
	Model [][][][]complex128
	// Weights holds inverse-variance weights, indexed [row][chan][corr].
	// Zero means flagged.
	Weights [][][]float64
	// Flags holds the aggregate per-visibility flag, indexed [row][chan].
	// Nonzero means skip.
	Flags [][]int8
	// Ant1, Ant2 are the antenna indices of each baseline, one per row.
	Ant1, Ant2 []int
	// Time holds the timestamp of each row, used by the interval mapper.
	Time []float64
	// ChanFreq, ChanWidth give the frequency and channel width for every
	// channel in the chunk.
	ChanFreq, ChanWidth []float64
	// NAnt is the number of antennas spanned by the dataset.
	NAnt int
	// Mode is the resolved correlation-mode tag for this chunk.
	Mode CorrMode
}

// NRow returns the number of rows in the chunk.
func (c *Chunk) NRow() int { return len(c.Data) }

// NChan returns the number of channels in the chunk.
func (c *Chunk) NChan() int {
	if len(c.Data) == 0 {
		return 0
	}
	return len(c.Data[0])
}

// NewChunk validates shapes and invariants (§3) and resolves the
// correlation-mode tag. Shape mismatches are configuration errors (§7.1)
// and are surfaced to the caller; they are never absorbed.
func NewChunk(data [][][]complex128, model [][][][]complex128, weights [][][]float64,
	flags [][]int8, ant1, ant2 []int, timeCol []float64, chanFreq, chanWidth []float64, nAnt int) (*Chunk, error) {

	nRow := len(data)
	if nRow == 0 {
		return nil, chk.Err("chunk has zero rows")
	}
	nChan := len(data[0])
	nCorr := 0
	if nChan > 0 {
		nCorr = len(data[0][0])
	}
	mode, err := CorrModeFromCount(nCorr)
	if err != nil {
		return nil, err
	}
	if len(model) != nRow || len(weights) != nRow || len(flags) != nRow {
		return nil, chk.Err("chunk arrays disagree on row count: data=%d model=%d weights=%d flags=%d",
			nRow, len(model), len(weights), len(flags))
	}
	if len(ant1) != nRow || len(ant2) != nRow || len(timeCol) != nRow {
		return nil, chk.Err("chunk antenna/time columns disagree on row count: ant1=%d ant2=%d time=%d want %d",
			len(ant1), len(ant2), len(timeCol), nRow)
	}
	if len(chanFreq) != nChan || len(chanWidth) != nChan {
		return nil, chk.Err("chunk channel axis disagree: chan_freq=%d chan_width=%d want %d",
			len(chanFreq), len(chanWidth), nChan)
	}
	for r := 0; r < nRow; r++ {
		if ant1[r] == ant2[r] {
			return nil, chk.Err("row %d has equal antenna pair %d; autocorrelations are not valid solver input", r, ant1[r])
		}
	}
	return &Chunk{
		Data: data, Model: model, Weights: weights, Flags: flags,
		Ant1: ant1, Ant2: ant2, Time: timeCol,
		ChanFreq: chanFreq, ChanWidth: chanWidth,
		NAnt: nAnt, Mode: mode,
	}, nil
}

// IsFlagged reports whether visibility (row, chan) should be skipped by the
// solver: either the aggregate flag is set, or any on-diagonal correlation
// carries a zero weight (§3 invariant: a zero weight on an on-diagonal
// correlation is implicitly a flag).
func (c *Chunk) IsFlagged(row, chanIdx int) bool {
	if c.Flags[row][chanIdx] != 0 {
		return true
	}
	w := c.Weights[row][chanIdx]
	switch c.Mode {
	case ScalarCorr:
		return w[0] == 0
	case DiagCorr:
		return w[0] == 0 || w[1] == 0
	case FullCorr:
		return w[0] == 0 || w[3] == 0
	}
	return true
}
