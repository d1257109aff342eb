// Copyright 2026 The Gocal Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gain implements the chain of gain-term variants (§4.3, §6):
// the capability interface every variant implements, the string-keyed
// variant registry (generalizing the teacher's ele.SetAllocator/ele.New
// registered-element pattern to gain-term variants), and the variants
// themselves.
package gain

import "github.com/gocal/gocal/tensor"

// SolvePer selects whether a term's normal equations are solved per
// antenna or collapsed across the whole array (§4.3 step 3, §6).
type SolvePer string

const (
	SolvePerAntenna SolvePer = "antenna"
	SolvePerArray   SolvePer = "array"
)

// Spec describes one gain term's configuration (§6 chain spec table).
type Spec struct {
	Name               string
	Variant            string
	TimeInterval       Interval
	FreqInterval       Interval
	DirectionDependent bool
	Iters              int
	SolvePer           SolvePer
	StopFrac           float64
	StopCrit           float64
	InitialEstimate    bool
	ReferenceAntenna   int
}

// Interval is a distinct type kept structurally identical to
// mapping.Interval, so conversion is a straight field copy (see
// Chain.BuildTables).
type Interval struct {
	Count    int
	Duration float64
}

// Term is the capability every gain-term variant must implement (§9
// redesign: capability interface replacing polymorphic init_term/solver/
// params_to_gain). Optional extensions (ParamMapper, InitialEstimator) are
// implemented by the variants that need them and recovered by the solver
// via type assertion, mirroring the teacher's WithIntVars/CanExtrapolate
// optional-capability split in ele/element.go.
type Term interface {
	// Variant returns the registered variant name.
	Variant() string
	// Parameterized reports whether this term solves a real parameter
	// vector (true) or the gain matrix directly (false).
	Parameterized() bool
}

// ParamMapper is implemented by parameterized terms (delay, rotation
// measure, parallactic angle, phase): it deterministically maps a single
// real scalar parameter to a gain corr-matrix and its derivative, the
// term-specific accumulator referenced in §4.3 step 2.
type ParamMapper interface {
	Term
	// ParamGain evaluates the gain and its derivative with respect to the
	// scalar parameter theta, at the given channel frequency, under mode's
	// corr-matrix layout.
	ParamGain(theta, chanFreq float64, mode tensor.CorrMode) (gainMat, derivMat []complex128)
}

// InitialEstimator is implemented by terms that can seed their parameters
// from a fast closed-form estimate before the first Gauss-Newton iteration
// (§8 scenario 4: FFT-based initial delay estimate).
type InitialEstimator interface {
	Term
	// EstimateInitial fills ctx's active term's Params in place.
	EstimateInitial(ctx *Context) error
}

// Allocator constructs a Term from its Spec. Registered once per variant
// name via RegisterVariant.
type Allocator func(spec Spec) (Term, error)
