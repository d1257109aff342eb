// Copyright 2026 The Gocal Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads a YAML calibration configuration (§6) via viper and
// assembles it into a gain.Chain, generalizing the teacher's JSON
// struct-tag inp.Data pattern from a simulation description to a gain
// chain spec.
package config

import (
	"github.com/cpmech/gosl/chk"
	"github.com/gocal/gocal/flag"
	"github.com/gocal/gocal/gain"
	"github.com/gocal/gocal/tensor"
	"github.com/spf13/viper"
)

// IntervalOption mirrors mapping.Interval/gain.Interval in config-file form.
type IntervalOption struct {
	Count    int     `mapstructure:"count"`
	Duration float64 `mapstructure:"duration"`
}

func (iv IntervalOption) toGain() gain.Interval {
	return gain.Interval{Count: iv.Count, Duration: iv.Duration}
}

// TermOption describes one chain term's configuration (§6 chain spec
// table).
type TermOption struct {
	Name               string         `mapstructure:"name"`
	Variant            string         `mapstructure:"variant"`
	TimeInterval       IntervalOption `mapstructure:"time_interval"`
	FreqInterval       IntervalOption `mapstructure:"freq_interval"`
	DirectionDependent bool           `mapstructure:"direction_dependent"`
	Iters              int            `mapstructure:"iters"`
	SolvePer           string         `mapstructure:"solve_per"`
	StopFrac           float64        `mapstructure:"stop_frac"`
	StopCrit           float64        `mapstructure:"stop_crit"`
	InitialEstimate    bool           `mapstructure:"initial_estimate"`
	ReferenceAntenna   int            `mapstructure:"reference_antenna"`
}

// MADFlagOption mirrors flag.MADOptions in config-file form (§6
// `mad_flags.enable`/`.threshold_bl`/`.threshold_global`/`.max_deviation`).
type MADFlagOption struct {
	Enable          bool    `mapstructure:"enable"`
	ThresholdBl     float64 `mapstructure:"threshold_bl"`
	ThresholdGlobal float64 `mapstructure:"threshold_global"`
	MaxDeviation    float64 `mapstructure:"max_deviation"`
}

func (m MADFlagOption) toFlag() flag.MADOptions {
	return flag.MADOptions{
		Enable:          m.Enable,
		ThresholdBl:     m.ThresholdBl,
		ThresholdGlobal: m.ThresholdGlobal,
		MaxDeviation:    m.MaxDeviation,
	}
}

// Options is the top-level configuration document (§6).
type Options struct {
	Terms         []TermOption  `mapstructure:"terms"`
	Workers       int           `mapstructure:"workers"`
	RowsPerChunk  int           `mapstructure:"rows_per_chunk"`
	ChansPerChunk int           `mapstructure:"chans_per_chunk"`
	NDir          int           `mapstructure:"n_dir"`
	LogLevel      string        `mapstructure:"log_level"`
	MADFlags      MADFlagOption `mapstructure:"mad_flags"`
}

// MADOptions returns the flag.MADOptions this configuration document
// describes, ready to hand to a flag.MADFlagger.
func (o *Options) MADOptions() flag.MADOptions {
	return o.MADFlags.toFlag()
}

// Load reads and unmarshals a YAML configuration file at path.
func Load(path string) (*Options, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("workers", 1)
	v.SetDefault("n_dir", 1)
	v.SetDefault("log_level", "info")
	v.SetDefault("mad_flags.enable", false)
	v.SetDefault("mad_flags.threshold_bl", 5.0)
	v.SetDefault("mad_flags.threshold_global", 5.0)
	v.SetDefault("mad_flags.max_deviation", 10.0)

	if err := v.ReadInConfig(); err != nil {
		return nil, chk.Err("config: reading %q: %v", path, err)
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, chk.Err("config: decoding %q: %v", path, err)
	}
	return &opts, nil
}

// Assemble builds a gain.Chain from opts against the given correlation
// mode. It refuses (§4.3 Open Question decision, DESIGN.md) any
// configuration with more than one direction-dependent term while
// opts.NDir > 1 — the chain's cross-term direction semantics are
// underspecified in that case, and guessing a resolution policy is worse
// than failing the configuration outright.
func Assemble(opts *Options, mode tensor.CorrMode) (*gain.Chain, error) {
	if len(opts.Terms) == 0 {
		return nil, chk.Err("config: chain must contain at least one term")
	}

	ddCount := 0
	terms := make([]*gain.TermState, 0, len(opts.Terms))
	for _, to := range opts.Terms {
		if to.Iters <= 0 {
			return nil, chk.Err("config: term %q: iters must be positive, got %d", to.Name, to.Iters)
		}
		if to.TimeInterval.Count < 0 || to.TimeInterval.Duration < 0 {
			return nil, chk.Err("config: term %q: time_interval must be non-negative", to.Name)
		}
		if to.FreqInterval.Count < 0 || to.FreqInterval.Duration < 0 {
			return nil, chk.Err("config: term %q: freq_interval must be non-negative", to.Name)
		}
		if to.DirectionDependent {
			ddCount++
		}

		solvePer := gain.SolvePerAntenna
		switch to.SolvePer {
		case "", string(gain.SolvePerAntenna):
			solvePer = gain.SolvePerAntenna
		case string(gain.SolvePerArray):
			solvePer = gain.SolvePerArray
		default:
			return nil, chk.Err("config: term %q: unknown solve_per %q", to.Name, to.SolvePer)
		}

		spec := gain.Spec{
			Name:               to.Name,
			Variant:            to.Variant,
			TimeInterval:       to.TimeInterval.toGain(),
			FreqInterval:       to.FreqInterval.toGain(),
			DirectionDependent: to.DirectionDependent,
			Iters:              to.Iters,
			SolvePer:           solvePer,
			StopFrac:           to.StopFrac,
			StopCrit:           to.StopCrit,
			InitialEstimate:    to.InitialEstimate,
			ReferenceAntenna:   to.ReferenceAntenna,
		}
		term, err := gain.New(spec)
		if err != nil {
			return nil, err
		}
		terms = append(terms, &gain.TermState{Spec: spec, Term: term})
	}

	if ddCount > 1 && opts.NDir > 1 {
		return nil, chk.Err("config: %d direction-dependent terms configured with n_dir=%d; mixed DD/DI chains with more than one DD term and n_dir>1 are not supported", ddCount, opts.NDir)
	}

	return &gain.Chain{Terms: terms, NDir: opts.NDir, Mode: mode}, nil
}
