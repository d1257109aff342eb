// Copyright 2026 The Gocal Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/gocal/gocal/config"
	"github.com/gocal/gocal/dispatch"
	"github.com/gocal/gocal/flag"
	"github.com/gocal/gocal/gain"
	"github.com/gocal/gocal/solver"
	"github.com/gocal/gocal/tensor"
	"github.com/gocal/gocal/visibility"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	modeFlag   string
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			chk.Verbose = true
			for i := 8; i > 3; i-- {
				chk.CallerInfo(i)
			}
			io.Pfred("fatal: %v\n", err)
			os.Exit(1)
		}
	}()

	root := &cobra.Command{
		Use:   "gocal",
		Short: "Direction-dependent visibility calibration",
		RunE:  run,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to the calibration config YAML file")
	root.Flags().StringVar(&modeFlag, "corr-mode", "full", "correlation mode of the input dataset: scalar, diag or full")
	root.MarkFlagRequired("config")

	if err := root.Execute(); err != nil {
		io.Pfred("%v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	io.Pfcyan("gocal: calibration chain solver\n")

	opts, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(opts.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	mode, err := parseCorrMode(modeFlag)
	if err != nil {
		return err
	}

	chainTemplate, err := config.Assemble(opts, mode)
	if err != nil {
		return err
	}

	dataset, err := loadDataset()
	if err != nil {
		return err
	}

	rowRanges := dispatch.RowChunks(dataset, opts.RowsPerChunk)
	chanRanges := dispatch.ChanChunks(dataset, opts.ChansPerChunk)

	d := &dispatch.Dispatcher{Workers: opts.Workers, Logger: logger}
	madFlagger := &flag.MADFlagger{Opts: opts.MADOptions()}

	process := func(ctx context.Context, chunk *tensor.Chunk, chain *gain.Chain) error {
		if err := solver.SolveChunk(ctx, chunk, chain); err != nil {
			return err
		}

		residual := visibility.Residual(chunk, chain)
		madFlagger.Flag(chunk, residual)

		correctedResidual := visibility.CorrectedResidual(chunk, chain)
		correctedData := visibility.CorrectedData(chunk, chain)
		zerolog.Ctx(ctx).Info().
			Int("residual_cells", len(residual)*chunk.NChan()).
			Int("corrected_residual_cells", len(correctedResidual)*chunk.NChan()).
			Int("corrected_data_cells", len(correctedData)*chunk.NChan()).
			Msg("visibility products computed")

		return nil
	}

	if err := d.Run(cmd.Context(), dataset, rowRanges, chanRanges, chainTemplate.Clone, process); err != nil {
		return err
	}

	io.Pfgreen("gocal: calibration complete\n")
	return nil
}

func parseCorrMode(s string) (tensor.CorrMode, error) {
	switch s {
	case "scalar":
		return tensor.ScalarCorr, nil
	case "diag":
		return tensor.DiagCorr, nil
	case "full":
		return tensor.FullCorr, nil
	default:
		return 0, chk.Err("unknown --corr-mode %q; expected scalar, diag or full", s)
	}
}

// loadDataset is the ingestion boundary (§6 upstream collaborator
// contract): the measurement-set/zarr reader that produces a
// tensor.Dataset from disk is a separate collaborator's responsibility and
// out of this module's scope (spec.md Non-goals).
func loadDataset() (*tensor.Dataset, error) {
	return nil, chk.Err("loadDataset: no ingestion backend wired; supply a tensor.Dataset via the library API instead of the gocal binary for now")
}
