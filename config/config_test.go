package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gocal/gocal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
workers: 4
rows_per_chunk: 1000
chans_per_chunk: 64
n_dir: 1
log_level: debug
mad_flags:
  enable: true
  threshold_bl: 6.0
  threshold_global: 6.0
  max_deviation: 12.0
terms:
  - name: K
    variant: delay
    iters: 20
    solve_per: antenna
    stop_frac: 0.99
    stop_crit: 1e-6
    initial_estimate: true
  - name: G
    variant: complex
    iters: 30
    solve_per: antenna
    stop_frac: 0.99
    stop_crit: 1e-6
`

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gocal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesTermsAndOptions(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	opts, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, 1000, opts.RowsPerChunk)
	require.Len(t, opts.Terms, 2)
	assert.Equal(t, "delay", opts.Terms[0].Variant)
	assert.True(t, opts.Terms[0].InitialEstimate)
	assert.Equal(t, "complex", opts.Terms[1].Variant)

	mad := opts.MADOptions()
	assert.True(t, mad.Enable)
	assert.Equal(t, 6.0, mad.ThresholdBl)
	assert.Equal(t, 6.0, mad.ThresholdGlobal)
	assert.Equal(t, 12.0, mad.MaxDeviation)
}

func TestLoadDefaultsMADFlagsDisabled(t *testing.T) {
	path := writeTempConfig(t, `
terms:
  - name: G
    variant: complex
    iters: 10
`)
	opts, err := Load(path)
	require.NoError(t, err)

	mad := opts.MADOptions()
	assert.False(t, mad.Enable)
	assert.Equal(t, 5.0, mad.ThresholdBl)
	assert.Equal(t, 5.0, mad.ThresholdGlobal)
	assert.Equal(t, 10.0, mad.MaxDeviation)
}

func TestAssembleBuildsChainInOrder(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	opts, err := Load(path)
	require.NoError(t, err)

	chain, err := Assemble(opts, tensor.FullCorr)
	require.NoError(t, err)
	require.Len(t, chain.Terms, 2)
	assert.Equal(t, "K", chain.Terms[0].Spec.Name)
	assert.Equal(t, "G", chain.Terms[1].Spec.Name)
	assert.Equal(t, tensor.FullCorr, chain.Mode)
}

func TestAssembleRejectsUnknownVariant(t *testing.T) {
	opts := &Options{Terms: []TermOption{{Name: "X", Variant: "not-a-thing", Iters: 1}}}
	_, err := Assemble(opts, tensor.FullCorr)
	assert.Error(t, err)
}

func TestAssembleRejectsNonPositiveIters(t *testing.T) {
	opts := &Options{Terms: []TermOption{{Name: "G", Variant: "complex", Iters: 0}}}
	_, err := Assemble(opts, tensor.FullCorr)
	assert.Error(t, err)
}

func TestAssembleRejectsMixedDDChainsWithMultipleDirections(t *testing.T) {
	opts := &Options{
		NDir: 3,
		Terms: []TermOption{
			{Name: "dE1", Variant: "complex", Iters: 5, DirectionDependent: true},
			{Name: "dE2", Variant: "complex", Iters: 5, DirectionDependent: true},
		},
	}
	_, err := Assemble(opts, tensor.FullCorr)
	assert.Error(t, err)
}

func TestAssembleRejectsEmptyChain(t *testing.T) {
	opts := &Options{}
	_, err := Assemble(opts, tensor.FullCorr)
	assert.Error(t, err)
}
