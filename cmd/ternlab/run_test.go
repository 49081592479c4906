package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/ternlab/internal/config"
	"github.com/aretw0/ternlab/internal/logging"
	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig(size int) *config.Config {
	cfg := config.Default()
	cfg.Lab.Size = size
	return cfg
}

func TestRunLab_ExportsAndPlots(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "final.json")
	plotPath := filepath.Join(dir, "entropy.png")
	seed := int64(3)

	var out bytes.Buffer
	err := runLab(context.Background(), smallConfig(8), logging.NewNop(), runOptions{
		Seed:       "chaos",
		RNGSeed:    &seed,
		Steps:      5,
		ExportPath: exportPath,
		PlotPath:   plotPath,
		Render:     "always",
		Report:     false,
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, 8, bytes.Count(out.Bytes(), []byte("\n"))-1, "one line per row plus a trailing blank line")

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	doc, err := snapshot.Decode(data)
	require.NoError(t, err)
	snap := doc.Resolve(domain.DefaultThresholds)
	assert.Equal(t, 5, snap.Step)
	assert.Len(t, snap.EntropyHistory, 6)

	png, err := os.ReadFile(plotPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestRunLab_ImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.json")
	second := filepath.Join(dir, "b.json")
	cfg := smallConfig(6)

	require.NoError(t, runLab(context.Background(), cfg, logging.NewNop(), runOptions{
		Experiment: "genesis-3-3", Steps: 0, ExportPath: first, Render: "never",
	}, &bytes.Buffer{}))
	require.NoError(t, runLab(context.Background(), cfg, logging.NewNop(), runOptions{
		ImportPath: first, Steps: 0, ExportPath: second, Render: "never",
	}, &bytes.Buffer{}))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestRunLab_Report(t *testing.T) {
	var out bytes.Buffer
	err := runLab(context.Background(), smallConfig(4), logging.NewNop(), runOptions{
		Experiment: "genesis-3-3", Steps: 1, Render: "never", Report: true,
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "genesis-3-3")
}

func TestRunLab_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts runOptions
	}{
		{"negative steps", runOptions{Steps: -1}},
		{"experiment and import", runOptions{Experiment: "genesis-3-3", ImportPath: "x.json"}},
		{"unknown experiment", runOptions{Experiment: "nope"}},
		{"bad seed", runOptions{Seed: "stripes"}},
		{"missing import", runOptions{ImportPath: filepath.Join(t.TempDir(), "missing.json")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Render = "never"
			err := runLab(context.Background(), smallConfig(4), logging.NewNop(), tt.opts, &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, backend := range []string{config.BackendMemory, config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store.Backend = backend
			cfg.Store.FileDir = filepath.Join(dir, "files")
			cfg.Store.SQLitePath = filepath.Join(dir, "db", "snapshots.db")

			store, closeStore, err := openStore(ctx, cfg, logging.NewNop())
			require.NoError(t, err)
			defer closeStore()

			snap := &domain.Snapshot{
				Size:           1,
				Grid:           [][]int{{1}},
				PosThreshold:   3,
				NegThreshold:   3,
				EntropyHistory: []float64{0},
			}
			require.NoError(t, store.Save(ctx, "one", snap))
			ids, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"one"}, ids)
		})
	}

	cfg := config.Default()
	cfg.Store.Backend = "s3"
	_, closeStore, err := openStore(ctx, cfg, logging.NewNop())
	assert.Error(t, err)
	assert.NotNil(t, closeStore)
}

func TestShouldRender(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, shouldRender("always", &buf, 10))
	assert.False(t, shouldRender("never", &buf, 10))
	assert.False(t, shouldRender("auto", &buf, 10), "non-file writers never render in auto mode")
}
