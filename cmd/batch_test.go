package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predator4hack/ai-shark-sub001/internal/company"
)

func TestProcessBatch_CountsOutcomes(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	sum, err := processBatch(context.Background(), []string{"a", "b", "c"}, 2, func(_ context.Context, name string) error {
		mu.Lock()
		seen = append(seen, name)
		mu.Unlock()
		if name == "b" {
			return eris.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.Succeeded)
	assert.Equal(t, int64(1), sum.Failed)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}

func TestProcessBatch_RespectsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64
	names := []string{"a", "b", "c", "d", "e", "f"}

	_, err := processBatch(context.Background(), names, 2, func(_ context.Context, _ string) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		inFlight.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestProcessBatch_Empty(t *testing.T) {
	sum, err := processBatch(context.Background(), nil, 2, func(_ context.Context, _ string) error {
		t.Fatal("must not be called")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, sum.Succeeded+sum.Failed)
}

func TestBatchCompanies(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"Beta", "Acme"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name, company.AnalysisDir), 0o755))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "no-analysis"), 0o755))
	ws := company.NewWorkspace(root)

	names, err := batchCompanies(ws, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Beta"}, names)

	csvPath := filepath.Join(t.TempDir(), "batch.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("company\nGamma\nDelta\n"), 0o644))
	names, err = batchCompanies(ws, csvPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gamma", "Delta"}, names)
}
