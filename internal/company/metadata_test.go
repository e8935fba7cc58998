package company

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
)

func TestLoadMetadata_Missing(t *testing.T) {
	w := NewWorkspace(t.TempDir())
	md, err := w.LoadMetadata("Acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", md.Company)
	assert.Empty(t, md.Processing)
}

func TestUpdateMetadata_MergesAndPersists(t *testing.T) {
	w := NewWorkspace(t.TempDir())
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := w.UpdateMetadata("Acme", model.CompanyMetadata{
		Sector:   "Fintech",
		Stage:    "Seed",
		Founders: []model.Founder{{Name: "Jane", Role: "CEO"}},
		Processing: map[string]model.StepStatus{
			"metadata": {Status: model.StepCompleted, UpdatedAt: ts},
		},
	})
	require.NoError(t, err)

	merged, err := w.UpdateMetadata("Acme", model.CompanyMetadata{
		Stage:   "  ",
		Website: "https://acme.example",
		Processing: map[string]model.StepStatus{
			"questionnaire": {Status: model.StepFailed, UpdatedAt: ts, Detail: "boom"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Fintech", merged.Sector)
	assert.Equal(t, "Seed", merged.Stage)
	assert.Equal(t, "https://acme.example", merged.Website)
	assert.Equal(t, []model.Founder{{Name: "Jane", Role: "CEO"}}, merged.Founders)
	assert.Len(t, merged.Processing, 2)

	loaded, err := w.LoadMetadata("Acme")
	require.NoError(t, err)
	assert.Equal(t, merged, loaded)

	entries, err := os.ReadDir(filepath.Join(w.Root, "Acme"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are cleaned up")
	assert.Equal(t, MetadataFile, entries[0].Name())
}

func TestMarkStep(t *testing.T) {
	w := NewWorkspace(t.TempDir())
	_, err := w.Ensure("Acme")
	require.NoError(t, err)
	require.NoError(t, w.MarkStep("Acme", "public_data", model.StepCompleted, "3 sections"))
	require.NoError(t, w.MarkStep("Acme", "public_data", model.StepFailed, "retry"))

	md, err := w.LoadMetadata("Acme")
	require.NoError(t, err)
	require.Contains(t, md.Processing, "public_data")
	assert.Equal(t, model.StepFailed, md.Processing["public_data"].Status)
	assert.Equal(t, "retry", md.Processing["public_data"].Detail)
}

func TestMarkStep_UnknownCompanyNotCreated(t *testing.T) {
	w := NewWorkspace(t.TempDir())
	require.NoError(t, w.MarkStep("Typo Co", "questionnaire", model.StepFailed, "no reports"))

	_, err := os.Stat(filepath.Join(w.Root, "Typo Co"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoadMetadata_Corrupt(t *testing.T) {
	w := NewWorkspace(t.TempDir())
	dir, err := w.Ensure("Acme")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFile), []byte("{"), 0o644))

	_, err = w.LoadMetadata("Acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company: parse")
}

func TestMergeMetadata_Extra(t *testing.T) {
	base := model.CompanyMetadata{Extra: map[string]any{"a": 1, "b": 2}}
	got := MergeMetadata(base, model.CompanyMetadata{Extra: map[string]any{"b": 3}})
	assert.Equal(t, map[string]any{"a": 1, "b": 3}, got.Extra)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, base.Extra, "base is not mutated")
}
