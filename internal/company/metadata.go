package company

import (
	"encoding/json"
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
)

// LoadMetadata reads metadata.json for company. A missing file yields an
// empty record, not an error.
func (w Workspace) LoadMetadata(company string) (model.CompanyMetadata, error) {
	path, err := w.Path(company, MetadataFile)
	if err != nil {
		return model.CompanyMetadata{}, err
	}
	return readMetadata(path, company)
}

// UpdateMetadata merges patch into the stored record and writes it back
// atomically. The merged record is returned.
func (w Workspace) UpdateMetadata(company string, patch model.CompanyMetadata) (model.CompanyMetadata, error) {
	if _, err := w.Ensure(company); err != nil {
		return model.CompanyMetadata{}, err
	}
	path, err := w.Path(company, MetadataFile)
	if err != nil {
		return model.CompanyMetadata{}, err
	}

	current, err := readMetadata(path, company)
	if err != nil {
		return model.CompanyMetadata{}, err
	}
	merged := MergeMetadata(current, patch)
	if err := writeJSONAtomic(path, merged); err != nil {
		return model.CompanyMetadata{}, err
	}

	zap.L().Debug("company: metadata updated",
		zap.String("company", company),
		zap.Int("steps", len(merged.Processing)),
	)
	return merged, nil
}

// MarkStep records the status of one processing step. A company without a
// directory is left alone so a mistyped name never creates one.
func (w Workspace) MarkStep(company, step, status, detail string) error {
	dir, err := w.Dir(company)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		zap.L().Debug("company: skipping step for unknown company",
			zap.String("company", company),
			zap.String("step", step),
		)
		return nil
	}
	_, err = w.UpdateMetadata(company, model.CompanyMetadata{
		Processing: map[string]model.StepStatus{
			step: {Status: status, UpdatedAt: time.Now().UTC(), Detail: detail},
		},
	})
	return err
}

// MergeMetadata overlays patch on base. Non-empty scalar fields and a
// non-empty founder list replace the existing values; extra fields and
// processing steps are merged by key.
func MergeMetadata(base, patch model.CompanyMetadata) model.CompanyMetadata {
	out := base
	if s := strings.TrimSpace(patch.Company); s != "" {
		out.Company = s
	}
	if s := strings.TrimSpace(patch.Sector); s != "" {
		out.Sector = s
	}
	if s := strings.TrimSpace(patch.Stage); s != "" {
		out.Stage = s
	}
	if s := strings.TrimSpace(patch.Website); s != "" {
		out.Website = s
	}
	if len(patch.Founders) > 0 {
		out.Founders = append([]model.Founder(nil), patch.Founders...)
	}
	if len(patch.Extra) > 0 {
		extra := make(map[string]any, len(base.Extra)+len(patch.Extra))
		maps.Copy(extra, base.Extra)
		maps.Copy(extra, patch.Extra)
		out.Extra = extra
	}
	if len(patch.Processing) > 0 {
		steps := make(map[string]model.StepStatus, len(base.Processing)+len(patch.Processing))
		maps.Copy(steps, base.Processing)
		maps.Copy(steps, patch.Processing)
		out.Processing = steps
	}
	return out
}

func readMetadata(path, company string) (model.CompanyMetadata, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.CompanyMetadata{Company: company}, nil
	}
	if err != nil {
		return model.CompanyMetadata{}, eris.Wrapf(err, "company: read %s", path)
	}
	var md model.CompanyMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return model.CompanyMetadata{}, eris.Wrapf(err, "company: parse %s", path)
	}
	if md.Company == "" {
		md.Company = company
	}
	return md, nil
}

// writeJSONAtomic writes v to a temp file in the same directory and renames
// it over path.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "company: encode metadata")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".metadata-*.json")
	if err != nil {
		return eris.Wrap(err, "company: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return eris.Wrap(err, "company: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "company: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "company: rename to %s", path)
	}
	return nil
}
