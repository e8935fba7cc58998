// Package company manages per-company workspaces on disk: the directory
// layout, the metadata.json record, and batch input lists.
package company

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

// Artifact file and directory names inside a company workspace.
const (
	AnalysisDir       = "analysis"
	ChecklistFile     = "founders-checklist.md"
	ChecklistDocxFile = "founders-checklist.docx"
	PublicDataFile    = "public_data.md"
	MetadataFile      = "metadata.json"
	EvaluationMDFile  = "evaluation.md"
	EvaluationJSON    = "evaluation.json"
)

// Workspace is the root directory holding one subdirectory per company.
type Workspace struct {
	Root string
}

// NewWorkspace returns a Workspace rooted at dir.
func NewWorkspace(dir string) Workspace {
	return Workspace{Root: dir}
}

// Dir returns the directory for company. Names containing path separators
// or consisting only of dots are rejected.
func (w Workspace) Dir(company string) (string, error) {
	name := strings.TrimSpace(company)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Trim(name, ".") == "" {
		return "", resilience.NewFatalError(eris.Errorf("company: invalid company name %q", company), 0)
	}
	return filepath.Join(w.Root, name), nil
}

// Path joins parts under the company directory.
func (w Workspace) Path(company string, parts ...string) (string, error) {
	dir, err := w.Dir(company)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{dir}, parts...)...), nil
}

// Ensure creates the company directory if needed and returns it.
func (w Workspace) Ensure(company string) (string, error) {
	dir, err := w.Dir(company)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "company: create %s", dir)
	}
	return dir, nil
}

// Companies lists the companies under the root that have an analysis
// directory, sorted by name.
func (w Workspace) Companies() ([]string, error) {
	entries, err := os.ReadDir(w.Root)
	if err != nil {
		return nil, resilience.NewFatalError(eris.Wrapf(err, "company: read %s", w.Root), 0)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := os.Stat(filepath.Join(w.Root, e.Name(), AnalysisDir))
		if err != nil || !info.IsDir() {
			continue
		}
		out = append(out, e.Name())
	}
	slices.Sort(out)
	return out, nil
}
