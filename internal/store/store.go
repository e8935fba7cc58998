// Package store records the history of command runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/predator4hack/ai-shark-sub001/internal/config"
	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = eris.New("store: run not found")

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 50

// RunFilter specifies criteria for listing runs. Zero fields match
// everything.
type RunFilter struct {
	Company string          `json:"company,omitempty"`
	Command string          `json:"command,omitempty"`
	Status  model.RunStatus `json:"status,omitempty"`
	Since   time.Time       `json:"since,omitempty"`
	Limit   int             `json:"limit,omitempty"`
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

const selectRuns = `SELECT id, company, command, status, error, created_at, updated_at FROM runs`

// listQuery renders f as a SELECT over runs, newest first. placeholder
// returns the bind marker for the nth argument.
func (f RunFilter) listQuery(placeholder func(n int) string) (string, []any) {
	var b strings.Builder
	b.WriteString(selectRuns)
	b.WriteString(" WHERE true")

	var args []any
	where := func(clause string, v any) {
		args = append(args, v)
		fmt.Fprintf(&b, " AND %s %s", clause, placeholder(len(args)))
	}
	if f.Company != "" {
		where("company =", f.Company)
	}
	if f.Command != "" {
		where("command =", f.Command)
	}
	if f.Status != "" {
		where("status =", string(f.Status))
	}
	if !f.Since.IsZero() {
		where("created_at >=", f.Since.UTC())
	}
	args = append(args, f.limit())
	fmt.Fprintf(&b, " ORDER BY created_at DESC LIMIT %s", placeholder(len(args)))
	return b.String(), args
}

// Store persists run history.
type Store interface {
	CreateRun(ctx context.Context, company, command string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	// PruneRuns deletes finished runs created before cutoff and returns how
	// many were removed. Running runs are kept.
	PruneRuns(ctx context.Context, cutoff time.Time) (int64, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and applies migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, resilience.NewFatalError(eris.New("store: postgres driver requires SHARK_STORE_DATABASE_URL"), 0)
		}
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, resilience.NewFatalError(eris.Errorf("store: unknown driver %q", cfg.Driver), 0)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck,gosec
		return nil, err
	}
	return st, nil
}

// Track records a run around fn: created as running, then marked complete
// or failed with fn's error. fn's error is returned unchanged; a store
// failure while finishing is joined to it.
func Track(ctx context.Context, st Store, company, command string, fn func(ctx context.Context, run *model.Run) error) error {
	run, err := st.CreateRun(ctx, company, command)
	if err != nil {
		return err
	}
	runErr := fn(ctx, run)

	status, msg := model.RunStatusComplete, ""
	if runErr != nil {
		status, msg = model.RunStatusFailed, runErr.Error()
	}
	// The caller's context may already be cancelled; the outcome still
	// needs recording.
	if err := st.FinishRun(context.WithoutCancel(ctx), run.ID, status, msg); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}
