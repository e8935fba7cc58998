package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/store"
)

// statsWindow bounds how many runs `runs stats` aggregates.
const statsWindow = 10000

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded command runs",
	Long:  "Every questionnaire, evaluate, public-data and metadata invocation is recorded as a run. These commands read that history.",
}

// withStore opens the run store for the duration of fn.
func withStore(ctx context.Context, fn func(store.Store) error) error {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	return fn(st)
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, _ := cmd.Flags().GetString("status")
		company, _ := cmd.Flags().GetString("company")
		command, _ := cmd.Flags().GetString("command")
		since, _ := cmd.Flags().GetDuration("since")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		if status != "" && !slices.Contains(runStatuses, model.RunStatus(status)) {
			return eris.Errorf("runs list: unknown status %q", status)
		}

		return withStore(cmd.Context(), func(st store.Store) error {
			filter := store.RunFilter{Company: company, Command: command, Status: model.RunStatus(status), Limit: limit}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			runs, err := st.ListRuns(cmd.Context(), filter)
			if err != nil {
				return eris.Wrap(err, "runs list")
			}
			if asJSON {
				return writeJSON(os.Stdout, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(os.Stderr, "No runs found.")
				return nil
			}
			formatRunsList(os.Stdout, runs)
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st store.Store) error {
			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return eris.Wrap(err, "runs show")
			}
			return writeJSON(os.Stdout, run)
		})
	},
}

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize outcomes per command",
	RunE: func(cmd *cobra.Command, _ []string) error {
		company, _ := cmd.Flags().GetString("company")
		return withStore(cmd.Context(), func(st store.Store) error {
			runs, err := st.ListRuns(cmd.Context(), store.RunFilter{Company: company, Limit: statsWindow})
			if err != nil {
				return eris.Wrap(err, "runs stats")
			}
			formatRunStats(os.Stdout, computeRunStats(runs))
			return nil
		})
	},
}

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete finished runs older than a cutoff",
	RunE: func(cmd *cobra.Command, _ []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return eris.New("runs prune: --older-than must be positive")
		}
		cutoff := time.Now().Add(-olderThan)
		return withStore(cmd.Context(), func(st store.Store) error {
			n, err := st.PruneRuns(cmd.Context(), cutoff)
			if err != nil {
				return eris.Wrap(err, "runs prune")
			}
			fmt.Fprintf(os.Stderr, "Pruned %d runs created before %s.\n", n, cutoff.Format(time.RFC3339))
			return nil
		})
	},
}

var runStatuses = []model.RunStatus{model.RunStatusRunning, model.RunStatusComplete, model.RunStatusFailed}

func init() {
	runsListCmd.Flags().String("status", "", "only runs with this status: running, complete or failed")
	runsListCmd.Flags().String("company", "", "only runs for this company")
	runsListCmd.Flags().String("command", "", "only runs of this command")
	runsListCmd.Flags().Duration("since", 0, "only runs created within this window, e.g. 24h")
	runsListCmd.Flags().Int("limit", store.DefaultListLimit, "maximum runs to show")
	runsListCmd.Flags().Bool("json", false, "print runs as a JSON array")

	runsStatsCmd.Flags().String("company", "", "only runs for this company")

	runsPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete finished runs created before now minus this")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsStatsCmd, runsPruneCmd)
	rootCmd.AddCommand(runsCmd)
}

// commandStats counts outcomes of one command.
type commandStats struct {
	Complete int
	Failed   int
	Running  int
}

// runStats aggregates a run history.
type runStats struct {
	Total      int
	Complete   int
	Failed     int
	Running    int
	Companies  int
	ByCommand  map[string]int
	Outcomes   map[string]*commandStats
	AvgDurSecs float64
}

// computeRunStats aggregates runs. The average duration covers completed
// runs only.
func computeRunStats(runs []model.Run) runStats {
	s := runStats{
		Total:     len(runs),
		ByCommand: make(map[string]int),
		Outcomes:  make(map[string]*commandStats),
	}
	companies := make(map[string]struct{})
	var done time.Duration

	for _, r := range runs {
		companies[r.Company] = struct{}{}
		s.ByCommand[r.Command]++
		o := s.Outcomes[r.Command]
		if o == nil {
			o = &commandStats{}
			s.Outcomes[r.Command] = o
		}
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			o.Complete++
			done += r.UpdatedAt.Sub(r.CreatedAt)
		case model.RunStatusFailed:
			s.Failed++
			o.Failed++
		default:
			s.Running++
			o.Running++
		}
	}

	s.Companies = len(companies)
	if s.Complete > 0 {
		s.AvgDurSecs = done.Seconds() / float64(s.Complete)
	}
	return s
}

func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tCOMMAND\tSTATUS\tCREATED\tDURATION\tERROR")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			truncate(r.Company, 30),
			r.Command,
			r.Status,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second),
			truncate(r.Error, 40),
		)
	}
	_ = w.Flush()
}

func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\t(%d companies)\n", s.Total, s.Companies)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.Running)

	commands := make([]string, 0, len(s.Outcomes))
	for c := range s.Outcomes {
		commands = append(commands, c)
	}
	slices.Sort(commands)
	for _, c := range commands {
		o := s.Outcomes[c]
		_, _ = fmt.Fprintf(w, "  %s:\t%d\tok %d, failed %d, running %d\n", c, s.ByCommand[c], o.Complete, o.Failed, o.Running)
	}
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID shortens a run UUID to its first block.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
