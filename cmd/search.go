package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/search"
)

var (
	searchPerson string
	searchRole   string
)

var searchCmd = &cobra.Command{
	Use:   "search <company>",
	Short: "Query every search provider and print their responses",
	Long:  "Fans a founder query (--person, --role) or a company query out to the configured providers and prints one JSON outcome per provider.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		var outcomes []search.Outcome
		if searchPerson != "" {
			outcomes = env.Search.SearchAll(ctx, args[0], searchPerson, searchRole)
		} else {
			outcomes = env.Search.SearchCompanyAll(ctx, args[0])
		}

		if err := writeOutcomes(os.Stdout, outcomes); err != nil {
			return err
		}
		_, err = search.RequireAny(outcomes)
		return err
	},
}

// outcomeView is the printable form of a search.Outcome.
type outcomeView struct {
	Provider   string                  `json:"provider"`
	DurationMs int64                   `json:"duration_ms"`
	Error      string                  `json:"error,omitempty"`
	Response   *model.ProviderResponse `json:"response,omitempty"`
}

func writeOutcomes(w io.Writer, outcomes []search.Outcome) error {
	views := make([]outcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		v := outcomeView{Provider: o.Provider, DurationMs: o.Duration.Milliseconds()}
		if o.Succeeded() {
			resp := o.Response
			v.Response = &resp
		} else {
			v.Error = o.Err.Error()
		}
		views = append(views, v)
	}
	return writeJSON(w, views)
}

func init() {
	searchCmd.Flags().StringVar(&searchPerson, "person", "", "founder name (omit for a company search)")
	searchCmd.Flags().StringVar(&searchRole, "role", "", "founder role, e.g. CEO")
	rootCmd.AddCommand(searchCmd)
}
