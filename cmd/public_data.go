package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/predator4hack/ai-shark-sub001/internal/extract"
	"github.com/predator4hack/ai-shark-sub001/internal/model"
)

var publicDataFounders []string

var publicDataCmd = &cobra.Command{
	Use:   "public-data <company>",
	Short: "Gather public data about a company and its founders",
	Long:  "Runs the founders, company news, and funding extractors and writes public_data.md. Founders given with --founder are merged into metadata.json first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		founders, err := parseFounders(publicDataFounders)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "public-data")
		if err != nil {
			return err
		}
		defer env.Close()

		reg := env.extractors()
		return env.track(ctx, args[0], "public-data", func(ctx context.Context) error {
			rep, path, err := extract.Publish(ctx, reg, env.Workspace, args[0], founders)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, path)
			if n := rep.Failed(); n > 0 {
				fmt.Fprintf(os.Stderr, "warning: %d of %d sections failed\n", n, len(rep.Sections))
				if n == len(rep.Sections) {
					return eris.Errorf("public-data: all %d sections failed", n)
				}
			}
			return nil
		})
	},
}

// parseFounders parses "Name:Role" flag values. The role is optional.
func parseFounders(vals []string) ([]model.Founder, error) {
	var out []model.Founder
	for _, v := range vals {
		name, role, _ := strings.Cut(v, ":")
		name, role = strings.TrimSpace(name), strings.TrimSpace(role)
		if name == "" {
			return nil, eris.Errorf("public-data: invalid --founder %q (want \"Name:Role\")", v)
		}
		out = append(out, model.Founder{Name: name, Role: role})
	}
	return out, nil
}

func init() {
	publicDataCmd.Flags().StringArrayVar(&publicDataFounders, "founder", nil, `founder as "Name:Role" (repeatable)`)
	rootCmd.AddCommand(publicDataCmd)
}
