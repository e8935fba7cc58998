package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var evaluateChecklist string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <company>",
	Short: "Score a generated questionnaire",
	Long:  "Scores founders-checklist.md against a ground-truth checklist when one is available (--checklist, or checklist.* in the company directory), otherwise with the expert strategy. Writes evaluation.md and evaluation.json.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "evaluate")
		if err != nil {
			return err
		}
		defer env.Close()

		ev := env.evaluator()
		return env.track(ctx, args[0], "evaluate", func(ctx context.Context) error {
			out, err := ev.Run(ctx, args[0], evaluateChecklist)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s strategy, average score %.1f/10\n",
				out.Result.Strategy, out.Result.AverageScore())
			for _, f := range out.Files {
				fmt.Fprintln(os.Stdout, f)
			}
			return nil
		})
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateChecklist, "checklist", "", "ground-truth checklist (.md, .txt, .docx, .pdf)")
	rootCmd.AddCommand(evaluateCmd)
}
