package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/questionnaire"
)

var (
	questionnaireFormat string
	questionnaireAll    bool
	questionnaireFrom   string
)

var questionnaireCmd = &cobra.Command{
	Use:   "questionnaire [company]",
	Short: "Generate a founders-checklist questionnaire from analysis reports",
	Long:  "Reads <companies_dir>/<company>/analysis/*.md, asks Claude for a diligence questionnaire, and writes founders-checklist.md (and .docx when requested). Use --all or --from to process many companies.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batch := questionnaireAll || questionnaireFrom != ""
		if batch == (len(args) == 1) {
			return eris.New("questionnaire: give exactly one of <company>, --all, or --from")
		}
		if questionnaireFormat != "" {
			cfg.Questionnaire.OutputFormat = questionnaireFormat
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "questionnaire")
		if err != nil {
			return err
		}
		defer env.Close()

		pipe := env.questionnairePipeline(questionnaireFormat)

		if !batch {
			return env.track(ctx, args[0], "questionnaire", func(ctx context.Context) error {
				res, err := pipe.Process(ctx, args[0])
				printQuestionnaireResult(res)
				return questionnaireErr(res, err)
			})
		}

		companies, err := batchCompanies(env.Workspace, questionnaireFrom)
		if err != nil {
			return err
		}
		sum, err := processBatch(ctx, companies, cfg.Batch.MaxConcurrentCompanies, func(ctx context.Context, name string) error {
			return env.track(ctx, name, "questionnaire", func(ctx context.Context) error {
				res, err := pipe.Process(ctx, name)
				return questionnaireErr(res, err)
			})
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "processed %d companies: %d succeeded, %d failed\n",
			len(companies), sum.Succeeded, sum.Failed)
		if sum.Failed > 0 {
			return eris.Errorf("questionnaire: %d of %d companies failed", sum.Failed, len(companies))
		}
		return nil
	},
}

// questionnaireErr folds an unsuccessful result into an error so the run
// is recorded as failed.
func questionnaireErr(res *model.QuestionnaireResult, err error) error {
	if err != nil {
		return err
	}
	if res != nil && !res.Success {
		return eris.Errorf("questionnaire: generation failed: %s", res.Error)
	}
	return nil
}

func printQuestionnaireResult(res *model.QuestionnaireResult) {
	if res == nil {
		return
	}
	if !res.Success {
		zap.L().Error("questionnaire not generated",
			zap.String("company", res.Company),
			zap.String("error", res.Error),
		)
		return
	}
	for _, f := range res.OutputFiles {
		fmt.Fprintln(os.Stdout, f)
	}
	if passed, ok := res.Metadata[questionnaire.MetaValidationPassed].(bool); ok && !passed {
		fmt.Fprintf(os.Stderr, "warning: questionnaire saved but failed validation: %v\n",
			res.Metadata[questionnaire.MetaValidationIssues])
	}
}

func init() {
	questionnaireCmd.Flags().StringVar(&questionnaireFormat, "format", "", "output format: markdown, docx, or both (default from config)")
	questionnaireCmd.Flags().BoolVar(&questionnaireAll, "all", false, "process every company under paths.companies_dir")
	questionnaireCmd.Flags().StringVar(&questionnaireFrom, "from", "", "process companies listed in a CSV or XLSX file")
	rootCmd.AddCommand(questionnaireCmd)
}
