package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/config"
)

var (
	cfg *config.Config

	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "shark",
	Short: "Founder diligence questionnaires from startup analysis reports",
	Long: `shark reads a company's analysis reports and pitch deck, gathers public
data on its founders, drafts a founders-checklist questionnaire with Claude
and scores questionnaires against a ground-truth checklist.

Company folders live under paths.companies_dir. Settings come from
config.yaml (or --config) and SHARK_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if cmd.Flags().Changed("log-level") {
			c.Log.Level = logLevel
		}
		if err := config.InitLogger(c.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		cfg = c
		zap.L().Debug("config loaded", zap.String("command", cmd.CommandPath()), zap.String("companies_dir", cfg.Paths.CompaniesDir))
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level override: debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
