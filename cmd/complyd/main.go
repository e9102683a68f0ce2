package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/complyforge/complyforge/cmd/complyd/commands"
	"github.com/complyforge/complyforge/logger"
)

var rootCmd = &cobra.Command{
	Use:   "complyd",
	Short: "complyd - AI compliance document generation engine",
	Long: `complyd - orchestration engine for AI-generated compliance documents.

complyd screens generation requests through guardrails, routes each
document to the provider best suited for its category, executes calls
behind per-provider circuit breakers with ordered fallback, and tracks
background generation jobs with live progress.

Available commands:
  serve   - Start the generation engine and HTTP API
  jobs    - List generation jobs
  version - Show version information

Examples:
  complyd serve                    # Start with config discovery
  complyd serve --config cfg.yaml  # Start with an explicit config file
  complyd jobs --status running    # List running jobs`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if verbosity > 0 {
			if err := logger.SetLevel(zapcore.DebugLevel); err != nil {
				return fmt.Errorf("failed to set log level: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity")
	rootCmd.PersistentFlags().Bool("json", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
