package cli

import (
	"fmt"

	"ragnotes/internal/llm"
	"ragnotes/internal/logger"
	"ragnotes/internal/summarize"

	"github.com/spf13/cobra"
)

var summarizeOutputDir string

var summarizeCmd = &cobra.Command{
	Use:   "summarize <book.pdf>",
	Short: "Summarize a book chapter by chapter",
	Long: `Splits a PDF into chapters using its table of contents, asks the model for
structured notes on each chapter and then for notes on the whole book.
Every notes file is written as JSON under the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeOutputDir, "output-dir", "o", "", "directory for notes files (default summarize.output_dir)")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg := appConfig

	gateway, err := newGateway(cfg, true)
	if err != nil {
		return fmt.Errorf("failed to create generation gateway: %w", err)
	}

	outputDir := cfg.Summarize.OutputDir
	if summarizeOutputDir != "" {
		outputDir = summarizeOutputDir
	}

	log := logger.Component(appLog, "summarize")
	retry := summarize.NewRetryController(cfg.Summarize.MaxAttempts, cfg.RetryInterval(), log, appMetrics)
	s := summarize.NewSummarizer(newOpener(), llm.NewNotesGenerator(gateway), retry, outputDir, log)

	summary, err := s.Summarize(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to summarize %s: %w", args[0], err)
	}

	cmd.Printf("Summarized %d chapters of %s\n", len(summary.Chapters), summary.Document)
	for _, ch := range summary.Chapters {
		cmd.Printf("  - %s\n", ch.Title)
	}
	cmd.Printf("Notes written to %s\n", summary.OutputDir)
	return nil
}
