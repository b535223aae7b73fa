package main

import (
	"github.com/spf13/cobra"

	"github.com/booksmd/booksmd/internal/api"
	"github.com/booksmd/booksmd/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "booksmd",
	Short: "Book analysis pipeline that turns books into Markdown study guides",
	Long: `BooksMD analyzes books chapter by chapter with an LLM and assembles
the results into a single Markdown report.

The pipeline includes:
  - Text extraction from PDF, EPUB and TXT uploads
  - Heading-based chapter segmentation with language detection
  - Per-chapter literary analysis via Gradio or OpenAI backends
  - Markdown report generation with table of contents`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.booksmd/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}
