package main

import (
	"github.com/spf13/cobra"

	"github.com/booksmd/booksmd/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running BooksMD server via HTTP.

These commands require a running server (booksmd serve).
Use --server to specify a custom server URL.

Examples:
  booksmd api health                 # Check server health
  booksmd api upload book.pdf        # Upload a book for analysis
  booksmd api process <job-id>       # Run the pipeline for a job
  booksmd api status <job-id> -w     # Watch job progress
  booksmd api download <job-id>      # Save the generated report`,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	for _, ep := range endpoints.All() {
		if cmd := ep.Command(getServerURL); cmd != nil {
			apiCmd.AddCommand(cmd)
		}
	}

	rootCmd.AddCommand(apiCmd)
}
