package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/booksmd/booksmd/internal/config"
	"github.com/booksmd/booksmd/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the BooksMD server",
	Long: `Start the BooksMD HTTP server.

The server provides:
  - /health           - Basic server health check
  - /ready            - Readiness check (includes storage status)
  - /api/upload       - Upload a book for analysis
  - /api/process/{id} - Run the analysis pipeline
  - /api/status/{id}  - Check job progress
  - /api/download/... - Download the generated report

Examples:
  booksmd serve                       # Start on the configured address
  booksmd serve --listen :3000        # Start on a custom port`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		srv, err := server.New(server.Config{
			ListenAddr:    serveAddr,
			ConfigManager: mgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "listen", "", "Address to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
