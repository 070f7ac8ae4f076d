package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/digest/internal/server"
)

var (
	serveHost   string
	servePort   string
	swaggerSpec string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Digest server",
	Long: `Start the Digest HTTP server.

Summarization jobs run in the background and are kept in memory until the
server stops. Running jobs are cancelled on shutdown (Ctrl+C or SIGTERM).
Provider settings are reloaded when the config file changes.

The server provides:
  - /health, /ready, /status  - Health and readiness checks
  - /api/convert              - EPUB upload to chapters
  - /api/summaries            - Summarization jobs
  - /api/llmcalls             - LLM call history
  - /metrics                  - Prometheus metrics
  - /swagger.json             - OpenAPI document

Examples:
  digest serve                    # Start on the configured port (default 8080)
  digest serve --port 3000        # Start on custom port
  digest serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// The server logs lifecycle events at info unless told otherwise
		if !cmd.Flags().Changed("log-level") {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		}

		cm, h, err := loadConfig()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		cm.WatchConfig()

		cfg := cm.Get()
		host := serveHost
		if host == "" {
			host = cfg.Server.Host
		}
		port := servePort
		if port == "" {
			port = cfg.Server.Port
		}

		srv, err := server.New(server.Config{
			Host:            host,
			Port:            port,
			ConfigManager:   cm,
			Home:            h,
			SwaggerSpecPath: swaggerSpec,
			Logger:          logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config: 127.0.0.1)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config: 8080)")
	serveCmd.Flags().StringVar(&swaggerSpec, "swagger-spec", "", "Serve this swagger.json instead of the built-in document")

	rootCmd.AddCommand(serveCmd)
}
