package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"keboola-mcp/internal/config"
	"keboola-mcp/internal/dialect"
	"keboola-mcp/internal/docs"
	"keboola-mcp/internal/jobs"
	"keboola-mcp/internal/logging"
	mcpserver "keboola-mcp/internal/mcp"
	"keboola-mcp/internal/query"
	"keboola-mcp/internal/sapi"
	"keboola-mcp/internal/storage"
	"keboola-mcp/internal/transform"
)

func main() {
	var configFile string

	root := &cobra.Command{
		Use:   "keboola-mcp",
		Short: "MCP server for the Keboola storage platform",
		Long: "Exposes project storage, workspace SQL, component, job and documentation " +
			"tools over the Model Context Protocol, on stdio or SSE.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}
	root.Flags().StringVar(&configFile, "config", "", "path to a config file (optional, env vars suffice)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	// Logs go to stderr; stdout belongs to the stdio transport.
	logger := logging.NewLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}
	logger.Info("configuration loaded", "config", cfg.String())

	adapter, err := dialect.ForCredentials(dialect.Credentials{
		Kind:            cfg.BackendKind(),
		Account:         cfg.Snowflake.Account,
		User:            cfg.Snowflake.User,
		Password:        cfg.Snowflake.Password,
		Warehouse:       cfg.Snowflake.Warehouse,
		Database:        cfg.Snowflake.Database,
		Schema:          cfg.WorkspaceSchema,
		Role:            cfg.Snowflake.Role,
		ProjectID:       cfg.BigQuery.ProjectID,
		Dataset:         cfg.WorkspaceSchema,
		CredentialsFile: cfg.BigQuery.CredentialsFile,
	})
	if err != nil {
		logger.Error("failed to select workspace backend", "error", err)
		return err
	}
	logger.Info("workspace backend selected", "dialect", adapter.Name())

	storageClient := storage.NewClient(cfg.StorageAPIURL, cfg.StorageToken, logger)
	jobsClient := jobs.NewClient(sapi.QueueURL(cfg.StorageAPIURL), cfg.StorageToken, logger)
	docsClient := docs.NewClient(sapi.AIServiceURL(cfg.StorageAPIURL), cfg.StorageToken, logger)

	srv := mcpserver.NewServer(mcpserver.Deps{
		Logger:     logger,
		Adapter:    adapter,
		Storage:    storageClient,
		Query:      query.NewExecutor(adapter, cfg.QueryRowLimit, logger),
		Jobs:       jobs.NewManager(jobsClient, clockwork.NewRealClock(), logger),
		Docs:       docsClient,
		Transforms: transform.NewBuilder(cfg.BackendKind(), storageClient, logger),
	})

	switch cfg.Transport {
	case "sse":
		return serveSSE(srv, cfg.Listen, logger)
	default:
		logger.Info("serving on stdio")
		return server.ServeStdio(srv.GetMCPServer())
	}
}

func serveSSE(srv *mcpserver.Server, addr string, logger *logging.Logger) error {
	mux := http.NewServeMux()
	mcpserver.MountHTTPHandlers(mux, srv.GetMCPServer())

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			return err
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", "error", err)
			if err := httpServer.Close(); err != nil {
				logger.Error("server close error", "error", err)
			}
		}
		logger.Info("server stopped gracefully")
	}
	return nil
}
