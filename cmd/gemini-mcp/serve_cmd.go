package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samihalawa/gemini-image-video-mcp/internal/config"
	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
	"github.com/samihalawa/gemini-image-video-mcp/internal/server"
)

// newServeCmd creates the serve command
func newServeCmd() *cobra.Command {
	var (
		configPath  string
		useStdio    bool
		prettyLog   bool
		portFlag    int
		backendFlag string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gemini-mcp server",
		Long: `Start the gemini-mcp server. This is the default command when no subcommand is specified.

The server can run in HTTP mode (default port 8080) or stdio mode for MCP clients.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, useStdio, prettyLog, portFlag, backendFlag)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (ignored if stdio is used)")
	cmd.Flags().BoolVar(&useStdio, "stdio", false, "Use stdio instead of TCP port")
	cmd.Flags().BoolVar(&prettyLog, "pretty", false, "Use pretty-printed logs instead of JSON")
	cmd.Flags().StringVar(&backendFlag, "backend", "", "Generation backend to use (overrides config file)")

	return cmd
}

// runServe runs the server with the given flags
func runServe(configPath string, useStdio bool, prettyLog bool, portFlag int, backendFlag string) error {
	// Load configuration (precedence handling lives in the config package)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v", err)
		return err
	}

	// Apply backend override if provided via flag (before creating the server)
	if backendFlag != "" {
		if err := applyBackendOverride(cfg, backendFlag); err != nil {
			return err
		}
	}

	// Resolve logging format: CLI flag wins; otherwise config
	prettyLog = resolveLogFormat(cfg, prettyLog)

	// Initialize global logger. Stdio mode routes logs to stderr so stdout
	// stays reserved for the JSON-RPC stream.
	if err := initLogger(useStdio, prettyLog); err != nil {
		fmt.Printf("Failed to initialize logger: %v", err)
		return err
	}
	defer zap.L().Sync() //nolint:errcheck // Ignore sync errors on stdout/stderr, they're not critical and common in test environments

	// Validate and apply port configuration
	if err := validateAndApplyPort(cfg, portFlag, useStdio); err != nil {
		fmt.Printf("%s\n", err)
		return err
	}

	// Create server (after all config overrides are applied)
	srv, err := server.NewMediaServer(cfg, configPath)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Set up signal handling for hot reload
	ctx, cancel := setupSignalHandling(context.Background(), srv)
	defer cancel()

	// Start server
	if err := runServer(ctx, srv, useStdio, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			zap.L().Info("Server context canceled, exiting gracefully")
			return nil
		}

		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// applyBackendOverride applies the --backend flag on top of the loaded
// configuration.
func applyBackendOverride(cfg *config.Config, backendFlag string) error {
	kind := config.BackendKind(backendFlag)
	if !config.IsValidBackend(kind) {
		return fmt.Errorf("backend must be one of: %s, got '%s'", core.JoinMapKeys(config.ValidBackends()), backendFlag)
	}
	cfg.Backend = kind
	return nil
}

// resolveLogFormat determines the log format based on CLI flag and config
func resolveLogFormat(cfg *config.Config, prettyLog bool) bool {
	if !prettyLog && cfg.LogFormat == config.LogFormatPretty {
		return true
	}
	return prettyLog
}

// initLogger initializes the global zap logger for the chosen transport
func initLogger(useStdio bool, prettyLog bool) error {
	if useStdio {
		return core.InitStdio(prettyLog)
	}
	return core.Init(prettyLog)
}

// validateAndApplyPort validates the port flag and applies port logic to config
func validateAndApplyPort(cfg *config.Config, portFlag int, useStdio bool) error {
	if portFlag < 0 {
		return fmt.Errorf("port must be a positive integer (or 0 to remain unset), got %d", portFlag)
	}

	// Command line flag overrides config file
	if portFlag != 0 {
		cfg.Port = portFlag
	}

	if !useStdio && portFlag == 0 && cfg.Port == 0 {
		cfg.Port = config.DefaultPort
	}

	return nil
}

// setupSignalHandling sets up signal handling for hot reload and graceful shutdown
func setupSignalHandling(ctx context.Context, srv *server.MediaServer) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for {
			sig := <-sigChan
			switch sig {
			case syscall.SIGHUP:
				zap.L().Info("Received SIGHUP, reloading configuration")
				if err := srv.Reload(); err != nil {
					zap.L().Error("Failed to reload", zap.Error(err))
				} else {
					zap.L().Info("Successfully reloaded configuration")
				}
			case syscall.SIGINT, syscall.SIGTERM:
				zap.L().Info("Received shutdown signal")
				cancel()
				return
			}
		}
	}()

	return ctx, cancel
}

// runServer starts the server in either stdio or HTTP mode
func runServer(ctx context.Context, srv *server.MediaServer, useStdio bool, cfg *config.Config) error {
	if useStdio {
		zap.L().Info("Starting gemini-mcp server on stdio")
		return srv.ServeStdio(ctx)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	zap.L().Info("Starting gemini-mcp server", zap.String("address", addr))
	return srv.Serve(ctx, addr)
}
