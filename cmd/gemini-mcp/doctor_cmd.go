package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/samihalawa/gemini-image-video-mcp/internal/backend"
	"github.com/samihalawa/gemini-image-video-mcp/internal/config"
	"github.com/samihalawa/gemini-image-video-mcp/internal/tui"
)

// healthCheckTimeout caps one doctor probe against the backend.
const healthCheckTimeout = 30 * time.Second

// newDoctorCmd creates the doctor command
func newDoctorCmd() *cobra.Command {
	var (
		configPath  string
		backendFlag string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the configured backend is reachable",
		Long: `Check that the configured generation backend is reachable and usable with
the current configuration. The command reports the resolved backend and
models, then runs a live health probe against the backend API.

Exit status is non-zero when the probe fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(configPath, backendFlag)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.Flags().StringVar(&backendFlag, "backend", "", "Generation backend to check (overrides config file)")

	return cmd
}

// runDoctor loads configuration, builds the configured backend, and probes it
func runDoctor(configPath string, backendFlag string) error {
	// Progress output is opt-in; doctor is interactive and opts in
	tui.SetShowProgress(true)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if backendFlag != "" {
		if err := applyBackendOverride(cfg, backendFlag); err != nil {
			return err
		}
	}

	tui.Info("backend:     %s\n", cfg.Backend)
	tui.Info("image model: %s\n", cfg.ImageModel)
	tui.Info("video model: %s\n", cfg.VideoModel)
	tui.Info("text model:  %s\n", cfg.TextModel)

	tui.Progress("Building backend...")
	generationBackend, err := backend.NewBackend(cfg)
	if err != nil {
		tui.ProgressFail("Backend configuration is incomplete")
		return fmt.Errorf("failed to build backend: %w", err)
	}
	tui.ProgressSuccess(fmt.Sprintf("Backend %s configured", generationBackend.Name()))

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	tui.Progress("Probing backend health...")
	if err := generationBackend.HealthCheck(ctx); err != nil {
		tui.ProgressFail("Backend unhealthy")
		return fmt.Errorf("health check failed: %w", err)
	}
	tui.ProgressSuccess("Backend healthy")

	return nil
}
