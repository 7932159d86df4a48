package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	// build time date
	buildDate = "unknown"
)

func main() {
	// A .env in the working directory can supply GEMINI_API_KEY and the
	// other GEMINI_MCP_ variables. A missing file is the normal case.
	_ = godotenv.Load()

	var (
		configPath  string
		useStdio    bool
		prettyLog   bool
		portFlag    int
		backendFlag string
	)

	rootCmd := &cobra.Command{
		Use:   "gemini-mcp",
		Short: "Gemini media generation MCP server",
		Long: `gemini-mcp is a Model Context Protocol (MCP) server that exposes image,
video and text generation as callable tools, backed by Google Gemini or
OpenAI-compatible APIs.`,
		Version: fmt.Sprintf("%s (built: %s)", version, buildDate),
		// Default to serve command when no subcommand is provided (backward compatibility)
		RunE: func(cmd *cobra.Command, args []string) error {
			// If no subcommand, run serve with the flags that were passed
			return runServe(configPath, useStdio, prettyLog, portFlag, backendFlag)
		},
	}

	// Add serve flags to root command for backward compatibility
	// These flags are also available on the "serve" subcommand
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (ignored if stdio is used)")
	rootCmd.Flags().BoolVar(&useStdio, "stdio", false, "Use stdio instead of TCP port")
	rootCmd.Flags().BoolVar(&prettyLog, "pretty", false, "Use pretty-printed logs instead of JSON")
	rootCmd.Flags().StringVar(&backendFlag, "backend", "", "Generation backend to use (overrides config file)")

	// Add subcommands
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
