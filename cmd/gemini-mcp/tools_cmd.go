package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samihalawa/gemini-image-video-mcp/internal/backend"
	"github.com/samihalawa/gemini-image-video-mcp/internal/catalog"
	"github.com/samihalawa/gemini-image-video-mcp/internal/config"
	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
	"github.com/samihalawa/gemini-image-video-mcp/internal/engine"
	"github.com/samihalawa/gemini-image-video-mcp/internal/tools"
)

// operationListing is the JSON shape emitted by "tools --json"
type operationListing struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Prompt      bool   `json:"prompt"`
}

// newToolsCmd creates the tools command
func newToolsCmd() *cobra.Command {
	var jsonOutput bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the operations the server exposes",
		Long: `List all operations the server registers as MCP tools, with their
categories. Operations flagged as prompts are additionally exposed in the
MCP prompt catalog.

By default, shows a simple list format. Use --verbose or --table to see detailed
information including descriptions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := listOperations()
			if err != nil {
				return fmt.Errorf("failed to list operations: %w", err)
			}

			if jsonOutput {
				listings := make([]operationListing, 0, len(defs))
				for _, def := range defs {
					listings = append(listings, operationListing{
						Name:        def.Name,
						Category:    string(def.Category),
						Description: def.Description,
						Prompt:      def.Prompt != nil,
					})
				}

				// JSON output for machine-readable format
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(listings)
			}

			if verbose {
				// Verbose table format with descriptions
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

				_, errWriteHeader := fmt.Fprintln(w, "NAME\tCATEGORY\tDESCRIPTION")
				if errWriteHeader != nil {
					return fmt.Errorf("failed to write header: %w", errWriteHeader)
				}

				_, errWriteSeparator := fmt.Fprintln(w, "----\t--------\t-----------")
				if errWriteSeparator != nil {
					return fmt.Errorf("failed to write separator: %w", errWriteSeparator)
				}

				for _, def := range defs {
					_, errWriteRow := fmt.Fprintf(w, "%s\t%s\t%s\n", def.Name, def.Category, core.Truncate(def.Description, 60))
					if errWriteRow != nil {
						return fmt.Errorf("failed to write row: %w", errWriteRow)
					}
				}

				return w.Flush()
			}

			// Simple format by default: operation-name (category)
			for _, def := range defs {
				fmt.Printf("%s (%s)\n", def.Name, def.Category)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed information including descriptions")
	cmd.Flags().BoolVar(&verbose, "table", false, "Show detailed information in table format (alias for --verbose)")

	return cmd
}

// listOperations builds the operation registry without touching backend
// credentials. Listing only needs the definitions, so a mock backend and a
// throwaway catalog stand in for the configured ones.
func listOperations() ([]*engine.OperationDefinition, error) {
	cfg := config.NewDefaultConfig()
	registry := engine.NewRegistry()
	if err := engine.Populate(registry, tools.NewSource(cfg, backend.NewMockBackend(), catalog.NewCatalog())); err != nil {
		return nil, err
	}
	return registry.Operations(), nil
}
