package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samihalawa/gemini-image-video-mcp/internal/config"
)

// newConfigCmd creates the config command
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gemini-mcp configuration",
		Long: `Manage gemini-mcp configuration. Values are resolved with precedence:
environment variables, then the project config (./gemini-mcp.yaml), then
the user config (~/.gemini-mcp/config.yaml), then built-in defaults.`,
	}

	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigListCmd())

	return cmd
}

// newConfigGetCmd creates the config get command
func newConfigGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print one configuration value and its source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, err := config.GetConfigValue(key)
			if err != nil {
				return err
			}
			fmt.Printf("%v (source: %s)\n", maskSecret(key, value.Value), value.Source)
			return nil
		},
	}

	return cmd
}

// newConfigSetCmd creates the config set command
func newConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: `Set a configuration value. The value is written to the project config if
one exists in the current directory, otherwise to the user config. The
updated configuration is validated before anything is written.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := config.SetConfigValue(key, value); err != nil {
				return fmt.Errorf("failed to set %s: %w", key, err)
			}
			fmt.Printf("%s = %v\n", key, maskSecret(key, value))
			return nil
		},
	}

	return cmd
}

// newConfigListCmd creates the config list command
func newConfigListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration values with their sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := config.ListConfig()
			if err != nil {
				return fmt.Errorf("failed to list config: %w", err)
			}

			keys := make([]string, 0, len(values))
			for key := range values {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

			_, errWriteHeader := fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
			if errWriteHeader != nil {
				return fmt.Errorf("failed to write header: %w", errWriteHeader)
			}

			_, errWriteSeparator := fmt.Fprintln(w, "---\t-----\t------")
			if errWriteSeparator != nil {
				return fmt.Errorf("failed to write separator: %w", errWriteSeparator)
			}

			for _, key := range keys {
				_, errWriteRow := fmt.Fprintf(w, "%s\t%v\t%s\n", key, maskSecret(key, values[key].Value), values[key].Source)
				if errWriteRow != nil {
					return fmt.Errorf("failed to write row: %w", errWriteRow)
				}
			}

			return w.Flush()
		},
	}

	return cmd
}

// maskSecret hides all but the last four characters of secret-bearing values.
// Only api_key is treated as a secret.
func maskSecret(key string, value any) any {
	if key != "api_key" {
		return value
	}

	s := fmt.Sprintf("%v", value)
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
