package main

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

// listTimeout caps one discovery round trip.
const listTimeout = 30 * time.Second

// newListCmd creates a new command to list the tools a server advertises
func newListCmd() *cobra.Command {
	var (
		transport string
		port      int
		prompts   bool
		serverBin string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tools or prompts a server advertises",
		Long: `List the tools a running gemini-mcp server advertises, one per line with
its description. With --prompts, list the prompt catalog instead.`,
		Example: `  # List tools via HTTP
  gemini-mcp-test list --transport http --port 8080

  # List the prompt catalog via stdio
  gemini-mcp-test list --transport stdio --prompts`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, cleanup, err := connect(transport, port, serverBin)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
			defer cancel()

			if prompts {
				return listPrompts(ctx, session)
			}
			return listTools(ctx, session)
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", "http", "Transport to use (http or stdio)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port (ignored for stdio)")
	cmd.Flags().BoolVar(&prompts, "prompts", false, "List the prompt catalog instead of tools")
	cmd.Flags().StringVar(&serverBin, "server-bin", "", "Path to gemini-mcp binary (for stdio transport, default: auto-detect)")

	return cmd
}

// connect establishes a client session over the chosen transport
func connect(transport string, port int, serverBin string) (*mcp.ClientSession, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "gemini-mcp-test",
		Version: "1.0.0",
	}, nil)

	var clientTransport mcp.Transport
	switch transport {
	case "http":
		clientTransport = &mcp.StreamableClientTransport{
			Endpoint: fmt.Sprintf("http://localhost:%d/mcp", port),
			HTTPClient: &http.Client{
				Timeout: listTimeout,
			},
		}
	case "stdio":
		if serverBin == "" {
			binPath, binErr := ensureServerBinary()
			if binErr != nil {
				return nil, nil, fmt.Errorf("gemini-mcp binary not found in PATH (required for stdio transport): %w", binErr)
			}
			serverBin = binPath
		}
		clientTransport = &mcp.CommandTransport{
			Command: exec.Command(serverBin, "serve", "--stdio"),
		}
	default:
		return nil, nil, fmt.Errorf("unknown transport: %s (supported: http, stdio)", transport)
	}

	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}

	cleanup := func() {
		_ = session.Close() // Ignore close errors on session
	}
	return session, cleanup, nil
}

// listTools prints every advertised tool with its description
func listTools(ctx context.Context, session *mcp.ClientSession) error {
	result, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}

	if len(result.Tools) == 0 {
		fmt.Println("No tools advertised.")
		return nil
	}

	for _, tool := range result.Tools {
		fmt.Printf("%s: %s\n", tool.Name, firstLine(tool.Description))
	}
	return nil
}

// listPrompts prints the prompt catalog with each prompt's arguments
func listPrompts(ctx context.Context, session *mcp.ClientSession) error {
	result, err := session.ListPrompts(ctx, &mcp.ListPromptsParams{})
	if err != nil {
		return fmt.Errorf("failed to list prompts: %w", err)
	}

	if len(result.Prompts) == 0 {
		fmt.Println("No prompts advertised.")
		return nil
	}

	for _, prompt := range result.Prompts {
		fmt.Printf("%s: %s\n", prompt.Name, firstLine(prompt.Description))
		for _, arg := range prompt.Arguments {
			required := ""
			if arg.Required {
				required = " (required)"
			}
			fmt.Printf("  --%s%s: %s\n", arg.Name, required, firstLine(arg.Description))
		}
	}
	return nil
}

// firstLine keeps descriptions to one terminal line each
func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
