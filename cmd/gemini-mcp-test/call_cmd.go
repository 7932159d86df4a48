package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/samihalawa/gemini-image-video-mcp/internal/tui"
)

// callTimeout caps one end-to-end tool call, video polling included.
const callTimeout = 15 * time.Minute

// markdownWidth is the wrap width for rendered markdown output.
const markdownWidth = 80

// newCallCmd creates a new command to call an MCP operation
func newCallCmd() *cobra.Command {
	var (
		transport     string
		port          int
		toolName      string
		argsJSON      string
		progressToken string
		serverBin     string
		render        bool
	)

	cmd := &cobra.Command{
		Use:   "call [flags]",
		Short: "Call an MCP operation",
		Long: `Call an MCP operation and display its output.

The operation can be called via HTTP or stdio transport. For HTTP transport,
a session will be automatically initialized. For stdio transport, the
gemini-mcp binary will be spawned and communication happens via stdin/stdout.

When --progress-token is set, the call carries the token and progress
notifications received for it are printed to stderr as they arrive. With
--render, text output is rendered as markdown for the terminal; leave it
off when the output is consumed by scripts.`,
		Example: `  # Call an operation via HTTP
  gemini-mcp-test call --transport http --port 8080 --tool generate_image --args '{"prompt":"a lighthouse at dusk"}'

  # Watch progress ticks while a video renders
  gemini-mcp-test call --tool generate_video --args '{"prompt":"waves on a beach"}' --progress-token video-1

  # Call an operation via stdio
  gemini-mcp-test call --transport stdio --tool list_operations`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if toolName == "" {
				return fmt.Errorf("tool name is required (use --tool)")
			}

			var toolArgs map[string]any
			if argsJSON == "" {
				toolArgs = make(map[string]any)
			} else {
				if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
					return fmt.Errorf("invalid JSON in --args: %w", err)
				}
			}

			var output string
			var isError bool
			var err error

			switch transport {
			case "http":
				output, isError, err = callToolHTTP(port, toolName, toolArgs, progressToken)
			case "stdio":
				// Ensure the server binary is available for stdio transport
				if serverBin == "" {
					binPath, binErr := ensureServerBinary()
					if binErr != nil {
						return fmt.Errorf("gemini-mcp binary not found in PATH (required for stdio transport): %w", binErr)
					}
					serverBin = binPath
				}
				output, isError, err = callToolStdio(serverBin, toolName, toolArgs, progressToken)
			default:
				return fmt.Errorf("unknown transport: %s (supported: http, stdio)", transport)
			}

			if err != nil {
				return err
			}

			printOutput(output, render)
			if isError {
				// Exit non-zero so scripts can tell in-band failures apart
				return fmt.Errorf("operation reported an error")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", "http", "Transport to use (http or stdio)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port (ignored for stdio)")
	cmd.Flags().StringVarP(&toolName, "tool", "n", "", "Operation name to call (required)")
	cmd.Flags().StringVarP(&argsJSON, "args", "a", "{}", "Operation arguments as JSON")
	cmd.Flags().StringVar(&progressToken, "progress-token", "", "Progress token to attach to the call")
	cmd.Flags().StringVar(&serverBin, "server-bin", "", "Path to gemini-mcp binary (for stdio transport, default: auto-detect)")
	cmd.Flags().BoolVar(&render, "render", false, "Render text output as markdown")

	if err := cmd.MarkFlagRequired("tool"); err != nil {
		// This should never happen, but handle it gracefully
		fmt.Fprintf(os.Stderr, "Warning: failed to mark tool flag as required: %v\n", err)
	}

	return cmd
}

func callToolHTTP(port int, toolName string, args map[string]any, progressToken string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	// Create MCP client
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "gemini-mcp-test",
		Version: "1.0.0",
	}, clientOptions(progressToken))

	// Create HTTP transport
	transport := &mcp.StreamableClientTransport{
		Endpoint: fmt.Sprintf("http://localhost:%d/mcp", port),
		HTTPClient: &http.Client{
			Timeout: callTimeout,
		},
	}

	// Connect to server (this initializes the session)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to connect: %w", err)
	}
	defer session.Close() //nolint:errcheck // Ignore close errors on session

	return callTool(ctx, session, toolName, args, progressToken)
}

func callToolStdio(serverBin string, toolName string, args map[string]any, progressToken string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	// Create MCP client
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "gemini-mcp-test",
		Version: "1.0.0",
	}, clientOptions(progressToken))

	// Create stdio transport (spawns the server process)
	transport := &mcp.CommandTransport{
		Command: exec.Command(serverBin, "serve", "--stdio"),
	}

	// Connect to server
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to connect: %w", err)
	}
	defer session.Close() //nolint:errcheck // Ignore close errors on session

	return callTool(ctx, session, toolName, args, progressToken)
}

// callTool performs the call on an established session and reports the
// operation output plus whether the server flagged it as an in-band error
func callTool(ctx context.Context, session *mcp.ClientSession, toolName string, args map[string]any, progressToken string) (string, bool, error) {
	params := &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	}
	if progressToken != "" {
		params.SetProgressToken(progressToken)
	}

	result, err := session.CallTool(ctx, params)
	if err != nil {
		return "", false, fmt.Errorf("tool call failed: %w", err)
	}

	return extractToolOutput(result), result.IsError, nil
}

// clientOptions wires a progress printer when a token was requested
func clientOptions(progressToken string) *mcp.ClientOptions {
	if progressToken == "" {
		return nil
	}

	return &mcp.ClientOptions{
		ProgressNotificationHandler: func(_ context.Context, req *mcp.ProgressNotificationClientRequest) {
			fmt.Fprintln(os.Stderr, formatProgress(req.Params))
		},
	}
}

// formatProgress renders one progress notification for the terminal. Total
// is omitted while it is still unknown.
func formatProgress(params *mcp.ProgressNotificationParams) string {
	line := fmt.Sprintf("progress [%v] %g", params.ProgressToken, params.Progress)
	if params.Total > 0 {
		line = fmt.Sprintf("%s/%g", line, params.Total)
	}
	if params.Message != "" {
		line = fmt.Sprintf("%s %s", line, params.Message)
	}
	return line
}

func extractToolOutput(result *mcp.CallToolResult) string {
	// Operations respond with a single text content block
	if len(result.Content) > 0 {
		if textContent, ok := result.Content[0].(*mcp.TextContent); ok && textContent.Text != "" {
			return textContent.Text
		}
	}

	return ""
}

// printOutput writes the operation output to stdout, optionally rendered as
// markdown
func printOutput(output string, render bool) {
	if render {
		rendered, err := tui.RenderMarkdown(output, markdownWidth)
		if err == nil && rendered != output {
			// Successfully rendered markdown
			fmt.Print(rendered)
			return
		}
	}

	fmt.Print(output)
}
