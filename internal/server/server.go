// Package server implements the gemini-mcp MCP server.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/samihalawa/gemini-image-video-mcp/internal/backend"
	"github.com/samihalawa/gemini-image-video-mcp/internal/catalog"
	"github.com/samihalawa/gemini-image-video-mcp/internal/config"
	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
	"github.com/samihalawa/gemini-image-video-mcp/internal/engine"
	"github.com/samihalawa/gemini-image-video-mcp/internal/tools"
)

const (
	serverName    = "gemini-mcp"
	serverVersion = "1.0.0"

	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// MediaServer stores the state and dependencies for the gemini-mcp MCP
// server: the operation registry, the dispatcher that runs calls against it,
// and the generation backend they delegate to.
type MediaServer struct {
	configPath    string
	catalog       *catalog.Catalog
	mu            sync.RWMutex
	config        *config.Config
	backend       backend.Backend
	registry      *engine.Registry
	tracker       *engine.ProgressTracker
	dispatcher    *engine.Dispatcher
	mcpServer     *mcp.Server
	httpHandler   *mcp.StreamableHTTPHandler
	registeredOps mapset.Set[string]
}

// NewMediaServer creates a new MediaServer instance. The media catalog is
// created once here and survives reloads; everything else is rebuilt from
// the configuration.
func NewMediaServer(cfg *config.Config, configPath string) (*MediaServer, error) {
	mediaServer := &MediaServer{
		configPath: configPath,
		catalog:    catalog.NewCatalog(),
	}

	if err := mediaServer.rebuild(cfg); err != nil {
		return nil, err
	}

	// Create HTTP handler that manages sessions, Origin validation, etc.
	mediaServer.httpHandler = mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server {
			mediaServer.mu.RLock()
			defer mediaServer.mu.RUnlock()
			return mediaServer.mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: false,
		},
	)

	return mediaServer, nil
}

// rebuild replaces the server's state with a stack built from cfg. The lock
// makes the replacement atomic under concurrent SIGHUP signals; connections
// opened before the rebuild keep their captured server instance for their
// lifetime, new connections get the new one.
func (s *MediaServer) rebuild(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	generationBackend, err := backend.NewBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to build %s backend: %w", cfg.Backend, err)
	}

	registry := engine.NewRegistry()
	if err := engine.Populate(registry, tools.NewSource(cfg, generationBackend, s.catalog)); err != nil {
		return err
	}

	tracker := engine.NewProgressTracker(cfg.ProgressTickInterval())
	dispatcher := engine.NewDispatcher(registry, tracker)

	mcpServer := mcp.NewServer(
		&mcp.Implementation{Name: serverName, Version: serverVersion},
		nil,
	)
	registered := mapset.NewSet[string]()

	for i, def := range registry.Operations() {
		zap.L().Info("Registering operation with MCP server",
			zap.Int("index", i),
			zap.String("name", def.Name),
			zap.String("category", string(def.Category)),
			zap.Bool("prompt_style", def.Prompt != nil))

		registerOperation(mcpServer, dispatcher, def)
		if def.Prompt != nil {
			registerPrompt(mcpServer, def)
		}
		registered.Add(def.Name)
	}

	zap.L().Info("MCP server ready",
		zap.Int("operations", registry.Len()),
		zap.String("backend", generationBackend.Name()))

	s.config = cfg
	s.backend = generationBackend
	s.registry = registry
	s.tracker = tracker
	s.dispatcher = dispatcher
	s.mcpServer = mcpServer
	s.registeredOps = registered
	return nil
}

// registerOperation registers a single operation as an MCP tool. The handler
// extracts the caller's progress token, dispatches, and maps the response
// onto the MCP result shape. Dispatch classifies its own failures, so the
// panic recovery here only guards the glue around it.
func registerOperation(mcpServer *mcp.Server, dispatcher *engine.Dispatcher, def *engine.OperationDefinition) {
	handler := func(ctx context.Context, req *mcp.CallToolRequest, input map[string]any) (
		result *mcp.CallToolResult,
		output any,
		err error,
	) {
		defer func() {
			if r := recover(); r != nil {
				core.LogPanicRecovery("operation handler", r)
				result = &mcp.CallToolResult{
					IsError: true,
					Content: []mcp.Content{
						&mcp.TextContent{
							Text: fmt.Sprintf("internal error: panic recovered in operation handler: %v%s", r, core.BugReportMessage()),
						},
					},
				}
				output = nil
				err = fmt.Errorf("panic recovered: %v", r)
			}
		}()

		token := req.Params.GetProgressToken()
		var notifier engine.Notifier
		if token != nil && req.Session != nil {
			notifier = newSessionNotifier(req.Session, token)
		}

		resp := dispatcher.Dispatch(ctx, def.Name, input, tokenKey(token), notifier)
		return &mcp.CallToolResult{
			IsError: resp.IsError,
			Content: []mcp.Content{
				&mcp.TextContent{Text: resp.Text},
			},
		}, nil, nil
	}

	mcpTool := &mcp.Tool{
		Name:        def.Name,
		Description: def.Description,
	}
	if def.InputSchema != nil {
		mcpTool.InputSchema = def.InputSchema
	}

	mcp.AddTool(mcpServer, mcpTool, handler)
	zap.L().Debug("mcp.AddTool completed", zap.String("operation", def.Name))
}

// registerPrompt additionally exposes a prompt-style operation in the MCP
// prompt catalog. Rendering a prompt is display-only and never dispatches
// the operation itself.
func registerPrompt(mcpServer *mcp.Server, def *engine.OperationDefinition) {
	spec := def.Prompt

	arguments := make([]*mcp.PromptArgument, 0, len(spec.Arguments))
	for _, arg := range spec.Arguments {
		arguments = append(arguments, &mcp.PromptArgument{
			Name:        arg.Name,
			Description: arg.Description,
			Required:    arg.Required,
		})
	}

	prompt := &mcp.Prompt{
		Name:        def.Name,
		Description: spec.Description,
		Arguments:   arguments,
	}

	handler := func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		for _, arg := range spec.Arguments {
			if arg.Required && req.Params.Arguments[arg.Name] == "" {
				return nil, fmt.Errorf("missing required prompt argument: %s", arg.Name)
			}
		}

		return &mcp.GetPromptResult{
			Description: spec.Description,
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: spec.Render(req.Params.Arguments)},
				},
			},
		}, nil
	}

	mcpServer.AddPrompt(prompt, handler)
	zap.L().Debug("mcp.AddPrompt completed", zap.String("operation", def.Name))
}

// tokenKey renders a wire progress token, which the MCP spec allows to be a
// string or a number, into the dispatcher's correlation key. A nil token
// yields the empty key, which opens a silent progress channel.
func tokenKey(token any) string {
	if token == nil {
		return ""
	}
	return fmt.Sprintf("%v", token)
}

// sessionNotifier forwards progress ticks to the MCP session the call
// arrived on, echoing the caller's original token value so the client can
// correlate notifications with its request.
type sessionNotifier struct {
	session *mcp.ServerSession
	token   any
}

func newSessionNotifier(session *mcp.ServerSession, token any) *sessionNotifier {
	return &sessionNotifier{session: session, token: token}
}

// Notify sends one progress notification over the session.
func (n *sessionNotifier) Notify(ctx context.Context, tick engine.Tick) error {
	return n.session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: n.token,
		Progress:      tick.Progress,
		Total:         tick.Total,
		Message:       tick.Message,
	})
}

// Interface guard for sessionNotifier
var _ engine.Notifier = &sessionNotifier{}

// Reload reloads configuration and rebuilds the backend, registry and
// dispatcher. The media catalog is kept, so entries recorded before the
// reload stay listable after it.
func (s *MediaServer) Reload() error {
	// Panic recovery for reload operation
	defer func() {
		if r := recover(); r != nil {
			core.LogPanicRecovery("reload", r)
		}
	}()

	newCfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	return s.rebuild(newCfg)
}

// Registry returns the operation registry backing the current server
// instance.
func (s *MediaServer) Registry() *engine.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

// HandlesOperation reports whether the running server exposes the named
// operation.
func (s *MediaServer) HandlesOperation(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registeredOps.Contains(name)
}

// Serve starts the server on the given address using HTTP (Streamable HTTP transport per MCP spec)
// The StreamableHTTPHandler manages sessions, Origin validation, and HTTP protocol details
func (s *MediaServer) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()

	// MCP endpoint that handles both POST (client requests) and GET (SSE stream)
	mux.Handle("/mcp", s.httpHandler)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	zap.L().Info("Server listening", zap.String("address", addr))

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("Server shutdown error", zap.Error(err))
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

// ServeStdio starts the server using stdio transport (per MCP spec)
func (s *MediaServer) ServeStdio(ctx context.Context) error {
	transport := &mcp.StdioTransport{}
	// Capture the server instance with a read lock so a concurrent reload
	// cannot hand out a half-built instance.
	s.mu.RLock()
	server := s.mcpServer
	s.mu.RUnlock()
	return server.Run(ctx, transport)
}
