package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/domaindetect"
	"github.com/aretw0/domaindetect/internal/fasta"
	"github.com/aretw0/domaindetect/internal/logging"
	"github.com/aretw0/domaindetect/internal/presentation/report"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
	"github.com/aretw0/domaindetect/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// LibraryURI is the resource exposing the loaded domain library.
const LibraryURI = "domaindetect://library"

// ReannotateResponse reports what changed along with the new session view.
type ReannotateResponse struct {
	Diff    domain.ChainDiff `json:"diff" jsonschema_description:"Chains added, changed, removed or unchanged"`
	Session session.Snapshot `json:"session" jsonschema_description:"The session after reannotation"`
}

// Server exposes a session.Manager as an MCP Server.
type Server struct {
	manager   *session.Manager
	loader    ports.LibraryLoader
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance. The loader backs the library resource.
func NewServer(mgr *session.Manager, loader ports.LibraryLoader, opts ...Option) *Server {
	s := &Server{
		manager:   mgr,
		loader:    loader,
		mcpServer: server.NewMCPServer("domaindetect-mcp", strings.TrimSpace(domaindetect.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Baggage, Sentry-Trace")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sessionID := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned by create_session"))

	// TOOL: create_session
	s.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create an annotation session. Config keys left out keep the server defaults."),
		mcp.WithString("config", mcp.Description("JSON object with resolution settings, e.g. {\"domainBoundaryPolicy\":\"MAX\"} (optional)")),
		mcp.WithOutputSchema[session.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleCreateSession))

	// TOOL: load_library
	s.mcpServer.AddTool(mcp.NewTool("load_library",
		mcp.WithDescription("Load the domain library into the session. Fails the session if the library is unreadable."),
		sessionID,
		mcp.WithOutputSchema[session.Snapshot](),
	), mcp.NewStructuredToolHandler(s.step(func(ctx context.Context, sess *session.Session, _ map[string]interface{}) error {
		return sess.LoadLibrary(ctx)
	})))

	// TOOL: search_chains
	s.mcpServer.AddTool(mcp.NewTool("search_chains",
		mcp.WithDescription("Run the alignment search for every chain. Give either fasta or chains."),
		sessionID,
		mcp.WithString("fasta", mcp.Description("Chains in FASTA format")),
		mcp.WithString("chains", mcp.Description("JSON array of {id, name, sequence}")),
		mcp.WithOutputSchema[session.Snapshot](),
	), mcp.NewStructuredToolHandler(s.step(func(ctx context.Context, sess *session.Session, args map[string]interface{}) error {
		chains, err := chainsArg(args)
		if err != nil {
			return err
		}
		return sess.SearchChains(ctx, chains)
	})))

	// TOOL: resolve
	s.mcpServer.AddTool(mcp.NewTool("resolve",
		mcp.WithDescription("Filter, score and resolve the hits of every chain into domain assignments."),
		sessionID,
		mcp.WithOutputSchema[session.Snapshot](),
	), mcp.NewStructuredToolHandler(s.step(func(ctx context.Context, sess *session.Session, _ map[string]interface{}) error {
		return sess.Resolve(ctx)
	})))

	// TOOL: certify
	s.mcpServer.AddTool(mcp.NewTool("certify",
		mcp.WithDescription("Check every chain is non-overlapping and fully accounted for."),
		sessionID,
		mcp.WithOutputSchema[session.Snapshot](),
	), mcp.NewStructuredToolHandler(s.step(func(ctx context.Context, sess *session.Session, _ map[string]interface{}) error {
		return sess.Certify(ctx)
	})))

	// TOOL: edit_assignments
	s.mcpServer.AddTool(mcp.NewTool("edit_assignments",
		mcp.WithDescription("Replace the domain table of one chain. The session drops back to RESOLVED."),
		sessionID,
		mcp.WithString("chain_id", mcp.Required(), mcp.Description("Chain to edit")),
		mcp.WithString("assignments", mcp.Required(), mcp.Description("JSON array of {domain_id, start, end}")),
		mcp.WithOutputSchema[session.Snapshot](),
	), mcp.NewStructuredToolHandler(s.step(func(ctx context.Context, sess *session.Session, args map[string]interface{}) error {
		chainID, _ := args["chain_id"].(string)
		raw, _ := args["assignments"].(string)
		var as []domain.DomainAssignment
		if err := json.Unmarshal([]byte(raw), &as); err != nil {
			return fmt.Errorf("invalid assignments: %w", err)
		}
		return sess.EditAssignments(ctx, chainID, as)
	})))

	// TOOL: reannotate
	s.mcpServer.AddTool(mcp.NewTool("reannotate",
		mcp.WithDescription("Submit the session's chains again and recompute only those that changed."),
		sessionID,
		mcp.WithString("fasta", mcp.Description("Chains in FASTA format")),
		mcp.WithString("chains", mcp.Description("JSON array of {id, name, sequence}")),
		mcp.WithOutputSchema[ReannotateResponse](),
	), mcp.NewStructuredToolHandler(s.handleReannotate))

	// TOOL: get_session
	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the current state and results of a session."),
		sessionID,
		mcp.WithOutputSchema[session.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	// TOOL: get_report
	s.mcpServer.AddTool(mcp.NewTool("get_report",
		mcp.WithDescription("Render the session results as a markdown report or a mermaid diagram."),
		sessionID,
		mcp.WithString("format", mcp.Description("markdown (default) or mermaid")),
	), s.handleGetReport)

	// TOOL: delete_session
	s.mcpServer.AddTool(mcp.NewTool("delete_session",
		mcp.WithDescription("Cancel and forget a session."),
		sessionID,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := request.GetArguments()["session_id"].(string)
		if err := s.manager.Delete(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("deleted " + id), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (session.Snapshot, error) {
	cfg := s.manager.Config()
	if raw, ok := args["config"].(string); ok && raw != "" {
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return session.Snapshot{}, fmt.Errorf("invalid config: %w", err)
		}
	}
	sess, err := s.manager.Create(&cfg)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (session.Snapshot, error) {
	id, _ := args["session_id"].(string)
	sess, err := s.manager.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *Server) handleReannotate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ReannotateResponse, error) {
	id, _ := args["session_id"].(string)
	chains, err := chainsArg(args)
	if err != nil {
		return ReannotateResponse{}, err
	}

	var resp ReannotateResponse
	err = s.manager.Do(ctx, id, func(ctx context.Context, sess *session.Session) error {
		diff, err := sess.ReannotateChangedDomains(ctx, chains)
		resp = ReannotateResponse{Diff: diff, Session: sess.Snapshot()}
		return err
	})
	if err != nil {
		return resp, s.describe("reannotate", resp.Session, err)
	}
	return resp, nil
}

func (s *Server) handleGetReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, _ := args["session_id"].(string)
	format, _ := args["format"].(string)

	sess, err := s.manager.Get(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap := sess.Snapshot()

	switch format {
	case "", "markdown":
		return mcp.NewToolResultText(report.Markdown(report.Header{
			SessionID:      snap.ID,
			State:          snap.State,
			LibraryVersion: snap.LibraryVersion,
			Issues:         snap.Issues,
		}, snap.Results)), nil
	case "mermaid":
		return mcp.NewToolResultText(report.Mermaid(snap.Results, sess.Library())), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown report format %q", format)), nil
	}
}

// step adapts a session operation into a structured tool handler that runs under the
// session lock and answers with the resulting snapshot.
func (s *Server) step(op func(context.Context, *session.Session, map[string]interface{}) error) func(context.Context, mcp.CallToolRequest, map[string]interface{}) (session.Snapshot, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (session.Snapshot, error) {
		id, _ := args["session_id"].(string)
		var snap session.Snapshot
		err := s.manager.Do(ctx, id, func(ctx context.Context, sess *session.Session) error {
			err := op(ctx, sess, args)
			snap = sess.Snapshot()
			return err
		})
		if err != nil {
			return snap, s.describe(request.Params.Name, snap, err)
		}
		return snap, nil
	}
}

// describe folds the session state into the error text, since tool errors carry no payload.
func (s *Server) describe(tool string, snap session.Snapshot, err error) error {
	s.logger.Warn("MCP tool failed", "tool", tool, "session_id", snap.ID, "err", err)
	if snap.ID == "" {
		return err
	}
	return fmt.Errorf("%s failed, session %s is %s: %w", tool, snap.ID, snap.State, err)
}

// chainsArg reads chains from the fasta or chains argument.
func chainsArg(args map[string]interface{}) ([]domain.Chain, error) {
	if text, ok := args["fasta"].(string); ok && text != "" {
		return fasta.Read(strings.NewReader(text))
	}
	if raw, ok := args["chains"].(string); ok && raw != "" {
		var chains []domain.Chain
		if err := json.Unmarshal([]byte(raw), &chains); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidChain, err)
		}
		return chains, nil
	}
	return nil, errors.New("one of fasta or chains is required")
}

func (s *Server) registerResources() {
	// EXPOSE: domaindetect://library
	s.mcpServer.AddResource(mcp.NewResource(LibraryURI, "Domain Library",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		lib, err := s.loader.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load library: %w", err)
		}
		jsonBytes, _ := json.Marshal(lib)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      LibraryURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
