// Package mcp exposes a DialogueService as Model Context Protocol tools,
// so that an agent can drive dialogues by sending P-expressions.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// TypesURI is the resource listing the registered node types.
const TypesURI = "tendril://types"

// Server wraps a DialogueService and exposes it as an MCP Server.
type Server struct {
	service   ports.DialogueService
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger. Logs must never go to stdout on stdio.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(svc ports.DialogueService, opts ...Option) *Server {
	s := &Server{
		service: svc,
		logger:  logging.NewNop(),
		mcpServer: server.NewMCPServer("tendril-mcp", strings.TrimSpace(tendril.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves JSON-RPC on in and out until ctx is done or in ends.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+localAddr(addr)))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func localAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type turnArgs struct {
	DialogueID string `json:"dialogue_id"`
	Expression string `json:"expression"`
}

type dialogueArgs struct {
	DialogueID string `json:"dialogue_id"`
}

type createResult struct {
	DialogueID string `json:"dialogue_id"`
}

type typesResult struct {
	Types []domain.TypeInfo `json:"types"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_dialogue",
		mcp.WithDescription("Start an empty dialogue and return its ID."),
		mcp.WithOutputSchema[createResult](),
	), mcp.NewStructuredToolHandler(s.handleCreate))

	s.mcpServer.AddTool(mcp.NewTool("execute_turn",
		mcp.WithDescription("Evaluate one P-expression, e.g. Booking(Ann, nights=2) or "+
			"revise(old=Booking?(), new=Booking?(nights=3)). Failures come back as errors with "+
			"suggested repair expressions. Without dialogue_id a new dialogue is started."),
		mcp.WithString("expression", mcp.Required(), mcp.Description("The P-expression to evaluate")),
		mcp.WithString("dialogue_id", mcp.Description("The dialogue to continue (optional)")),
		mcp.WithOutputSchema[domain.TurnReport](),
	), mcp.NewTypedToolHandler(s.handleTurn))

	s.mcpServer.AddTool(mcp.NewTool("list_goals",
		mcp.WithDescription("List the goals and pending exceptions of a dialogue."),
		mcp.WithString("dialogue_id", mcp.Required(), mcp.Description("The dialogue to inspect")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOutputSchema[domain.DialogueSnapshot](),
	), mcp.NewStructuredToolHandler(s.handleGoals))

	s.mcpServer.AddTool(mcp.NewTool("list_types",
		mcp.WithDescription("List the node types that expressions may use, with their signatures."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOutputSchema[typesResult](),
	), mcp.NewStructuredToolHandler(s.handleTypes))

	s.mcpServer.AddTool(mcp.NewTool("delete_dialogue",
		mcp.WithDescription("Drop a dialogue and its transcript."),
		mcp.WithString("dialogue_id", mcp.Required(), mcp.Description("The dialogue to delete")),
		mcp.WithDestructiveHintAnnotation(true),
	), mcp.NewTypedToolHandler(s.handleDelete))
}

func (s *Server) handleCreate(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (createResult, error) {
	id, err := s.service.Create(ctx)
	return createResult{DialogueID: id}, err
}

func (s *Server) handleTurn(ctx context.Context, _ mcp.CallToolRequest, args turnArgs) (*mcp.CallToolResult, error) {
	if strings.TrimSpace(args.Expression) == "" {
		return mcp.NewToolResultError("expression is required"), nil
	}
	id := args.DialogueID
	if id == "" {
		var err error
		if id, err = s.service.Create(ctx); err != nil {
			return nil, err
		}
	}

	rep, err := s.service.Turn(ctx, id, args.Expression)
	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			// Rejected expressions are the agent's to fix.
			return mcp.NewToolResultError(derr.Error()), nil
		}
		s.logger.Warn("mcp turn failed", "dialogue_id", id, "error", err)
		return mcp.NewToolResultErrorf("turn failed: %v", err), nil
	}
	return mcp.NewToolResultStructured(rep, tendril.FormatReport(rep)), nil
}

func (s *Server) handleGoals(ctx context.Context, _ mcp.CallToolRequest, args dialogueArgs) (*domain.DialogueSnapshot, error) {
	return s.service.Snapshot(ctx, args.DialogueID)
}

func (s *Server) handleTypes(context.Context, mcp.CallToolRequest, struct{}) (typesResult, error) {
	return typesResult{Types: s.service.Types()}, nil
}

func (s *Server) handleDelete(ctx context.Context, _ mcp.CallToolRequest, args dialogueArgs) (*mcp.CallToolResult, error) {
	if err := s.service.Delete(ctx, args.DialogueID); err != nil {
		return mcp.NewToolResultErrorf("delete failed: %v", err), nil
	}
	return mcp.NewToolResultText("deleted " + args.DialogueID), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TypesURI, "Registered node types",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.service.Types())
		if err != nil {
			return nil, fmt.Errorf("failed to encode types: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TypesURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
