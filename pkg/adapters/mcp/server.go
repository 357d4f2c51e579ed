// Package mcp exposes story sessions as Model Context Protocol tools.
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

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/runner"
	"github.com/aretw0/fable/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TreeURI addresses the compiled story resource.
const TreeURI = "fable://tree"

// AdvanceResponse is the structured result of the advance tool.
type AdvanceResponse struct {
	SessionID string      `json:"session_id" jsonschema_description:"Session the turn was played in"`
	Seam      domain.Seam `json:"seam" jsonschema_description:"Why the engine stopped: input, media, grant, error or finish"`
	Ops       []domain.Op `json:"ops" jsonschema_description:"Instructions for the host, in order"`
	Address   string      `json:"address,omitempty" jsonschema_description:"Node address the session resumes from"`
	Turn      int         `json:"turn" jsonschema_description:"Completed advance calls"`
	Trace     []string    `json:"trace,omitempty" jsonschema_description:"Dispatch trace when the verbose option is set"`
}

// RevertResponse is the structured result of the revert tool.
type RevertResponse struct {
	SessionID   string `json:"session_id"`
	Turn        int    `json:"turn"`
	Address     string `json:"address,omitempty"`
	Checkpoints int    `json:"checkpoints"`
}

type advanceArgs struct {
	SessionID string         `json:"session_id"`
	Input     string         `json:"input"`
	Resume    bool           `json:"resume"`
	Options   map[string]any `json:"options"`
}

type revertArgs struct {
	SessionID string  `json:"session_id"`
	Index     float64 `json:"index"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    ports.Advancer
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP server for engine.
func NewServer(engine ports.Advancer, sessions *session.Manager, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		engine:    engine,
		sessions:  sessions,
		mcpServer: server.NewMCPServer("fable-mcp", strings.TrimSpace(version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over server-sent events on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	advanceTool := mcp.NewTool("advance",
		mcp.WithDescription("Play the story for a session until it needs the host: input, media playback, or the end."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to advance. Created on first use.")),
		mcp.WithString("input", mcp.Description("Player reply to the pending input request (optional)")),
		mcp.WithBoolean("resume", mcp.Description("Play the story's resume section first when reconnecting to a session that has already played")),
		mcp.WithObject("options", mcp.Description("Per-call overrides: verbose, seed, loop, ream, generate_audio, generate_image, max_checkpoints, input_retry_max, models")),
		mcp.WithOutputSchema[AdvanceResponse](),
	)
	s.mcpServer.AddTool(advanceTool, mcp.NewStructuredToolHandler(s.handleAdvance))

	revertTool := mcp.NewTool("revert",
		mcp.WithDescription("Restore a session to one of its checkpoints. Negative indexes count from the end."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to revert")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Checkpoint index")),
		mcp.WithOutputSchema[RevertResponse](),
	)
	s.mcpServer.AddTool(revertTool, mcp.NewStructuredToolHandler(s.handleRevert))

	s.mcpServer.AddTool(mcp.NewTool("inspect_tree",
		mcp.WithDescription("Get the compiled story tree for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(s.engine.Cartridge())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func (s *Server) handleAdvance(ctx context.Context, _ mcp.CallToolRequest, args advanceArgs) (AdvanceResponse, error) {
	if args.SessionID == "" {
		return AdvanceResponse{}, errors.New("session_id is required")
	}
	input, err := runner.SanitizeInput(args.Input)
	if err != nil {
		s.logger.WarnContext(ctx, "MCP advance: input rejected", "err", err, "size", len(args.Input))
		return AdvanceResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	var opts []session.AdvanceOption
	if args.Resume {
		opts = append(opts, session.Resuming())
	}
	if len(args.Options) > 0 {
		tunable, ok := s.engine.(ports.TunableAdvancer)
		if !ok {
			return AdvanceResponse{}, errors.New("options are not supported by this engine")
		}
		callOpts, err := decodeOptions(tunable.Options(), args.Options)
		if err != nil {
			return AdvanceResponse{}, err
		}
		opts = append(opts, session.WithOptions(callOpts))
	}

	res, err := s.sessions.Advance(ctx, s.engine, args.SessionID, input, opts...)
	if err != nil {
		return AdvanceResponse{}, fmt.Errorf("advance failed: %w", err)
	}
	out := AdvanceResponse{
		SessionID: args.SessionID,
		Seam:      res.Seam,
		Ops:       res.Ops,
		Address:   res.Address,
		Trace:     res.Info.Trace,
	}
	if res.Session != nil {
		out.Turn = res.Session.Turn
	}
	if out.Ops == nil {
		out.Ops = []domain.Op{}
	}
	return out, nil
}

func (s *Server) handleRevert(ctx context.Context, _ mcp.CallToolRequest, args revertArgs) (RevertResponse, error) {
	sess, err := s.sessions.Revert(ctx, s.engine, args.SessionID, int(args.Index))
	if err != nil {
		return RevertResponse{}, fmt.Errorf("revert failed: %w", err)
	}
	return RevertResponse{
		SessionID:   sess.ID,
		Turn:        sess.Turn,
		Address:     sess.Address,
		Checkpoints: len(sess.Checkpoints),
	}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TreeURI, "Compiled story tree",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.engine.Cartridge())
		if err != nil {
			return nil, fmt.Errorf("failed to encode tree: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TreeURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
