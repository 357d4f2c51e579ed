package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/fable"
	httpAdapter "github.com/aretw0/fable/pkg/adapters/http"
	"github.com/aretw0/fable/pkg/adapters/mcp"
)

// ServeOptions configures the HTTP and MCP servers.
type ServeOptions struct {
	Source string
	Addr   string
	Watch  bool
}

// Serve exposes the story over HTTP until ctx is done.
func Serve(ctx context.Context, st *Stack, opts ServeOptions) error {
	engine, err := st.Engine(opts.Source)
	if err != nil {
		return err
	}

	srvOpts := []httpAdapter.Option{
		httpAdapter.WithLogger(st.Logger),
		httpAdapter.WithVersion(fable.Version),
	}
	if st.Metrics != nil {
		srvOpts = append(srvOpts, httpAdapter.WithMetrics(st.Metrics.Handler()))
	}
	api := httpAdapter.NewServer(engine, st.Sessions, srvOpts...)
	handler, err := api.Handler()
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	if opts.Watch {
		err := WatchReload(ctx, engine, st.Logger, func() { api.NotifyReload(engine.Name) })
		if err != nil {
			st.Logger.WarnContext(ctx, "hot reload unavailable", "err", err)
		}
	}

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		st.Logger.Info("fable server listening", "address", srv.Addr, "story", engine.Name)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			st.Logger.Error("graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		st.Logger.Info("fable server stopped")
		return nil
	}
}

// MCPOptions configures the MCP server.
type MCPOptions struct {
	Source    string
	Transport string
	Addr      string
	BaseURL   string
}

// ServeMCP exposes the story as MCP tools over stdio or SSE.
func ServeMCP(ctx context.Context, st *Stack, opts MCPOptions) error {
	engine, err := st.Engine(opts.Source)
	if err != nil {
		return err
	}
	srv := mcp.NewServer(engine, st.Sessions, fable.Version, st.Logger)

	switch opts.Transport {
	case "", "stdio":
		st.Logger.Info("MCP server starting (stdio)", "story", engine.Name)
		return srv.ServeStdio()
	case "sse":
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost" + opts.Addr
		}
		return srv.ServeSSE(ctx, opts.Addr, baseURL)
	default:
		return fmt.Errorf("unknown transport %q: supported are stdio and sse", opts.Transport)
	}
}
