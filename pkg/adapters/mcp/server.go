package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/aretw0/ternlab"
	"github.com/aretw0/ternlab/internal/logging"
	"github.com/aretw0/ternlab/internal/presentation/tui"
	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/lab"
	"github.com/aretw0/ternlab/pkg/snapshot"
	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Lab defines the grid service operations exposed as MCP tools.
type Lab interface {
	Grid(ctx context.Context) domain.GridView
	Metrics(ctx context.Context) domain.MetricsReport
	Thresholds(ctx context.Context) domain.Thresholds
	Export(ctx context.Context) *domain.Snapshot

	SetCell(ctx context.Context, x, y, value int) error
	StepN(ctx context.Context, k int) (domain.GridView, error)
	Reset(ctx context.Context) error
	Resize(ctx context.Context, n int) error
	Seed(ctx context.Context, mode string, rngSeed *int64) (domain.GridView, error)
	SetThresholds(ctx context.Context, pos, neg int) (domain.Thresholds, error)
	ImportDocument(ctx context.Context, doc *snapshot.Document) error
	RunExperiment(ctx context.Context, name string, rngSeed *int64) (domain.GridView, error)
}

var _ Lab = (*lab.Lab)(nil)

// Server wraps the Lab and exposes it as an MCP Server.
type Server struct {
	lab       Lab
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. A nil logger discards output.
func NewServer(l Lab, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		lab:       l,
		logger:    logger,
		mcpServer: server.NewMCPServer("ternlab-mcp", ternlab.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP endpoints (/sse and /message) on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	r := chi.NewRouter()
	r.Handle("/sse", sseServer.SSEHandler())
	r.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{Addr: addr, Handler: r}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down SSE server: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_grid",
		mcp.WithDescription("Get the current grid, its metrics and thresholds. Cells are -1, 0 or 1, indexed grid[y][x]."),
	), s.handleGetGrid)

	s.mcpServer.AddTool(mcp.NewTool("render_grid",
		mcp.WithDescription("Render the current grid as text using ⊕ for +1, ⊖ for -1 and · for neutral."),
	), s.handleRenderGrid)

	s.mcpServer.AddTool(mcp.NewTool("get_metrics",
		mcp.WithDescription("Get counts, entropy and the recent entropy history."),
	), s.handleGetMetrics)

	s.mcpServer.AddTool(mcp.NewTool("step",
		mcp.WithDescription("Advance the simulation by one or more generations."),
		mcp.WithNumber("count", mcp.Description("Number of generations (1-10000, default 1)")),
	), s.handleStep)

	s.mcpServer.AddTool(mcp.NewTool("set_cell",
		mcp.WithDescription("Set one cell. x is the column, y is the row."),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Column index")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Row index")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Cell value: -1, 0 or 1")),
	), s.handleSetCell)

	s.mcpServer.AddTool(mcp.NewTool("seed",
		mcp.WithDescription("Fill the grid with a seed pattern and restart at step 0."),
		mcp.WithString("mode", mcp.Required(), mcp.Description("Seed mode: chaos or genesis")),
		mcp.WithNumber("rng_seed", mcp.Description("Optional seed for a reproducible chaos draw")),
	), s.handleSeed)

	s.mcpServer.AddTool(mcp.NewTool("reset",
		mcp.WithDescription("Clear the grid to neutral and restore the default thresholds."),
	), s.handleReset)

	s.mcpServer.AddTool(mcp.NewTool("set_size",
		mcp.WithDescription("Replace the grid with an empty n x n grid."),
		mcp.WithNumber("n", mcp.Required(), mcp.Description("Grid dimension")),
	), s.handleSetSize)

	s.mcpServer.AddTool(mcp.NewTool("set_thresholds",
		mcp.WithDescription("Set the neighbor thresholds, each in [1, 8]."),
		mcp.WithNumber("pos_threshold", mcp.Required(), mcp.Description("Positive neighbors needed to become +1")),
		mcp.WithNumber("neg_threshold", mcp.Required(), mcp.Description("Negative neighbors needed to become -1")),
	), s.handleSetThresholds)

	s.mcpServer.AddTool(mcp.NewTool("run_experiment",
		mcp.WithDescription("Apply a named preset (thresholds plus seed)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Preset name, e.g. chaos-3-3")),
		mcp.WithNumber("rng_seed", mcp.Description("Optional seed for a reproducible chaos draw")),
	), s.handleRunExperiment)

	s.mcpServer.AddTool(mcp.NewTool("export",
		mcp.WithDescription("Export the full state as a snapshot document."),
	), s.handleExport)

	s.mcpServer.AddTool(mcp.NewTool("import",
		mcp.WithDescription("Replace the state with a snapshot document previously produced by export."),
		mcp.WithString("snapshot", mcp.Required(), mcp.Description("Snapshot JSON")),
	), s.handleImport)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("ternlab://grid", "Current Grid Snapshot",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.lab.Export(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "ternlab://grid",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

// --- Handlers ---

func (s *Server) handleGetGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.lab.Grid(ctx))
}

func (s *Server) handleRenderGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view := s.lab.Grid(ctx)
	text := fmt.Sprintf("step %d, entropy %.4f bits\n%s", view.Metrics.Step, view.Metrics.Entropy, tui.PlainGrid(view.Grid))
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleGetMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.lab.Metrics(ctx))
}

func (s *Server) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	count, present, err := intArg(args, "count")
	if err != nil {
		return s.toolError("step", err), nil
	}
	if !present {
		count = 1
	}
	view, err := s.lab.StepN(ctx, count)
	if err != nil {
		return s.toolError("step", err), nil
	}
	return jsonResult(view)
}

func (s *Server) handleSetCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	x, err := requireInt(args, "x")
	if err != nil {
		return s.toolError("set_cell", err), nil
	}
	y, err := requireInt(args, "y")
	if err != nil {
		return s.toolError("set_cell", err), nil
	}
	v, err := requireInt(args, "value")
	if err != nil {
		return s.toolError("set_cell", err), nil
	}
	if err := s.lab.SetCell(ctx, x, y, v); err != nil {
		return s.toolError("set_cell", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("cell (%d, %d) set to %d", x, y, v)), nil
}

func (s *Server) handleSeed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	mode, _ := args["mode"].(string)
	rngSeed, err := optionalSeed(args)
	if err != nil {
		return s.toolError("seed", err), nil
	}
	view, err := s.lab.Seed(ctx, mode, rngSeed)
	if err != nil {
		return s.toolError("seed", err), nil
	}
	return jsonResult(view)
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.lab.Reset(ctx); err != nil {
		return s.toolError("reset", err), nil
	}
	return mcp.NewToolResultText("grid reset"), nil
}

func (s *Server) handleSetSize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := requireInt(request.GetArguments(), "n")
	if err != nil {
		return s.toolError("set_size", fmt.Errorf("%w: %v", domain.ErrInvalidSize, err)), nil
	}
	if err := s.lab.Resize(ctx, n); err != nil {
		return s.toolError("set_size", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("grid resized to %dx%d", n, n)), nil
}

func (s *Server) handleSetThresholds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	pos, err := requireInt(args, "pos_threshold")
	if err != nil {
		return s.toolError("set_thresholds", err), nil
	}
	neg, err := requireInt(args, "neg_threshold")
	if err != nil {
		return s.toolError("set_thresholds", err), nil
	}
	t, err := s.lab.SetThresholds(ctx, pos, neg)
	if err != nil {
		return s.toolError("set_thresholds", err), nil
	}
	return jsonResult(t)
}

func (s *Server) handleRunExperiment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	name, _ := args["name"].(string)
	rngSeed, err := optionalSeed(args)
	if err != nil {
		return s.toolError("run_experiment", err), nil
	}
	view, err := s.lab.RunExperiment(ctx, name, rngSeed)
	if err != nil {
		return s.toolError("run_experiment", err), nil
	}
	return jsonResult(view)
}

func (s *Server) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.lab.Export(ctx))
}

func (s *Server) handleImport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, _ := request.GetArguments()["snapshot"].(string)
	doc, err := snapshot.Decode([]byte(raw))
	if err != nil {
		return s.toolError("import", err), nil
	}
	if err := s.lab.ImportDocument(ctx, doc); err != nil {
		return s.toolError("import", err), nil
	}
	return mcp.NewToolResultText("snapshot imported"), nil
}

// --- Helpers ---

func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("MCP tool rejected", "tool", tool, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", domain.ErrorKind(err), err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// intArg reads an integral number argument. JSON numbers arrive as float64.
func intArg(args map[string]any, key string) (int, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, true, fmt.Errorf("%w: %s must be an integer, got %v", domain.ErrInvalidValue, key, v)
		}
		return int(v), true, nil
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, true, fmt.Errorf("%w: %s must be an integer, got %v", domain.ErrInvalidValue, key, v)
		}
		return int(n), true, nil
	}
	return 0, true, fmt.Errorf("%w: %s must be a number, got %T", domain.ErrInvalidValue, key, raw)
}

func requireInt(args map[string]any, key string) (int, error) {
	v, present, err := intArg(args, key)
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidValue, key)
	}
	return v, nil
}

func optionalSeed(args map[string]any) (*int64, error) {
	v, present, err := intArg(args, "rng_seed")
	if err != nil || !present {
		return nil, err
	}
	seed := int64(v)
	return &seed, nil
}
