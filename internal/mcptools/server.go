package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with the conversion tools registered.
func NewServer(svc *ConvertService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "ted2ocds",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert_notice",
		Description: "Convert an eForms notice (XML text or file path) into an OCDS release. Returns the release with per-converter outcomes, merge conflicts and coherence issues. The run is recorded for get_run_conflicts.",
	}, svc.ConvertNotice)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_converters",
		Description: "List the registered business-term converters in fold order. Later converters win scalar conflicts.",
	}, svc.ListConverters)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run_conflicts",
		Description: "Query recorded merge conflicts by run ID, path prefix or source converter.",
	}, svc.GetRunConflicts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List recorded conversion runs, newest first, with audit store statistics.",
	}, svc.ListRuns)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP tools over streamable HTTP at addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
