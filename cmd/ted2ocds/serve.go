package main

import (
	"github.com/spf13/cobra"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/audit"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/logger"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/mcptools"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		httpAddr   string
		auditDB    string
		ocidPrefix string
	)

	c := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the conversion tools over MCP (stdio unless --http is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			backend, path := a.auditBackend(auditDB)
			store, err := audit.Open(ctx, backend, path)
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := mcptools.NewConvertService(a.pipelineConfig(0), a.registry(ocidPrefix), store)
			if err != nil {
				return err
			}
			server := mcptools.NewServer(svc)

			if httpAddr != "" {
				logger.L().Info("mcp.serve", "transport", "http", "addr", httpAddr, "audit", backend)
				return mcptools.RunHTTP(ctx, server, httpAddr)
			}
			logger.L().Info("mcp.serve", "transport", "stdio", "audit", backend)
			return mcptools.RunStdio(ctx, server)
		},
	}
	c.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	c.Flags().StringVar(&auditDB, "audit-db", "", "record runs in this kuzu database (default: config or in-memory)")
	c.Flags().StringVar(&ocidPrefix, "ocid-prefix", "", "OCID prefix for converted releases")
	return c
}
