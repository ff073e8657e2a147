package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arolang/aro/internal/devtools/mcpserver"
	"github.com/arolang/aro/internal/openapi"
)

func newMCPCmd() *cobra.Command {
	var (
		programPath string
		openapiPath string
		transport   string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve compiler diagnostics as MCP tools over stdio",
		Long: `mcp loads an analyzed program (and optionally an OpenAPI document) and
exposes the compiler's diagnostic operations as MCP tools: constant
folding, route matching, payload validation, and event-chain cycle
detection. Editors and AI clients connect over stdio JSON-RPC.

Routing and schema tools answer with an error unless --openapi is
given.`,
		Example: `  aro mcp --program analyzed.json
  aro mcp --program analyzed.json --openapi openapi.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd, programPath, openapiPath, transport)
		},
	}

	cmd.Flags().StringVar(&programPath, "program", "", "Path to the analyzed program JSON (required)")
	cmd.Flags().StringVar(&openapiPath, "openapi", "", "Path to an OpenAPI 3.x document to back the routing and schema tools")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")
	_ = cmd.MarkFlagRequired("program")

	return cmd
}

func runMCP(cmd *cobra.Command, programPath, openapiPath, transport string) error {
	program, err := loadProgram(programPath)
	if err != nil {
		return err
	}

	var doc *openapi.Document
	if openapiPath != "" {
		raw, err := os.ReadFile(openapiPath)
		if err != nil {
			return fmt.Errorf("read openapi document: %w", err)
		}
		doc, err = openapi.ParseDocument(raw)
		if err != nil {
			return fmt.Errorf("parse openapi document: %w", err)
		}
	}

	server := mcpserver.NewServer(program, doc)
	return server.Serve(cmd.Context(), transport)
}
