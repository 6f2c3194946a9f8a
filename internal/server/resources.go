package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const usageGuidelines = `# codegraph

codegraph indexes a workspace's JS/TS/Python/HCL source into a local graph
of symbols and edges (imports, calls, extends, implements) and answers
structural queries over it.

Call 'build' once to populate the graph, 'update' after any single file
changes, then query with 'find_callers', 'find_callees', 'file_impact',
'function_impact', 'module_map', or 'diff_impact'.
`

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "codegraph://usage-guidelines",
		Name:        "Usage Guidelines",
		Description: "System prompt and usage guidelines for the codegraph MCP server",
		MIMEType:    "text/markdown",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: "codegraph://usage-guidelines", MIMEType: "text/markdown", Text: usageGuidelines},
			},
		}, nil
	})

	schemaMap := buildSchemaMap()

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "codegraph://schemas/{tool_name}",
		Name:        "Tool Schema",
		Description: "JSON schema for the named tool's arguments",
		MIMEType:    "application/schema+json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		toolName := strings.TrimPrefix(uri, "codegraph://schemas/")
		schemaJSON, ok := schemaMap[toolName]
		if !ok {
			return nil, fmt.Errorf("unknown tool schema: %q", toolName)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: uri, MIMEType: "application/schema+json", Text: schemaJSON},
			},
		}, nil
	})
}

// buildSchemaMap derives a JSON schema per tool from its args struct.
func buildSchemaMap() map[string]string {
	m := make(map[string]string)
	addSchema[BuildArgs](m, "build")
	addSchema[UpdateArgs](m, "update")
	addSchema[FindCallersArgs](m, "find_callers")
	addSchema[FindCalleesArgs](m, "find_callees")
	addSchema[FileImpactArgs](m, "file_impact")
	addSchema[FunctionImpactArgs](m, "function_impact")
	addSchema[ModuleMapArgs](m, "module_map")
	addSchema[DiffImpactArgs](m, "diff_impact")
	return m
}

func addSchema[T any](m map[string]string, name string) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return
	}
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return
	}
	m[name] = string(schemaJSON)
}
