package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"codegraph/internal/pipeline"
	"codegraph/internal/query"
	"codegraph/internal/store"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func nodeID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed node id %q: %w", id, err)
	}
	return n, nil
}

// Argument structs. jsonschema tags drive the descriptions resources.go
// exposes through codegraph://schemas/{tool_name}.

type BuildArgs struct{}

type UpdateArgs struct {
	FilePath string `json:"file_path" jsonschema:"required,description:Workspace-relative path of the file that changed"`
}

type FindCallersArgs struct {
	SymbolName   string `json:"symbol_name" jsonschema:"required,description:Substring of the symbol name to find callers of"`
	ExcludeTests bool   `json:"exclude_tests" jsonschema:"description:Exclude matches and callers whose file matches the test-file pattern"`
}

type FindCalleesArgs struct {
	SymbolName   string `json:"symbol_name" jsonschema:"required,description:Substring of the symbol name to find callees of"`
	ExcludeTests bool   `json:"exclude_tests" jsonschema:"description:Exclude matches and callees whose file matches the test-file pattern"`
}

type FileImpactArgs struct {
	FilePath     string `json:"file_path" jsonschema:"required,description:Workspace-relative path of the file to compute import-impact for"`
	ExcludeTests bool   `json:"exclude_tests" jsonschema:"description:Exclude importers whose file matches the test-file pattern"`
}

type FunctionImpactArgs struct {
	SymbolName   string `json:"symbol_name" jsonschema:"required,description:Exact name of the function/method to compute call-impact for"`
	Depth        int    `json:"depth" jsonschema:"description:Maximum BFS depth over reverse calls edges (default 1)"`
	ExcludeTests bool   `json:"exclude_tests" jsonschema:"description:Exclude callers whose file matches the test-file pattern"`
}

type ModuleMapArgs struct {
	Limit int `json:"limit" jsonschema:"description:Maximum number of ranked files to return (default: all)"`
}

type LineRangeArg struct {
	Start int `json:"start" jsonschema:"required,description:First affected line, 1-indexed"`
	End   int `json:"end" jsonschema:"required,description:Last affected line, 1-indexed, inclusive"`
}

type DiffImpactArgs struct {
	FilePath     string         `json:"file_path" jsonschema:"required,description:Workspace-relative path of the changed file"`
	Ranges       []LineRangeArg `json:"ranges" jsonschema:"required,description:Line ranges touched by the diff hunk"`
	Depth        int            `json:"depth" jsonschema:"description:Maximum BFS depth over reverse calls edges (default 3)"`
	ExcludeTests bool           `json:"exclude_tests" jsonschema:"description:Exclude callers whose file matches the test-file pattern"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "build",
		Description: "Runs a full rebuild of the code graph over the workspace",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args BuildArgs) (*mcp.CallToolResult, any, error) {
		s.buildMu.Lock()
		defer s.buildMu.Unlock()

		res, err := pipeline.Build(ctx, s.workspaceRoot, s.storePath)
		if err != nil {
			return errorResult(fmt.Sprintf("build failed: %v", err)), nil, nil
		}
		return textResult(formatResult(res)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "update",
		Description: "Applies the incremental-delta lifecycle for one changed file",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args UpdateArgs) (*mcp.CallToolResult, any, error) {
		s.buildMu.Lock()
		defer s.buildMu.Unlock()

		res, err := pipeline.Update(ctx, s.workspaceRoot, s.storePath, args.FilePath)
		if err != nil {
			return errorResult(fmt.Sprintf("update failed: %v", err)), nil, nil
		}
		return textResult(formatResult(res)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "find_callers",
		Description: "Finds callers of every symbol whose name contains the given substring, including ancestor-method callers for overridden methods",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FindCallersArgs) (*mcp.CallToolResult, any, error) {
		st, err := s.openStore()
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		defer st.Close()

		matches, err := query.SymbolLookup(ctx, st, args.SymbolName, args.ExcludeTests)
		if err != nil {
			return errorResult(fmt.Sprintf("query failed: %v", err)), nil, nil
		}
		return jsonResult(toCallerView(matches))
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "find_callees",
		Description: "Finds callees of every symbol whose name contains the given substring",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FindCalleesArgs) (*mcp.CallToolResult, any, error) {
		st, err := s.openStore()
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		defer st.Close()

		matches, err := query.SymbolLookup(ctx, st, args.SymbolName, args.ExcludeTests)
		if err != nil {
			return errorResult(fmt.Sprintf("query failed: %v", err)), nil, nil
		}
		return jsonResult(toCalleeView(matches))
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "file_impact",
		Description: "Breadth-first reverse traversal over imports/imports-type edges, level-annotated",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FileImpactArgs) (*mcp.CallToolResult, any, error) {
		st, err := s.openStore()
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		defer st.Close()

		levels, err := query.FileImpact(ctx, st, args.FilePath, args.ExcludeTests)
		if err != nil {
			return errorResult(fmt.Sprintf("query failed: %v", err)), nil, nil
		}
		return jsonResult(levels)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "function_impact",
		Description: "Depth-bounded BFS reverse traversal over calls edges",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FunctionImpactArgs) (*mcp.CallToolResult, any, error) {
		st, err := s.openStore()
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		defer st.Close()

		nodes, err := st.GetSymbolLocation(ctx, args.SymbolName)
		if err != nil {
			return errorResult(fmt.Sprintf("query failed: %v", err)), nil, nil
		}
		if len(nodes) == 0 {
			return textResult("symbol not found"), nil, nil
		}

		id, err := nodeID(nodes[0].ID)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		levels, err := query.FunctionImpact(ctx, st, id, args.Depth, args.ExcludeTests)
		if err != nil {
			return errorResult(fmt.Sprintf("query failed: %v", err)), nil, nil
		}
		return jsonResult(levels)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "module_map",
		Description: "Ranks file nodes by inbound edge count, excluding test files",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ModuleMapArgs) (*mcp.CallToolResult, any, error) {
		st, err := s.openStore()
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		defer st.Close()

		ranks, err := query.ModuleMap(ctx, st)
		if err != nil {
			return errorResult(fmt.Sprintf("query failed: %v", err)), nil, nil
		}
		if args.Limit > 0 && args.Limit < len(ranks) {
			ranks = ranks[:args.Limit]
		}
		return jsonResult(ranks)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "diff_impact",
		Description: "Finds definitions overlapping the given line ranges, then reverse-traverses calls up to a depth bound",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DiffImpactArgs) (*mcp.CallToolResult, any, error) {
		st, err := s.openStore()
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		defer st.Close()

		ranges := make([]query.LineRange, len(args.Ranges))
		for i, r := range args.Ranges {
			ranges[i] = query.LineRange{Start: r.Start, End: r.End}
		}
		result, err := query.DiffImpact(ctx, st, args.FilePath, ranges, args.Depth, args.ExcludeTests)
		if err != nil {
			return errorResult(fmt.Sprintf("query failed: %v", err)), nil, nil
		}
		return jsonResult(result)
	})
}

func (s *Server) openStore() (*store.Store, error) {
	st, err := store.OpenReadOnly(s.storePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func formatResult(res pipeline.Result) string {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Sprintf("nodes=%d edges=%d warnings=%d", res.NodesWritten, res.EdgesWritten, len(res.Warnings))
	}
	return string(b)
}

func jsonResult(data any) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("json marshal: %v", err)), nil, nil
	}
	return textResult(string(b)), nil, nil
}

type callerView struct {
	Symbol  string             `json:"symbol"`
	Kind    string             `json:"kind"`
	File    string             `json:"file"`
	Callers []query.CallerEdge `json:"callers"`
}

func toCallerView(matches []query.SymbolMatch) []callerView {
	out := make([]callerView, len(matches))
	for i, m := range matches {
		out[i] = callerView{Symbol: m.Node.Name, Kind: m.Node.Kind, File: m.Node.FilePath, Callers: m.Callers}
	}
	return out
}

type calleeView struct {
	Symbol  string          `json:"symbol"`
	Kind    string          `json:"kind"`
	File    string          `json:"file"`
	Callees []store.EdgeRow `json:"callees"`
}

func toCalleeView(matches []query.SymbolMatch) []calleeView {
	out := make([]calleeView, len(matches))
	for i, m := range matches {
		out[i] = calleeView{Symbol: m.Node.Name, Kind: m.Node.Kind, File: m.Node.FilePath, Callees: m.Callees}
	}
	return out
}
