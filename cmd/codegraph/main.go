package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"codegraph/internal/server"
	"codegraph/util"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println("codegraph", version)
		os.Exit(0)
	}

	// The workspace root is the git root when invoked from inside a repo,
	// falling back to the current directory outside one.
	root, err := util.FindGitRoot()
	if err != nil {
		log.Fatalf("find workspace root: %v", err)
	}

	storePath, err := server.DefaultStorePath(root)
	if err != nil {
		log.Fatalf("resolve store path: %v", err)
	}

	srv := server.New(root, storePath)

	if err := srv.MCPServer().Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("server err=%v", err)
	}
}
