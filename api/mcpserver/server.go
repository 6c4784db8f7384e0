// Package mcpserver exposes document search over the Model Context Protocol on stdio.
package mcpserver

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/meghashyamc/docsearch/logger"
	"github.com/meghashyamc/docsearch/services/index"
	"github.com/meghashyamc/docsearch/services/search"
)

const (
	ServerName    = "docsearch"
	ServerVersion = "1.0.0"
)

type Server struct {
	mcp    *server.MCPServer
	logger logger.Logger
	search *search.Service
	index  *index.Service
}

func New(logger logger.Logger, searchService *search.Service, indexService *index.Service) *Server {
	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		logger: logger,
		search: searchService,
		index:  indexService,
	}
	s.registerTools()

	return s
}

// Serve answers tool calls on stdio until the client disconnects or ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	return s.serve(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("serving mcp on stdio", "name", ServerName, "version", ServerVersion)

	if err := server.NewStdioServer(s.mcp).Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp server stopped with error", "err", err.Error())
		return err
	}

	s.logger.Info("mcp server stopped")
	return nil
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(suggestTool(), s.handleSuggest)
	s.mcp.AddTool(rebuildIndexTool(), s.handleRebuildIndex)
	s.mcp.AddTool(indexStatsTool(), s.handleIndexStats)
}
