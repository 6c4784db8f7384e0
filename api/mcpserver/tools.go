package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/services/index"
	"github.com/meghashyamc/docsearch/services/search"
	"github.com/meghashyamc/docsearch/validation"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602
	ErrorCodeInternalError     = -32603
	ErrorCodeSearchFailed      = -32001
	ErrorCodeRebuildInProgress = -32002
	ErrorCodeRebuildFailed     = -32003
)

const maxLimit = 100

func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		// every parameter is optional
		args = map[string]interface{}{}
	}

	query := getStringDefault(args, "query", "")
	if utf8.RuneCountInString(query) > validation.MaxQueryLength {
		return nil, newMCPError(ErrorCodeInvalidParams, "query is too long", map[string]interface{}{
			"param":      "query",
			"max_length": validation.MaxQueryLength,
		})
	}

	resourceType := db.ResourceType(getStringDefault(args, "resource_type", ""))
	if resourceType != "" && !resourceType.Valid() {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid resource_type", map[string]interface{}{
			"param":   "resource_type",
			"value":   resourceType,
			"allowed": resourceTypeNames(),
		})
	}

	sortKey := db.SortKey(getStringDefault(args, "sort", string(db.SortRelevance)))
	if !sortKey.Valid() {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid sort", map[string]interface{}{
			"param": "sort",
			"value": sortKey,
		})
	}

	page := getIntDefault(args, "page", 1)
	if page < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "page must be at least 1", map[string]interface{}{
			"param": "page",
			"value": page,
		})
	}

	limit := getIntDefault(args, "limit", 0)
	if limit < 0 || limit > maxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	resultPage, err := s.search.Search(ctx, search.Query{
		Text:         query,
		Subject:      getStringDefault(args, "subject", ""),
		Semester:     getStringDefault(args, "semester", ""),
		University:   getStringDefault(args, "university", ""),
		ResourceType: resourceType,
		ExcludeOwn:   getBoolDefault(args, "exclude_own", false),
		CallerID:     getStringDefault(args, "caller_id", ""),
		Sort:         sortKey,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		s.logger.Error("search tool failed", "query", query, "err", err.Error())
		return nil, newMCPError(ErrorCodeSearchFailed, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(resultPage)), nil
}

func (s *Server) handleSuggest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	partial, ok := args["partial"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "partial parameter is required", map[string]interface{}{
			"param":  "partial",
			"reason": "missing",
		})
	}

	suggestions, err := s.search.Suggest(ctx, partial)
	if err != nil {
		s.logger.Error("suggest tool failed", "partial", partial, "err", err.Error())
		return nil, newMCPError(ErrorCodeSearchFailed, "failed to get suggestions", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"suggestions": suggestions,
	})), nil
}

func (s *Server) handleRebuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	if getBoolDefault(args, "wait", false) {
		if err := s.index.Rebuild(ctx); err != nil {
			return nil, newMCPError(ErrorCodeRebuildFailed, "index rebuild failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return mcp.NewToolResultText(formatJSON(s.index.Stats())), nil
	}

	requestID, err := s.index.RequestRebuild()
	if err != nil {
		if errors.Is(err, index.ErrRebuildInProgress) {
			return nil, newMCPError(ErrorCodeRebuildInProgress, "a rebuild is already queued", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "could not queue index rebuild", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"queued": true,
		"id":     requestID,
	})), nil
}

func (s *Server) handleIndexStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(s.index.Stats())), nil
}

func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func formatJSON(data any) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
