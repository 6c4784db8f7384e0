package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meghashyamc/docsearch/db"
)

func resourceTypeNames() []string {
	names := make([]string, 0, len(db.ResourceTypes))
	for _, resourceType := range db.ResourceTypes {
		names = append(names, string(resourceType))
	}
	return names
}

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Search approved study documents by title, description, subject and tags, with typo tolerance",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Free text; every word is matched as a prefix. Leave empty to list documents",
				},
				"subject": map[string]interface{}{
					"type":        "string",
					"description": "Case-insensitive substring of the subject",
				},
				"semester": map[string]interface{}{
					"type":        "string",
					"description": "Case-insensitive substring of the semester",
				},
				"university": map[string]interface{}{
					"type":        "string",
					"description": "Case-insensitive substring of the university",
				},
				"resource_type": map[string]interface{}{
					"type":        "string",
					"description": "Exact resource type",
					"enum":        resourceTypeNames(),
				},
				"sort": map[string]interface{}{
					"type":        "string",
					"description": "Result ordering",
					"enum":        []string{string(db.SortRelevance), string(db.SortRecent), string(db.SortPopular), string(db.SortDownloads)},
					"default":     string(db.SortRelevance),
				},
				"caller_id": map[string]interface{}{
					"type":        "string",
					"description": "Identity of the user searching, used by exclude_own",
				},
				"exclude_own": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, leave out documents uploaded by caller_id",
					"default":     false,
				},
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "1-based page number",
					"default":     1,
					"minimum":     1,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Results per page (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}

// suggestTool returns the tool definition for suggest
func suggestTool() mcp.Tool {
	return mcp.Tool{
		Name:        "suggest",
		Description: "Autocomplete a partial query with titles, subjects and tags of matching documents",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"partial": map[string]interface{}{
					"type":        "string",
					"description": "Partial query, at least two characters",
				},
			},
			Required: []string{"partial"},
		},
	}
}

// rebuildIndexTool returns the tool definition for rebuild_index
func rebuildIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rebuild_index",
		Description: "Rebuild the search index from the approved documents in the store",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, rebuild now and return the new index stats; otherwise queue a rebuild and return its request id",
					"default":     false,
				},
			},
		},
	}
}

// indexStatsTool returns the tool definition for index_stats
func indexStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_stats",
		Description: "Report the generation, size and build time of the index serving searches, and the last index saved to the metadata store",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
