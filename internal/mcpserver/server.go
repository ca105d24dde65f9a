package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients during initialization.
var Version = "dev"

// NewMCPServer creates a configured MCP server with all seller risk tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("sellerrisk", Version)
	client := NewClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolGetMarketplaceStats, h.HandleGetMarketplaceStats)
	s.AddTool(ToolGetCategoryRisk, h.HandleGetCategoryRisk)
	s.AddTool(ToolGetCategoryTrend, h.HandleGetCategoryTrend)
	s.AddTool(ToolListSellers, h.HandleListSellers)
	s.AddTool(ToolGetSellerTrend, h.HandleGetSellerTrend)
	s.AddTool(ToolExplainSellerRisk, h.HandleExplainSellerRisk)
	s.AddTool(ToolGetSellerModelStats, h.HandleGetSellerModelStats)
	s.AddTool(ToolPredictOrderRisk, h.HandlePredictOrderRisk)

	return s
}
