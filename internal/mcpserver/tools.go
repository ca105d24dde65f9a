package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the seller risk MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolGetMarketplaceStats = mcp.NewTool("get_marketplace_stats",
	mcp.WithDescription(
		"Get the risk dashboard for a marketplace: order and seller counts, daily risk trend, "+
			"riskiest categories and sellers, a 0-100 health score, and active alerts. "+
			"Omit marketplace_id for the whole platform."),
	mcp.WithString("marketplace_id",
		mcp.Description("Marketplace to summarize (e.g. 'M001')")),
)

var ToolGetCategoryRisk = mcp.NewTool("get_category_risk",
	mcp.WithDescription(
		"Get the mean predicted return risk per product category, riskiest first."),
	mcp.WithString("marketplace_id",
		mcp.Description("Restrict to one marketplace (e.g. 'M001')")),
)

var ToolGetCategoryTrend = mcp.NewTool("get_category_trend",
	mcp.WithDescription(
		"Get daily mean risk series for the riskiest product categories. "+
			"Use category to pull a single category's series."),
	mcp.WithString("marketplace_id",
		mcp.Description("Restrict to one marketplace (e.g. 'M001')")),
	mcp.WithString("category",
		mcp.Description("Only return this category's series (e.g. 'Electronics')")),
	mcp.WithNumber("top_n",
		mcp.Description("How many of the riskiest categories to include (default 8)")),
)

var ToolListSellers = mcp.NewTool("list_sellers",
	mcp.WithDescription(
		"List sellers with their marketplace. Use this to find seller ids for the other tools."),
	mcp.WithString("marketplace_id",
		mcp.Description("Only list sellers in this marketplace (e.g. 'M001')")),
)

var ToolGetSellerTrend = mcp.NewTool("get_seller_trend",
	mcp.WithDescription(
		"Get a seller's daily mean risk score over time."),
	mcp.WithString("seller_id",
		mcp.Required(),
		mcp.Description("The seller's id (e.g. 'S001')")),
)

var ToolExplainSellerRisk = mcp.NewTool("explain_seller_risk",
	mcp.WithDescription(
		"Explain why a seller is risky: lists the triggered warning signs (high return rate, "+
			"heavy cash-on-delivery usage, low product ratings, consistently high predicted risk)."),
	mcp.WithString("seller_id",
		mcp.Required(),
		mcp.Description("The seller's id (e.g. 'S001')")),
)

var ToolGetSellerModelStats = mcp.NewTool("get_seller_model_stats",
	mcp.WithDescription(
		"Get the hold-out evaluation metrics (accuracy, precision, recall, F1) of the seller's return-risk model."),
	mcp.WithString("seller_id",
		mcp.Required(),
		mcp.Description("The seller's id (e.g. 'S001')")),
)

var ToolPredictOrderRisk = mcp.NewTool("predict_order_risk",
	mcp.WithDescription(
		"Score a single order for return risk with the seller's model. "+
			"Returns a 0-1 risk score and a High/Medium/Low label. The prediction is logged."),
	mcp.WithString("seller_id",
		mcp.Required(),
		mcp.Description("The seller's id (e.g. 'S001')")),
	mcp.WithObject("order",
		mcp.Required(),
		mcp.Description("Order attributes, e.g. {\"Product_Category\": \"Electronics\", \"Product_Price\": 199.9, "+
			"\"Payment_Method\": \"COD\", \"Customer_Type\": \"New\"}")),
)
