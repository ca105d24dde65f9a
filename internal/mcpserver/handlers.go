package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbd888/sellerrisk/internal/validation"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *Client
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *Client) *Handlers {
	return &Handlers{client: client}
}

// marketplaceArg reads the optional marketplace_id argument.
func marketplaceArg(req mcp.CallToolRequest) (string, error) {
	id := req.GetString("marketplace_id", "")
	if errs := validation.Validate(validation.ValidID("marketplace_id", id)); len(errs) > 0 {
		return "", errs
	}
	return id, nil
}

// sellerArg reads the required seller_id argument.
func sellerArg(req mcp.CallToolRequest) (string, error) {
	id := strings.TrimSpace(req.GetString("seller_id", ""))
	errs := validation.Validate(
		validation.Required("seller_id", id),
		validation.ValidID("seller_id", id),
	)
	if len(errs) > 0 {
		return "", errs
	}
	return id, nil
}

// maxCategoryLength bounds the category filter forwarded to the API.
const maxCategoryLength = 200

// categoryArg reads the optional category argument. Over-long values are
// rejected rather than truncated into a different category name.
func categoryArg(req mcp.CallToolRequest) (string, error) {
	category := validation.SanitizeString(req.GetString("category", ""), validation.MaxStringLength)
	if errs := validation.Validate(validation.MaxLength("category", category, maxCategoryLength)); len(errs) > 0 {
		return "", errs
	}
	return category, nil
}

// HandleGetMarketplaceStats returns the marketplace dashboard.
func (h *Handlers) HandleGetMarketplaceStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	marketplaceID, err := marketplaceArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, err := h.client.MarketplaceStats(ctx, marketplaceID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get marketplace stats: %v", err)), nil
	}

	text, err := formatMarketplaceStats(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse marketplace stats: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetCategoryRisk returns the per-category mean risk.
func (h *Handlers) HandleGetCategoryRisk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	marketplaceID, err := marketplaceArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, err := h.client.CategoryRisk(ctx, marketplaceID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get category risk: %v", err)), nil
	}

	text, err := formatCategoryRisk(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse category risk: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetCategoryTrend returns the category risk series.
func (h *Handlers) HandleGetCategoryTrend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	marketplaceID, err := marketplaceArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := categoryArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topN := req.GetInt("top_n", 0)
	if topN < 0 {
		return mcp.NewToolResultError("top_n must be positive"), nil
	}

	raw, err := h.client.CategoryTrend(ctx, marketplaceID, category, topN)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get category trend: %v", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// HandleListSellers returns the seller directory.
func (h *Handlers) HandleListSellers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	marketplaceID, err := marketplaceArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, err := h.client.ListSellers(ctx, marketplaceID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list sellers: %v", err)), nil
	}

	text, err := formatSellerList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse sellers: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetSellerTrend returns a seller's daily risk.
func (h *Handlers) HandleGetSellerTrend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sellerID, err := sellerArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, err := h.client.SellerTrend(ctx, sellerID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get seller trend: %v", err)), nil
	}

	text, err := formatSellerTrend(sellerID, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse seller trend: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleExplainSellerRisk returns the plain-language risk explanation.
func (h *Handlers) HandleExplainSellerRisk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sellerID, err := sellerArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, err := h.client.SellerExplanation(ctx, sellerID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to explain seller risk: %v", err)), nil
	}

	text, err := formatExplanation(sellerID, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse explanation: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetSellerModelStats returns the seller model's evaluation metrics.
func (h *Handlers) HandleGetSellerModelStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sellerID, err := sellerArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, err := h.client.SellerModelStats(ctx, sellerID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get model stats: %v", err)), nil
	}

	text, err := formatModelStats(sellerID, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse model stats: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandlePredictOrderRisk scores one order.
func (h *Handlers) HandlePredictOrderRisk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sellerID, err := sellerArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	order, ok := req.GetArguments()["order"].(map[string]any)
	if !ok || len(order) == 0 {
		return mcp.NewToolResultError("order is required"), nil
	}

	raw, err := h.client.Predict(ctx, sellerID, order)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Prediction failed: %v", err)), nil
	}

	text, err := formatPrediction(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse prediction: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// --- Formatting helpers ---

func formatMarketplaceStats(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	orders, _ := getFloat(m, "total_orders")
	sellers, _ := getFloat(m, "total_sellers")
	health, _ := getFloat(m, "health_score")
	highOrders, _ := getFloat(m, "high_risk_orders")
	highRatio, _ := getFloat(m, "high_risk_ratio")
	maxRisk, _ := getFloat(m, "max_risk")

	var sb strings.Builder
	fmt.Fprintf(&sb, "Orders: %.0f | Sellers: %.0f\n", orders, sellers)
	fmt.Fprintf(&sb, "Health score: %.0f/100\n", health)
	fmt.Fprintf(&sb, "High-risk orders: %.0f (%.1f%%)\n", highOrders, highRatio*100)
	fmt.Fprintf(&sb, "Max risk: %.2f\n", maxRisk)

	if alerts := getList(m, "alerts"); len(alerts) > 0 {
		sb.WriteString("\nAlerts:\n")
		for _, a := range alerts {
			fmt.Fprintf(&sb, "- [%s] %s\n", getString(a, "type"), getString(a, "message"))
		}
	}

	if top := getList(m, "top_risky_sellers"); len(top) > 0 {
		sb.WriteString("\nRiskiest sellers:\n")
		for i, s := range top {
			score, _ := getFloat(s, "risk_score")
			fmt.Fprintf(&sb, "%d. %s (%.2f)\n", i+1, getString(s, "seller_id"), score)
		}
	}

	if cats := getList(m, "category_risk"); len(cats) > 0 {
		sb.WriteString("\nRiskiest categories:\n")
		for i, c := range cats {
			score, _ := getFloat(c, "risk_score")
			fmt.Fprintf(&sb, "%d. %s (%.2f)\n", i+1, getString(c, "Product_Category"), score)
		}
	}

	return sb.String(), nil
}

func formatCategoryRisk(raw json.RawMessage) (string, error) {
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "No scored orders found.", nil
	}

	var sb strings.Builder
	for i, item := range items {
		avg, _ := getFloat(item, "avg_risk")
		fmt.Fprintf(&sb, "%d. %s: %.3f\n", i+1, getString(item, "Product_Category"), avg)
	}
	return sb.String(), nil
}

func formatSellerList(raw json.RawMessage) (string, error) {
	var sellers []map[string]any
	if err := json.Unmarshal(raw, &sellers); err != nil {
		return "", err
	}
	if len(sellers) == 0 {
		return "No sellers found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d seller(s):\n\n", len(sellers))
	for _, s := range sellers {
		fmt.Fprintf(&sb, "- %s %s (%s)\n",
			getString(s, "seller_id"), getString(s, "seller_name"), getString(s, "marketplace_id"))
	}
	return sb.String(), nil
}

func formatSellerTrend(sellerID string, raw json.RawMessage) (string, error) {
	var points []map[string]any
	if err := json.Unmarshal(raw, &points); err != nil {
		return "", err
	}
	if len(points) == 0 {
		return fmt.Sprintf("No scored orders for seller %s.", sellerID), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Daily risk for %s:\n", sellerID)
	for _, p := range points {
		score, _ := getFloat(p, "risk_score")
		fmt.Fprintf(&sb, "%s  %.3f\n", getString(p, "date"), score)
	}
	return sb.String(), nil
}

func formatExplanation(sellerID string, raw json.RawMessage) (string, error) {
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return fmt.Sprintf("No predictions recorded for seller %s.", sellerID), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk explanation for %s:\n", sellerID)
	for _, l := range lines {
		fmt.Fprintf(&sb, "- %s\n", l)
	}
	return sb.String(), nil
}

func formatModelStats(sellerID string, raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Model metrics for %s:\n", sellerID)
	for _, k := range []string{"accuracy", "precision", "recall", "f1"} {
		v, _ := getFloat(m, k)
		fmt.Fprintf(&sb, "%s: %.3f\n", k, v)
	}
	return sb.String(), nil
}

func formatPrediction(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	score, _ := getFloat(m, "risk_score")

	var sb strings.Builder
	fmt.Fprintf(&sb, "Seller: %s\n", getString(m, "seller_id"))
	fmt.Fprintf(&sb, "Order: %s\n", getString(m, "Order_ID"))
	if mp := getString(m, "marketplace_id"); mp != "" {
		fmt.Fprintf(&sb, "Marketplace: %s\n", mp)
	}
	fmt.Fprintf(&sb, "Risk: %.3f (%s)\n", score, getString(m, "risk_label"))
	if available, ok := m["model_available"].(bool); ok && !available {
		sb.WriteString("Note: no trained model for this seller, a neutral score was returned.\n")
	}
	return sb.String(), nil
}

// formatJSON pretty-prints raw JSON.
func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// getFloat extracts a numeric value from a map.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// getList extracts a list of objects from a map.
func getList(m map[string]any, key string) []map[string]any {
	items, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
