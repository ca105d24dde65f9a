package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the seller risk API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// Client is a pure HTTP client for the seller risk API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new client for the seller risk API.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

func marketplaceQuery(marketplaceID string) url.Values {
	q := url.Values{}
	if marketplaceID != "" {
		q.Set("marketplace_id", marketplaceID)
	}
	return q
}

func sellerQuery(sellerID string) url.Values {
	return url.Values{"seller_id": []string{sellerID}}
}

// MarketplaceStats returns the marketplace dashboard summary.
func (c *Client) MarketplaceStats(ctx context.Context, marketplaceID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/marketplace_stats", marketplaceQuery(marketplaceID), nil)
}

// CategoryRisk returns the mean risk per product category.
func (c *Client) CategoryRisk(ctx context.Context, marketplaceID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/marketplace_category_risk", marketplaceQuery(marketplaceID), nil)
}

// CategoryTrend returns daily risk series for the riskiest categories.
// A zero topN leaves the server default in place.
func (c *Client) CategoryTrend(ctx context.Context, marketplaceID, category string, topN int) (json.RawMessage, error) {
	q := marketplaceQuery(marketplaceID)
	if category != "" {
		q.Set("category", category)
	}
	if topN > 0 {
		q.Set("top_n", strconv.Itoa(topN))
	}
	return c.doRequest(ctx, http.MethodGet, "/marketplace_category_trend", q, nil)
}

// ListSellers returns the seller directory.
func (c *Client) ListSellers(ctx context.Context, marketplaceID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/sellers", marketplaceQuery(marketplaceID), nil)
}

// SellerTrend returns the seller's daily mean risk.
func (c *Client) SellerTrend(ctx context.Context, sellerID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/seller_trend", sellerQuery(sellerID), nil)
}

// SellerExplanation returns the seller's risk explanation lines.
func (c *Client) SellerExplanation(ctx context.Context, sellerID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/seller_explanation", sellerQuery(sellerID), nil)
}

// SellerModelStats returns the evaluation metrics of the seller's model.
func (c *Client) SellerModelStats(ctx context.Context, sellerID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/seller_model_stats", sellerQuery(sellerID), nil)
}

// Predict scores a single order for a seller.
func (c *Client) Predict(ctx context.Context, sellerID string, order map[string]any) (json.RawMessage, error) {
	body := map[string]any{
		"seller_id": sellerID,
		"order":     order,
	}
	return c.doRequest(ctx, http.MethodPost, "/predict", nil, body)
}
