// Package insights exposes the read endpoints of the seller risk dashboard
// and the single-order prediction endpoint.
package insights

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/mbd888/sellerrisk/internal/analytics"
	"github.com/mbd888/sellerrisk/internal/dataset"
	"github.com/mbd888/sellerrisk/internal/logging"
	"github.com/mbd888/sellerrisk/internal/metrics"
	"github.com/mbd888/sellerrisk/internal/model"
	"github.com/mbd888/sellerrisk/internal/scoring"
	"github.com/mbd888/sellerrisk/internal/traces"
)

// StatsSource loads a seller's model evaluation stats.
type StatsSource interface {
	LoadStats(ctx context.Context, sellerID string) (*model.Stats, error)
}

// Handler provides HTTP endpoints for marketplace and seller insights.
type Handler struct {
	tables    dataset.Store
	engine    *analytics.Engine
	stats     StatsSource
	predictor *scoring.Predictor
}

// NewHandler creates a new insights handler
func NewHandler(tables dataset.Store, engine *analytics.Engine, stats StatsSource, predictor *scoring.Predictor) *Handler {
	return &Handler{tables: tables, engine: engine, stats: stats, predictor: predictor}
}

// RegisterRoutes sets up insight routes. predictMW runs in front of
// POST /predict only.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, predictMW ...gin.HandlerFunc) {
	r.GET("/marketplace_insights", h.MarketplaceInsights)
	r.GET("/marketplace_stats", h.MarketplaceStats)
	r.GET("/marketplace_category_risk", h.CategoryRisk)
	r.GET("/marketplace_category_trend", h.CategoryTrend)
	r.GET("/sellers", h.ListSellers)
	r.GET("/seller_orders", h.SellerOrders)
	r.GET("/seller_trend", h.SellerTrend)
	r.GET("/seller_model_stats", h.SellerModelStats)
	r.GET("/seller_explanation", h.SellerExplanation)
	r.POST("/predict", append(predictMW, h.Predict)...)
}

// OrderView is the JSON rendering of an order row. A null timestamp renders
// as "".
type OrderView struct {
	OrderID            string  `json:"Order_ID"`
	ProductCategory    string  `json:"Product_Category"`
	ProductPrice       float64 `json:"Product_Price"`
	DiscountApplied    float64 `json:"Discount_Applied"`
	DeliveryTimeDays   float64 `json:"Delivery_Time_Days"`
	CustomerType       string  `json:"Customer_Type"`
	PaymentMethod      string  `json:"Payment_Method"`
	CustomerReturnRate float64 `json:"Customer_Return_Rate"`
	ProductRating      float64 `json:"Product_Rating"`
	Returned           int     `json:"Returned"`
	SellerID           string  `json:"seller_id"`
	MarketplaceID      string  `json:"marketplace_id"`
	OrderTimestamp     string  `json:"order_timestamp"`
}

func viewOrder(o dataset.Order) OrderView {
	return OrderView{
		OrderID:            o.OrderID,
		ProductCategory:    o.ProductCategory,
		ProductPrice:       o.ProductPrice,
		DiscountApplied:    o.DiscountApplied,
		DeliveryTimeDays:   o.DeliveryTimeDays,
		CustomerType:       o.CustomerType,
		PaymentMethod:      o.PaymentMethod,
		CustomerReturnRate: o.CustomerReturnRate,
		ProductRating:      o.ProductRating,
		Returned:           o.Returned,
		SellerID:           o.SellerID,
		MarketplaceID:      o.MarketplaceID,
		OrderTimestamp:     dataset.FormatTimestamp(o.OrderTimestamp),
	}
}

// begin opens a span and an aggregation timer for op. The returned func
// ends both.
func begin(c *gin.Context, op string) (context.Context, trace.Span, func()) {
	ctx, span := traces.StartSpan(c.Request.Context(), "insights."+op)
	done := metrics.ObserveAggregation(op)
	return ctx, span, func() {
		done()
		span.End()
	}
}

func (h *Handler) loadTables(ctx context.Context, c *gin.Context, span trace.Span) (*dataset.Tables, bool) {
	tables, err := dataset.LoadAll(ctx, h.tables)
	if err != nil {
		storageError(ctx, c, span, err)
		return nil, false
	}
	metrics.DatasetRows.WithLabelValues("orders").Set(float64(len(tables.Orders)))
	metrics.DatasetRows.WithLabelValues("predictions").Set(float64(len(tables.Predictions)))
	span.SetAttributes(traces.Rows(len(tables.Orders) + len(tables.Predictions)))
	return tables, true
}

func (h *Handler) loadSellers(ctx context.Context, c *gin.Context, span trace.Span) ([]dataset.Seller, bool) {
	sellers, err := h.tables.LoadSellers(ctx)
	if err != nil {
		storageError(ctx, c, span, err)
		return nil, false
	}
	metrics.DatasetRows.WithLabelValues("sellers").Set(float64(len(sellers)))
	return sellers, true
}

func storageError(ctx context.Context, c *gin.Context, span trace.Span, err error) {
	traces.RecordError(span, err)
	logging.L(ctx).Error("failed to load tables", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "storage_unavailable",
		"message": "Could not read the data tables",
	})
}

// MarketplaceInsights handles GET /marketplace_insights
func (h *Handler) MarketplaceInsights(c *gin.Context) {
	ctx, span, end := begin(c, "marketplace_insights")
	defer end()
	marketplaceID := c.Query("marketplace_id")

	orders, err := h.tables.LoadOrders(ctx)
	if err != nil {
		storageError(ctx, c, span, err)
		return
	}
	sellers, ok := h.loadSellers(ctx, c, span)
	if !ok {
		return
	}

	distinct := make(map[string]struct{})
	for _, s := range dataset.FilterSellers(sellers, marketplaceID) {
		distinct[s.SellerID] = struct{}{}
	}
	c.JSON(http.StatusOK, gin.H{
		"total_orders":  len(dataset.FilterOrders(orders, marketplaceID, "")),
		"total_sellers": len(distinct),
	})
}

// MarketplaceStats handles GET /marketplace_stats
func (h *Handler) MarketplaceStats(c *gin.Context) {
	ctx, span, end := begin(c, "marketplace_stats")
	defer end()

	tables, ok := h.loadTables(ctx, c, span)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.engine.MarketplaceStats(tables.Orders, tables.Predictions, c.Query("marketplace_id")))
}

// CategoryRisk handles GET /marketplace_category_risk
func (h *Handler) CategoryRisk(c *gin.Context) {
	ctx, span, end := begin(c, "category_risk")
	defer end()

	tables, ok := h.loadTables(ctx, c, span)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.engine.CategoryRisk(tables.Orders, tables.Predictions, c.Query("marketplace_id")))
}

// CategoryTrend handles GET /marketplace_category_trend. With a category
// query parameter only that category's series is returned.
func (h *Handler) CategoryTrend(c *gin.Context) {
	ctx, span, end := begin(c, "category_trend")
	defer end()

	tables, ok := h.loadTables(ctx, c, span)
	if !ok {
		return
	}
	topN, _ := strconv.Atoi(c.Query("top_n"))
	trend := h.engine.CategoryTrend(tables.Orders, tables.Predictions, c.Query("marketplace_id"), topN)

	category, filtered := c.GetQuery("category")
	if !filtered || category == "" {
		if trend == nil {
			c.JSON(http.StatusOK, []any{})
			return
		}
		c.JSON(http.StatusOK, trend)
		return
	}
	if trend == nil {
		trend = &analytics.CategoryTrend{Series: []analytics.CategorySeries{}, TopCategories: []string{}}
	}
	matching := []analytics.CategorySeries{}
	for _, s := range trend.Series {
		if s.Category == category {
			matching = append(matching, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"series":             matching,
		"requested_category": category,
		"top_categories":     trend.TopCategories,
	})
}

// ListSellers handles GET /sellers
func (h *Handler) ListSellers(c *gin.Context) {
	ctx, span, end := begin(c, "sellers")
	defer end()

	sellers, ok := h.loadSellers(ctx, c, span)
	if !ok {
		return
	}
	out := dataset.FilterSellers(sellers, c.Query("marketplace_id"))
	if out == nil {
		out = []dataset.Seller{}
	}
	c.JSON(http.StatusOK, out)
}

// SellerOrders handles GET /seller_orders. Orders are newest first with
// undated orders last.
func (h *Handler) SellerOrders(c *gin.Context) {
	ctx, span, end := begin(c, "seller_orders")
	defer end()
	sellerID := c.Query("seller_id")
	if sellerID == "" {
		c.JSON(http.StatusOK, []OrderView{})
		return
	}
	span.SetAttributes(traces.SellerID(sellerID))

	orders, err := h.tables.LoadOrders(ctx)
	if err != nil {
		storageError(ctx, c, span, err)
		return
	}
	mine := dataset.FilterOrders(orders, "", sellerID)
	sort.SliceStable(mine, func(i, j int) bool {
		a, b := mine[i].OrderTimestamp, mine[j].OrderTimestamp
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b)
	})

	out := make([]OrderView, 0, len(mine))
	for _, o := range mine {
		out = append(out, viewOrder(o))
	}
	c.JSON(http.StatusOK, out)
}

// SellerTrend handles GET /seller_trend
func (h *Handler) SellerTrend(c *gin.Context) {
	ctx, span, end := begin(c, "seller_trend")
	defer end()
	sellerID := c.Query("seller_id")
	if sellerID == "" {
		c.JSON(http.StatusOK, []analytics.SellerTrendPoint{})
		return
	}
	span.SetAttributes(traces.SellerID(sellerID))

	preds, err := h.tables.LoadPredictions(ctx)
	if err != nil {
		storageError(ctx, c, span, err)
		return
	}
	c.JSON(http.StatusOK, h.engine.SellerTrend(dataset.FilterPredictions(preds, "", sellerID)))
}

// SellerModelStats handles GET /seller_model_stats
func (h *Handler) SellerModelStats(c *gin.Context) {
	ctx := c.Request.Context()
	sellerID := c.Query("seller_id")

	st, err := h.stats.LoadStats(ctx, sellerID)
	if err != nil {
		logging.L(ctx).Debug("no model stats", logging.Seller(sellerID), "error", err)
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "no_stats",
			"message": "No trained model stats for this seller",
		})
		return
	}
	c.JSON(http.StatusOK, st)
}

// SellerExplanation handles GET /seller_explanation
func (h *Handler) SellerExplanation(c *gin.Context) {
	ctx, span, end := begin(c, "seller_explanation")
	defer end()
	sellerID := c.Query("seller_id")
	if sellerID == "" {
		c.JSON(http.StatusOK, []string{})
		return
	}
	span.SetAttributes(traces.SellerID(sellerID))

	tables, ok := h.loadTables(ctx, c, span)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.engine.ExplainSellerRisk(tables.Orders, tables.Predictions, sellerID))
}

// Predict handles POST /predict
func (h *Handler) Predict(c *gin.Context) {
	var req scoring.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	res, err := h.predictor.Predict(c.Request.Context(), req)
	switch {
	case errors.Is(err, scoring.ErrMissingSeller):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_seller_id",
			"message": err.Error(),
		})
		return
	case errors.Is(err, scoring.ErrMissingOrder):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_order",
			"message": err.Error(),
		})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "prediction_failed",
			"message": "Prediction failed",
		})
		return
	}
	c.JSON(http.StatusOK, res)
}
