package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"
)

// PostgresStore keeps the three tables in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed dataset store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var (
	_ Store  = (*PostgresStore)(nil)
	_ Writer = (*PostgresStore)(nil)
)

// Migrate creates the tables if they don't exist. cmd/migrate applies the
// same schema through goose; this is for deployments that skip it.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sellers (
			seller_id       VARCHAR(64) PRIMARY KEY,
			seller_name     VARCHAR(255) NOT NULL DEFAULT '',
			marketplace_id  VARCHAR(64) NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS orders (
			order_id              VARCHAR(64) PRIMARY KEY,
			product_category      VARCHAR(128) NOT NULL DEFAULT '',
			product_price         DOUBLE PRECISION NOT NULL DEFAULT 0,
			discount_applied      DOUBLE PRECISION NOT NULL DEFAULT 0,
			delivery_time_days    DOUBLE PRECISION NOT NULL DEFAULT 0,
			customer_type         VARCHAR(64) NOT NULL DEFAULT '',
			payment_method        VARCHAR(64) NOT NULL DEFAULT '',
			customer_return_rate  DOUBLE PRECISION NOT NULL DEFAULT 0,
			product_rating        DOUBLE PRECISION NOT NULL DEFAULT 0,
			returned              SMALLINT NOT NULL DEFAULT 0,
			seller_id             VARCHAR(64) NOT NULL DEFAULT '',
			marketplace_id        VARCHAR(64) NOT NULL DEFAULT '',
			order_timestamp       TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders (seller_id);
		CREATE INDEX IF NOT EXISTS idx_orders_marketplace ON orders (marketplace_id);

		CREATE TABLE IF NOT EXISTS risk_predictions (
			id                BIGSERIAL PRIMARY KEY,
			order_id          VARCHAR(64) NOT NULL DEFAULT '',
			seller_id         VARCHAR(64) NOT NULL DEFAULT '',
			marketplace_id    VARCHAR(64) NOT NULL DEFAULT '',
			product_category  VARCHAR(128) NOT NULL DEFAULT '',
			customer_type     VARCHAR(64) NOT NULL DEFAULT '',
			payment_method    VARCHAR(64) NOT NULL DEFAULT '',
			risk_score        DOUBLE PRECISION CHECK (risk_score >= 0 AND risk_score <= 1),
			risk_label        VARCHAR(10) NOT NULL DEFAULT '',
			predicted_at      TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_risk_predictions_seller ON risk_predictions (seller_id);
		CREATE INDEX IF NOT EXISTS idx_risk_predictions_marketplace ON risk_predictions (marketplace_id);
	`)
	return err
}

func (s *PostgresStore) LoadSellers(ctx context.Context) ([]Seller, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seller_id, seller_name, marketplace_id
		FROM sellers
		ORDER BY seller_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load sellers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sellers := []Seller{}
	for rows.Next() {
		var sl Seller
		if err := rows.Scan(&sl.SellerID, &sl.SellerName, &sl.MarketplaceID); err != nil {
			return nil, fmt.Errorf("failed to scan seller: %w", err)
		}
		sellers = append(sellers, sl)
	}
	return sellers, rows.Err()
}

func (s *PostgresStore) LoadOrders(ctx context.Context) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_category, product_price, discount_applied,
		       delivery_time_days, customer_type, payment_method,
		       customer_return_rate, product_rating, returned,
		       seller_id, marketplace_id, order_timestamp
		FROM orders
		ORDER BY order_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	orders := []Order{}
	for rows.Next() {
		var o Order
		var ts sql.NullTime
		if err := rows.Scan(
			&o.OrderID, &o.ProductCategory, &o.ProductPrice, &o.DiscountApplied,
			&o.DeliveryTimeDays, &o.CustomerType, &o.PaymentMethod,
			&o.CustomerReturnRate, &o.ProductRating, &o.Returned,
			&o.SellerID, &o.MarketplaceID, &ts,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if ts.Valid {
			o.OrderTimestamp = ts.Time.UTC()
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *PostgresStore) LoadPredictions(ctx context.Context) ([]Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, seller_id, marketplace_id, product_category,
		       customer_type, payment_method, risk_score, risk_label, predicted_at
		FROM risk_predictions
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	preds := []Prediction{}
	for rows.Next() {
		var p Prediction
		var score sql.NullFloat64
		var ts sql.NullTime
		if err := rows.Scan(
			&p.OrderID, &p.SellerID, &p.MarketplaceID, &p.ProductCategory,
			&p.CustomerType, &p.PaymentMethod, &score, &p.RiskLabel, &ts,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		p.RiskScore = math.NaN()
		if score.Valid {
			p.RiskScore = score.Float64
		}
		if ts.Valid {
			p.Timestamp = ts.Time.UTC()
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

func (s *PostgresStore) AppendPrediction(ctx context.Context, p Prediction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_predictions (
			order_id, seller_id, marketplace_id, product_category,
			customer_type, payment_method, risk_score, risk_label, predicted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		p.OrderID, p.SellerID, p.MarketplaceID, p.ProductCategory,
		p.CustomerType, p.PaymentMethod, nullScore(p.RiskScore), string(p.RiskLabel), nullTime(p.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to append prediction: %w", err)
	}
	return nil
}

func (s *PostgresStore) SellerMarketplace(ctx context.Context, sellerID string) (string, error) {
	var marketplaceID string
	err := s.db.QueryRowContext(ctx,
		`SELECT marketplace_id FROM sellers WHERE seller_id = $1`, sellerID,
	).Scan(&marketplaceID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSellerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up seller: %w", err)
	}
	return marketplaceID, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) ReplaceSellers(ctx context.Context, sellers []Seller) error {
	return s.replace(ctx, "sellers", []string{"seller_id", "seller_name", "marketplace_id"}, len(sellers),
		func(i int) []any {
			sl := sellers[i]
			return []any{sl.SellerID, sl.SellerName, sl.MarketplaceID}
		})
}

func (s *PostgresStore) ReplaceOrders(ctx context.Context, orders []Order) error {
	cols := []string{
		"order_id", "product_category", "product_price", "discount_applied",
		"delivery_time_days", "customer_type", "payment_method",
		"customer_return_rate", "product_rating", "returned",
		"seller_id", "marketplace_id", "order_timestamp",
	}
	return s.replace(ctx, "orders", cols, len(orders), func(i int) []any {
		o := orders[i]
		return []any{
			o.OrderID, o.ProductCategory, o.ProductPrice, o.DiscountApplied,
			o.DeliveryTimeDays, o.CustomerType, o.PaymentMethod,
			o.CustomerReturnRate, o.ProductRating, o.Returned,
			o.SellerID, o.MarketplaceID, nullTime(o.OrderTimestamp),
		}
	})
}

func (s *PostgresStore) ReplacePredictions(ctx context.Context, preds []Prediction) error {
	cols := []string{
		"order_id", "seller_id", "marketplace_id", "product_category",
		"customer_type", "payment_method", "risk_score", "risk_label", "predicted_at",
	}
	return s.replace(ctx, "risk_predictions", cols, len(preds), func(i int) []any {
		p := preds[i]
		return []any{
			p.OrderID, p.SellerID, p.MarketplaceID, p.ProductCategory,
			p.CustomerType, p.PaymentMethod, nullScore(p.RiskScore), string(p.RiskLabel), nullTime(p.Timestamp),
		}
	})
}

// replace empties table and bulk-loads n rows with COPY in one transaction.
func (s *PostgresStore) replace(ctx context.Context, table string, cols []string, n int, rowAt func(int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Table names are package constants, not user input.
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(table)); err != nil { // #nosec G202
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, cols...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy into %s: %w", table, err)
	}
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, rowAt(i)...); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("failed to copy row into %s: %w", table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("failed to flush copy into %s: %w", table, err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy into %s: %w", table, err)
	}
	return tx.Commit()
}

func nullScore(f float64) sql.NullFloat64 {
	if math.IsNaN(f) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
