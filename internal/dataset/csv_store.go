package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mbd888/sellerrisk/internal/syncutil"
)

// File names inside the data directory.
const (
	SellersFile     = "sellers.csv"
	OrdersFile      = "orders.csv"
	PredictionsFile = "batch_predictions.csv"
)

var (
	SellerColumns = []string{"seller_id", "seller_name", "marketplace_id"}
	OrderColumns  = []string{
		"Order_ID", "Product_Category", "Product_Price", "Discount_Applied",
		"Delivery_Time_Days", "Customer_Type", "Payment_Method",
		"Customer_Return_Rate", "Product_Rating", "Returned",
		"seller_id", "marketplace_id", "order_timestamp",
	}
	PredictionColumns = []string{
		"Order_ID", "seller_id", "marketplace_id",
		"Product_Category", "Customer_Type", "Payment_Method",
		"risk_score", "risk_label", "timestamp",
	}
)

// CSVStore keeps the three tables as CSV files in one directory.
//
// A missing file reads as an empty table and a missing column reads as an
// empty cell, which the coercion policy then defaults. Appends rewrite the
// whole prediction file through a temp file and rename; the in-process lock
// serialises appends from one server, but separate processes writing the
// same directory can still lose updates.
type CSVStore struct {
	dir   string
	locks syncutil.ShardedMutex
}

// NewCSVStore creates a store rooted at dir.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

// Compile-time interface checks
var (
	_ Store  = (*CSVStore)(nil)
	_ Writer = (*CSVStore)(nil)
)

// Dir returns the data directory.
func (s *CSVStore) Dir() string {
	return s.dir
}

func (s *CSVStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *CSVStore) LoadSellers(ctx context.Context) ([]Seller, error) {
	rows, err := readTable(s.path(SellersFile))
	if err != nil {
		return nil, err
	}
	sellers := make([]Seller, 0, len(rows))
	for _, r := range rows {
		sellers = append(sellers, Seller{
			SellerID:      r.get("seller_id"),
			SellerName:    r.get("seller_name"),
			MarketplaceID: r.get("marketplace_id"),
		})
	}
	return sellers, nil
}

func (s *CSVStore) LoadOrders(ctx context.Context) ([]Order, error) {
	rows, err := readTable(s.path(OrdersFile))
	if err != nil {
		return nil, err
	}
	orders := make([]Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, orderFromRow(r))
	}
	return orders, nil
}

// LoadPredictions reads the prediction log. A file that cannot be parsed
// reads as an empty table.
func (s *CSVStore) LoadPredictions(ctx context.Context) ([]Prediction, error) {
	rows, err := readTable(s.path(PredictionsFile))
	if err != nil {
		return []Prediction{}, nil
	}
	preds := make([]Prediction, 0, len(rows))
	for _, r := range rows {
		preds = append(preds, predictionFromRow(r))
	}
	return preds, nil
}

func (s *CSVStore) AppendPrediction(ctx context.Context, p Prediction) error {
	path := s.path(PredictionsFile)
	unlock := s.locks.Lock(path)
	defer unlock()

	existing, err := s.LoadPredictions(ctx)
	if err != nil {
		return err
	}
	return s.writePredictions(append(existing, p))
}

func (s *CSVStore) SellerMarketplace(ctx context.Context, sellerID string) (string, error) {
	sellers, err := s.LoadSellers(ctx)
	if err != nil {
		return "", err
	}
	for _, sl := range sellers {
		if sl.SellerID == sellerID {
			return sl.MarketplaceID, nil
		}
	}
	return "", ErrSellerNotFound
}

// Ping checks that the data directory exists.
func (s *CSVStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", s.dir)
	}
	return nil
}

func (s *CSVStore) ReplaceSellers(ctx context.Context, sellers []Seller) error {
	records := make([][]string, 0, len(sellers))
	for _, sl := range sellers {
		records = append(records, []string{sl.SellerID, sl.SellerName, sl.MarketplaceID})
	}
	return s.writeLocked(SellersFile, SellerColumns, records)
}

func (s *CSVStore) ReplaceOrders(ctx context.Context, orders []Order) error {
	records := make([][]string, 0, len(orders))
	for _, o := range orders {
		records = append(records, orderRecord(o))
	}
	return s.writeLocked(OrdersFile, OrderColumns, records)
}

func (s *CSVStore) ReplacePredictions(ctx context.Context, preds []Prediction) error {
	path := s.path(PredictionsFile)
	unlock := s.locks.Lock(path)
	defer unlock()
	return s.writePredictions(preds)
}

func (s *CSVStore) writeLocked(name string, header []string, records [][]string) error {
	path := s.path(name)
	unlock := s.locks.Lock(path)
	defer unlock()
	return writeTable(path, header, records)
}

// writePredictions rewrites the prediction file; caller holds the lock.
func (s *CSVStore) writePredictions(preds []Prediction) error {
	records := make([][]string, 0, len(preds))
	for _, p := range preds {
		records = append(records, predictionRecord(p))
	}
	return writeTable(s.path(PredictionsFile), PredictionColumns, records)
}

// -----------------------------------------------------------------------------
// Row mapping
// -----------------------------------------------------------------------------

// row is one CSV record addressed by header name.
type row struct {
	index  map[string]int
	fields []string
}

func (r row) get(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

func orderFromRow(r row) Order {
	return Order{
		OrderID:            r.get("Order_ID"),
		ProductCategory:    r.get("Product_Category"),
		ProductPrice:       ParseFloat(r.get("Product_Price"), 0),
		DiscountApplied:    ParseFloat(r.get("Discount_Applied"), 0),
		DeliveryTimeDays:   ParseFloat(r.get("Delivery_Time_Days"), 0),
		CustomerType:       r.get("Customer_Type"),
		PaymentMethod:      r.get("Payment_Method"),
		CustomerReturnRate: ParseFloat(r.get("Customer_Return_Rate"), 0),
		ProductRating:      ParseFloat(r.get("Product_Rating"), 0),
		Returned:           ParseInt(r.get("Returned"), 0),
		SellerID:           r.get("seller_id"),
		MarketplaceID:      r.get("marketplace_id"),
		OrderTimestamp:     ParseTime(r.get("order_timestamp")),
	}
}

func orderRecord(o Order) []string {
	return []string{
		o.OrderID,
		o.ProductCategory,
		FormatFloat(o.ProductPrice),
		FormatFloat(o.DiscountApplied),
		FormatFloat(o.DeliveryTimeDays),
		o.CustomerType,
		o.PaymentMethod,
		FormatFloat(o.CustomerReturnRate),
		FormatFloat(o.ProductRating),
		strconv.Itoa(o.Returned),
		o.SellerID,
		o.MarketplaceID,
		FormatTimestamp(o.OrderTimestamp),
	}
}

func predictionFromRow(r row) Prediction {
	return Prediction{
		OrderID:         r.get("Order_ID"),
		SellerID:        r.get("seller_id"),
		MarketplaceID:   r.get("marketplace_id"),
		ProductCategory: r.get("Product_Category"),
		CustomerType:    r.get("Customer_Type"),
		PaymentMethod:   r.get("Payment_Method"),
		RiskScore:       ParseScore(r.get("risk_score")),
		RiskLabel:       RiskLabel(r.get("risk_label")),
		Timestamp:       ParseTime(r.get("timestamp")),
	}
}

func predictionRecord(p Prediction) []string {
	return []string{
		p.OrderID,
		p.SellerID,
		p.MarketplaceID,
		p.ProductCategory,
		p.CustomerType,
		p.PaymentMethod,
		FormatFloat(p.RiskScore),
		string(p.RiskLabel),
		FormatTimestamp(p.Timestamp),
	}
}

// -----------------------------------------------------------------------------
// File I/O
// -----------------------------------------------------------------------------

// readTable reads a headed CSV file. A missing or empty file yields no rows.
func readTable(path string) ([]row, error) {
	f, err := os.Open(path) // #nosec G304 -- path built from configured data dir
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", filepath.Base(path), err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}

	var rows []row
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		rows = append(rows, row{index: index, fields: rec})
	}
	return rows, nil
}

// writeTable writes header+records to a temp file in the same directory and
// renames it over path.
func writeTable(path string, header []string, records [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
