package model

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/mbd888/sellerrisk/internal/dataset"
)

// Bundle is everything needed to score an order for one seller.
type Bundle struct {
	SellerID  string    `json:"seller_id"`
	Model     *Forest   `json:"model"`
	Encoder   *Encoder  `json:"encoder"`
	Features  []string  `json:"features"`
	TrainedAt time.Time `json:"trained_at"`
}

// Stats is the evaluation side-car persisted next to each bundle.
type Stats struct {
	SellerID  string  `json:"seller_id"`
	NRows     int     `json:"n_rows"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// NewStats combines a row count with evaluation metrics.
func NewStats(sellerID string, rows int, m Metrics) *Stats {
	return &Stats{
		SellerID:  sellerID,
		NRows:     rows,
		Accuracy:  m.Accuracy,
		Precision: m.Precision,
		Recall:    m.Recall,
		F1:        m.F1,
	}
}

// Vector encodes o in the bundle's recorded feature order.
func (b *Bundle) Vector(o dataset.Order) ([]float64, error) {
	if b.Encoder == nil {
		return nil, errors.New("bundle has no encoder")
	}
	return Vectorize(o, b.Features, b.Encoder)
}

// Marshal serialises the bundle.
func (b *Bundle) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalBundle decodes a serialised bundle.
func UnmarshalBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	if b.Model == nil || b.Encoder == nil {
		return nil, errors.New("incomplete model bundle")
	}
	if len(b.Features) == 0 {
		b.Features = append([]string(nil), FeatureNames...)
	}
	return &b, nil
}
