// Package model holds the per-seller return classifier: feature encoding,
// a bagged decision-tree ensemble, stratified splitting, evaluation metrics
// and the serialisable bundle that ties them together.
package model

import (
	"fmt"
	"sort"

	"github.com/mbd888/sellerrisk/internal/dataset"
)

// Column names of the raw order fields fed to the classifier.
const (
	ColProductCategory    = "Product_Category"
	ColProductPrice       = "Product_Price"
	ColDiscountApplied    = "Discount_Applied"
	ColDeliveryTimeDays   = "Delivery_Time_Days"
	ColCustomerType       = "Customer_Type"
	ColPaymentMethod      = "Payment_Method"
	ColCustomerReturnRate = "Customer_Return_Rate"
	ColProductRating      = "Product_Rating"
)

// FeatureNames is the raw feature list recorded in every bundle.
var FeatureNames = []string{
	ColProductCategory, ColProductPrice, ColDiscountApplied,
	ColDeliveryTimeDays, ColCustomerType, ColPaymentMethod,
	ColCustomerReturnRate, ColProductRating,
}

// CategoricalColumns are one-hot encoded; every other feature is numeric.
var CategoricalColumns = []string{ColProductCategory, ColCustomerType, ColPaymentMethod}

func isCategorical(col string) bool {
	for _, c := range CategoricalColumns {
		if c == col {
			return true
		}
	}
	return false
}

// numericValue returns the named numeric field of o.
func numericValue(o dataset.Order, col string) (float64, error) {
	switch col {
	case ColProductPrice:
		return o.ProductPrice, nil
	case ColDiscountApplied:
		return o.DiscountApplied, nil
	case ColDeliveryTimeDays:
		return o.DeliveryTimeDays, nil
	case ColCustomerReturnRate:
		return o.CustomerReturnRate, nil
	case ColProductRating:
		return o.ProductRating, nil
	}
	return 0, fmt.Errorf("unknown numeric feature %q", col)
}

// categoricalValue returns the named categorical field of o.
func categoricalValue(o dataset.Order, col string) (string, error) {
	switch col {
	case ColProductCategory:
		return o.ProductCategory, nil
	case ColCustomerType:
		return o.CustomerType, nil
	case ColPaymentMethod:
		return o.PaymentMethod, nil
	}
	return "", fmt.Errorf("unknown categorical feature %q", col)
}

// Encoder one-hot encodes categorical columns. Categories are kept sorted so
// the encoded layout does not depend on row order. Values not seen during
// fitting encode as all zeros.
type Encoder struct {
	Columns    []string   `json:"columns"`
	Categories [][]string `json:"categories"`
}

// FitEncoder learns the categories of each column from orders.
func FitEncoder(orders []dataset.Order, columns []string) (*Encoder, error) {
	enc := &Encoder{
		Columns:    append([]string(nil), columns...),
		Categories: make([][]string, len(columns)),
	}
	for i, col := range columns {
		seen := make(map[string]struct{})
		for _, o := range orders {
			v, err := categoricalValue(o, col)
			if err != nil {
				return nil, err
			}
			seen[v] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		enc.Categories[i] = cats
	}
	return enc, nil
}

// Width is the number of encoded output columns.
func (e *Encoder) Width() int {
	n := 0
	for _, cats := range e.Categories {
		n += len(cats)
	}
	return n
}

// Transform encodes one order's categorical values.
func (e *Encoder) Transform(o dataset.Order) ([]float64, error) {
	out := make([]float64, 0, e.Width())
	for i, col := range e.Columns {
		v, err := categoricalValue(o, col)
		if err != nil {
			return nil, err
		}
		cats := e.Categories[i]
		block := make([]float64, len(cats))
		if j := sort.SearchStrings(cats, v); j < len(cats) && cats[j] == v {
			block[j] = 1
		}
		out = append(out, block...)
	}
	return out, nil
}

// EncodedNames lists the output column names as "<column>_<category>".
func (e *Encoder) EncodedNames() []string {
	names := make([]string, 0, e.Width())
	for i, col := range e.Columns {
		for _, c := range e.Categories[i] {
			names = append(names, col+"_"+c)
		}
	}
	return names
}

// Vectorize builds the feature vector for o: the numeric features of
// features in their recorded order, followed by the encoder's output.
func Vectorize(o dataset.Order, features []string, enc *Encoder) ([]float64, error) {
	x := make([]float64, 0, len(features)+enc.Width())
	for _, col := range features {
		if isCategorical(col) {
			continue
		}
		v, err := numericValue(o, col)
		if err != nil {
			return nil, err
		}
		x = append(x, v)
	}
	cat, err := enc.Transform(o)
	if err != nil {
		return nil, err
	}
	return append(x, cat...), nil
}
