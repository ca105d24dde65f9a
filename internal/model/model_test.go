package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/sellerrisk/internal/dataset"
)

func TestEncoder_SortedCategoriesAndUnknown(t *testing.T) {
	orders := []dataset.Order{
		{ProductCategory: "Home", CustomerType: "New", PaymentMethod: "UPI"},
		{ProductCategory: "Beauty", CustomerType: "Returning", PaymentMethod: "COD"},
	}
	enc, err := FitEncoder(orders, CategoricalColumns)
	require.NoError(t, err)

	assert.Equal(t, []string{"Beauty", "Home"}, enc.Categories[0])
	assert.Equal(t, 6, enc.Width())
	assert.Equal(t, "Product_Category_Beauty", enc.EncodedNames()[0])

	got, err := enc.Transform(dataset.Order{ProductCategory: "Home", CustomerType: "VIP", PaymentMethod: "COD"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0, 0, 1, 0}, got)
}

func TestVectorize_NumericThenEncoded(t *testing.T) {
	orders := []dataset.Order{{ProductCategory: "Home", CustomerType: "New", PaymentMethod: "UPI"}}
	enc, err := FitEncoder(orders, CategoricalColumns)
	require.NoError(t, err)

	o := dataset.Order{
		ProductCategory: "Home", ProductPrice: 100, DiscountApplied: 10,
		DeliveryTimeDays: 3, CustomerType: "New", PaymentMethod: "UPI",
		CustomerReturnRate: 0.2, ProductRating: 4,
	}
	x, err := Vectorize(o, FeatureNames, enc)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 10, 3, 0.2, 4, 1, 1, 1}, x)

	_, err = Vectorize(o, []string{"Mystery"}, enc)
	assert.Error(t, err)
}

func separable(n int) ([][]float64, []int) {
	X := make([][]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		v := float64(i) / float64(n)
		X[i] = []float64{v, float64(i % 3)}
		if v >= 0.5 {
			y[i] = 1
		}
	}
	return X, y
}

func TestForest_LearnsSeparableData(t *testing.T) {
	X, y := separable(60)
	f, err := FitForest(X, y, ForestOptions{Trees: 25, Seed: 42, Balanced: true})
	require.NoError(t, err)
	require.Len(t, f.Trees, 25)

	assert.Equal(t, 0, f.Predict([]float64{0.1, 1}))
	assert.Equal(t, 1, f.Predict([]float64{0.9, 1}))

	p, err := f.PredictProba([]float64{0.9, 0})
	require.NoError(t, err)
	require.Len(t, p, 2)
	assert.InDelta(t, 1.0, p[0]+p[1], 1e-9)
	assert.Greater(t, p[1], 0.5)
}

func TestForest_Deterministic(t *testing.T) {
	X, y := separable(40)
	a, err := FitForest(X, y, ForestOptions{Trees: 10, Seed: 7})
	require.NoError(t, err)
	b, err := FitForest(X, y, ForestOptions{Trees: 10, Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestForest_SingleClass(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}}
	f, err := FitForest(X, []int{0, 0, 0}, DefaultForestOptions())
	require.NoError(t, err)

	p, err := f.PredictProba([]float64{2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, p)
	assert.Equal(t, 0, f.Predict([]float64{2}))
}

func TestForest_InputErrors(t *testing.T) {
	_, err := FitForest(nil, nil, DefaultForestOptions())
	assert.Error(t, err)
	_, err = FitForest([][]float64{{1}, {1, 2}}, []int{0, 1}, DefaultForestOptions())
	assert.Error(t, err)

	_, err = (&Forest{}).PredictProba([]float64{1})
	assert.True(t, errors.Is(err, ErrProbaUnavailable))
}

func TestStratifiedSplit_PreservesClassShare(t *testing.T) {
	y := make([]int, 40)
	for i := 0; i < 10; i++ {
		y[i] = 1
	}

	train, test, err := StratifiedSplit(y, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, train, 32)
	assert.Len(t, test, 8)

	positives := 0
	for _, i := range test {
		positives += y[i]
	}
	assert.Equal(t, 2, positives)

	seen := make(map[int]bool)
	for _, i := range append(append([]int(nil), train...), test...) {
		assert.False(t, seen[i], "index %d appears twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 40)

	train2, test2, err := StratifiedSplit(y, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestStratifiedSplit_SingletonClass(t *testing.T) {
	y := make([]int, 30)
	y[0] = 1
	_, _, err := StratifiedSplit(y, 0.2, 42)
	assert.ErrorIs(t, err, ErrTooFewPerClass)
}

func TestEvaluate(t *testing.T) {
	m := Evaluate([]int{1, 1, 0, 0}, []int{1, 0, 1, 0})
	assert.Equal(t, 0.5, m.Accuracy)
	assert.Equal(t, 0.5, m.Precision)
	assert.Equal(t, 0.5, m.Recall)
	assert.Equal(t, 0.5, m.F1)

	// No positive predictions and no positive labels.
	m = Evaluate([]int{0, 0}, []int{0, 0})
	assert.Equal(t, Metrics{Accuracy: 1}, m)
}

func TestBundle_RoundTripScoresIdentically(t *testing.T) {
	orders := []dataset.Order{
		{ProductCategory: "Home", CustomerType: "New", PaymentMethod: "UPI", ProductPrice: 10},
		{ProductCategory: "Beauty", CustomerType: "Returning", PaymentMethod: "COD", ProductPrice: 900},
	}
	enc, err := FitEncoder(orders, CategoricalColumns)
	require.NoError(t, err)
	X := make([][]float64, 0, 40)
	y := make([]int, 0, 40)
	for i := 0; i < 40; i++ {
		o := orders[i%2]
		x, err := Vectorize(o, FeatureNames, enc)
		require.NoError(t, err)
		X = append(X, x)
		y = append(y, i%2)
	}
	f, err := FitForest(X, y, ForestOptions{Trees: 5, Seed: 42})
	require.NoError(t, err)

	b := &Bundle{SellerID: "S001", Model: f, Encoder: enc, Features: FeatureNames}
	data, err := b.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalBundle(data)
	require.NoError(t, err)

	x, err := got.Vector(orders[1])
	require.NoError(t, err)
	assert.Equal(t, 1, got.Model.Predict(x))

	_, err = UnmarshalBundle([]byte(`{"seller_id":"S001"}`))
	assert.Error(t, err)
}
