package model

// Metrics are binary classification scores with class 1 as positive. Any
// ratio whose denominator is zero is reported as 0.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Evaluate compares predictions against ground truth.
func Evaluate(yTrue, yPred []int) Metrics {
	var tp, fp, fn, correct int
	for i := range yTrue {
		t, p := label(yTrue[i]), label(yPred[i])
		if t == p {
			correct++
		}
		switch {
		case t == 1 && p == 1:
			tp++
		case t == 0 && p == 1:
			fp++
		case t == 1 && p == 0:
			fn++
		}
	}

	m := Metrics{
		Accuracy:  div(correct, len(yTrue)),
		Precision: div(tp, tp+fp),
		Recall:    div(tp, tp+fn),
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

func div(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
