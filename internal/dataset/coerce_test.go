package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12.5", 12.5},
		{" 3 ", 3},
		{"", 0},
		{"abc", 0},
		{"NaN", 0},
		{"inf", 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseFloat(tc.in, 0), "input %q", tc.in)
	}
}

func TestParseInt_AcceptsFloatSpelling(t *testing.T) {
	assert.Equal(t, 1, ParseInt("1", 0))
	assert.Equal(t, 1, ParseInt("1.0", 0))
	assert.Equal(t, 0, ParseInt("yes", 0))
	assert.Equal(t, 7, ParseInt("", 7))
}

func TestParseScore_MissingIsNaN(t *testing.T) {
	assert.True(t, math.IsNaN(ParseScore("")))
	assert.Equal(t, 0.42, ParseScore("0.42"))
}

func TestParseTime_Layouts(t *testing.T) {
	want := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, ParseTime("2025-11-03"))
	assert.Equal(t, want, ParseTime("2025-11-03 00:00:00"))
	assert.Equal(t, want, ParseTime("2025-11-03T00:00:00Z"))
	assert.True(t, ParseTime("not a date").IsZero())
	assert.True(t, ParseTime("NaT").IsZero())
	assert.True(t, ParseTime("").IsZero())
}

func TestFloatOf(t *testing.T) {
	assert.Equal(t, 2.5, FloatOf(2.5, 0))
	assert.Equal(t, 2.5, FloatOf("2.5", 0))
	assert.Equal(t, 0.0, FloatOf("n/a", 0))
	assert.Equal(t, 0.0, FloatOf(nil, 0))
	assert.Equal(t, 0.0, FloatOf([]any{1}, 0))
	assert.Equal(t, 1.0, FloatOf(true, 0))
}

func TestFormatFloat_RoundTrips(t *testing.T) {
	for _, f := range []float64{0.1, 0.7345678912345, 1, 0} {
		assert.Equal(t, f, ParseFloat(FormatFloat(f), -1))
	}
	assert.Equal(t, "", FormatFloat(math.NaN()))
}

func TestDateKey(t *testing.T) {
	assert.Equal(t, "", DateKey(time.Time{}))
	assert.Equal(t, "2025-01-02", DateKey(time.Date(2025, 1, 2, 23, 59, 0, 0, time.UTC)))
}
