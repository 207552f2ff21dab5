package catalog

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleReturns(t *testing.T) {
	assert.Empty(t, SimpleReturns(nil))
	assert.Empty(t, SimpleReturns([]float64{100}))

	got := SimpleReturns([]float64{100, 110, 99})
	require.Len(t, got, 2)
	assert.InDelta(t, 0.10, got[0], 1e-12)
	assert.InDelta(t, -0.10, got[1], 1e-12)

	assert.Len(t, SimpleReturns([]float64{0, 10, 11}), 1, "periods starting at zero are skipped")
}

func TestSummarize(t *testing.T) {
	content := "Date,MSFT,AAPL\n" +
		"2020-01-01,100,50\n" +
		"2020-01-02,110,\n" +
		"2020-01-03,99,n/a\n"
	ds, err := ParseCSV(context.Background(), strings.NewReader(content))
	require.NoError(t, err)

	summary := Summarize(ds)
	require.Len(t, summary, 2)

	msft := summary[0]
	assert.Equal(t, "MSFT", msft.Ticker)
	assert.Equal(t, 3, msft.Observations)
	assert.Equal(t, "2020-01-01", msft.FirstDate)
	assert.Equal(t, "2020-01-03", msft.LastDate)
	assert.InDelta(t, 0.0, msft.MeanReturn, 1e-12)
	assert.InDelta(t, math.Sqrt(0.02)*math.Sqrt(TradingDaysPerYear), msft.AnnualizedVolatility, 1e-9)

	aapl := summary[1]
	assert.Equal(t, "AAPL", aapl.Ticker)
	assert.Equal(t, 1, aapl.Observations)
	assert.Equal(t, "2020-01-01", aapl.FirstDate)
	assert.Zero(t, aapl.MeanReturn)
	assert.Zero(t, aapl.AnnualizedVolatility)
}

func TestFinite(t *testing.T) {
	assert.Zero(t, finite(math.NaN()))
	assert.Zero(t, finite(math.Inf(1)))
	assert.Equal(t, 1.5, finite(1.5))
}
