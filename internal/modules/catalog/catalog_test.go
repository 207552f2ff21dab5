package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog_KeepsFirstOccurrence(t *testing.T) {
	c := NewCatalog("prices.csv", []Ticker{
		NewTicker("MSFT"),
		NewTicker("aapl"),
		{Value: "msft", Label: "Msft"},
	})

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "prices.csv", c.Source())
	assert.Equal(t, []Ticker{{Value: "msft", Label: "MSFT"}, {Value: "aapl", Label: "AAPL"}}, c.Tickers())

	got, ok := c.Lookup("aapl")
	require.True(t, ok)
	assert.Equal(t, "AAPL", got.Label)
	assert.False(t, c.Contains("goog"))
}

func TestCatalog_TickersIsACopy(t *testing.T) {
	c := NewCatalog("x", []Ticker{NewTicker("MSFT")})
	list := c.Tickers()
	list[0].Label = "changed"

	got, _ := c.Lookup("msft")
	assert.Equal(t, "MSFT", got.Label)
}

func TestEmpty(t *testing.T) {
	c := Empty()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Tickers())
}

func TestFallbackCatalog(t *testing.T) {
	c := FallbackCatalog()
	assert.Equal(t, FallbackSource, c.Source())
	assert.Equal(t, len(fallbackSymbols), c.Len())
	assert.True(t, c.Contains("aapl"))
	assert.Equal(t, Ticker{Value: "aapl", Label: "AAPL"}, c.Tickers()[0])
}
