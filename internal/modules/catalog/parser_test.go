package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, content string) (*Dataset, error) {
	t.Helper()
	return ParseCSV(context.Background(), strings.NewReader(content))
}

func requireRejection(t *testing.T, err error, reason Reason) *RejectionError {
	t.Helper()
	var rejection *RejectionError
	require.True(t, errors.As(err, &rejection), "expected a rejection, got %v", err)
	require.Len(t, rejection.Violations, 1)
	assert.Equal(t, reason, rejection.Violations[0].Reason)
	return rejection
}

func TestParseCSV_DerivesTickersInHeaderOrder(t *testing.T) {
	ds, err := parse(t, "Date,MSFT,AAPL\n2020-01-01,100,200\n")
	require.NoError(t, err)

	assert.Equal(t, []Ticker{
		{Value: "msft", Label: "MSFT"},
		{Value: "aapl", Label: "AAPL"},
	}, ds.Tickers)
	assert.Equal(t, []string{"Date", "MSFT", "AAPL"}, ds.Headers)
	require.Len(t, ds.Records, 1)
}

func TestParseCSV_MixedCaseHeaders(t *testing.T) {
	ds, err := parse(t, "date,Brk.B,goog\n2021-03-01,1,2\n")
	require.NoError(t, err)

	assert.Equal(t, []Ticker{
		{Value: "brk.b", Label: "BRK.B"},
		{Value: "goog", Label: "GOOG"},
	}, ds.Tickers)
}

func TestParseCSV_CoercesCells(t *testing.T) {
	ds, err := parse(t, "Date,MSFT,AAPL,FLAG\n2020-01-01,100.25,,true\n2020-01-02,n/a,201,FALSE\n")
	require.NoError(t, err)
	require.Len(t, ds.Records, 2)

	first := ds.Records[0]
	assert.Equal(t, "2020-01-01", first["Date"])
	assert.True(t, decimal.RequireFromString("100.25").Equal(first["MSFT"].(decimal.Decimal)))
	_, blank := first["AAPL"]
	assert.False(t, blank, "blank cells are skipped")
	assert.Equal(t, true, first["FLAG"])

	second := ds.Records[1]
	assert.Equal(t, "n/a", second["MSFT"])
	assert.Equal(t, false, second["FLAG"])
}

func TestParseCSV_StripsBOM(t *testing.T) {
	ds, err := parse(t, "\ufeffDate,MSFT\n2020-01-01,1\n")
	require.NoError(t, err)
	assert.Equal(t, "Date", ds.Headers[0])
}

func TestParseCSV_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reason  Reason
		message string
	}{
		{"empty file", "", ReasonEmpty, MsgEmpty},
		{"header only", "Date,MSFT\n", ReasonEmpty, MsgEmpty},
		{"single column", "Date\n2020-01-01\n", ReasonTooFewColumns, MsgTooFewColumns},
		{"first column not date", "Day,MSFT\n2020-01-01,1\n", ReasonBadFirstColumn, MsgBadFirstColumn},
		{"ticker first", "MSFT,Date\n1,2020-01-01\n", ReasonBadFirstColumn, MsgBadFirstColumn},
		{"ragged row", "Date,MSFT\n2020-01-01,1,2\n", ReasonParse, MsgParse},
		{"bad quoting", "Date,MSFT\n2020-01-01,\"1\n", ReasonParse, MsgParse},
		{"blank header", "Date,,AAPL\n2020-01-01,1,2\n", ReasonParse, MsgParse},
		{"duplicate header", "Date,MSFT,msft\n2020-01-01,1,2\n", ReasonParse, MsgParse},
		{"single column takes precedence over date", "Price\n1\n", ReasonTooFewColumns, MsgTooFewColumns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := parse(t, tt.content)
			assert.Nil(t, ds)
			rejection := requireRejection(t, err, tt.reason)
			assert.Equal(t, []string{tt.message}, rejection.Messages())
		})
	}
}

func TestParseCSV_RejectsNonUTF8Headers(t *testing.T) {
	// Latin-1 "Société" and "Sociétà" share every byte but the last
	content := "Date,Soci\xe9t\xe9,Soci\xe9t\xe0\n2020-01-01,1,2\n"

	ds, err := parse(t, content)
	assert.Nil(t, ds)
	rejection := requireRejection(t, err, ReasonParse)
	assert.Equal(t, []string{MsgParse}, rejection.Messages())
	require.Error(t, rejection.Cause)
	assert.Contains(t, rejection.Cause.Error(), "column 2 header is not valid UTF-8")
}

func TestParseCSV_DateHeaderIsCaseInsensitive(t *testing.T) {
	for _, header := range []string{"Date", "DATE", "date", "dAtE"} {
		_, err := parse(t, header+",MSFT\n2020-01-01,1\n")
		assert.NoError(t, err, header)
	}
}

func TestParseCSV_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParseCSV(ctx, strings.NewReader("Date,MSFT\n2020-01-01,1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordLabel(t *testing.T) {
	rec := Record{
		"Date": decimal.RequireFromString("20200101"),
		"Note": "text",
		"Flag": true,
	}
	assert.Equal(t, "20200101", rec.Label("Date"))
	assert.Equal(t, "text", rec.Label("Note"))
	assert.Equal(t, "true", rec.Label("Flag"))
	assert.Equal(t, "", rec.Label("missing"))
}
