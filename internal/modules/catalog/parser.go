package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const utf8BOM = "\ufeff"

// ParseCSV reads a header row followed by data rows and derives the ticker list.
// Checks run in order and the first failure wins: structural parse errors, no data rows,
// fewer than two columns, first column not "Date" (case-insensitive).
func ParseCSV(ctx context.Context, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	var (
		headers []string
		records []Record
	)
	for line := 0; ; line++ {
		if line%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, reject(ReasonParse, MsgParse, err)
		}

		if headers == nil {
			headers, err = readHeaders(row)
			if err != nil {
				return nil, reject(ReasonParse, MsgParse, err)
			}
			continue
		}
		records = append(records, toRecord(headers, row))
	}

	if len(records) == 0 {
		return nil, reject(ReasonEmpty, MsgEmpty, nil)
	}
	if len(headers) < 2 {
		return nil, reject(ReasonTooFewColumns, MsgTooFewColumns, nil)
	}
	if strings.ToLower(headers[0]) != "date" {
		return nil, reject(ReasonBadFirstColumn, MsgBadFirstColumn, nil)
	}

	tickers := make([]Ticker, 0, len(headers)-1)
	for _, h := range headers[1:] {
		tickers = append(tickers, NewTicker(h))
	}

	return &Dataset{
		Headers: headers,
		Tickers: tickers,
		Records: records,
	}, nil
}

func readHeaders(row []string) ([]string, error) {
	headers := make([]string, len(row))
	seen := make(map[string]int, len(row))
	for i, h := range row {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		if !utf8.ValidString(h) {
			return nil, fmt.Errorf("column %d header is not valid UTF-8", i+1)
		}
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("column %d has no header", i+1)
		}
		key := strings.ToLower(h)
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("column %d duplicates header %q of column %d", i+1, h, prev+1)
		}
		seen[key] = i
		headers[i] = h
	}
	return headers, nil
}

func toRecord(headers, row []string) Record {
	rec := make(Record, len(headers))
	for i, cell := range row {
		if v, ok := coerce(cell); ok {
			rec[headers[i]] = v
		}
	}
	return rec
}

// coerce types a cell the way a spreadsheet would: numbers, booleans, text. Blank cells
// report false.
func coerce(cell string) (interface{}, bool) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil, false
	}
	if d, err := decimal.NewFromString(trimmed); err == nil {
		return d, true
	}
	switch trimmed {
	case "true", "TRUE", "True":
		return true, true
	case "false", "FALSE", "False":
		return false, true
	}
	return trimmed, true
}
