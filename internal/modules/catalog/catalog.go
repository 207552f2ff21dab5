package catalog

// Catalog is an immutable, ordered set of tickers
type Catalog struct {
	tickers []Ticker
	index   map[string]int
	source  string
}

// NewCatalog builds a catalog, keeping the first occurrence of each ticker value
func NewCatalog(source string, tickers []Ticker) *Catalog {
	c := &Catalog{
		tickers: make([]Ticker, 0, len(tickers)),
		index:   make(map[string]int, len(tickers)),
		source:  source,
	}
	for _, t := range tickers {
		if _, dup := c.index[t.Value]; dup {
			continue
		}
		c.index[t.Value] = len(c.tickers)
		c.tickers = append(c.tickers, t)
	}
	return c
}

// Empty returns a catalog without tickers
func Empty() *Catalog {
	return NewCatalog("", nil)
}

// Source names where the tickers came from (file name or "fallback")
func (c *Catalog) Source() string {
	return c.source
}

// Len returns the number of tickers
func (c *Catalog) Len() int {
	return len(c.tickers)
}

// Tickers returns a copy of the ordered ticker list
func (c *Catalog) Tickers() []Ticker {
	out := make([]Ticker, len(c.tickers))
	copy(out, c.tickers)
	return out
}

// Lookup finds a ticker by value
func (c *Catalog) Lookup(value string) (Ticker, bool) {
	i, ok := c.index[value]
	if !ok {
		return Ticker{}, false
	}
	return c.tickers[i], true
}

// Contains reports whether value is a known ticker
func (c *Catalog) Contains(value string) bool {
	_, ok := c.index[value]
	return ok
}

// FallbackSource is the source name of the static catalog
const FallbackSource = "fallback"

var fallbackSymbols = []string{
	"AAPL", "MSFT", "GOOG", "AMZN", "META", "NVDA", "TSLA", "JPM", "V", "JNJ",
	"XOM", "PG", "UNH", "HD", "KO",
}

// FallbackCatalog is offered before any price history has been uploaded
func FallbackCatalog() *Catalog {
	tickers := make([]Ticker, len(fallbackSymbols))
	for i, s := range fallbackSymbols {
		tickers[i] = NewTicker(s)
	}
	return NewCatalog(FallbackSource, tickers)
}
