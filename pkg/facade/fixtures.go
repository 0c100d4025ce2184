package facade

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// QueryData categories understood by the simulator.
const (
	CategoryFunds        = 0
	CategoryHoldings     = 1
	CategoryOrders       = 2
	CategoryFills        = 3
	CategoryCancellable  = 4
	CategoryShareholders = 5
)

// QuoteFixture is a canned quote keyed by security code.
type QuoteFixture struct {
	ExchangeID string `yaml:"exchange_id"`
	Name       string `yaml:"name"`
	Last       string `yaml:"last"`
	Bid        string `yaml:"bid"`
	Ask        string `yaml:"ask"`
}

// Fixtures seeds the simulator's read-only data.
type Fixtures struct {
	Quotes map[string]QuoteFixture `yaml:"quotes"`
	// Categories holds canned QueryData rows for the categories the
	// simulator does not derive from session state.
	Categories map[int][]map[string]string `yaml:"categories"`
}

// LoadFixtures reads a YAML fixture file. Quote prices must be decimals.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read fixtures %s: %w", simLogPrefix, path, err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%s - failed to parse fixtures %s: %w", simLogPrefix, path, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	if f.Quotes == nil {
		f.Quotes = map[string]QuoteFixture{}
	}
	if f.Categories == nil {
		f.Categories = map[int][]map[string]string{}
	}
	return &f, nil
}

func (f *Fixtures) validate() error {
	for code, q := range f.Quotes {
		for field, v := range map[string]string{"last": q.Last, "bid": q.Bid, "ask": q.Ask} {
			if _, err := decimal.NewFromString(v); err != nil {
				return fmt.Errorf("%s - quote %s: invalid %s %q: %w", simLogPrefix, code, field, v, err)
			}
		}
	}
	for cat := range f.Categories {
		if cat == CategoryOrders || cat == CategoryCancellable {
			return fmt.Errorf("%s - category %d is derived from session orders and cannot be seeded", simLogPrefix, cat)
		}
		if cat < CategoryFunds || cat > CategoryShareholders {
			return fmt.Errorf("%s - unknown category %d", simLogPrefix, cat)
		}
	}
	return nil
}

// DefaultFixtures is used when no fixture file is configured.
func DefaultFixtures() *Fixtures {
	return &Fixtures{
		Quotes: map[string]QuoteFixture{
			"600000": {ExchangeID: "1", Name: "PFYH", Last: "10.50", Bid: "10.49", Ask: "10.51"},
			"000001": {ExchangeID: "0", Name: "PAYH", Last: "12.30", Bid: "12.29", Ask: "12.31"},
		},
		Categories: map[int][]map[string]string{
			CategoryFunds: {
				{"currency": "CNY", "balance": "100000.00", "available": "100000.00"},
			},
			CategoryHoldings: {},
			CategoryFills:    {},
			CategoryShareholders: {
				{"exchange_id": "1", "gddm": "A000000001"},
				{"exchange_id": "0", "gddm": "0000000001"},
			},
		},
	}
}
