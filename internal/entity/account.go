package entity

import "github.com/shopspring/decimal"

// StockHolding is a single equity position inside an account.
type StockHolding struct {
	Symbol string          `yaml:"symbol"`
	Shares decimal.Decimal `yaml:"shares"`
}

// Assets groups the holdings of one account. Crypto maps a price-provider
// coin id (e.g. "bitcoin") to the held quantity; Stock keeps its declared
// order because command order follows account order.
type Assets struct {
	Crypto map[string]decimal.Decimal `yaml:"crypto,omitempty"`
	Stock  []StockHolding             `yaml:"stock,omitempty"`
}

// Account is one planner account whose balance gets recomputed each run.
// Loaded once from configuration and immutable afterwards.
type Account struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Assets Assets `yaml:"assets"`
}
