package pricer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const yahooQuoteEndpoint = "https://query2.finance.yahoo.com/v7/finance/quote"

// StockPricer fetches the latest market price for a list of tickers in one
// best-effort batch request. Equity prices are non-essential: any failure
// yields an empty map, never an error, and there is no retry.
type StockPricer struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// StockOption configures a StockPricer.
type StockOption func(*StockPricer)

// WithStockEndpoint overrides the quote provider endpoint.
func WithStockEndpoint(u string) StockOption {
	return func(p *StockPricer) {
		p.endpoint = u
	}
}

// WithStockHTTPClient overrides the HTTP client.
func WithStockHTTPClient(c *http.Client) StockOption {
	return func(p *StockPricer) {
		p.client = c
	}
}

func NewStockPricer(logger *zap.Logger, opts ...StockOption) *StockPricer {
	p := &StockPricer{
		endpoint: yahooQuoteEndpoint,
		client:   &http.Client{Timeout: requestTimeout},
		logger:   logger,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Fetch returns the latest USD price per symbol. Soft failure: an empty map
// on any error.
func (p *StockPricer) Fetch(ctx context.Context, symbols []string) map[string]decimal.Decimal {
	if len(symbols) == 0 {
		return map[string]decimal.Decimal{}
	}

	prices, err := p.fetch(ctx, symbols)
	if err != nil {
		p.logger.Error("stock price fetch failed", zap.Error(err))
		return map[string]decimal.Decimal{}
	}

	for symbol, price := range prices {
		p.logger.Info("stock price", zap.String("symbol", symbol), zap.String("usd", price.StringFixed(2)))
	}

	return prices
}

func (p *StockPricer) fetch(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create quote request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request stock quotes")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("quote provider returned status %d", resp.StatusCode)
	}

	var payload struct {
		QuoteResponse struct {
			Result []struct {
				Symbol             string           `json:"symbol"`
				RegularMarketPrice *decimal.Decimal `json:"regularMarketPrice"`
			} `json:"result"`
		} `json:"quoteResponse"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decode stock quotes")
	}

	prices := make(map[string]decimal.Decimal, len(symbols))
	for _, result := range payload.QuoteResponse.Result {
		if result.RegularMarketPrice == nil {
			p.logger.Warn("quote missing market price", zap.String("symbol", result.Symbol))
			continue
		}
		prices[result.Symbol] = *result.RegularMarketPrice
	}

	return prices, nil
}
