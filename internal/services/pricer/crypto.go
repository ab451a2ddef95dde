package pricer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"plsync/pkg/retrier"
)

const coingeckoEndpoint = "https://api.coingecko.com/api/v3/simple/price"

const (
	requestTimeout    = 10 * time.Second
	retryBase         = 5 * time.Second
	maxFetchRetries   = 2 // 3 attempts total
	defaultRetryAfter = 5 * time.Second
)

// DefaultCryptoIDs is fetched when no account holds any crypto asset.
var DefaultCryptoIDs = []string{"bitcoin", "ethereum"}

var ErrNoPrices = errors.New("no usable prices in provider response")

// CryptoPricer fetches spot USD prices for coin ids in one batch request.
type CryptoPricer struct {
	endpoint string
	client   *http.Client
	retrier  *retrier.Retrier
	logger   *zap.Logger
}

// CryptoOption configures a CryptoPricer.
type CryptoOption func(*CryptoPricer)

// WithEndpoint overrides the price provider endpoint.
func WithEndpoint(u string) CryptoOption {
	return func(p *CryptoPricer) {
		p.endpoint = u
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) CryptoOption {
	return func(p *CryptoPricer) {
		p.client = c
	}
}

// WithRetrier overrides the retry policy.
func WithRetrier(r *retrier.Retrier) CryptoOption {
	return func(p *CryptoPricer) {
		p.retrier = r
	}
}

func NewCryptoPricer(logger *zap.Logger, opts ...CryptoOption) *CryptoPricer {
	p := &CryptoPricer{
		endpoint: coingeckoEndpoint,
		client:   &http.Client{Timeout: requestTimeout},
		retrier: retrier.New(
			retrier.WithMaxRetries(maxFetchRetries),
			retrier.WithInitialInterval(retryBase),
			retrier.WithMultiplier(2),
		),
		logger: logger,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Fetch returns USD prices for the given coin ids. Ids absent from the
// provider response are logged and left out of the result rather than
// failing the whole batch. After exhausting retries it returns an empty
// map together with the last error.
func (p *CryptoPricer) Fetch(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	if len(ids) == 0 {
		ids = DefaultCryptoIDs
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	endpoint := p.endpoint + "?" + q.Encode()

	prices, err := retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (map[string]decimal.Decimal, error) {
		return p.fetchOnce(ctx, endpoint, ids)
	})
	if err != nil {
		p.logger.Error("crypto price fetch exhausted retries", zap.Error(err))
		return map[string]decimal.Decimal{}, err
	}

	for id, price := range prices {
		p.logger.Info("crypto price", zap.String("id", id), zap.String("usd", price.StringFixed(2)))
	}

	return prices, nil
}

func (p *CryptoPricer) fetchOnce(ctx context.Context, endpoint string, ids []string) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create price request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request crypto prices")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		delay := retryAfterDelay(resp.Header.Get("Retry-After"))
		p.logger.Warn("rate limited by price provider", zap.Duration("retry_after", delay))
		return nil, &retrier.RetryAfterError{Delay: delay, Err: errors.New("rate limited by price provider")}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("price provider returned status %d", resp.StatusCode)
	}

	var payload map[string]struct {
		USD *decimal.Decimal `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decode crypto prices")
	}

	prices := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		entry, ok := payload[id]
		if !ok || entry.USD == nil {
			p.logger.Warn("price missing from provider response", zap.String("id", id))
			continue
		}
		prices[id] = *entry.USD
	}

	if len(prices) == 0 {
		return nil, ErrNoPrices
	}

	return prices, nil
}

func retryAfterDelay(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
