package pricecache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrMiss is returned whenever the cached record cannot serve the request:
// no file, expired, corrupt, or any required id missing.
var ErrMiss = errors.New("price cache miss")

// record is the single persisted fetch result. Write replaces it wholesale,
// so ids cached earlier but not part of the latest write are dropped.
type record struct {
	Timestamp time.Time                  `json:"timestamp"`
	Prices    map[string]decimal.Decimal `json:"prices"`
}

// Cache memoizes the most recent crypto price fetch on disk.
type Cache struct {
	path   string
	logger *zap.Logger
	now    func() time.Time
}

func New(logger *zap.Logger, path string) *Cache {
	return &Cache{path: path, logger: logger, now: time.Now}
}

// Read returns the cached prices when the record is younger than ttl and
// contains every required id. A single missing id is a full miss; there is
// no partial cache use.
func (c *Cache) Read(requiredIDs []string, ttl time.Duration) (map[string]decimal.Decimal, error) {
	payload, err := os.ReadFile(c.path)
	if err != nil {
		return nil, ErrMiss
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		c.logger.Warn("price cache unreadable", zap.Error(err))
		return nil, ErrMiss
	}

	age := c.now().Sub(rec.Timestamp)
	if age >= ttl {
		c.logger.Info("price cache expired", zap.Duration("age", age))
		return nil, ErrMiss
	}

	for _, id := range requiredIDs {
		if _, ok := rec.Prices[id]; !ok {
			c.logger.Info("price cache missing id", zap.String("id", id))
			return nil, ErrMiss
		}
	}

	c.logger.Info("using cached prices", zap.Duration("age", age), zap.Int("ids", len(rec.Prices)))
	return rec.Prices, nil
}

// Write persists prices as the new record, replacing any previous one.
// Callers must pass the complete set they want retained.
func (c *Cache) Write(prices map[string]decimal.Decimal) error {
	payload, err := json.Marshal(record{Timestamp: c.now(), Prices: prices})
	if err != nil {
		return errors.Wrap(err, "marshal price cache record")
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create price cache dir")
		}
	}

	if err := os.WriteFile(c.path, payload, 0o644); err != nil {
		return errors.Wrap(err, "write price cache record")
	}

	return nil
}
