// Command plsync recomputes per-account net worth from cryptocurrency and
// equity holdings and pushes the balances into a browser-only finance
// planner by driving a headless Chrome through its login flow.
//
// Usage:
//
//	plsync --accounts accounts.yaml
//	plsync --setup            (interactive accounts wizard)
//
// Required environment variables: PL_USERNAME, PL_PASSWORD, PL_API_KEY.
// Optional: PL_MFA_KEY, PL_URL, PL_TIME_DELAY, VALIDATE_ONLY,
// UPDATE_PROJECTIONLAB.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"plsync/config"
	"plsync/internal/browser"
	"plsync/internal/entity"
	"plsync/internal/services/balancer"
	"plsync/internal/services/executor"
	"plsync/internal/services/pricer"
	"plsync/internal/services/session"
	"plsync/internal/setup"
	"plsync/internal/storage/pricecache"
	"plsync/pkg/lockfile"
)

const (
	lockFilePath  = "/tmp/plsync.lock"
	cacheFilePath = "/tmp/plsync_crypto_prices.json"
	cacheTTL      = 5 * time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	accountsPath := flag.String("accounts", "accounts.yaml", "path to the accounts yaml file")
	runSetup := flag.Bool("setup", false, "launch the interactive accounts wizard")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Printf("create logger: %v", err)
		return 1
	}
	defer logger.Sync()

	if *runSetup {
		if err := setup.RunTUI(*accountsPath); err != nil {
			logger.Error("accounts wizard failed", zap.Error(err))
			return 1
		}
		return 0
	}

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("configuration invalid", zap.Error(err))
		return 1
	}
	logger.Info("configuration loaded", cfg.Fields()...)

	accounts, err := config.LoadAccounts(*accountsPath)
	if err != nil {
		logger.Error("accounts invalid", zap.Error(err))
		return 1
	}
	logger.Info("accounts loaded", zap.Int("count", len(accounts)))

	if cfg.ValidateOnly {
		logger.Info("validation mode: configuration loaded successfully")
		return 0
	}

	runID := uuid.New().String()
	logger = logger.With(zap.String("run_id", runID))

	lock, err := lockfile.Acquire(logger, lockFilePath, runID)
	if err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			logger.Warn("another run holds the lock, skipping")
			return 0
		}
		logger.Error("acquire run lock", zap.Error(err))
		return 1
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Error("release run lock", zap.Error(err))
		}
	}()

	ctx := context.Background()

	cryptoPrices, err := cryptoSnapshot(ctx, logger, accounts)
	if err != nil {
		logger.Error("failed to fetch cryptocurrency prices", zap.Error(err))
		return 1
	}

	stockPrices := map[string]decimal.Decimal{}
	if symbols := pricer.StockSymbols(accounts); len(symbols) > 0 {
		stockPrices = pricer.NewStockPricer(logger).Fetch(ctx, symbols)
	}

	commands := balancer.Compute(logger, accounts, cryptoPrices, stockPrices, cfg.APIKey)

	if !cfg.DoUpdate {
		logger.Info("update phase disabled, skipping")
		return 0
	}

	if err := pushUpdates(ctx, logger, cfg, commands); err != nil {
		logger.Error("balance update failed", zap.Error(err))
		return 1
	}

	logger.Info("all account balances updated")
	return 0
}

// cryptoSnapshot serves crypto prices from the disk cache when it can, and
// refreshes cache plus snapshot from the provider otherwise.
func cryptoSnapshot(ctx context.Context, logger *zap.Logger, accounts []entity.Account) (map[string]decimal.Decimal, error) {
	ids := pricer.CryptoIDs(accounts)
	cache := pricecache.New(logger, cacheFilePath)

	prices, err := cache.Read(ids, cacheTTL)
	if err == nil {
		return prices, nil
	}

	prices, err = pricer.NewCryptoPricer(logger).Fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, errors.New("crypto price fetch yielded nothing usable")
	}

	if err := cache.Write(prices); err != nil {
		logger.Warn("failed to update price cache", zap.Error(err))
	}

	return prices, nil
}

// pushUpdates owns the browser for the whole write phase and releases it on
// every exit path.
func pushUpdates(ctx context.Context, logger *zap.Logger, cfg config.Config, commands []entity.UpdateCommand) error {
	chrome, err := browser.NewChrome(ctx)
	if err != nil {
		return errors.Wrap(err, "start browser")
	}
	defer chrome.Close(ctx)

	sess := session.New(logger, chrome, session.Config{
		LoginURL:    cfg.LoginURL,
		Email:       cfg.Username,
		Password:    cfg.Password,
		MFAKey:      cfg.MFAKey,
		SettleDelay: cfg.PageSettle,
	})

	if err := sess.Authenticate(ctx); err != nil {
		return errors.Wrap(err, "authenticate")
	}

	return executor.New(logger, sess).Apply(ctx, commands)
}
