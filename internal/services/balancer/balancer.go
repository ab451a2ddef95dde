package balancer

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"plsync/internal/entity"
)

// Compute turns account holdings and a price snapshot into one update
// command per account, preserving account order. Deterministic: identical
// inputs produce identical output. Rounding to two decimals happens only
// when the command is formatted, never during accumulation.
func Compute(logger *zap.Logger, accounts []entity.Account,
	cryptoPrices, stockPrices map[string]decimal.Decimal, writeKey entity.Secret) []entity.UpdateCommand {

	commands := make([]entity.UpdateCommand, 0, len(accounts))

	for _, account := range accounts {
		total := decimal.Zero
		var summary []string

		for _, id := range sortedIDs(account.Assets.Crypto) {
			price, ok := cryptoPrices[id]
			if !ok {
				logger.Warn("crypto price unavailable, holding skipped",
					zap.String("account", account.ID), zap.String("id", id))
				continue
			}

			value := account.Assets.Crypto[id].Mul(price)
			// non-positive line items stay out of the summary but still
			// count toward the balance
			total = total.Add(value)
			if value.IsPositive() {
				summary = append(summary, fmt.Sprintf("%s: %s ($%s)",
					id, account.Assets.Crypto[id].String(), value.StringFixed(2)))
			}
		}

		for _, holding := range account.Assets.Stock {
			price, ok := stockPrices[holding.Symbol]
			if !ok {
				logger.Warn("stock price unavailable, holding skipped",
					zap.String("account", account.ID), zap.String("symbol", holding.Symbol))
				continue
			}

			value := holding.Shares.Mul(price)
			total = total.Add(value)
			summary = append(summary, fmt.Sprintf("%s: %s shares ($%s)",
				holding.Symbol, holding.Shares.String(), value.StringFixed(2)))
		}

		commands = append(commands, entity.NewUpdateCommand(account.ID, total.StringFixed(2), writeKey))

		logger.Info("account balance computed",
			zap.String("account", account.Name),
			zap.Strings("assets", summary),
			zap.String("total_usd", total.StringFixed(2)))
	}

	return commands
}

func sortedIDs(holdings map[string]decimal.Decimal) []string {
	ids := make([]string, 0, len(holdings))
	for id := range holdings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
