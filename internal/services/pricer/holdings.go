package pricer

import (
	"sort"

	"plsync/internal/entity"
)

// CryptoIDs returns the sorted union of coin ids held across all accounts.
// Falls back to DefaultCryptoIDs when no account holds crypto, so a run
// always has something to price.
func CryptoIDs(accounts []entity.Account) []string {
	set := make(map[string]struct{})
	for _, account := range accounts {
		for id := range account.Assets.Crypto {
			set[id] = struct{}{}
		}
	}

	if len(set) == 0 {
		return append([]string(nil), DefaultCryptoIDs...)
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// StockSymbols returns the ticker symbols held across all accounts,
// deduplicated in order of first appearance.
func StockSymbols(accounts []entity.Account) []string {
	seen := make(map[string]struct{})
	var symbols []string
	for _, account := range accounts {
		for _, holding := range account.Assets.Stock {
			if _, ok := seen[holding.Symbol]; ok {
				continue
			}
			seen[holding.Symbol] = struct{}{}
			symbols = append(symbols, holding.Symbol)
		}
	}
	return symbols
}
