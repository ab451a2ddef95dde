package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"plsync/internal/entity"
)

type accountsFile struct {
	Accounts []entity.Account `yaml:"accounts"`
}

// LoadAccounts reads the ordered account list from a YAML file. Account
// order matters downstream: commands execute in this order.
func LoadAccounts(path string) ([]entity.Account, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read accounts file %s", path)
	}

	var file accountsFile
	if err := yaml.Unmarshal(payload, &file); err != nil {
		return nil, errors.Wrap(err, "parse accounts file")
	}

	if err := validateAccounts(file.Accounts); err != nil {
		return nil, err
	}

	return file.Accounts, nil
}

func validateAccounts(accounts []entity.Account) error {
	seen := make(map[string]struct{}, len(accounts))
	for i, account := range accounts {
		if account.ID == "" {
			return errors.Errorf("account %d has no id", i)
		}
		if _, ok := seen[account.ID]; ok {
			return errors.Errorf("duplicate account id %q", account.ID)
		}
		seen[account.ID] = struct{}{}

		for id, qty := range account.Assets.Crypto {
			if id == "" {
				return errors.Errorf("account %q has a crypto holding with an empty id", account.ID)
			}
			if qty.IsNegative() {
				return errors.Errorf("account %q holds a negative quantity of %s", account.ID, id)
			}
		}

		for _, holding := range account.Assets.Stock {
			if holding.Symbol == "" {
				return errors.Errorf("account %q has a stock holding with an empty symbol", account.ID)
			}
			if holding.Shares.IsNegative() {
				return errors.Errorf("account %q holds negative shares of %s", account.ID, holding.Symbol)
			}
		}
	}

	return nil
}
