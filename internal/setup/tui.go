package setup

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"plsync/internal/entity"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

type accountsFile struct {
	Accounts []entity.Account `yaml:"accounts"`
}

// RunTUI launches the terminal wizard that builds an accounts file.
func RunTUI(path string) error {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("PLSYNC ACCOUNTS WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Describe the accounts whose balances get synced.\n"))

	var accounts []entity.Account
	for {
		account, err := collectAccount(len(accounts) + 1)
		if err != nil {
			return err
		}
		accounts = append(accounts, account)

		var more bool
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Add another account?").
					Value(&more),
			),
		).Run()
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}

	data, err := yaml.Marshal(accountsFile{Accounts: accounts})
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save accounts file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Accounts saved to %s", path)))
	return nil
}

func collectAccount(n int) (entity.Account, error) {
	var (
		id     string
		name   string
		crypto string
		stock  string
	)

	fmt.Println(stepStyle.Render(fmt.Sprintf("ACCOUNT %d", n)))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Account id").
				Description("The planner's account identifier").
				Validate(requireNonEmpty).
				Value(&id),
			huh.NewInput().
				Title("Display name").
				Value(&name),
			huh.NewInput().
				Title("Crypto holdings").
				Description("coin-id:quantity pairs, comma separated (e.g. bitcoin:0.5,ethereum:2)").
				Validate(validateHoldings).
				Value(&crypto),
			huh.NewInput().
				Title("Stock holdings").
				Description("SYMBOL:shares pairs, comma separated (e.g. AAPL:10,MSFT:5)").
				Validate(validateHoldings).
				Value(&stock),
		),
	).Run()
	if err != nil {
		return entity.Account{}, err
	}

	account := entity.Account{ID: id, Name: name}

	if pairs := parseHoldings(crypto); len(pairs) > 0 {
		account.Assets.Crypto = make(map[string]decimal.Decimal, len(pairs))
		for _, p := range pairs {
			account.Assets.Crypto[p.key] = p.qty
		}
	}

	for _, p := range parseHoldings(stock) {
		account.Assets.Stock = append(account.Assets.Stock, entity.StockHolding{
			Symbol: strings.ToUpper(p.key),
			Shares: p.qty,
		})
	}

	return account, nil
}

type holdingPair struct {
	key string
	qty decimal.Decimal
}

func parseHoldings(s string) []holdingPair {
	var pairs []holdingPair
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, qtyStr, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		qty, err := decimal.NewFromString(strings.TrimSpace(qtyStr))
		if err != nil {
			continue
		}
		pairs = append(pairs, holdingPair{key: strings.TrimSpace(key), qty: qty})
	}
	return pairs
}

func validateHoldings(s string) error {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, qtyStr, ok := strings.Cut(part, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("expected key:quantity, got %q", part)
		}
		qty, err := decimal.NewFromString(strings.TrimSpace(qtyStr))
		if err != nil {
			return fmt.Errorf("quantity of %q must be a number", key)
		}
		if qty.IsNegative() {
			return fmt.Errorf("quantity of %q must not be negative", key)
		}
	}
	return nil
}

func requireNonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}
