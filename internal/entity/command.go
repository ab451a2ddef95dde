package entity

import "fmt"

// updateScript is the only mutation path the planner exposes: a global
// function reachable from an authenticated page context.
const updateScript = "window.projectionlabPluginAPI.updateAccount('%s', { balance: %s }, { key: '%s' })"

// UpdateCommand is one balance write for one account. Commands are created
// in account order and never mutated afterwards.
type UpdateCommand struct {
	AccountID string
	Balance   string // fixed 2-decimal USD amount
	key       Secret
}

func NewUpdateCommand(accountID, balance string, key Secret) UpdateCommand {
	return UpdateCommand{AccountID: accountID, Balance: balance, key: key}
}

// Script returns the executable form with the raw write key embedded.
// Never log this; use Redacted.
func (c UpdateCommand) Script() string {
	return fmt.Sprintf(updateScript, c.AccountID, c.Balance, c.key.Reveal())
}

// Redacted returns the loggable form of the command.
func (c UpdateCommand) Redacted() string {
	return fmt.Sprintf(updateScript, c.AccountID, c.Balance, RedactionMarker)
}
