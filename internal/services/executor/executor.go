package executor

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plsync/internal/entity"
)

const defaultPause = time.Second

// Page evaluates scripts inside an authenticated page context.
type Page interface {
	Evaluate(ctx context.Context, script string) error
}

// Executor applies update commands sequentially against the planner's write
// surface. A fixed pause between commands keeps the host page responsive.
// The first failure aborts the remaining sequence; there is no per-command
// retry and no partial-success continuation.
type Executor struct {
	page   Page
	pause  time.Duration
	sleep  func(time.Duration)
	logger *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithPause sets the pause between commands.
func WithPause(d time.Duration) Option {
	return func(e *Executor) {
		e.pause = d
	}
}

// WithSleep replaces the sleep function (tests).
func WithSleep(fn func(time.Duration)) Option {
	return func(e *Executor) {
		e.sleep = fn
	}
}

func New(logger *zap.Logger, page Page, opts ...Option) *Executor {
	e := &Executor{
		page:   page,
		pause:  defaultPause,
		sleep:  time.Sleep,
		logger: logger,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Apply executes the commands in order. Log lines carry only the redacted
// form; the raw write key never leaves the command.
func (e *Executor) Apply(ctx context.Context, commands []entity.UpdateCommand) error {
	for i, cmd := range commands {
		e.logger.Info("executing update",
			zap.String("account", cmd.AccountID),
			zap.String("command", cmd.Redacted()))

		if err := e.page.Evaluate(ctx, cmd.Script()); err != nil {
			return errors.Wrapf(err, "update for account %s failed, %d updates not applied",
				cmd.AccountID, len(commands)-i-1)
		}

		e.logger.Info("update applied", zap.String("account", cmd.AccountID), zap.String("balance", cmd.Balance))

		if i < len(commands)-1 {
			e.sleep(e.pause)
		}
	}

	return nil
}
