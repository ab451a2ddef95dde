package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plsync/internal/entity"
)

// State of the login flow. Owned exclusively by the Session.
type State int

const (
	StateInit State = iota
	StateAwaitingCredentials
	StateCredentialsSubmitted
	StateAwaitingMFA
	StateMFASubmitted
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAwaitingCredentials:
		return "awaiting_credentials"
	case StateCredentialsSubmitted:
		return "credentials_submitted"
	case StateAwaitingMFA:
		return "awaiting_mfa"
	case StateMFASubmitted:
		return "mfa_submitted"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrControlNotFound  = errors.New("no locator strategy matched the control")
	ErrMFARejected      = errors.New("one-time code rejected")
	ErrReadinessTimeout = errors.New("timed out waiting for the write function to appear")
	ErrNotAuthenticated = errors.New("session is not authenticated")
)

// readinessScript probes for the planner's write surface: the only signal
// that authentication fully completed.
const readinessScript = "typeof window.projectionlabPluginAPI !== 'undefined'"

// Locator strategy tables for the target app's login surface. Element ids
// shift between releases; each control carries ordered fallbacks.
var (
	signInWithEmailStrategies = []Strategy{
		{ByXPath, `//*[@id="auth-container"]/button[2]`},
		{ByButtonText, "Sign in with email"},
	}
	emailFieldStrategies = []Strategy{
		{ByXPath, `//*[@id="input-v-7"]`},
		{ByXPath, `//*[@id="input-v-6"]`},
		{ByCSS, `input[type="email"]`},
	}
	passwordFieldStrategies = []Strategy{
		{ByXPath, `//*[@id="input-v-9"]`},
		{ByXPath, `//*[@id="input-v-8"]`},
		{ByCSS, `input[type="password"]`},
	}
	credentialsSubmitStrategies = []Strategy{
		{ByXPath, `//*[@id="auth-container"]/form/button`},
		{ByButtonText, "Sign in"},
	}
	mfaSubmitStrategies = []Strategy{
		{ByCSS, ".app-card-actions button:first-child"},
		{ByXPath, `//button[.//span[contains(text(), 'Submit')]]`},
		{ByButtonText, "Submit"},
	}
	otpInputStrategy = Strategy{ByCSS, ".v-otp-input__field"}
)

// Config carries everything the session needs to log in.
type Config struct {
	LoginURL    string
	Email       string
	Password    entity.Secret
	MFAKey      entity.Secret // normalized base32 TOTP secret, may be zero
	SettleDelay time.Duration // wait after navigation; the page has no ready signal
}

// Session drives a browser through the planner's login flow, including MFA,
// and exposes script evaluation once authenticated.
type Session struct {
	driver Driver
	cfg    Config
	logger *zap.Logger
	state  State

	mfaWindow        time.Duration
	readinessTimeout time.Duration
	pollInterval     time.Duration
	interactDelay    time.Duration
	postSubmitDelay  time.Duration

	sleep func(time.Duration)
	now   func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithMFAWindow bounds how long step detection waits for the one-time-code
// inputs to appear.
func WithMFAWindow(d time.Duration) Option {
	return func(s *Session) {
		s.mfaWindow = d
	}
}

// WithReadinessTimeout bounds the wait for the write function.
func WithReadinessTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.readinessTimeout = d
	}
}

// WithPollInterval sets the poll interval of the bounded waits.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		s.pollInterval = d
	}
}

// WithSleep replaces the sleep function (tests).
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Session) {
		s.sleep = fn
	}
}

// WithClock replaces the time source used for one-time codes (tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Session) {
		s.now = fn
	}
}

func New(logger *zap.Logger, driver Driver, cfg Config, opts ...Option) *Session {
	s := &Session{
		driver: driver,
		cfg:    cfg,
		logger: logger,
		state:  StateInit,

		mfaWindow:        10 * time.Second,
		readinessTimeout: 30 * time.Second,
		pollInterval:     time.Second,
		interactDelay:    time.Second,
		postSubmitDelay:  5 * time.Second,

		sleep: time.Sleep,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current state of the login flow.
func (s *Session) State() State { return s.state }

// Authenticate drives the flow to a terminal state. On success the session
// is Authenticated and Evaluate becomes usable; any failure leaves it
// Failed. The browser itself stays open; the caller owns Close.
func (s *Session) Authenticate(ctx context.Context) error {
	if err := s.authenticate(ctx); err != nil {
		s.transition(StateFailed)
		return err
	}
	s.transition(StateAuthenticated)
	return nil
}

func (s *Session) authenticate(ctx context.Context) error {
	s.logger.Info("navigating to login page", zap.String("url", s.cfg.LoginURL))
	if err := s.driver.Navigate(ctx, s.cfg.LoginURL); err != nil {
		return errors.Wrap(err, "navigate to login page")
	}

	// no structural ready signal exists, wait a fixed settle delay
	s.sleep(s.cfg.SettleDelay)
	s.transition(StateAwaitingCredentials)

	if err := s.click(ctx, signInWithEmailStrategies, "sign in with email"); err != nil {
		return err
	}
	s.sleep(s.interactDelay)

	if err := s.fill(ctx, emailFieldStrategies, "email field", s.cfg.Email); err != nil {
		return err
	}
	s.sleep(s.interactDelay)

	if err := s.fill(ctx, passwordFieldStrategies, "password field", s.cfg.Password.Reveal()); err != nil {
		return err
	}
	s.sleep(s.interactDelay)

	if err := s.click(ctx, credentialsSubmitStrategies, "sign in"); err != nil {
		return err
	}
	s.transition(StateCredentialsSubmitted)
	s.sleep(s.postSubmitDelay)

	if !s.cfg.MFAKey.IsZero() {
		required, err := s.mfaRequired(ctx)
		if err != nil {
			return err
		}
		if required {
			s.transition(StateAwaitingMFA)
			if err := s.completeMFA(ctx); err != nil {
				return err
			}
		} else {
			s.logger.Info("no MFA challenge detected, continuing")
		}
	}

	return s.awaitReady(ctx)
}

// Evaluate runs script in the authenticated page context.
func (s *Session) Evaluate(ctx context.Context, script string) error {
	if s.state != StateAuthenticated {
		return ErrNotAuthenticated
	}
	return s.driver.Evaluate(ctx, script, nil)
}

func (s *Session) transition(next State) {
	s.logger.Debug("session state change", zap.Stringer("from", s.state), zap.Stringer("to", next))
	s.state = next
}

// locate tries strategies in order and returns the first that matches.
func (s *Session) locate(ctx context.Context, strategies []Strategy, control string) (Strategy, error) {
	for _, strategy := range strategies {
		n, err := s.driver.Count(ctx, strategy)
		if err != nil {
			s.logger.Debug("locator strategy errored",
				zap.String("control", control), zap.Stringer("by", strategy.By), zap.Error(err))
			continue
		}
		if n > 0 {
			s.logger.Debug("control located",
				zap.String("control", control), zap.Stringer("by", strategy.By))
			return strategy, nil
		}
	}
	return Strategy{}, errors.Wrapf(ErrControlNotFound, "control %q", control)
}

func (s *Session) click(ctx context.Context, strategies []Strategy, control string) error {
	strategy, err := s.locate(ctx, strategies, control)
	if err != nil {
		return err
	}
	return errors.Wrapf(s.driver.Click(ctx, strategy), "click %q", control)
}

func (s *Session) fill(ctx context.Context, strategies []Strategy, control, value string) error {
	strategy, err := s.locate(ctx, strategies, control)
	if err != nil {
		return err
	}
	return errors.Wrapf(s.driver.Fill(ctx, strategy, value), "fill %q", control)
}

// mfaRequired polls for the one-time-code input group within a bounded
// window. Absent within the window means a non-MFA account.
func (s *Session) mfaRequired(ctx context.Context) (bool, error) {
	present := false
	err := s.poll(ctx, s.mfaWindow, func(ctx context.Context) (bool, error) {
		n, err := s.driver.Count(ctx, otpInputStrategy)
		if err != nil {
			return false, err
		}
		present = n > 0
		return present, nil
	})
	if err != nil && !errors.Is(err, errPollTimeout) {
		return false, errors.Wrap(err, "detect MFA challenge")
	}
	return present, nil
}

// completeMFA submits a one-time code and retries exactly once with a fresh
// code if the first was rejected. The retry only happens when the fresh
// code actually differs, i.e. the TOTP window rolled over; an identical
// code would fail the same way.
func (s *Session) completeMFA(ctx context.Context) error {
	code, err := GenerateTOTP(s.cfg.MFAKey, s.now())
	if err != nil {
		return errors.Wrap(err, "generate one-time code")
	}

	for attempt := 0; ; attempt++ {
		if err := s.submitCode(ctx, code); err != nil {
			return err
		}
		s.transition(StateMFASubmitted)
		s.sleep(s.postSubmitDelay)

		n, err := s.driver.Count(ctx, otpInputStrategy)
		if err != nil {
			return errors.Wrap(err, "check one-time code inputs")
		}
		if n == 0 {
			s.logger.Info("one-time code accepted")
			return nil
		}

		if attempt >= 1 {
			return ErrMFARejected
		}

		fresh, err := GenerateTOTP(s.cfg.MFAKey, s.now())
		if err != nil || fresh == code {
			// same code window, retrying cannot change the outcome
			return ErrMFARejected
		}

		s.logger.Warn("one-time code rejected, retrying with fresh code")
		code = fresh
	}
}

// submitCode distributes the code one character per input field and
// activates the submit control.
func (s *Session) submitCode(ctx context.Context, code string) error {
	n, err := s.driver.Count(ctx, otpInputStrategy)
	if err != nil {
		return errors.Wrap(err, "count one-time code inputs")
	}
	if n != len(code) {
		s.logger.Warn("one-time code input count differs from code length",
			zap.Int("inputs", n), zap.Int("code_length", len(code)))
	}

	for i, digit := range code {
		if i >= n {
			break
		}
		if err := s.driver.FillNth(ctx, otpInputStrategy, i, string(digit)); err != nil {
			return errors.Wrapf(err, "fill one-time code input %d", i)
		}
	}

	return s.click(ctx, mfaSubmitStrategies, "submit one-time code")
}

// awaitReady polls for the planner's write function in the page's global
// context, the readiness signal that login fully completed.
func (s *Session) awaitReady(ctx context.Context) error {
	s.logger.Info("waiting for the write function to appear",
		zap.Duration("timeout", s.readinessTimeout))

	err := s.poll(ctx, s.readinessTimeout, func(ctx context.Context) (bool, error) {
		var ready bool
		if err := s.driver.Evaluate(ctx, readinessScript, &ready); err != nil {
			s.logger.Debug("readiness probe failed", zap.Error(err))
			return false, nil
		}
		return ready, nil
	})
	if errors.Is(err, errPollTimeout) {
		return ErrReadinessTimeout
	}
	return err
}

var errPollTimeout = errors.New("poll timed out")

// poll runs pred at the session's poll interval for at most the given
// window. Iteration-bounded so injected sleeps keep it deterministic.
func (s *Session) poll(ctx context.Context, window time.Duration, pred func(context.Context) (bool, error)) error {
	iterations := int(window / s.pollInterval)
	if iterations < 1 {
		iterations = 1
	}

	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := pred(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		s.sleep(s.pollInterval)
	}

	return errPollTimeout
}
