// File: internal/login/machine.go
package login

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quixlabs/loginforge/internal/advisor"
	"github.com/quixlabs/loginforge/internal/browser"
	"github.com/quixlabs/loginforge/internal/config"
)

const (
	// maxIterations caps budget-charged transitions per session, which are
	// completed browser actions and retry bounces. Advisor analysis moves are
	// free, so the cap leaves headroom for retries on every path.
	maxIterations = 10

	// maxStepRetries caps locate/act attempts for a single form element.
	maxStepRetries = 3

	// maxVerifyRechecks caps the low-confidence re-verification loop.
	maxVerifyRechecks = 3

	passwordProbeSelector = "input[type='password']"
)

// Driver is the browser surface the machine drives. *browser.Driver satisfies
// it; tests substitute a fake.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Snapshot(ctx context.Context) (browser.PageSnapshot, error)
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, value string) error
	HasElement(ctx context.Context, selector string) (bool, error)
	Screenshot(ctx context.Context, dir, name string) (string, error)
	Settle(ctx context.Context, wait time.Duration) error
	Release(ctx context.Context) error
}

// Advisor is the element-location oracle. *advisor.Advisor satisfies it.
type Advisor interface {
	Locate(ctx context.Context, target advisor.Target, snap browser.PageSnapshot, hint string) (advisor.Guess, int, error)
	Verify(ctx context.Context, url, title, markup string) (advisor.Verdict, int, error)
}

// Machine executes one login attempt against one page, one step at a time.
type Machine struct {
	driver  Driver
	advisor Advisor
	cfg     config.BrowserConfig
	out     config.OutputConfig
	logger  *zap.Logger

	verifyRechecks int
}

// NewMachine assembles a machine around an already-launched driver.
func NewMachine(driver Driver, adv Advisor, cfg config.BrowserConfig, out config.OutputConfig, logger *zap.Logger) *Machine {
	return &Machine{
		driver:  driver,
		advisor: adv,
		cfg:     cfg,
		out:     out,
		logger:  logger.Named("login_machine"),
	}
}

// Run executes the session until it reaches a terminal step. The browser
// session is released exactly once on every exit path, the budget caps are
// enforced between steps, and a panic inside a step fails the session instead
// of crashing the process. The returned session is the same pointer, returned
// for call-site convenience; the error reflects only infrastructure failures
// (a failed login is a terminal session state, not an error).
func (m *Machine) Run(ctx context.Context, sess *Session) (*Session, error) {
	defer func() {
		// Release with a fresh context: teardown must proceed even when the
		// caller's context is already cancelled.
		if err := m.driver.Release(context.Background()); err != nil {
			m.logger.Warn("Browser release failed.", zap.Error(err))
		}
	}()

	m.logger.Info("Login session starting.",
		zap.String("session_id", sess.ID),
		zap.String("url", sess.TargetURL),
	)

	for !sess.CurrentStep.IsTerminal() {
		if err := ctx.Err(); err != nil {
			sess.fail(fmt.Sprintf("cancelled while in step %s: %v", sess.CurrentStep, err))
			return sess, err
		}
		if sess.Iterations >= maxIterations {
			sess.fail(fmt.Sprintf("login did not complete within %d iterations; gave up in step %s", maxIterations, sess.CurrentStep))
			break
		}

		m.logger.Info("Executing step.",
			zap.String("step", string(sess.CurrentStep)),
			zap.Int("iteration", sess.Iterations),
			zap.Int("step_retries", sess.StepRetries),
		)
		m.executeStep(ctx, sess)
	}

	m.logger.Info("Login session finished.",
		zap.String("session_id", sess.ID),
		zap.String("outcome", string(sess.Outcome)),
		zap.String("final_step", string(sess.CurrentStep)),
		zap.Int("iterations", sess.Iterations),
		zap.Int("tokens_used", sess.TokensUsed),
	)
	return sess, nil
}

// executeStep dispatches one step, converting a panic into a failed session so
// one bad selector or provider response cannot take the process down.
func (m *Machine) executeStep(ctx context.Context, sess *Session) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Step panicked.",
				zap.String("step", string(sess.CurrentStep)),
				zap.Any("panic", r),
			)
			sess.fail(fmt.Sprintf("internal error in step %s: %v", sess.CurrentStep, r))
		}
	}()

	switch sess.CurrentStep {
	case StepInit:
		m.stepInit(ctx, sess)
	case StepFindEmail:
		m.stepLocate(ctx, sess, advisor.TargetEmailInput, StepEnterEmail)
	case StepEnterEmail:
		m.stepEnterEmail(ctx, sess)
	case StepFindEmailContinue:
		m.stepFindEmailContinue(ctx, sess)
	case StepClickEmailContinue:
		m.stepClick(ctx, sess, StepFindEmailContinue, StepFindPassword, "clicked email continue button")
	case StepFindPassword:
		m.stepLocate(ctx, sess, advisor.TargetPasswordInput, StepEnterPassword)
	case StepEnterPassword:
		m.stepEnterPassword(ctx, sess)
	case StepFindSubmit:
		m.stepLocate(ctx, sess, advisor.TargetSubmitButton, StepClickSubmit)
	case StepClickSubmit:
		m.stepClickSubmit(ctx, sess)
	case StepVerifyLogin:
		m.stepVerifyLogin(ctx, sess)
	default:
		sess.fail(fmt.Sprintf("unknown step %q", sess.CurrentStep))
	}
}

// stepInit navigates to the target page and takes the first snapshot.
func (m *Machine) stepInit(ctx context.Context, sess *Session) {
	if err := m.driver.Navigate(ctx, sess.TargetURL); err != nil {
		sess.fail(fmt.Sprintf("failed to open %s: %v", sess.TargetURL, err))
		return
	}
	if !m.observe(ctx, sess) {
		return
	}
	sess.advance(StepFindEmail, "opened login page")
}

// stepLocate asks the advisor for a target element and transitions into the
// step that acts on it. An advisor failure here is fatal: the retry budget
// belongs to the action steps, which route back through the locator with a
// failure hint.
func (m *Machine) stepLocate(ctx context.Context, sess *Session, target advisor.Target, next Step) {
	guess, tokens, err := m.advisor.Locate(ctx, target, sess.page, sess.LastError)
	sess.TokensUsed += tokens
	if err != nil {
		m.logger.Warn("Advisor call failed.",
			zap.String("target", string(target)),
			zap.String("kind", string(advisor.KindOf(err))),
			zap.Error(err),
		)
		sess.fail(fmt.Sprintf("advisor could not locate %s: %v", target, err))
		return
	}
	m.logger.Info("Advisor located element.",
		zap.String("target", string(target)),
		zap.String("selector", guess.Selector),
		zap.String("confidence", string(guess.Confidence)),
	)
	sess.guide(next, guess)
}

// stepEnterEmail fills the identifier into the advised selector. A failed fill
// routes back to find_email with the failure as a hint, up to three round
// trips; the fourth attempt switches to synthesized keystrokes, and only when
// those also fail does the session die.
func (m *Machine) stepEnterEmail(ctx context.Context, sess *Session) {
	selector := sess.Guidance.Selector
	if sess.StepRetries >= maxStepRetries {
		m.logger.Warn("Email fill exhausted retries, falling back to keystrokes.",
			zap.String("selector", selector),
		)
		if err := m.driver.Type(ctx, selector, sess.Credentials.Identifier); err != nil {
			sess.fail(fmt.Sprintf("could not enter email after %d attempts: %v", maxStepRetries, err))
			return
		}
	} else if err := m.driver.Fill(ctx, selector, sess.Credentials.Identifier); err != nil {
		sess.retryVia(StepFindEmail, fmt.Sprintf("selector %q did not accept input: %v", selector, err))
		return
	}
	if !m.settleAndObserve(ctx, sess, m.cfg.SettleWait) {
		return
	}
	sess.advance(StepFindEmailContinue, fmt.Sprintf("entered email into %s", selector))
}

// stepFindEmailContinue handles the fork between single-page and two-phase
// login forms. If a password field is already present there is no continue
// button to find, so the machine skips straight to locating it.
func (m *Machine) stepFindEmailContinue(ctx context.Context, sess *Session) {
	present, err := m.driver.HasElement(ctx, passwordProbeSelector)
	if err != nil {
		m.logger.Warn("Password field probe failed.", zap.Error(err))
	}
	if present {
		m.logger.Info("Password field already on page, skipping continue button.")
		sess.skip(StepFindPassword, "password field already present")
		return
	}
	m.stepLocate(ctx, sess, advisor.TargetEmailContinue, StepClickEmailContinue)
}

// stepClick clicks the advised element. A failed click routes back to the
// locating step with the failure as a hint; the fourth failure is fatal.
func (m *Machine) stepClick(ctx context.Context, sess *Session, locator, next Step, action string) {
	selector := sess.Guidance.Selector
	if err := m.driver.Click(ctx, selector); err != nil {
		if sess.StepRetries >= maxStepRetries {
			sess.fail(fmt.Sprintf("could not click %q after %d retries: %v", selector, maxStepRetries, err))
			return
		}
		sess.retryVia(locator, fmt.Sprintf("selector %q was not clickable: %v", selector, err))
		return
	}
	if !m.settleAndObserve(ctx, sess, m.cfg.SettleWait) {
		return
	}
	sess.advance(next, fmt.Sprintf("%s %s", action, selector))
}

// stepEnterPassword fills the secret. Unlike the email step it falls back to
// keystrokes on the first fill failure: the page is already mid-flow and
// bouncing back through the advisor here risks re-triggering anti-bot checks.
func (m *Machine) stepEnterPassword(ctx context.Context, sess *Session) {
	selector := sess.Guidance.Selector
	if err := m.driver.Fill(ctx, selector, sess.Credentials.Secret); err != nil {
		m.logger.Warn("Password fill failed, falling back to keystrokes.",
			zap.String("selector", selector),
		)
		if typeErr := m.driver.Type(ctx, selector, sess.Credentials.Secret); typeErr != nil {
			sess.fail(fmt.Sprintf("could not enter password: %v", typeErr))
			return
		}
	}
	if !m.settleAndObserve(ctx, sess, m.cfg.SettleWait) {
		return
	}
	sess.advance(StepFindSubmit, "entered password")
}

// stepClickSubmit clicks the submit button, waits out the longer post-submit
// settle, captures an evidence screenshot, and hands off to verification.
func (m *Machine) stepClickSubmit(ctx context.Context, sess *Session) {
	selector := sess.Guidance.Selector
	if err := m.driver.Click(ctx, selector); err != nil {
		sess.fail(fmt.Sprintf("could not click submit %q: %v", selector, err))
		return
	}
	if !m.settleAndObserve(ctx, sess, m.cfg.SubmitSettleWait) {
		return
	}
	if _, err := m.driver.Screenshot(ctx, m.out.ScreenshotDir, screenshotName(sess.ID, "after_login_click")); err != nil {
		m.logger.Warn("Post-submit screenshot failed.", zap.Error(err))
	}
	sess.advance(StepVerifyLogin, fmt.Sprintf("clicked submit button %s", selector))
}

// stepVerifyLogin asks the advisor whether the post-submit page looks logged
// in. A low-confidence negative re-reads the page and asks again a bounded
// number of times, because pages routinely show spinners right after submit.
func (m *Machine) stepVerifyLogin(ctx context.Context, sess *Session) {
	if !m.observe(ctx, sess) {
		return
	}
	verdict, tokens, err := m.advisor.Verify(ctx, sess.page.URL, sess.page.Title, sess.page.Markup)
	sess.TokensUsed += tokens
	if err != nil {
		m.logger.Warn("Verification call failed.",
			zap.String("kind", string(advisor.KindOf(err))),
			zap.Error(err),
		)
		sess.fail(fmt.Sprintf("could not verify login state: %v", err))
		return
	}
	m.logger.Info("Verification verdict.",
		zap.Bool("logged_in", verdict.LoggedIn),
		zap.String("confidence", string(verdict.Confidence)),
		zap.String("reasoning", verdict.Reasoning),
	)

	if verdict.LoggedIn {
		path, err := m.driver.Screenshot(ctx, m.out.ScreenshotDir, screenshotName(sess.ID, "login_success"))
		if err != nil {
			m.logger.Warn("Success screenshot failed.", zap.Error(err))
		}
		sess.SuccessScreenshot = path
		sess.complete(sess.page.URL)
		return
	}

	if verdict.Confidence == advisor.ConfidenceLow && m.verifyRechecks < maxVerifyRechecks {
		m.verifyRechecks++
		m.logger.Info("Low-confidence verdict, re-checking page.",
			zap.Int("recheck", m.verifyRechecks),
		)
		if err := m.driver.Settle(ctx, m.cfg.SettleWait); err != nil {
			m.logger.Warn("Settle before re-check failed.", zap.Error(err))
		}
		sess.retryVia(StepVerifyLogin, fmt.Sprintf("verification inconclusive: %s", verdict.Reasoning))
		return
	}

	reason := verdict.Reasoning
	if reason == "" {
		reason = "page does not look logged in"
	}
	sess.fail(fmt.Sprintf("login not verified: %s", reason))
}

// settleAndObserve waits out the page reaction to an action and refreshes the
// session's snapshot. Returns false when the session was failed.
func (m *Machine) settleAndObserve(ctx context.Context, sess *Session, wait time.Duration) bool {
	if err := m.driver.Settle(ctx, wait); err != nil {
		m.logger.Warn("Settle wait failed.", zap.Error(err))
	}
	return m.observe(ctx, sess)
}

// observe refreshes the session's page snapshot, failing the session when even
// the page state can no longer be read.
func (m *Machine) observe(ctx context.Context, sess *Session) bool {
	snap, err := m.driver.Snapshot(ctx)
	if err != nil {
		sess.fail(fmt.Sprintf("could not read page state: %v", err))
		return false
	}
	sess.observe(snap)
	return true
}

func screenshotName(sessionID, label string) string {
	return fmt.Sprintf("%s_%s.png", sessionID, label)
}
