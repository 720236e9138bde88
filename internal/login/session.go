// File: internal/login/session.go

// Package login implements the iterative AI-guided login flow: a small state
// machine that alternates between asking the advisor where a form element is
// and driving the browser to interact with it, until the login is verified or
// the attempt budget runs out.
package login

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/quixlabs/loginforge/internal/advisor"
	"github.com/quixlabs/loginforge/internal/browser"
)

// Step is the state machine's current phase within the login flow.
type Step string

const (
	StepInit               Step = "init"
	StepFindEmail          Step = "find_email"
	StepEnterEmail         Step = "enter_email"
	StepFindEmailContinue  Step = "find_email_continue"
	StepClickEmailContinue Step = "click_email_continue"
	StepFindPassword       Step = "find_password"
	StepEnterPassword      Step = "enter_password"
	StepFindSubmit         Step = "find_submit"
	StepClickSubmit        Step = "click_submit"
	StepVerifyLogin        Step = "verify_login"
	StepCompleted          Step = "completed"
	StepFailed             Step = "failed"
)

// IsTerminal reports whether no further transitions can leave this step.
func (s Step) IsTerminal() bool {
	return s == StepCompleted || s == StepFailed
}

// Outcome is the final disposition of a session.
type Outcome string

const (
	OutcomeUnknown Outcome = "unknown"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Credentials holds the login identifier/secret pair. The secret is excluded
// from String formatting so it cannot leak into logs or errors.
type Credentials struct {
	Identifier string
	Secret     string
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Identifier:%s Secret:***}", c.Identifier)
}

// Session is the mutable record threaded through every step of one login
// attempt. It is mutated only through the transition methods below.
type Session struct {
	ID          string
	TargetURL   string
	Credentials Credentials

	CurrentStep Step
	Iterations  int
	StepRetries int

	LastError  string
	LastAction string
	Guidance   *advisor.Guess

	TokensUsed int
	Outcome    Outcome

	SuccessURL        string
	SuccessScreenshot string

	// page is the most recently observed page state; refreshed after every
	// browser action so advisor calls never reason about a stale page.
	page browser.PageSnapshot
}

// NewSession creates a session positioned at the init step.
func NewSession(targetURL string, creds Credentials) *Session {
	return &Session{
		ID:          uuid.New().String(),
		TargetURL:   targetURL,
		Credentials: creds,
		CurrentStep: StepInit,
		Outcome:     OutcomeUnknown,
	}
}

func (s *Session) observe(snap browser.PageSnapshot) { s.page = snap }

// advance moves to the next logical step after a completed browser action,
// charging the iteration budget. The retry counter and failure hint reset;
// they belong to the finished step.
func (s *Session) advance(next Step, action string) {
	s.Iterations++
	s.CurrentStep = next
	s.LastAction = action
	s.StepRetries = 0
	s.LastError = ""
}

// skip advances past a step whose action turned out to be unnecessary. No
// browser action happened, so the iteration budget is not charged.
func (s *Session) skip(next Step, action string) {
	s.CurrentStep = next
	s.LastAction = action
	s.StepRetries = 0
	s.LastError = ""
}

// guide moves from a locating step to its action step, carrying the advisor's
// answer. Analysis is free: only browser actions and retry bounces consume
// the iteration budget. Retries and the failure hint survive, since a guided
// transition is part of the same locate/act sub-flow and resetting here would
// defeat the retry cap.
func (s *Session) guide(next Step, guess advisor.Guess) {
	s.CurrentStep = next
	s.Guidance = &guess
}

// retryVia routes back to the locating step that produced a bad selector,
// recording the failure as the hint for the next advisor call.
func (s *Session) retryVia(locator Step, reason string) {
	s.Iterations++
	s.StepRetries++
	s.CurrentStep = locator
	s.LastError = reason
}

// fail terminates the session with a human-readable reason.
func (s *Session) fail(reason string) {
	s.CurrentStep = StepFailed
	s.LastError = reason
	s.Outcome = OutcomeFailure
}

// complete terminates the session as successfully logged in.
func (s *Session) complete(url string) {
	s.CurrentStep = StepCompleted
	s.SuccessURL = url
	s.Outcome = OutcomeSuccess
	s.LastError = ""
}
