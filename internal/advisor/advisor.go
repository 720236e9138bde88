// File: internal/advisor/advisor.go

// Package advisor asks a completion service to locate login form elements in
// raw page markup and to judge whether a login attempt succeeded. Every call
// is stateless: all context (markup, styles, prior failure) travels in the
// request, and responses are strict JSON parsed into typed structs.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/quixlabs/loginforge/internal/browser"
	"github.com/quixlabs/loginforge/internal/config"
)

// Target names the element the advisor is asked to locate.
type Target string

const (
	TargetEmailInput    Target = "email_input"
	TargetEmailContinue Target = "email_continue_button"
	TargetPasswordInput Target = "password_input"
	TargetSubmitButton  Target = "submit_button"
)

// Confidence grades how sure the advisor is about its answer.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Guess is the advisor's structured answer for one element target.
type Guess struct {
	Selector   string     `json:"selector"`
	Confidence Confidence `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
}

// Verdict is the advisor's judgement of the post-submit page state.
type Verdict struct {
	LoggedIn   bool       `json:"logged_in"`
	Confidence Confidence `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
	NextAction string     `json:"next_action"`
}

// CompletionRequest is the provider-neutral request shape.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
}

// CompletionResult carries the raw response text and the provider's token count.
type CompletionResult struct {
	Text       string
	TokensUsed int
}

// Completer abstracts the completion provider (OpenAI, Gemini).
// Implementations must request strict JSON-object output.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// Advisor wraps a Completer with the element-location and verification prompts.
type Advisor struct {
	completer   Completer
	logger      *zap.Logger
	temperature float32
	maxMarkup   int
}

// New builds an Advisor over the given completer.
func New(completer Completer, cfg config.AdvisorConfig, logger *zap.Logger) *Advisor {
	return &Advisor{
		completer:   completer,
		logger:      logger.Named("advisor"),
		temperature: cfg.Temperature,
		maxMarkup:   cfg.MaxMarkupBytes,
	}
}

// verifyMarkupLimit bounds the markup sent with a verification request; the
// page head and visible chrome are enough to judge a login state.
const verifyMarkupLimit = 5000

// Locate asks the advisor for a CSS selector identifying the target element on
// the snapshotted page. hint carries the previous failure, if any, so the
// advisor can avoid repeating a bad selector. The returned token count is
// valid even when err is non-nil.
func (a *Advisor) Locate(ctx context.Context, target Target, snap browser.PageSnapshot, hint string) (Guess, int, error) {
	prompt := locatePrompt(target, truncate(snap.Markup, a.maxMarkup), truncate(snap.Styles, a.maxMarkup/4), hint)

	result, err := a.completer.Complete(ctx, CompletionRequest{
		SystemPrompt: locateSystemPrompt(target),
		UserPrompt:   prompt,
		Temperature:  a.temperature,
	})
	if err != nil {
		return Guess{}, result.TokensUsed, classifyCallError(err)
	}

	var guess Guess
	if err := parseJSONResponse(result.Text, &guess); err != nil {
		a.logger.Warn("Advisor returned malformed guess.",
			zap.String("target", string(target)),
			zap.String("raw_response", truncate(result.Text, 500)),
			zap.Error(err),
		)
		return Guess{}, result.TokensUsed, malformed(err)
	}
	if guess.Selector == "" {
		return Guess{}, result.TokensUsed, malformed(fmt.Errorf("response for %s is missing the selector field", target))
	}

	a.logger.Info("Element located.",
		zap.String("target", string(target)),
		zap.String("selector", guess.Selector),
		zap.String("confidence", string(guess.Confidence)),
		zap.Int("tokens_used", result.TokensUsed),
	)
	return guess, result.TokensUsed, nil
}

// Verify asks the advisor whether the current page state represents a
// logged-in session.
func (a *Advisor) Verify(ctx context.Context, url, title, markup string) (Verdict, int, error) {
	result, err := a.completer.Complete(ctx, CompletionRequest{
		SystemPrompt: verifySystemPrompt,
		UserPrompt:   verifyPrompt(url, title, truncate(markup, verifyMarkupLimit)),
		Temperature:  a.temperature,
	})
	if err != nil {
		return Verdict{}, result.TokensUsed, classifyCallError(err)
	}

	var verdict Verdict
	if err := parseJSONResponse(result.Text, &verdict); err != nil {
		a.logger.Warn("Advisor returned malformed verdict.",
			zap.String("raw_response", truncate(result.Text, 500)),
			zap.Error(err),
		)
		return Verdict{}, result.TokensUsed, malformed(err)
	}

	a.logger.Info("Login verification verdict.",
		zap.Bool("logged_in", verdict.LoggedIn),
		zap.String("confidence", string(verdict.Confidence)),
		zap.Int("tokens_used", result.TokensUsed),
	)
	return verdict, result.TokensUsed, nil
}

// jsonBlockRegex tolerates responses that wrap the JSON object in a fenced
// code block despite the JSON-only instruction.
var jsonBlockRegex = regexp.MustCompile("(?s)(?:```json\\s*|)(\\{.*\\})(?:```|)")

func parseJSONResponse(response string, out any) error {
	response = strings.TrimSpace(response)

	payload := response
	if matches := jsonBlockRegex.FindStringSubmatch(response); len(matches) > 1 {
		payload = matches[1]
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("invalid JSON response: %w", err)
	}
	return nil
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
