package advisor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quixlabs/loginforge/internal/browser"
	"github.com/quixlabs/loginforge/internal/config"
)

// fakeCompleter returns canned results and records the last request.
type fakeCompleter struct {
	result  CompletionResult
	err     error
	lastReq CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (CompletionResult, error) {
	f.lastReq = req
	return f.result, f.err
}

func newTestAdvisor(c Completer) *Advisor {
	cfg := config.NewDefaultConfig().Advisor
	return New(c, cfg, zap.NewNop())
}

func TestLocate(t *testing.T) {
	snap := browser.PageSnapshot{
		Markup: `<input type="email" id="email">`,
		Styles: "input { display: block; }",
		URL:    "https://example.com/login",
	}

	t.Run("parses a well-formed guess", func(t *testing.T) {
		fake := &fakeCompleter{result: CompletionResult{
			Text:       `{"selector": "input#email", "confidence": "high", "reasoning": "typed email input"}`,
			TokensUsed: 321,
		}}

		guess, tokens, err := newTestAdvisor(fake).Locate(context.Background(), TargetEmailInput, snap, "")
		require.NoError(t, err)
		assert.Equal(t, "input#email", guess.Selector)
		assert.Equal(t, ConfidenceHigh, guess.Confidence)
		assert.Equal(t, 321, tokens)
	})

	t.Run("accepts a fenced json response", func(t *testing.T) {
		fake := &fakeCompleter{result: CompletionResult{
			Text: "```json\n{\"selector\": \"input[name='user']\", \"confidence\": \"medium\", \"reasoning\": \"named input\"}\n```",
		}}

		guess, _, err := newTestAdvisor(fake).Locate(context.Background(), TargetEmailInput, snap, "")
		require.NoError(t, err)
		assert.Equal(t, "input[name='user']", guess.Selector)
	})

	t.Run("malformed response is an advisor failure, not a crash", func(t *testing.T) {
		fake := &fakeCompleter{result: CompletionResult{
			Text:       "I think the selector might be input#email.",
			TokensUsed: 57,
		}}

		_, tokens, err := newTestAdvisor(fake).Locate(context.Background(), TargetEmailInput, snap, "")
		require.Error(t, err)
		assert.Equal(t, ErrKindMalformed, KindOf(err))
		// Tokens are still accounted for even though the step failed.
		assert.Equal(t, 57, tokens)
	})

	t.Run("missing selector field is malformed", func(t *testing.T) {
		fake := &fakeCompleter{result: CompletionResult{
			Text: `{"confidence": "high", "reasoning": "no idea which element"}`,
		}}

		_, _, err := newTestAdvisor(fake).Locate(context.Background(), TargetEmailInput, snap, "")
		require.Error(t, err)
		assert.Equal(t, ErrKindMalformed, KindOf(err))
	})

	t.Run("deadline errors are classified as timeouts", func(t *testing.T) {
		fake := &fakeCompleter{err: fmt.Errorf("call: %w", context.DeadlineExceeded)}

		_, _, err := newTestAdvisor(fake).Locate(context.Background(), TargetEmailInput, snap, "")
		require.Error(t, err)
		assert.Equal(t, ErrKindTimeout, KindOf(err))
	})

	t.Run("service errors are classified as network", func(t *testing.T) {
		fake := &fakeCompleter{err: errors.New("upstream 503")}

		_, _, err := newTestAdvisor(fake).Locate(context.Background(), TargetEmailInput, snap, "")
		require.Error(t, err)
		assert.Equal(t, ErrKindNetwork, KindOf(err))
	})

	t.Run("prior failure hint lands in the prompt", func(t *testing.T) {
		fake := &fakeCompleter{result: CompletionResult{
			Text: `{"selector": "input#login", "confidence": "low", "reasoning": "second try"}`,
		}}

		_, _, err := newTestAdvisor(fake).Locate(context.Background(), TargetEmailInput, snap,
			`Previous selector 'input#email' failed: timeout`)
		require.NoError(t, err)
		assert.Contains(t, fake.lastReq.UserPrompt, "Previous selector 'input#email' failed")
		assert.Contains(t, fake.lastReq.UserPrompt, snap.Markup)
		assert.Contains(t, fake.lastReq.SystemPrompt, "email")
	})

	t.Run("oversized markup is truncated before prompting", func(t *testing.T) {
		cfg := config.NewDefaultConfig().Advisor
		cfg.MaxMarkupBytes = 64
		fake := &fakeCompleter{result: CompletionResult{
			Text: `{"selector": "input", "confidence": "low", "reasoning": ""}`,
		}}
		a := New(fake, cfg, zap.NewNop())

		bigSnap := snap
		for len(bigSnap.Markup) < 4096 {
			bigSnap.Markup += "<div>padding</div>"
		}
		_, _, err := a.Locate(context.Background(), TargetEmailInput, bigSnap, "")
		require.NoError(t, err)
		assert.Less(t, len(fake.lastReq.UserPrompt), 4096)
	})
}

func TestVerify(t *testing.T) {
	t.Run("parses a verdict", func(t *testing.T) {
		fake := &fakeCompleter{result: CompletionResult{
			Text:       `{"logged_in": true, "confidence": "high", "reasoning": "profile visible", "next_action": "proceed"}`,
			TokensUsed: 120,
		}}

		verdict, tokens, err := newTestAdvisor(fake).Verify(context.Background(),
			"https://app.example.com/home", "Home", `<div class="UserProfile">Jane</div>`)
		require.NoError(t, err)
		assert.True(t, verdict.LoggedIn)
		assert.Equal(t, ConfidenceHigh, verdict.Confidence)
		assert.Equal(t, 120, tokens)
	})

	t.Run("verification markup is capped", func(t *testing.T) {
		fake := &fakeCompleter{result: CompletionResult{
			Text: `{"logged_in": false, "confidence": "low", "reasoning": "", "next_action": ""}`,
		}}
		a := newTestAdvisor(fake)

		markup := "<div>"
		for len(markup) < 3*verifyMarkupLimit {
			markup += "xxxxxxxxxx"
		}
		_, _, err := a.Verify(context.Background(), "https://x.test", "T", markup)
		require.NoError(t, err)
		assert.Less(t, len(fake.lastReq.UserPrompt), 2*verifyMarkupLimit)
	})

	t.Run("malformed verdict surfaces as malformed error", func(t *testing.T) {
		fake := &fakeCompleter{result: CompletionResult{Text: "logged in: probably"}}

		_, _, err := newTestAdvisor(fake).Verify(context.Background(), "https://x.test", "T", "<html></html>")
		require.Error(t, err)
		assert.Equal(t, ErrKindMalformed, KindOf(err))
	})
}
