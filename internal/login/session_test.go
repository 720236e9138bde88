// File: internal/login/session_test.go
package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quixlabs/loginforge/internal/advisor"
)

func TestNewSession(t *testing.T) {
	sess := NewSession("https://example.com/login", Credentials{Identifier: "a@b.c", Secret: "hunter2"})

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, StepInit, sess.CurrentStep)
	assert.Equal(t, OutcomeUnknown, sess.Outcome)
	assert.Zero(t, sess.Iterations)
	assert.Zero(t, sess.StepRetries)
	assert.Zero(t, sess.TokensUsed)
}

func TestCredentialsStringMasksSecret(t *testing.T) {
	creds := Credentials{Identifier: "a@b.c", Secret: "hunter2"}
	s := creds.String()
	assert.Contains(t, s, "a@b.c")
	assert.NotContains(t, s, "hunter2")
}

func TestSessionTransitions(t *testing.T) {
	t.Run("advance resets retry state", func(t *testing.T) {
		sess := NewSession("https://example.com", Credentials{})
		sess.StepRetries = 2
		sess.LastError = "previous selector was wrong"

		sess.advance(StepFindEmail, "opened login page")

		assert.Equal(t, StepFindEmail, sess.CurrentStep)
		assert.Equal(t, 1, sess.Iterations)
		assert.Zero(t, sess.StepRetries)
		assert.Empty(t, sess.LastError)
		assert.Equal(t, "opened login page", sess.LastAction)
	})

	t.Run("guide preserves retry state and is budget-free", func(t *testing.T) {
		sess := NewSession("https://example.com", Credentials{})
		sess.CurrentStep = StepFindEmail
		sess.Iterations = 3
		sess.StepRetries = 2
		sess.LastError = "selector did not accept input"

		sess.guide(StepEnterEmail, advisor.Guess{Selector: "#email", Confidence: advisor.ConfidenceHigh})

		assert.Equal(t, StepEnterEmail, sess.CurrentStep)
		assert.Equal(t, 3, sess.Iterations, "advisor analysis must not consume the iteration budget")
		assert.Equal(t, 2, sess.StepRetries, "a guided transition must not grant a fresh retry budget")
		assert.Equal(t, "selector did not accept input", sess.LastError)
		require.NotNil(t, sess.Guidance)
		assert.Equal(t, "#email", sess.Guidance.Selector)
	})

	t.Run("skip resets retry state and is budget-free", func(t *testing.T) {
		sess := NewSession("https://example.com", Credentials{})
		sess.CurrentStep = StepFindEmailContinue
		sess.Iterations = 2
		sess.StepRetries = 1
		sess.LastError = "previous selector was wrong"

		sess.skip(StepFindPassword, "password field already present")

		assert.Equal(t, StepFindPassword, sess.CurrentStep)
		assert.Equal(t, 2, sess.Iterations)
		assert.Zero(t, sess.StepRetries)
		assert.Empty(t, sess.LastError)
		assert.Equal(t, "password field already present", sess.LastAction)
	})

	t.Run("retryVia increments both counters", func(t *testing.T) {
		sess := NewSession("https://example.com", Credentials{})
		sess.CurrentStep = StepEnterEmail
		sess.Iterations = 3

		sess.retryVia(StepFindEmail, "element was not fillable")

		assert.Equal(t, StepFindEmail, sess.CurrentStep)
		assert.Equal(t, 4, sess.Iterations)
		assert.Equal(t, 1, sess.StepRetries)
		assert.Equal(t, "element was not fillable", sess.LastError)
	})

	t.Run("fail is terminal", func(t *testing.T) {
		sess := NewSession("https://example.com", Credentials{})
		sess.fail("gave up")

		assert.Equal(t, StepFailed, sess.CurrentStep)
		assert.Equal(t, OutcomeFailure, sess.Outcome)
		assert.Equal(t, "gave up", sess.LastError)
		assert.True(t, sess.CurrentStep.IsTerminal())
	})

	t.Run("complete is terminal", func(t *testing.T) {
		sess := NewSession("https://example.com", Credentials{})
		sess.LastError = "verification inconclusive: still loading"
		sess.complete("https://example.com/dashboard")

		assert.Equal(t, StepCompleted, sess.CurrentStep)
		assert.Equal(t, OutcomeSuccess, sess.Outcome)
		assert.Equal(t, "https://example.com/dashboard", sess.SuccessURL)
		assert.Empty(t, sess.LastError)
		assert.True(t, sess.CurrentStep.IsTerminal())
	})
}
