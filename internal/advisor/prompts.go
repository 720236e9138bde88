package advisor

import (
	"fmt"
	"strings"
)

// locateSystemPrompt returns the system instruction for an element target.
func locateSystemPrompt(target Target) string {
	var expertise string
	switch target {
	case TargetEmailInput:
		expertise = "finding email and username input fields"
	case TargetEmailContinue:
		expertise = "finding continue/next buttons"
	case TargetPasswordInput:
		expertise = "finding password input fields"
	case TargetSubmitButton:
		expertise = "finding submit buttons"
	default:
		expertise = "analyzing login forms"
	}
	return fmt.Sprintf("You are an expert at %s in HTML. Return only valid JSON.", expertise)
}

const verifySystemPrompt = "You are an expert at verifying login success by analyzing page state. Return only valid JSON."

const guessSchema = `Return ONLY a JSON object with this structure:
{
    "selector": "CSS selector for the element",
    "confidence": "high/medium/low",
    "reasoning": "Brief explanation"
}`

// selectorRules keeps the advisor on standard CSS. Some models like to emit
// jQuery extensions, which the browser cannot resolve.
const selectorRules = `IMPORTANT: Use only standard CSS selectors. DO NOT use jQuery selectors like :contains(), :visible, etc.
Valid CSS selector types: element, .class, #id, [attribute], [attribute='value'], :nth-child(), etc.`

var targetBriefs = map[Target]string{
	TargetEmailInput: `You are analyzing a login page to find the email/username input field.

Identify the CSS selector for the email or username input.

Examples:

HTML: <input type="email" id="email" name="email" placeholder="Email address">
Response: {"selector": "input[type='email']#email", "confidence": "high", "reasoning": "Clear email input with type='email' and id"}

HTML: <input type="text" name="username" placeholder="Email or username" autocomplete="username">
Response: {"selector": "input[autocomplete='username']", "confidence": "high", "reasoning": "autocomplete='username' is standard for email/username fields"}`,

	TargetEmailContinue: `You are analyzing a login page after email entry to find the Continue/Next button.

Many login forms are two-step: enter email first, then click Continue to reveal the password field.
Identify the CSS selector for that Continue/Next button.

Examples:

HTML: <button type="submit" class="continue-btn">Continue</button>
Response: {"selector": "button[type='submit'].continue-btn", "confidence": "high", "reasoning": "Submit button with 'Continue' text after email field"}

HTML: <div role="button" class="action-button">Continue with email</div>
Response: {"selector": "div.action-button[role='button']", "confidence": "medium", "reasoning": "Div with button role containing continue text"}`,

	TargetPasswordInput: `You are analyzing a login page to find the password input field.

Identify the CSS selector for the password input.

Examples:

HTML: <input type="password" id="password" name="password" placeholder="Password">
Response: {"selector": "input[type='password']#password", "confidence": "high", "reasoning": "Clear password input with type='password'"}

HTML: <input type="password" autocomplete="current-password" class="form-input">
Response: {"selector": "input[type='password'][autocomplete='current-password']", "confidence": "high", "reasoning": "Password input with autocomplete attribute"}`,

	TargetSubmitButton: `You are analyzing a login page to find the login/submit button.

Identify the CSS selector for the button that submits the credentials.

Examples:

HTML: <button type="submit" class="login-btn">Log in</button>
Response: {"selector": "button[type='submit'].login-btn", "confidence": "high", "reasoning": "Submit button with 'Log in' text"}

HTML: <button class="primary-button">Continue</button>
Response: {"selector": "button.primary-button", "confidence": "medium", "reasoning": "Primary button, likely the submit button"}`,
}

// locatePrompt renders the user prompt for an element-location request.
func locatePrompt(target Target, markup, styles, hint string) string {
	var sb strings.Builder

	sb.WriteString(targetBriefs[target])
	sb.WriteString("\n\n")
	sb.WriteString(selectorRules)
	sb.WriteString("\n\n")
	sb.WriteString(guessSchema)

	if hint != "" {
		sb.WriteString("\n\nA previous attempt failed. Do not repeat it:\n")
		sb.WriteString(hint)
	}

	sb.WriteString("\n\nNow analyze this HTML:\n\n")
	sb.WriteString(markup)

	if styles != "" {
		sb.WriteString("\n\nPage CSS (for context on visibility and layout):\n\n")
		sb.WriteString(styles)
	}

	sb.WriteString("\n\nReturn ONLY the JSON object:")
	return sb.String()
}

// verifyPrompt renders the user prompt for a login-verification request.
func verifyPrompt(url, title, markup string) string {
	return fmt.Sprintf(`You are verifying if a login attempt was successful.

Analyze the current page state (URL, title, HTML) and determine if the user is now logged in.

Return ONLY a JSON object with this structure:
{
    "logged_in": true/false,
    "confidence": "high/medium/low",
    "reasoning": "Brief explanation",
    "next_action": "What to do next"
}

Examples:

URL: https://app.example.com/home, Title: Home, HTML: <div class="UserProfile">Jane Doe</div>
Response: {"logged_in": true, "confidence": "high", "reasoning": "URL changed to /home with user profile visible", "next_action": "Login successful, proceed"}

URL: https://app.example.com/login, Title: Log in, HTML: <div class="error">Invalid credentials</div>
Response: {"logged_in": false, "confidence": "high", "reasoning": "Still on login page with error message", "next_action": "Login failed, check credentials"}

URL: https://app.example.com/login, Title: Log in, HTML: <div class="loading">Signing you in...</div>
Response: {"logged_in": false, "confidence": "low", "reasoning": "Loading state visible, authentication in progress", "next_action": "Wait and check again"}

Now analyze this page state:

URL: %s
Title: %s
HTML:
%s

Return ONLY the JSON object:`, url, title, markup)
}
