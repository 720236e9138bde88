// File: cmd/login.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quixlabs/loginforge/internal/advisor"
	"github.com/quixlabs/loginforge/internal/artifact"
	"github.com/quixlabs/loginforge/internal/browser"
	"github.com/quixlabs/loginforge/internal/config"
	"github.com/quixlabs/loginforge/internal/login"
	"github.com/quixlabs/loginforge/internal/observability"
)

// newLoginCmd creates and configures the `login` command.
func newLoginCmd() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login [url]",
		Short: "Attempts an AI-guided login against the target page",
		Long: `Opens the target page in a browser session and iteratively asks the
configured AI advisor to locate the login form elements, filling and clicking
them until the login is verified or the attempt budget runs out.

Credentials are read from LOGINFORGE_LOGIN_IDENTIFIER and
LOGINFORGE_LOGIN_SECRET; they are never written to artifacts or logs.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlag("advisor.provider", cmd.Flags().Lookup("provider"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Re-resolve the config now that the command flags are bound, so
			// flag values override file and env with the right precedence.
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			targetURL := cfg.Login.URL
			if len(args) > 0 {
				targetURL = args[0]
			}
			if targetURL == "" {
				return fmt.Errorf("a target URL is required (argument or login.url in config)")
			}
			creds := login.Credentials{
				Identifier: cfg.Login.Identifier,
				Secret:     cfg.Login.Secret,
			}
			if creds.Identifier == "" || creds.Secret == "" {
				return fmt.Errorf("credentials are required: set LOGINFORGE_LOGIN_IDENTIFIER and LOGINFORGE_LOGIN_SECRET")
			}

			store, err := artifact.NewStore(cfg.Output, logger)
			if err != nil {
				return err
			}

			completer, err := advisor.NewCompleter(ctx, cfg.Advisor, logger)
			if err != nil {
				return err
			}
			adv := advisor.New(completer, cfg.Advisor, logger)

			driver, err := browser.NewDriver(ctx, cfg.Browser, logger)
			if err != nil {
				return err
			}

			machine := login.NewMachine(driver, adv, cfg.Browser, cfg.Output, logger)
			sess := login.NewSession(targetURL, creds)

			sess, runErr := machine.Run(ctx, sess)

			record := artifact.LoginRecord{
				SessionID:         sess.ID,
				URL:               sess.TargetURL,
				Outcome:           string(sess.Outcome),
				FinalStep:         string(sess.CurrentStep),
				Iterations:        sess.Iterations,
				TokensUsed:        sess.TokensUsed,
				LastAction:        sess.LastAction,
				LastError:         sess.LastError,
				SuccessURL:        sess.SuccessURL,
				SuccessScreenshot: sess.SuccessScreenshot,
			}
			recordPath, saveErr := store.SaveLogin(record)
			if saveErr != nil {
				logger.Warn("Failed to persist login record.", zap.Error(saveErr))
			}

			printLoginSummary(sess, recordPath)

			if runErr != nil {
				if errors.Is(runErr, context.Canceled) {
					return fmt.Errorf("login aborted by user signal")
				}
				return runErr
			}
			if sess.Outcome != login.OutcomeSuccess {
				return fmt.Errorf("login failed: %s", sess.LastError)
			}
			return nil
		},
	}

	loginCmd.Flags().Bool("headless", true, "run the browser without a visible window")
	loginCmd.Flags().String("provider", string(config.ProviderOpenAI), "advisor provider (openai or gemini)")
	return loginCmd
}

func printLoginSummary(sess *login.Session, recordPath string) {
	fmt.Printf("\n=== Login Summary ===\n")
	fmt.Printf("Session:     %s\n", sess.ID)
	fmt.Printf("Outcome:     %s\n", sess.Outcome)
	fmt.Printf("Final step:  %s\n", sess.CurrentStep)
	fmt.Printf("Iterations:  %d\n", sess.Iterations)
	fmt.Printf("Tokens used: %d\n", sess.TokensUsed)
	if sess.LastAction != "" {
		fmt.Printf("Last action: %s\n", sess.LastAction)
	}
	if sess.Outcome == login.OutcomeSuccess {
		fmt.Printf("Post-login URL: %s\n", sess.SuccessURL)
		if sess.SuccessScreenshot != "" {
			fmt.Printf("Screenshot:     %s\n", sess.SuccessScreenshot)
		}
	} else if sess.LastError != "" {
		fmt.Printf("Reason:      %s\n", sess.LastError)
	}
	if recordPath != "" {
		fmt.Printf("Record:      %s\n", recordPath)
	}
}
