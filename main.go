// File: main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/quixlabs/loginforge/cmd"
	"github.com/quixlabs/loginforge/internal/observability"
)

func main() {
	// Interrupt signals cancel the context; the login loop notices at its next
	// step boundary and still releases the browser session.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
