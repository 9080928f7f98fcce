// Command gamesdesk runs the newsletter games batch: it ingests reader
// submissions from mail, grades them and records the winners.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/okian/gamesdesk/pkg/logger"
)

func main() {
	// A missing .env is normal in deployed environments.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		report(os.Stderr, err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

// report prints err and, when one is attached, the fix for it.
func report(w io.Writer, err error) {
	fmt.Fprintln(w, "error:", err)
	var h interface{ Hint() string }
	if errors.As(err, &h) && h.Hint() != "" {
		fmt.Fprintln(w, "fix:", h.Hint())
	}
}
