// Package main provides the entry point for the docsteps CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/docsteps/internal/exitcode"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := ExecuteContext(ctx)
	if err != nil {
		printError(err)
	}

	stop()
	os.Exit(exitcode.DetermineExitCode(err))
}
