package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ByLCY/flowbox/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if stderrors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "flowbox: %s\n", errors.UserMessage(err))
		if code := errors.GetCode(err); code != "" {
			fmt.Fprintf(os.Stderr, "  code: %s\n", code)
		}
		os.Exit(1)
	}
}
