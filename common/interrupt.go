package common

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// InterruptedContext is cancelled on interrupt, SIGTERM or SIGQUIT.
func InterruptedContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
}
