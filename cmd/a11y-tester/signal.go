package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a11ytester/a11ytester/pkg/defaults"
)

// signalContext returns a context cancelled on SIGINT/SIGTERM. A second
// signal within gracePeriod exits the process without waiting for
// browsers to close.
func signalContext(stderr io.Writer, gracePeriod time.Duration) (context.Context, context.CancelFunc) {
	return signalContextWithNotifier(stderr, gracePeriod, nil, nil)
}

// sigChan and exitFn override the real signal channel and os.Exit in tests.
func signalContextWithNotifier(
	stderr io.Writer,
	gracePeriod time.Duration,
	sigChan chan os.Signal,
	exitFn func(int),
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	ownChannel := sigChan == nil
	if ownChannel {
		sigChan = make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	}
	if exitFn == nil {
		exitFn = os.Exit
	}

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(stderr)
			fmt.Fprintln(stderr, "Interrupt received, closing browser...")
			cancel()

			select {
			case <-sigChan:
				exitFn(defaults.ExitAuditError)
			case <-time.After(gracePeriod):
			}
		case <-ctx.Done():
		}
		if ownChannel {
			signal.Stop(sigChan)
		}
	}()

	return ctx, cancel
}
