package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Context returns a context that is canceled the first time the process
// receives SIGINT or SIGTERM. A second signal is left to the default handler,
// so an impatient user can still kill the process outright.
func Context(
	parent context.Context,
	log logrus.FieldLogger,
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig).Debug("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
