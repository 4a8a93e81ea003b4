//go:build windows

package shutdown

import (
	"context"
	"os"
	"os/signal"
)

// Context returns a context cancelled on interrupt. SIGTERM does not
// exist on Windows.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
