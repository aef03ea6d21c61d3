//go:build !windows
// +build !windows

package signals

import (
	"os/signal"
	"syscall"
)

func init() {
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
}

// Handle blocks, dispatching each SIGINT/SIGTERM to the registered interrupt
// handlers, until StopHandle closes sigChan.
func Handle() {
	for range sigChan {
		handleInterrupted()
	}
}
