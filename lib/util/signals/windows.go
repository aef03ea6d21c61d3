//go:build windows
// +build windows

package signals

import (
	"os"
	"os/signal"
)

func init() {
	signal.Notify(sigChan, os.Interrupt)
}

// Handle blocks, dispatching each os.Interrupt to the registered interrupt
// handlers, until StopHandle closes sigChan.
func Handle() {
	for range sigChan {
		handleInterrupted()
	}
}
