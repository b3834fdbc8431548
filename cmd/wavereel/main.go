// SPDX-License-Identifier: EPL-2.0

// Command wavereel renders narration audio into waveform videos.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}

	if !errors.Is(err, errFilesFailed) {
		fmt.Fprintln(os.Stderr, "wavereel:", err)
	}
	stop()
	os.Exit(1)
}
