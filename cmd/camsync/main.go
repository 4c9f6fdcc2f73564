// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/camsync/internal/cli"
)

func main() {
	// SIGINT/SIGTERM cancel the context, which kills running ffmpeg process groups.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
