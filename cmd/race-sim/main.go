package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/racetime/internal/racesim"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := racesim.NewCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
