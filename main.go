package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sam-app/cli/cmd"
	"github.com/sam-app/cli/internal/format"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		format.PrintError("%v", err)
		os.Exit(1)
	}
}
