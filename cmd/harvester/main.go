package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-history-harvester/internal/app"
	"go-history-harvester/internal/config"
	"go-history-harvester/internal/model"
)

// One harvest run, meant to be started by cron.
func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start harvester: %v\n", err)
		os.Exit(1)
	}

	summary, err := a.RunOnce(ctx, model.TriggerRequest{})
	if cerr := a.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "close: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "run %s failed: %v\n", summary.RunID, err)
		os.Exit(1)
	}
	fmt.Printf("run %s: %d sources, %d completed, %d failed, %d abandoned, %d records\n",
		summary.RunID, summary.Sources, summary.Completed, summary.Failed, summary.Abandoned, summary.Records)
}
