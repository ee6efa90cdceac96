package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-history-harvester/internal/api"
	"go-history-harvester/internal/app"
	"go-history-harvester/internal/config"
	"go-history-harvester/pkg/router"
)

// @title History Harvester API
// @version 1.0
// @description Status and trigger API of the job history harvester.
// @host localhost:8080
// @BasePath /api/v1
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
	defer a.Close()

	// Create router
	r := router.New(a.Logger())

	// Register API routes
	api.RegisterRoutes(r, a.Handler())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		r.Shutdown(shutdownCtx)
	}()

	// Start server
	if err := r.Start(cfg.API.Listen); err != nil {
		a.Logger().Error("❌ Server error: %v", err)
	}
}
