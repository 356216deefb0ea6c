// Package main starts the desktop notifier process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	notifiercmd "github.com/louisbranch/hrdesk/internal/cmd/notifier"
	"github.com/louisbranch/hrdesk/internal/platform/config"
)

func main() {
	cfg, err := notifiercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[NOTIFIER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.HealthCheck {
		if err := notifiercmd.HealthCheck(ctx, cfg); err != nil {
			config.Exitf("healthcheck: %v", err)
		}
		return
	}
	if err := notifiercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
