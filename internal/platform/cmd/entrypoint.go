// Package cmd holds the startup plumbing shared by hrdesk commands: config
// loading, flag parsing and telemetry around the run loop.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/louisbranch/hrdesk/internal/platform/config"
	"github.com/louisbranch/hrdesk/internal/platform/otel"
)

// ServiceNotifier names the notifier in telemetry resources and logs.
const ServiceNotifier = "notifier"

// EnvFileVariable lists the dotenv files to load, comma separated. When unset
// only ./.env is tried.
const EnvFileVariable = "HRDESK_ENV_FILE"

// telemetryFlushTimeout bounds span export after the run loop returns.
var telemetryFlushTimeout = 5 * time.Second

// ParseConfig loads dotenv files and then environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	if err := config.LoadDotEnv(envFiles()...); err != nil {
		return err
	}
	return config.ParseEnv(cfg)
}

func envFiles() []string {
	raw := strings.TrimSpace(os.Getenv(EnvFileVariable))
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// ParseConfigFromArgs loads defaults from env and then parses flags.
func ParseConfigFromArgs[T any](cfg *T, fs *flag.FlagSet, args []string) error {
	if err := ParseConfig(cfg); err != nil {
		return err
	}
	return ParseArgs(fs, args)
}

// RunWithTelemetry sets up tracing for service, runs it and flushes spans on
// the way out. A run that ends because ctx was cancelled is a clean stop.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) (err error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return fmt.Errorf("%s telemetry: %w", service, err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if flushErr := shutdown(flushCtx); flushErr != nil {
			log.Printf("%s otel shutdown: %v", service, flushErr)
		}
	}()

	started := time.Now()
	err = run(ctx)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}
	log.Printf("%s stopped after %v", service, time.Since(started).Round(time.Second))
	return err
}
