// Package grpc probes the notifier's gRPC health endpoint.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// ErrNotServing is returned when a probed service reports anything but SERVING.
var ErrNotServing = errors.New("service is not serving")

const maxProbeBackoff = time.Second

// Probe dials addr once and returns the health status of service. The empty
// service name asks for the overall server status.
func Probe(ctx context.Context, addr string, service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := gogrpc.NewClient(
		addr,
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, fmt.Errorf("dial health %s: %w", addr, err)
	}
	defer conn.Close()

	response, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, fmt.Errorf("check health %s: %w", addr, err)
	}
	return response.GetStatus(), nil
}

// WaitServing polls addr until service reports SERVING or ctx ends.
func WaitServing(ctx context.Context, addr string, service string, logf func(string, ...any)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	backoff := 100 * time.Millisecond
	for {
		callCtx, cancel := context.WithTimeout(ctx, time.Second)
		status, err := Probe(callCtx, addr, service)
		cancel()
		if err == nil && status == grpc_health_v1.HealthCheckResponse_SERVING {
			return nil
		}
		if logf != nil {
			if err != nil {
				logf("waiting for %q health: %v", service, err)
			} else {
				logf("waiting for %q health: status %s", service, status)
			}
		}

		select {
		case <-ctx.Done():
			if err == nil {
				err = fmt.Errorf("%w: %s", ErrNotServing, status)
			}
			return fmt.Errorf("wait for %q health: %w", service, errors.Join(err, ctx.Err()))
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxProbeBackoff)
	}
}
