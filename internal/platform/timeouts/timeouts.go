// Package timeouts defines shared timeout constants used across the notifier.
// Centralizing these values keeps network budgets consistent between the
// scheduler, push channel and backend client.
package timeouts

import "time"

// BackendRequest caps one REST call to the notifications backend.
const BackendRequest = 10 * time.Second

// SourceFetch caps one reminder data-source fetch.
const SourceFetch = 15 * time.Second

// WebSocketDial caps one push channel dial attempt.
const WebSocketDial = 10 * time.Second

// WebSocketWrite caps one outbound push frame write.
const WebSocketWrite = 5 * time.Second

// AssetLoad caps loading one audio asset candidate.
const AssetLoad = 5 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// NotifyCommand caps one desktop notification helper invocation.
const NotifyCommand = 5 * time.Second

// SoundPlayback caps one notification sound playback.
const SoundPlayback = 30 * time.Second

// AlertClickWait limits how long a rendered alert waits for a click.
const AlertClickWait = 10 * time.Minute

// HealthCheck bounds a command-line probe of the health server.
const HealthCheck = 3 * time.Second
