package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/hrdesk/internal/platform/timeouts"
	apihttp "github.com/louisbranch/hrdesk/internal/services/notifications/api/http"
	"github.com/louisbranch/hrdesk/internal/services/notifications/backend"
	"github.com/louisbranch/hrdesk/internal/services/notifications/delivery"
	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
	"github.com/louisbranch/hrdesk/internal/services/notifications/identity"
	"github.com/louisbranch/hrdesk/internal/services/notifications/inbox"
	"github.com/louisbranch/hrdesk/internal/services/notifications/platform/desktop"
	"github.com/louisbranch/hrdesk/internal/services/notifications/presentation"
	"github.com/louisbranch/hrdesk/internal/services/notifications/push"
	"github.com/louisbranch/hrdesk/internal/services/notifications/reminder"
	"github.com/louisbranch/hrdesk/internal/services/notifications/render"
	"github.com/louisbranch/hrdesk/internal/services/notifications/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls notifier startup and its collaborators.
type RuntimeConfig struct {
	HTTPAddr            string
	HealthAddr          string
	DBPath              string
	SubjectID           string
	BackendURL          string
	BackendToken        string
	PushURL             string
	PushMaxAttempts     int
	CalendarSourceURL   string
	AttendanceSourceURL string
	CheckInterval       time.Duration
	RulesPath           string
	Language            string
	ReminderGap         time.Duration
	PushGap             time.Duration
	PushDedupTTL        time.Duration
	SoundLocations      []string
	AssetDir            string
	Icon                string
	AppURL              string
	// Permission pins the notification permission: granted, denied or default.
	Permission            string
	SoundAfterInteraction bool
	ClickActions          bool
	CORSAllowedOrigins    []string
}

const (
	defaultHTTPAddr   = "127.0.0.1:8470"
	defaultHealthAddr = "127.0.0.1:8471"
	defaultDBPath     = "data/notifier.db"
)

// Health service names registered on the notifier's gRPC health server.
const (
	HealthServiceRuntime = "notifier.runtime"
	// HealthServicePush is SERVING only while the push channel is connected.
	HealthServicePush = "notifier.push"
)

// Run starts the notifier: inbox, reminders, push channel, the Host API and
// a gRPC health server. It blocks until ctx is done or the Host API fails.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.BackendURL) == "" {
		return fmt.Errorf("backend url is required")
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if strings.TrimSpace(cfg.HealthAddr) == "" {
		cfg.HealthAddr = defaultHealthAddr
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create notifier storage dir: %w", err)
		}
	}
	kv, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open notifier sqlite store: %w", err)
	}
	defer func() {
		if closeErr := kv.Close(); closeErr != nil {
			log.Printf("close notifier sqlite store: %v", closeErr)
		}
	}()

	subjectID, err := identity.Resolve(ctx, kv, cfg.SubjectID)
	if err != nil {
		return fmt.Errorf("resolve subject: %w", err)
	}
	rules, err := reminder.LoadRules(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("load reminder rules: %w", err)
	}

	desktopOpts := desktop.Options{Logf: log.Printf}
	renderer := desktop.NewRenderer(desktopOpts, cfg.ClickActions)
	defer renderer.Close()
	audio := desktop.NewCommandAudio(desktopOpts, cfg.SoundAfterInteraction)
	interactions := presentation.NewInteractionHub()

	manager, err := presentation.New(presentation.Config{
		Permissions:    desktop.NewPermission(desktopOpts, kv, presentation.ParsePermission(cfg.Permission), renderer.Supported),
		Renderer:       renderer,
		Audio:          audio,
		Elements:       audio,
		Assets:         desktop.AssetLoader{BaseDir: cfg.AssetDir},
		Interactions:   interactions,
		Focuser:        desktop.NewFocuser(desktopOpts, cfg.AppURL),
		SoundLocations: cfg.SoundLocations,
		Icon:           cfg.Icon,
		Logf:           log.Printf,
	})
	if err != nil {
		return fmt.Errorf("create presentation manager: %w", err)
	}
	defer func() {
		if closeErr := manager.Close(); closeErr != nil {
			log.Printf("close presentation manager: %v", closeErr)
		}
	}()
	renderer.SetClickHandler(func(tag string) {
		manager.Click(ctx, tag)
	})
	if err := manager.Prepare(ctx); err != nil {
		log.Printf("notifier: prepare notification sound: %v", err)
	}

	client, err := backend.New(backend.Config{BaseURL: cfg.BackendURL, Token: cfg.BackendToken})
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}
	store, err := inbox.New(subjectID, client, log.Printf)
	if err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	if err := store.Load(ctx); err != nil {
		log.Printf("notifier: load inbox: %v", err)
	}
	// The inbox outlives ctx so queued syncs can flush during shutdown.
	storeCtx, cancelStore := context.WithCancel(context.Background())
	defer cancelStore()
	storeDone := make(chan struct{})
	go func() {
		defer close(storeDone)
		if err := store.Run(storeCtx); err != nil {
			log.Printf("notifier: inbox sync: %v", err)
		}
	}()

	queue, err := delivery.New(delivery.Config{
		Presenter:    manager,
		Recorder:     inboxRecorder{store: store},
		Localizer:    render.NewLocalizer(cfg.Language),
		ReminderGap:  cfg.ReminderGap,
		PushGap:      cfg.PushGap,
		PushDedupTTL: cfg.PushDedupTTL,
		Logf:         log.Printf,
	})
	if err != nil {
		return fmt.Errorf("create delivery queue: %w", err)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	var workers sync.WaitGroup
	startWorker := func(fn func()) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			fn()
		}()
	}
	startWorker(func() {
		if err := queue.Run(runCtx); err != nil {
			log.Printf("notifier: delivery queue: %v", err)
		}
	})
	startWorker(func() {
		routeClicks(runCtx, manager.Clicks(), store, log.Printf)
	})

	healthListener, err := net.Listen("tcp", cfg.HealthAddr)
	if err != nil {
		return fmt.Errorf("listen on health addr %s: %w", cfg.HealthAddr, err)
	}
	defer healthListener.Close()
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthServiceRuntime, grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthServicePush, pushServingStatus(domain.ConnectionDisconnected))

	grpcServeErr := make(chan error, 1)
	go func() {
		grpcServeErr <- grpcServer.Serve(healthListener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-grpcServeErr
	}()
	log.Printf("notifier health server listening at %v", healthListener.Addr())

	var channel *push.Channel
	if strings.TrimSpace(cfg.PushURL) != "" {
		channel, err = push.New(push.Config{
			SubjectID:   subjectID,
			MaxAttempts: cfg.PushMaxAttempts,
			Logf:        log.Printf,
			OnEvent: func(event domain.PushEvent) {
				queue.EnqueuePush(event)
			},
			OnStateChange: func(state domain.ConnectionState) {
				healthServer.SetServingStatus(HealthServicePush, pushServingStatus(state))
			},
		})
		if err != nil {
			return fmt.Errorf("create push channel: %w", err)
		}
		if err := channel.Connect(runCtx, cfg.PushURL); err != nil {
			return fmt.Errorf("connect push channel: %w", err)
		}
	} else {
		log.Printf("notifier: push url not configured, realtime events disabled")
	}

	schedulers := []struct {
		rule      reminder.Rule
		sourceURL string
	}{
		{rule: rules.Calendar, sourceURL: cfg.CalendarSourceURL},
		{rule: rules.Attendance, sourceURL: cfg.AttendanceSourceURL},
	}
	source := reminder.NewHTTPSource(nil)
	for _, entry := range schedulers {
		if strings.TrimSpace(entry.sourceURL) == "" {
			log.Printf("notifier: %s source not configured, reminders disabled", entry.rule.Domain())
			continue
		}
		scheduler, err := reminder.New(reminder.Config{
			Rule:   entry.rule,
			Source: source,
			Logf:   log.Printf,
		})
		if err != nil {
			return fmt.Errorf("create %s scheduler: %w", entry.rule.Domain(), err)
		}
		startWorker(func() {
			if err := scheduler.Run(runCtx); err != nil {
				log.Printf("notifier: %s scheduler: %v", scheduler.Domain(), err)
			}
		})
		startWorker(func() {
			forwardReminders(scheduler.Messages(), queue, log.Printf)
		})
		if err := scheduler.Start(reminder.StartConfig{
			DataSourceURL: entry.sourceURL,
			SubjectID:     subjectID,
			CheckInterval: cfg.CheckInterval,
		}); err != nil {
			return fmt.Errorf("start %s scheduler: %w", entry.rule.Domain(), err)
		}
	}

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen on http addr %s: %w", cfg.HTTPAddr, err)
	}
	httpServer := &http.Server{
		Handler: apihttp.NewRouter(apihttp.Deps{
			Inbox:              store,
			Connection:         channel,
			Presentation:       manager,
			Interactions:       interactions,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	httpServeErr := make(chan error, 1)
	go func() {
		httpServeErr <- httpServer.Serve(listener)
	}()
	log.Printf("notifier host api listening at %v for subject %s", listener.Addr(), subjectID)

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-httpServeErr:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serve host api: %w", err)
		}
	}

	if err := channel.Close(); err != nil {
		log.Printf("notifier: close push channel: %v", err)
	}
	queue.Stop()
	cancelRun()
	workers.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("notifier: shutdown host api: %v", err)
	}
	flushInbox(shutdownCtx, store)
	cancelStore()
	<-storeDone
	return serveErr
}

// flushInbox waits for queued backend syncs until ctx expires.
func flushInbox(ctx context.Context, store *inbox.Store) {
	flushed := make(chan struct{})
	go func() {
		store.Wait()
		close(flushed)
	}()
	select {
	case <-flushed:
	case <-ctx.Done():
		log.Printf("notifier: inbox sync still pending at shutdown")
	}
}

func pushServingStatus(state domain.ConnectionState) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if state == domain.ConnectionConnected {
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_NOT_SERVING
}
