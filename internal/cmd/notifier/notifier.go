// Package notifier parses notifier command flags and launches the notifier runtime.
package notifier

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/hrdesk/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/hrdesk/internal/platform/grpc"
	"github.com/louisbranch/hrdesk/internal/platform/timeouts"
	notifierapp "github.com/louisbranch/hrdesk/internal/services/notifications/app"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Config holds notifier command configuration.
type Config struct {
	HTTPAddr              string        `env:"HRDESK_NOTIFIER_HTTP_ADDR" envDefault:"127.0.0.1:8470"`
	HealthAddr            string        `env:"HRDESK_NOTIFIER_HEALTH_ADDR" envDefault:"127.0.0.1:8471"`
	DBPath                string        `env:"HRDESK_NOTIFIER_DB_PATH" envDefault:"data/notifier.db"`
	SubjectID             string        `env:"HRDESK_NOTIFIER_SUBJECT_ID"`
	BackendURL            string        `env:"HRDESK_NOTIFIER_BACKEND_URL" envDefault:"http://localhost:3000/api"`
	BackendToken          string        `env:"HRDESK_NOTIFIER_BACKEND_TOKEN"`
	PushURL               string        `env:"HRDESK_NOTIFIER_PUSH_URL"`
	PushMaxAttempts       int           `env:"HRDESK_NOTIFIER_PUSH_MAX_ATTEMPTS" envDefault:"10"`
	CalendarSourceURL     string        `env:"HRDESK_NOTIFIER_CALENDAR_SOURCE_URL"`
	AttendanceSourceURL   string        `env:"HRDESK_NOTIFIER_ATTENDANCE_SOURCE_URL"`
	CheckInterval         time.Duration `env:"HRDESK_NOTIFIER_CHECK_INTERVAL" envDefault:"60s"`
	RulesPath             string        `env:"HRDESK_NOTIFIER_RULES_PATH"`
	Language              string        `env:"HRDESK_NOTIFIER_LANGUAGE" envDefault:"en"`
	ReminderGap           time.Duration `env:"HRDESK_NOTIFIER_REMINDER_GAP" envDefault:"5s"`
	PushGap               time.Duration `env:"HRDESK_NOTIFIER_PUSH_GAP" envDefault:"0s"`
	PushDedupTTL          time.Duration `env:"HRDESK_NOTIFIER_PUSH_DEDUP_TTL" envDefault:"5s"`
	SoundLocations        []string      `env:"HRDESK_NOTIFIER_SOUND_LOCATIONS" envSeparator:","`
	AssetDir              string        `env:"HRDESK_NOTIFIER_ASSET_DIR"`
	Icon                  string        `env:"HRDESK_NOTIFIER_ICON"`
	AppURL                string        `env:"HRDESK_NOTIFIER_APP_URL"`
	Permission            string        `env:"HRDESK_NOTIFIER_PERMISSION" envDefault:"default"`
	SoundAfterInteraction bool          `env:"HRDESK_NOTIFIER_SOUND_AFTER_INTERACTION" envDefault:"false"`
	ClickActions          bool          `env:"HRDESK_NOTIFIER_CLICK_ACTIONS" envDefault:"true"`
	CORSAllowedOrigins    []string      `env:"HRDESK_NOTIFIER_CORS_ALLOWED_ORIGINS" envSeparator:","`
	// HealthCheck probes a running notifier instead of starting one.
	HealthCheck bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	soundLocations := strings.Join(cfg.SoundLocations, ",")
	corsOrigins := strings.Join(cfg.CORSAllowedOrigins, ",")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The Host API listen address")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "The gRPC health server listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The notifier SQLite database path")
	fs.StringVar(&cfg.SubjectID, "subject-id", cfg.SubjectID, "The employee id to notify; remembered across restarts")
	fs.StringVar(&cfg.BackendURL, "backend-url", cfg.BackendURL, "The notifications REST base URL")
	fs.StringVar(&cfg.PushURL, "push-url", cfg.PushURL, "The realtime push server URL")
	fs.IntVar(&cfg.PushMaxAttempts, "push-max-attempts", cfg.PushMaxAttempts, "Reconnect attempts per push outage")
	fs.StringVar(&cfg.CalendarSourceURL, "calendar-source-url", cfg.CalendarSourceURL, "The calendar events data source URL")
	fs.StringVar(&cfg.AttendanceSourceURL, "attendance-source-url", cfg.AttendanceSourceURL, "The attendance data source URL")
	fs.DurationVar(&cfg.CheckInterval, "check-interval", cfg.CheckInterval, "Reminder polling interval")
	fs.StringVar(&cfg.RulesPath, "rules", cfg.RulesPath, "Reminder rules YAML file")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "Notification language (en, pt-BR)")
	fs.DurationVar(&cfg.ReminderGap, "reminder-gap", cfg.ReminderGap, "Minimum gap before a reminder alert; negative disables")
	fs.DurationVar(&cfg.PushGap, "push-gap", cfg.PushGap, "Minimum gap before a push alert")
	fs.DurationVar(&cfg.PushDedupTTL, "push-dedup-ttl", cfg.PushDedupTTL, "Window in which duplicate push events are dropped")
	fs.StringVar(&soundLocations, "sound", soundLocations, "Comma separated notification sound locations, tried in order")
	fs.StringVar(&cfg.AssetDir, "asset-dir", cfg.AssetDir, "Directory relative sound locations resolve against")
	fs.StringVar(&cfg.Icon, "icon", cfg.Icon, "Notification icon")
	fs.StringVar(&cfg.AppURL, "app-url", cfg.AppURL, "URL opened when an alert is clicked")
	fs.StringVar(&cfg.Permission, "permission", cfg.Permission, "Notification permission policy: granted, denied or default")
	fs.BoolVar(&cfg.SoundAfterInteraction, "sound-after-interaction", cfg.SoundAfterInteraction, "Hold sound until the first user interaction")
	fs.BoolVar(&cfg.ClickActions, "click-actions", cfg.ClickActions, "Wait for alert clicks where the platform supports it")
	fs.StringVar(&corsOrigins, "cors-origins", corsOrigins, "Comma separated origins allowed to call the Host API")
	fs.BoolVar(&cfg.HealthCheck, "healthcheck", false, "Probe the running notifier's health server and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.SoundLocations = splitList(soundLocations)
	cfg.CORSAllowedOrigins = splitList(corsOrigins)
	return cfg, nil
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

// Run starts the notifier runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceNotifier, func(ctx context.Context) error {
		return notifierapp.Run(ctx, notifierapp.RuntimeConfig{
			HTTPAddr:              cfg.HTTPAddr,
			HealthAddr:            cfg.HealthAddr,
			DBPath:                cfg.DBPath,
			SubjectID:             cfg.SubjectID,
			BackendURL:            cfg.BackendURL,
			BackendToken:          cfg.BackendToken,
			PushURL:               cfg.PushURL,
			PushMaxAttempts:       cfg.PushMaxAttempts,
			CalendarSourceURL:     cfg.CalendarSourceURL,
			AttendanceSourceURL:   cfg.AttendanceSourceURL,
			CheckInterval:         cfg.CheckInterval,
			RulesPath:             cfg.RulesPath,
			Language:              cfg.Language,
			ReminderGap:           cfg.ReminderGap,
			PushGap:               cfg.PushGap,
			PushDedupTTL:          cfg.PushDedupTTL,
			SoundLocations:        cfg.SoundLocations,
			AssetDir:              cfg.AssetDir,
			Icon:                  cfg.Icon,
			AppURL:                cfg.AppURL,
			Permission:            cfg.Permission,
			SoundAfterInteraction: cfg.SoundAfterInteraction,
			ClickActions:          cfg.ClickActions,
			CORSAllowedOrigins:    cfg.CORSAllowedOrigins,
		})
	})
}

// HealthCheck probes the health server of a running notifier and fails unless
// its runtime reports SERVING.
func HealthCheck(ctx context.Context, cfg Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.HealthCheck)
	defer cancel()
	status, err := platformgrpc.Probe(ctx, cfg.HealthAddr, notifierapp.HealthServiceRuntime)
	if err != nil {
		return err
	}
	if status != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", platformgrpc.ErrNotServing, status)
	}
	return nil
}
