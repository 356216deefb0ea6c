package notifier

import (
	"context"
	"flag"
	"net"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("notifier", flag.ContinueOnError)
	t.Setenv("HRDESK_NOTIFIER_SUBJECT_ID", "emp-7")
	t.Setenv("HRDESK_NOTIFIER_SOUND_LOCATIONS", "sounds/a.ogg, sounds/b.wav")

	cfg, err := ParseConfig(fs, []string{"-push-url", "wss://push.example.test", "-reminder-gap", "2s", "-lang", "pt-BR"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.SubjectID != "emp-7" {
		t.Fatalf("subject id = %q, want %q", cfg.SubjectID, "emp-7")
	}
	if cfg.PushURL != "wss://push.example.test" {
		t.Fatalf("push url = %q, want %q", cfg.PushURL, "wss://push.example.test")
	}
	if cfg.ReminderGap != 2*time.Second {
		t.Fatalf("reminder gap = %v, want 2s", cfg.ReminderGap)
	}
	if cfg.Language != "pt-BR" {
		t.Fatalf("language = %q, want %q", cfg.Language, "pt-BR")
	}
	if len(cfg.SoundLocations) != 2 || cfg.SoundLocations[1] != "sounds/b.wav" {
		t.Fatalf("sound locations = %v", cfg.SoundLocations)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("notifier", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:8470" {
		t.Fatalf("http addr = %q, want %q", cfg.HTTPAddr, "127.0.0.1:8470")
	}
	if cfg.CheckInterval != time.Minute {
		t.Fatalf("check interval = %v, want 1m", cfg.CheckInterval)
	}
	if cfg.PushMaxAttempts != 10 {
		t.Fatalf("push max attempts = %d, want 10", cfg.PushMaxAttempts)
	}
	if cfg.PushDedupTTL != 5*time.Second {
		t.Fatalf("push dedup ttl = %v, want 5s", cfg.PushDedupTTL)
	}
	if !cfg.ClickActions {
		t.Fatal("expected click actions enabled by default")
	}
	if cfg.SoundLocations != nil {
		t.Fatalf("sound locations = %v, want none", cfg.SoundLocations)
	}
}

func TestParseConfig_CORSOriginsFlag(t *testing.T) {
	fs := flag.NewFlagSet("notifier", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, []string{"-cors-origins", "http://localhost:5173,,http://127.0.0.1:5173"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("cors origins = %v, want 2 entries", cfg.CORSAllowedOrigins)
	}
}

func TestParseConfig_RejectsUnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("notifier", flag.ContinueOnError)
	fs.SetOutput(nopWriter{})

	if _, err := ParseConfig(fs, []string{"-nope"}); err == nil {
		t.Fatal("expected unknown flag error")
	}
}

func TestHealthCheck_FailsWithoutServer(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	if err := HealthCheck(context.Background(), Config{HealthAddr: addr}); err == nil {
		t.Fatal("expected health check error without a running notifier")
	}
}

func TestParseConfig_HealthCheckFlag(t *testing.T) {
	fs := flag.NewFlagSet("notifier", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, []string{"-healthcheck", "-health-addr", "127.0.0.1:9471"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if !cfg.HealthCheck {
		t.Fatal("expected healthcheck mode")
	}
	if cfg.HealthAddr != "127.0.0.1:9471" {
		t.Fatalf("health addr = %q, want %q", cfg.HealthAddr, "127.0.0.1:9471")
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
