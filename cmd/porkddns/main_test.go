package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gitlab.bluewillows.net/root/porkddns/internal/config"
	"gitlab.bluewillows.net/root/porkddns/internal/health"
	"gitlab.bluewillows.net/root/porkddns/internal/reconciler"
	"gitlab.bluewillows.net/root/porkddns/providers/porkbun"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

type staticResolver string

func (s staticResolver) Resolve(context.Context) (string, error) { return string(s), nil }

// fakeAPI answers retrieve, edit and ping like the Porkbun API.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/dns/retrieve/example.com", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"SUCCESS","records":[{"name":"www.example.com","type":"A"}]}`)
	})
	mux.HandleFunc("/dns/editByNameType/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"SUCCESS"}`)
	})
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"SUCCESS","yourIp":"203.0.113.5"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthServerWiring(t *testing.T) {
	api := fakeAPI(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		Site:        "example.com",
		Interval:    time.Minute,
		Credentials: porkbun.Credentials{SecretAPIKey: "sk1", APIKey: "pk1"},
		Global:      &config.GlobalConfig{HealthPort: 1},
	}
	client := porkbun.NewClient(cfg.Credentials,
		porkbun.WithBaseURL(api.URL),
		porkbun.WithLogger(logger),
	)
	rec := reconciler.New(staticResolver("203.0.113.5"), client, cfg.Credentials, cfg.Site,
		reconciler.WithConfig(reconciler.Config{Interval: cfg.Interval}),
		reconciler.WithLogger(logger),
	)

	handler := newHealthServer(cfg, rec, client, logger).Handler()

	// Before any cycle the loop is ready but degraded.
	resp := get(t, handler, "/ready")
	var ready health.Response
	decode(t, resp, &ready)
	if resp.Code != http.StatusOK || ready.Status != health.StatusDegraded {
		t.Fatalf("/ready before first cycle = %d %q, want 200 degraded", resp.Code, ready.Status)
	}

	if _, err := rec.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	resp = get(t, handler, "/ready")
	decode(t, resp, &ready)
	if ready.Status != health.StatusReady {
		t.Errorf("/ready after cycle = %q, want ready", ready.Status)
	}

	resp = get(t, handler, "/status")
	var st status
	decode(t, resp, &st)
	if st.Site != "example.com" || st.IP != "203.0.113.5" || st.Outcome != "updated" {
		t.Errorf("/status = %+v", st)
	}
	if len(st.Updated) != 1 || st.Updated[0] != "www" {
		t.Errorf("/status updated = %v, want [www]", st.Updated)
	}
}

func TestRun_ConfigErrorsMakeNoRequests(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		secret    string
		apiKey    string
		wantUsage bool
	}{
		{name: "missing credentials", args: []string{"example.com", "5"}},
		{name: "missing api key", args: []string{"example.com", "5"}, secret: "sk1"},
		{name: "too many arguments", args: []string{"example.com", "5", "extra"}, secret: "sk1", apiKey: "pk1", wantUsage: true},
		{name: "interval overflow", args: []string{"example.com", "307445735"}, secret: "sk1", apiKey: "pk1", wantUsage: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				hits.Add(1)
				_, _ = io.WriteString(w, "203.0.113.5")
			}))
			t.Cleanup(srv.Close)

			t.Chdir(t.TempDir())
			t.Setenv(config.EnvEnvFile, "")
			t.Setenv(config.EnvConfigFile, "")
			t.Setenv(config.EnvHealthPort, "")
			t.Setenv(config.EnvAPIBaseURL, srv.URL)
			t.Setenv(config.EnvIPURL, srv.URL)
			t.Setenv(config.EnvSecretAPIKey, tt.secret)
			t.Setenv(config.EnvAPIKey, tt.apiKey)
			t.Setenv(config.EnvSecretAPIKey+"_FILE", "")
			t.Setenv(config.EnvAPIKey+"_FILE", "")

			err := run(tt.args)
			if err == nil {
				t.Fatal("run() expected error")
			}

			var verr *config.ValidationError
			if tt.wantUsage && !errors.Is(err, config.ErrUsage) {
				t.Errorf("error = %v, want ErrUsage", err)
			}
			if !tt.wantUsage && !errors.As(err, &verr) {
				t.Errorf("error = %v, want *config.ValidationError", err)
			}
			if n := hits.Load(); n != 0 {
				t.Errorf("%d requests sent before failing, want 0", n)
			}
		})
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %s: %v", rec.Body.String(), err)
	}
}
