// porkddns keeps the A records of a Porkbun-hosted domain pointed at the
// host's current public IP. It checks on a fixed interval, updates the root
// record, and mirrors a change to every A record subdomain.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"gitlab.bluewillows.net/root/porkddns/internal/config"
	"gitlab.bluewillows.net/root/porkddns/internal/health"
	"gitlab.bluewillows.net/root/porkddns/internal/metrics"
	"gitlab.bluewillows.net/root/porkddns/internal/reconciler"
	"gitlab.bluewillows.net/root/porkddns/pkg/httputil"
	"gitlab.bluewillows.net/root/porkddns/pkg/ipresolver"
	"gitlab.bluewillows.net/root/porkddns/providers/porkbun"
)

// Version and BuildDate are set via ldflags during build.
// Example: -ldflags="-X main.Version=v1.0.0 -X main.BuildDate=2026-01-03"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var verr *config.ValidationError
		if errors.Is(err, config.ErrUsage) || errors.As(err, &verr) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			slog.Error("fatal error", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	envFile, err := config.LoadEnvFile()
	if err != nil {
		return err
	}

	// Configuration problems must surface before any network traffic.
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Global.LogLevel, cfg.Global.LogFormat)
	slog.SetDefault(logger)

	metrics.SetBuildInfo(Version, runtime.Version())

	logger.Info("porkddns starting",
		slog.String("version", Version),
		slog.String("build_date", BuildDate),
		slog.String("go_version", runtime.Version()),
		slog.String("site", cfg.Site),
		slog.Duration("interval", cfg.Interval),
		slog.String("ip_method", cfg.Global.IPMethod),
	)
	if envFile != "" {
		logger.Debug("loaded env file", slog.String("path", envFile))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := httputil.NewClient(&httputil.ClientConfig{
		Timeout: cfg.Global.HTTPTimeout,
		Logger:  logger,
	})

	resolver, err := ipresolver.New(ipresolver.Config{
		Method:     cfg.Global.IPMethod,
		URL:        cfg.Global.IPURL,
		STUNServer: cfg.Global.STUNServer,
		DNSServer:  cfg.Global.DNSServer,
	},
		ipresolver.WithHTTPClient(httpClient),
		ipresolver.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("creating IP resolver: %w", err)
	}

	client := porkbun.NewClient(cfg.Credentials,
		porkbun.WithBaseURL(cfg.Global.APIBaseURL),
		porkbun.WithHTTPClient(httpClient),
		porkbun.WithLogger(logger),
	)

	rec := reconciler.New(resolver, client, cfg.Credentials, cfg.Site,
		reconciler.WithConfig(reconciler.Config{
			Interval:        cfg.Interval,
			ContinueOnError: cfg.Global.ContinueOnError,
		}),
		reconciler.WithLogger(logger),
	)

	if cfg.Global.HealthPort > 0 {
		healthServer := newHealthServer(cfg, rec, client, logger)
		if err := healthServer.Start(); err != nil {
			return fmt.Errorf("starting health server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", slog.String("error", err.Error()))
			}
		}()
	}

	if err := rec.Run(ctx); err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	logger.Info("porkddns shutdown complete")
	return nil
}

// newHealthServer wires readiness, staleness and status reporting to the loop.
func newHealthServer(cfg *config.Config, rec *reconciler.Reconciler, client *porkbun.Client, logger *slog.Logger) *health.Server {
	srv := health.New(cfg.Global.HealthPort,
		health.WithLogger(logger),
		health.WithStatus(func() any { return newStatus(cfg, rec) }),
	)

	srv.RegisterChecker("last_cycle", func(_ context.Context) error {
		return rec.LastError()
	})
	// Ping at most once per interval.
	srv.RegisterChecker("porkbun", health.CachedChecker(client.Ping, rec.Interval()))

	srv.RegisterDegradedChecker("staleness", func(_ context.Context) (bool, string) {
		last := rec.LastSuccess()
		if last.IsZero() {
			return true, "no successful cycle yet"
		}
		if age := time.Since(last); age > 2*rec.Interval() {
			return true, fmt.Sprintf("last successful cycle was %s ago", age.Round(time.Second))
		}
		return false, ""
	})

	return srv
}

// status is the /status payload.
type status struct {
	Site        string    `json:"site"`
	Interval    string    `json:"interval"`
	IP          string    `json:"ip,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Updated     []string  `json:"updated,omitempty"`
	LastCycle   time.Time `json:"last_cycle,omitzero"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
}

func newStatus(cfg *config.Config, rec *reconciler.Reconciler) status {
	s := status{
		Site:        cfg.Site,
		Interval:    cfg.Interval.String(),
		LastSuccess: rec.LastSuccess(),
	}
	if res := rec.LastResult(); res != nil {
		s.IP = res.IP
		s.Outcome = res.Outcome.String()
		s.Updated = res.Updated
		s.LastCycle = res.StartTime()
	}
	if err := rec.LastError(); err != nil {
		s.LastError = err.Error()
	}
	return s
}

func setupLogger(level, format string) *slog.Logger {
	logLevel := parseLogLevel(level)

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	return slog.New(handler)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
