// Package reconciler implements the dynamic DNS loop: resolve the public IP,
// push it to the root A record, and mirror it to every subdomain A record
// when the root actually changed.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gitlab.bluewillows.net/root/porkddns/internal/metrics"
	"gitlab.bluewillows.net/root/porkddns/providers/porkbun"
)

// Resolver returns the current public IP address.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// DNSClient is the subset of the Porkbun client the loop drives.
type DNSClient interface {
	ListARecordSubdomains(ctx context.Context, site string) ([]string, error)
	UpdateARecord(ctx context.Context, site, subdomain string, body porkbun.UpdateRequestBody) (porkbun.Outcome, error)
}

// Config holds reconciler configuration options.
type Config struct {
	// Interval is the time between the start of consecutive cycles.
	Interval time.Duration

	// ContinueOnError keeps the loop running after a failed cycle. When false,
	// the first failed cycle ends Run with its error.
	ContinueOnError bool
}

// DefaultConfig returns a Config with a five minute interval that stops on error.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
	}
}

// Reconciler keeps the A records of one site pointed at the current public IP.
//
// A cycle:
//  1. Resolves the public IP
//  2. Lists the site's A record subdomains
//  3. Updates the root A record
//  4. If the root changed, updates each subdomain in list order
//
// There is no state carried between cycles other than the last result, which
// is kept for health reporting.
type Reconciler struct {
	resolver    Resolver
	client      DNSClient
	credentials porkbun.Credentials
	site        string
	config      Config
	logger      *slog.Logger

	mu          sync.RWMutex
	lastResult  *Result
	lastErr     error
	lastSuccess time.Time
}

// Option is a functional option for configuring the Reconciler.
type Option func(*Reconciler)

// WithLogger sets a custom logger for the reconciler.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConfig sets the reconciler configuration.
func WithConfig(cfg Config) Option {
	return func(r *Reconciler) {
		r.config = cfg
	}
}

// New creates a Reconciler for site.
func New(resolver Resolver, client DNSClient, creds porkbun.Credentials, site string, opts ...Option) *Reconciler {
	r := &Reconciler{
		resolver:    resolver,
		client:      client,
		credentials: creds,
		site:        site,
		config:      DefaultConfig(),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RunCycle performs one reconciliation cycle.
//
// A root update reported as unchanged ends the cycle without touching
// subdomains. When the root was updated, subdomains are updated one at a
// time; the first failure aborts the rest of the cycle and is returned.
// The returned Result is never nil and describes how far the cycle got.
func (r *Reconciler) RunCycle(ctx context.Context) (*Result, error) {
	result := NewResult(r.site)

	r.logger.Info("checking IP change", slog.String("site", r.site))

	err := r.runCycle(ctx, result)
	result.Complete()

	metrics.CycleDuration.Observe(result.Duration().Seconds())
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
	} else {
		metrics.CyclesTotal.WithLabelValues(result.Outcome.String()).Inc()
		metrics.LastSuccessTimestamp.SetToCurrentTime()
	}

	r.mu.Lock()
	r.lastResult = result
	r.lastErr = err
	if err == nil {
		r.lastSuccess = result.startTime.Add(result.Duration())
	}
	r.mu.Unlock()

	return result, err
}

func (r *Reconciler) runCycle(ctx context.Context, result *Result) error {
	ip, err := r.resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolving public IP: %w", err)
	}
	result.IP = ip

	body := porkbun.NewUpdateRequestBody(r.credentials, ip)

	// The list is fetched fresh every cycle so added or removed subdomains
	// are picked up without a restart.
	subdomains, err := r.client.ListARecordSubdomains(ctx, r.site)
	if err != nil {
		return fmt.Errorf("listing subdomains of %s: %w", r.site, err)
	}
	result.Subdomains = subdomains

	outcome, err := r.client.UpdateARecord(ctx, r.site, "", body)
	if err != nil {
		metrics.RecordUpdatesTotal.WithLabelValues("root", "error").Inc()
		return fmt.Errorf("updating root record of %s: %w", r.site, err)
	}
	metrics.RecordUpdatesTotal.WithLabelValues("root", outcome.String()).Inc()
	result.Outcome = outcome

	if outcome == porkbun.OutcomeUnchanged {
		r.logger.Info("IP has not changed",
			slog.String("site", r.site),
			slog.String("ip", ip),
		)
		return nil
	}

	r.logger.Info("IP has changed, updating records",
		slog.String("site", r.site),
		slog.String("ip", ip),
		slog.Int("subdomains", len(subdomains)),
	)
	r.logger.Info("root record updated", slog.String("site", r.site))

	// Subdomain outcomes are not inspected: they mirror the root, which just changed.
	for _, sub := range subdomains {
		subOutcome, err := r.client.UpdateARecord(ctx, r.site, sub, body)
		if err != nil {
			metrics.RecordUpdatesTotal.WithLabelValues("subdomain", "error").Inc()
			return fmt.Errorf("updating subdomain %s of %s: %w", sub, r.site, err)
		}
		metrics.RecordUpdatesTotal.WithLabelValues("subdomain", subOutcome.String()).Inc()
		result.Updated = append(result.Updated, sub)

		r.logger.Info("subdomain record updated",
			slog.String("subdomain", sub),
			slog.String("site", r.site),
		)
	}

	return nil
}

// Run executes a cycle immediately and then once per Interval until ctx is
// cancelled. Process termination is the intended way to stop it; Run returns
// nil in that case.
//
// A cycle always finishes before the next one starts. The ticker holds at
// most one pending tick, so a cycle that outlasts Interval is followed
// immediately by the next one and further missed ticks are discarded.
//
// A failed cycle ends Run with its error unless ContinueOnError is set, in
// which case it is logged and the loop waits for the next tick.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.config.Interval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %s", r.config.Interval)
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !r.config.ContinueOnError {
				return err
			}
			r.logger.Error("reconciliation cycle failed",
				slog.String("site", r.site),
				slog.String("error", err.Error()),
			)
		}

		r.logger.Info("next check scheduled",
			slog.String("site", r.site),
			slog.Duration("interval", r.config.Interval),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// LastResult returns the result of the most recent cycle, or nil before the first one.
func (r *Reconciler) LastResult() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastResult
}

// LastError returns the error of the most recent cycle.
func (r *Reconciler) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// LastSuccess returns when the most recent successful cycle finished, or the
// zero time if none has.
func (r *Reconciler) LastSuccess() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSuccess
}

// Interval returns the configured time between cycles.
func (r *Reconciler) Interval() time.Duration {
	return r.config.Interval
}
