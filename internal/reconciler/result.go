package reconciler

import (
	"fmt"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/porkddns/providers/porkbun"
)

// Result describes one reconciliation cycle.
type Result struct {
	Site string

	// IP is the resolved public IP, empty if resolution failed.
	IP string

	// Outcome of the root record update.
	Outcome porkbun.Outcome

	// Subdomains is the list retrieved from the provider this cycle.
	Subdomains []string

	// Updated lists the subdomains whose update request was sent, in order.
	Updated []string

	startTime time.Time
	endTime   time.Time
}

// NewResult creates a Result with the start time set to now.
func NewResult(site string) *Result {
	return &Result{
		Site:      site,
		startTime: time.Now(),
	}
}

// Complete marks the cycle finished.
func (r *Result) Complete() {
	r.endTime = time.Now()
}

// StartTime returns when the cycle started.
func (r *Result) StartTime() time.Time {
	return r.startTime
}

// Duration returns how long the cycle took, or the elapsed time if it is still running.
func (r *Result) Duration() time.Duration {
	if r.endTime.IsZero() {
		return time.Since(r.startTime)
	}
	return r.endTime.Sub(r.startTime)
}

// Changed reports whether the root record was updated.
func (r *Result) Changed() bool {
	return r.Outcome == porkbun.OutcomeUpdated
}

// String returns a one-line summary.
func (r *Result) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: ip=%s root=%s", r.Site, r.IP, r.Outcome)
	if r.Changed() {
		fmt.Fprintf(&sb, " subdomains=%d/%d", len(r.Updated), len(r.Subdomains))
	}
	fmt.Fprintf(&sb, " duration=%s", r.Duration().Round(time.Millisecond))
	return sb.String()
}
