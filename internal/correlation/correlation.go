// Package correlation assigns and propagates the per-request
// Correlation ID (§3) and records the structured audit trail of each
// pipeline decision.
package correlation

import (
	"context"
	"time"

	"github.com/pborman/uuid"
	"github.com/seatrace-io/leg/internal/obslog"
)

// New generates a fresh correlation ID (UUID v4, per §3).
func New() string {
	return uuid.NewRandom().String()
}

// Event is one recorded pipeline outcome (§9: "{event, correlation_id,
// claims_subset, timing, outcome}").
type Event struct {
	Event         string
	CorrelationID string
	LicenseID     string
	Organization  string
	Pillar        string
	Outcome       string
	Reason        string
	Duration      time.Duration

	// Billing fields, populated on a "bill" overage event (§4.E/§4.G);
	// zero-valued on every other event kind.
	Resource     string
	Limit        int64
	Usage        int64
	OverageUnits int64
	RatePerUnit  float64
	Cost         float64
}

// Sink records Events. The structured-log-backed implementation below
// is the default; an alternate Sink (e.g. shipping to an analytics
// pipeline) can be substituted without touching call sites.
type Sink interface {
	Record(ctx context.Context, e Event)
}

var logger = obslog.WithContext("pkg", "correlation")

// LogSink writes Events as structured log lines.
type LogSink struct{}

func (LogSink) Record(_ context.Context, e Event) {
	if e.Event == "billing_overage" {
		logger.Info("billing event",
			"correlation_id", e.CorrelationID,
			"license_id", e.LicenseID,
			"org", e.Organization,
			"resource", e.Resource,
			"limit", e.Limit,
			"usage", e.Usage,
			"overage_units", e.OverageUnits,
			"rate_per_unit", e.RatePerUnit,
			"cost", e.Cost,
		)
		return
	}
	logger.Info("admission decision",
		"event", e.Event,
		"correlation_id", e.CorrelationID,
		"license_id", e.LicenseID,
		"org", e.Organization,
		"pillar", e.Pillar,
		"outcome", e.Outcome,
		"reason", e.Reason,
		"duration_ms", e.Duration.Milliseconds(),
	)
}
