// Package health turns raw component health checks into a compact,
// client-safe report. Three states are reported: healthy, degraded
// (operational but with recorded errors, like an upload queue that has
// failed jobs behind it), and unhealthy. Error messages are sanitized
// before they leave the process so device paths, endpoints, and
// credentials never reach a caller.
package health

import (
	"fmt"
	"regexp"
	"time"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/component"
)

// redactions run in order; URLs go first so their embedded paths,
// hosts, and ports are gone before the narrower patterns look.
var redactions = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(https?|nats|wss?)://[^\s]+`), "[URL]"},
	{regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`), "[PATH]"},
	{regexp.MustCompile(`[A-Z]:\\[^:\s]+`), "[PATH]"},
	{regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`), "[IP]"},
	{regexp.MustCompile(`:\d{2,5}\b`), "[PORT]"},
	{regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`), "[REDACTED]"},
}

// Status is one component's reported condition. Healthy means
// operational; a degraded component is operational too, just with
// errors on record.
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics carries the numeric side of a health check.
type Metrics struct {
	Uptime       time.Duration `json:"uptime"`
	ErrorCount   int           `json:"error_count"`
	LastActivity time.Time     `json:"last_activity,omitempty"`
}

// IsHealthy reports whether the status is healthy.
func (s Status) IsHealthy() bool {
	return s.Status == "healthy"
}

// IsDegraded reports whether the status is degraded.
func (s Status) IsDegraded() bool {
	return s.Status == "degraded"
}

// IsUnhealthy reports whether the status is unhealthy.
func (s Status) IsUnhealthy() bool {
	return s.Status == "unhealthy"
}

// WithMetrics returns a copy of the status with metrics attached.
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus returns a copy of the status with one more sub-status.
// The copy owns its own slice.
func (s Status) WithSubStatus(sub Status) Status {
	subs := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(subs, s.SubStatuses)
	s.SubStatuses = append(subs, sub)
	return s
}

// sanitize strips endpoints, filesystem and device paths, addresses,
// and credential fragments from an error message bound for a caller.
func sanitize(msg string) string {
	for _, r := range redactions {
		msg = r.pattern.ReplaceAllString(msg, r.replacement)
	}
	return msg
}

// FromComponentHealth converts one raw health check into a report
// entry. A component that reports healthy while carrying an error
// count is degraded: still serving, but something behind it failed.
func FromComponentHealth(name string, ch component.HealthStatus) Status {
	state := "unhealthy"
	message := "component not operational"
	switch {
	case ch.Healthy && ch.ErrorCount > 0:
		state = "degraded"
		message = fmt.Sprintf("operational with %d recorded errors", ch.ErrorCount)
	case ch.Healthy:
		state = "healthy"
		message = "component operational"
	}
	if ch.LastError != "" {
		message = sanitize(ch.LastError)
	}

	return Status{
		Component: name,
		Healthy:   ch.Healthy,
		Status:    state,
		Message:   message,
		Timestamp: time.Now(),
		Metrics: &Metrics{
			Uptime:       ch.Uptime,
			ErrorCount:   ch.ErrorCount,
			LastActivity: ch.LastCheck,
		},
	}
}
