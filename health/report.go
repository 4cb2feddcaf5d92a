package health

import (
	"sort"
	"time"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/component"
)

// NewHealthy builds a healthy status.
func NewHealthy(name, message string) Status {
	return Status{
		Component: name,
		Healthy:   true,
		Status:    "healthy",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewDegraded builds a degraded status. Degraded components count as
// operational.
func NewDegraded(name, message string) Status {
	return Status{
		Component: name,
		Healthy:   true,
		Status:    "degraded",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewUnhealthy builds an unhealthy status.
func NewUnhealthy(name, message string) Status {
	return Status{
		Component: name,
		Healthy:   false,
		Status:    "unhealthy",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Aggregate folds component statuses into one system status: any
// unhealthy member makes the system unhealthy, otherwise any degraded
// member makes it degraded, otherwise it is healthy. The input slice
// is copied into the result.
func Aggregate(system string, members []Status) Status {
	if len(members) == 0 {
		return NewHealthy(system, "no components registered")
	}

	var unhealthy, degraded int
	for _, m := range members {
		switch {
		case m.IsUnhealthy():
			unhealthy++
		case m.IsDegraded():
			degraded++
		}
	}

	var status Status
	switch {
	case unhealthy > 0:
		status = NewUnhealthy(system, "one or more components are unhealthy")
	case degraded > 0:
		status = NewDegraded(system, "one or more components are degraded")
	default:
		status = NewHealthy(system, "all components healthy")
	}

	status.SubStatuses = make([]Status, len(members))
	copy(status.SubStatuses, members)
	return status
}

// Report turns one manager health poll into the system report served
// to callers. Sub-statuses are sorted by component name so repeated
// polls compare cleanly.
func Report(system string, components map[string]component.HealthStatus) Status {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)

	members := make([]Status, 0, len(names))
	for _, name := range names {
		members = append(members, FromComponentHealth(name, components[name]))
	}
	return Aggregate(system, members)
}
