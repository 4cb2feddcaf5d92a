package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/component"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		members []Status
		want    string
	}{
		{
			name: "all healthy",
			members: []Status{
				NewHealthy("capture", "ok"),
				NewHealthy("hub", "ok"),
			},
			want: "healthy",
		},
		{
			name: "one degraded",
			members: []Status{
				NewHealthy("capture", "ok"),
				NewDegraded("upload", "errors on record"),
			},
			want: "degraded",
		},
		{
			name: "unhealthy dominates degraded",
			members: []Status{
				NewDegraded("upload", "errors on record"),
				NewUnhealthy("capture", "device lost"),
			},
			want: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("videoproc", tt.members)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, "videoproc", got.Component)
			assert.Len(t, got.SubStatuses, len(tt.members))
		})
	}
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate("videoproc", nil)
	assert.True(t, got.IsHealthy())
	assert.Equal(t, "no components registered", got.Message)
	assert.Empty(t, got.SubStatuses)
}

func TestAggregate_CopiesMembers(t *testing.T) {
	members := []Status{NewHealthy("hub", "ok")}
	got := Aggregate("videoproc", members)

	members[0].Status = "unhealthy"
	assert.Equal(t, "healthy", got.SubStatuses[0].Status)
}

func TestAggregate_DegradedIsOperational(t *testing.T) {
	got := Aggregate("videoproc", []Status{NewDegraded("upload", "errors on record")})
	assert.True(t, got.Healthy)
	assert.True(t, got.IsDegraded())
}

func TestReport(t *testing.T) {
	checks := map[string]component.HealthStatus{
		"upload": {
			Healthy:    true,
			ErrorCount: 1,
			LastError:  "put failed against nats://edge-host:4222",
		},
		"capture": {
			Healthy:   true,
			LastCheck: time.Now(),
			Uptime:    time.Minute,
		},
		"hub": {
			Healthy:   true,
			LastCheck: time.Now(),
		},
	}

	report := Report("videoproc", checks)

	assert.True(t, report.IsDegraded())
	require.Len(t, report.SubStatuses, 3)

	names := make([]string, 0, len(report.SubStatuses))
	for _, sub := range report.SubStatuses {
		names = append(names, sub.Component)
	}
	assert.Equal(t, []string{"capture", "hub", "upload"}, names, "sorted by component")

	upload := report.SubStatuses[2]
	assert.True(t, upload.IsDegraded())
	assert.Equal(t, "put failed against [URL]", upload.Message)
}

func TestReport_Empty(t *testing.T) {
	report := Report("videoproc", nil)
	assert.True(t, report.IsHealthy())
}
