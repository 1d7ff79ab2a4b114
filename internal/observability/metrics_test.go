package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/complaints", "GET", 200, 10*time.Millisecond)
	m.RecordError("/api/complaints/:id", "PUT", "ILLEGAL_TRANSITION")
	m.RecordComplaintCreated("health")
	m.RecordComplaintCreated("health")
	m.RecordTransition("submitted", "in_review")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.complaintsCreated.WithLabelValues("health")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("submitted", "in_review")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("PUT", "/api/complaints/:id", "ILLEGAL_TRANSITION")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordComplaintCreated("health")
		m.RecordEventPublished("complaint.created", nil)
	})
}
