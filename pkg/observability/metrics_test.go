package observability_test

import (
	"testing"

	"github.com/aretw0/wizard/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	m.Load("g1", true)
	m.Load("g1", false)
	m.Load("g1", false)
	m.Transition("g1", observability.DirectionNext)
	m.ValidationFailed("g1")
	m.Submission("g1", observability.OutcomeSuccess)
	m.StoreError("save")
	m.Upload("ok")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues("g1", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Loads.WithLabelValues("g1", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("g1", "next")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationFailures.WithLabelValues("g1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("g1", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues("save")))

	n, err := testutil.GatherAndCount(reg, "wizard_sessions_loaded_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *observability.Metrics
	assert.NotPanics(t, func() {
		m.Load("g1", true)
		m.Transition("g1", observability.DirectionJump)
		m.ValidationFailed("g1")
		m.Submission("g1", observability.OutcomeInvalid)
		m.StoreError("load")
		m.Upload("rejected")
	})
}
