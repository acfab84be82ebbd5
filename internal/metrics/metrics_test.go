package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterWith_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterWith(reg) })

	AdmissionDecisions.WithLabelValues("allow").Inc()
	AdmissionDecisions.WithLabelValues("deny").Inc()
	AdmissionDecisions.WithLabelValues("deny").Inc()
	SessionsRecorded.Inc()
	RemainingSeconds.Set(1800)

	assert.Equal(t, 1.0, testutil.ToFloat64(AdmissionDecisions.WithLabelValues("allow")))
	assert.Equal(t, 2.0, testutil.ToFloat64(AdmissionDecisions.WithLabelValues("deny")))
	assert.Equal(t, 1800.0, testutil.ToFloat64(RemainingSeconds))
}

func TestRegisterWith_DuplicatePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterWith(reg)
	assert.Panics(t, func() { RegisterWith(reg) })
}
