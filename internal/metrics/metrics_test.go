package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBind(t *testing.T) {
	m := New()
	m.RecordBind("CRM_DEAL_DETAIL_TAB", true)
	m.RecordBind("CRM_DEAL_DETAIL_TAB", true)
	m.RecordBind("CRM_DEAL_DETAIL_TAB", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.binds.WithLabelValues("CRM_DEAL_DETAIL_TAB", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.binds.WithLabelValues("CRM_DEAL_DETAIL_TAB", OutcomeFailure)))
}

func TestRecordRequest(t *testing.T) {
	m := New()
	m.RecordRequest("batch", true, 20*time.Millisecond)
	m.RecordRequest("placement.get", false, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.restRequests.WithLabelValues("batch", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.restRequests.WithLabelValues("placement.get", OutcomeFailure)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordBind("X", true)
		m.RecordUnbind("X", false)
		m.RecordRequest("user.current", true, time.Second)
		m.RecordInstallRequest(true)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RecordUnbind("CRM_LEAD_DETAIL_TAB", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `placekit_placement_unbinds_total{outcome="success",placement="CRM_LEAD_DETAIL_TAB"} 1`)
}
