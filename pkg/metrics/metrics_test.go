package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCall(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.ObserveCall("audit_webpage", OutcomeSuccess, 2*time.Second)
	m.ObserveCall("audit_webpage", OutcomeToolError, time.Second)
	m.ObserveCall("get_summary", OutcomeSuccess, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("audit_webpage", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("audit_webpage", OutcomeToolError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.callDuration))
}

func TestObserveViolations(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.ObserveViolations([]string{"critical", "critical", "minor", ""})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.violations.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violations.WithLabelValues("minor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violations.WithLabelValues("unknown")))
}

func TestSessionGauge(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
}

func TestScriptLoads(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.ObserveScriptLoad(nil)
	m.ObserveScriptLoad(errors.New("404"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scriptFetches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scriptFetches.WithLabelValues("error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCall("audit_webpage", OutcomeSuccess, time.Second)
		m.ObserveViolations([]string{"critical"})
		m.SessionOpened()
		m.SessionClosed()
		m.ObserveScriptLoad(nil)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.ObserveCall("get_summary", OutcomeSuccess, time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `a11y_tool_calls_total{outcome="success",tool="get_summary"} 1`)
	assert.Contains(t, string(body), "a11y_browser_sessions_active 0")
	assert.Contains(t, string(body), "go_goroutines")
}
