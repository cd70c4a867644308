package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveFlow(t *testing.T) {
	m := New()
	m.ObserveFlow("sign_in", "")
	m.ObserveFlow("sign_in", "")
	m.ObserveFlow("sign_in", "upstream_timeout")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Flows.WithLabelValues("sign_in", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Flows.WithLabelValues("sign_in", "upstream_timeout")))

	var nilMetrics *Metrics
	nilMetrics.ObserveFlow("sign_in", "")
	nilMetrics.ObserveAvatar("2xx")
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveAvatar("2xx")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tiktok_bridge_avatar_proxy_total{status="2xx"} 1`)
}
