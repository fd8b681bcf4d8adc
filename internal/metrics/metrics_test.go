package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(RoutingDecisions.WithLabelValues("intent"))
	RoutingDecisions.WithLabelValues("intent").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RoutingDecisions.WithLabelValues("intent")))
}

func TestHandler(t *testing.T) {
	JobFires.WithLabelValues("success").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "steward_job_fires_total"))
}
