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

func TestRecordHTTPRequest(t *testing.T) {
	c := httpRequestsTotal.WithLabelValues("GET", "/api/test-metric", "200")
	before := testutil.ToFloat64(c)

	RecordHTTPRequest("GET", "/api/test-metric", http.StatusOK, 15*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestRecordOutcomes(t *testing.T) {
	okLogin := authEventsTotal.WithLabelValues("login", "ok")
	failedCreate := todoOperationsTotal.WithLabelValues("create", "error")
	beforeLogin := testutil.ToFloat64(okLogin)
	beforeCreate := testutil.ToFloat64(failedCreate)

	RecordAuthEvent("login", nil)
	RecordTodoOperation("create", errors.New("boom"))

	assert.Equal(t, beforeLogin+1, testutil.ToFloat64(okLogin))
	assert.Equal(t, beforeCreate+1, testutil.ToFloat64(failedCreate))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordHTTPRequest("GET", "/exposed", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "http_requests_total")
}
