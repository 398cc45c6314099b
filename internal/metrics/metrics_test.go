package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New(nil)
	b := New(nil)

	a.IngestChunksTotal.Add(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(a.IngestChunksTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.IngestChunksTotal))
}

func TestHandler_ExposesCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.GenerationAttemptsTotal.WithLabelValues("chapter", "success").Inc()
	m.TopicResetsTotal.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `ragnotes_generation_attempts_total{outcome="success",unit="chapter"} 1`)
	assert.Contains(t, body, "ragnotes_topic_resets_total 1")
}
