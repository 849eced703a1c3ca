package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveGeneration(KindGuide, 2*time.Second, true)
	pr.ObserveGeneration(KindGuide, time.Second, false)
	pr.ObserveGeneration(KindPlan, 3*time.Second, true)
	pr.IncChatMessage(false)
	pr.IncChatMessage(true)
	pr.IncChatMessage(true)
	pr.ObserveRenderedBlocks(12)
	pr.SetStreamClients(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(pr.generationResults.WithLabelValues("guide", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.generationResults.WithLabelValues("guide", "failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pr.chatMessages.WithLabelValues("true")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pr.streamClients))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 5)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.SetStreamClients(1)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "travelguide_stream_clients 1")
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveGeneration(KindChat, time.Second, true)
	r.IncChatMessage(true)
	r.ObserveRenderedBlocks(1)
	r.SetStreamClients(0)
}
