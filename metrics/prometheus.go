package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	generationDuration *prom.HistogramVec
	generationResults  *prom.CounterVec
	chatMessages       *prom.CounterVec
	renderedBlocks     prom.Histogram
	streamClients      prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		generationDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "travelguide",
			Name:      "generation_duration_seconds",
			Help:      "Duration of model generation requests",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"kind"}),
		generationResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "travelguide",
			Name:      "generation_results_total",
			Help:      "Generation results by kind and outcome",
		}, []string{"kind", "result"}),
		chatMessages: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "travelguide",
			Name:      "chat_messages_total",
			Help:      "Chat replies by whether the fallback reply was used",
		}, []string{"fallback"}),
		renderedBlocks: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "travelguide",
			Name:      "rendered_blocks",
			Help:      "Number of blocks produced per render",
			Buckets:   prom.ExponentialBuckets(1, 2, 10),
		}),
		streamClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: "travelguide",
			Name:      "stream_clients",
			Help:      "Connected event stream clients",
		}),
	}
	reg.MustRegister(pr.generationDuration, pr.generationResults, pr.chatMessages, pr.renderedBlocks, pr.streamClients)
	return pr
}

func (pr *PrometheusRecorder) ObserveGeneration(kind Kind, d time.Duration, success bool) {
	pr.generationDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
	pr.generationResults.WithLabelValues(string(kind), resultLabel(success)).Inc()
}

func (pr *PrometheusRecorder) IncChatMessage(fallback bool) {
	if fallback {
		pr.chatMessages.WithLabelValues("true").Inc()
		return
	}
	pr.chatMessages.WithLabelValues("false").Inc()
}

func (pr *PrometheusRecorder) ObserveRenderedBlocks(n int) {
	pr.renderedBlocks.Observe(float64(n))
}

func (pr *PrometheusRecorder) SetStreamClients(n int) {
	pr.streamClients.Set(float64(n))
}

// HTTPHandler serves the metrics gathered by g.
func HTTPHandler(g prom.Gatherer) http.Handler {
	if g == nil {
		g = prom.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
