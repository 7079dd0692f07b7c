package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every PolicyLens collector. It is separate from the default
// registry so tests can gather it without process-level collectors.
var Registry = prometheus.NewRegistry()

var (
	llmRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "policylens_llm_requests_total",
		Help: "Completion requests by prompt contract and outcome.",
	}, []string{"contract", "outcome"})

	llmDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "policylens_llm_request_duration_seconds",
		Help:    "Completion request latency by prompt contract.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"contract"})

	analysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "policylens_analyses_total",
		Help: "Analyze requests by outcome (valid, invalid, error).",
	}, []string{"outcome"})

	chatTurnsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "policylens_chat_turns_total",
		Help: "Intake chat turns by resulting state.",
	}, []string{"state"})

	emailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "policylens_emails_total",
		Help: "Summary emails by outcome.",
	}, []string{"outcome"})

	pdfRenderedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "policylens_pdf_rendered_total",
		Help: "PDF documents rendered by kind (summary, quote).",
	}, []string{"kind"})
)

func init() {
	Registry.MustRegister(
		llmRequestsTotal,
		llmDuration,
		analysesTotal,
		chatTurnsTotal,
		emailsTotal,
		pdfRenderedTotal,
	)
}

// ObserveLLM records one completion call.
func ObserveLLM(contract string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	llmRequestsTotal.WithLabelValues(contract, outcome).Inc()
	llmDuration.WithLabelValues(contract).Observe(d.Seconds())
}

// IncAnalysis increments the analyze counter for valid, invalid or error.
func IncAnalysis(outcome string) {
	analysesTotal.WithLabelValues(outcome).Inc()
}

// IncChatTurn counts a chat turn by the state it left the conversation in.
func IncChatTurn(state string) {
	chatTurnsTotal.WithLabelValues(state).Inc()
}

// IncEmail counts an email attempt.
func IncEmail(err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	emailsTotal.WithLabelValues(outcome).Inc()
}

// IncPDF counts a rendered PDF.
func IncPDF(kind string) {
	pdfRenderedTotal.WithLabelValues(kind).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
