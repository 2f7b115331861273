// Package metrics provides Prometheus instrumentation for the moderation
// pipeline. It counts evaluated messages, policy violations and enforcement
// actions, and records how long each message takes to evaluate.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesTotal counts messages seen by the dispatcher, labeled by
	// result: "clean", "violation", "exempt", "bot" or "duplicate".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_messages_total",
		Help: "Total number of messages evaluated",
	}, []string{"result"})

	// ViolationsTotal counts policy violations by policy: "link" or "badword".
	ViolationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_violations_total",
		Help: "Total number of policy violations detected",
	}, []string{"policy"})

	// ActionsTotal counts enforcement actions, labeled by action ("delete",
	// "delayed_delete", "warn", "mute") and outcome ("ok" or "error").
	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_actions_total",
		Help: "Total number of enforcement actions attempted",
	}, []string{"action", "outcome"})

	// EvaluationSeconds records the time spent handling one message,
	// platform calls included.
	EvaluationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "modbot_evaluation_seconds",
		Help:    "Time spent handling one inbound message",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})
)

func init() {
	prometheus.MustRegister(
		MessagesTotal,
		ViolationsTotal,
		ActionsTotal,
		EvaluationSeconds,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome maps an action error to the "outcome" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
