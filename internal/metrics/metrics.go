package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded per analysis request.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
	OutcomeEmpty    = "empty"
)

type Collector struct {
	analyses      *prometheus.CounterVec
	released      prometheus.Counter
	releaseErrors prometheus.Counter
}

// New registers the pipeline collectors on reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_analyses_total",
			Help: "Analysis requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedback_temp_files_released_total",
			Help: "Temporary files released at the end of a request.",
		}),
		releaseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedback_temp_file_release_errors_total",
			Help: "Temporary files that could not be removed.",
		}),
	}
	reg.MustRegister(c.analyses, c.released, c.releaseErrors)
	return c
}

func (c *Collector) ObserveAnalysis(endpoint, outcome string) {
	c.analyses.WithLabelValues(endpoint, outcome).Inc()
}

func (c *Collector) TempFileReleased(err error) {
	c.released.Inc()
	if err != nil {
		c.releaseErrors.Inc()
	}
}
