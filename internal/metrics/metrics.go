package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the sealing pipeline's collectors.
type Metrics struct {
	SealsTotal            *prometheus.CounterVec
	SealDuration          prometheus.Histogram
	CertRenderFailures    prometheus.Counter
	WebhookDispatchErrors prometheus.Counter
}

// New registers the pipeline collectors on the given registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SealsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seals_total",
				Help: "Seal operations by terminal result.",
			},
			[]string{"result"},
		),
		SealDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "seal_duration_seconds",
				Help:    "Wall time of a full seal operation.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
		CertRenderFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "certificate_render_failures_total",
				Help: "Certificate renderings swallowed as no-certificate.",
			},
		),
		WebhookDispatchErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "webhook_dispatch_failures_total",
				Help: "Webhook deliveries that failed after a committed seal.",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.SealsTotal,
		m.SealDuration,
		m.CertRenderFailures,
		m.WebhookDispatchErrors,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewUnregistered builds the collectors without a registry, for tests.
func NewUnregistered() *Metrics {
	m, _ := New(prometheus.NewRegistry())
	return m
}
