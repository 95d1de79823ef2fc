package execution

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeLabel = "outcome"

const (
	outcomeExecuted = "executed"
	outcomeFailed   = "failed"
	outcomeRefused  = "refused"
)

type metrics struct {
	executions   *prometheus.CounterVec
	instructions prometheus.Counter
	duration     prometheus.Histogram
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mesh",
				Name:      "executions_total",
				Help:      "number of execution requests by outcome",
			},
			[]string{outcomeLabel},
		),
		instructions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "mesh",
				Name:      "instructions_executed_total",
				Help:      "number of instructions executed successfully",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "mesh",
				Name:      "execution_duration_seconds",
				Help:      "time spent running instruction batches",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
	for _, c := range []prometheus.Collector{m.executions, m.instructions, m.duration} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) refused() {
	m.executions.With(prometheus.Labels{outcomeLabel: outcomeRefused}).Inc()
}

func (m *metrics) observe(start time.Time, instructions int, err error) {
	m.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.executions.With(prometheus.Labels{outcomeLabel: outcomeFailed}).Inc()
		return
	}
	m.executions.With(prometheus.Labels{outcomeLabel: outcomeExecuted}).Inc()
	m.instructions.Add(float64(instructions))
}
