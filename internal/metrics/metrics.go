package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "hsk"

// Metrics holds the collectors for the learning store. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	recordsInserted *prometheus.CounterVec
	recordsDeleted  prometheus.Counter
	testAttempts    *prometheus.CounterVec
	xpAwarded       prometheus.Counter
	queryDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them in a private registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		recordsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "learning_records_inserted_total",
			Help:      "Learning records appended, by game type.",
		}, []string{"game_type"}),
		recordsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "learning_records_deleted_total",
			Help:      "Learning records removed by clear operations.",
		}),
		testAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "test_attempts_total",
			Help:      "Submitted test attempts, by outcome.",
		}, []string{"outcome"}),
		xpAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xp_awarded_total",
			Help:      "Experience points awarded.",
		}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_query_duration_seconds",
			Help:      "Latency of record store queries.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"query"}),
	}

	m.Registry.MustRegister(
		m.recordsInserted,
		m.recordsDeleted,
		m.testAttempts,
		m.xpAwarded,
		m.queryDuration,
	)
	return m
}

// RecordInserted counts one appended learning record
func (m *Metrics) RecordInserted(gameType string) {
	if m == nil {
		return
	}
	m.recordsInserted.WithLabelValues(gameType).Inc()
}

// RecordsDeleted counts rows removed by a clear operation
func (m *Metrics) RecordsDeleted(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsDeleted.Add(float64(n))
}

// TestAttempt counts one persisted test attempt
func (m *Metrics) TestAttempt(passed bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	m.testAttempts.WithLabelValues(outcome).Inc()
}

// XPAwarded adds awarded experience points
func (m *Metrics) XPAwarded(amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.xpAwarded.Add(float64(amount))
}

// ObserveQuery records how long the named query took since start
func (m *Metrics) ObserveQuery(query string, start time.Time) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

// WriteText writes every registered metric family in the text exposition format
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
