// Package metrics provides a listener that exports decision model evaluation
// metrics to Prometheus.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/ezachrisen/dmn"
	"github.com/prometheus/client_golang/prometheus"
)

// Listener counts and times the evaluations of decisions, business knowledge
// models and decision tables.
//
// Metrics:
//   - <namespace>_evaluations_total: evaluations by kind, name and outcome
//   - <namespace>_evaluation_duration_seconds: evaluation time by kind and name
//   - <namespace>_decision_table_matches: matched rules per decision table evaluation
//
// A Listener can be shared by engines and concurrent evaluations.
type Listener struct {
	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	matches     *prometheus.HistogramVec

	mu sync.Mutex
	// Start times of the evaluations in progress; a node evaluated
	// recursively within one request has one entry per level
	started map[key][]time.Time
}

type key struct {
	request string
	node    string
}

var _ dmn.Listener = (*Listener)(nil)

// NewListener creates the metrics and registers them with the registerer.
// The namespace may be empty.
func NewListener(reg prometheus.Registerer, namespace string) (*Listener, error) {
	l := &Listener{
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Total number of node evaluations",
			},
			[]string{"kind", "name", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Time spent evaluating nodes",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"kind", "name"},
		),
		matches: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "decision_table_matches",
				Help:      "Number of rules matched per decision table evaluation",
				Buckets:   []float64{0, 1, 2, 4, 8, 16},
			},
			[]string{"name"},
		),
		started: map[key][]time.Time{},
	}

	for _, c := range []prometheus.Collector{l.evaluations, l.duration, l.matches} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Listener) start(e dmn.BeforeEvent) {
	k := key{request: e.Result.RequestID(), node: e.NodeID}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started[k] = append(l.started[k], time.Now())
}

func (l *Listener) finish(e dmn.AfterEvent) {
	k := key{request: e.Result.RequestID(), node: e.NodeID}
	kind := e.Kind.String()

	l.mu.Lock()
	stack := l.started[k]
	var began time.Time
	if n := len(stack); n > 0 {
		began = stack[n-1]
		if n == 1 {
			delete(l.started, k)
		} else {
			l.started[k] = stack[:n-1]
		}
	}
	l.mu.Unlock()

	l.evaluations.WithLabelValues(kind, e.Name, strings.ToLower(e.Outcome.Type.String())).Inc()
	if !began.IsZero() {
		l.duration.WithLabelValues(kind, e.Name).Observe(time.Since(began).Seconds())
	}
}

// Evaluations returns the evaluation counter.
func (l *Listener) Evaluations() *prometheus.CounterVec {
	return l.evaluations
}

// InProgress is the number of evaluations that have started but not finished.
func (l *Listener) InProgress() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, s := range l.started {
		n += len(s)
	}
	return n
}

func (l *Listener) BeforeEvaluateDecision(e dmn.BeforeEvent) { l.start(e) }
func (l *Listener) AfterEvaluateDecision(e dmn.AfterEvent)   { l.finish(e) }
func (l *Listener) BeforeEvaluateBKM(e dmn.BeforeEvent)      { l.start(e) }
func (l *Listener) AfterEvaluateBKM(e dmn.AfterEvent)        { l.finish(e) }

func (l *Listener) BeforeEvaluateDecisionTable(e dmn.BeforeEvent) { l.start(e) }

func (l *Listener) AfterEvaluateDecisionTable(e dmn.DecisionTableEvent) {
	l.finish(e.AfterEvent)
	l.matches.WithLabelValues(e.Name).Observe(float64(len(e.Matches)))
}
