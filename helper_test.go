package dmn_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ezachrisen/dmn"
)

// recorder records the names of the nodes it creates, in the order they are evaluated.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (rec *recorder) record(name string) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.calls = append(rec.calls, name)
}

func (rec *recorder) Calls() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]string(nil), rec.calls...)
}

// value returns a node that records its evaluation and produces v.
func (rec *recorder) value(name string, v any) dmn.Node {
	return dmn.NewFunc(name, "id."+name, func(_ *dmn.EventManager, r *dmn.Result) dmn.EvaluatorResult {
		rec.record(name)
		return dmn.Success(v)
	})
}

// failing returns a node that records its evaluation and fails without a message.
func (rec *recorder) failing(name string) dmn.Node {
	return dmn.NewFunc(name, "id."+name, func(_ *dmn.EventManager, r *dmn.Result) dmn.EvaluatorResult {
		rec.record(name)
		return dmn.Failure(nil)
	})
}

// panicking returns a node that records its evaluation and panics with the value.
func (rec *recorder) panicking(name string, p any) dmn.Node {
	return dmn.NewFunc(name, "id."+name, func(_ *dmn.EventManager, r *dmn.Result) dmn.EvaluatorResult {
		rec.record(name)
		panic(p)
	})
}

// binder returns a node that binds a value in the current context, and produces it.
func binder(name string, v any) dmn.Node {
	return dmn.NewFunc(name, "id."+name, func(_ *dmn.EventManager, r *dmn.Result) dmn.EvaluatorResult {
		r.Context().Set(name, v)
		return dmn.Success(v)
	})
}

// constant returns a literal node producing v.
func constant(id string, v any) dmn.Node {
	return dmn.NewConstant(id, id, v)
}

// variable returns a literal node producing the value bound to the name.
func variable(id, name string) dmn.Node {
	return dmn.NewLiteral(name, id, dmn.Variable(name))
}

// errorTexts returns the texts of the ERROR messages.
func errorTexts(r *dmn.Result) []string {
	var l []string
	for _, m := range r.MessagesWith(dmn.SeverityError) {
		l = append(l, m.Text)
	}
	return l
}

// hasMessage reports whether a message with the severity contains all the fragments.
func hasMessage(r *dmn.Result, s dmn.Severity, fragments ...string) bool {
	for _, m := range r.MessagesWith(s) {
		ok := true
		for _, f := range fragments {
			if !strings.Contains(m.Text, f) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func mustModel(t *testing.T, name string, nodes ...dmn.Node) *dmn.Model {
	t.Helper()
	m, err := dmn.NewModel(name, nodes...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

// eventLog is a listener recording every event as "<phase> <kind> <name>".
type eventLog struct {
	mu     sync.Mutex
	events []string
	tables []dmn.DecisionTableEvent
}

func (l *eventLog) add(phase string, e dmn.BeforeEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf("%s %s %s", phase, e.Kind, e.Name))
}

func (l *eventLog) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) BeforeEvaluateDecision(e dmn.BeforeEvent) { l.add("before", e) }
func (l *eventLog) AfterEvaluateDecision(e dmn.AfterEvent)   { l.add("after", e.BeforeEvent) }
func (l *eventLog) BeforeEvaluateBKM(e dmn.BeforeEvent)      { l.add("before", e) }
func (l *eventLog) AfterEvaluateBKM(e dmn.AfterEvent)        { l.add("after", e.BeforeEvent) }

func (l *eventLog) BeforeEvaluateDecisionTable(e dmn.BeforeEvent) { l.add("before", e) }

func (l *eventLog) AfterEvaluateDecisionTable(e dmn.DecisionTableEvent) {
	l.add("after", e.BeforeEvent)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tables = append(l.tables, e)
}
