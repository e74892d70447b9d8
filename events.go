package dmn

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/pkg/errors"
)

// Listener is notified before and after decisions, business knowledge models and
// decision tables are evaluated. Listeners must treat the events, including the
// Result and Context they refer to, as read-only.
type Listener interface {
	BeforeEvaluateDecision(e BeforeEvent)
	AfterEvaluateDecision(e AfterEvent)
	BeforeEvaluateBKM(e BeforeEvent)
	AfterEvaluateBKM(e AfterEvent)
	BeforeEvaluateDecisionTable(e BeforeEvent)
	AfterEvaluateDecisionTable(e DecisionTableEvent)
}

// BeforeEvent is delivered immediately before a node's own evaluation logic.
type BeforeEvent struct {
	Kind    Kind
	Name    string
	NodeID  string
	Context *Context
	Result  *Result
}

// AfterEvent is delivered immediately after a node has been evaluated,
// whether it succeeded or not.
type AfterEvent struct {
	BeforeEvent
	Outcome EvaluatorResult
}

// DecisionTableEvent is delivered after a decision table has been evaluated.
type DecisionTableEvent struct {
	AfterEvent
	// 1-based indices of the rules whose input entries matched
	Matches []int
	// 1-based indices of the rules selected by the hit policy
	Selected []int
}

// NopListener implements Listener with methods that do nothing. Embed it to
// implement only some of the callbacks.
type NopListener struct{}

func (NopListener) BeforeEvaluateDecision(BeforeEvent)            {}
func (NopListener) AfterEvaluateDecision(AfterEvent)              {}
func (NopListener) BeforeEvaluateBKM(BeforeEvent)                 {}
func (NopListener) AfterEvaluateBKM(AfterEvent)                   {}
func (NopListener) BeforeEvaluateDecisionTable(BeforeEvent)       {}
func (NopListener) AfterEvaluateDecisionTable(DecisionTableEvent) {}

// ListenerFuncs implements Listener with optional functions; nil functions are skipped.
type ListenerFuncs struct {
	BeforeDecision      func(BeforeEvent)
	AfterDecision       func(AfterEvent)
	BeforeBKM           func(BeforeEvent)
	AfterBKM            func(AfterEvent)
	BeforeDecisionTable func(BeforeEvent)
	AfterDecisionTable  func(DecisionTableEvent)
}

func (f *ListenerFuncs) BeforeEvaluateDecision(e BeforeEvent) {
	if f.BeforeDecision != nil {
		f.BeforeDecision(e)
	}
}

func (f *ListenerFuncs) AfterEvaluateDecision(e AfterEvent) {
	if f.AfterDecision != nil {
		f.AfterDecision(e)
	}
}

func (f *ListenerFuncs) BeforeEvaluateBKM(e BeforeEvent) {
	if f.BeforeBKM != nil {
		f.BeforeBKM(e)
	}
}

func (f *ListenerFuncs) AfterEvaluateBKM(e AfterEvent) {
	if f.AfterBKM != nil {
		f.AfterBKM(e)
	}
}

func (f *ListenerFuncs) BeforeEvaluateDecisionTable(e BeforeEvent) {
	if f.BeforeDecisionTable != nil {
		f.BeforeDecisionTable(e)
	}
}

func (f *ListenerFuncs) AfterEvaluateDecisionTable(e DecisionTableEvent) {
	if f.AfterDecisionTable != nil {
		f.AfterDecisionTable(e)
	}
}

// EventManager dispatches evaluation events to an ordered set of listeners.
// A listener that panics is recovered; the panic is logged and reported as a
// WARN message, and evaluation continues.
//
// Listeners can be added and removed concurrently with dispatch; an evaluation
// that is already dispatching an event uses the listeners registered when the
// dispatch began. A nil *EventManager dispatches nothing.
type EventManager struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewEventManager returns an event manager with the listeners, in order.
func NewEventManager(listeners ...Listener) *EventManager {
	em := &EventManager{}
	em.Add(listeners...)
	return em
}

// Add registers the listeners after the ones already registered.
func (em *EventManager) Add(listeners ...Listener) {
	em.mu.Lock()
	defer em.mu.Unlock()
	for _, l := range listeners {
		if l != nil {
			em.listeners = append(em.listeners, l)
		}
	}
}

// Remove deregisters the listener. Listeners whose values are not comparable,
// such as structs holding slices, cannot be removed; register pointers to them.
func (em *EventManager) Remove(l Listener) bool {
	if l == nil || !reflect.TypeOf(l).Comparable() {
		return false
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	for i, x := range em.listeners {
		if sameListener(x, l) {
			em.listeners = slices.Delete(em.listeners, i, i+1)
			return true
		}
	}
	return false
}

// sameListener compares listeners, treating a comparison that panics on an
// uncomparable field as unequal.
func sameListener(a, b Listener) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// Listeners returns the registered listeners, in order.
func (em *EventManager) Listeners() []Listener {
	if em == nil {
		return nil
	}
	em.mu.RLock()
	defer em.mu.RUnlock()
	return slices.Clone(em.listeners)
}

// Len is the number of registered listeners.
func (em *EventManager) Len() int {
	if em == nil {
		return 0
	}
	em.mu.RLock()
	defer em.mu.RUnlock()
	return len(em.listeners)
}

// notify delivers an event to every listener, in registration order.
func (em *EventManager) notify(r *Result, nodeID string, event string, deliver func(Listener)) {
	for _, l := range em.Listeners() {
		em.deliver(r, nodeID, event, l, deliver)
	}
}

func (em *EventManager) deliver(r *Result, nodeID string, event string, l Listener, deliver func(Listener)) {
	defer func() {
		if p := recover(); p != nil {
			text := fmt.Sprintf("Listener %T failed handling %s event on node '%s'", l, event, nodeID)
			r.AddMessage(SeverityWarn, text, nodeID, errors.WithStack(&Fault{Value: p}))
			r.session.logger.Warn(text, "request", r.id, "node", nodeID, "panic", p)
		}
	}()
	deliver(l)
}

func beforeEvent(n Node, r *Result) BeforeEvent {
	return BeforeEvent{
		Kind:    n.Kind(),
		Name:    n.Name(),
		NodeID:  n.ID(),
		Context: r.Context(),
		Result:  r,
	}
}

func afterEvent(n Node, r *Result, outcome EvaluatorResult) AfterEvent {
	return AfterEvent{BeforeEvent: beforeEvent(n, r), Outcome: outcome}
}

func (em *EventManager) beforeDecision(n Node, r *Result) {
	e := beforeEvent(n, r)
	em.notify(r, n.ID(), "before decision", func(l Listener) { l.BeforeEvaluateDecision(e) })
}

func (em *EventManager) afterDecision(n Node, r *Result, outcome EvaluatorResult) {
	e := afterEvent(n, r, outcome)
	em.notify(r, n.ID(), "after decision", func(l Listener) { l.AfterEvaluateDecision(e) })
}

func (em *EventManager) beforeBKM(n Node, r *Result) {
	e := beforeEvent(n, r)
	em.notify(r, n.ID(), "before bkm", func(l Listener) { l.BeforeEvaluateBKM(e) })
}

func (em *EventManager) afterBKM(n Node, r *Result, outcome EvaluatorResult) {
	e := afterEvent(n, r, outcome)
	em.notify(r, n.ID(), "after bkm", func(l Listener) { l.AfterEvaluateBKM(e) })
}

func (em *EventManager) beforeDecisionTable(n Node, r *Result) {
	e := beforeEvent(n, r)
	em.notify(r, n.ID(), "before decision table", func(l Listener) { l.BeforeEvaluateDecisionTable(e) })
}

func (em *EventManager) afterDecisionTable(n Node, r *Result, outcome EvaluatorResult, matches, selected []int) {
	e := DecisionTableEvent{
		AfterEvent: afterEvent(n, r, outcome),
		Matches:    slices.Clone(matches),
		Selected:   slices.Clone(selected),
	}
	em.notify(r, n.ID(), "after decision table", func(l Listener) { l.AfterEvaluateDecisionTable(e) })
}

// LogListener returns a listener that logs every event at debug level.
func LogListener(logger *slog.Logger) Listener {
	return &logListener{logger: logger}
}

type logListener struct {
	logger *slog.Logger
}

func (l *logListener) before(msg string, e BeforeEvent) {
	l.logger.Debug(msg, "request", e.Result.RequestID(), "node", e.NodeID, "name", e.Name)
}

func (l *logListener) after(msg string, e AfterEvent, attrs ...any) {
	attrs = append([]any{"request", e.Result.RequestID(), "node", e.NodeID, "name", e.Name, "outcome", e.Outcome.Type.String()}, attrs...)
	l.logger.Debug(msg, attrs...)
}

func (l *logListener) BeforeEvaluateDecision(e BeforeEvent) {
	l.before("before evaluate decision", e)
}

func (l *logListener) AfterEvaluateDecision(e AfterEvent) {
	l.after("after evaluate decision", e)
}

func (l *logListener) BeforeEvaluateBKM(e BeforeEvent) {
	l.before("before evaluate bkm", e)
}

func (l *logListener) AfterEvaluateBKM(e AfterEvent) {
	l.after("after evaluate bkm", e)
}

func (l *logListener) BeforeEvaluateDecisionTable(e BeforeEvent) {
	l.before("before evaluate decision table", e)
}

func (l *logListener) AfterEvaluateDecisionTable(e DecisionTableEvent) {
	l.after("after evaluate decision table", e.AfterEvent, "matches", e.Matches, "selected", e.Selected)
}
