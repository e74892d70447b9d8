package dmn_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ezachrisen/dmn"
	"github.com/matryer/is"
)

func TestListenerOrder(t *testing.T) {
	is := is.New(t)

	var calls []string
	first := &dmn.ListenerFuncs{BeforeDecision: func(e dmn.BeforeEvent) { calls = append(calls, "first "+e.Name) }}
	second := &dmn.ListenerFuncs{BeforeDecision: func(e dmn.BeforeEvent) { calls = append(calls, "second "+e.Name) }}

	d := dmn.NewDecision("D", "d", constant("d.v", 1))
	dmn.NewEngine(dmn.WithListeners(first, second)).Evaluate(nil, d, nil)
	is.Equal(calls, []string{"first D", "second D"})
}

func TestEventPayload(t *testing.T) {
	is := is.New(t)

	var before dmn.BeforeEvent
	var after dmn.AfterEvent
	l := &dmn.ListenerFuncs{
		BeforeDecision: func(e dmn.BeforeEvent) { before = e },
		AfterDecision:  func(e dmn.AfterEvent) { after = e },
	}

	d := dmn.NewDecision("D", "d", constant("d.v", 7))
	r := dmn.NewEngine(dmn.WithListeners(l)).Evaluate(nil, d, dmn.ContextFrom(map[string]any{"x": 1}))

	is.Equal(before.Kind, dmn.KindDecision)
	is.Equal(before.NodeID, "d")
	is.True(before.Context.Has("x"))
	is.Equal(before.Result, r)
	is.True(after.Outcome.Succeeded())
	is.Equal(after.Outcome.Value, 7)
	is.Equal(after.Name, "D")
}

func TestFailedDecisionEvents(t *testing.T) {
	is := is.New(t)
	rec := &recorder{}
	log := &eventLog{}

	var outcome dmn.EvaluatorResult
	l := &dmn.ListenerFuncs{AfterDecision: func(e dmn.AfterEvent) { outcome = e.Outcome }}

	d := dmn.NewDecision("D", "d", rec.panicking("body", "kaboom"))
	r := dmn.NewEngine(dmn.WithListeners(log, l)).Evaluate(nil, d, nil)

	is.True(!r.Outcome().Succeeded())
	is.Equal(log.Events(), []string{"before decision D", "after decision D"})
	is.Equal(outcome.Type, dmn.ResultFailure)
}

func TestListenerPanic(t *testing.T) {
	is := is.New(t)

	bad := &dmn.ListenerFuncs{BeforeDecision: func(dmn.BeforeEvent) { panic("listener bug") }}
	log := &eventLog{}

	d := dmn.NewDecision("D", "d", constant("d.v", 1))
	r := dmn.NewEngine(dmn.WithListeners(bad, log)).Evaluate(nil, d, nil)

	// The evaluation and the other listeners are unaffected
	is.True(r.Outcome().Succeeded())
	is.True(!r.HasErrors())
	is.Equal(log.Events(), []string{"before decision D", "after decision D"})

	warns := r.MessagesWith(dmn.SeverityWarn)
	is.Equal(len(warns), 1)
	is.Equal(warns[0].Text, "Listener *dmn.ListenerFuncs failed handling before decision event on node 'd'")
	is.Equal(warns[0].SourceID, "d")

	var fault *dmn.Fault
	is.True(errors.As(warns[0].Cause, &fault))
	is.Equal(fault.Value, "listener bug")
}

func TestEventManagerAddRemove(t *testing.T) {
	is := is.New(t)

	a := &dmn.ListenerFuncs{}
	b := &dmn.ListenerFuncs{}
	em := dmn.NewEventManager(a, nil)
	em.Add(b)
	is.Equal(em.Len(), 2)
	is.Equal(em.Listeners(), []dmn.Listener{a, b})

	is.True(em.Remove(a))
	is.True(!em.Remove(a))
	is.Equal(em.Listeners(), []dmn.Listener{b})
	is.True(!em.Remove(nil))

	var nilManager *dmn.EventManager
	is.Equal(nilManager.Len(), 0)
	is.Equal(len(nilManager.Listeners()), 0)
}

func TestAddListenerToEngine(t *testing.T) {
	is := is.New(t)
	d := dmn.NewDecision("D", "d", constant("d.v", 1))
	e := dmn.NewEngine()

	log := &eventLog{}
	e.Events().Add(log)
	e.Evaluate(nil, d, nil)
	is.Equal(len(log.Events()), 2)

	e.Events().Remove(log)
	e.Evaluate(nil, d, nil)
	is.Equal(len(log.Events()), 2)
}

func TestNopListener(t *testing.T) {
	is := is.New(t)
	d := dmn.NewDecision("D", "d", levels(dmn.HitFirst))
	r := dmn.NewEngine(dmn.WithListeners(dmn.NopListener{})).Evaluate(nil, d, dmn.ContextFrom(map[string]any{"n": 1}))
	is.True(!r.HasErrors())
	is.Equal(len(r.Messages()), 0)
}

func TestLogListener(t *testing.T) {
	is := is.New(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	bkm := dmn.NewBKM("B", "b", nil, levels(dmn.HitFirst))
	d := dmn.NewDecision("D", "d", dmn.NewInvocation("call", "d.call", "B", dmn.Binding{Parameter: "n", Value: constant("d.n", 3)}))
	bkm.Parameters = []string{"n"}
	m := mustModel(t, "logged", d, bkm)

	r := dmn.NewEngine(dmn.WithListeners(dmn.LogListener(logger))).EvaluateDecision(m, "D", nil)
	is.True(!r.HasErrors())

	out := buf.String()
	for _, msg := range []string{
		"before evaluate decision",
		"after evaluate decision",
		"before evaluate bkm",
		"after evaluate bkm",
		"before evaluate decision table",
		"after evaluate decision table",
	} {
		is.True(strings.Contains(out, msg))
	}
	is.True(strings.Contains(out, "request="+r.RequestID()))
	is.True(strings.Contains(out, "outcome=SUCCESS"))
}

// sliceListener has a comparable type but holds an uncomparable value.
type sliceListener struct {
	dmn.NopListener
	v any
}

func TestRemoveUncomparableListener(t *testing.T) {
	is := is.New(t)

	l := sliceListener{v: []int{1}}
	em := dmn.NewEventManager(l)
	is.True(!em.Remove(sliceListener{v: []int{1}}))
	is.Equal(em.Len(), 1)

	p := &sliceListener{v: []int{1}}
	em.Add(p)
	is.True(em.Remove(p))
	is.Equal(em.Len(), 1)
}
