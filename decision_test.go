package dmn_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ezachrisen/dmn"
	"github.com/matryer/is"
)

// add returns an expression adding the values bound to the names.
func add(names ...string) dmn.Expression {
	return dmn.ExpressionFunc(func(c *dmn.Context) (any, error) {
		sum := 0
		for _, n := range names {
			v, _ := c.Get(n)
			sum += v.(int)
		}
		return sum, nil
	})
}

func TestDecisionRecordsValue(t *testing.T) {
	is := is.New(t)

	d := dmn.NewDecision("Total", "total", dmn.NewLiteral("a+b", "total.expr", add("a", "b"))).WithInputs("a", "b")
	r := dmn.NewEngine().Evaluate(nil, d, dmn.ContextFrom(map[string]any{"a": 1, "b": 2}))

	is.True(r.Outcome().Succeeded())
	v, ok := r.Decision("Total")
	is.True(ok)
	is.Equal(v, 3)
	is.Equal(r.DecisionStatus("Total"), dmn.StatusSucceeded)
	is.Equal(r.DecisionNames(), []string{"Total"})
}

func TestDecisionMissingInput(t *testing.T) {
	is := is.New(t)

	body := dmn.NewLiteral("a is nil", "d.expr", dmn.ExpressionFunc(func(c *dmn.Context) (any, error) {
		v, ok := c.Get("a")
		return ok && v == nil, nil
	}))
	d := dmn.NewDecision("D", "d", body).WithInputs("a")

	r := dmn.NewEngine().Evaluate(nil, d, dmn.NewContext())
	is.True(r.Outcome().Succeeded())
	v, _ := r.Decision("D")
	is.Equal(v, true) // bound to nil
	is.True(hasMessage(r, dmn.SeverityWarn, "Required input 'a' not found on decision 'D'"))
	is.True(!r.HasErrors())

	r = dmn.NewEngine(dmn.WithStrictInputs(true)).Evaluate(nil, d, dmn.NewContext())
	is.True(!r.Outcome().Succeeded())
	is.True(hasMessage(r, dmn.SeverityError, "Required input 'a' not found on decision 'D'"))
	_, ok := r.Decision("D")
	is.True(!ok)
	is.Equal(r.DecisionStatus("D"), dmn.StatusFailed)
}

func TestDecisionBodyFailure(t *testing.T) {
	is := is.New(t)
	rec := &recorder{}

	d := dmn.NewDecision("D", "d", rec.failing("body"))
	r := dmn.NewEngine().Evaluate(nil, d, nil)

	is.True(!r.Outcome().Succeeded())
	is.Equal(errorTexts(r), []string{"Error evaluating expression of decision 'D'"})
	is.Equal(r.DecisionStatus("D"), dmn.StatusFailed)
	_, ok := r.Decision("D")
	is.True(!ok)
}

func TestRequiredDecisions(t *testing.T) {
	is := is.New(t)

	a := dmn.NewDecision("A", "a", constant("a.v", 1))
	b := dmn.NewDecision("B", "b", dmn.NewLiteral("A+1", "b.v", dmn.ExpressionFunc(func(c *dmn.Context) (any, error) {
		v, _ := c.Get("A")
		return v.(int) + 1, nil
	}))).WithRequires("A")
	c := dmn.NewDecision("C", "c", dmn.NewLiteral("A+B", "c.v", add("A", "B"))).WithRequires("A", "B")
	m := mustModel(t, "chain", a, b, c)

	r := dmn.NewEngine().EvaluateDecision(m, "C", nil)
	is.True(!r.HasErrors())
	v, _ := r.Decision("C")
	is.Equal(v, 3)
	is.Equal(r.DecisionNames(), []string{"A", "B", "C"})
}

// Required decisions are evaluated in the input context of the request, not in
// the scope of the decision requiring them.
func TestRequiredDecisionScope(t *testing.T) {
	is := is.New(t)

	a := dmn.NewDecision("A", "a", dmn.NewLiteral("sees x", "a.v", dmn.ExpressionFunc(func(c *dmn.Context) (any, error) {
		return c.Has("x"), nil
	})))
	b := dmn.NewDecision("B", "b", variable("b.v", "A")).WithRequires("A")
	root := dmn.NewContextNode("Root", "root",
		dmn.ContextEntry{Name: "x", Value: constant("root.x", 1)},
		dmn.ContextEntry{Name: "b", Value: b},
	)
	m := mustModel(t, "scope", a)

	r := dmn.NewEngine().Evaluate(m, root, nil)
	is.True(!r.HasErrors())
	v, _ := r.Decision("A")
	is.Equal(v, false)
	v, _ = r.Decision("B")
	is.Equal(v, false)
}

func TestMemoization(t *testing.T) {
	rec := &recorder{}
	base := dmn.NewDecision("Base", "base", rec.value("base", 10))
	left := dmn.NewDecision("Left", "left", variable("left.v", "Base")).WithRequires("Base")
	right := dmn.NewDecision("Right", "right", variable("right.v", "Base")).WithRequires("Base")
	top := dmn.NewDecision("Top", "top", dmn.NewLiteral("sum", "top.v", add("Left", "Right"))).WithRequires("Left", "Right")
	m := mustModel(t, "diamond", base, left, right, top)

	cases := map[string]struct {
		memoize bool
		calls   int
		events  int
	}{
		"memoized":     {memoize: true, calls: 1, events: 1},
		"not memoized": {memoize: false, calls: 2, events: 2},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			rec.calls = nil
			events := 0
			l := &dmn.ListenerFuncs{BeforeDecision: func(e dmn.BeforeEvent) {
				if e.Name == "Base" {
					events++
				}
			}}

			r := dmn.NewEngine(dmn.WithMemoization(c.memoize), dmn.WithListeners(l)).EvaluateDecision(m, "Top", nil)
			is.True(!r.HasErrors())
			v, _ := r.Decision("Top")
			is.Equal(v, 20)
			is.Equal(len(rec.Calls()), c.calls)
			is.Equal(events, c.events)
		})
	}
}

func TestMemoizedFailure(t *testing.T) {
	is := is.New(t)
	rec := &recorder{}

	base := dmn.NewDecision("Base", "base", rec.failing("base"))
	left := dmn.NewDecision("Left", "left", variable("left.v", "Base")).WithRequires("Base")
	right := dmn.NewDecision("Right", "right", variable("right.v", "Base")).WithRequires("Base")
	m := mustModel(t, "failing", base, left, right)

	r := dmn.NewEngine().EvaluateAll(m, nil)
	is.True(!r.Outcome().Succeeded())
	is.Equal(len(rec.Calls()), 1)
	is.Equal(r.DecisionStatus("Base"), dmn.StatusFailed)
	is.Equal(r.DecisionStatus("Left"), dmn.StatusSkipped)
	is.Equal(r.DecisionStatus("Right"), dmn.StatusSkipped)
	is.True(hasMessage(r, dmn.SeverityError, "Required dependency 'Base' on position '1' failed for decision 'Left'"))
	is.Equal(len(r.Decisions()), 0)
}

func TestCircularDependency(t *testing.T) {
	is := is.New(t)

	a := dmn.NewDecision("A", "a", variable("a.v", "B")).WithRequires("B")
	b := dmn.NewDecision("B", "b", variable("b.v", "A")).WithRequires("A")
	m := mustModel(t, "cycle", a, b)

	r := dmn.NewEngine().EvaluateDecision(m, "A", nil)
	is.True(!r.Outcome().Succeeded())
	is.True(hasMessage(r, dmn.SeverityError, "Circular dependency on decision 'A' detected while evaluating 'B'"))
	is.Equal(r.DecisionStatus("A"), dmn.StatusSkipped)
	is.Equal(r.DecisionStatus("B"), dmn.StatusSkipped)
}

func TestMissingRequiredDecision(t *testing.T) {
	is := is.New(t)
	d := dmn.NewDecision("D", "d", constant("d.v", 1)).WithRequires("Nope")
	r := dmn.NewEngine().Evaluate(mustModel(t, "m", d), d, nil)

	is.True(!r.Outcome().Succeeded())
	is.Equal(errorTexts(r), []string{
		"Required decision 'Nope' not found for node 'D'",
		"Required dependency 'Nope' on position '1' failed for decision 'D'",
	})
}

// Decision and BKM events fire once each, in nesting order.
func TestDecisionInvokingBKM(t *testing.T) {
	is := is.New(t)

	double := dmn.NewBKM("Double", "double", []string{"x"},
		dmn.NewLiteral("x+x", "double.body", add("x", "x")))
	d := dmn.NewDecision("D", "d",
		dmn.NewInvocation("call", "d.call", "Double", dmn.Binding{Parameter: "x", Value: variable("d.x", "n")}),
	).WithInputs("n")
	m := mustModel(t, "bkm", d, double)

	log := &eventLog{}
	r := dmn.NewEngine(dmn.WithListeners(log)).EvaluateDecision(m, "D", dmn.ContextFrom(map[string]any{"n": 21}))

	is.True(!r.HasErrors())
	v, _ := r.Decision("D")
	is.Equal(v, 42)
	is.Equal(log.Events(), []string{
		"before decision D",
		"before bkm Double",
		"after bkm Double",
		"after decision D",
	})
}

func TestBKMFreshScope(t *testing.T) {
	is := is.New(t)

	sees := dmn.NewBKM("Sees", "sees", []string{"p"}, dmn.NewLiteral("names", "sees.body",
		dmn.ExpressionFunc(func(c *dmn.Context) (any, error) {
			return strings.Join(c.Names(), ","), nil
		})))
	inv := dmn.NewInvocation("call", "call", "Sees", dmn.Binding{Parameter: "p", Value: constant("call.p", 1)})
	m := mustModel(t, "scope", sees)

	r := dmn.NewEngine().Evaluate(m, inv, dmn.ContextFrom(map[string]any{"outer": true}))
	is.True(r.Outcome().Succeeded())
	is.Equal(r.Outcome().Value, "p")
}

func TestBKMMissingParameter(t *testing.T) {
	is := is.New(t)

	bkm := dmn.NewBKM("F", "f", []string{"a", "b"}, variable("f.body", "b"))
	inv := dmn.NewInvocation("call", "call", "F", dmn.Binding{Parameter: "a", Value: constant("call.a", 1)})
	m := mustModel(t, "m", bkm)

	r := dmn.NewEngine().Evaluate(m, inv, nil)
	is.True(r.Outcome().Succeeded())
	is.Equal(r.Outcome().Value, nil)
	is.True(hasMessage(r, dmn.SeverityWarn, "Parameter 'b' not bound for business knowledge model 'F'"))
}

func TestInvocationFailures(t *testing.T) {
	is := is.New(t)
	rec := &recorder{}

	bkm := dmn.NewBKM("F", "f", []string{"a"}, rec.failing("f.body"))
	m := mustModel(t, "m", bkm)

	inv := dmn.NewInvocation("call", "call", "F",
		dmn.Binding{Parameter: "a", Value: rec.failing("arg")})
	r := dmn.NewEngine().Evaluate(m, inv, nil)
	is.Equal(errorTexts(r), []string{"Error evaluating parameter 'a' on position '1' of invocation 'call'"})

	inv = dmn.NewInvocation("call", "call", "Missing")
	r = dmn.NewEngine().Evaluate(m, inv, nil)
	is.Equal(errorTexts(r), []string{"Business knowledge model 'Missing' not found for invocation 'call'"})

	inv = dmn.NewInvocation("call", "call", "F", dmn.Binding{Parameter: "a", Value: constant("call.a", 1)})
	r = dmn.NewEngine().Evaluate(m, inv, nil)
	is.Equal(errorTexts(r), []string{
		"Error evaluating body of business knowledge model 'F'",
		"Error invoking business knowledge model 'F' from 'call'",
	})
}

func TestMaxDepth(t *testing.T) {
	// A business knowledge model that invokes itself without end
	loop := dmn.NewBKM("Loop", "loop", nil, dmn.NewInvocation("again", "loop.again", "Loop"))
	m := mustModel(t, "loop", loop)
	root := dmn.NewInvocation("start", "start", "Loop")

	cases := map[string]struct {
		depth int
		limit int
	}{
		"explicit limit": {depth: 5, limit: 5},
		"zero limit":     {depth: 0, limit: 64},
		"negative limit": {depth: -1, limit: 64},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			r := dmn.NewEngine(dmn.WithMaxDepth(c.depth)).Evaluate(m, root, nil)
			is.True(!r.Outcome().Succeeded())
			is.True(hasMessage(r, dmn.SeverityError, fmt.Sprintf("Maximum evaluation depth of %d exceeded on node 'again'", c.limit)))
			is.True(r.Context().Len() == 0)
		})
	}
}

func TestMaxDepthFromConfig(t *testing.T) {
	is := is.New(t)

	cfg, err := dmn.ParseConfig([]byte("max_depth: 0\n"))
	is.NoErr(err)

	loop := dmn.NewBKM("Loop", "loop", nil, dmn.NewInvocation("again", "loop.again", "Loop"))
	m := mustModel(t, "loop", loop)
	r := dmn.NewEngine(cfg.Options()...).Evaluate(m, dmn.NewInvocation("start", "start", "Loop"), nil)
	is.True(hasMessage(r, dmn.SeverityError, "Maximum evaluation depth of 64 exceeded"))
}
