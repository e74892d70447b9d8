package dmn

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// HitPolicy determines which of the matching rules of a decision table
// produce its output.
type HitPolicy int

const (
	// Exactly one rule may match.
	HitUnique HitPolicy = iota
	// The first matching rule, in rule order.
	HitFirst
	// The matching rule whose outputs rank highest in the output values.
	HitPriority
	// Any number of rules may match, provided they all produce the same output.
	HitAny
	// All matching rules, in rule order, optionally aggregated.
	HitCollect
	// All matching rules, in rule order.
	HitRuleOrder
	// All matching rules, ordered by the rank of their outputs.
	HitOutputOrder
)

func (h HitPolicy) String() string {
	switch h {
	case HitUnique:
		return "UNIQUE"
	case HitFirst:
		return "FIRST"
	case HitPriority:
		return "PRIORITY"
	case HitAny:
		return "ANY"
	case HitCollect:
		return "COLLECT"
	case HitRuleOrder:
		return "RULE ORDER"
	case HitOutputOrder:
		return "OUTPUT ORDER"
	default:
		return fmt.Sprintf("HitPolicy(%d)", int(h))
	}
}

// ParseHitPolicy parses a hit policy from its name or its single letter
// abbreviation (U, F, P, A, C, R, O). Case is ignored.
func ParseHitPolicy(s string) (HitPolicy, error) {
	switch strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "_", " "))) {
	case "U", "UNIQUE":
		return HitUnique, nil
	case "F", "FIRST":
		return HitFirst, nil
	case "P", "PRIORITY":
		return HitPriority, nil
	case "A", "ANY":
		return HitAny, nil
	case "C", "COLLECT":
		return HitCollect, nil
	case "R", "RULE ORDER":
		return HitRuleOrder, nil
	case "O", "OUTPUT ORDER":
		return HitOutputOrder, nil
	default:
		return HitUnique, fmt.Errorf("unknown hit policy %q", s)
	}
}

// Aggregation combines the outputs of a COLLECT decision table.
type Aggregation int

const (
	AggregateNone Aggregation = iota
	AggregateSum
	AggregateCount
	AggregateMin
	AggregateMax
)

func (a Aggregation) String() string {
	switch a {
	case AggregateNone:
		return "NONE"
	case AggregateSum:
		return "SUM"
	case AggregateCount:
		return "COUNT"
	case AggregateMin:
		return "MIN"
	case AggregateMax:
		return "MAX"
	default:
		return fmt.Sprintf("Aggregation(%d)", int(a))
	}
}

// InputClause is an input column of a decision table.
type InputClause struct {
	Label string
	Expr  Node
}

// OutputClause is an output column of a decision table.
type OutputClause struct {
	Name string

	// Allowed output values, highest priority first. Used by the PRIORITY and
	// OUTPUT ORDER hit policies; clauses without values do not take part in
	// ranking.
	Values []any

	// Produces the output when no rule matches. Optional.
	Default Node
}

// TableRule is a row of a decision table: one unary test per input clause and
// one output entry per output clause. A nil test, or a missing trailing test,
// matches any input.
type TableRule struct {
	Tests      []UnaryTest
	Outputs    []Node
	Annotation string
}

// DecisionTableNode evaluates its inputs, tests every rule against them, and
// produces the outputs of the rules selected by the hit policy.
//
// With a single output clause, a rule produces the value of its output entry;
// with several, a *Context keyed by the output clause names. The hit policies
// that select more than one rule produce a []any of rule outputs, unless an
// aggregation is set.
type DecisionTableNode struct {
	base
	Inputs      []InputClause
	Outputs     []OutputClause
	Rules       []TableRule
	HitPolicy   HitPolicy
	Aggregation Aggregation
}

// NewDecisionTable returns a UNIQUE decision table.
func NewDecisionTable(name, id string, inputs []InputClause, outputs []OutputClause, rules ...TableRule) *DecisionTableNode {
	return &DecisionTableNode{
		base:    base{name: name, id: id},
		Inputs:  inputs,
		Outputs: outputs,
		Rules:   rules,
	}
}

func (n *DecisionTableNode) Kind() Kind { return KindDecisionTable }

func (n *DecisionTableNode) Evaluate(em *EventManager, r *Result) (res EvaluatorResult) {
	var matches, selected []int
	em.beforeDecisionTable(n, r)
	defer func() {
		em.afterDecisionTable(n, r, res, matches, selected)
	}()
	defer r.enterScope(r.Context().Clone())()

	inputs := make([]any, 0, len(n.Inputs))
	for i, in := range n.Inputs {
		er, fault := evalChild(in.Expr, em, r)
		if fault != nil || !er.Succeeded() {
			r.fail(n.id, fmt.Sprintf("Error evaluating input on position '%d' on decision table '%s'", i+1, n.name), fault)
			return Failure(inputs)
		}
		inputs = append(inputs, er.Value)
	}

	for ri, rule := range n.Rules {
		ok, err := n.matchRule(ri, rule, inputs, r)
		if err != nil {
			return Failure(nil)
		}
		if ok {
			matches = append(matches, ri+1)
		}
	}

	if len(matches) == 0 {
		return n.noMatch(em, r)
	}

	switch n.HitPolicy {
	case HitUnique:
		if len(matches) > 1 {
			r.fail(n.id, fmt.Sprintf("Multiple rules %s matched decision table '%s' with hit policy UNIQUE", ruleList(matches), n.name), nil)
			return Failure(nil)
		}
		selected = matches
		return n.single(em, r, matches[0])

	case HitFirst:
		selected = matches[:1]
		return n.single(em, r, matches[0])

	case HitAny:
		outs, ok := n.ruleOutputs(em, r, matches)
		if !ok {
			return Failure(outs)
		}
		for i := 1; i < len(outs); i++ {
			if !valuesEqual(outs[0], outs[i]) {
				r.fail(n.id, fmt.Sprintf("Rules %s matched decision table '%s' with hit policy ANY but produce different outputs", ruleList(matches), n.name), nil)
				return Failure(outs)
			}
		}
		selected = matches
		return Success(outs[0])

	case HitPriority, HitOutputOrder:
		outs, ok := n.ruleOutputs(em, r, matches)
		if !ok {
			return Failure(outs)
		}
		order, ok := n.rank(r, matches, outs)
		if !ok {
			return Failure(outs)
		}
		if n.HitPolicy == HitPriority {
			selected = []int{matches[order[0]]}
			return Success(outs[order[0]])
		}
		sorted := make([]any, len(order))
		for i, k := range order {
			selected = append(selected, matches[k])
			sorted[i] = outs[k]
		}
		return Success(sorted)

	case HitCollect, HitRuleOrder:
		outs, ok := n.ruleOutputs(em, r, matches)
		if !ok {
			return Failure(outs)
		}
		selected = matches
		if n.HitPolicy == HitCollect && n.Aggregation != AggregateNone {
			return n.aggregate(r, outs)
		}
		return Success(outs)

	default:
		r.fail(n.id, fmt.Sprintf("Unsupported hit policy %s on decision table '%s'", n.HitPolicy, n.name), nil)
		return Failure(nil)
	}
}

// matchRule runs the tests of a rule against the inputs. It returns an error
// if a test failed to run; the error has been reported.
func (n *DecisionTableNode) matchRule(ri int, rule TableRule, inputs []any, r *Result) (bool, error) {
	if len(rule.Tests) > len(n.Inputs) {
		text := fmt.Sprintf("Rule '%d' on decision table '%s' has %d input entries, expected at most %d", ri+1, n.name, len(rule.Tests), len(n.Inputs))
		r.fail(n.id, text, nil)
		return false, errors.New(text)
	}
	for i, input := range inputs {
		if i >= len(rule.Tests) {
			break
		}
		ok, err := runTest(rule.Tests[i], input, r.Context())
		if err != nil {
			r.fail(n.id, fmt.Sprintf("Error evaluating input entry on position '%d' of rule '%d' on decision table '%s'", i+1, ri+1, n.name), err)
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// runTest runs the test, recovering a panic as a fault.
func runTest(t UnaryTest, input any, c *Context) (ok bool, err error) {
	if t == nil {
		return true, nil
	}
	defer func() {
		if p := recover(); p != nil {
			ok = false
			err = errors.WithStack(&Fault{Value: p})
		}
	}()
	return t.Test(input, c)
}

func (n *DecisionTableNode) single(em *EventManager, r *Result, rule int) EvaluatorResult {
	v, ok := n.ruleOutput(em, r, rule)
	if !ok {
		return Failure(v)
	}
	return Success(v)
}

// ruleOutputs evaluates the outputs of the rules, in order.
func (n *DecisionTableNode) ruleOutputs(em *EventManager, r *Result, rules []int) ([]any, bool) {
	outs := make([]any, 0, len(rules))
	for _, rule := range rules {
		v, ok := n.ruleOutput(em, r, rule)
		if !ok {
			return outs, false
		}
		outs = append(outs, v)
	}
	return outs, true
}

// ruleOutput evaluates the output entries of the 1-based rule.
func (n *DecisionTableNode) ruleOutput(em *EventManager, r *Result, rule int) (any, bool) {
	entries := n.Rules[rule-1].Outputs
	want := max(len(n.Outputs), 1)
	if len(entries) != want {
		r.fail(n.id, fmt.Sprintf("Rule '%d' on decision table '%s' has %d output entries, expected %d", rule, n.name, len(entries), want), nil)
		return nil, false
	}

	values := make([]any, 0, len(entries))
	for i, e := range entries {
		er, fault := evalChild(e, em, r)
		if fault != nil || !er.Succeeded() {
			r.fail(n.id, fmt.Sprintf("Error evaluating output entry on position '%d' of rule '%d' on decision table '%s'", i+1, rule, n.name), fault)
			return nil, false
		}
		values = append(values, er.Value)
	}
	return n.outputValue(values), true
}

// outputValue shapes the values of one row of output entries.
func (n *DecisionTableNode) outputValue(values []any) any {
	if len(n.Outputs) <= 1 {
		return values[0]
	}
	c := NewContext()
	for i, out := range n.Outputs {
		c.Set(out.Name, values[i])
	}
	return c
}

// noMatch produces the output of a table none of whose rules matched.
func (n *DecisionTableNode) noMatch(em *EventManager, r *Result) EvaluatorResult {
	if n.HitPolicy == HitCollect {
		switch n.Aggregation {
		case AggregateNone:
			return Success([]any{})
		case AggregateCount:
			return Success(int64(0))
		default:
			return Success(nil)
		}
	}
	if n.HitPolicy == HitRuleOrder || n.HitPolicy == HitOutputOrder {
		return Success([]any{})
	}

	if !slices.ContainsFunc(n.Outputs, func(o OutputClause) bool { return o.Default != nil }) {
		r.warn(n.id, fmt.Sprintf("No rule matched decision table '%s'", n.name))
		return Success(nil)
	}

	values := make([]any, len(n.Outputs))
	for i, out := range n.Outputs {
		if out.Default == nil {
			continue
		}
		er, fault := evalChild(out.Default, em, r)
		if fault != nil || !er.Succeeded() {
			r.fail(n.id, fmt.Sprintf("Error evaluating default output on position '%d' on decision table '%s'", i+1, n.name), fault)
			return Failure(nil)
		}
		values[i] = er.Value
	}
	return Success(n.outputValue(values))
}

// rank orders the outputs by the priority of their values, highest first.
// Outputs of equal priority keep rule order. It returns the positions of the
// outputs in rank order.
func (n *DecisionTableNode) rank(r *Result, rules []int, outs []any) ([]int, bool) {
	keys := make([][]int, len(outs))
	for k, out := range outs {
		for i, clause := range n.Outputs {
			if len(clause.Values) == 0 {
				continue
			}
			v := out
			if c, ok := out.(*Context); ok && len(n.Outputs) > 1 {
				v, _ = c.Get(clause.Name)
			}
			p := slices.IndexFunc(clause.Values, func(x any) bool { return valuesEqual(x, v) })
			if p < 0 {
				r.fail(n.id, fmt.Sprintf("Output value '%v' of rule '%d' is not listed for output '%s' on decision table '%s'", v, rules[k], clause.Name, n.name), nil)
				return nil, false
			}
			keys[k] = append(keys[k], i, p)
		}
	}

	order := make([]int, len(outs))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return slices.Compare(keys[a], keys[b])
	})
	return order, true
}

// aggregate combines the outputs of a COLLECT table.
func (n *DecisionTableNode) aggregate(r *Result, outs []any) EvaluatorResult {
	if n.Aggregation == AggregateCount {
		return Success(int64(len(outs)))
	}

	allInts := true
	nums := make([]float64, len(outs))
	for i, v := range outs {
		f, ok := toFloat(v)
		if !ok {
			r.fail(n.id, fmt.Sprintf("Cannot aggregate non-numeric output '%v' with %s on decision table '%s'", v, n.Aggregation, n.name), nil)
			return Failure(outs)
		}
		if _, ok := toInt(v); !ok {
			allInts = false
		}
		nums[i] = f
	}

	switch n.Aggregation {
	case AggregateSum:
		if allInts {
			if sum, ok := sumInts(outs); ok {
				return Success(sum)
			}
		}
		var sum float64
		for _, f := range nums {
			sum += f
		}
		return Success(sum)
	case AggregateMin:
		best := 0
		for i, f := range nums {
			if f < nums[best] {
				best = i
			}
		}
		return Success(outs[best])
	case AggregateMax:
		best := 0
		for i, f := range nums {
			if f > nums[best] {
				best = i
			}
		}
		return Success(outs[best])
	default:
		r.fail(n.id, fmt.Sprintf("Unsupported aggregation %s on decision table '%s'", n.Aggregation, n.name), nil)
		return Failure(outs)
	}
}

// sumInts adds integer outputs, reporting false if the sum overflows an int64.
func sumInts(outs []any) (int64, bool) {
	var sum int64
	for _, v := range outs {
		x, _ := toInt(v)
		if (x > 0 && sum > math.MaxInt64-x) || (x < 0 && sum < math.MinInt64-x) {
			return 0, false
		}
		sum += x
	}
	return sum, true
}

func ruleList(rules []int) string {
	s := make([]string, len(rules))
	for i, x := range rules {
		s[i] = fmt.Sprint(x)
	}
	return "[" + strings.Join(s, ", ") + "]"
}
