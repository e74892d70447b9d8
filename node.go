package dmn

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies the variant of a Node.
type Kind int

const (
	KindLiteral Kind = iota
	KindList
	KindContext
	KindRelation
	KindDecision
	KindBKM
	KindInvocation
	KindDecisionTable
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindList:
		return "list"
	case KindContext:
		return "context"
	case KindRelation:
		return "relation"
	case KindDecision:
		return "decision"
	case KindBKM:
		return "bkm"
	case KindInvocation:
		return "invocation"
	case KindDecisionTable:
		return "decision_table"
	case KindFunc:
		return "func"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is a unit of evaluation in a decision model. The set of node variants
// is closed: LiteralNode, ListNode, ContextNode, RelationNode, DecisionNode,
// BKMNode, InvocationNode, DecisionTableNode and FuncNode. Custom logic is
// plugged in with a FuncNode.
//
// Evaluate reports the outcome as an EvaluatorResult. A node that fails
// appends at least one ERROR message to the Result before returning a failure.
type Node interface {
	// Name is the human readable name of the node.
	Name() string

	// ID is a stable identifier used in diagnostics.
	ID() string

	Kind() Kind

	Evaluate(em *EventManager, r *Result) EvaluatorResult

	node()
}

// base holds the identity shared by all nodes.
type base struct {
	name string
	id   string
}

func (b *base) Name() string { return b.name }
func (b *base) ID() string   { return b.id }
func (b *base) node()        {}

// ResultType tags an EvaluatorResult.
type ResultType int

const (
	// The zero value is a failure, so that an unset result is never
	// mistaken for a value.
	ResultFailure ResultType = iota
	ResultSuccess
)

func (t ResultType) String() string {
	switch t {
	case ResultSuccess:
		return "SUCCESS"
	case ResultFailure:
		return "FAILURE"
	default:
		return fmt.Sprintf("ResultType(%d)", int(t))
	}
}

// EvaluatorResult is the outcome of evaluating a node.
// The Value of a failure holds whatever partial results the node had produced;
// it is useful for diagnostics, not as a value. The messages in the Result
// describe the failure.
type EvaluatorResult struct {
	Type  ResultType
	Value any
}

// Success returns a successful result carrying v.
func Success(v any) EvaluatorResult {
	return EvaluatorResult{Type: ResultSuccess, Value: v}
}

// Failure returns a failed result carrying the partial results.
func Failure(partial any) EvaluatorResult {
	return EvaluatorResult{Type: ResultFailure, Value: partial}
}

// Succeeded reports whether the result is a success.
func (e EvaluatorResult) Succeeded() bool {
	return e.Type == ResultSuccess
}

// Fault describes a panic recovered while evaluating a node.
type Fault struct {
	// The value passed to panic
	Value any
}

func (f *Fault) Error() string {
	return fmt.Sprintf("unexpected fault: %v", f.Value)
}

// Unwrap returns the panic value if it is an error.
func (f *Fault) Unwrap() error {
	if err, ok := f.Value.(error); ok {
		return err
	}
	return nil
}

// errMissingNode is reported for nil children.
var errMissingNode = errors.New("missing node")

// evalChild evaluates the child node on behalf of its parent. A panic raised by
// the child is recovered and returned as a fault, together with a failure.
func evalChild(n Node, em *EventManager, r *Result) (er EvaluatorResult, fault error) {
	if n == nil {
		return Failure(nil), errors.WithStack(errMissingNode)
	}
	defer func() {
		if p := recover(); p != nil {
			er = Failure(nil)
			fault = errors.WithStack(&Fault{Value: p})
		}
	}()
	r.evaluated++
	return n.Evaluate(em, r), nil
}

// FuncNode evaluates a host supplied function. The function must follow the
// node contract: restore the context it found, and add an ERROR message before
// reporting a failure.
type FuncNode struct {
	base
	Fn func(em *EventManager, r *Result) EvaluatorResult
}

// NewFunc returns a node evaluating fn.
func NewFunc(name, id string, fn func(em *EventManager, r *Result) EvaluatorResult) *FuncNode {
	return &FuncNode{base: base{name: name, id: id}, Fn: fn}
}

func (n *FuncNode) Kind() Kind { return KindFunc }

func (n *FuncNode) Evaluate(em *EventManager, r *Result) EvaluatorResult {
	if n.Fn == nil {
		r.fail(n.id, fmt.Sprintf("Missing function on node '%s'", n.name), nil)
		return Failure(nil)
	}
	return n.Fn(em, r)
}

// Children returns the direct children of the node in evaluation order.
// Nil children are included.
func Children(n Node) []Node {
	switch t := n.(type) {
	case *LiteralNode, *FuncNode:
		return nil
	case *ListNode:
		return t.Elements
	case *ContextNode:
		l := make([]Node, 0, len(t.Entries)+1)
		for _, e := range t.Entries {
			l = append(l, e.Value)
		}
		if t.Result != nil {
			l = append(l, t.Result)
		}
		return l
	case *RelationNode:
		var l []Node
		for _, row := range t.Rows {
			l = append(l, row...)
		}
		return l
	case *DecisionNode:
		return []Node{t.Body}
	case *BKMNode:
		return []Node{t.Body}
	case *InvocationNode:
		l := make([]Node, 0, len(t.Bindings))
		for _, b := range t.Bindings {
			l = append(l, b.Value)
		}
		return l
	case *DecisionTableNode:
		var l []Node
		for _, in := range t.Inputs {
			l = append(l, in.Expr)
		}
		for _, rule := range t.Rules {
			l = append(l, rule.Outputs...)
		}
		for _, out := range t.Outputs {
			if out.Default != nil {
				l = append(l, out.Default)
			}
		}
		return l
	default:
		return nil
	}
}

// Walk calls fn for the node and all its descendants, in pre-order.
// Nil children are passed to fn as nil. Walk stops at the first error.
func Walk(n Node, fn func(n Node, depth int) error) error {
	return walk(n, 0, fn)
}

func walk(n Node, depth int, fn func(n Node, depth int) error) error {
	if err := fn(n, depth); err != nil {
		return err
	}
	if n == nil {
		return nil
	}
	for _, c := range Children(n) {
		if err := walk(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Tree returns a tree representation of the node hierarchy showing the names,
// kinds and identifiers of the nodes.
//
// Example output:
//
//	Approval (decision, d1)
//	└── Approval table (decision_table, d1.t)
//	    ├── Age (literal, d1.t.i1)
//	    └── Score (literal, d1.t.i2)
func Tree(n Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(label(n))
	sb.WriteString("\n")
	buildTree(n, &sb, "", 0)
	return sb.String()
}

// maxTreeDepth bounds the recursion of Tree.
const maxTreeDepth = 20

func label(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%s, %s)", n.Name(), n.Kind(), n.ID())
}

func buildTree(n Node, sb *strings.Builder, prefix string, depth int) {
	if depth >= maxTreeDepth {
		return
	}
	children := Children(n)
	for i, child := range children {
		var connector, childPrefix string
		if i == len(children)-1 {
			connector = "└── "
			childPrefix = "    "
		} else {
			connector = "├── "
			childPrefix = "│   "
		}

		sb.WriteString(prefix)
		sb.WriteString(connector)
		sb.WriteString(label(child))
		sb.WriteString("\n")
		if child != nil {
			buildTree(child, sb, prefix+childPrefix, depth+1)
		}
	}
}
