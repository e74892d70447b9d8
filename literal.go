package dmn

import "fmt"

// LiteralNode evaluates an expression of the model's expression language in the
// current context.
type LiteralNode struct {
	base
	Expr Expression
}

// NewLiteral returns a literal expression node.
func NewLiteral(name, id string, expr Expression) *LiteralNode {
	return &LiteralNode{base: base{name: name, id: id}, Expr: expr}
}

// NewConstant returns a literal node producing v.
func NewConstant(name, id string, v any) *LiteralNode {
	return NewLiteral(name, id, Constant(v))
}

func (n *LiteralNode) Kind() Kind { return KindLiteral }

func (n *LiteralNode) Evaluate(_ *EventManager, r *Result) EvaluatorResult {
	if n.Expr == nil {
		r.fail(n.id, fmt.Sprintf("Missing expression on literal '%s'", n.name), nil)
		return Failure(nil)
	}
	v, err := n.Expr.Eval(r.Context())
	if err != nil {
		r.fail(n.id, fmt.Sprintf("Error evaluating literal expression '%s'", n.name), err)
		return Failure(nil)
	}
	return Success(v)
}
