package dmn

import "fmt"

// ListNode evaluates its elements in order and produces them as a []any.
type ListNode struct {
	base
	Elements []Node
}

// NewList returns a list node with the elements.
func NewList(name, id string, elements ...Node) *ListNode {
	return &ListNode{base: base{name: name, id: id}, Elements: elements}
}

func (n *ListNode) Kind() Kind { return KindList }

// Evaluate stops at the first element that fails, and returns a failure
// carrying the elements evaluated before it.
func (n *ListNode) Evaluate(em *EventManager, r *Result) EvaluatorResult {
	defer r.enterScope(r.Context().Clone())()

	results := make([]any, 0, len(n.Elements))
	for i, e := range n.Elements {
		er, fault := evalChild(e, em, r)
		if fault != nil || !er.Succeeded() {
			r.fail(n.id, fmt.Sprintf("Error evaluating list element on position '%d' on list '%s'", i+1, n.name), fault)
			return Failure(results)
		}
		results = append(results, er.Value)
	}
	return Success(results)
}
