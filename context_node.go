package dmn

import "fmt"

// ContextEntry is a named entry of a ContextNode.
type ContextEntry struct {
	Name  string
	Value Node
}

// ContextNode evaluates its entries in order, binding each value to the entry
// name so that later entries can refer to earlier ones. It produces a *Context
// holding the entries, or, if Result is set, the value of the Result node
// evaluated after all entries.
type ContextNode struct {
	base
	Entries []ContextEntry
	Result  Node
}

// NewContextNode returns a context node with the entries.
func NewContextNode(name, id string, entries ...ContextEntry) *ContextNode {
	return &ContextNode{base: base{name: name, id: id}, Entries: entries}
}

func (n *ContextNode) Kind() Kind { return KindContext }

// Evaluate stops at the first entry that fails, and returns a failure carrying
// a *Context of the entries evaluated before it.
func (n *ContextNode) Evaluate(em *EventManager, r *Result) EvaluatorResult {
	defer r.enterScope(r.Context().Clone())()

	out := NewContext()
	for i, e := range n.Entries {
		er, fault := evalChild(e.Value, em, r)
		if fault != nil || !er.Succeeded() {
			r.fail(n.id, fmt.Sprintf("Error evaluating context entry '%s' on position '%d' on context '%s'", e.Name, i+1, n.name), fault)
			return Failure(out)
		}
		out.Set(e.Name, er.Value)
		r.Context().Set(e.Name, er.Value)
	}

	if n.Result == nil {
		return Success(out)
	}
	er, fault := evalChild(n.Result, em, r)
	if fault != nil || !er.Succeeded() {
		r.fail(n.id, fmt.Sprintf("Error evaluating context result on position '%d' on context '%s'", len(n.Entries)+1, n.name), fault)
		return Failure(out)
	}
	return Success(er.Value)
}
