package dmn

import "fmt"

// BKMNode is a business knowledge model: a reusable body with named parameters.
// The body is evaluated in a fresh scope holding only the parameters, whose
// values are taken from the context the BKM is evaluated in. Business knowledge
// models are normally evaluated through an InvocationNode.
type BKMNode struct {
	base
	Parameters []string
	Body       Node
}

// NewBKM returns a business knowledge model with the parameters and body.
func NewBKM(name, id string, parameters []string, body Node) *BKMNode {
	return &BKMNode{base: base{name: name, id: id}, Parameters: parameters, Body: body}
}

func (n *BKMNode) Kind() Kind { return KindBKM }

func (n *BKMNode) Evaluate(em *EventManager, r *Result) (res EvaluatorResult) {
	em.beforeBKM(n, r)
	defer func() {
		em.afterBKM(n, r, res)
	}()

	scope := NewContext()
	for _, p := range n.Parameters {
		v, ok := r.Context().Get(p)
		if !ok {
			r.warn(n.id, fmt.Sprintf("Parameter '%s' not bound for business knowledge model '%s'", p, n.name))
		}
		scope.Set(p, v)
	}
	defer r.enterScope(scope)()

	er, fault := evalChild(n.Body, em, r)
	if fault != nil || !er.Succeeded() {
		r.fail(n.id, fmt.Sprintf("Error evaluating body of business knowledge model '%s'", n.name), fault)
		return Failure(er.Value)
	}
	return Success(er.Value)
}

// Binding maps a BKM parameter to the node producing its argument.
type Binding struct {
	Parameter string
	Value     Node
}

// InvocationNode invokes the business knowledge model named Function. The
// bindings are evaluated in order in the current context; the BKM then sees
// only the parameters bound by them.
type InvocationNode struct {
	base
	Function string
	Bindings []Binding
}

// NewInvocation returns a node invoking the named business knowledge model.
func NewInvocation(name, id, function string, bindings ...Binding) *InvocationNode {
	return &InvocationNode{base: base{name: name, id: id}, Function: function, Bindings: bindings}
}

func (n *InvocationNode) Kind() Kind { return KindInvocation }

func (n *InvocationNode) Evaluate(em *EventManager, r *Result) EvaluatorResult {
	defer r.enterScope(r.Context().Clone())()

	args := NewContext()
	for i, b := range n.Bindings {
		er, fault := evalChild(b.Value, em, r)
		if fault != nil || !er.Succeeded() {
			r.fail(n.id, fmt.Sprintf("Error evaluating parameter '%s' on position '%d' of invocation '%s'", b.Parameter, i+1, n.name), fault)
			return Failure(args)
		}
		args.Set(b.Parameter, er.Value)
	}

	s := r.session
	bkm := s.model.BKM(n.Function)
	if bkm == nil {
		r.fail(n.id, fmt.Sprintf("Business knowledge model '%s' not found for invocation '%s'", n.Function, n.name), nil)
		return Failure(nil)
	}
	if !s.descend(r, n) {
		return Failure(nil)
	}
	defer s.ascend()

	r.SetContext(args)
	er, fault := evalChild(bkm, em, r)
	if fault != nil || !er.Succeeded() {
		r.fail(n.id, fmt.Sprintf("Error invoking business knowledge model '%s' from '%s'", n.Function, n.name), fault)
		return Failure(er.Value)
	}
	return Success(er.Value)
}
